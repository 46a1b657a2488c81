// Command scanmon is a terminal monitor that live-renders a ScanContext's
// buffer-pool occupancy and in-flight scan state in lipgloss-styled boxes.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kvscan/rangescan/pkg/config"
	"github.com/kvscan/rangescan/pkg/grid"
	"github.com/kvscan/rangescan/pkg/logging"
	"github.com/kvscan/rangescan/pkg/manifest"
	"github.com/kvscan/rangescan/pkg/scan"
	"github.com/kvscan/rangescan/pkg/scanmetrics"
	"github.com/kvscan/rangescan/pkg/table"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			MarginLeft(2).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(1, 2).
			MarginRight(2)

	barFilledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	barEmptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).MarginLeft(2).MarginTop(1)
)

type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Quit}}
}

// workload holds the shared, continuously-running scan traffic scanmon
// observes: one ScanContext, one Grid, and rounds of workers concurrent
// scans (see driveRounds), each running one Seek/Fetch/Reset against a
// random sub-range of a fixed synthetic tree.
type workload struct {
	ctx        *scan.ScanContext
	metrics    *scanmetrics.Registry
	levelCount int
	workers    int
	active     atomic.Int64
	stopChan   chan struct{}
}

func newWorkload(cfg config.ScanEngineConfig, appLog *logging.JSONLogger) *workload {
	backend := grid.NewMemoryBackend()
	man := manifest.NewInMemory()
	seedSyntheticTree(backend, man, cfg.LevelCount)

	loop := grid.NewLoop(cfg.GridLoopCapacity)
	g := grid.New(backend, loop)
	stop := make(chan struct{})
	go loop.Run(stop)

	workers := cfg.ScanMax / 2
	if workers < 1 {
		workers = 1
	}

	w := &workload{
		ctx:        scan.NewScanContext(cfg.ScanMax, cfg.LevelCount),
		metrics:    scanmetrics.NewRegistry(),
		levelCount: cfg.LevelCount,
		workers:    workers,
		stopChan:   stop,
	}

	go w.driveRounds(g, man, appLog)
	return w
}

// driveRounds runs workers concurrent scans per round, each taking exactly
// one buffer slot from ctx. It waits for the whole round to finish before
// reclaiming every slot at once with ctx.Reset — ScanContext is a bump
// allocator with no per-scan free, so slots can only be reused in lockstep
// like this.
func (w *workload) driveRounds(g *grid.Grid, man manifest.Manifest, appLog *logging.JSONLogger) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for {
		select {
		case <-w.stopChan:
			return
		default:
		}

		var wg sync.WaitGroup
		for i := 0; i < w.workers; i++ {
			wg.Add(1)
			go func(seed int64) {
				defer wg.Done()
				w.runOneScan(g, man, appLog, rand.New(rand.NewSource(seed)))
			}(rng.Int63())
		}
		wg.Wait()

		w.ctx.Reset()
		time.Sleep(150 * time.Millisecond)
	}
}

func (w *workload) runOneScan(g *grid.Grid, man manifest.Manifest, appLog *logging.JSONLogger, rng *rand.Rand) {
	lo := rng.Intn(28000)
	hi := lo + 1 + rng.Intn(2000)
	dir := manifest.Ascending
	if rng.Intn(2) == 0 {
		dir = manifest.Descending
	}

	session := scan.NewSession(appLog, w.metrics)
	w.active.Add(1)
	w.metrics.SetScansActive(int(w.active.Load()))

	session.Seek(w.ctx, g, man, w.levelCount, noMutable{}, noImmutable{}, manifest.SnapshotLatest,
		intKey(lo), intKey(hi), dir)

	drainScan(session)

	session.Reset()
	w.active.Add(-1)
	w.metrics.SetScansActive(int(w.active.Load()))
}

// drainScan calls Fetch repeatedly until the callback delivers a nil value,
// which marks the end of the scan (or an error, which also ends the loop).
func drainScan(session *scan.Session) {
	for {
		done := make(chan struct{})
		var val *table.Value
		session.Fetch(func(v *table.Value, err error) {
			val = v
			close(done)
		})
		<-done
		if val == nil {
			return
		}
	}
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type model struct {
	w         *workload
	width     int
	startTime time.Time
	help      help.Model
	keys      keyMap
}

func newModel(w *workload) model {
	return model{w: w, startTime: time.Now(), help: help.New(), keys: keys}
}

func (m model) Init() tea.Cmd { return tickCmd() }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
	case tickMsg:
		return m, tickCmd()
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			close(m.w.stopChan)
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m model) View() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("rangescan — scan buffer monitor"))
	s.WriteString("\n\n")

	used := m.w.ctx.Used()
	max := m.w.ctx.ScanMax()
	s.WriteString(boxStyle.Render(fmt.Sprintf(
		"Buffer pool\n───────────\n%s\n%d / %d slots in use",
		renderBar(used, max, 30), used, max,
	)))
	s.WriteString("\n\n")

	active := testutil.ToFloat64(m.w.metrics.ScansActive)
	delivered := testutil.ToFloat64(m.w.metrics.ValuesDeliveredTotal)
	uptime := time.Since(m.startTime).Round(time.Second)
	s.WriteString(boxStyle.Render(fmt.Sprintf(
		"Scan activity\n─────────────\nActive scans:     %.0f\nValues delivered: %.0f\nUptime:           %s",
		active, delivered, uptime,
	)))

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
	return s.String()
}

func renderBar(used, max, width int) string {
	if max == 0 {
		max = 1
	}
	filled := used * width / max
	if filled > width {
		filled = width
	}
	return barFilledStyle.Render(strings.Repeat("█", filled)) + barEmptyStyle.Render(strings.Repeat("░", width-filled))
}

func seedSyntheticTree(backend *grid.MemoryBackend, man *manifest.InMemory, levelCount int) {
	addr := uint64(1)
	for level := 0; level < levelCount; level++ {
		base := level * 10000
		values := make([]table.Value, 0, 200)
		for i := 0; i < 200; i++ {
			k := base + i*50
			values = append(values, table.Value{Key: intKey(k), Payload: []byte(fmt.Sprintf("v%d", k))})
		}
		for i := 0; i < len(values); i += 8 {
			end := i + 8
			if end > len(values) {
				end = len(values)
			}
			block := values[i:end]
			raw, err := table.EncodeDataBlock(block)
			if err != nil {
				log.Fatalf("seed: encode data block: %v", err)
			}
			checksum := table.Compute(raw)
			backend.PutData(addr, raw)

			idx := &table.IndexBlock{Entries: []table.IndexEntry{
				{MaxKey: block[len(block)-1].Key, Address: addr, Checksum: checksum},
			}}
			idxRaw, err := table.EncodeIndexBlock(idx)
			if err != nil {
				log.Fatalf("seed: encode index block: %v", err)
			}
			idxAddr := addr + 1_000_000
			idxChecksum := table.Compute(idxRaw)
			backend.PutIndex(idxAddr, idxRaw)

			man.AddTable(level, &manifest.TableInfo{
				Address:  idxAddr,
				Checksum: idxChecksum,
				KeyMin:   block[0].Key,
				KeyMax:   block[len(block)-1].Key,
			})
			addr++
		}
	}
}

func intKey(n int) table.Key {
	return table.Key(fmt.Sprintf("%08d", n))
}

type noMutable struct{}

func (noMutable) SortIntoValues() []table.Value { return nil }

type noImmutable struct{}

func (noImmutable) Values() []table.Value          { return nil }
func (noImmutable) SnapshotMin() manifest.Snapshot { return 0 }
func (noImmutable) Populated() bool                { return false }

func main() {
	configPath := flag.String("config", "", "path to a ScanEngineConfig YAML file (defaults to a small local tree)")
	flag.Parse()

	cfg := config.DefaultScanEngineConfig()
	cfg.LevelCount = 3
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("scanmon: %v", err)
		}
		cfg = loaded
	}

	appLog := logging.NewJSONLogger(os.Stdout, logging.ErrorLevel)
	w := newWorkload(cfg, appLog)

	p := tea.NewProgram(newModel(w), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("scanmon: %v", err)
	}
}
