// Command benchmark-lsm builds a multi-level table set on disk with
// FileBackend, then benchmarks Scan throughput reading it back through
// MmapBackend. It is the range-scan counterpart to a Put/Get/Scan
// throughput harness.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/kvscan/rangescan/pkg/grid"
	"github.com/kvscan/rangescan/pkg/manifest"
	"github.com/kvscan/rangescan/pkg/scan"
	"github.com/kvscan/rangescan/pkg/table"
)

func main() {
	entries := flag.Int("entries", 50000, "Number of keys across all levels")
	levels := flag.Int("levels", 4, "Number of LSM levels to spread keys over")
	tableSize := flag.Int("table-size", 2000, "Keys per table")
	blockSize := flag.Int("block-size", 64, "Keys per data block")
	scans := flag.Int("scans", 200, "Number of range scans to run")
	scanWidth := flag.Int("scan-width", 500, "Approximate key-space width per scan")
	flag.Parse()

	fmt.Printf("🔥 rangescan - Range Scan Benchmark\n")
	fmt.Printf("====================================\n\n")
	fmt.Printf("Configuration:\n")
	fmt.Printf("  Entries: %d\n", *entries)
	fmt.Printf("  Levels: %d\n", *levels)
	fmt.Printf("  Table size: %d\n", *tableSize)
	fmt.Printf("  Block size: %d\n\n", *blockSize)

	dir := "./data/benchmark-scan"
	os.RemoveAll(dir)

	fmt.Printf("📂 Writing tables...\n")
	writeBackend, err := grid.NewFileBackend(dir)
	if err != nil {
		log.Fatalf("open block dir: %v", err)
	}
	man := manifest.NewInMemory()

	start := time.Now()
	nextAddr := uint64(1)
	perLevel := *entries / *levels
	for level := 0; level < *levels; level++ {
		keys := make([]int, perLevel)
		for i := range keys {
			keys[i] = level*(*entries) + i // disjoint key ranges per level, ascending
		}
		for i := 0; i < len(keys); i += *tableSize {
			end := i + *tableSize
			if end > len(keys) {
				end = len(keys)
			}
			values := make([]table.Value, end-i)
			for j, k := range keys[i:end] {
				values[j] = table.Value{Key: intKey(k), Payload: []byte(fmt.Sprintf("value-%d", k))}
			}
			addr := nextAddr
			nextAddr += uint64(len(values)/(*blockSize) + 2)
			if err := writeTable(writeBackend, man, level, addr, values, *blockSize); err != nil {
				log.Fatalf("write table: %v", err)
			}
		}
	}
	fmt.Printf("✅ Wrote %d entries across %d levels in %v\n\n", *entries, *levels, time.Since(start))

	readBackend := grid.NewMmapBackend(dir)
	defer readBackend.Close()

	loop := grid.NewLoop(256)
	g := grid.New(readBackend, loop)
	stop := make(chan struct{})
	go loop.Run(stop)
	defer close(stop)

	fmt.Printf("🔍 Benchmark: Range Scans\n")
	ctx := scan.NewScanContext(4, *levels)
	start = time.Now()
	totalResults := 0

	for i := 0; i < *scans; i++ {
		lo := rand.Intn(*entries - *scanWidth)
		hi := lo + *scanWidth

		var s scan.Scan
		s.Seek(ctx, g, man, *levels, noMutable{}, noImmutable{}, manifest.SnapshotLatest,
			intKey(lo), intKey(hi), manifest.Ascending)

		for {
			val, err := fetchOne(&s)
			if err != nil {
				log.Fatalf("scan fetch: %v", err)
			}
			if val == nil {
				break
			}
			totalResults++
		}
		s.Reset()
		ctx.Reset()

		if (i+1)%50 == 0 {
			fmt.Printf("  Completed %d scans...\n", i+1)
		}
	}

	duration := time.Since(start)
	fmt.Printf("✅ Completed %d scans in %v\n", *scans, duration)
	fmt.Printf("  📊 Average results per scan: %d\n", totalResults/(*scans))
	fmt.Printf("  🚀 Throughput: %.0f scans/sec\n", float64(*scans)/duration.Seconds())
}

func fetchOne(s *scan.Scan) (*table.Value, error) {
	type result struct {
		val *table.Value
		err error
	}
	ch := make(chan result, 1)
	s.Fetch(func(val *table.Value, err error) { ch <- result{val, err} })
	r := <-ch
	return r.val, r.err
}

func writeTable(backend *grid.FileBackend, man *manifest.InMemory, level int, addrBase uint64, values []table.Value, blockSize int) error {
	var entries []table.IndexEntry
	addr := addrBase
	for i := 0; i < len(values); i += blockSize {
		end := i + blockSize
		if end > len(values) {
			end = len(values)
		}
		block := values[i:end]
		raw, err := table.EncodeDataBlock(block)
		if err != nil {
			return err
		}
		checksum := table.Compute(raw)
		if err := backend.Write(addr, grid.DataBlockKind, raw); err != nil {
			return err
		}
		entries = append(entries, table.IndexEntry{MaxKey: block[len(block)-1].Key, Address: addr, Checksum: checksum})
		addr++
	}

	idx := &table.IndexBlock{Entries: entries}
	idxRaw, err := table.EncodeIndexBlock(idx)
	if err != nil {
		return err
	}
	idxAddr := addr
	idxChecksum := table.Compute(idxRaw)
	if err := backend.Write(idxAddr, grid.IndexBlockKind, idxRaw); err != nil {
		return err
	}

	man.AddTable(level, &manifest.TableInfo{
		Address:  idxAddr,
		Checksum: idxChecksum,
		KeyMin:   values[0].Key,
		KeyMax:   values[len(values)-1].Key,
	})
	return nil
}

func intKey(n int) table.Key {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(n))
	return table.Key(buf)
}

type noMutable struct{}

func (noMutable) SortIntoValues() []table.Value { return nil }

type noImmutable struct{}

func (noImmutable) Values() []table.Value           { return nil }
func (noImmutable) SnapshotMin() manifest.Snapshot { return 0 }
func (noImmutable) Populated() bool                 { return false }
