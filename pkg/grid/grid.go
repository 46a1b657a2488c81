// Package grid implements the async storage/event-loop contract the scan
// engine's block I/O collaborator relies on: read_block and on_next_tick,
// both invoking their callback on "the event loop" rather than
// synchronously in the caller's frame.
//
// On-disk table reads still ultimately go through mutexes and blocking
// os.File calls; this package translates the TigerBeetle-style callback
// contract the idiomatic Go way: a dedicated Loop goroutine drains a task
// queue, and each Grid backend does its actual (possibly blocking) I/O on
// its own goroutine, posting the result back onto the Loop so every
// callback still executes serialized, on one thread, and never inside the
// call stack that requested it.
package grid

import (
	"fmt"
	"time"

	"github.com/kvscan/rangescan/pkg/table"
)

// BlockKind distinguishes index blocks from data blocks.
type BlockKind int

const (
	IndexBlockKind BlockKind = iota
	DataBlockKind
)

func (k BlockKind) String() string {
	if k == IndexBlockKind {
		return "index"
	}
	return "data"
}

// Backend performs the actual (possibly blocking) fetch of one block's
// on-disk bytes. Implementations: FileBackend, MmapBackend, S3Backend,
// MemoryBackend (tests).
type Backend interface {
	Fetch(address uint64, kind BlockKind) ([]byte, error)
}

// Loop is a minimal single-threaded cooperative scheduler: tasks posted to
// it run serially, on whichever goroutine calls Run, in FIFO order. It is
// the Go stand-in for "the event loop" every callback is assumed to fire
// on.
type Loop struct {
	tasks chan func()
}

// NewLoop creates a Loop with the given pending-task capacity.
func NewLoop(capacity int) *Loop {
	if capacity <= 0 {
		capacity = 256
	}
	return &Loop{tasks: make(chan func(), capacity)}
}

// Post enqueues fn to run on the loop. Safe to call from any goroutine.
func (l *Loop) Post(fn func()) {
	l.tasks <- fn
}

// Run drains posted tasks until stop is closed. Intended to be the only
// goroutine that ever executes scan-engine callbacks.
func (l *Loop) Run(stop <-chan struct{}) {
	for {
		select {
		case fn := <-l.tasks:
			fn()
		case <-stop:
			return
		}
	}
}

// RunOne drains exactly one pending task, blocking until one is posted or
// stop fires. Used by tests driving the loop step by step.
func (l *Loop) RunOne(stop <-chan struct{}) bool {
	select {
	case fn := <-l.tasks:
		fn()
		return true
	case <-stop:
		return false
	}
}

// BlockReadRecorder receives one observation per completed ReadBlock call.
// Implemented by pkg/scanmetrics.Registry; nil by default.
type BlockReadRecorder interface {
	RecordBlockRead(kind string, err error, duration time.Duration)
}

// Grid is the concrete implementation of the read_block/on_next_tick
// contract, backed by a pluggable Backend and dispatching completions
// through a Loop.
type Grid struct {
	backend  Backend
	loop     *Loop
	recorder BlockReadRecorder
}

// New wires a Backend to a Loop.
func New(backend Backend, loop *Loop) *Grid {
	return &Grid{backend: backend, loop: loop}
}

// SetRecorder attaches a BlockReadRecorder that observes every ReadBlock
// call's latency and outcome. Pass nil to detach.
func (g *Grid) SetRecorder(recorder BlockReadRecorder) {
	g.recorder = recorder
}

// ReadBlock asynchronously fetches the block at (address, checksum, kind),
// verifies its checksum, and invokes onDone(slot, data, err) on the loop.
// data is nil when err != nil.
func (g *Grid) ReadBlock(slot int, address uint64, checksum table.Checksum128, kind BlockKind, onDone func(slot int, data []byte, err error)) {
	go func() {
		start := time.Now()
		data, err := g.backend.Fetch(address, kind)
		if err == nil && !table.Verify(data, checksum) {
			err = fmt.Errorf("grid: checksum mismatch reading %s block at address %d", kind, address)
			data = nil
		}
		if g.recorder != nil {
			g.recorder.RecordBlockRead(kind.String(), err, time.Since(start))
		}
		g.loop.Post(func() { onDone(slot, data, err) })
	}()
}

// OnNextTick schedules onDone(slot) on the next loop iteration, with no
// I/O. Used by LevelIndexIterator to signal "no more tables" without
// reentering the caller synchronously.
func (g *Grid) OnNextTick(slot int, onDone func(slot int)) {
	g.loop.Post(func() { onDone(slot) })
}
