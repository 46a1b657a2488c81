package scan

import (
	"bytes"
	"fmt"

	"github.com/kvscan/rangescan/pkg/grid"
	"github.com/kvscan/rangescan/pkg/manifest"
	"github.com/kvscan/rangescan/pkg/table"
)

type scanState int

const (
	scanIdle scanState = iota
	scanSeeking
	scanFetching
)

// Callback receives the next value (or nil at end-of-scan) or a non-nil
// error, exactly once per Fetch call, asynchronously relative to Fetch's
// own stack frame
type Callback func(value *table.Value, err error)

// Scan owns one LevelScan per LSM level plus two memtable streams, drives
// the k-way merge, and exposes the Seek/Fetch/Reset contract
// A Scan is not safe for concurrent use; it is driven entirely from the
// single event-loop goroutine that owns its Grid.
type Scan struct {
	ctx *ScanContext
	buf *ScanBuffer
	grd *grid.Grid

	levels    []*LevelScan
	mutable   *memStream
	immutable *memStream
	merger    *merge

	keyMin, keyMax table.Key
	dir            manifest.Direction

	state   scanState
	pending int
	cb      Callback
	err     error
}

// Seek primes a Scan over [keyMin, keyMax] at snapshot, starting every
// level's LevelIterator against man and reading memtable state through
// mutableSrc/immutableSrc. Requires state == Idle and keyMin <= keyMax;
// either violation is a programmer error that panics
func (s *Scan) Seek(ctx *ScanContext, g *grid.Grid, man manifest.Manifest, levelCount int, mutableSrc MutableSource, immutableSrc ImmutableSource, snapshot manifest.Snapshot, keyMin, keyMax table.Key, dir manifest.Direction) {
	if s.state != scanIdle {
		panic("scan: Seek called while not Idle")
	}
	if bytes.Compare(keyMin, keyMax) > 0 {
		panic("scan: Seek requires keyMin <= keyMax")
	}

	s.ctx = ctx
	s.buf = ctx.GetBuffer()
	s.grd = g
	s.keyMin, s.keyMax, s.dir = keyMin, keyMax, dir
	s.err = nil

	s.mutable = newMemStream(mutableSrc.SortIntoValues(), keyMin, keyMax, dir)

	if immutableSrc != nil && immutableSrc.Populated() && immutableSrc.SnapshotMin() <= snapshot {
		s.immutable = newMemStream(immutableSrc.Values(), keyMin, keyMax, dir)
	} else {
		s.immutable = newMemStream(nil, keyMin, keyMax, dir)
	}

	s.levels = make([]*LevelScan, levelCount)
	for lvl := 0; lvl < levelCount; lvl++ {
		idxIter := NewLevelIndexIterator(man, g, lvl, lvl, snapshot, keyMin, keyMax, dir)
		it := NewLevelIterator(idxIter, g, lvl, dir, &s.buf.Levels[lvl])
		s.levels[lvl] = NewLevelScan(it, &s.buf.Levels[lvl], keyMin, keyMax, dir)
	}

	s.merger = nil
	s.state = scanSeeking
}

// Fetch issues block reads for any level in Load state, then once all
// outstanding I/O for this call has completed, pops the merge and
// delivers exactly one value (or end-of-scan) to cb. Requires state ==
// Seeking.
func (s *Scan) Fetch(cb Callback) {
	if s.state != scanSeeking {
		panic("scan: Fetch called while not Seeking")
	}
	s.cb = cb
	s.state = scanFetching
	s.pending = 1 // epilogue, decremented once every Load has been issued

	for _, ls := range s.levels {
		if !ls.NeedsLoad() {
			continue
		}
		s.pending++
		ls.Load(func() {
			s.pending--
			if s.pending == 0 {
				s.onFetch()
			}
		})
	}

	s.pending--
	if s.pending == 0 {
		s.grd.OnNextTick(0, func(int) { s.onFetch() })
	}
}

func (s *Scan) onFetch() {
	s.state = scanSeeking

	for _, ls := range s.levels {
		if err := ls.Err(); err != nil && s.err == nil {
			s.err = err
		}
	}
	if s.err != nil {
		cb := s.cb
		s.cb = nil
		err := s.err
		cb(nil, err)
		return
	}

	if s.merger == nil {
		streams := make([]stream, 0, len(s.levels)+2)
		for _, ls := range s.levels {
			streams = append(streams, ls)
		}
		streams = append(streams, s.mutable, s.immutable)
		s.merger = newMerge(streams, len(s.levels), s.dir)
	}

	v, outcome := s.merger.pop()
	switch outcome {
	case popValue:
		cb := s.cb
		s.cb = nil
		cb(&v, nil)
	case popEnd:
		cb := s.cb
		s.cb = nil
		cb(nil, nil)
	case popAgain:
		s.Fetch(s.cb)
	default:
		panic(fmt.Sprintf("scan: unreachable merge outcome %d", outcome))
	}
}

// Reset discards the merge iterator and returns the scan to Idle. Callers
// must not retain values delivered by this scan's callback past Reset —
// they reference scan-owned buffers that Reset invalidates.
func (s *Scan) Reset() {
	if s.state != scanSeeking {
		panic("scan: Reset called while not Seeking")
	}
	s.merger = nil
	s.levels = nil
	s.mutable = nil
	s.immutable = nil
	s.buf = nil
	s.err = nil
	s.state = scanIdle
}
