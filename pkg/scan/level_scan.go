package scan

import (
	"github.com/kvscan/rangescan/pkg/manifest"
	"github.com/kvscan/rangescan/pkg/table"
)

type levelState int

const (
	levelLoad levelState = iota
	levelNext
	levelCurrent
	levelEof
)

// LevelScan is one level's scan state: which LevelIterator is driving it,
// which buffer it reads into, and a cursor over the currently loaded data
// block
type LevelScan struct {
	iter *LevelIterator
	buf  *LevelBuffer

	keyMin, keyMax table.Key
	dir            manifest.Direction

	state  levelState
	cursor *Cursor[table.Value]
	err    error
}

// NewLevelScan builds a LevelScan in the initial Load state.
func NewLevelScan(iter *LevelIterator, buf *LevelBuffer, keyMin, keyMax table.Key, dir manifest.Direction) *LevelScan {
	return &LevelScan{iter: iter, buf: buf, keyMin: keyMin, keyMax: keyMax, dir: dir, state: levelLoad}
}

// NeedsLoad reports whether Fetch must drive this level's iterator before
// the merge can make progress.
func (ls *LevelScan) NeedsLoad() bool {
	return ls.state == levelLoad
}

// Load drives one step of the underlying LevelIterator. done is invoked
// after the resulting state transition, whether or not a block was read.
func (ls *LevelScan) Load(done func()) {
	ls.state = levelNext
	ls.iter.Next(ls.onIndex, func(db *table.DataBlock, err error) {
		ls.onData(db, err)
		done()
	})
}

func (ls *LevelScan) onIndex(ti *manifest.TableInfo, idx *table.IndexBlock) ([]uint64, []table.Checksum128) {
	boundaries := idx.MaxKeys()
	start, count := IndexRangeIn(boundaries, ls.keyMin, ls.keyMax)
	if count == 0 {
		return nil, nil
	}
	entries := idx.Entries[start : start+count]
	addrs := make([]uint64, count)
	checks := make([]table.Checksum128, count)
	for i, e := range entries {
		addrs[i] = e.Address
		checks[i] = e.Checksum
	}
	return addrs, checks
}

func (ls *LevelScan) onData(db *table.DataBlock, err error) {
	if err != nil {
		ls.err = err
		ls.state = levelEof
		return
	}
	if db == nil {
		ls.state = levelEof
		return
	}
	start, count := RangeIn(db.Values, valueKey, ls.keyMin, ls.keyMax)
	if count == 0 {
		// This block's index boundary overlapped [keyMin, keyMax] but none
		// of its values do (e.g. boundary 50 selected for range [26,30]
		// with keys {40,50}). Re-drive the iterator for the next block or
		// table instead of settling into a permanently empty cursor,
		// which Peek would report as streamEmpty forever.
		ls.state = levelLoad
		return
	}
	ls.cursor = NewCursor(db.Values, start, count, ls.dir)
	ls.state = levelCurrent
}

// Peek returns the current key without consuming it, or a stream state
// signal: Empty at Eof, and Drained in Load or Next — the level has no key
// until the next Fetch drives its iterator, so the merge reports Again.
func (ls *LevelScan) Peek() (table.Key, streamState) {
	switch ls.state {
	case levelEof:
		return nil, streamEmpty
	case levelCurrent:
		v, ok := ls.cursor.Get()
		if !ok {
			return nil, streamEmpty
		}
		return v.Key, streamReady
	case levelLoad, levelNext:
		return nil, streamDrained
	default:
		panic("scan: LevelScan.Peek called in an unknown state")
	}
}

// Pop returns the current value and advances the cursor, transitioning
// back to Load when the current data block is exhausted.
func (ls *LevelScan) Pop() table.Value {
	v, ok := ls.cursor.Get()
	if !ok {
		panic("scan: LevelScan.Pop called on an exhausted cursor")
	}
	if !ls.cursor.Move() {
		ls.state = levelLoad
	}
	return v
}

// Err returns the error that drove this level to Eof, if any.
func (ls *LevelScan) Err() error { return ls.err }

func valueKey(v table.Value) table.Key { return v.Key }
