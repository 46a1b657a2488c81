package scan

import (
	"fmt"

	"github.com/kvscan/rangescan/pkg/grid"
	"github.com/kvscan/rangescan/pkg/manifest"
	"github.com/kvscan/rangescan/pkg/table"
)

// OnIndex is invoked once per index block obtained from the underlying
// LevelIndexIterator; the caller filters it to the data-block addresses
// and checksums overlapping the scan range (typically via IndexRangeIn).
type OnIndex func(ti *manifest.TableInfo, idx *table.IndexBlock) ([]uint64, []table.Checksum128)

// OnData is invoked once per data block returned for the current table,
// in direction order, and exactly once more with (nil, nil) at the end of
// the level. A non-nil err short-circuits the walk.
type OnData func(db *table.DataBlock, err error)

// LevelIterator produces the stream of data blocks inside one level that
// may contain keys in [keyMin, keyMax]. It composes a LevelIndexIterator
// (which walks tables) with a per-table data-block reader
type LevelIterator struct {
	idxIter *LevelIndexIterator
	grid    *grid.Grid
	slot    int
	dir     manifest.Direction
	buf     *LevelBuffer

	addrs  []uint64
	checks []table.Checksum128
	pos    int
}

// NewLevelIterator builds a LevelIterator over idxIter, copying blocks
// into buf (the owning LevelScan's buffer pair).
func NewLevelIterator(idxIter *LevelIndexIterator, g *grid.Grid, slot int, dir manifest.Direction, buf *LevelBuffer) *LevelIterator {
	return &LevelIterator{idxIter: idxIter, grid: g, slot: slot, dir: dir, buf: buf}
}

// Next advances the walk by exactly one data block (or end-of-level), and
// — when the current table's remaining address list is exhausted — first
// advances LevelIndexIterator to the next table, refiltering via onIndex.
// Tables whose filtered address list is empty are skipped transparently.
func (li *LevelIterator) Next(onIndex OnIndex, onData OnData) {
	if li.pos < len(li.addrs) {
		li.readNext(onData)
		return
	}

	li.idxIter.Next(&li.buf.IndexBlock, func(ti *manifest.TableInfo, idx *table.IndexBlock, err error) {
		if err != nil {
			onData(nil, err)
			return
		}
		if ti == nil {
			onData(nil, nil)
			return
		}

		addrs, checks := onIndex(ti, idx)
		if len(addrs) != len(checks) {
			onData(nil, fmt.Errorf("scan: onIndex returned mismatched addresses (%d) and checksums (%d)", len(addrs), len(checks)))
			return
		}
		li.addrs = addrs
		li.checks = checks
		li.pos = 0

		if len(li.addrs) == 0 {
			// This table's index had nothing overlapping the range;
			// try the next table without surfacing a spurious callback.
			li.Next(onIndex, onData)
			return
		}
		li.readNext(onData)
	})
}

func (li *LevelIterator) readNext(onData OnData) {
	i := li.pos
	if li.dir == manifest.Descending {
		i = len(li.addrs) - 1 - li.pos
	}
	addr := li.addrs[i]
	checksum := li.checks[i]
	li.pos++

	li.grid.ReadBlock(li.slot, addr, checksum, grid.DataBlockKind, func(_ int, data []byte, err error) {
		if err != nil {
			onData(nil, fmt.Errorf("scan: data read at address %d: %w", addr, err))
			return
		}
		decoded, err := table.DecodeDataBlock(data)
		if err != nil {
			onData(nil, fmt.Errorf("scan: decode data block at address %d: %w", addr, err))
			return
		}
		li.buf.DataBlock = *decoded
		onData(&li.buf.DataBlock, nil)
	})
}
