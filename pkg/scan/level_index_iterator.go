package scan

import (
	"fmt"

	"github.com/kvscan/rangescan/pkg/grid"
	"github.com/kvscan/rangescan/pkg/manifest"
	"github.com/kvscan/rangescan/pkg/table"
)

// LevelIndexIterator yields the sequence of (TableInfo, IndexBlock) for one
// (level, snapshot, keyMin, keyMax, direction), consulting the manifest for
// the next table and issuing one index-block read per table
type LevelIndexIterator struct {
	manifest manifest.Manifest
	grid     *grid.Grid
	slot     int
	level    int
	snapshot manifest.Snapshot
	keyMin   table.Key
	keyMax   table.Key
	dir      manifest.Direction

	keyExclusive table.Key
	hasExclusive bool
}

// NewLevelIndexIterator starts an iterator for one level. slot identifies
// this iterator's grid buffer slot (the owning LevelIterator's level
// index), purely for routing read completions back to the right callback.
func NewLevelIndexIterator(m manifest.Manifest, g *grid.Grid, slot, level int, snapshot manifest.Snapshot, keyMin, keyMax table.Key, dir manifest.Direction) *LevelIndexIterator {
	return &LevelIndexIterator{
		manifest: m,
		grid:     g,
		slot:     slot,
		level:    level,
		snapshot: snapshot,
		keyMin:   keyMin,
		keyMax:   keyMax,
		dir:      dir,
	}
}

// IndexCallback receives the next table and its (scan-owned) index block,
// or (nil, nil, nil) at end-of-level, or a non-nil err on a storage
// failure. The block is stable only for the duration of the callback's
// caller's processing of the current table (it is overwritten by the next
// call to Next).
type IndexCallback func(ti *manifest.TableInfo, idx *table.IndexBlock, err error)

// Next asks the manifest for the next overlapping table beyond the last
// one yielded and, if found, reads its index block into dst before
// invoking cb. If no table remains, cb fires on the grid's next tick with
// (nil, nil, nil) — never synchronously within Next's own frame.
func (it *LevelIndexIterator) Next(dst *table.IndexBlock, cb IndexCallback) {
	ti, ok := it.manifest.NextTable(it.level, it.snapshot, it.keyMin, it.keyMax, it.keyExclusive, it.hasExclusive, it.dir)
	if !ok {
		it.grid.OnNextTick(it.slot, func(int) {
			cb(nil, nil, nil)
		})
		return
	}

	if it.dir == manifest.Ascending {
		it.keyExclusive = ti.KeyMax
	} else {
		it.keyExclusive = ti.KeyMin
	}
	it.hasExclusive = true

	it.grid.ReadBlock(it.slot, ti.Address, ti.Checksum, grid.IndexBlockKind, func(_ int, data []byte, err error) {
		if err != nil {
			cb(nil, nil, fmt.Errorf("scan: level %d index read at table %d: %w", it.level, ti.Address, err))
			return
		}
		decoded, err := table.DecodeIndexBlock(data)
		if err != nil {
			cb(nil, nil, fmt.Errorf("scan: level %d decode index at table %d: %w", it.level, ti.Address, err))
			return
		}
		*dst = *decoded
		cb(ti, dst, nil)
	})
}
