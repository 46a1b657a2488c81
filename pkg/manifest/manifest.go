// Package manifest implements the snapshot-filtered table directory the
// scan engine's LevelIndexIterator consults. Tables on a
// given level are disjoint; the manifest answers "what is the next table,
// in scan direction, beyond some already-visited boundary, that overlaps
// this range and is visible at this snapshot".
//
// Grounded on dd0wney-graphdb's ListSSTables/sortTablesByID
// (pkg/lsm/compaction.go) for table bookkeeping, and on
// johnjamespj-BureauDB's Manifest (pkg/localstore/manifest.go) for the
// add/remove-under-lock shape — generalized here with snapshot visibility
// windows instead of a flat current-state file.
package manifest

import (
	"bytes"
	"sort"
	"sync"

	"github.com/kvscan/rangescan/pkg/table"
)

// Snapshot selects a consistent view of the manifest and data.
type Snapshot uint64

// SnapshotLatest is the sentinel selecting the most recent visible state.
const SnapshotLatest Snapshot = ^Snapshot(0)

// Direction of key traversal.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// TableInfo describes one SSTable visible under some snapshot window.
type TableInfo struct {
	Address     uint64
	Checksum    table.Checksum128
	KeyMin      table.Key
	KeyMax      table.Key
	SnapshotMin Snapshot // first snapshot this table is visible at
	SnapshotMax Snapshot // first snapshot it is no longer visible at; 0 = still live
	Bloom       *Bloom   // optional; see bloom.go — a probabilistic skip test
}

func (t *TableInfo) visibleAt(s Snapshot) bool {
	if s == SnapshotLatest {
		return t.SnapshotMax == 0
	}
	if t.SnapshotMin > s {
		return false
	}
	return t.SnapshotMax == 0 || s < t.SnapshotMax
}

func (t *TableInfo) overlaps(min, max table.Key) bool {
	return bytes.Compare(t.KeyMin, max) <= 0 && bytes.Compare(t.KeyMax, min) >= 0
}

// mayContainRange reports whether the table may hold a key in [min, max]
// according to its bloom filter; false means the table can be skipped
// without a block read. The filter is consulted only when min == max; for
// any wider range, or a table without a filter, it returns true.
// NextTable calls it for every candidate table.
func (t *TableInfo) mayContainRange(min, max table.Key) bool {
	if t.Bloom == nil {
		return true
	}
	if !bytes.Equal(min, max) {
		return true // filter only helps point lookups; scans fall back to overlap test
	}
	return t.Bloom.MayContain(min)
}

// Manifest is the contract the scan engine requires of the table directory.
type Manifest interface {
	// NextTable returns the next table for level, visible at snapshot,
	// overlapping [min, max], strictly beyond exclusive in direction.
	// hasExclusive is false on the first call for a given iterator.
	NextTable(level int, snapshot Snapshot, min, max table.Key, exclusive table.Key, hasExclusive bool, dir Direction) (*TableInfo, bool)
}

// InMemory is a simple, lock-protected Manifest used by the scan engine's
// tests and by any caller that keeps its table directory resident in
// memory (the compaction/write path that populates it is out of scope).
type InMemory struct {
	mu     sync.RWMutex
	levels map[int][]*TableInfo // kept sorted by KeyMin ascending, per level
}

// NewInMemory returns an empty manifest.
func NewInMemory() *InMemory {
	return &InMemory{levels: make(map[int][]*TableInfo)}
}

// AddTable registers a table at a level. Tables on one level must be
// disjoint; callers (tests, fixtures) are responsible for that invariant.
func (m *InMemory) AddTable(level int, t *TableInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[level] = append(m.levels[level], t)
	sort.Slice(m.levels[level], func(i, j int) bool {
		return bytes.Compare(m.levels[level][i].KeyMin, m.levels[level][j].KeyMin) < 0
	})
}

// RetireTable marks a table invisible from snapshot onward (a compaction
// replacing it, out of scope for this package, would call this).
func (m *InMemory) RetireTable(level int, address uint64, snapshot Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.levels[level] {
		if t.Address == address {
			t.SnapshotMax = snapshot
			return
		}
	}
}

func (m *InMemory) NextTable(level int, snapshot Snapshot, min, max table.Key, exclusive table.Key, hasExclusive bool, dir Direction) (*TableInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tables := m.levels[level]
	if dir == Ascending {
		var best *TableInfo
		for _, t := range tables {
			if !t.visibleAt(snapshot) || !t.overlaps(min, max) || !t.mayContainRange(min, max) {
				continue
			}
			if hasExclusive && bytes.Compare(t.KeyMax, exclusive) <= 0 {
				continue
			}
			if best == nil || bytes.Compare(t.KeyMin, best.KeyMin) < 0 {
				best = t
			}
		}
		return best, best != nil
	}

	var best *TableInfo
	for _, t := range tables {
		if !t.visibleAt(snapshot) || !t.overlaps(min, max) || !t.mayContainRange(min, max) {
			continue
		}
		if hasExclusive && bytes.Compare(t.KeyMin, exclusive) >= 0 {
			continue
		}
		if best == nil || bytes.Compare(t.KeyMax, best.KeyMax) > 0 {
			best = t
		}
	}
	return best, best != nil
}
