package lsm

import (
	"sort"

	"github.com/kvscan/rangescan/pkg/manifest"
	"github.com/kvscan/rangescan/pkg/table"
)

// SortIntoValues returns a sorted snapshot of the memtable's entries as
// table.Value, satisfying scan.MutableSource. The returned slice is a
// fresh copy and is stable for the lifetime of any scan built over it,
// even as later Put/Delete calls mutate mt itself.
func (mt *MemTable) SortIntoValues() []table.Value {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	if !mt.sorted {
		sort.Strings(mt.keys)
		mt.sorted = true
	}

	values := make([]table.Value, len(mt.keys))
	for i, key := range mt.keys {
		e := mt.data[key]
		values[i] = table.Value{Key: []byte(key), Payload: e.Payload, Tombstone: e.Tombstone}
	}
	return values
}

// ImmutableSnapshot adapts the tree's immutable memtable (or its absence)
// into scan.ImmutableSource. This tree's write path has no snapshot/MVCC
// bookkeeping around a flush rotation, so SnapshotMinValue defaults to 0
// (always visible) — assigning a real snapshot id to "table became
// immutable" belongs to the write path, out of scope here.
type ImmutableSnapshot struct {
	Table            *MemTable
	SnapshotMinValue manifest.Snapshot
}

// Values implements scan.ImmutableSource.
func (s ImmutableSnapshot) Values() []table.Value {
	if s.Table == nil {
		return nil
	}
	return s.Table.SortIntoValues()
}

// SnapshotMin implements scan.ImmutableSource.
func (s ImmutableSnapshot) SnapshotMin() manifest.Snapshot {
	return s.SnapshotMinValue
}

// Populated implements scan.ImmutableSource.
func (s ImmutableSnapshot) Populated() bool {
	return s.Table != nil
}

// MutableSourceFor returns the tree's current mutable memtable, the
// scan.MutableSource a Scan.Seek needs.
func (lsm *LSMStorage) MutableSourceFor() *MemTable {
	lsm.mu.RLock()
	defer lsm.mu.RUnlock()
	return lsm.memTable
}

// ImmutableSourceFor returns the tree's current immutable memtable,
// wrapped as the scan.ImmutableSource a Scan.Seek needs.
func (lsm *LSMStorage) ImmutableSourceFor() ImmutableSnapshot {
	lsm.mu.RLock()
	defer lsm.mu.RUnlock()
	return ImmutableSnapshot{Table: lsm.immutableTable}
}
