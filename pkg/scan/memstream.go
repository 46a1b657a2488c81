package scan

import (
	"github.com/kvscan/rangescan/pkg/manifest"
	"github.com/kvscan/rangescan/pkg/table"
)

// MutableSource is the contract the scan engine requires of the mutable
// memtable: a sorted view of its values, stable for the scan's
// lifetime. The underlying structure — skip list, B-tree, sorted array —
// is left to the implementation; pkg/lsm's MemTable.SortIntoValues
// satisfies this.
type MutableSource interface {
	SortIntoValues() []table.Value
}

// ImmutableSource is the contract required of the immutable memtable: its
// values, the snapshot from which it becomes visible, and whether it is
// currently populated at all (a tree with no pending rotation has none).
type ImmutableSource interface {
	Values() []table.Value
	SnapshotMin() manifest.Snapshot
	Populated() bool
}

// memStream adapts a sorted []table.Value into the peek/pop stream
// interface the k-way merge drives. Mutable and immutable tables never do
// I/O, so Drained is unreachable here — only Ready or Empty
type memStream struct {
	cursor *Cursor[table.Value]
	empty  bool
}

func newMemStream(values []table.Value, keyMin, keyMax table.Key, dir manifest.Direction) *memStream {
	if len(values) == 0 {
		return &memStream{empty: true}
	}
	start, count := RangeIn(values, valueKey, keyMin, keyMax)
	if count == 0 {
		return &memStream{empty: true}
	}
	return &memStream{cursor: NewCursor(values, start, count, dir)}
}

func (m *memStream) Peek() (table.Key, streamState) {
	if m.empty {
		return nil, streamEmpty
	}
	v, ok := m.cursor.Get()
	if !ok {
		return nil, streamEmpty
	}
	return v.Key, streamReady
}

func (m *memStream) Pop() table.Value {
	v, ok := m.cursor.Get()
	if !ok {
		panic("scan: memStream.Pop called on an exhausted cursor")
	}
	m.cursor.Move()
	return v
}
