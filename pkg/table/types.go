// Package table defines the on-disk layout of index and data blocks for one
// SSTable: a sparse per-table index (one entry per data block, carrying the
// block's maximum key, its address, and a checksum) followed by the data
// blocks themselves. Layout is grounded on dd0wney-graphdb's sstable.go
// header comment ([Header] | [Data Block] | [Index Block] | [Footer]);
// this package narrows that to exactly what the scan engine's
// LevelIterator needs to walk a table.
package table

// Key is a totally ordered byte string, compared via bytes.Compare.
type Key = []byte

// Value carries a key, a payload, and a tombstone marker. The scan core
// never interprets tombstones; it is the caller's job to filter them.
type Value struct {
	Key       Key
	Payload   []byte
	Tombstone bool
}

// IndexEntry is one row of a table's index block: the maximum key of the
// data block it points at, plus the block's on-disk address and checksum.
type IndexEntry struct {
	MaxKey   Key
	Address  uint64
	Checksum Checksum128
}

// IndexBlock is a per-table, per-level-scan-visible sorted sequence of
// IndexEntry, one per data block, ascending by MaxKey.
type IndexBlock struct {
	Entries []IndexEntry
}

// DataBlock is a sorted run of Values, stored contiguously on disk.
type DataBlock struct {
	Values []Value
}

// MaxKeys returns the boundary keys used by range refinement.
func (b *IndexBlock) MaxKeys() []Key {
	keys := make([]Key, len(b.Entries))
	for i, e := range b.Entries {
		keys[i] = e.MaxKey
	}
	return keys
}
