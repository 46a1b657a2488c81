package lsm

import (
	"sync"
	"sync/atomic"
)

// LSMStorage is the write side of the tree: a mutable memtable that
// accepts Put/Delete, and the one immutable memtable being handed off to
// the scan engine while a fresh mutable memtable takes over. Turning a
// full memtable into a durable on-disk table is out of scope here — that
// belongs to a compaction pipeline this package does not implement — so
// rotation just swaps the memtable pointers in place, with nothing
// written to disk.
type LSMStorage struct {
	mu sync.RWMutex

	memTable       *MemTable
	immutableTable *MemTable // full, awaiting the scan engine's ImmutableSource read

	dataDir      string
	memTableSize int

	closed bool

	stats LSMStats
}

// LSMStats tracks memtable write/read activity using lock-free atomic
// counters for the high-frequency operations.
type LSMStats struct {
	WriteCount   atomic.Int64
	ReadCount    atomic.Int64
	RotateCount  atomic.Int64
	BytesWritten atomic.Int64
}

// LSMOptions configures LSM storage.
type LSMOptions struct {
	DataDir      string
	MemTableSize int // bytes, default 4MB
}

// DefaultLSMOptions returns default LSM configuration.
func DefaultLSMOptions(dataDir string) LSMOptions {
	return LSMOptions{
		DataDir:      dataDir,
		MemTableSize: 4 * 1024 * 1024,
	}
}

// LSMStatsSnapshot is a point-in-time snapshot of LSM statistics.
type LSMStatsSnapshot struct {
	WriteCount    int64
	ReadCount     int64
	RotateCount   int64
	BytesWritten  int64
	MemTableSize  int
	ImmutableSize int
	HasImmutable  bool
}
