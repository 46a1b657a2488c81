package lsm

import (
	"fmt"
	"os"
)

// NewLSMStorage creates a new LSM storage engine. dataDir is created if
// missing but otherwise unused — durable on-disk tables are out of scope
// for this package; the scan engine reads on-disk levels through
// pkg/grid/pkg/manifest directly, keyed however the caller populated them.
func NewLSMStorage(opts LSMOptions) (*LSMStorage, error) {
	if err := os.MkdirAll(opts.DataDir, 0755); err != nil {
		return nil, err
	}

	return &LSMStorage{
		memTable:     NewMemTable(opts.MemTableSize),
		dataDir:      opts.DataDir,
		memTableSize: opts.MemTableSize,
	}, nil
}

// Put writes a key-value pair into the mutable memtable, rotating it into
// the immutable slot once full and the immutable slot is empty.
func (lsm *LSMStorage) Put(key, value []byte) error {
	lsm.mu.Lock()

	if err := lsm.memTable.Put(key, value); err != nil {
		lsm.mu.Unlock()
		return err
	}

	lsm.stats.WriteCount.Add(1)
	lsm.stats.BytesWritten.Add(int64(len(key) + len(value)))

	needsRotate := lsm.memTable.IsFull()
	lsm.mu.Unlock()

	if needsRotate {
		lsm.rotate()
	}

	return nil
}

// rotate swaps the full mutable memtable into the immutable slot and
// starts a fresh mutable memtable. It never discards a pending immutable
// memtable: while the immutable slot is occupied it does nothing, and the
// mutable memtable keeps accepting writes past its size budget. Nothing in
// this package empties the immutable slot, so an LSMStorage rotates at
// most once.
func (lsm *LSMStorage) rotate() {
	lsm.mu.Lock()
	defer lsm.mu.Unlock()

	if !lsm.memTable.IsFull() || lsm.immutableTable != nil {
		return
	}
	lsm.immutableTable = lsm.memTable
	lsm.memTable = NewMemTable(lsm.memTableSize)
	lsm.stats.RotateCount.Add(1)
}

// Get retrieves a value by key, checking the mutable memtable then the
// immutable memtable.
func (lsm *LSMStorage) Get(key []byte) ([]byte, bool) {
	lsm.mu.RLock()
	defer lsm.mu.RUnlock()

	lsm.stats.ReadCount.Add(1)

	if entry, ok := lsm.memTable.Get(key); ok {
		return entry.Payload, true
	}
	if lsm.immutableTable != nil {
		if entry, ok := lsm.immutableTable.Get(key); ok {
			return entry.Payload, true
		}
	}
	return nil, false
}

// Delete marks a key as deleted (tombstone) in the mutable memtable.
func (lsm *LSMStorage) Delete(key []byte) error {
	lsm.mu.Lock()
	defer lsm.mu.Unlock()
	return lsm.memTable.Delete(key)
}

// Scan returns all live key-value pairs in [start, end) across the
// mutable and immutable memtables. It exists for direct point/range
// lookups against the write path itself; the tree's real range-scan
// engine reads through pkg/scan instead, via MutableSourceFor/
// ImmutableSourceFor.
func (lsm *LSMStorage) Scan(start, end []byte) (map[string][]byte, error) {
	lsm.mu.RLock()
	defer lsm.mu.RUnlock()

	results := make(map[string][]byte)
	for _, entry := range lsm.memTable.Scan(start, end) {
		results[string(entry.Key)] = entry.Payload
	}
	if lsm.immutableTable != nil {
		for _, entry := range lsm.immutableTable.Scan(start, end) {
			if _, exists := results[string(entry.Key)]; !exists {
				results[string(entry.Key)] = entry.Payload
			}
		}
	}
	return results, nil
}

// GetStats returns current statistics as a snapshot.
func (lsm *LSMStorage) GetStats() LSMStatsSnapshot {
	lsm.mu.RLock()
	defer lsm.mu.RUnlock()

	immutableSize := 0
	hasImmutable := lsm.immutableTable != nil
	if hasImmutable {
		immutableSize = lsm.immutableTable.Size()
	}

	return LSMStatsSnapshot{
		WriteCount:    lsm.stats.WriteCount.Load(),
		ReadCount:     lsm.stats.ReadCount.Load(),
		RotateCount:   lsm.stats.RotateCount.Load(),
		BytesWritten:  lsm.stats.BytesWritten.Load(),
		MemTableSize:  lsm.memTable.Size(),
		ImmutableSize: immutableSize,
		HasImmutable:  hasImmutable,
	}
}

// Close marks the storage closed. There are no background workers to stop
// and nothing durable to flush — both belong to the on-disk write path
// this package does not implement.
func (lsm *LSMStorage) Close() error {
	lsm.mu.Lock()
	defer lsm.mu.Unlock()
	if lsm.closed {
		return nil
	}
	lsm.closed = true
	return nil
}

// PrintStats prints storage statistics.
func (lsm *LSMStorage) PrintStats() {
	stats := lsm.GetStats()

	fmt.Printf("LSM Storage Statistics:\n")
	fmt.Printf("  Writes: %d (%.2f MB)\n", stats.WriteCount, float64(stats.BytesWritten)/(1024*1024))
	fmt.Printf("  Reads: %d\n", stats.ReadCount)
	fmt.Printf("  Rotations: %d\n", stats.RotateCount)
	fmt.Printf("  MemTable Size: %.2f KB\n", float64(stats.MemTableSize)/1024)
	if stats.HasImmutable {
		fmt.Printf("  Immutable MemTable Size: %.2f KB\n", float64(stats.ImmutableSize)/1024)
	}
}
