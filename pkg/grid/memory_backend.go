package grid

import (
	"fmt"
	"sync"
)

// MemoryBackend is an in-memory Backend keyed by address, used by the scan
// engine's own tests and by any caller that wants a deterministic,
// dependency-free fixture that delivers block-ready callbacks on demand.
type MemoryBackend struct {
	index map[uint64][]byte
	data  map[uint64][]byte

	mu         sync.Mutex
	dataReads  map[uint64]int
	indexReads map[uint64]int
}

// NewMemoryBackend returns an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		index:      make(map[uint64][]byte),
		data:       make(map[uint64][]byte),
		dataReads:  make(map[uint64]int),
		indexReads: make(map[uint64]int),
	}
}

// DataReadCount returns how many times Fetch was called for the data
// block at address — used by tests asserting a bounded read count.
func (b *MemoryBackend) DataReadCount(address uint64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dataReads[address]
}

// TotalDataReads returns the total number of data-block Fetch calls
// across all addresses.
func (b *MemoryBackend) TotalDataReads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, n := range b.dataReads {
		total += n
	}
	return total
}

// PutIndex registers the raw bytes for an index block at address.
func (b *MemoryBackend) PutIndex(address uint64, raw []byte) {
	b.index[address] = raw
}

// PutData registers the raw bytes for a data block at address.
func (b *MemoryBackend) PutData(address uint64, raw []byte) {
	b.data[address] = raw
}

// Fetch implements Backend.
func (b *MemoryBackend) Fetch(address uint64, kind BlockKind) ([]byte, error) {
	b.mu.Lock()
	if kind == IndexBlockKind {
		b.indexReads[address]++
	} else {
		b.dataReads[address]++
	}
	b.mu.Unlock()

	table := b.data
	if kind == IndexBlockKind {
		table = b.index
	}
	raw, ok := table[address]
	if !ok {
		return nil, fmt.Errorf("grid: memory backend has no %s block at address %d", kind, address)
	}
	return raw, nil
}
