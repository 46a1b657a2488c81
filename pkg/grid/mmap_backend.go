package grid

import (
	"fmt"
	"sync"

	"golang.org/x/exp/mmap"
)

// MmapBackend reads blocks from the same one-file-per-block directory
// layout as FileBackend, but through a memory-mapped ReaderAt per file,
// kept open across reads, instead of os.ReadFile. Each Fetch still copies
// the mapped bytes into a freshly allocated slice. Grounded on
// dd0wney-graphdb's MappedSSTable (pkg/lsm/sstable_mmap.go).
type MmapBackend struct {
	dir string

	mu      sync.Mutex
	readers map[string]*mmap.ReaderAt
}

// NewMmapBackend wraps the same directory layout FileBackend writes.
func NewMmapBackend(dir string) *MmapBackend {
	return &MmapBackend{dir: dir, readers: make(map[string]*mmap.ReaderAt)}
}

func (b *MmapBackend) pathFor(address uint64, kind BlockKind) string {
	return fmt.Sprintf("%s/%s-%020d.blk", b.dir, kind, address)
}

func (b *MmapBackend) reader(path string) (*mmap.ReaderAt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if r, ok := b.readers[path]; ok {
		return r, nil
	}
	r, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	b.readers[path] = r
	return r, nil
}

// Fetch implements Backend.
func (b *MmapBackend) Fetch(address uint64, kind BlockKind) ([]byte, error) {
	path := b.pathFor(address, kind)
	r, err := b.reader(path)
	if err != nil {
		return nil, fmt.Errorf("grid: mmap backend open %s block %d: %w", kind, address, err)
	}

	buf := make([]byte, r.Len())
	if _, err := r.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("grid: mmap backend read %s block %d: %w", kind, address, err)
	}
	return buf, nil
}

// Close unmaps every file this backend has opened.
func (b *MmapBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var firstErr error
	for path, r := range b.readers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("grid: close mmap reader %s: %w", path, err)
		}
	}
	b.readers = make(map[string]*mmap.ReaderAt)
	return firstErr
}
