package grid

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileBackend stores each block as its own file under dir, named by
// address and kind. It is the durable local-disk counterpart to
// MemoryBackend, grounded on dd0wney-graphdb's sstable_io.go framing idiom
// of one block per discrete on-disk unit rather than one giant log file.
type FileBackend struct {
	dir string
}

// NewFileBackend opens (creating if necessary) a block directory at dir.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("grid: create block dir %s: %w", dir, err)
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) path(address uint64, kind BlockKind) string {
	return filepath.Join(b.dir, fmt.Sprintf("%s-%020d.blk", kind, address))
}

// Write persists raw block bytes at address so a later Fetch can find them.
// Used by fixtures and by the (out-of-scope) write/compaction path.
func (b *FileBackend) Write(address uint64, kind BlockKind, raw []byte) error {
	return os.WriteFile(b.path(address, kind), raw, 0o644)
}

// Fetch implements Backend.
func (b *FileBackend) Fetch(address uint64, kind BlockKind) ([]byte, error) {
	data, err := os.ReadFile(b.path(address, kind))
	if err != nil {
		return nil, fmt.Errorf("grid: file backend read %s block %d: %w", kind, address, err)
	}
	return data, nil
}
