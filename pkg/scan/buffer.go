package scan

import "github.com/kvscan/rangescan/pkg/table"

// LevelBuffer is one level's buffer pair: the index block most recently
// copied out of storage, and the data block most recently copied out of
// storage. Both are scan-owned; callbacks may hold references into them
// but storage's own short-lived buffers must never be retained past the
// callback that delivered them.
type LevelBuffer struct {
	IndexBlock table.IndexBlock
	DataBlock  table.DataBlock
}

// ScanBuffer is one scan's full buffer allocation: one LevelBuffer per LSM
// level. Peak memory per active scan is therefore 2*L blocks, independent
// of table count
type ScanBuffer struct {
	Levels []LevelBuffer
}

// ScanContext is a fixed-capacity bump allocator of ScanBuffer slots,
// shared across a tree's concurrent scans. At most scanMax scans may be
// active at once; GetBuffer panics past that bound, and Reset reclaims
// every slot at once — callers sharing a context are responsible for
// coordinating that all their scans have been Reset first
type ScanContext struct {
	buffers    []ScanBuffer
	used       int
	levelCount int
}

// NewScanContext pre-allocates scanMax buffer sets, each sized for
// levelCount LSM levels. No further allocation happens once a scan is
// underway.
func NewScanContext(scanMax, levelCount int) *ScanContext {
	if scanMax <= 0 {
		panic("scan: NewScanContext requires scanMax > 0")
	}
	if levelCount < 0 {
		panic("scan: NewScanContext requires levelCount >= 0")
	}
	buffers := make([]ScanBuffer, scanMax)
	for i := range buffers {
		buffers[i] = ScanBuffer{Levels: make([]LevelBuffer, levelCount)}
	}
	return &ScanContext{buffers: buffers, levelCount: levelCount}
}

// ScanMax returns the configured concurrency bound.
func (c *ScanContext) ScanMax() int { return len(c.buffers) }

// Used returns the number of buffer slots currently handed out.
func (c *ScanContext) Used() int { return c.used }

// GetBuffer hands out the next unused ScanBuffer slot. Asserts used <
// scanMax; exceeding it is a programmer error
func (c *ScanContext) GetBuffer() *ScanBuffer {
	if c.used >= len(c.buffers) {
		panic("scan: ScanContext.GetBuffer exceeds scanMax")
	}
	b := &c.buffers[c.used]
	c.used++
	return b
}

// Reset clears every buffer slot's allocation count back to zero. Callers
// must ensure no scan is still holding a buffer from this context.
func (c *ScanContext) Reset() {
	c.used = 0
	for i := range c.buffers {
		for j := range c.buffers[i].Levels {
			c.buffers[i].Levels[j] = LevelBuffer{}
		}
	}
}
