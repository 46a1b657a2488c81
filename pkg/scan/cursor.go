package scan

import "github.com/kvscan/rangescan/pkg/manifest"

// Cursor is a window [start, start+count) over a sorted slice plus a
// current position and a direction. It is pure data: it never blocks and
// never touches storage.
type Cursor[T any] struct {
	items []T
	start int
	count int
	index int // -1 means null (no current element)
	dir   manifest.Direction
}

// NewCursor builds a Cursor over items[start:start+count], positioned at
// the first element in dir (index 0 for ascending, count-1 for
// descending), or null if count == 0.
func NewCursor[T any](items []T, start, count int, dir manifest.Direction) *Cursor[T] {
	c := &Cursor[T]{items: items, start: start, count: count, dir: dir}
	if count == 0 {
		c.index = -1
	} else if dir == manifest.Ascending {
		c.index = 0
	} else {
		c.index = count - 1
	}
	return c
}

// Get returns the current element, or false if the cursor is null.
func (c *Cursor[T]) Get() (T, bool) {
	if c.index < 0 {
		var zero T
		return zero, false
	}
	return c.items[c.start+c.index], true
}

// Move advances the cursor one step in its direction. It returns false and
// sets the cursor to null when stepping off either end. The caller must
// have confirmed Get was non-null before calling Move.
func (c *Cursor[T]) Move() bool {
	if c.index < 0 {
		panic("scan: Cursor.Move called on a null cursor")
	}
	if c.dir == manifest.Ascending {
		c.index++
		if c.index >= c.count {
			c.index = -1
			return false
		}
		return true
	}
	c.index--
	if c.index < 0 {
		return false
	}
	return true
}

// Empty reports whether the cursor's window has no elements at all.
func (c *Cursor[T]) Empty() bool {
	return c.count == 0
}
