package scan

import (
	"testing"

	"github.com/kvscan/rangescan/pkg/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorEmpty(t *testing.T) {
	c := NewCursor([]int{1, 2, 3}, 0, 0, manifest.Ascending)
	assert.True(t, c.Empty())
	_, ok := c.Get()
	assert.False(t, ok)
}

func TestCursorAscendingWalk(t *testing.T) {
	items := []int{10, 20, 30, 40, 50}
	c := NewCursor(items, 1, 3, manifest.Ascending) // window [20,30,40]

	v, ok := c.Get()
	require.True(t, ok)
	assert.Equal(t, 20, v)

	require.True(t, c.Move())
	v, ok = c.Get()
	require.True(t, ok)
	assert.Equal(t, 30, v)

	require.True(t, c.Move())
	v, ok = c.Get()
	require.True(t, ok)
	assert.Equal(t, 40, v)

	assert.False(t, c.Move())
	_, ok = c.Get()
	assert.False(t, ok)
}

func TestCursorDescendingWalk(t *testing.T) {
	items := []int{10, 20, 30, 40, 50}
	c := NewCursor(items, 1, 3, manifest.Descending) // window [20,30,40], starts at 40

	v, ok := c.Get()
	require.True(t, ok)
	assert.Equal(t, 40, v)

	require.True(t, c.Move())
	v, _ = c.Get()
	assert.Equal(t, 30, v)

	require.True(t, c.Move())
	v, _ = c.Get()
	assert.Equal(t, 20, v)

	assert.False(t, c.Move())
	_, ok = c.Get()
	assert.False(t, ok)
}

func TestCursorMoveOnNullPanics(t *testing.T) {
	c := NewCursor([]int{}, 0, 0, manifest.Ascending)
	assert.Panics(t, func() { c.Move() })
}
