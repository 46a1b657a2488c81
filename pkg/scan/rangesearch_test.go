package scan

import (
	"testing"

	"github.com/kvscan/rangescan/pkg/table"
	"github.com/stretchr/testify/assert"
)

func TestRangeInBasic(t *testing.T) {
	values := []table.Value{
		{Key: table.Key("a")},
		{Key: table.Key("c")},
		{Key: table.Key("e")},
		{Key: table.Key("g")},
		{Key: table.Key("i")},
	}

	start, count := RangeIn(values, valueKey, table.Key("b"), table.Key("g"))
	assert.Equal(t, 1, start) // "c"
	assert.Equal(t, 3, count) // c, e, g
}

func TestRangeInEmptySlice(t *testing.T) {
	var values []table.Value
	start, count := RangeIn(values, valueKey, table.Key("a"), table.Key("z"))
	assert.Equal(t, 0, start)
	assert.Equal(t, 0, count)
}

func TestRangeInNoOverlap(t *testing.T) {
	values := []table.Value{{Key: table.Key("a")}, {Key: table.Key("b")}}
	_, count := RangeIn(values, valueKey, table.Key("x"), table.Key("z"))
	assert.Equal(t, 0, count)
}

func TestRangeInExactBoundaries(t *testing.T) {
	values := []table.Value{{Key: table.Key("a")}, {Key: table.Key("b")}, {Key: table.Key("c")}}
	start, count := RangeIn(values, valueKey, table.Key("a"), table.Key("c"))
	assert.Equal(t, 0, start)
	assert.Equal(t, 3, count)
}

// TestIndexRangeInNarrowWindow covers a narrow query range that should
// select exactly one interior block: boundary keys [10,20,30,40], range
// [22,28] must select exactly the block whose boundary is 30.
func TestIndexRangeInNarrowWindow(t *testing.T) {
	boundaries := []table.Key{
		intKey(10), intKey(20), intKey(30), intKey(40),
	}
	start, count := IndexRangeIn(boundaries, intKey(22), intKey(28))
	assert.Equal(t, 2, start)
	assert.Equal(t, 1, count)
}

func TestIndexRangeInEverythingBelowMin(t *testing.T) {
	boundaries := []table.Key{intKey(1), intKey(2), intKey(3)}
	_, count := IndexRangeIn(boundaries, intKey(10), intKey(20))
	assert.Equal(t, 0, count)
}

func TestIndexRangeInSpanningMultipleBlocks(t *testing.T) {
	boundaries := []table.Key{intKey(10), intKey(20), intKey(30), intKey(40)}
	start, count := IndexRangeIn(boundaries, intKey(15), intKey(35))
	assert.Equal(t, 1, start) // block with boundary 20 may hold 15
	assert.Equal(t, 3, count) // blocks with boundary 20,30,40
}

func TestIndexRangeInEmpty(t *testing.T) {
	_, count := IndexRangeIn(nil, intKey(1), intKey(2))
	assert.Equal(t, 0, count)
}

// intKey renders an int as a fixed-width, order-preserving byte key so
// tests can reason about ranges using plain small integers.
func intKey(n int) table.Key {
	return table.Key([]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})
}
