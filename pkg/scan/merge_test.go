package scan

import (
	"testing"

	"github.com/kvscan/rangescan/pkg/manifest"
	"github.com/kvscan/rangescan/pkg/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStream is a minimal hand-driven stream for exercising merge logic
// without any iterator/grid machinery.
type fakeStream struct {
	values []table.Value
	idx    int
	drain  int // number of Peek calls to report Drained before going Ready
}

func (f *fakeStream) Peek() (table.Key, streamState) {
	if f.drain > 0 {
		f.drain--
		return nil, streamDrained
	}
	if f.idx >= len(f.values) {
		return nil, streamEmpty
	}
	return f.values[f.idx].Key, streamReady
}

func (f *fakeStream) Pop() table.Value {
	v := f.values[f.idx]
	f.idx++
	return v
}

func val(key string) table.Value { return table.Value{Key: table.Key(key)} }

func TestMergeAllEmptyReturnsEnd(t *testing.T) {
	m := newMerge([]stream{&fakeStream{}, &fakeStream{}}, 0, manifest.Ascending)
	_, outcome := m.pop()
	assert.Equal(t, popEnd, outcome)
}

func TestMergeDrainedPropagatesAgain(t *testing.T) {
	ready := &fakeStream{values: []table.Value{val("a")}}
	drained := &fakeStream{drain: 1, values: []table.Value{val("z")}}
	m := newMerge([]stream{ready, drained}, 0, manifest.Ascending)

	_, outcome := m.pop()
	assert.Equal(t, popAgain, outcome)

	// retry succeeds once the stream is no longer drained
	v, outcome := m.pop()
	require.Equal(t, popValue, outcome)
	assert.Equal(t, table.Key("a"), v.Key)
}

// TestMergePrecedence exercises S3: mutable{5:vm}, level0{5:v0}, level2{5:v2,7:v7};
// range asc should yield vm, then v7 (v0 and the level2 5 get shadowed).
func TestMergePrecedence(t *testing.T) {
	level0 := &fakeStream{values: []table.Value{{Key: table.Key("5"), Payload: []byte("v0")}}}
	level2 := &fakeStream{values: []table.Value{
		{Key: table.Key("5"), Payload: []byte("v2")},
		{Key: table.Key("7"), Payload: []byte("v7")},
	}}
	mutable := &fakeStream{values: []table.Value{{Key: table.Key("5"), Payload: []byte("vm")}}}
	immutable := &fakeStream{}

	// streams ordered level0, level1(empty), level2, mutable, immutable
	level1 := &fakeStream{}
	streams := []stream{level0, level1, level2, mutable, immutable}
	m := newMerge(streams, 3, manifest.Ascending)

	v, outcome := m.pop()
	require.Equal(t, popValue, outcome)
	assert.Equal(t, "vm", string(v.Payload))

	v, outcome = m.pop()
	require.Equal(t, popValue, outcome)
	assert.Equal(t, "v7", string(v.Payload))

	_, outcome = m.pop()
	assert.Equal(t, popEnd, outcome)
}

// TestMergeCrossLevelInterleave exercises S4/S5: level0{3,9}, level1{5,7}.
func TestMergeCrossLevelInterleave(t *testing.T) {
	for _, dir := range []manifest.Direction{manifest.Ascending, manifest.Descending} {
		level0 := &fakeStream{values: orderedFor(dir, "3", "9")}
		level1 := &fakeStream{values: orderedFor(dir, "5", "7")}
		mutable := &fakeStream{}
		immutable := &fakeStream{}

		m := newMerge([]stream{level0, level1, mutable, immutable}, 2, dir)

		want := []string{"3", "5", "7", "9"}
		if dir == manifest.Descending {
			want = []string{"9", "7", "5", "3"}
		}

		for _, w := range want {
			v, outcome := m.pop()
			require.Equal(t, popValue, outcome)
			assert.Equal(t, w, string(v.Key))
		}
		_, outcome := m.pop()
		assert.Equal(t, popEnd, outcome)
	}
}

func orderedFor(dir manifest.Direction, asc ...string) []table.Value {
	vals := make([]table.Value, len(asc))
	for i, k := range asc {
		vals[i] = val(k)
	}
	if dir == manifest.Descending {
		for i, j := 0, len(vals)-1; i < j; i, j = i+1, j-1 {
			vals[i], vals[j] = vals[j], vals[i]
		}
	}
	return vals
}
