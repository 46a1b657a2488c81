package scan

import (
	"testing"

	"github.com/kvscan/rangescan/pkg/grid"
	"github.com/kvscan/rangescan/pkg/manifest"
	"github.com/kvscan/rangescan/pkg/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixtureMutable struct{ values []table.Value }

func (f fixtureMutable) SortIntoValues() []table.Value { return f.values }

type fixtureImmutable struct {
	values    []table.Value
	min       manifest.Snapshot
	populated bool
}

func (f fixtureImmutable) Values() []table.Value           { return f.values }
func (f fixtureImmutable) SnapshotMin() manifest.Snapshot { return f.min }
func (f fixtureImmutable) Populated() bool                { return f.populated }

func v(key string) table.Value { return table.Value{Key: table.Key(key), Payload: []byte(key)} }

// addTable writes values (already sorted) into backend as one index block
// referencing one data block per blockSize keys, and registers the table
// in man at level.
func addTable(t *testing.T, man *manifest.InMemory, backend *grid.MemoryBackend, level int, addrBase uint64, values []table.Value, blockSize int) {
	t.Helper()
	require.NotEmpty(t, values)

	var entries []table.IndexEntry
	addr := addrBase
	for i := 0; i < len(values); i += blockSize {
		end := i + blockSize
		if end > len(values) {
			end = len(values)
		}
		block := values[i:end]
		raw, err := table.EncodeDataBlock(block)
		require.NoError(t, err)
		checksum := table.Compute(raw)
		backend.PutData(addr, raw)
		entries = append(entries, table.IndexEntry{MaxKey: block[len(block)-1].Key, Address: addr, Checksum: checksum})
		addr++
	}

	idx := &table.IndexBlock{Entries: entries}
	idxRaw, err := table.EncodeIndexBlock(idx)
	require.NoError(t, err)
	idxAddr := addrBase + 100000
	idxChecksum := table.Compute(idxRaw)
	backend.PutIndex(idxAddr, idxRaw)

	man.AddTable(level, &manifest.TableInfo{
		Address:  idxAddr,
		Checksum: idxChecksum,
		KeyMin:   values[0].Key,
		KeyMax:   values[len(values)-1].Key,
	})
}

type harness struct {
	backend *grid.MemoryBackend
	loop    *grid.Loop
	grid    *grid.Grid
	man     *manifest.InMemory
	stop    chan struct{}
}

func newHarness() *harness {
	backend := grid.NewMemoryBackend()
	loop := grid.NewLoop(64)
	return &harness{
		backend: backend,
		loop:    loop,
		grid:    grid.New(backend, loop),
		man:     manifest.NewInMemory(),
		stop:    make(chan struct{}),
	}
}

// fetchSync drives the Scan's Fetch call to completion, running the grid
// loop until the callback fires exactly once.
func (h *harness) fetchSync(t *testing.T, s *Scan) (*table.Value, error) {
	t.Helper()
	var result *table.Value
	var resultErr error
	done := false

	s.Fetch(func(val *table.Value, err error) {
		done = true
		resultErr = err
		if val != nil {
			cp := *val
			result = &cp
		}
	})

	for !done {
		if !h.loop.RunOne(h.stop) {
			t.Fatal("scan: loop drained before callback fired")
		}
	}
	return result, resultErr
}

func TestScanEmptyTree(t *testing.T) {
	h := newHarness()
	ctx := NewScanContext(4, 0)

	var s Scan
	s.Seek(ctx, h.grid, h.man, 0, fixtureMutable{}, fixtureImmutable{}, manifest.SnapshotLatest, table.Key("0"), table.Key("100"), manifest.Ascending)

	val, err := h.fetchSync(t, &s)
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestScanSingleMutableValue(t *testing.T) {
	h := newHarness()
	ctx := NewScanContext(4, 0)
	mutable := fixtureMutable{values: []table.Value{v("5")}}

	var s Scan
	s.Seek(ctx, h.grid, h.man, 0, mutable, fixtureImmutable{}, manifest.SnapshotLatest, table.Key("0"), table.Key("9"), manifest.Ascending)

	val, err := h.fetchSync(t, &s)
	require.NoError(t, err)
	require.NotNil(t, val)
	assert.Equal(t, "5", string(val.Key))

	val, err = h.fetchSync(t, &s)
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestScanShadowing(t *testing.T) {
	h := newHarness()
	addTable(t, h.man, h.backend, 0, 1, []table.Value{v("5")}, 4)
	addTable(t, h.man, h.backend, 2, 2, []table.Value{v("5"), v("7")}, 4)

	ctx := NewScanContext(4, 3)
	mutable := fixtureMutable{values: []table.Value{v("5")}}

	var s Scan
	s.Seek(ctx, h.grid, h.man, 3, mutable, fixtureImmutable{}, manifest.SnapshotLatest, table.Key("0"), table.Key("9"), manifest.Ascending)

	var got []string
	for {
		val, err := h.fetchSync(t, &s)
		require.NoError(t, err)
		if val == nil {
			break
		}
		got = append(got, string(val.Key))
	}
	assert.Equal(t, []string{"5", "7"}, got)
}

func TestScanCrossLevelInterleaveAscending(t *testing.T) {
	h := newHarness()
	addTable(t, h.man, h.backend, 0, 1, []table.Value{v("3"), v("9")}, 4)
	addTable(t, h.man, h.backend, 1, 2, []table.Value{v("5"), v("7")}, 4)

	ctx := NewScanContext(4, 2)
	var s Scan
	s.Seek(ctx, h.grid, h.man, 2, fixtureMutable{}, fixtureImmutable{}, manifest.SnapshotLatest, table.Key("0"), table.Key("9"), manifest.Ascending)

	var got []string
	for {
		val, err := h.fetchSync(t, &s)
		require.NoError(t, err)
		if val == nil {
			break
		}
		got = append(got, string(val.Key))
	}
	assert.Equal(t, []string{"3", "5", "7", "9"}, got)
}

func TestScanCrossLevelInterleaveDescending(t *testing.T) {
	h := newHarness()
	addTable(t, h.man, h.backend, 0, 1, []table.Value{v("3"), v("9")}, 4)
	addTable(t, h.man, h.backend, 1, 2, []table.Value{v("5"), v("7")}, 4)

	ctx := NewScanContext(4, 2)
	var s Scan
	s.Seek(ctx, h.grid, h.man, 2, fixtureMutable{}, fixtureImmutable{}, manifest.SnapshotLatest, table.Key("0"), table.Key("9"), manifest.Descending)

	var got []string
	for {
		val, err := h.fetchSync(t, &s)
		require.NoError(t, err)
		if val == nil {
			break
		}
		got = append(got, string(val.Key))
	}
	assert.Equal(t, []string{"9", "7", "5", "3"}, got)
}

// TestScanNarrowWindowReadsOneDataBlock covers a narrow range against an
// index block with boundary keys [10,20,30,40] (4-key data blocks); a
// range tight enough to land entirely inside the third block must not
// touch any other data block.
func TestScanNarrowWindowReadsOneDataBlock(t *testing.T) {
	h := newHarness()
	values := []table.Value{
		v("01"), v("05"), v("08"), v("10"), // block boundary 10
		v("12"), v("15"), v("18"), v("20"), // block boundary 20
		v("22"), v("25"), v("28"), v("30"), // block boundary 30
		v("32"), v("35"), v("38"), v("40"), // block boundary 40
	}
	addTable(t, h.man, h.backend, 0, 1, values, 4)

	ctx := NewScanContext(4, 1)
	var s Scan
	s.Seek(ctx, h.grid, h.man, 1, fixtureMutable{}, fixtureImmutable{}, manifest.SnapshotLatest, table.Key("22"), table.Key("28"), manifest.Ascending)

	var got []string
	for {
		val, err := h.fetchSync(t, &s)
		require.NoError(t, err)
		if val == nil {
			break
		}
		got = append(got, string(val.Key))
	}
	assert.Equal(t, []string{"22", "25", "28"}, got)
	assert.Equal(t, 1, h.backend.TotalDataReads(), "only the block whose boundary is 30 should be read")
}

func TestScanReusesContextAcrossResets(t *testing.T) {
	h := newHarness()
	ctx := NewScanContext(1, 0)

	var s Scan
	s.Seek(ctx, h.grid, h.man, 0, fixtureMutable{values: []table.Value{v("1")}}, fixtureImmutable{}, manifest.SnapshotLatest, table.Key("0"), table.Key("9"), manifest.Ascending)
	_, err := h.fetchSync(t, &s)
	require.NoError(t, err)
	s.Reset()

	assert.Panics(t, func() { ctx.GetBuffer() })
	ctx.Reset()
	assert.NotPanics(t, func() { ctx.GetBuffer() })
}

func TestScanRejectsInvertedRange(t *testing.T) {
	h := newHarness()
	ctx := NewScanContext(1, 0)
	var s Scan
	assert.Panics(t, func() {
		s.Seek(ctx, h.grid, h.man, 0, fixtureMutable{}, fixtureImmutable{}, manifest.SnapshotLatest, table.Key("9"), table.Key("0"), manifest.Ascending)
	})
}

func TestScanFetchRequiresSeeking(t *testing.T) {
	var s Scan
	assert.Panics(t, func() {
		s.Fetch(func(*table.Value, error) {})
	})
}
