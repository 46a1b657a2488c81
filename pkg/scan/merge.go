package scan

import (
	"bytes"

	"github.com/kvscan/rangescan/pkg/manifest"
	"github.com/kvscan/rangescan/pkg/table"
)

// streamState is the three-way signal a merge participant's Peek returns:
// a key is ready, the stream is permanently exhausted, or the stream needs
// an I/O completion before it can say which
type streamState int

const (
	streamReady streamState = iota
	streamEmpty
	streamDrained
)

// stream is anything the k-way merge can peek and pop: a LevelScan or a
// memStream.
type stream interface {
	Peek() (table.Key, streamState)
	Pop() table.Value
}

// popOutcome distinguishes the three results of one merge step.
type popOutcome int

const (
	popValue popOutcome = iota
	popEnd
	popAgain
)

// merge is a tournament over L+2 streams: levels 0..L-1 (shallower is
// newer), then the mutable table, then the immutable table
type merge struct {
	streams    []stream
	levelCount int
	dir        manifest.Direction
}

func newMerge(streams []stream, levelCount int, dir manifest.Direction) *merge {
	return &merge{streams: streams, levelCount: levelCount, dir: dir}
}

// rank returns this stream's precedence; lower wins ties. Mutable always
// wins, immutable wins against everything but mutable, and among levels
// the shallower (lower index) wins.
func (m *merge) rank(i int) int {
	switch {
	case i == m.levelCount:
		return 0 // table_mutable
	case i == m.levelCount+1:
		return 1 // table_immutable
	default:
		return i + 2
	}
}

// pop peeks every stream and either: reports Again if any is Drained,
// reports End if all are Empty, or pops the minimum (ascending) / maximum
// (descending) key, breaking ties by precedence, and drains any other
// ready stream whose current key equals the winner's — values shadowed by
// a higher-precedence stream at the same key are dropped here rather than
// delivered. Tombstones are never filtered; that is the caller's job.
func (m *merge) pop() (table.Value, popOutcome) {
	type candidate struct {
		idx int
		key table.Key
	}
	var candidates []candidate

	for i, s := range m.streams {
		key, st := s.Peek()
		switch st {
		case streamDrained:
			return table.Value{}, popAgain
		case streamReady:
			candidates = append(candidates, candidate{i, key})
		}
	}

	if len(candidates) == 0 {
		return table.Value{}, popEnd
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		cmp := bytes.Compare(c.key, best.key)
		if m.dir == manifest.Descending {
			cmp = -cmp
		}
		if cmp < 0 || (cmp == 0 && m.rank(c.idx) < m.rank(best.idx)) {
			best = c
		}
	}

	winner := m.streams[best.idx].Pop()

	for i, s := range m.streams {
		if i == best.idx {
			continue
		}
		for {
			key, st := s.Peek()
			if st != streamReady || !bytes.Equal(key, winner.Key) {
				break
			}
			s.Pop()
		}
	}

	return winner, popValue
}
