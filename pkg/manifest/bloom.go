package manifest

import (
	"hash/fnv"
	"math"
)

// Bloom is a probabilistic per-table membership filter used to let
// LevelIndexIterator skip a table without a block read on a definite
// negative. Adapted from dd0wney-graphdb's BloomFilter (pkg/lsm/bloom.go),
// trimmed to Add/MayContain since the scan engine never merges or
// (de)serializes filters on its own — that belongs to the write/compaction
// path, out of scope here.
type Bloom struct {
	bits      []bool
	size      int
	hashCount int
}

// NewBloom sizes a filter for expectedItems keys at falsePositiveRate.
func NewBloom(expectedItems int, falsePositiveRate float64) *Bloom {
	if expectedItems <= 0 {
		expectedItems = 1
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}

	size := int(math.Ceil(-float64(expectedItems) * math.Log(falsePositiveRate) / (math.Ln2 * math.Ln2)))
	hashCount := int(math.Ceil((float64(size) / float64(expectedItems)) * math.Ln2))

	const maxSize = 1_000_000_000
	if size > maxSize {
		size = maxSize
	}
	if size < 1 {
		size = 1
	}
	if hashCount < 1 {
		hashCount = 1
	}
	if hashCount > 100 {
		hashCount = 100
	}

	return &Bloom{bits: make([]bool, size), size: size, hashCount: hashCount}
}

// Add records key as present.
func (b *Bloom) Add(key []byte) {
	for i := 0; i < b.hashCount; i++ {
		b.bits[b.hash(key, i)] = true
	}
}

// MayContain reports false only when key is definitely absent.
func (b *Bloom) MayContain(key []byte) bool {
	for i := 0; i < b.hashCount; i++ {
		if !b.bits[b.hash(key, i)] {
			return false
		}
	}
	return true
}

func (b *Bloom) hash(key []byte, i int) int {
	h1 := fnv.New64a()
	_, _ = h1.Write(key)
	hash1 := h1.Sum64()

	h2 := fnv.New64a()
	_, _ = h2.Write(key)
	_, _ = h2.Write([]byte{0xFF})
	hash2 := h2.Sum64()
	if hash2%2 == 0 {
		hash2++
	}

	combined := hash1 + uint64(i)*hash2
	return int(combined % uint64(b.size))
}
