// Package scan is the range-scan engine of the LSM tree: given
// [keyMin, keyMax] and a snapshot, it produces every live value in that
// range, in ascending or descending key order, merging the mutable table,
// the immutable table, and every on-disk level with newer-beats-older
// precedence.
//
// The engine is a caller-driven pull loop on top of the async block-I/O
// contract in pkg/grid and the snapshot-filtered table directory in
// pkg/manifest: Seek primes one Scan, repeated calls to Fetch each deliver
// exactly one value (or end-of-scan) through a callback that fires on the
// grid's event loop, never synchronously within Fetch's own stack frame.
//
// Leaves first: Cursor and RangeIn are pure data structures with no I/O.
// LevelIndexIterator and LevelIterator walk one level's tables and data
// blocks. LevelScan turns that into a peekable/poppable stream. Merge is
// the k-way tournament across levels plus the two memtable streams. Scan
// ties it together behind Seek/Fetch/Reset.
package scan
