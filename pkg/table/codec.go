package table

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/golang/snappy"
)

// EncodeDataBlock serializes values into a compressed on-disk block.
// Format (before compression): count(4) | { keyLen(4) key valueLen(4)
// value tombstone(1) }*. Mirrors dd0wney-graphdb's writeEntry/readEntry
// framing (sstable_io.go) with the tombstone flag in place of "deleted".
func EncodeDataBlock(values []Value) ([]byte, error) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	if err := binary.Write(w, binary.LittleEndian, uint32(len(values))); err != nil {
		return nil, err
	}
	for _, v := range values {
		if err := writeFramedValue(w, v); err != nil {
			return nil, err
		}
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}

	return snappy.Encode(nil, buf.Bytes()), nil
}

// DecodeDataBlock reverses EncodeDataBlock. Checksum verification happens
// one layer up, in Grid.ReadBlock, against the compressed bytes in raw.
func DecodeDataBlock(raw []byte) (*DataBlock, error) {
	plain, err := snappy.Decode(nil, raw)
	if err != nil {
		return nil, fmt.Errorf("table: decompress data block: %w", err)
	}

	r := bufio.NewReader(bytes.NewReader(plain))
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("table: read data block count: %w", err)
	}

	values := make([]Value, count)
	for i := range values {
		v, err := readFramedValue(r)
		if err != nil {
			return nil, fmt.Errorf("table: read data block entry %d: %w", i, err)
		}
		values[i] = v
	}
	return &DataBlock{Values: values}, nil
}

func writeFramedValue(w *bufio.Writer, v Value) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(v.Key))); err != nil {
		return err
	}
	if _, err := w.Write(v.Key); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(v.Payload))); err != nil {
		return err
	}
	if _, err := w.Write(v.Payload); err != nil {
		return err
	}
	tomb := byte(0)
	if v.Tombstone {
		tomb = 1
	}
	return w.WriteByte(tomb)
}

func readFramedValue(r *bufio.Reader) (Value, error) {
	var keyLen uint32
	if err := binary.Read(r, binary.LittleEndian, &keyLen); err != nil {
		return Value{}, err
	}
	key := make([]byte, keyLen)
	if _, err := io.ReadFull(r, key); err != nil {
		return Value{}, err
	}

	var valLen uint32
	if err := binary.Read(r, binary.LittleEndian, &valLen); err != nil {
		return Value{}, err
	}
	payload := make([]byte, valLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Value{}, err
	}

	tomb, err := r.ReadByte()
	if err != nil {
		return Value{}, err
	}

	return Value{Key: key, Payload: payload, Tombstone: tomb == 1}, nil
}

// EncodeIndexBlock serializes an index block: count(4) | { keyLen(4) key
// address(8) checksumHi(8) checksumLo(8) }*.
func EncodeIndexBlock(b *IndexBlock) ([]byte, error) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	if err := binary.Write(w, binary.LittleEndian, uint32(len(b.Entries))); err != nil {
		return nil, err
	}
	for _, e := range b.Entries {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(e.MaxKey))); err != nil {
			return nil, err
		}
		if _, err := w.Write(e.MaxKey); err != nil {
			return nil, err
		}
		if err := binary.Write(w, binary.LittleEndian, e.Address); err != nil {
			return nil, err
		}
		if err := binary.Write(w, binary.LittleEndian, e.Checksum.Hi); err != nil {
			return nil, err
		}
		if err := binary.Write(w, binary.LittleEndian, e.Checksum.Lo); err != nil {
			return nil, err
		}
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return snappy.Encode(nil, buf.Bytes()), nil
}

// DecodeIndexBlock reverses EncodeIndexBlock.
func DecodeIndexBlock(raw []byte) (*IndexBlock, error) {
	plain, err := snappy.Decode(nil, raw)
	if err != nil {
		return nil, fmt.Errorf("table: decompress index block: %w", err)
	}

	r := bufio.NewReader(bytes.NewReader(plain))
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("table: read index block count: %w", err)
	}

	entries := make([]IndexEntry, count)
	for i := range entries {
		var keyLen uint32
		if err := binary.Read(r, binary.LittleEndian, &keyLen); err != nil {
			return nil, err
		}
		key := make([]byte, keyLen)
		if _, err := io.ReadFull(r, key); err != nil {
			return nil, err
		}
		var addr uint64
		if err := binary.Read(r, binary.LittleEndian, &addr); err != nil {
			return nil, err
		}
		var hi, lo uint64
		if err := binary.Read(r, binary.LittleEndian, &hi); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &lo); err != nil {
			return nil, err
		}
		entries[i] = IndexEntry{MaxKey: key, Address: addr, Checksum: Checksum128{Hi: hi, Lo: lo}}
	}
	return &IndexBlock{Entries: entries}, nil
}
