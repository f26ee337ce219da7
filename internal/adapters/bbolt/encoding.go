// Binary encoding for dictionary blob lists.
//
// Postings (one roaring bitmap per phrase) and record ids are stored as a
// single value each instead of one key per entry, which keeps a dictionary
// save to a handful of Puts.
//
// List format (little-endian):
//
//	count: uint32
//	per entry:
//	  len:  uint32
//	  data: [len]byte
package bbolt

import (
	"encoding/binary"
	"fmt"
	"math"
)

// encodeBlobs encodes a list of byte slices. A single buffer is
// pre-allocated to avoid repeated growth.
func encodeBlobs(blobs [][]byte) ([]byte, error) {
	totalSize := 4
	for _, b := range blobs {
		if uint64(len(b)) > math.MaxUint32 {
			return nil, fmt.Errorf("entry too long: %d bytes", len(b))
		}
		totalSize += 4 + len(b)
	}

	buf := make([]byte, totalSize)
	offset := 0

	binary.LittleEndian.PutUint32(buf[offset:], uint32(len(blobs)))
	offset += 4

	for _, b := range blobs {
		binary.LittleEndian.PutUint32(buf[offset:], uint32(len(b)))
		offset += 4
		copy(buf[offset:], b)
		offset += len(b)
	}
	return buf, nil
}

// decodeBlobs decodes a list written by encodeBlobs. Every read is
// bounds-checked to avoid panics on corrupt data. Nil data is an empty list.
func decodeBlobs(data []byte) ([][]byte, error) {
	if data == nil {
		return nil, nil
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("blob list too short: %d bytes", len(data))
	}

	offset := 0
	count := binary.LittleEndian.Uint32(data[offset:])
	offset += 4

	// each entry needs at least its length prefix
	if uint64(count)*4 > uint64(len(data)-offset) {
		return nil, fmt.Errorf("blob count %d exceeds data size", count)
	}

	blobs := make([][]byte, count)
	for i := uint32(0); i < count; i++ {
		if offset+4 > len(data) {
			return nil, fmt.Errorf("truncated at entry %d length (offset %d)", i, offset)
		}
		n := int(binary.LittleEndian.Uint32(data[offset:]))
		offset += 4

		if n > len(data)-offset {
			return nil, fmt.Errorf("truncated at entry %d (offset %d, need %d)", i, offset, n)
		}
		blobs[i] = data[offset : offset+n : offset+n]
		offset += n
	}
	if offset != len(data) {
		return nil, fmt.Errorf("%d trailing bytes", len(data)-offset)
	}
	return blobs, nil
}

func encodeStrings(ss []string) ([]byte, error) {
	blobs := make([][]byte, len(ss))
	for i, s := range ss {
		blobs[i] = []byte(s)
	}
	return encodeBlobs(blobs)
}

func decodeStrings(data []byte) ([]string, error) {
	blobs, err := decodeBlobs(data)
	if err != nil {
		return nil, err
	}
	if blobs == nil {
		return nil, nil
	}
	ss := make([]string, len(blobs))
	for i, b := range blobs {
		ss[i] = string(b)
	}
	return ss, nil
}
