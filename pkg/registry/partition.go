package registry

import (
	"errors"
	"fmt"
)

var (
	ErrNoRows   = errors.New("number of rows must be greater than zero")
	ErrNoChunks = errors.New("number of chunks must be greater than zero")
)

// PartitionSizes splits nRows into nChunks near-equal sizes. The first
// nRows%nChunks sizes get one extra row, so the sequence is non-increasing and
// sums to nRows. Chunks beyond nRows have size zero.
func PartitionSizes(nRows, nChunks int) ([]int, error) {
	if nRows <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrNoRows, nRows)
	}
	if nChunks <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrNoChunks, nChunks)
	}
	base, extra := nRows/nChunks, nRows%nChunks
	sizes := make([]int, nChunks)
	for i := range sizes {
		sizes[i] = base
		if i < extra {
			sizes[i]++
		}
	}
	return sizes, nil
}

// Split slices t into contiguous chunks of the given sizes, in order.
func Split(t *Table, sizes []int) ([]*Table, error) {
	total := 0
	for _, n := range sizes {
		if n < 0 {
			return nil, fmt.Errorf("negative chunk size %d", n)
		}
		total += n
	}
	if total != t.Len() {
		return nil, fmt.Errorf("chunk sizes sum to %d, table has %d rows", total, t.Len())
	}
	chunks := make([]*Table, len(sizes))
	start := 0
	for i, n := range sizes {
		chunks[i] = t.Slice(start, n)
		start += n
	}
	return chunks, nil
}
