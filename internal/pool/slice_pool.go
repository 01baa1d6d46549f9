package pool

import "sync"

var byteSlicesPool = sync.Pool{
	New: func() any { return &[][]byte{} },
}

// GetByteSlices retrieves and resizes a [][]byte from the pool.
//
// The returned slice will have the exact length specified by the size parameter
// and all elements set to nil. The caller must call the returned cleanup
// function to return the slice to the pool; cleanup drops every element so
// the pool never keeps payloads alive.
//
// Parameters:
//   - size: The desired length of the slice
//
// Returns:
//   - [][]byte: A slice with length equal to size
//   - func(): Cleanup function that must be called (typically with defer) to return the slice to the pool
//
// Example:
//
//	results, cleanup := pool.GetByteSlices(len(jobs))
//	defer cleanup()
func GetByteSlices(size int) ([][]byte, func()) {
	ptr, _ := byteSlicesPool.Get().(*[][]byte)
	slice := (*ptr)[:0]

	if cap(slice) < size {
		slice = make([][]byte, size)
	} else {
		slice = slice[:size]
		clear(slice)
	}
	*ptr = slice

	return slice, func() {
		clear(*ptr)
		byteSlicesPool.Put(ptr)
	}
}
