// Package hash wraps the XXH64 primitives used by the frame checksum and the
// raw-content dictionary ID derivation.
package hash

import "github.com/cespare/xxhash/v2"

// Sum64 computes the XXH64 (seed 0) of data.
func Sum64(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// Checksum32 returns the Zstandard content checksum of data: the low 32 bits of XXH64.
func Checksum32(data []byte) uint32 {
	return uint32(xxhash.Sum64(data)) //nolint: gosec
}
