package frame

import (
	"encoding/binary"
	"fmt"

	"github.com/arloliu/zstdx/errs"
	"github.com/arloliu/zstdx/format"
	"github.com/arloliu/zstdx/internal/hash"
)

// Checksum returns the frame content checksum of content: the low 32 bits of
// its XXH64 digest with seed 0.
func Checksum(content []byte) uint32 {
	return hash.Checksum32(content)
}

// AppendChecksum appends sum to dst in little-endian order.
func AppendChecksum(dst []byte, sum uint32) []byte {
	return binary.LittleEndian.AppendUint32(dst, sum)
}

// VerifyChecksum compares the checksum stored in f against content.
func VerifyChecksum(f *Frame, content []byte) error {
	if !f.Header.Checksum {
		return nil
	}
	if got := Checksum(content); got != f.Checksum {
		return fmt.Errorf("%w: stored 0x%08X, computed 0x%08X", errs.ErrChecksumMismatch, f.Checksum, got)
	}

	return nil
}

func readChecksum(src []byte) (uint32, error) {
	if len(src) < format.ChecksumSize {
		return 0, ErrNeedMoreInput
	}

	return binary.LittleEndian.Uint32(src), nil
}
