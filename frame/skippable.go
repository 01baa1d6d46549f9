package frame

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/arloliu/zstdx/errs"
	"github.com/arloliu/zstdx/format"
)

// AppendSkippable appends a skippable frame carrying data to dst. variant
// selects the magic number 0x184D2A50+variant and must be in [0, 15].
func AppendSkippable(dst []byte, variant uint8, data []byte) ([]byte, error) {
	if variant > 15 {
		return dst, fmt.Errorf("%w: skippable variant %d out of range", errs.ErrInvalidParameters, variant)
	}
	if uint64(len(data)) > math.MaxUint32 {
		return dst, fmt.Errorf("%w: skippable payload too large", errs.ErrInvalidParameters)
	}

	dst = binary.LittleEndian.AppendUint32(dst, format.SkippableMagicBase+uint32(variant))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(data))) //nolint: gosec

	return append(dst, data...), nil
}

// DecodeSkippableHeader decodes the 8-byte skippable frame header at the start of src.
//
// Returns:
//   - uint8: magic variant in [0, 15]
//   - uint32: length of the user data that follows the header
//   - error: ErrNeedMoreInput if fewer than 8 bytes are available,
//     ErrMalformedFrame if the magic is not a skippable magic
func DecodeSkippableHeader(src []byte) (uint8, uint32, error) {
	if len(src) < format.SkippableHeaderSize {
		return 0, 0, ErrNeedMoreInput
	}

	magic := binary.LittleEndian.Uint32(src)
	if !format.IsSkippableMagic(magic) {
		return 0, 0, fmt.Errorf("%w: not a skippable frame: 0x%08X", errs.ErrMalformedFrame, magic)
	}

	return uint8(magic - format.SkippableMagicBase), binary.LittleEndian.Uint32(src[4:]), nil //nolint: gosec
}
