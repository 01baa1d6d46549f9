package frame

import (
	"bytes"
	"fmt"

	"github.com/arloliu/zstdx/errs"
	"github.com/arloliu/zstdx/format"
)

// DecodeSimple appends the content of a frame made only of raw and RLE blocks
// to dst. frameBytes holds the frame scanned into f.
//
// The declared content size is enforced; the checksum is not, see VerifyChecksum.
func DecodeSimple(dst, frameBytes []byte, f *Frame) ([]byte, error) {
	start := len(dst)
	for _, b := range f.Blocks {
		payload := b.Payload(frameBytes)
		switch b.Type {
		case format.BlockRaw:
			dst = append(dst, payload...)
		case format.BlockRLE:
			dst = append(dst, bytes.Repeat(payload, b.Size)...)
		default:
			return dst[:start], fmt.Errorf("%w: frame contains %s blocks", errs.ErrInvalidParameters, b.Type)
		}
	}

	if err := CheckContentSize(f, uint64(len(dst)-start)); err != nil {
		return dst[:start], err
	}

	return dst, nil
}

// CheckContentSize reports ErrMalformedFrame when the frame declares a content
// size different from n.
func CheckContentSize(f *Frame, n uint64) error {
	if f.Header.HasContentSize && f.Header.ContentSize != n {
		return fmt.Errorf("%w: decoded %d bytes, header declares %d", errs.ErrMalformedFrame, n, f.Header.ContentSize)
	}

	return nil
}

// AppendRebuilt appends a copy of the scanned frame with the checksum flag
// cleared and the dictionary ID replaced by dictID. The copy is always in the
// standard format.
//
// Backends decode the rebuilt frame; checksum and dictionary validation stay
// with the caller so every backend reports them the same way.
func AppendRebuilt(dst, frameBytes []byte, f *Frame, dictID uint32) ([]byte, error) {
	h := f.Header
	h.Checksum = false
	h.DictionaryID = dictID

	dst, err := EncodeHeader(dst, h, format.FormatStandard)
	if err != nil {
		return dst, err
	}

	return append(dst, frameBytes[f.HeaderSize:f.blocksEnd()]...), nil
}
