package frame

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/arloliu/zstdx/errs"
	"github.com/arloliu/zstdx/format"
)

// ErrNeedMoreInput is returned by the decoding functions when src ends before
// the structure being decoded is complete. It is not an error kind: streaming
// callers buffer more input and retry.
var ErrNeedMoreInput = errors.New("frame: need more input")

// Frame header descriptor bit layout.
const (
	fcsFlagShift      = 6
	singleSegmentMask = 0x20
	reservedBitMask   = 0x08
	checksumFlagMask  = 0x04
	dictIDFlagMask    = 0x03
)

// Header is the decoded form of a Zstandard frame header.
type Header struct {
	// WindowSize is the maximum back-reference distance. For single-segment
	// frames it equals ContentSize.
	WindowSize uint64
	// ContentSize is the decompressed size, valid when HasContentSize is set.
	ContentSize    uint64
	HasContentSize bool
	// DictionaryID identifies the dictionary the frame was compressed with; 0 means none.
	DictionaryID uint32
	// Checksum reports a 4-byte content checksum after the last block.
	Checksum bool
	// SingleSegment frames carry no window descriptor; the window is the whole content.
	SingleSegment bool
}

// BlockMaximumSize returns min(WindowSize, 128 KiB), the largest Block_Size allowed in the frame.
func (h Header) BlockMaximumSize() int {
	if h.WindowSize < format.MaxBlockSize {
		return int(h.WindowSize) //nolint: gosec
	}

	return format.MaxBlockSize
}

// EncodedSize returns the number of bytes EncodeHeader produces for h, magic included
// when f is the standard format.
func (h Header) EncodedSize(f format.FrameFormat) int {
	n := 1 + dictIDFieldSize(h.DictionaryID)
	if !h.SingleSegment {
		n++
	}
	_, fcsSize := fcsField(h)
	n += fcsSize
	if f == format.FormatStandard {
		n += format.MagicSize
	}

	return n
}

// EncodeHeader appends the wire form of h to dst.
//
// Field widths are always the smallest that can represent the values; a
// window descriptor is written for non-single-segment frames and rounds the
// window up to the nearest representable size.
//
// Returns:
//   - []byte: dst with the header appended
//   - error: ErrInvalidParameters if h is internally inconsistent
func EncodeHeader(dst []byte, h Header, f format.FrameFormat) ([]byte, error) {
	if h.SingleSegment && !h.HasContentSize {
		return dst, fmt.Errorf("%w: single-segment frame requires a content size", errs.ErrInvalidParameters)
	}

	if f == format.FormatStandard {
		dst = binary.LittleEndian.AppendUint32(dst, format.MagicNumber)
	}

	fcsFlag, fcsSize := fcsField(h)
	didSize := dictIDFieldSize(h.DictionaryID)

	descriptor := byte(fcsFlag) << fcsFlagShift
	if h.SingleSegment {
		descriptor |= singleSegmentMask
	}
	if h.Checksum {
		descriptor |= checksumFlagMask
	}
	switch didSize {
	case 1:
		descriptor |= 1
	case 2:
		descriptor |= 2
	case 4:
		descriptor |= 3
	}
	dst = append(dst, descriptor)

	if !h.SingleSegment {
		wd, err := windowDescriptor(h.WindowSize, h.ContentSize, h.HasContentSize)
		if err != nil {
			return dst, err
		}
		dst = append(dst, wd)
	}

	switch didSize {
	case 1:
		dst = append(dst, byte(h.DictionaryID))
	case 2:
		dst = binary.LittleEndian.AppendUint16(dst, uint16(h.DictionaryID)) //nolint: gosec
	case 4:
		dst = binary.LittleEndian.AppendUint32(dst, h.DictionaryID)
	}

	switch fcsSize {
	case 1:
		dst = append(dst, byte(h.ContentSize))
	case 2:
		dst = binary.LittleEndian.AppendUint16(dst, uint16(h.ContentSize-256)) //nolint: gosec
	case 4:
		dst = binary.LittleEndian.AppendUint32(dst, uint32(h.ContentSize)) //nolint: gosec
	case 8:
		dst = binary.LittleEndian.AppendUint64(dst, h.ContentSize)
	}

	return dst, nil
}

// DecodeHeader decodes the frame header at the start of src.
//
// Returns:
//   - Header: decoded header
//   - int: number of bytes consumed, magic included for the standard format
//   - error: ErrNeedMoreInput if src is too short, ErrMalformedFrame on a bad
//     magic number or a set reserved bit
func DecodeHeader(src []byte, f format.FrameFormat) (Header, int, error) {
	pos := 0
	if f == format.FormatStandard {
		if len(src) < format.MagicSize {
			return Header{}, 0, ErrNeedMoreInput
		}
		magic := binary.LittleEndian.Uint32(src)
		if magic != format.MagicNumber {
			if format.IsSkippableMagic(magic) {
				return Header{}, 0, fmt.Errorf("%w: unexpected skippable frame", errs.ErrMalformedFrame)
			}

			return Header{}, 0, fmt.Errorf("%w: magic number mismatch: 0x%08X", errs.ErrMalformedFrame, magic)
		}
		pos = format.MagicSize
	}

	if len(src) < pos+1 {
		return Header{}, 0, ErrNeedMoreInput
	}
	descriptor := src[pos]
	pos++

	if descriptor&reservedBitMask != 0 {
		return Header{}, 0, fmt.Errorf("%w: reserved header bit is set", errs.ErrMalformedFrame)
	}

	h := Header{
		SingleSegment: descriptor&singleSegmentMask != 0,
		Checksum:      descriptor&checksumFlagMask != 0,
	}

	fcsFlag := descriptor >> fcsFlagShift
	fcsSize := 0
	switch fcsFlag {
	case 0:
		if h.SingleSegment {
			fcsSize = 1
		}
	case 1:
		fcsSize = 2
	case 2:
		fcsSize = 4
	case 3:
		fcsSize = 8
	}

	didSize := 0
	switch descriptor & dictIDFlagMask {
	case 1:
		didSize = 1
	case 2:
		didSize = 2
	case 3:
		didSize = 4
	}

	need := didSize + fcsSize
	if !h.SingleSegment {
		need++
	}
	if len(src) < pos+need {
		return Header{}, 0, ErrNeedMoreInput
	}

	if !h.SingleSegment {
		wd := src[pos]
		pos++
		exponent := uint64(wd >> 3)
		mantissa := uint64(wd & 0x7)
		windowLog := format.MinWindowLog + exponent
		base := uint64(1) << windowLog
		h.WindowSize = base + (base/8)*mantissa
	}

	switch didSize {
	case 1:
		h.DictionaryID = uint32(src[pos])
	case 2:
		h.DictionaryID = uint32(binary.LittleEndian.Uint16(src[pos:]))
	case 4:
		h.DictionaryID = binary.LittleEndian.Uint32(src[pos:])
	}
	pos += didSize

	switch fcsSize {
	case 1:
		h.ContentSize = uint64(src[pos])
	case 2:
		h.ContentSize = uint64(binary.LittleEndian.Uint16(src[pos:])) + 256
	case 4:
		h.ContentSize = uint64(binary.LittleEndian.Uint32(src[pos:]))
	case 8:
		h.ContentSize = binary.LittleEndian.Uint64(src[pos:])
	}
	pos += fcsSize
	h.HasContentSize = fcsSize > 0

	if h.SingleSegment {
		h.WindowSize = h.ContentSize
	}

	return h, pos, nil
}

// fcsField returns the Frame_Content_Size_flag and field width for h.
func fcsField(h Header) (flag int, size int) {
	if !h.HasContentSize {
		return 0, 0
	}

	cs := h.ContentSize
	switch {
	case cs < 256 && h.SingleSegment:
		return 0, 1
	case cs >= 256 && cs < 65536+256:
		return 1, 2
	case cs <= 0xFFFFFFFF:
		return 2, 4
	default:
		return 3, 8
	}
}

func dictIDFieldSize(id uint32) int {
	switch {
	case id == 0:
		return 0
	case id < 1<<8:
		return 1
	case id < 1<<16:
		return 2
	default:
		return 4
	}
}

// windowDescriptor returns the smallest window descriptor whose size covers
// the requested window, or the content size when no window is given.
func windowDescriptor(windowSize, contentSize uint64, hasContentSize bool) (byte, error) {
	want := windowSize
	if want == 0 && hasContentSize {
		want = contentSize
	}
	if want < 1<<format.MinWindowLog {
		want = 1 << format.MinWindowLog
	}

	for exponent := uint64(0); exponent <= format.MaxWindowLog-format.MinWindowLog; exponent++ {
		base := uint64(1) << (format.MinWindowLog + exponent)
		for mantissa := uint64(0); mantissa < 8; mantissa++ {
			if base+(base/8)*mantissa >= want {
				return byte(exponent<<3 | mantissa), nil
			}
		}
	}

	return 0, fmt.Errorf("%w: window size %d too large", errs.ErrInvalidParameters, windowSize)
}

// WindowSizeFromLog returns the window size for a window log.
func WindowSizeFromLog(windowLog int) uint64 {
	return uint64(1) << uint(windowLog) //nolint: gosec
}
