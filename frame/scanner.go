package frame

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/arloliu/zstdx/errs"
	"github.com/arloliu/zstdx/format"
)

// BlockRef locates a block inside the frame it was scanned from.
type BlockRef struct {
	Type format.BlockType
	Last bool
	Size int
	// Offset is the position of the block header relative to the frame start.
	Offset int
}

// Payload returns the block payload from frameBytes, the bytes of the frame
// the block was scanned from.
func (r BlockRef) Payload(frameBytes []byte) []byte {
	start := r.Offset + format.BlockHeaderSize

	return frameBytes[start : start+payloadSize(r.Type, r.Size)]
}

// Frame describes a fully scanned frame.
type Frame struct {
	Header Header
	// HeaderSize is the header length, magic included. For skippable frames it is 8.
	HeaderSize int
	Blocks     []BlockRef
	// Checksum is the stored content checksum, valid when Header.Checksum is set.
	Checksum uint32
	// Size is the total encoded size of the frame.
	Size int

	Skippable        bool
	SkippableVariant uint8
	// SkippableSize is the length of the user data of a skippable frame.
	SkippableSize uint32
}

// IsSimple reports whether every block is raw or RLE, so the frame can be
// decoded without an entropy decoder.
func (f *Frame) IsSimple() bool {
	for _, b := range f.Blocks {
		if b.Type == format.BlockCompressed {
			return false
		}
	}

	return true
}

// MaxContentSize returns an upper bound of the content the blocks can
// produce: raw and RLE blocks count their exact size, compressed blocks the
// block maximum.
func (f *Frame) MaxContentSize() uint64 {
	maxBlock := uint64(f.Header.BlockMaximumSize()) //nolint: gosec
	var n uint64
	for _, b := range f.Blocks {
		if b.Type == format.BlockCompressed {
			n += maxBlock
		} else {
			n += uint64(b.Size) //nolint: gosec
		}
	}

	return n
}

// blocksEnd returns the offset just past the last block.
func (f *Frame) blocksEnd() int {
	if f.Header.Checksum {
		return f.Size - format.ChecksumSize
	}

	return f.Size
}

// maxDescriptorWindowLog is the largest window log a window descriptor can express.
const maxDescriptorWindowLog = format.MinWindowLog + 31

type scanStage uint8

const (
	stageStart scanStage = iota
	stageBlocks
	stageChecksum
	stageDone
)

// Scanner validates a frame incrementally as its bytes arrive.
//
// Each call to Scan receives the frame bytes buffered so far, starting at the
// frame's first byte. Work already done is not repeated: the scanner resumes at
// the first block it could not complete. A Scanner is not safe for concurrent use.
type Scanner struct {
	format    format.FrameFormat
	maxWindow uint64

	stage     scanStage
	off       int
	maxBlock  int
	regenSize uint64
	frame     Frame
}

// NewScanner creates a scanner for frames of format f. Frames whose window
// exceeds 1<<maxWindowLog are rejected; maxWindowLog <= 0 selects the default of 27.
func NewScanner(f format.FrameFormat, maxWindowLog int) *Scanner {
	if maxWindowLog <= 0 {
		maxWindowLog = format.DefaultMaxWindowLog
	}

	return &Scanner{
		format:    f,
		maxWindow: WindowSizeFromLog(maxWindowLog),
	}
}

// Reset prepares the scanner for the next frame.
func (s *Scanner) Reset() {
	blocks := s.frame.Blocks[:0]
	*s = Scanner{format: s.format, maxWindow: s.maxWindow}
	s.frame.Blocks = blocks
}

// Started reports whether the scanner has decoded the current frame's header.
func (s *Scanner) Started() bool {
	return s.stage != stageStart
}

// Scan continues scanning the frame at the start of src.
//
// For skippable frames Scan returns as soon as the 8-byte header is known; the
// caller is responsible for discarding Frame.Size bytes.
//
// Returns:
//   - *Frame: the scanned frame, valid until the next Reset
//   - error: ErrNeedMoreInput if the frame is incomplete, ErrMalformedFrame
//     on a structural violation
func (s *Scanner) Scan(src []byte) (*Frame, error) {
	for {
		switch s.stage {
		case stageStart:
			if err := s.scanHeader(src); err != nil {
				return nil, err
			}
		case stageBlocks:
			if err := s.scanBlocks(src); err != nil {
				return nil, err
			}
		case stageChecksum:
			sum, err := readChecksum(src[s.off:])
			if err != nil {
				return nil, err
			}
			s.frame.Checksum = sum
			s.off += format.ChecksumSize
			s.stage = stageDone
		case stageDone:
			s.frame.Size = s.off
			return &s.frame, nil
		}
	}
}

func (s *Scanner) scanHeader(src []byte) error {
	if s.format == format.FormatStandard {
		if len(src) < format.MagicSize {
			return ErrNeedMoreInput
		}
		if format.IsSkippableMagic(binary.LittleEndian.Uint32(src)) {
			variant, size, err := DecodeSkippableHeader(src)
			if err != nil {
				return err
			}
			s.frame.Skippable = true
			s.frame.SkippableVariant = variant
			s.frame.SkippableSize = size
			s.frame.HeaderSize = format.SkippableHeaderSize
			s.off = format.SkippableHeaderSize + int(size)
			s.stage = stageDone

			return nil
		}
	}

	h, n, err := DecodeHeader(src, s.format)
	if err != nil {
		return err
	}
	if h.WindowSize > s.maxWindow {
		return fmt.Errorf("%w: window size %d exceeds decoder limit %d", errs.ErrMalformedFrame, h.WindowSize, s.maxWindow)
	}

	s.frame.Header = h
	s.frame.HeaderSize = n
	s.off = n
	s.maxBlock = h.BlockMaximumSize()
	s.stage = stageBlocks

	return nil
}

func (s *Scanner) scanBlocks(src []byte) error {
	h := &s.frame.Header
	for {
		b, n, err := DecodeBlock(src[s.off:], s.maxBlock)
		if err != nil {
			return err
		}

		if r := b.RegeneratedSize(); r > 0 {
			s.regenSize += uint64(r)
			if h.HasContentSize && s.regenSize > h.ContentSize {
				return fmt.Errorf("%w: blocks exceed declared content size %d", errs.ErrMalformedFrame, h.ContentSize)
			}
		}

		s.frame.Blocks = append(s.frame.Blocks, BlockRef{Type: b.Type, Last: b.Last, Size: b.Size, Offset: s.off})
		s.off += n

		if b.Last {
			if h.HasContentSize && h.ContentSize > s.frame.MaxContentSize() {
				return fmt.Errorf("%w: blocks cannot produce declared content size %d", errs.ErrMalformedFrame, h.ContentSize)
			}
			if h.Checksum {
				s.stage = stageChecksum
			} else {
				s.stage = stageDone
			}

			return nil
		}
	}
}

// ScanFrame scans the complete frame at the start of src. A frame that runs
// past the end of src is reported as ErrMalformedFrame.
func ScanFrame(src []byte, f format.FrameFormat, maxWindowLog int) (*Frame, error) {
	fr, err := NewScanner(f, maxWindowLog).Scan(src)
	if errors.Is(err, ErrNeedMoreInput) {
		return nil, fmt.Errorf("%w: truncated frame", errs.ErrMalformedFrame)
	}
	if err != nil {
		return nil, err
	}
	if fr.Size > len(src) {
		return nil, fmt.Errorf("%w: truncated skippable frame", errs.ErrMalformedFrame)
	}

	return fr, nil
}

// FrameCompressedSize returns the encoded size of the frame at the start of src.
func FrameCompressedSize(src []byte, f format.FrameFormat) (int, error) {
	fr, err := ScanFrame(src, f, maxDescriptorWindowLog)
	if err != nil {
		return 0, err
	}

	return fr.Size, nil
}

// FrameContentSize returns the content size declared by the frame header at
// the start of src. The bool is false when the header declares none.
// Skippable frames report a content size of zero.
func FrameContentSize(src []byte, f format.FrameFormat) (uint64, bool, error) {
	if f == format.FormatStandard && len(src) >= format.MagicSize &&
		format.IsSkippableMagic(binary.LittleEndian.Uint32(src)) {
		return 0, true, nil
	}

	h, _, err := DecodeHeader(src, f)
	if errors.Is(err, ErrNeedMoreInput) {
		return 0, false, fmt.Errorf("%w: truncated frame header", errs.ErrMalformedFrame)
	}
	if err != nil {
		return 0, false, err
	}

	return h.ContentSize, h.HasContentSize, nil
}

// HeaderSize returns the size of the frame header at the start of src, magic included.
func HeaderSize(src []byte, f format.FrameFormat) (int, error) {
	if f == format.FormatStandard && len(src) >= format.MagicSize &&
		format.IsSkippableMagic(binary.LittleEndian.Uint32(src)) {
		return format.SkippableHeaderSize, nil
	}

	_, n, err := DecodeHeader(src, f)
	if errors.Is(err, ErrNeedMoreInput) {
		return 0, fmt.Errorf("%w: truncated frame header", errs.ErrMalformedFrame)
	}
	if err != nil {
		return 0, err
	}

	return n, nil
}
