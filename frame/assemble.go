package frame

import "github.com/arloliu/zstdx/format"

// Options controls the header written by AppendFrame.
type Options struct {
	Format format.FrameFormat
	// DictionaryID is written to the header; 0 omits the field.
	DictionaryID uint32
	// Checksum appends the XXH64-based content checksum.
	Checksum bool
	// ContentSize writes a single-segment header declaring the content size.
	// Without it the header carries a window descriptor sized to the content.
	ContentSize bool
}

// Header returns the header AppendFrame writes for contentLen bytes of content.
func (o Options) Header(contentLen int) Header {
	h := Header{
		DictionaryID: o.DictionaryID,
		Checksum:     o.Checksum,
	}

	n := uint64(contentLen) //nolint: gosec
	if o.ContentSize {
		h.SingleSegment = true
		h.HasContentSize = true
		h.ContentSize = n
		h.WindowSize = n

		return h
	}

	h.WindowSize = max(n, 1<<format.MinWindowLog)
	// round up to what the descriptor can express so BlockMaximumSize matches the decoder's view
	if wd, err := windowDescriptor(h.WindowSize, 0, false); err == nil {
		base := uint64(1) << (format.MinWindowLog + uint64(wd>>3))
		h.WindowSize = base + (base/8)*uint64(wd&0x7)
	}

	return h
}

// AppendFrame appends a frame holding content to dst.
//
// encoded is a complete standard-format frame of content produced by a
// backend, or nil. Its blocks are re-emitted under the header described by
// opts, so the header fields and the checksum never depend on the backend.
// When encoded is nil, unusable, or not smaller than storing content raw, the
// frame is written with raw blocks instead.
func AppendFrame(dst, content, encoded []byte, opts Options) ([]byte, error) {
	h := opts.Header(len(content))

	dst, err := EncodeHeader(dst, h, opts.Format)
	if err != nil {
		return dst, err
	}

	maxBlock := h.BlockMaximumSize()
	if region, ok := compressedRegion(encoded, len(content), maxBlock); ok {
		dst = append(dst, region...)
	} else {
		dst = AppendRawBlocks(dst, content, maxBlock)
	}

	if opts.Checksum {
		dst = AppendChecksum(dst, Checksum(content))
	}

	return dst, nil
}

// compressedRegion returns the block bytes of encoded when they can be reused
// under a header whose Block_Maximum_Size is maxBlock.
func compressedRegion(encoded []byte, contentLen, maxBlock int) ([]byte, bool) {
	if len(encoded) == 0 {
		return nil, false
	}

	f, err := ScanFrame(encoded, format.FormatStandard, maxDescriptorWindowLog)
	if err != nil || f.Skippable || f.Size != len(encoded) {
		return nil, false
	}
	if f.Header.HasContentSize && f.Header.ContentSize != uint64(contentLen) { //nolint: gosec
		return nil, false
	}

	for _, b := range f.Blocks {
		if b.Size > maxBlock {
			return nil, false
		}
	}

	region := encoded[f.HeaderSize:f.blocksEnd()]
	if len(region) >= RawBlocksSize(contentLen, maxBlock) {
		return nil, false
	}

	return region, true
}

// RawBlocksSize returns the encoded size of contentLen bytes stored as raw
// blocks of at most maxBlock bytes.
func RawBlocksSize(contentLen, maxBlock int) int {
	if maxBlock <= 0 || maxBlock > format.MaxBlockSize {
		maxBlock = format.MaxBlockSize
	}

	blocks := (contentLen + maxBlock - 1) / maxBlock
	if blocks == 0 {
		blocks = 1
	}

	return contentLen + blocks*format.BlockHeaderSize
}

// MaxFrameSize returns an upper bound of the frame size AppendFrame produces
// for contentLen bytes of content.
func MaxFrameSize(contentLen int) int {
	return format.MagicSize + format.MaxFrameHeaderSize + RawBlocksSize(contentLen, format.MaxBlockSize) + format.ChecksumSize
}
