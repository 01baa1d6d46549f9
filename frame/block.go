package frame

import (
	"fmt"

	"github.com/arloliu/zstdx/errs"
	"github.com/arloliu/zstdx/format"
)

const maxBlockSizeField = 1<<21 - 1

// Block is a single block of a frame.
//
// Payload holds Size bytes for raw and compressed blocks and exactly one byte
// for RLE blocks. Slices returned by DecodeBlock alias the source buffer.
type Block struct {
	Type    format.BlockType
	Last    bool
	Size    int
	Payload []byte
}

// RegeneratedSize returns the number of content bytes the block produces, or
// -1 for compressed blocks whose size is only known after decoding.
func (b Block) RegeneratedSize() int {
	switch b.Type {
	case format.BlockRaw, format.BlockRLE:
		return b.Size
	default:
		return -1
	}
}

// EncodedSize returns the block size on the wire, header included.
func (b Block) EncodedSize() int {
	return format.BlockHeaderSize + payloadSize(b.Type, b.Size)
}

func payloadSize(t format.BlockType, size int) int {
	if t == format.BlockRLE {
		return 1
	}

	return size
}

// AppendBlock appends the 3-byte block header and payload of b to dst.
func AppendBlock(dst []byte, b Block) ([]byte, error) {
	if b.Type == format.BlockReserved || b.Type > format.BlockReserved {
		return dst, fmt.Errorf("%w: cannot encode block type %s", errs.ErrInvalidParameters, b.Type)
	}
	if b.Size < 0 || b.Size > maxBlockSizeField {
		return dst, fmt.Errorf("%w: block size %d out of range", errs.ErrInvalidParameters, b.Size)
	}
	if want := payloadSize(b.Type, b.Size); len(b.Payload) != want {
		return dst, fmt.Errorf("%w: %s block payload is %d bytes, want %d",
			errs.ErrInvalidParameters, b.Type, len(b.Payload), want)
	}

	hdr := uint32(b.Size)<<3 | uint32(b.Type)<<1 //nolint: gosec
	if b.Last {
		hdr |= 1
	}
	dst = append(dst, byte(hdr), byte(hdr>>8), byte(hdr>>16))

	return append(dst, b.Payload...), nil
}

// AppendRawBlocks appends content to dst as a sequence of raw blocks of at
// most maxBlock bytes each. The final block carries the Last flag. Empty
// content produces a single empty raw block.
func AppendRawBlocks(dst, content []byte, maxBlock int) []byte {
	if maxBlock <= 0 || maxBlock > format.MaxBlockSize {
		maxBlock = format.MaxBlockSize
	}

	for {
		n := min(len(content), maxBlock)
		last := n == len(content)
		hdr := uint32(n)<<3 | uint32(format.BlockRaw)<<1 //nolint: gosec
		if last {
			hdr |= 1
		}
		dst = append(dst, byte(hdr), byte(hdr>>8), byte(hdr>>16))
		dst = append(dst, content[:n]...)
		content = content[n:]
		if last {
			return dst
		}
	}
}

// DecodeBlock decodes the block at the start of src.
//
// Parameters:
//   - src: bytes starting at a block header
//   - maxBlockSize: the frame's Block_Maximum_Size
//
// Returns:
//   - Block: the decoded block, payload aliasing src
//   - int: bytes consumed, header included
//   - error: ErrNeedMoreInput if the block is incomplete, ErrMalformedFrame
//     on a reserved block type or an oversized block
func DecodeBlock(src []byte, maxBlockSize int) (Block, int, error) {
	if len(src) < format.BlockHeaderSize {
		return Block{}, 0, ErrNeedMoreInput
	}

	hdr := uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16
	b := Block{
		Last: hdr&1 == 1,
		Type: format.BlockType((hdr >> 1) & 0x3),
		Size: int(hdr >> 3),
	}

	if b.Type == format.BlockReserved {
		return Block{}, 0, fmt.Errorf("%w: reserved block type", errs.ErrMalformedFrame)
	}
	if b.Size > maxBlockSize {
		return Block{}, 0, fmt.Errorf("%w: block size %d exceeds maximum %d",
			errs.ErrMalformedFrame, b.Size, maxBlockSize)
	}

	n := format.BlockHeaderSize + payloadSize(b.Type, b.Size)
	if len(src) < n {
		return Block{}, 0, ErrNeedMoreInput
	}
	b.Payload = src[format.BlockHeaderSize:n]

	return b, n, nil
}
