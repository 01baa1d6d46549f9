package baseline

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/pierrec/lz4/v4"

	"github.com/arloliu/zstdx/compress"
)

// lz4CompressorPool pools lz4.Compressor instances; their hash tables are
// expensive to allocate.
var lz4CompressorPool = sync.Pool{
	New: func() any {
		return &lz4.Compressor{}
	},
}

// maxLZ4ContentSize bounds the size prefix a block may claim.
const maxLZ4ContentSize = 128 << 20

var errLZ4SizePrefix = errors.New("lz4: invalid content size prefix")

// LZ4 is the LZ4 block codec of pierrec/lz4. Blocks carry a 4-byte
// little-endian content size prefix so decoding allocates exactly once.
type LZ4 struct{}

var _ compress.Codec = LZ4{}

// NewLZ4 creates an LZ4 codec.
func NewLZ4() LZ4 {
	return LZ4{}
}

// Name returns "lz4".
func (LZ4) Name() string { return "lz4" }

// Compress compresses the input data using a pooled lz4.Compressor.
//
// Parameters:
//   - data: Input data to compress
//
// Returns:
//   - []byte: Compressed data (nil if input is empty)
//   - error: Compression error if any
func (LZ4) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) > maxLZ4ContentSize {
		return nil, fmt.Errorf("lz4: input of %d bytes exceeds %d", len(data), maxLZ4ContentSize)
	}

	dst := make([]byte, 4+lz4.CompressBlockBound(len(data)))
	binary.LittleEndian.PutUint32(dst, uint32(len(data))) //nolint: gosec

	lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)

	n, err := lc.CompressBlock(data, dst[4:])
	if err != nil {
		return nil, err
	}

	return dst[:4+n], nil
}

// Decompress decompresses a block produced by Compress.
func (LZ4) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) < 4 {
		return nil, errLZ4SizePrefix
	}

	size := binary.LittleEndian.Uint32(data)
	if size == 0 || size > maxLZ4ContentSize {
		return nil, errLZ4SizePrefix
	}

	buf := make([]byte, size)
	n, err := lz4.UncompressBlock(data[4:], buf)
	if err != nil {
		return nil, err
	}
	if n != int(size) {
		return nil, fmt.Errorf("lz4: decoded %d bytes, prefix declares %d", n, size)
	}

	return buf, nil
}
