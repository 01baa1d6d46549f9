package baseline

import (
	"github.com/klauspost/compress/s2"

	"github.com/arloliu/zstdx/compress"
)

// S2 is the S2 block codec of klauspost/compress.
type S2 struct {
	better bool
}

var _ compress.Codec = S2{}

// NewS2 creates an S2 codec; better selects the slower, denser encoder.
func NewS2(better bool) S2 {
	return S2{better: better}
}

// Name returns "s2" or "s2-better".
func (c S2) Name() string {
	if c.better {
		return "s2-better"
	}

	return "s2"
}

// Compress compresses the input data using S2 compression.
func (c S2) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if c.better {
		return s2.EncodeBetter(nil, data), nil
	}

	return s2.Encode(nil, data), nil
}

// Decompress decompresses the input data using S2 decompression.
func (c S2) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Decode(nil, data)
}
