package compress

import (
	"github.com/arloliu/zstdx/backend"
)

// Codec compresses and decompresses whole buffers.
//
// Codec is the common shape of the zstd codec below and the baseline codecs
// the comparison report measures it against. Implementations are safe for
// concurrent use.
type Codec interface {
	// Name identifies the codec in reports, e.g. "zstd-alternative" or "lz4".
	Name() string
	// Compress returns a newly allocated compressed copy of data.
	Compress(data []byte) ([]byte, error)
	// Decompress returns a newly allocated decompressed copy of data.
	Decompress(data []byte) ([]byte, error)
}

// ZstdCodec adapts the one-shot Compress and Decompress functions to Codec.
//
// Every call runs its own engine session, so a ZstdCodec is safe for
// concurrent use.
type ZstdCodec struct {
	backend backend.Backend
	copts   []CompressorOption
	dopts   []DecompressorOption
}

var _ Codec = (*ZstdCodec)(nil)

// NewCodec creates a codec compressing at level with kernels of b.
//
// Example:
//
//	codec := compress.NewCodec(b, 19)
//	compressed, err := codec.Compress(payload)
func NewCodec(b backend.Backend, level int, opts ...CompressorOption) *ZstdCodec {
	copts := append([]CompressorOption{WithLevel(level)}, opts...)

	return &ZstdCodec{backend: b, copts: copts}
}

// WithDecoderOptions returns a copy of z that decompresses with opts.
func (z *ZstdCodec) WithDecoderOptions(opts ...DecompressorOption) *ZstdCodec {
	clone := *z
	clone.dopts = append(append([]DecompressorOption{}, z.dopts...), opts...)

	return &clone
}

// Name returns "zstd-" followed by the backend policy.
func (z *ZstdCodec) Name() string {
	return "zstd-" + z.backend.Policy().String()
}

// Compress compresses data into one or more frames.
func (z *ZstdCodec) Compress(data []byte) ([]byte, error) {
	return Compress(z.backend, data, z.copts...)
}

// Decompress decodes every frame in data.
func (z *ZstdCodec) Decompress(data []byte) ([]byte, error) {
	return Decompress(z.backend, data, z.dopts...)
}
