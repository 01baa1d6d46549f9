package compress

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/arloliu/zstdx/backend"
	"github.com/arloliu/zstdx/errs"
)

// Compress compresses src in one call. The output is byte-identical to
// pushing src through a Compressor in any chunking and calling Finish.
//
// Example:
//
//	b, err := backend.Select(backend.Config{})
//	if err != nil {
//		return err
//	}
//	compressed, err := compress.Compress(b, data, compress.WithLevel(9))
func Compress(b backend.Backend, src []byte, opts ...CompressorOption) ([]byte, error) {
	c, err := NewCompressor(b, opts...)
	if err != nil {
		return nil, err
	}

	out, err := c.Compress(src)
	if err != nil {
		return nil, multierr.Append(err, c.Close())
	}

	tail, err := c.Finish()
	if err != nil {
		return nil, err
	}

	return append(out, tail...), nil
}

// Decompress decodes every frame in src in one call.
//
// src must hold whole frames; trailing partial frames and empty input fail
// with ErrMalformedFrame. With WithMaxOutputSize, content beyond the limit
// fails with ErrResourceLimit instead of being returned in pieces.
func Decompress(b backend.Backend, src []byte, opts ...DecompressorOption) ([]byte, error) {
	d, err := NewDecompressor(b, opts...)
	if err != nil {
		return nil, err
	}

	out, _, err := d.Decompress(src)
	if err != nil {
		return nil, multierr.Append(err, d.Close())
	}

	if d.buffered() {
		err = fmt.Errorf("%w: content exceeds output limit %d", errs.ErrResourceLimit, d.cfg.maxOutputSize)
		return nil, multierr.Append(err, d.Close())
	}

	if err := d.Finish(); err != nil {
		return nil, err
	}

	return out, nil
}
