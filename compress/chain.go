package compress

import (
	"fmt"

	"github.com/arloliu/zstdx/backend"
	"github.com/arloliu/zstdx/dict"
	"github.com/arloliu/zstdx/errs"
	"github.com/arloliu/zstdx/format"
	"github.com/arloliu/zstdx/frame"
)

// CompressContentDictChain compresses chunks into a content-dictionary chain:
// the first frame stands alone and every later frame uses the content of the
// previous chunk as a raw dictionary. Every frame declares its content size,
// and every chunk must fit in a single frame of at most 64MiB.
func CompressContentDictChain(b backend.Backend, chunks [][]byte, opts ...CompressorOption) ([][]byte, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: empty chain", errs.ErrInvalidParameters)
	}

	frames := make([][]byte, 0, len(chunks))
	for i, chunk := range chunks {
		if len(chunk) > format.MaxJobSize {
			return nil, fmt.Errorf("%w: chunk %d holds %d bytes, chains allow at most %d per frame",
				errs.ErrInvalidParameters, i, len(chunk), format.MaxJobSize)
		}

		chainOpts := append([]CompressorOption{}, opts...)
		chainOpts = append(chainOpts, WithContentSize(true), WithJobSize(format.MaxJobSize))
		if i > 0 {
			chainOpts = append(chainOpts, WithDictionary(dict.Load(chunks[i-1])))
		}

		out, err := Compress(b, chunk, chainOpts...)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		frames = append(frames, out)
	}

	return frames, nil
}

// DecompressContentDictChain decodes a content-dictionary chain and returns
// the content of its last frame.
//
// Each element of frames must be exactly one frame declaring its content
// size; frame i is decoded with the content of frame i-1 as a raw dictionary.
//
// Returns:
//   - []byte: content of the last frame
//   - error: ErrInvalidParameters for an empty chain or a frame without a
//     content size, otherwise the error of the failing frame
func DecompressContentDictChain(b backend.Backend, frames [][]byte, opts ...DecompressorOption) ([]byte, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: empty chain", errs.ErrInvalidParameters)
	}

	var last []byte
	for i, src := range frames {
		if err := checkChainFrame(src); err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}

		chainOpts := opts
		if i > 0 {
			chainOpts = append(append([]DecompressorOption{}, opts...), WithDecoderDictionary(dict.Load(last)))
		}

		out, err := Decompress(b, src, chainOpts...)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		last = out
	}

	return last, nil
}

func checkChainFrame(src []byte) error {
	size, err := frame.FrameCompressedSize(src, format.FormatStandard)
	if err != nil {
		return err
	}
	if size != len(src) {
		return fmt.Errorf("%w: %d bytes after the frame", errs.ErrInvalidParameters, len(src)-size)
	}

	_, ok, err := frame.FrameContentSize(src, format.FormatStandard)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: missing content size in frame", errs.ErrInvalidParameters)
	}

	return nil
}
