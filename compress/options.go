package compress

import (
	"fmt"

	"github.com/arloliu/zstdx/dict"
	"github.com/arloliu/zstdx/errs"
	"github.com/arloliu/zstdx/format"
	"github.com/arloliu/zstdx/internal/options"
	"github.com/arloliu/zstdx/internal/pool"
)

// CompressorConfig collects the settings of a Compressor.
type CompressorConfig struct {
	params Params
	dict   *dict.Dictionary
	bufs   *pool.Manager
}

func newCompressorConfig() *CompressorConfig {
	return &CompressorConfig{
		params: DefaultParams(),
		bufs:   pool.Default,
	}
}

// CompressorOption configures a Compressor.
type CompressorOption = options.Option[*CompressorConfig]

// WithParams replaces every compression parameter at once.
func WithParams(p Params) CompressorOption {
	return options.NoError(func(c *CompressorConfig) {
		c.params = p
	})
}

// WithLevel sets the compression level.
func WithLevel(level int) CompressorOption {
	return options.NoError(func(c *CompressorConfig) {
		c.params.Level = level
	})
}

// WithWindowLog sets the window log; 0 lets the backend choose.
func WithWindowLog(windowLog int) CompressorOption {
	return options.NoError(func(c *CompressorConfig) {
		c.params.WindowLog = windowLog
	})
}

// WithChecksum enables or disables the frame content checksum. Enabled by default.
func WithChecksum(enabled bool) CompressorOption {
	return options.NoError(func(c *CompressorConfig) {
		c.params.Checksum = enabled
	})
}

// WithLongDistance enables long distance matching.
func WithLongDistance(enabled bool) CompressorOption {
	return options.NoError(func(c *CompressorConfig) {
		c.params.LongDistance = enabled
	})
}

// WithThreads sets the number of jobs compressed in parallel.
func WithThreads(threads int) CompressorOption {
	return options.NoError(func(c *CompressorConfig) {
		c.params.Threads = threads
	})
}

// WithJobSize sets the content size of each frame.
func WithJobSize(size int) CompressorOption {
	return options.NoError(func(c *CompressorConfig) {
		c.params.JobSize = size
	})
}

// WithContentSize controls whether frame headers declare their content size.
// Enabled by default.
func WithContentSize(enabled bool) CompressorOption {
	return options.NoError(func(c *CompressorConfig) {
		c.params.ContentSize = enabled
	})
}

// WithDictID controls whether frame headers carry the dictionary ID.
// Enabled by default.
func WithDictID(enabled bool) CompressorOption {
	return options.NoError(func(c *CompressorConfig) {
		c.params.DictID = enabled
	})
}

// WithFormat selects the frame format.
func WithFormat(f format.FrameFormat) CompressorOption {
	return options.New(func(c *CompressorConfig) error {
		if f != format.FormatStandard && f != format.FormatMagicless {
			return fmt.Errorf("%w: unknown frame format %d", errs.ErrInvalidParameters, f)
		}
		c.params.Format = f

		return nil
	})
}

// WithDictionary compresses against d.
func WithDictionary(d *dict.Dictionary) CompressorOption {
	return options.NoError(func(c *CompressorConfig) {
		c.dict = d
	})
}

func withCompressorBuffers(m *pool.Manager) CompressorOption {
	return options.NoError(func(c *CompressorConfig) {
		c.bufs = m
	})
}

// DecompressorConfig collects the settings of a Decompressor.
type DecompressorConfig struct {
	dict          *dict.Dictionary
	maxWindowLog  int
	maxOutputSize int
	format        format.FrameFormat
	bufs          *pool.Manager
}

func newDecompressorConfig() *DecompressorConfig {
	return &DecompressorConfig{
		maxWindowLog: format.DefaultMaxWindowLog,
		bufs:         pool.Default,
	}
}

// DecompressorOption configures a Decompressor.
type DecompressorOption = options.Option[*DecompressorConfig]

// WithDecoderDictionary supplies the dictionary frames were compressed with.
func WithDecoderDictionary(d *dict.Dictionary) DecompressorOption {
	return options.NoError(func(c *DecompressorConfig) {
		c.dict = d
	})
}

// WithMaxWindowLog rejects frames whose window exceeds 1<<windowLog.
// The default is 27.
func WithMaxWindowLog(windowLog int) DecompressorOption {
	return options.New(func(c *DecompressorConfig) error {
		if windowLog < format.MinWindowLog || windowLog > format.MaxWindowLog {
			return fmt.Errorf("%w: max window log %d outside [%d, %d]",
				errs.ErrInvalidParameters, windowLog, format.MinWindowLog, format.MaxWindowLog)
		}
		c.maxWindowLog = windowLog

		return nil
	})
}

// WithMaxOutputSize bounds the bytes a single Decompress call returns.
// Frames that do not fit stay buffered for the next call; a single frame
// larger than the bound fails with errs.ErrResourceLimit. 0 means unbounded.
func WithMaxOutputSize(size int) DecompressorOption {
	return options.New(func(c *DecompressorConfig) error {
		if size < 0 {
			return fmt.Errorf("%w: negative max output size %d", errs.ErrInvalidParameters, size)
		}
		c.maxOutputSize = size

		return nil
	})
}

// WithDecoderFormat selects the frame format to expect.
func WithDecoderFormat(f format.FrameFormat) DecompressorOption {
	return options.New(func(c *DecompressorConfig) error {
		if f != format.FormatStandard && f != format.FormatMagicless {
			return fmt.Errorf("%w: unknown frame format %d", errs.ErrInvalidParameters, f)
		}
		c.format = f

		return nil
	})
}

func withDecompressorBuffers(m *pool.Manager) DecompressorOption {
	return options.NoError(func(c *DecompressorConfig) {
		c.bufs = m
	})
}
