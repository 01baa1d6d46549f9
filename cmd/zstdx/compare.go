package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/arloliu/zstdx/compress"
	"github.com/arloliu/zstdx/internal/baseline"
)

type compareResult struct {
	codec      string
	size       int
	compressed int
	compress   time.Duration
	decompress time.Duration
}

func (r compareResult) ratio() float64 {
	if r.compressed == 0 {
		return 0
	}

	return float64(r.size) / float64(r.compressed)
}

// compare measures zstd on the selected backend against every baseline codec.
func (a *app) compare(args []string) error {
	var (
		common commonFlags
		level  int
		rounds int
	)

	fs := a.newFlagSet("compare", &common)
	fs.IntVarP(&level, "level", "l", 0, "zstd compression level (default: configured level)")
	fs.IntVar(&rounds, "rounds", 3, "timed rounds per codec; the fastest is reported")

	if err := a.parse(fs, &common, args); err != nil {
		if helpRequested(err) {
			return nil
		}

		return err
	}
	if rounds < 1 {
		return fmt.Errorf("%w: --rounds must be positive", errUsage)
	}

	cfg, b, d, err := a.open(&common)
	if err != nil {
		return err
	}
	if fs.Changed("level") {
		cfg.Compression.Level = level
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	data, err := a.readInputs(fs.Args())
	if err != nil {
		return err
	}

	codecs := []compress.Codec{
		compress.NewCodec(b, cfg.Compression.Level, cfg.CompressorOptions(d)...).
			WithDecoderOptions(cfg.DecompressorOptions(d)...),
	}
	for _, name := range baseline.Names() {
		codec, err := baseline.Get(name)
		if err != nil {
			return err
		}
		codecs = append(codecs, codec)
	}

	results := make([]compareResult, 0, len(codecs))
	for _, codec := range codecs {
		r, err := measure(codec, data, rounds)
		if err != nil {
			return fmt.Errorf("%s: %w", codec.Name(), err)
		}
		results = append(results, r)
	}

	printComparison(a.stdout, results)

	return nil
}

func (a *app) readInputs(paths []string) ([]byte, error) {
	if len(paths) == 0 {
		return io.ReadAll(a.stdin)
	}

	var buf bytes.Buffer
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}

	return buf.Bytes(), nil
}

func measure(codec compress.Codec, data []byte, rounds int) (compareResult, error) {
	r := compareResult{codec: codec.Name(), size: len(data)}

	for i := range rounds {
		start := time.Now()
		compressed, err := codec.Compress(data)
		if err != nil {
			return r, err
		}
		elapsed := time.Since(start)
		if i == 0 || elapsed < r.compress {
			r.compress = elapsed
		}
		r.compressed = len(compressed)

		start = time.Now()
		out, err := codec.Decompress(compressed)
		if err != nil {
			return r, err
		}
		elapsed = time.Since(start)
		if i == 0 || elapsed < r.decompress {
			r.decompress = elapsed
		}

		if !bytes.Equal(out, data) {
			return r, fmt.Errorf("round trip mismatch")
		}
	}

	return r, nil
}

func printComparison(w io.Writer, results []compareResult) {
	fmt.Fprintf(w, "%-18s | %-12s | %-12s | %-8s | %-14s | %-14s\n",
		"Codec", "Input", "Output", "Ratio", "Compress", "Decompress")
	fmt.Fprintln(w, strings.Repeat("-", 92))

	for _, r := range results {
		fmt.Fprintf(w, "%-18s | %-12d | %-12d | %-8s | %-14s | %-14s\n",
			r.codec, r.size, r.compressed,
			fmt.Sprintf("%.2fx", r.ratio()),
			throughput(r.size, r.compress),
			throughput(r.size, r.decompress))
	}
}

func throughput(n int, d time.Duration) string {
	if d <= 0 {
		return "-"
	}

	return fmt.Sprintf("%.1f MB/s", float64(n)/d.Seconds()/1e6)
}
