package parity

import (
	"bytes"
	"fmt"
	"math/rand/v2"

	"github.com/arloliu/zstdx/compress"
	"github.com/arloliu/zstdx/dict"
	"github.com/arloliu/zstdx/format"
)

// DefaultCases returns the standard parity corpus: empty input, short text,
// repetitive log lines, zeros, incompressible bytes, a multi-job stream, and
// a dictionary-compressed record.
func DefaultCases() []Case {
	logs := logLines(256 << 10)
	history := logLines(16 << 10)

	return []Case{
		{Name: "empty"},
		{Name: "short-text", Data: []byte("the quick brown fox jumps over the lazy dog")},
		{Name: "log-lines", Data: logs},
		{Name: "zeros", Data: make([]byte, 200<<10)},
		{Name: "random", Data: randomBytes(64<<10, 1)},
		{
			Name: "multi-job",
			Data: logs,
			Opts: []compress.CompressorOption{compress.WithJobSize(32 * format.MinJobSize), compress.WithLevel(6)},
		},
		{
			Name: "no-checksum",
			Data: logs[:40<<10],
			Opts: []compress.CompressorOption{compress.WithChecksum(false), compress.WithContentSize(false)},
		},
		{
			Name: "dictionary",
			Data: logLines(2 << 10),
			Dict: dict.Load(history),
		},
	}
}

func logLines(size int) []byte {
	levels := []string{"INFO", "WARN", "DEBUG", "ERROR"}

	var buf bytes.Buffer
	for i := 0; buf.Len() < size; i++ {
		fmt.Fprintf(&buf, "2024-05-%02d 12:%02d:%02d %s request_id=%08x path=/api/v1/items/%d status=%d\n",
			1+i%28, i%60, (i*7)%60, levels[i%len(levels)], i*2654435761, i%977, 200+(i%5)*100)
	}

	return buf.Bytes()[:size]
}

func randomBytes(size int, seed uint64) []byte {
	r := rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)) //nolint: gosec
	out := make([]byte, size)
	for i := range out {
		out[i] = byte(r.Uint32())
	}

	return out
}
