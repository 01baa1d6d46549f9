// Package backend selects and provides the frame kernels behind the
// compression and decompression engines.
//
// Three kernels exist:
//
//   - native: cgo binding to the system libzstd (build tag zstd_cgo)
//   - bridge: libzstd loaded at run time through purego, no cgo required
//   - alternative: the pure Go encoder and decoder of klauspost/compress
//
// A kernel only turns one job into one standard frame and one frame back into
// content. Frame headers, checksums, dictionary checks and error kinds are
// owned by the engines and the frame codec, so every kernel is observed the
// same way.
package backend

import (
	"fmt"
	"strings"

	"github.com/arloliu/zstdx/dict"
	"github.com/arloliu/zstdx/errs"
	"github.com/arloliu/zstdx/format"
)

// Policy names a backend, or asks the selector to choose one.
type Policy uint8

const (
	PolicyAuto Policy = iota
	PolicyNative
	PolicyBridge
	PolicyAlternative
)

func (p Policy) String() string {
	switch p {
	case PolicyAuto:
		return "auto"
	case PolicyNative:
		return "native"
	case PolicyBridge:
		return "bridge"
	case PolicyAlternative:
		return "alternative"
	default:
		return "unknown"
	}
}

// ParsePolicy parses a policy name. Matching is case-insensitive and an empty
// string selects PolicyAuto.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return PolicyAuto, nil
	case "native", "cext":
		return PolicyNative, nil
	case "bridge", "cffi":
		return PolicyBridge, nil
	case "alternative", "rust", "go":
		return PolicyAlternative, nil
	default:
		return PolicyAuto, fmt.Errorf("%w: unknown backend policy %q", errs.ErrInvalidParameters, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed

	return nil
}

// EncoderConfig holds resolved compression parameters for one frame encoder.
type EncoderConfig struct {
	// Level is the compression level in [1, 22].
	Level int
	// WindowLog bounds match distances; 0 leaves it to the library.
	WindowLog int
	// LongDistance enables long distance matching where the kernel supports it.
	LongDistance bool
	Dict         *dict.Dictionary
}

// DecoderConfig holds the parameters of one frame decoder.
type DecoderConfig struct {
	// MaxWindowLog is the largest window the decoder accepts.
	MaxWindowLog int
	Dict         *dict.Dictionary
}

// FrameEncoder compresses jobs into single frames. It is not safe for
// concurrent use; the compression engine creates one per worker.
type FrameEncoder interface {
	// EncodeFrame appends one complete standard frame holding src to dst.
	EncodeFrame(dst, src []byte) ([]byte, error)
	Close() error
}

// FrameDecoder decodes single frames. It is not safe for concurrent use.
type FrameDecoder interface {
	// DecodeFrame appends the content of the frame src to dst. capacity is
	// the exact content size when the frame declares one, otherwise an upper
	// bound derived from its block count.
	DecodeFrame(dst, src []byte, capacity int) ([]byte, error)
	Close() error
}

// Backend creates frame kernels. Implementations are safe for concurrent use.
type Backend interface {
	Policy() Policy
	// Version describes the underlying library, e.g. "libzstd 1.5.6".
	Version() string
	NewFrameEncoder(cfg EncoderConfig) (FrameEncoder, error)
	NewFrameDecoder(cfg DecoderConfig) (FrameDecoder, error)
}

func maxWindowLogOrDefault(windowLog int) int {
	if windowLog <= 0 {
		return format.DefaultMaxWindowLog
	}

	return windowLog
}
