package compress

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/arloliu/zstdx/errs"
	"github.com/arloliu/zstdx/format"
)

// Params are the compression parameters shared by every backend.
//
// The zero value is not the default: use DefaultParams, which enables the
// checksum, the content size and the dictionary ID.
type Params struct {
	// Level is the compression level. 0 selects the default (3), negative
	// values clamp to 1 and values above 22 are rejected.
	Level int
	// WindowLog bounds match distances to 1<<WindowLog. 0 lets the backend
	// choose; otherwise it must be in [10, 27].
	WindowLog int
	// Checksum appends a content checksum to every frame.
	Checksum bool
	// LongDistance enables long distance matching. Without an explicit
	// WindowLog it implies a window log of 27.
	LongDistance bool
	// Threads is the number of jobs compressed in parallel; 0 and 1 compress inline.
	Threads int
	// JobSize is the content size of each frame. 0 selects a size from the
	// window log; otherwise it must be in [1KiB, 64MiB].
	JobSize int
	// ContentSize writes the content size into every frame header.
	ContentSize bool
	// DictID writes the dictionary ID into frame headers when a dictionary is used.
	DictID bool
	// Format selects standard or magicless frames.
	Format format.FrameFormat
}

// DefaultParams returns the default compression parameters.
func DefaultParams() Params {
	return Params{
		Level:       format.DefaultLevel,
		Checksum:    true,
		ContentSize: true,
		DictID:      true,
	}
}

// Validate reports every out-of-range parameter at once. Every error wraps
// errs.ErrInvalidParameters.
func (p Params) Validate() error {
	var err error

	if p.Level > format.MaxLevel {
		err = multierr.Append(err, fmt.Errorf("%w: level %d above maximum %d",
			errs.ErrInvalidParameters, p.Level, format.MaxLevel))
	}
	if p.WindowLog != 0 && (p.WindowLog < format.MinWindowLogParam || p.WindowLog > format.MaxWindowLogParam) {
		err = multierr.Append(err, fmt.Errorf("%w: window log %d outside [%d, %d]",
			errs.ErrInvalidParameters, p.WindowLog, format.MinWindowLogParam, format.MaxWindowLogParam))
	}
	if p.Threads < 0 || p.Threads > format.MaxThreads {
		err = multierr.Append(err, fmt.Errorf("%w: thread count %d outside [0, %d]",
			errs.ErrInvalidParameters, p.Threads, format.MaxThreads))
	}
	if p.JobSize != 0 && (p.JobSize < format.MinJobSize || p.JobSize > format.MaxJobSize) {
		err = multierr.Append(err, fmt.Errorf("%w: job size %d outside [%d, %d]",
			errs.ErrInvalidParameters, p.JobSize, format.MinJobSize, format.MaxJobSize))
	}
	if p.Format != format.FormatStandard && p.Format != format.FormatMagicless {
		err = multierr.Append(err, fmt.Errorf("%w: unknown frame format %d", errs.ErrInvalidParameters, p.Format))
	}

	return err
}

// resolved holds validated parameters with every default applied.
type resolved struct {
	level        int
	windowLog    int
	longDistance bool
	workers      int
	jobSize      int
	checksum     bool
	contentSize  bool
	dictID       bool
	format       format.FrameFormat
}

func (p Params) resolve() (resolved, error) {
	if err := p.Validate(); err != nil {
		return resolved{}, err
	}

	r := resolved{
		level:        p.Level,
		windowLog:    p.WindowLog,
		longDistance: p.LongDistance,
		workers:      max(p.Threads, 1),
		jobSize:      p.JobSize,
		checksum:     p.Checksum,
		contentSize:  p.ContentSize,
		dictID:       p.DictID,
		format:       p.Format,
	}

	switch {
	case r.level == 0:
		r.level = format.DefaultLevel
	case r.level < format.MinLevel:
		r.level = format.MinLevel
	}

	if r.longDistance && r.windowLog == 0 {
		r.windowLog = format.LongDistanceLog
	}

	if r.jobSize == 0 {
		r.jobSize = autoJobSize(r.windowLog)
	}

	return r, nil
}

// autoJobSize returns four windows per job, clamped to [1MiB, 64MiB].
func autoJobSize(windowLog int) int {
	if windowLog == 0 {
		return format.DefaultJobSize
	}

	return min(max(4<<windowLog, 1<<20), format.MaxJobSize)
}
