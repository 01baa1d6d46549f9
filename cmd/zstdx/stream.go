package main

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/arloliu/zstdx/compress"
)

func (a *app) compress(args []string) error {
	var (
		common     commonFlags
		output     string
		level      int
		threads    int
		jobSize    int
		noChecksum bool
	)

	fs := a.newFlagSet("compress", &common)
	fs.StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	fs.IntVarP(&level, "level", "l", 0, "compression level 1..22")
	fs.IntVarP(&threads, "threads", "T", 0, "jobs compressed in parallel")
	fs.IntVar(&jobSize, "job-size", 0, "content bytes per frame")
	fs.BoolVar(&noChecksum, "no-checksum", false, "omit the content checksum")

	if err := a.parse(fs, &common, args); err != nil {
		if helpRequested(err) {
			return nil
		}

		return err
	}
	input, err := singleInput(fs.Args())
	if err != nil {
		return err
	}

	cfg, b, d, err := a.open(&common)
	if err != nil {
		return err
	}

	if fs.Changed("level") {
		cfg.Compression.Level = level
	}
	if fs.Changed("threads") {
		cfg.Compression.Threads = threads
	}
	if fs.Changed("job-size") {
		cfg.Compression.JobSize = jobSize
	}
	if noChecksum {
		cfg.Compression.Checksum = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	src, err := a.openInput(input)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := a.openOutput(output)
	if err != nil {
		return err
	}

	read, written, err := compress.Copy(dst, src, b, cfg.CompressorOptions(d)...)
	err = multierr.Append(err, dst.Close())
	if err != nil {
		return err
	}

	a.logger.Info("compressed",
		zap.Stringer("backend", b.Policy()),
		zap.Int64("read", read),
		zap.Int64("written", written))

	return nil
}

func (a *app) decompress(args []string) error {
	var (
		common        commonFlags
		output        string
		maxOutputSize int
	)

	fs := a.newFlagSet("decompress", &common)
	fs.StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	fs.IntVar(&maxOutputSize, "max-output-size", 0, "largest content produced per read, 0 for unlimited")

	if err := a.parse(fs, &common, args); err != nil {
		if helpRequested(err) {
			return nil
		}

		return err
	}
	input, err := singleInput(fs.Args())
	if err != nil {
		return err
	}

	cfg, b, d, err := a.open(&common)
	if err != nil {
		return err
	}
	if fs.Changed("max-output-size") {
		cfg.Decompression.MaxOutputSize = maxOutputSize
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	src, err := a.openInput(input)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := a.openOutput(output)
	if err != nil {
		return err
	}

	read, written, err := compress.CopyDecompressed(dst, src, b, cfg.DecompressorOptions(d)...)
	err = multierr.Append(err, dst.Close())
	if err != nil {
		return err
	}

	a.logger.Info("decompressed",
		zap.Stringer("backend", b.Policy()),
		zap.Int64("read", read),
		zap.Int64("written", written))

	return nil
}
