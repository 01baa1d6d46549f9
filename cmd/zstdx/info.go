package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/arloliu/zstdx/format"
	"github.com/arloliu/zstdx/frame"
)

// info prints one row per frame, in the table layout of the measurement tools.
func (a *app) info(args []string) error {
	var common commonFlags

	fs := a.newFlagSet("info", &common)
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

	cfg, err := a.loadConfig(&common)
	if err != nil {
		return err
	}

	src, err := a.openInput(input)
	if err != nil {
		return err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return err
	}

	return printFrames(a.stdout, data, cfg.Params().Format)
}

func printFrames(w io.Writer, data []byte, f format.FrameFormat) error {
	fmt.Fprintf(w, "%-5s | %-9s | %-10s | %-12s | %-7s | %-10s | %-10s | %-8s\n",
		"Frame", "Type", "Size", "Content", "Blocks", "Window", "Dict ID", "Checksum")
	fmt.Fprintln(w, strings.Repeat("-", 92))

	var total, content uint64
	for i := 0; len(data) > 0; i++ {
		fr, err := frame.ScanFrame(data, f, format.MaxWindowLog)
		if err != nil {
			return fmt.Errorf("frame %d at offset %d: %w", i, total, err)
		}

		if fr.Skippable {
			fmt.Fprintf(w, "%-5d | %-9s | %-10d | %-12s | %-7s | %-10s | %-10s | %-8s\n",
				i, fmt.Sprintf("skip-%d", fr.SkippableVariant), fr.Size, "-", "-", "-", "-", "-")
		} else {
			h := fr.Header
			size := "unknown"
			if h.HasContentSize {
				size = fmt.Sprintf("%d", h.ContentSize)
				content += h.ContentSize
			}
			checksum := "-"
			if h.Checksum {
				checksum = fmt.Sprintf("%08x", fr.Checksum)
			}
			fmt.Fprintf(w, "%-5d | %-9s | %-10d | %-12s | %-7d | %-10s | %-10d | %-8s\n",
				i, "zstd", fr.Size, size, len(fr.Blocks), formatSize(h.WindowSize), h.DictionaryID, checksum)
		}

		total += uint64(fr.Size) //nolint: gosec
		data = data[fr.Size:]
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total: %d bytes compressed, %d bytes declared content\n", total, content)

	return nil
}

func formatSize(n uint64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%dMiB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%dKiB", n>>10)
	default:
		return fmt.Sprintf("%dB", n)
	}
}
