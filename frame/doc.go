// Package frame implements the Zstandard frame format (RFC 8878) below the
// entropy-coding layer: frame and skippable headers, block headers, the
// content checksum, and a resumable scanner that validates frames as their
// bytes arrive.
//
// Compressed block bodies are opaque here; backends produce and consume them.
// Everything a backend could render differently (header field widths, the
// dictionary ID field, checksums, raw fallback) is decided in this package, so
// frames are byte-identical whichever backend compressed the blocks.
//
// Frame layout:
//
//	┌───────────┬─────────────────┬──────────┬─────┬──────────┬────────────┐
//	│ Magic (4) │ Header (2..14)  │ Block 0  │ ... │ Block N  │ Checksum(4)│
//	└───────────┴─────────────────┴──────────┴─────┴──────────┴────────────┘
//
// The magic number is absent in the magicless format and the checksum is
// present only when the header's checksum flag is set.
package frame
