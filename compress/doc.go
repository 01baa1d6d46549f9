// Package compress implements the Zstandard compression and decompression
// engines on top of the frame codec and a backend chosen by package backend.
//
// # Overview
//
// The engines own everything that must look the same regardless of backend:
// job boundaries, frame headers, checksums, dictionary checks and error kinds.
// A backend kernel only turns one job into one frame and one frame back into
// content.
//
// # Compression
//
// A Compressor cuts its input into jobs at fixed offsets (multiples of the job
// size) and emits one self-contained frame per job:
//
//	c, err := compress.NewCompressor(b, compress.WithLevel(9), compress.WithThreads(4))
//	if err != nil {
//	    return err
//	}
//	out, err := c.Compress(chunk)   // zero or more complete frames
//	tail, err := c.Finish()         // remaining frames; idempotent
//
// Because job boundaries depend only on stream offsets, one-shot, streaming
// and multi-threaded compression of the same content produce byte-identical
// output. Backend frames are re-framed under a canonical header: single
// segment with the content size, the dictionary ID when one is used, and the
// XXH64-based content checksum. A job the backend cannot shrink is stored in
// raw blocks.
//
// # Decompression
//
// A Decompressor accepts concatenated frames in chunks of any size, down to
// one byte, and returns content as soon as each frame is complete:
//
//	d, err := compress.NewDecompressor(b, compress.WithDecoderDictionary(dict))
//	out, complete, err := d.Decompress(chunk)
//	err = d.Finish() // ErrMalformedFrame on a truncated trailing frame
//
// Frames made only of raw and RLE blocks are decoded without the backend.
// Everything else is handed to the backend with the checksum flag cleared
// and the dictionary ID replaced by the one the backend knows, so checksum
// and dictionary errors are reported by this package for every backend.
//
// # Lifecycle
//
// Both engines move through Idle, Active and Closed; the Compressor passes
// Finishing on the way. Structural errors put an engine into the absorbing
// Errored state; ErrResourceLimit does not. Buffers come from the buffer
// manager in internal/pool and are returned on Finish, Close and failure.
//
// # Helpers
//
//   - Compress and Decompress: one-shot calls
//   - NewWriter, NewReader, NewDecompressWriter, Copy and CopyDecompressed:
//     io adapters
//   - CompressContentDictChain and DecompressContentDictChain: chains where
//     each frame uses the previous content as a raw dictionary
//   - Codec and NewCodec: whole-buffer interface shared with baseline codecs
//
// # Thread Safety
//
// Engines, Writers, Readers and DecompressWriters are single-owner. ZstdCodec and the one-shot
// functions are safe for concurrent use. Dictionaries and backends may be
// shared by any number of engines.
package compress
