package compress

// Stats reports the progress of a compression or decompression session.
type Stats struct {
	// ContentSize is the number of uncompressed bytes pushed into a
	// Compressor or returned by a Decompressor.
	ContentSize int64
	// CompressedSize is the number of frame bytes returned by a Compressor
	// or consumed by a Decompressor.
	CompressedSize int64
	// Frames is the number of frames emitted or decoded.
	Frames int
	// SkippableFrames is the number of skippable frames a Decompressor
	// consumed. They are not counted in Frames.
	SkippableFrames int
}

// CompressionRatio returns the compression ratio (compressed size / content size).
//
// Values less than 1.0 indicate successful compression.
// Values greater than 1.0 indicate framing overhead, typical for tiny or
// incompressible inputs.
//
// Returns:
//   - float64: compression ratio (0.0 if the content size is zero)
func (s Stats) CompressionRatio() float64 {
	if s.ContentSize == 0 {
		return 0.0
	}

	return float64(s.CompressedSize) / float64(s.ContentSize)
}

// SpaceSavings returns the space savings as a percentage of the content size.
//
// Returns:
//   - float64: space savings percentage, negative when frames outgrow their content
func (s Stats) SpaceSavings() float64 {
	if s.ContentSize == 0 {
		return 0.0
	}

	return (1.0 - s.CompressionRatio()) * 100.0
}
