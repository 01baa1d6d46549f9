// Package format holds the Zstandard wire constants and the small typed enums
// shared by the frame codec, the engines and the backends.
package format

type (
	BlockType   uint8
	FrameFormat uint8
)

const (
	BlockRaw        BlockType = 0x0 // BlockRaw stores its content uncompressed.
	BlockRLE        BlockType = 0x1 // BlockRLE repeats a single byte Block_Size times.
	BlockCompressed BlockType = 0x2 // BlockCompressed holds literals and sequences.
	BlockReserved   BlockType = 0x3 // BlockReserved is invalid on the wire.

	FormatStandard  FrameFormat = 0x0 // FormatStandard frames start with the magic number.
	FormatMagicless FrameFormat = 0x1 // FormatMagicless frames omit the 4-byte magic number.
)

// Wire constants from RFC 8878.
const (
	MagicNumber         uint32 = 0xFD2FB528
	DictionaryMagic     uint32 = 0xEC30A437
	SkippableMagicBase  uint32 = 0x184D2A50
	SkippableMagicMask  uint32 = 0xFFFFFFF0
	MagicSize                  = 4
	BlockHeaderSize            = 3
	ChecksumSize               = 4
	SkippableHeaderSize        = 8
	MinFrameHeaderSize         = 2  // descriptor + window descriptor, magic excluded
	MaxFrameHeaderSize         = 14 // descriptor + window + dict ID + content size, magic excluded
	MaxBlockSize               = 128 * 1024
	MinWindowLog               = 10
	MaxWindowLog               = 31
)

// Compression parameter bounds shared by all backends.
const (
	MinLevel            = 1
	MaxLevel            = 22
	DefaultLevel        = 3
	MinWindowLogParam   = 10
	MaxWindowLogParam   = 27 // decoders accept up to 1<<27 without explicit opt-in
	LongDistanceLog     = 27
	MaxThreads          = 200
	MinJobSize          = 1 << 10
	MaxJobSize          = 64 << 20
	DefaultJobSize      = 4 << 20
	DefaultMaxWindowLog = 27
)

func (b BlockType) String() string {
	switch b {
	case BlockRaw:
		return "Raw"
	case BlockRLE:
		return "RLE"
	case BlockCompressed:
		return "Compressed"
	case BlockReserved:
		return "Reserved"
	default:
		return "Unknown"
	}
}

func (f FrameFormat) String() string {
	switch f {
	case FormatStandard:
		return "Standard"
	case FormatMagicless:
		return "Magicless"
	default:
		return "Unknown"
	}
}

// IsSkippableMagic reports whether magic identifies a skippable frame.
func IsSkippableMagic(magic uint32) bool {
	return magic&SkippableMagicMask == SkippableMagicBase
}
