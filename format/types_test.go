package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlockType_String(t *testing.T) {
	tests := []struct {
		name     string
		bType    BlockType
		expected string
	}{
		{name: "raw", bType: BlockRaw, expected: "Raw"},
		{name: "rle", bType: BlockRLE, expected: "RLE"},
		{name: "compressed", bType: BlockCompressed, expected: "Compressed"},
		{name: "reserved", bType: BlockReserved, expected: "Reserved"},
		{name: "unknown", bType: BlockType(9), expected: "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.bType.String())
		})
	}
}

func TestFrameFormat_String(t *testing.T) {
	require.Equal(t, "Standard", FormatStandard.String())
	require.Equal(t, "Magicless", FormatMagicless.String())
	require.Equal(t, "Unknown", FrameFormat(7).String())
}

func TestIsSkippableMagic(t *testing.T) {
	for i := uint32(0); i < 16; i++ {
		require.True(t, IsSkippableMagic(SkippableMagicBase+i))
	}
	require.False(t, IsSkippableMagic(MagicNumber))
	require.False(t, IsSkippableMagic(SkippableMagicBase+16))
}
