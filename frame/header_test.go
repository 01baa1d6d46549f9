package frame

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/zstdx/errs"
	"github.com/arloliu/zstdx/format"
)

func TestEncodeDecodeHeader(t *testing.T) {
	tests := []struct {
		name     string
		header   Header
		wantSize int
	}{
		{
			name:     "empty single segment",
			header:   Header{SingleSegment: true, HasContentSize: true},
			wantSize: 4 + 1 + 1,
		},
		{
			name:     "single segment 255",
			header:   Header{SingleSegment: true, HasContentSize: true, ContentSize: 255, WindowSize: 255, Checksum: true},
			wantSize: 4 + 1 + 1,
		},
		{
			name:     "single segment 256",
			header:   Header{SingleSegment: true, HasContentSize: true, ContentSize: 256, WindowSize: 256},
			wantSize: 4 + 1 + 2,
		},
		{
			name:     "single segment 65791",
			header:   Header{SingleSegment: true, HasContentSize: true, ContentSize: 65791, WindowSize: 65791},
			wantSize: 4 + 1 + 2,
		},
		{
			name:     "single segment 65792",
			header:   Header{SingleSegment: true, HasContentSize: true, ContentSize: 65792, WindowSize: 65792},
			wantSize: 4 + 1 + 4,
		},
		{
			name:     "single segment 8 byte content size",
			header:   Header{SingleSegment: true, HasContentSize: true, ContentSize: 1 << 33, WindowSize: 1 << 33},
			wantSize: 4 + 1 + 8,
		},
		{
			name:     "one byte dictionary id",
			header:   Header{SingleSegment: true, HasContentSize: true, ContentSize: 10, WindowSize: 10, DictionaryID: 200},
			wantSize: 4 + 1 + 1 + 1,
		},
		{
			name:     "two byte dictionary id",
			header:   Header{SingleSegment: true, HasContentSize: true, ContentSize: 10, WindowSize: 10, DictionaryID: 300},
			wantSize: 4 + 1 + 2 + 1,
		},
		{
			name:     "four byte dictionary id",
			header:   Header{SingleSegment: true, HasContentSize: true, ContentSize: 10, WindowSize: 10, DictionaryID: 1 << 20},
			wantSize: 4 + 1 + 4 + 1,
		},
		{
			name:     "window descriptor without content size",
			header:   Header{WindowSize: 1 << 20},
			wantSize: 4 + 1 + 1,
		},
		{
			name:     "window descriptor with small content size",
			header:   Header{WindowSize: 1 << 10, HasContentSize: true, ContentSize: 100},
			wantSize: 4 + 1 + 1 + 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := EncodeHeader(nil, tt.header, format.FormatStandard)
			require.NoError(t, err)
			require.Len(t, encoded, tt.wantSize)
			require.Equal(t, tt.wantSize, tt.header.EncodedSize(format.FormatStandard))

			decoded, n, err := DecodeHeader(encoded, format.FormatStandard)
			require.NoError(t, err)
			require.Equal(t, len(encoded), n)
			require.Equal(t, tt.header, decoded)
		})
	}
}

func TestEncodeHeader_Magicless(t *testing.T) {
	h := Header{SingleSegment: true, HasContentSize: true, ContentSize: 42, WindowSize: 42}

	standard, err := EncodeHeader(nil, h, format.FormatStandard)
	require.NoError(t, err)
	magicless, err := EncodeHeader(nil, h, format.FormatMagicless)
	require.NoError(t, err)
	require.Equal(t, standard[format.MagicSize:], magicless)

	decoded, n, err := DecodeHeader(magicless, format.FormatMagicless)
	require.NoError(t, err)
	require.Equal(t, len(magicless), n)
	require.Equal(t, h, decoded)
}

func TestEncodeHeader_WindowRoundsUp(t *testing.T) {
	encoded, err := EncodeHeader(nil, Header{WindowSize: 1000}, format.FormatStandard)
	require.NoError(t, err)

	decoded, _, err := DecodeHeader(encoded, format.FormatStandard)
	require.NoError(t, err)
	require.Equal(t, uint64(1024), decoded.WindowSize)

	encoded, err = EncodeHeader(nil, Header{WindowSize: 1025}, format.FormatStandard)
	require.NoError(t, err)
	decoded, _, err = DecodeHeader(encoded, format.FormatStandard)
	require.NoError(t, err)
	require.Equal(t, uint64(1024+128), decoded.WindowSize)
}

func TestEncodeHeader_Invalid(t *testing.T) {
	_, err := EncodeHeader(nil, Header{SingleSegment: true}, format.FormatStandard)
	require.ErrorIs(t, err, errs.ErrInvalidParameters)
}

func TestDecodeHeader_Errors(t *testing.T) {
	valid, err := EncodeHeader(nil, Header{SingleSegment: true, HasContentSize: true, ContentSize: 300, WindowSize: 300}, format.FormatStandard)
	require.NoError(t, err)

	t.Run("truncated", func(t *testing.T) {
		for i := 0; i < len(valid); i++ {
			_, _, err := DecodeHeader(valid[:i], format.FormatStandard)
			require.ErrorIs(t, err, ErrNeedMoreInput, "prefix length %d", i)
		}
	})

	t.Run("bad magic", func(t *testing.T) {
		bad := append([]byte{}, valid...)
		bad[0] ^= 0xFF
		_, _, err := DecodeHeader(bad, format.FormatStandard)
		require.ErrorIs(t, err, errs.ErrMalformedFrame)
	})

	t.Run("reserved bit", func(t *testing.T) {
		bad := append([]byte{}, valid...)
		bad[format.MagicSize] |= reservedBitMask
		_, _, err := DecodeHeader(bad, format.FormatStandard)
		require.ErrorIs(t, err, errs.ErrMalformedFrame)
	})

	t.Run("skippable magic", func(t *testing.T) {
		skippable, err := AppendSkippable(nil, 3, []byte("meta"))
		require.NoError(t, err)
		_, _, err = DecodeHeader(skippable, format.FormatStandard)
		require.ErrorIs(t, err, errs.ErrMalformedFrame)
	})
}

func TestHeader_BlockMaximumSize(t *testing.T) {
	require.Equal(t, 0, Header{}.BlockMaximumSize())
	require.Equal(t, 5000, Header{WindowSize: 5000}.BlockMaximumSize())
	require.Equal(t, format.MaxBlockSize, Header{WindowSize: 1 << 30}.BlockMaximumSize())
}
