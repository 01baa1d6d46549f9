package frame

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/zstdx/format"
)

func TestAppendFrame_Empty(t *testing.T) {
	encoded := rawFrame(t, nil, Options{ContentSize: true, Checksum: true})
	// magic, descriptor, 1-byte content size, empty last raw block, checksum
	require.Equal(t, []byte{
		0x28, 0xB5, 0x2F, 0xFD,
		0x24, 0x00,
		0x01, 0x00, 0x00,
		0x99, 0xE9, 0xD8, 0x51,
	}, encoded)
}

func TestAppendFrame_ReusesSmallerRegion(t *testing.T) {
	content := bytes.Repeat([]byte{'a'}, 500)

	// a backend frame holding one RLE block
	backend, err := EncodeHeader(nil, Header{SingleSegment: true, HasContentSize: true, ContentSize: 500, WindowSize: 500}, format.FormatStandard)
	require.NoError(t, err)
	backend, err = AppendBlock(backend, Block{Type: format.BlockRLE, Last: true, Size: 500, Payload: []byte{'a'}})
	require.NoError(t, err)

	encoded, err := AppendFrame(nil, content, backend, Options{ContentSize: true, Checksum: true, DictionaryID: 77})
	require.NoError(t, err)

	f, err := ScanFrame(encoded, format.FormatStandard, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(77), f.Header.DictionaryID)
	require.Len(t, f.Blocks, 1)
	require.Equal(t, format.BlockRLE, f.Blocks[0].Type)

	out, err := DecodeSimple(nil, encoded, f)
	require.NoError(t, err)
	require.Equal(t, content, out)
	require.NoError(t, VerifyChecksum(f, out))
}

func TestAppendFrame_FallsBackToRaw(t *testing.T) {
	content := []byte("short")

	tests := []struct {
		name    string
		backend []byte
	}{
		{name: "nil", backend: nil},
		{name: "garbage", backend: []byte{1, 2, 3, 4, 5, 6, 7, 8}},
		{name: "content size mismatch", backend: rawFrame(t, []byte("other!"), Options{ContentSize: true})},
		{name: "not smaller", backend: rawFrame(t, content, Options{ContentSize: true, Checksum: true})},
	}

	want := rawFrame(t, content, Options{ContentSize: true})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := AppendFrame(nil, content, tt.backend, Options{ContentSize: true})
			require.NoError(t, err)
			require.Equal(t, want, encoded)
		})
	}
}

func TestAppendFrame_WithoutContentSize(t *testing.T) {
	content := bytes.Repeat([]byte("window "), 1000)
	encoded := rawFrame(t, content, Options{})

	f, err := ScanFrame(encoded, format.FormatStandard, 0)
	require.NoError(t, err)
	require.False(t, f.Header.SingleSegment)
	require.False(t, f.Header.HasContentSize)
	require.GreaterOrEqual(t, f.Header.WindowSize, uint64(len(content)))

	out, err := DecodeSimple(nil, encoded, f)
	require.NoError(t, err)
	require.Equal(t, content, out)
}

func TestAppendFrame_Magicless(t *testing.T) {
	content := []byte("magicless")
	standard := rawFrame(t, content, Options{ContentSize: true})
	magicless := rawFrame(t, content, Options{ContentSize: true, Format: format.FormatMagicless})
	require.Equal(t, standard[format.MagicSize:], magicless)

	f, err := ScanFrame(magicless, format.FormatMagicless, 0)
	require.NoError(t, err)
	out, err := DecodeSimple(nil, magicless, f)
	require.NoError(t, err)
	require.Equal(t, content, out)
}

func TestMaxFrameSize(t *testing.T) {
	for _, n := range []int{0, 1, 1000, format.MaxBlockSize, format.MaxBlockSize*3 + 7} {
		content := make([]byte, n)
		encoded := rawFrame(t, content, Options{ContentSize: true, Checksum: true, DictionaryID: 1 << 30})
		require.LessOrEqual(t, len(encoded), MaxFrameSize(n))
	}
}
