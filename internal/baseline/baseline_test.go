package baseline

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/zstdx/errs"
)

func TestGet(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			codec, err := Get(name)
			require.NoError(t, err)
			require.Equal(t, name, codec.Name())
		})
	}

	_, err := Get("brotli")
	require.ErrorIs(t, err, errs.ErrInvalidParameters)
}

func TestCodecs_EmptyData(t *testing.T) {
	for _, name := range Names() {
		codec, _ := Get(name)
		t.Run(name, func(t *testing.T) {
			compressed, err := codec.Compress(nil)
			require.NoError(t, err)
			require.Nil(t, compressed)

			decompressed, err := codec.Decompress(nil)
			require.NoError(t, err)
			require.Nil(t, decompressed)
		})
	}
}

func TestCodecs_RoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
	}{
		{name: "single_byte", data: []byte{0x42}},
		{name: "small_text", data: []byte("Hello, World!")},
		{name: "repeated_pattern", data: bytes.Repeat([]byte("ABCD"), 100)},
		{name: "zeros", data: make([]byte, 1<<20)},
		{
			name: "pseudo_random",
			data: func() []byte {
				data := make([]byte, 4096)
				for i := range data {
					data[i] = byte((i*31 + i*i*7 + i*i*i*3) % 256)
				}

				return data
			}(),
		},
	}

	for _, name := range Names() {
		codec, _ := Get(name)
		t.Run(name, func(t *testing.T) {
			for _, tc := range testCases {
				t.Run(tc.name, func(t *testing.T) {
					compressed, err := codec.Compress(tc.data)
					require.NoError(t, err)
					require.NotEmpty(t, compressed)

					decompressed, err := codec.Decompress(compressed)
					require.NoError(t, err)
					require.Equal(t, tc.data, decompressed)
				})
			}
		})
	}
}

func TestCodecs_InvalidData(t *testing.T) {
	invalidInputs := [][]byte{
		{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
		[]byte("this is not compressed data"),
	}

	for _, name := range Names() {
		codec, _ := Get(name)
		t.Run(name, func(t *testing.T) {
			for _, input := range invalidInputs {
				_, err := codec.Decompress(input)
				require.Error(t, err)
			}
		})
	}
}

func TestLZ4_SizePrefix(t *testing.T) {
	codec := NewLZ4()

	_, err := codec.Decompress([]byte{1, 2})
	require.ErrorIs(t, err, errLZ4SizePrefix)

	_, err = codec.Decompress([]byte{0, 0, 0, 0, 1})
	require.ErrorIs(t, err, errLZ4SizePrefix)

	compressed, err := codec.Compress(bytes.Repeat([]byte("lz4"), 50))
	require.NoError(t, err)
	compressed[0]++ // claim one byte more than the block holds
	_, err = codec.Decompress(compressed)
	require.Error(t, err)
}

func TestCodecs_ConcurrentUsage(t *testing.T) {
	data := bytes.Repeat([]byte("concurrent baseline payload "), 64)

	for _, name := range Names() {
		codec, _ := Get(name)
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			errCh := make(chan error, 16)
			for range 16 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					compressed, err := codec.Compress(data)
					if err != nil {
						errCh <- err
						return
					}
					out, err := codec.Decompress(compressed)
					if err != nil {
						errCh <- err
						return
					}
					if !bytes.Equal(data, out) {
						errCh <- errs.ErrMalformedFrame
					}
				}()
			}
			wg.Wait()
			close(errCh)

			for err := range errCh {
				require.NoError(t, err)
			}
		})
	}
}
