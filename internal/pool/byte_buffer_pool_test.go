package pool

import (
	"bytes"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ByteBuffer Tests
// =============================================================================

func TestNewByteBuffer(t *testing.T) {
	capacity := 1024
	bb := NewByteBuffer(capacity)

	require.NotNil(t, bb)
	require.NotNil(t, bb.B)
	assert.Equal(t, 0, len(bb.B), "new buffer should have zero length")
	assert.Equal(t, capacity, cap(bb.B), "new buffer should have specified capacity")
}

func TestByteBuffer_Reset(t *testing.T) {
	bb := NewByteBuffer(DefaultGrowSize)
	bb.B = append(bb.B, []byte("some data")...)
	originalCap := cap(bb.B)

	bb.Reset()

	assert.Equal(t, 0, bb.Len(), "Reset should clear the buffer length")
	assert.Equal(t, originalCap, bb.Cap(), "Reset should preserve capacity")
}

func TestByteBuffer_Write(t *testing.T) {
	bb := NewByteBuffer(4)

	n, err := bb.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	bb.MustWrite([]byte(" world"))
	assert.Equal(t, []byte("hello world"), bb.Bytes())
}

func TestByteBuffer_Consume(t *testing.T) {
	bb := NewByteBuffer(16)
	bb.MustWrite([]byte("0123456789"))

	bb.Consume(4)
	assert.Equal(t, []byte("456789"), bb.B)

	bb.Consume(0)
	assert.Equal(t, []byte("456789"), bb.B)

	bb.Consume(6)
	assert.Equal(t, 0, bb.Len())

	assert.Panics(t, func() { bb.Consume(1) })
}

func TestByteBuffer_WriteTo(t *testing.T) {
	bb := NewByteBuffer(DefaultGrowSize)
	bb.MustWrite([]byte("test data"))

	var buf bytes.Buffer
	n, err := bb.WriteTo(&buf)

	require.NoError(t, err)
	assert.Equal(t, int64(9), n)
	assert.Equal(t, "test data", buf.String())
}

func TestByteBuffer_WriteTo_ErrorPropagation(t *testing.T) {
	bb := NewByteBuffer(DefaultGrowSize)
	bb.MustWrite([]byte("test"))

	n, err := bb.WriteTo(&errorWriter{err: io.ErrShortWrite})

	assert.Equal(t, io.ErrShortWrite, err)
	assert.Equal(t, int64(0), n)
}

// =============================================================================
// ByteBuffer Grow Tests
// =============================================================================

func TestByteBuffer_Grow(t *testing.T) {
	t.Run("sufficient capacity", func(t *testing.T) {
		bb := NewByteBuffer(DefaultGrowSize)
		bb.Grow(100)
		assert.Equal(t, DefaultGrowSize, bb.Cap(), "should not reallocate when capacity is sufficient")
	})

	t.Run("small buffer", func(t *testing.T) {
		bb := NewByteBuffer(DefaultGrowSize)
		bb.B = append(bb.B, make([]byte, DefaultGrowSize)...)
		bb.Grow(1)
		assert.GreaterOrEqual(t, bb.Cap(), 2*DefaultGrowSize)
		assert.Equal(t, DefaultGrowSize, bb.Len(), "length should not change")
	})

	t.Run("large request", func(t *testing.T) {
		bb := NewByteBuffer(DefaultGrowSize)
		bb.Grow(DefaultGrowSize * 10)
		assert.GreaterOrEqual(t, bb.Cap(), DefaultGrowSize*10)
	})

	t.Run("preserves data", func(t *testing.T) {
		bb := NewByteBuffer(8)
		data := []byte("important data that must be preserved")
		bb.MustWrite(data)
		bb.Grow(DefaultGrowSize * 2)
		assert.Equal(t, data, bb.B)
	})
}

// =============================================================================
// Manager Tests
// =============================================================================

func TestClassFor(t *testing.T) {
	tests := []struct {
		minSize int
		class   int
		ok      bool
	}{
		{minSize: 0, class: 0, ok: true},
		{minSize: 1024, class: 0, ok: true},
		{minSize: 1025, class: 1, ok: true},
		{minSize: 2048, class: 1, ok: true},
		{minSize: 1 << 20, class: 10, ok: true},
		{minSize: 1 << maxClassShift, class: numClasses - 1, ok: true},
		{minSize: 1<<maxClassShift + 1, ok: false},
	}

	for _, tt := range tests {
		class, ok := classFor(tt.minSize)
		require.Equal(t, tt.ok, ok, "minSize %d", tt.minSize)
		if ok {
			require.Equal(t, tt.class, class, "minSize %d", tt.minSize)
		}
	}
}

func TestManager_AcquireRelease(t *testing.T) {
	m := NewManager()

	bb := m.Acquire(3000)
	require.NotNil(t, bb)
	assert.Equal(t, 0, bb.Len())
	assert.GreaterOrEqual(t, bb.Cap(), 3000)
	assert.Equal(t, int64(1), m.Outstanding())

	bb.MustWrite([]byte("sensitive"))
	m.Release(bb)
	assert.Equal(t, int64(0), m.Outstanding())
	assert.Equal(t, 0, bb.Len(), "Release should reset the buffer")

	// double release must not drive the counter negative
	m.Release(bb)
	m.Release(nil)
	assert.Equal(t, int64(0), m.Outstanding())
}

func TestManager_Oversize(t *testing.T) {
	if testing.Short() {
		t.Skip("allocates more than 128MiB")
	}

	m := NewManager()

	bb := m.Acquire(1<<maxClassShift + 1)
	assert.GreaterOrEqual(t, bb.Cap(), 1<<maxClassShift+1)
	assert.Equal(t, int64(1), m.Outstanding())

	m.Release(bb)
	assert.Equal(t, int64(0), m.Outstanding())
}

func TestManager_ReusedBufferIsEmpty(t *testing.T) {
	m := NewManager()

	for i := 0; i < 10; i++ {
		bb := m.Acquire(1 << 12)
		assert.Equal(t, 0, bb.Len(), "each buffer should be reset")
		bb.MustWrite(bytes.Repeat([]byte{byte(i)}, 100))
		m.Release(bb)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	const numGoroutines = 50
	const numIterations = 200

	m := NewManager()

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numIterations; j++ {
				bb := m.Acquire(512 * (j%8 + 1))
				bb.MustWrite([]byte{byte(id)})
				if bb.Len() != 1 || bb.B[0] != byte(id) {
					t.Errorf("buffer shared between holders")
				}
				m.Release(bb)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(0), m.Outstanding())
}

type errorWriter struct {
	err error
}

func (ew *errorWriter) Write(p []byte) (int, error) {
	return 0, ew.err
}
