// Package pool implements the buffer manager shared by the compression and
// decompression sessions.
package pool

import (
	"io"
	"math/bits"
	"sync"
	"sync/atomic"
)

const (
	// DefaultGrowSize is the minimum growth step of a ByteBuffer.
	DefaultGrowSize = 1024 * 16 // 16KiB

	minClassShift = 10 // 1KiB
	maxClassShift = 27 // 128MiB
	numClasses    = maxClassShift - minClassShift + 1
)

// ByteBuffer is a growable byte slice handed out by a Manager.
//
// A buffer is owned by exactly one session between Acquire and Release and
// must not be retained or aliased after Release.
type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte

	acquired bool
}

// NewByteBuffer creates a new ByteBuffer with the specified default size.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{
		B: make([]byte, 0, defaultSize),
	}
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset resets the buffer to be empty, but retains the allocated memory for reuse.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len returns the length of the buffer.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Cap returns the capacity of the buffer.
func (bb *ByteBuffer) Cap() int {
	return cap(bb.B)
}

// MustWrite writes data to the buffer, growing it if necessary.
func (bb *ByteBuffer) MustWrite(data []byte) {
	bb.Grow(len(data))
	bb.B = append(bb.B, data...)
}

// Consume drops the first n bytes, moving the remainder to the front.
// Panics if n is negative or greater than the length.
func (bb *ByteBuffer) Consume(n int) {
	if n < 0 || n > len(bb.B) {
		panic("Consume: invalid length")
	}

	rest := copy(bb.B, bb.B[n:])
	bb.B = bb.B[:rest]
}

// Grow grows the buffer to ensure it can hold requiredBytes more bytes without reallocating.
// If the buffer has sufficient capacity, Grow does nothing.
//
// The growth strategy is as follows:
//   - For small buffers (<64KB), grow by DefaultGrowSize to minimize reallocations.
//   - For larger buffers, grow by 25% of current capacity to balance memory usage and reallocation cost.
func (bb *ByteBuffer) Grow(requiredBytes int) {
	available := cap(bb.B) - len(bb.B)
	if available >= requiredBytes {
		return
	}

	growBy := DefaultGrowSize
	if cap(bb.B) > 4*DefaultGrowSize {
		growBy = cap(bb.B) / 4
	}
	if growBy < requiredBytes {
		growBy = requiredBytes
	}

	newBuf := make([]byte, len(bb.B), len(bb.B)+growBy)
	copy(newBuf, bb.B)
	bb.B = newBuf
}

// Write appends the contents of data to the buffer, growing it as needed.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.MustWrite(data)
	return len(data), nil
}

// WriteTo writes the contents of the buffer to w.
func (bb *ByteBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(bb.B)
	return int64(n), err
}

// Manager recycles ByteBuffers in power-of-two size classes from 1KiB to 128MiB.
//
// Acquire returns a buffer whose capacity is at least the requested size;
// requests beyond the largest class are allocated fresh and dropped on
// Release. Pooling is an optimization only: a buffer is never shared between
// two holders, and the Outstanding counter tracks buffers not yet released.
type Manager struct {
	classes     [numClasses]sync.Pool
	outstanding atomic.Int64
}

// NewManager creates an empty buffer manager.
func NewManager() *Manager {
	return &Manager{}
}

// Default is the process-wide manager used when a session is not given one.
var Default = NewManager()

// Acquire returns an empty buffer with capacity of at least minSize bytes.
func (m *Manager) Acquire(minSize int) *ByteBuffer {
	m.outstanding.Add(1)

	class, ok := classFor(minSize)
	if !ok {
		bb := NewByteBuffer(minSize)
		bb.acquired = true

		return bb
	}

	bb, _ := m.classes[class].Get().(*ByteBuffer)
	if bb == nil {
		bb = NewByteBuffer(1 << (class + minClassShift))
	}
	bb.acquired = true

	return bb
}

// Release returns bb to the manager. Releasing nil or an already released
// buffer is a no-op.
func (m *Manager) Release(bb *ByteBuffer) {
	if bb == nil || !bb.acquired {
		return
	}
	bb.acquired = false
	m.outstanding.Add(-1)

	// the largest class whose size does not exceed the capacity
	c := cap(bb.B)
	if c < 1<<minClassShift {
		return
	}
	class := bits.Len(uint(c)) - 1 - minClassShift //nolint: gosec
	if class >= numClasses {
		return
	}

	bb.Reset()
	m.classes[class].Put(bb)
}

// Outstanding returns the number of acquired buffers not yet released.
func (m *Manager) Outstanding() int64 {
	return m.outstanding.Load()
}

// classFor returns the smallest class holding minSize bytes.
func classFor(minSize int) (int, bool) {
	if minSize <= 1<<minClassShift {
		return 0, true
	}

	shift := bits.Len(uint(minSize - 1)) //nolint: gosec
	if shift > maxClassShift {
		return 0, false
	}

	return shift - minClassShift, true
}
