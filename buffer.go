package xmlindent

import (
	"errors"
	"io"
)

// ErrUnderflow reports a pop from an empty Buffer.
var ErrUnderflow = errors.New("buffer underflow")

// Buffer is an append-only byte store with pop-from-end.
type Buffer struct {
	b []byte
	// epoch changes whenever bytes are removed, so measurements of a
	// prefix can be reused while the buffer only grows.
	epoch uint64
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int {
	return len(b.b)
}

// Bytes returns the buffered bytes. The slice is valid until the next mutation.
func (b *Buffer) Bytes() []byte {
	return b.b
}

// WriteByte appends c.
func (b *Buffer) WriteByte(c byte) error {
	b.b = append(b.b, c)
	return nil
}

// Write appends p.
func (b *Buffer) Write(p []byte) (int, error) {
	b.b = append(b.b, p...)
	return len(p), nil
}

// WriteString appends s.
func (b *Buffer) WriteString(s string) (int, error) {
	b.b = append(b.b, s...)
	return len(s), nil
}

// AppendFrom copies the bytes of other onto the end of b. other is not modified.
func (b *Buffer) AppendFrom(other *Buffer) {
	b.b = append(b.b, other.b...)
}

// Pop removes and returns the last byte.
func (b *Buffer) Pop() (byte, error) {
	if len(b.b) == 0 {
		return 0, ErrUnderflow
	}
	c := b.b[len(b.b)-1]
	b.b = b.b[:len(b.b)-1]
	b.epoch++
	return c, nil
}

// Last returns the last byte without removing it.
func (b *Buffer) Last() (byte, bool) {
	if len(b.b) == 0 {
		return 0, false
	}
	return b.b[len(b.b)-1], true
}

// Truncate keeps the first n bytes.
func (b *Buffer) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n < len(b.b) {
		b.b = b.b[:n]
		b.epoch++
	}
}

// Reset drops the content without writing it. Capacity is retained.
func (b *Buffer) Reset() {
	b.b = b.b[:0]
	b.epoch++
}

// Flush writes all bytes to w in order, then empties the buffer.
// The buffer is emptied even when w fails so nothing is written twice.
func (b *Buffer) Flush(w io.Writer) error {
	if len(b.b) == 0 {
		return nil
	}
	_, err := w.Write(b.b)
	b.Reset()
	return err
}

func (b *Buffer) release(max int) {
	if cap(b.b) > max {
		b.b = nil
	}
	b.Reset()
}
