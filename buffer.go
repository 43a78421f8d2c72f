// SPDX-License-Identifier: Apache-2.0

package seglist

import (
	"io"
	"unsafe"
)

// Buffer is a bytes.Buffer-like struct backed by a single allocator block.
// It implements io.Writer and io.Reader and provides similar methods to
// bytes.Buffer. The backing block is grown in place with Realloc where the
// heap layout allows it.
type Buffer struct {
	alloc Allocator
	ptr   unsafe.Pointer
	cap   int
	off   int // end of unread data
}

const bufferGrowThreshold = 256

// NewBuffer creates a new Buffer backed by the given allocator.
func NewBuffer(a Allocator) *Buffer {
	return &Buffer{alloc: a}
}

// Write implements the io.Writer interface. It returns ErrHeapExhausted
// when the backing block cannot grow to hold p.
func (b *Buffer) Write(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := b.grow(len(p)); err != nil {
		return 0, err
	}
	copy(b.view()[b.off:], p)
	b.off += len(p)
	return len(p), nil
}

// WriteByte writes a single byte to the buffer.
func (b *Buffer) WriteByte(c byte) error {
	if err := b.grow(1); err != nil {
		return err
	}
	b.view()[b.off] = c
	b.off++
	return nil
}

// WriteString writes a string to the buffer.
func (b *Buffer) WriteString(s string) (n int, err error) {
	if len(s) == 0 {
		return 0, nil
	}
	if err := b.grow(len(s)); err != nil {
		return 0, err
	}
	copy(b.view()[b.off:], s)
	b.off += len(s)
	return len(s), nil
}

// WriteTo writes the unread data to w until the buffer is drained or an
// error occurs.
func (b *Buffer) WriteTo(w io.Writer) (n int64, err error) {
	if b.off == 0 {
		return 0, nil
	}
	m, err := w.Write(b.view()[:b.off])
	if m > 0 {
		n += int64(m)
		copy(b.view(), b.view()[m:b.off])
		b.off -= m
	}
	return n, err
}

// Read reads up to len(p) bytes from the buffer into p.
func (b *Buffer) Read(p []byte) (n int, err error) {
	if b.off == 0 {
		return 0, io.EOF
	}
	n = copy(p, b.view()[:b.off])
	if n < len(p) {
		err = io.EOF
	}
	copy(b.view(), b.view()[n:b.off])
	b.off -= n
	return n, err
}

// ReadByte reads and returns the next byte from the buffer.
func (b *Buffer) ReadByte() (byte, error) {
	if b.off == 0 {
		return 0, io.EOF
	}
	c := b.view()[0]
	copy(b.view(), b.view()[1:b.off])
	b.off--
	return c, nil
}

// Bytes returns a slice holding the unread portion of the buffer. The slice
// is valid for use only until the next buffer modification.
func (b *Buffer) Bytes() []byte {
	if b.off == 0 {
		return []byte{}
	}
	return b.view()[:b.off]
}

// String returns the contents of the unread portion of the buffer.
func (b *Buffer) String() string {
	if b.off == 0 {
		return ""
	}
	return string(b.view()[:b.off])
}

// Len returns the number of bytes of the unread portion of the buffer.
func (b *Buffer) Len() int {
	return b.off
}

// Cap returns the capacity of the backing block.
func (b *Buffer) Cap() int {
	return b.cap
}

// Reset resets the buffer to be empty, keeping the backing block.
func (b *Buffer) Reset() {
	b.off = 0
}

// Truncate discards all but the first n unread bytes from the buffer.
// It panics if n is negative or greater than the length of the buffer.
func (b *Buffer) Truncate(n int) {
	if n < 0 || n > b.off {
		panic("seglist: truncation out of range")
	}
	b.off = n
}

// Free returns the backing block to the allocator. The buffer can be
// reused; the next write allocates a fresh block.
func (b *Buffer) Free() {
	if b.ptr != nil {
		b.alloc.Free(b.ptr)
		b.ptr = nil
		b.cap = 0
	}
	b.off = 0
}

func (b *Buffer) view() []byte {
	return unsafe.Slice((*byte)(b.ptr), b.cap)
}

// grow makes room for n more bytes, growing the backing block: double
// below the threshold, then by a quarter.
func (b *Buffer) grow(n int) error {
	need := b.off + n
	if need <= b.cap {
		return nil
	}
	newCap := b.cap
	if newCap == 0 {
		newCap = n
	}
	for need > newCap {
		if newCap < bufferGrowThreshold {
			newCap *= 2
		} else {
			newCap += newCap / 4
		}
	}
	ptr := b.alloc.Realloc(b.ptr, newCap)
	if ptr == nil {
		return ErrHeapExhausted
	}
	b.ptr = ptr
	b.cap = newCap
	return nil
}
