// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package seglist

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// mmapHeap is a heap region backed by an anonymous memory mapping. Unlike
// bufferHeap its pages live outside the Go heap, so a large reservation
// costs address space only until the pages are touched.
type mmapHeap struct {
	data []byte
	brk  int
}

// NewMmapHeap reserves an anonymous mapping of the given capacity in bytes
// and serves sbrk calls out of it. Close unmaps the region.
func NewMmapHeap(capacity int) (Heap, error) {
	if capacity < unitBytes {
		capacity = unitBytes
	}
	data, err := unix.Mmap(-1, 0, capacity,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, err
	}
	return &mmapHeap{data: data}, nil
}

// Lo satisfies the Heap interface.
func (h *mmapHeap) Lo() unsafe.Pointer {
	return unsafe.Pointer(unsafe.SliceData(h.data))
}

// Size satisfies the Heap interface.
func (h *mmapHeap) Size() int {
	return h.brk
}

// Sbrk satisfies the Heap interface.
func (h *mmapHeap) Sbrk(incr int) (unsafe.Pointer, error) {
	if incr < 0 || incr > MaxSbrk {
		return nil, ErrHeapExhausted
	}
	if h.brk+incr > len(h.data) {
		return nil, ErrHeapExhausted
	}
	old := unsafe.Add(h.Lo(), h.brk)
	h.brk += incr
	return old, nil
}

// Reset satisfies the Heap interface.
func (h *mmapHeap) Reset() {
	h.brk = 0
}

// Close satisfies the Heap interface.
func (h *mmapHeap) Close() error {
	if h.data == nil {
		return nil
	}
	err := unix.Munmap(h.data)
	h.data = nil
	h.brk = 0
	return err
}
