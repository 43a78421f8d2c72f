// SPDX-License-Identifier: Apache-2.0

// Package seglist implements a segregated-fit memory allocator on top of an
// sbrk-style heap region.
//
// Blocks are accounted in 8-byte units. Every block carries a one-unit header
// packing its payload size, allocation bit and size-class index; free blocks
// are threaded through one doubly-linked list per size class. Allocation
// serves small classes head-first, first-fit scans the medium and large
// classes, escalates to a higher class when the requested one is empty, and
// carves from the arena frontier as a last resort. Resizing tries an in-place
// split or a coalesce with free neighbours before falling back to
// allocate-copy-free.
//
// With WithDoubleLinkedHeap every block additionally carries a one-unit
// footer mirroring the header, which makes the heap walkable backwards and
// lets Realloc absorb free blocks to the left of the resized one.
//
// IMPORTANT: this package is NOT goroutine-safe. Wrap an allocator with
// NewConcurrentAllocator when it has to be shared across goroutines.
package seglist

import (
	"log/slog"
	"unsafe"
)

// Allocator is a malloc/free/realloc style arena manager.
type Allocator interface {
	// Malloc returns a pointer to an 8-byte-aligned payload of at least
	// size bytes, or nil if the heap cannot grow to satisfy the request.
	// A size of zero returns nil as a designated success value.
	Malloc(size int) unsafe.Pointer

	// Free returns a previously allocated payload to its size class.
	// A nil pointer is a no-op. Passing anything that is not the payload
	// of a currently allocated block aborts the process.
	Free(ptr unsafe.Pointer)

	// Realloc resizes the block behind ptr to at least size bytes,
	// in place when possible. Realloc(nil, n) behaves like Malloc(n);
	// Realloc(p, 0) frees p and returns nil. On failure it returns nil
	// and leaves the original block untouched.
	Realloc(ptr unsafe.Pointer, size int) unsafe.Pointer

	// Reset discards every allocation and shrinks the arena back to its
	// initial empty state. Pointers handed out before Reset become
	// invalid immediately.
	Reset()

	// Release closes the underlying heap region if New created it; a heap
	// supplied through WithHeap is left open. The allocator must not be
	// used afterwards.
	Release() error

	// Used returns the number of bytes currently tied up in allocated
	// blocks, metadata included.
	Used() int

	// HeapSize returns the number of bytes assigned to the arena so far.
	HeapSize() int

	// Peak returns the high-water mark of Used. It is not cleared by
	// Reset, allowing pools to size fresh allocators from past usage.
	Peak() int

	// Check audits the whole arena: heap coverage, free-list membership,
	// chain integrity and footer parity. It returns the first violation
	// found, or nil.
	Check() error
}

type segAllocator struct {
	heap    Heap
	ownHeap bool // heap was created by New, Release closes it

	classes [numClasses]classList
	next    unsafe.Pointer // arena frontier, first unassigned unit

	double   bool // footers present, heap walkable backwards
	minUnits int  // smallest representable block including metadata

	heapCapacity int

	used int
	peak int

	logger *slog.Logger
}

// Option configures an allocator created by New.
type Option func(*segAllocator)

// WithHeap makes the allocator manage the given heap region instead of
// creating its own. The caller keeps ownership; Release will not close it.
func WithHeap(h Heap) Option {
	return func(a *segAllocator) {
		a.heap = h
		a.ownHeap = false
	}
}

// WithHeapCapacity sets the capacity of the buffer heap New creates when no
// heap is supplied.
func WithHeapCapacity(capacity int) Option {
	return func(a *segAllocator) {
		a.heapCapacity = capacity
	}
}

// WithDoubleLinkedHeap puts a footer on every block, mirroring the header.
// This costs one unit per block and enables left-coalescing during Realloc.
func WithDoubleLinkedHeap() Option {
	return func(a *segAllocator) {
		a.double = true
		a.minUnits = minBlockUnitsDouble
	}
}

// WithLogger routes the allocator's debug diagnostics to the given logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *segAllocator) {
		a.logger = l
	}
}

const defaultHeapCapacity = 32 << 20

// New creates an empty allocator. The arena is lazy: no heap memory is
// assigned until the first allocation.
func New(opts ...Option) Allocator {
	a := &segAllocator{
		minUnits:     minBlockUnitsSingle,
		heapCapacity: defaultHeapCapacity,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.heap == nil {
		a.heap = NewBufferHeap(a.heapCapacity)
		a.ownHeap = true
	}
	if a.logger == nil {
		a.logger = slog.New(slog.DiscardHandler)
	}
	a.next = a.heap.Lo()
	return a
}

// Reset satisfies the Allocator interface.
func (a *segAllocator) Reset() {
	a.heap.Reset()
	for i := range a.classes {
		a.classes[i] = classList{}
	}
	a.next = a.heap.Lo()
	a.used = 0
}

// Release satisfies the Allocator interface.
func (a *segAllocator) Release() error {
	if !a.ownHeap {
		return nil
	}
	return a.heap.Close()
}

// Used returns the number of bytes currently tied up in allocated blocks.
func (a *segAllocator) Used() int {
	return a.used
}

// HeapSize returns the number of bytes assigned to the arena so far.
func (a *segAllocator) HeapSize() int {
	return a.heap.Size()
}

// Peak returns the high-water mark of Used.
func (a *segAllocator) Peak() int {
	return a.peak
}
