// SPDX-License-Identifier: Apache-2.0

package seglist

import (
	"sync"
	"unsafe"
)

type concurrentAllocator struct {
	mtx sync.Mutex
	a   Allocator
}

// NewConcurrentAllocator returns an allocator that is safe to be accessed
// concurrently from multiple goroutines.
func NewConcurrentAllocator(a Allocator) Allocator {
	return &concurrentAllocator{a: a}
}

// Malloc satisfies the Allocator interface.
func (c *concurrentAllocator) Malloc(size int) unsafe.Pointer {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.a.Malloc(size)
}

// Free satisfies the Allocator interface.
func (c *concurrentAllocator) Free(ptr unsafe.Pointer) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.a.Free(ptr)
}

// Realloc satisfies the Allocator interface.
func (c *concurrentAllocator) Realloc(ptr unsafe.Pointer, size int) unsafe.Pointer {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.a.Realloc(ptr, size)
}

// Reset satisfies the Allocator interface.
func (c *concurrentAllocator) Reset() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.a.Reset()
}

// Release satisfies the Allocator interface.
func (c *concurrentAllocator) Release() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.a.Release()
}

// Used satisfies the Allocator interface.
func (c *concurrentAllocator) Used() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.a.Used()
}

// HeapSize satisfies the Allocator interface.
func (c *concurrentAllocator) HeapSize() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.a.HeapSize()
}

// Peak satisfies the Allocator interface.
func (c *concurrentAllocator) Peak() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.a.Peak()
}

// Check satisfies the Allocator interface.
func (c *concurrentAllocator) Check() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.a.Check()
}
