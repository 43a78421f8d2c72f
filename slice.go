// SPDX-License-Identifier: Apache-2.0

package seglist

import (
	"unsafe"
)

const growThreshold = 256

// Allocate allocates zeroed memory for a value of type T using the provided
// Allocator. If the allocator is nil or exhausted, it falls back to Go's
// built-in new function. T must not require alignment beyond 8 bytes.
func Allocate[T any](a Allocator) *T {
	if a != nil {
		var x T
		if ptr := a.Malloc(int(unsafe.Sizeof(x))); ptr != nil {
			clearBytes(ptr, int(unsafe.Sizeof(x)))
			return (*T)(ptr)
		}
	}
	return new(T)
}

// AllocateSlice creates a zeroed slice of type T with a given length and
// capacity, using the provided Allocator. If the allocator is nil or
// exhausted, it returns a slice using Go's built-in make function.
func AllocateSlice[T any](a Allocator, len, cap int) []T {
	if a != nil && cap > 0 {
		var x T
		bufSize := int(unsafe.Sizeof(x)) * cap
		if ptr := a.Malloc(bufSize); ptr != nil {
			clearBytes(ptr, bufSize)
			s := unsafe.Slice((*T)(ptr), cap)
			return s[:len]
		}
	}
	return make([]T, len, cap)
}

// SliceAppend appends elements to a slice of type T, moving it to a larger
// block from the allocator when it runs out of capacity. The old block is
// left behind; it is reclaimed when the allocator is Reset.
func SliceAppend[T any](a Allocator, s []T, data ...T) []T {
	if a == nil {
		return append(s, data...)
	}
	s = growSlice(a, s, len(data))
	return append(s, data...)
}

func growSlice[T any](a Allocator, s []T, dataLen int) []T {
	newLen := len(s) + dataLen
	newCap := cap(s)

	if newCap > 0 {
		for newLen > newCap {
			if newCap < growThreshold {
				newCap *= 2
			} else {
				newCap += newCap / 4
			}
		}
	} else {
		newCap = dataLen
	}
	if newCap == cap(s) {
		return s
	}
	s2 := AllocateSlice[T](a, len(s), newCap)
	copy(s2, s)
	return s2
}

// clearBytes zeroes a freshly allocated payload, which may still hold free
// list links from a previous life. The loop compiles down to an optimized
// memory clear.
func clearBytes(ptr unsafe.Pointer, n int) {
	b := unsafe.Slice((*byte)(ptr), n)
	for i := range b {
		b[i] = 0
	}
}
