// SPDX-License-Identifier: Apache-2.0

package seglist

import "unsafe"

// Malloc satisfies the Allocator interface.
func (a *segAllocator) Malloc(size int) unsafe.Pointer {
	if size <= 0 {
		return nil
	}
	ptr := a.allocate(bytesToUnits(size))
	if a.used > a.peak {
		a.peak = a.used
	}
	return ptr
}

// Free satisfies the Allocator interface.
func (a *segAllocator) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	a.pushBlock(a.header(ptr))
}

// allocate serves a request of the given stored size.
func (a *segAllocator) allocate(units int) unsafe.Pointer {
	i := classIndex(units)

	if a.classes[i].head != nil {
		// a small class holds one exact size, so its head always fits
		if i < numSmallClasses {
			return a.removeBlock(a.classes[i].head)
		}
		return a.allocateLargish(i, units)
	}
	return a.allocateFromLarger(i, units)
}

// allocateLargish first-fit scans a medium or large class list.
func (a *segAllocator) allocateLargish(i, units int) unsafe.Pointer {
	b := a.classes[i].head
	for b != nil && b.size() < units {
		b = b.next
	}
	if b == nil {
		return a.allocateFromLarger(i, units)
	}
	return a.splitBlock(b, units)
}

// allocateFromLarger escalates to the lowest non-empty class above i, or
// carves from the end of the heap when every higher class is empty. A block
// from a higher class is guaranteed to fit by the class bounds.
func (a *segAllocator) allocateFromLarger(i, units int) unsafe.Pointer {
	j := i + 1
	for j < numClasses && a.classes[j].head == nil {
		j++
	}
	if j == numClasses {
		return a.allocateNext(units)
	}
	return a.splitBlock(a.classes[j].head, units)
}

// splitBlock detaches a free block, keeps a leftSize payload for the caller
// and gives the tail back to its class. When the tail is too small to host
// a proper block the whole thing stays allocated as internal slack.
func (a *segAllocator) splitBlock(left *block, leftSize int) unsafe.Pointer {
	prevSize := left.size()
	payload := a.removeBlock(left)

	remaining := prevSize - leftSize
	if remaining < a.minUnits {
		return payload
	}

	left.setSize(leftSize)
	a.setFooter(left)

	right := a.nextInHeap(left)
	right.bits = 0
	right.setSize(remaining - a.minUnits)
	right.setAllocated(true)
	a.pushBlock(right)

	return payload
}

// allocateNext carves a fresh block from the arena frontier, growing the
// heap to cover it. Returns nil if the heap cannot grow.
func (a *segAllocator) allocateNext(units int) unsafe.Pointer {
	b := (*block)(a.next)

	if a.growHeap(a.minUnits+units) != nil {
		return nil
	}

	b.bits = 0
	b.setSize(units)
	b.setAllocated(true)
	a.setFooter(b)
	a.used += a.totalUnits(b) * unitBytes

	return a.payload(b)
}

// growHeap extends the heap by the given number of units, splitting the
// request into MaxSbrk chunks. On any sub-failure the heap is restored to
// the size it had at entry.
func (a *segAllocator) growHeap(units int) error {
	prevSize := a.heap.Size()

	bytes := int64(units) * unitBytes
	for ; bytes >= MaxSbrk; bytes -= MaxSbrk {
		if _, err := a.heap.Sbrk(MaxSbrk); err != nil {
			return a.restoreHeap(prevSize)
		}
	}
	if bytes > 0 {
		if _, err := a.heap.Sbrk(int(bytes)); err != nil {
			return a.restoreHeap(prevSize)
		}
	}

	a.next = unsafe.Add(a.next, units*unitBytes)
	return nil
}

// restoreHeap rewinds the heap to a prior size after a failed growth.
func (a *segAllocator) restoreHeap(size int) error {
	a.heap.Reset()
	for size > 0 {
		incr := size
		if incr > MaxSbrk {
			incr = MaxSbrk
		}
		if _, err := a.heap.Sbrk(incr); err != nil {
			break
		}
		size -= incr
	}
	return ErrHeapExhausted
}
