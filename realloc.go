// SPDX-License-Identifier: Apache-2.0

package seglist

import "unsafe"

// Realloc satisfies the Allocator interface.
func (a *segAllocator) Realloc(ptr unsafe.Pointer, size int) unsafe.Pointer {
	if ptr == nil {
		return a.Malloc(size)
	}
	if size <= 0 {
		a.Free(ptr)
		return nil
	}

	newPtr := a.reallocate(a.header(ptr), ptr, bytesToUnits(size))
	if a.used > a.peak {
		a.peak = a.used
	}
	return newPtr
}

// reallocate resizes block b to a payload of the given stored size. It
// returns the (possibly moved) payload pointer, or nil on heap exhaustion
// with b left untouched.
func (a *segAllocator) reallocate(b *block, ptr unsafe.Pointer, units int) unsafe.Pointer {
	prevSize := b.size()

	if units == prevSize {
		return ptr
	}

	if units < prevSize {
		return a.shrink(b, ptr, units)
	}

	right := a.nextInHeap(b)
	needed := units - prevSize

	// accumulate free right neighbours until they cover the growth
	total := 0
	iter := right
	for total < needed && a.before(iter, a.next) && !iter.allocated() {
		total += a.totalUnits(iter)
		iter = a.nextInHeap(iter)
	}
	rightmost := iter

	if total >= needed {
		a.growRight(b, units, needed, total, right, rightmost)
		return ptr
	}

	if a.double {
		if newPtr := a.growLeft(b, ptr, prevSize, units, needed, &total, right, rightmost); newPtr != nil {
			return newPtr
		}
		// total now includes the free run to the left of b
	}

	// the free run to the right ends at the arena frontier, so the heap
	// itself can cover the shortfall
	if unsafe.Pointer(rightmost) == a.next {
		return a.growFrontier(b, ptr, prevSize, units, needed, total, right, rightmost)
	}

	return a.relocate(b, ptr, prevSize, units)
}

// shrink splits b into a units-sized left part and a free right part. When
// the tail is too small to form a legal block, b is kept whole.
func (a *segAllocator) shrink(b *block, ptr unsafe.Pointer, units int) unsafe.Pointer {
	remaining := b.size() - units
	if remaining < a.minUnits {
		return ptr
	}

	b.setSize(units)
	a.setFooter(b)

	right := a.nextInHeap(b)
	right.bits = 0
	right.setSize(remaining - a.minUnits)
	right.setAllocated(true)
	a.pushBlock(right)

	return ptr
}

// growRight absorbs the free run [right, rightmost) into b. The last block
// of the run may be split so that a legal free tail survives.
func (a *segAllocator) growRight(b *block, units, needed, total int, right, rightmost *block) {
	a.logger.Debug("right coalescing", "needed", needed, "total", total)

	// detach every absorbed neighbour except the last one
	iter := right
	for {
		inext := a.nextInHeap(iter)
		if !a.before(inext, unsafe.Pointer(rightmost)) {
			break
		}
		a.removeBlock(iter)
		iter = inext
	}

	extra := total - needed
	lastSize := iter.size()

	switch {
	case extra < a.minUnits:
		// the tail cannot host a block, absorb it whole
		a.removeBlock(iter)
		b.setSize(units + extra)
	case extra > lastSize:
		// the tail cannot survive without eating the last neighbour's
		// metadata; keep a one-payload-unit prefix and absorb it
		a.splitBlock(iter, 0)
		if lastSize < a.minUnits {
			b.setSize(units + extra)
		} else {
			b.setSize(units + extra - lastSize)
		}
	default:
		a.splitBlock(iter, lastSize-extra)
		b.setSize(units)
	}

	a.setFooter(b)
}

// growLeft tries to cover the remaining shortfall with the free run to the
// left of b, walking backwards through footers. On success the combined
// block starts at the leftmost absorbed position and the payload moves; the
// new payload pointer is returned. Returns nil when the left run does not
// cover the shortfall, leaving total updated with the run's extent.
func (a *segAllocator) growLeft(b *block, ptr unsafe.Pointer, prevSize, units, needed int, total *int, right, rightmost *block) unsafe.Pointer {
	left := a.prevInHeap(b)

	iter := left
	for *total < needed && iter != nil && !iter.allocated() {
		*total += a.totalUnits(iter)
		iter = a.prevInHeap(iter)
	}
	leftmost := iter

	if *total < needed {
		return nil
	}

	a.logger.Debug("left and right coalescing", "needed", needed, "total", *total)

	// detach the absorbed run: right side first, then left
	for it := right; a.before(it, unsafe.Pointer(rightmost)); it = a.nextInHeap(it) {
		a.removeBlock(it)
	}
	var first *block
	for it := left; it != leftmost; it = a.prevInHeap(it) {
		a.removeBlock(it)
		first = it
	}

	extra := *total - needed
	var nb *block

	if extra < a.minUnits {
		nb = first
		nb.setSize(units + extra)
	} else {
		// a free block of the leftover survives at the leftmost position
		first.setSize(extra - a.minUnits)
		first.setAllocated(true)
		a.pushBlock(first)

		nb = a.nextInHeap(first)
		nb.bits = 0
		nb.setSize(units)
	}

	nb.setAllocated(true)
	a.setFooter(nb)

	newPtr := a.payload(nb)
	a.movePayload(newPtr, ptr, prevSize)

	return newPtr
}

// growFrontier extends the heap to cover the shortfall once the free run to
// the right of b has reached the arena frontier. With footers the extension
// combines with any free run accumulated to the left.
func (a *segAllocator) growFrontier(b *block, ptr unsafe.Pointer, prevSize, units, needed, total int, right, rightmost *block) unsafe.Pointer {
	a.logger.Debug("growing heap", "needed", needed, "total", total)

	if a.growHeap(needed-total) != nil {
		return nil
	}
	a.used += (needed - total) * unitBytes

	for it := right; a.before(it, unsafe.Pointer(rightmost)); it = a.nextInHeap(it) {
		a.removeBlock(it)
	}

	if !a.double {
		b.setSize(units)
		return ptr
	}

	left := a.prevInHeap(b)
	if left == nil || left.allocated() {
		b.setSize(units)
		a.setFooter(b)
		return ptr
	}

	// fold the free run to the left into the extension; the shortfall was
	// computed with the run included, so the combined block comes out at
	// exactly the requested size
	var first *block
	for it := left; it != nil && !it.allocated(); it = a.prevInHeap(it) {
		a.removeBlock(it)
		first = it
	}

	first.setSize(units)
	a.setFooter(first)

	newPtr := a.payload(first)
	a.movePayload(newPtr, ptr, prevSize)

	return newPtr
}

// relocate falls back to allocate-copy-free. On allocation failure b is
// left untouched and nil is returned.
func (a *segAllocator) relocate(b *block, ptr unsafe.Pointer, prevSize, units int) unsafe.Pointer {
	a.logger.Debug("relocating", "from", b.size(), "to", units)

	newPtr := a.allocate(units)
	if newPtr == nil {
		return nil
	}
	a.movePayload(newPtr, ptr, prevSize)
	a.pushBlock(b)

	return newPtr
}

// movePayload copies a whole payload of the given stored size. The regions
// may overlap after a left coalesce; copy has memmove semantics.
func (a *segAllocator) movePayload(dst, src unsafe.Pointer, storedSize int) {
	n := (storedSize + 1) * unitBytes
	copy(unsafe.Slice((*byte)(dst), n), unsafe.Slice((*byte)(src), n))
}

// before reports whether the block sits strictly below the given heap
// position.
func (a *segAllocator) before(b *block, pos unsafe.Pointer) bool {
	return uintptr(unsafe.Pointer(b)) < uintptr(pos)
}
