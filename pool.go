package seglist

import (
	"sync"
	"weak"
)

// Pool provides a thread-safe pool of Allocator instances for
// memory-efficient allocations. It uses weak pointers to allow garbage
// collection of unused allocators while maintaining a pool of reusable ones
// for high-frequency allocation patterns.
//
// by storing PoolItem as weak pointers, the GC can collect them at any time
// before using a PoolItem, we try to get a strong pointer while removing it
// from the pool; once we call Release, we turn the item back to the pool and
// make it a weak pointer again. this means that at any time, GC can claim
// back the memory if required, allowing GC to automatically manage an
// appropriate pool size depending on available memory and GC pressure
type Pool struct {
	// pool is a slice of weak pointers to the struct holding the Allocator
	pool  []weak.Pointer[PoolItem]
	sizes map[uint64]*poolItemSize
	opts  []Option
	mu    sync.Mutex
}

// poolItemSize tracks the required heap across the last 50 allocators
// released under one key
type poolItemSize struct {
	count      int
	totalBytes int
}

// PoolItem wraps an Allocator for use in the pool
type PoolItem struct {
	Allocator Allocator
	Key       uint64
}

// NewPool creates a new Pool instance. The options are applied to every
// allocator the pool creates; WithHeapCapacity is overridden by the pool's
// own per-key sizing.
func NewPool(opts ...Option) *Pool {
	return &Pool{
		sizes: make(map[uint64]*poolItemSize),
		opts:  opts,
	}
}

// Acquire gets an allocator from the pool or creates a new one if none are
// available. The key parameter is used to track heap sizes per use case.
func (p *Pool) Acquire(key uint64) *PoolItem {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Try to find an available allocator in the pool
	for len(p.pool) > 0 {
		// Pop the last item
		lastIdx := len(p.pool) - 1
		wp := p.pool[lastIdx]
		p.pool = p.pool[:lastIdx]

		v := wp.Value()
		if v != nil {
			v.Key = key
			return v
		}
		// If weak pointer was nil (GC collected), continue to next item
	}

	// No allocator available, create a new one sized from past peaks
	opts := append(append([]Option{}, p.opts...), WithHeapCapacity(p.getHeapSize(key)))
	return &PoolItem{
		Allocator: New(opts...),
		Key:       key,
	}
}

// Release returns an allocator to the pool for reuse. The peak memory usage
// is recorded to optimize future heap sizes for this use case.
func (p *Pool) Release(item *PoolItem) {
	peak := item.Allocator.Peak()
	item.Allocator.Reset()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.recordPeak(item.Key, peak)
	item.Key = 0

	// Add the allocator back to the pool using a weak pointer
	w := weak.Make(item)
	p.pool = append(p.pool, w)
}

// ReleaseMany returns several allocators to the pool at once.
func (p *Pool) ReleaseMany(items []*PoolItem) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, item := range items {
		peak := item.Allocator.Peak()
		item.Allocator.Reset()

		p.recordPeak(item.Key, peak)
		item.Key = 0

		w := weak.Make(item)
		p.pool = append(p.pool, w)
	}
}

func (p *Pool) recordPeak(key uint64, peak int) {
	if size, ok := p.sizes[key]; ok {
		if size.count == 50 {
			size.count = 1
			size.totalBytes = size.totalBytes / 50
		}
		size.count++
		size.totalBytes += peak
	} else {
		p.sizes[key] = &poolItemSize{
			count:      1,
			totalBytes: peak,
		}
	}
}

// getHeapSize returns the optimal heap capacity for a given use case key.
// If no size is recorded, it defaults to 1MB.
func (p *Pool) getHeapSize(key uint64) int {
	if size, ok := p.sizes[key]; ok && size.totalBytes > 0 {
		return size.totalBytes / size.count
	}
	return 1024 * 1024 // Default 1MB
}
