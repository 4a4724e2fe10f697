package util

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

var ErrBudgetExceeded = errors.New("allocation budget exceeded")

// Allocator hands out zeroed slices of exactly the requested length.
// Get fails instead of allocating when the request cannot be honoured.
type Allocator[T any] interface {
	Get(n int) ([]T, error)
	Put(buf []T)
}

// SlicePool provides pooling for fixed length slices, keyed by length.
// A non zero budget caps the number of elements handed out and not yet returned.
type SlicePool[T any] struct {
	pools  map[int]*sync.Pool
	mu     sync.RWMutex
	budget int64

	inUse atomic.Int64

	// Metrics
	hits   atomic.Int64
	misses atomic.Int64
}

func NewSlicePool[T any](budget int64) *SlicePool[T] {
	return &SlicePool[T]{pools: make(map[int]*sync.Pool), budget: budget}
}

// Get retrieves a slice from the pool or creates a new one
func (p *SlicePool[T]) Get(n int) ([]T, error) {
	if n < 0 {
		return nil, errors.Errorf("invalid slice length %d", n)
	}
	if n == 0 {
		return []T{}, nil
	}

	size := int64(n)
	if p.budget > 0 {
		if used := p.inUse.Add(size); used > p.budget {
			p.inUse.Add(-size)
			return nil, errors.Wrapf(ErrBudgetExceeded, "requested %d elements, %d of %d in use", n, used-size, p.budget)
		}
	} else {
		p.inUse.Add(size)
	}

	// Fast path: read lock
	p.mu.RLock()
	pool, exists := p.pools[n]
	p.mu.RUnlock()

	if exists {
		if buf := pool.Get(); buf != nil {
			p.hits.Add(1)
			return buf.([]T), nil
		}
	} else {
		p.mu.Lock()
		// Double-check after acquiring write lock
		if _, exists = p.pools[n]; !exists {
			p.pools[n] = &sync.Pool{}
		}
		p.mu.Unlock()
	}

	p.misses.Add(1)
	return make([]T, n), nil
}

// Put returns a slice to the pool after clearing it
func (p *SlicePool[T]) Put(buf []T) {
	if len(buf) == 0 {
		return
	}
	p.inUse.Add(-int64(len(buf)))

	p.mu.RLock()
	pool, exists := p.pools[len(buf)]
	p.mu.RUnlock()

	if exists {
		var zero T
		for i := range buf {
			buf[i] = zero
		}
		pool.Put(buf)
	}
}

// GetMetrics returns pool usage statistics
func (p *SlicePool[T]) GetMetrics() (hits, misses int64) {
	return p.hits.Load(), p.misses.Load()
}

// InUse returns the number of elements handed out and not yet returned.
func (p *SlicePool[T]) InUse() int64 {
	return p.inUse.Load()
}
