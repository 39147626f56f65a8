package tmdb

import (
	"context"

	"golang.org/x/sync/semaphore"
)

const DefaultConcurrency = 5

// Limiter caps the number of enrichments in flight. One Limiter is shared by
// every run in the process.
type Limiter struct {
	sem      *semaphore.Weighted
	capacity int64
}

func NewLimiter(capacity int) *Limiter {
	if capacity <= 0 {
		capacity = DefaultConcurrency
	}

	return &Limiter{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: int64(capacity),
	}
}

// Acquire blocks until a slot is free or ctx is done
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

func (l *Limiter) Release() {
	l.sem.Release(1)
}

func (l *Limiter) Capacity() int {
	return int(l.capacity)
}
