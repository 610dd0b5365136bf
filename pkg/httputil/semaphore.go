package httputil

import (
	"context"
	"sync/atomic"
)

// Semaphore caps in-flight calls to an external service. The
// transcriber uses one so a burst of speech frames cannot pile up
// unbounded goroutines against the STT backend.
type Semaphore struct {
	slots   chan struct{}
	dropped atomic.Int64
}

// NewSemaphore creates a semaphore with the given capacity. Capacity
// at or below zero gets a default of 100.
func NewSemaphore(capacity int) *Semaphore {
	if capacity <= 0 {
		capacity = 100
	}
	return &Semaphore{slots: make(chan struct{}, capacity)}
}

// TryAcquire takes a slot without blocking. Returns false and counts
// a drop when the semaphore is full.
func (s *Semaphore) TryAcquire() bool {
	select {
	case s.slots <- struct{}{}:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Acquire blocks for a slot until the context is cancelled.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot. Calling it without a matching acquire is a
// no-op rather than a panic.
func (s *Semaphore) Release() {
	select {
	case <-s.slots:
	default:
	}
}

// DroppedCount reports how many TryAcquire calls were rejected.
func (s *Semaphore) DroppedCount() int64 {
	return s.dropped.Load()
}

// InUse reports the number of held slots.
func (s *Semaphore) InUse() int {
	return len(s.slots)
}

// Available reports the number of free slots.
func (s *Semaphore) Available() int {
	return cap(s.slots) - len(s.slots)
}
