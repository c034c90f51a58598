package cron

import (
	"context"
	"sync"
)

// Lock coordinates exclusive scheduler cycles.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// LocalLock keeps cycles of one scheduler from overlapping inside a process.
// Surge state and checkout sessions live in process memory, so every replica
// runs its own jobs and no cross-instance lock is needed.
type LocalLock struct {
	mu sync.Mutex
}

// NewLocalLock builds an in-process lock.
func NewLocalLock() *LocalLock {
	return &LocalLock{}
}

// Acquire reports false when another cycle holds the lock.
func (l *LocalLock) Acquire(context.Context) (bool, error) {
	return l.mu.TryLock(), nil
}

// Release frees the lock.
func (l *LocalLock) Release(context.Context) error {
	l.mu.Unlock()
	return nil
}
