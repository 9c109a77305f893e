package manager

import "sync/atomic"

// tryLock is a non-blocking lock: a second caller is turned away instead
// of waiting
type tryLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire takes the lock if it is free and reports whether it did
func (l *tryLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release frees the lock. Only the holder may call it.
func (l *tryLock) Release() {
	l.state.Store(0)
}
