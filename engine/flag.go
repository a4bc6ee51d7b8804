package engine

import "sync/atomic"

// Flag is an atomic exclusivity bit. It is the only synchronization
// primitive on the engine's transfer paths: a failed TryAcquire returns
// immediately instead of blocking, so contention surfaces to the caller
// as a busy failure rather than a wait.
//
// Each engine carries two independent flags, one guarding transfer
// submission (busy) and one guarding the open handle (open).
type Flag struct {
	held atomic.Bool
}

// TryAcquire atomically test-and-sets the flag. It returns false if the
// flag was already held, in which case the caller must fail the
// operation without blocking.
func (f *Flag) TryAcquire() bool {
	return f.held.CompareAndSwap(false, true)
}

// Release atomically clears the flag. Every path that acquires the flag
// must release it before returning, including all error paths.
func (f *Flag) Release() {
	f.held.Store(false)
}

// Held reports whether the flag is currently held.
func (f *Flag) Held() bool {
	return f.held.Load()
}
