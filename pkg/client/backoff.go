package client

import (
	"sync"
	"time"
)

// Backoff calculates linear reconnection delays: attempt n waits n times the
// base delay, for at most max attempts between successful opens.
type Backoff struct {
	mu       sync.Mutex
	base     time.Duration
	max      int
	attempts int
}

// NewBackoff creates a linear backoff calculator.
func NewBackoff(base time.Duration, maxAttempts int) *Backoff {
	if base <= 0 {
		base = DefaultReconnectionDelay
	}
	if maxAttempts < 0 {
		maxAttempts = 0
	}
	return &Backoff{base: base, max: maxAttempts}
}

// Next advances the attempt counter and returns the delay for that attempt.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempts++
	return b.base * time.Duration(b.attempts)
}

// Peek returns the delay Next would return, without advancing.
func (b *Backoff) Peek() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.base * time.Duration(b.attempts+1)
}

// Attempts returns the number of attempts since the last reset.
func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

// Exhausted reports whether no attempts remain.
func (b *Backoff) Exhausted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts >= b.max
}

// Reset clears the attempt counter. Call after a successful open.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempts = 0
}
