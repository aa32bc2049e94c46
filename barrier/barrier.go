// Package barrier implements a reusable two-phase N-party turnstile barrier:
// the classic "Little Book of Semaphores" construction, rebuilt on buffered
// channels standing in for named semaphores (mutex, turnstile, turnstile2)
// guarding a shared arrival counter. The channel-as-mutex idiom is the same
// one server/fastview/client.go uses for websock.readSem/writeSem, which
// serializes access the same way a binary semaphore would.
package barrier

import (
	"errors"
	"time"
)

// Barrier is an N-party reusable barrier: once all N parties have called
// Wait, all N are released, and the barrier resets for reuse.
type Barrier struct {
	n          int
	mutex      chan struct{}
	turnstile  chan struct{}
	turnstile2 chan struct{}
	count      int
}

// New returns a barrier for n parties. n must be >= 1.
func New(n int) *Barrier {
	if n < 1 {
		panic("barrier: n must be >= 1")
	}
	b := &Barrier{
		n:          n,
		mutex:      make(chan struct{}, 1),
		turnstile:  make(chan struct{}, n),
		turnstile2: make(chan struct{}, n),
	}
	b.mutex <- struct{}{}
	return b
}

// N returns the party count this barrier was constructed for.
func (b *Barrier) N() int { return b.n }

// Wait blocks until all N parties have called Wait, then returns. After
// Wait returns for every party, the barrier is reset and can be reused.
func (b *Barrier) Wait() {
	// Phase 1: arrive.
	<-b.mutex
	b.count++
	if b.count == b.n {
		for i := 0; i < b.n; i++ {
			b.turnstile <- struct{}{}
		}
	}
	b.mutex <- struct{}{}
	<-b.turnstile

	// Phase 2: depart, resetting the barrier for its next use.
	<-b.mutex
	b.count--
	if b.count == 0 {
		for i := 0; i < b.n; i++ {
			b.turnstile2 <- struct{}{}
		}
	}
	b.mutex <- struct{}{}
	<-b.turnstile2
}

// ErrTimeout is returned by WaitTimeout when the deadline elapses before
// every party has arrived.
var ErrTimeout = errors.New("barrier: wait timed out")

// WaitTimeout is a timed variant for callers that need to bound how long
// they wait for every party to arrive (the core's own step/endEpisode path
// always waits unconditionally and never calls this). A timeout mid-barrier leaves
// the barrier in a state only a coordinated restart of all parties can
// recover from — callers that use it must be prepared to abandon the run.
func (b *Barrier) WaitTimeout(d time.Duration) error {
	deadline := time.After(d)

	<-b.mutex
	b.count++
	if b.count == b.n {
		for i := 0; i < b.n; i++ {
			b.turnstile <- struct{}{}
		}
	}
	b.mutex <- struct{}{}

	select {
	case <-b.turnstile:
	case <-deadline:
		return ErrTimeout
	}

	<-b.mutex
	b.count--
	if b.count == 0 {
		for i := 0; i < b.n; i++ {
			b.turnstile2 <- struct{}{}
		}
	}
	b.mutex <- struct{}{}

	select {
	case <-b.turnstile2:
		return nil
	case <-deadline:
		return ErrTimeout
	}
}
