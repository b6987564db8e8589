package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// SignalCapacity is the per-subscriber buffer of the state's signal
// broadcaster. Signals are control events, so a slow consumer only ever
// needs the most recent one.
const SignalCapacity = 1

var (
	// ErrLagged matches a *LaggedError.
	ErrLagged = errors.New("subscriber lagged behind broadcaster")

	// ErrClosed is returned by receives on a closed subscription.
	ErrClosed = errors.New("subscription closed")

	// ErrEmpty is returned by TryRecv when nothing is buffered.
	ErrEmpty = errors.New("no value buffered")
)

// LaggedError reports that the subscriber's buffer overflowed and older
// values were discarded. The next receive yields the newest value.
// Consumers should treat it as "something happened since I last looked"
// and re-read the state flags.
type LaggedError struct {
	Missed uint64
}

func (e *LaggedError) Error() string {
	return fmt.Sprintf("subscriber lagged: %d value(s) missed", e.Missed)
}

func (e *LaggedError) Is(target error) bool {
	return target == ErrLagged
}

// Broadcaster fans values out to every live subscription.
//
// Send never blocks: a subscription whose buffer is full drops its oldest
// value and records the loss. Subscriptions only see values sent after
// Subscribe returned. The registry is a copy-on-write slice swapped with
// compare-and-swap, so neither Send nor Subscribe takes a lock.
type Broadcaster[T any] struct {
	capacity int
	subs     atomic.Pointer[[]*Subscription[T]]
}

// NewBroadcaster creates a broadcaster whose subscriptions buffer up to
// capacity values. Capacity below 1 is raised to 1.
func NewBroadcaster[T any](capacity int) *Broadcaster[T] {
	if capacity < 1 {
		capacity = 1
	}
	b := &Broadcaster[T]{capacity: capacity}
	b.subs.Store(&[]*Subscription[T]{})
	return b
}

// Subscribe registers a new independent cursor into future sends.
func (b *Broadcaster[T]) Subscribe() *Subscription[T] {
	s := &Subscription[T]{
		b:    b,
		ch:   make(chan T, b.capacity),
		done: make(chan struct{}),
	}
	for {
		old := b.subs.Load()
		next := make([]*Subscription[T], len(*old), len(*old)+1)
		copy(next, *old)
		next = append(next, s)
		if b.subs.CompareAndSwap(old, &next) {
			return s
		}
	}
}

// Send delivers v to every subscription registered at the time of the
// call and returns how many received it.
func (b *Broadcaster[T]) Send(v T) int {
	n := 0
	for _, s := range *b.subs.Load() {
		if s.deliver(v) {
			n++
		}
	}
	return n
}

// Len returns the number of live subscriptions.
func (b *Broadcaster[T]) Len() int {
	return len(*b.subs.Load())
}

func (b *Broadcaster[T]) remove(s *Subscription[T]) {
	for {
		old := b.subs.Load()
		idx := -1
		for i, cur := range *old {
			if cur == s {
				idx = i
				break
			}
		}
		if idx < 0 {
			return
		}
		next := make([]*Subscription[T], 0, len(*old)-1)
		next = append(next, (*old)[:idx]...)
		next = append(next, (*old)[idx+1:]...)
		if b.subs.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Subscription is one receiver of a Broadcaster. Receive methods are meant
// for a single goroutine; Close may be called from anywhere.
type Subscription[T any] struct {
	b      *Broadcaster[T]
	ch     chan T
	lagged atomic.Uint64
	closed atomic.Bool
	done   chan struct{}
	once   sync.Once

	pending    T
	hasPending bool
}

func (s *Subscription[T]) deliver(v T) bool {
	if s.closed.Load() {
		return false
	}
	for {
		select {
		case s.ch <- v:
			return true
		default:
		}
		// Full: make room by discarding the oldest value.
		select {
		case <-s.ch:
			s.lagged.Add(1)
		default:
		}
	}
}

// Recv waits for the next value. If values were discarded since the last
// receive it first returns a *LaggedError. It returns ErrClosed once the
// subscription is closed and ctx.Err() if ctx ends first.
func (s *Subscription[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	if v, ok, err := s.ready(); ok {
		return v, err
	}

	select {
	case v := <-s.ch:
		return s.settle(v)
	case <-s.done:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// TryRecv is the non-blocking form of Recv. It returns ErrEmpty when no
// value is buffered.
func (s *Subscription[T]) TryRecv() (T, error) {
	var zero T
	if v, ok, err := s.ready(); ok {
		return v, err
	}

	select {
	case v := <-s.ch:
		return s.settle(v)
	default:
		return zero, ErrEmpty
	}
}

// ready handles the cases that need no channel receive.
func (s *Subscription[T]) ready() (T, bool, error) {
	var zero T
	if s.closed.Load() {
		return zero, true, ErrClosed
	}
	if n := s.lagged.Swap(0); n > 0 {
		return zero, true, &LaggedError{Missed: n}
	}
	if s.hasPending {
		v := s.pending
		s.pending, s.hasPending = zero, false
		return v, true, nil
	}
	return zero, false, nil
}

// settle reports a lag that raced with the receive of v before v itself.
func (s *Subscription[T]) settle(v T) (T, error) {
	if n := s.lagged.Swap(0); n > 0 {
		var zero T
		s.pending, s.hasPending = v, true
		return zero, &LaggedError{Missed: n}
	}
	return v, nil
}

// Close unregisters the subscription and wakes a blocked Recv. Other
// subscribers and the sender are unaffected. Idempotent.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		s.closed.Store(true)
		s.b.remove(s)
		close(s.done)
	})
}
