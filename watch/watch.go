package watch

import (
	"context"
	"fmt"
	"sync"
)

// ErrClosed is returned by Receiver.Changed after Close has been called on
// either side of the channel.
var ErrClosed = fmt.Errorf("watch channel closed")

// Channel holds a single value of type T and notifies subscribers when the
// value changes. The zero value is not usable; construct with NewChannel.
type Channel[T any] struct {
	mu      sync.RWMutex
	value   T
	version uint64
	closed  bool
	subs    map[*Receiver[T]]struct{}
}

// NewChannel returns a Channel seeded with init. New subscribers treat the
// value present at subscription time as already seen.
func NewChannel[T any](init T) *Channel[T] {
	return &Channel[T]{
		value: init,
		subs:  make(map[*Receiver[T]]struct{}),
	}
}

// Modify locks the value, applies fn to it in place, and notifies
// subscribers if fn returns true.
func (c *Channel[T]) Modify(fn func(value *T) bool) {
	var pending []*Receiver[T]
	func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if !fn(&c.value) {
			return
		}
		c.version++
		pending = make([]*Receiver[T], 0, len(c.subs))
		for r := range c.subs {
			pending = append(pending, r)
		}
	}()

	for _, r := range pending {
		r.notify()
	}
}

// Set replaces the value and notifies subscribers.
func (c *Channel[T]) Set(value T) {
	c.Modify(func(v *T) bool {
		*v = value
		return true
	})
}

// View calls fn with read access to the current value.
func (c *Channel[T]) View(fn func(value *T)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn(&c.value)
}

// Subscribe registers a new receiver. The caller must release it with
// Receiver.Close when done observing.
func (c *Channel[T]) Subscribe() *Receiver[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := &Receiver[T]{
		ch:     c,
		seen:   c.version,
		wake:   make(chan struct{}, 1),
		closed: c.closed,
	}
	if !c.closed {
		c.subs[r] = struct{}{}
	}
	return r
}

// Close marks the channel closed and wakes all blocked receivers. Further
// modifications are still applied but no longer notify anyone.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pending := make([]*Receiver[T], 0, len(c.subs))
	for r := range c.subs {
		pending = append(pending, r)
	}
	c.subs = make(map[*Receiver[T]]struct{})
	c.mu.Unlock()

	for _, r := range pending {
		r.markClosed()
	}
}

// Receiver observes one Channel. It is not safe for concurrent use by
// multiple goroutines.
type Receiver[T any] struct {
	ch   *Channel[T]
	seen uint64
	wake chan struct{}

	mu     sync.Mutex
	closed bool
}

func (r *Receiver[T]) notify() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Receiver[T]) markClosed() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.notify()
}

func (r *Receiver[T]) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Changed blocks until the value has been modified since the last View, the
// context is done, or the channel is closed. Consecutive modifications
// between calls coalesce into a single wakeup.
func (r *Receiver[T]) Changed(ctx context.Context) error {
	for {
		if r.HasChanged() {
			return nil
		}
		if r.isClosed() {
			return ErrClosed
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.wake:
		}
	}
}

// HasChanged reports whether the value has been modified since the last
// View without blocking.
func (r *Receiver[T]) HasChanged() bool {
	r.ch.mu.RLock()
	defer r.ch.mu.RUnlock()
	return r.ch.version != r.seen
}

// View calls fn with read access to the current value and marks it seen.
func (r *Receiver[T]) View(fn func(value *T)) {
	r.ch.mu.RLock()
	defer r.ch.mu.RUnlock()
	r.seen = r.ch.version
	fn(&r.ch.value)
}

// Close detaches the receiver from the channel.
func (r *Receiver[T]) Close() {
	r.ch.mu.Lock()
	delete(r.ch.subs, r)
	r.ch.mu.Unlock()
	r.markClosed()
}
