package intern

import (
	"context"
	"sync"
)

// Table stores tag values of one type keyed by handle. Assignment is
// idempotent: the first value written under a handle wins and later writes
// are ignored, which makes re-interning an already known level harmless.
//
// The zero value is ready to use.
type Table[T any] struct {
	mu      sync.RWMutex
	entries map[Handle]*T
	waiters map[Handle][]chan struct{}
}

// NewTable returns an empty table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{}
}

// Assign records value under h unless an entry already exists. Waiters
// blocked on h are released either way.
func (t *Table[T]) Assign(h Handle, value T) error {
	t.mu.Lock()
	if t.entries == nil {
		t.entries = make(map[Handle]*T)
	}
	if _, ok := t.entries[h]; !ok {
		t.entries[h] = &value
	}
	waiters := t.waiters[h]
	delete(t.waiters, h)
	t.mu.Unlock()

	for _, w := range waiters {
		close(w)
	}
	return nil
}

// Get returns a pointer to the stored value. The pointer stays valid after
// Clear; mutations through it are visible to every holder.
func (t *Table[T]) Get(h Handle) (*T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.entries[h]
	return v, ok
}

// Value returns a copy of the stored value.
func (t *Table[T]) Value(h Handle) (T, bool) {
	if v, ok := t.Get(h); ok {
		return *v, true
	}
	var zero T
	return zero, false
}

// Wait blocks until a value is assigned under h or the context is done.
func (t *Table[T]) Wait(ctx context.Context, h Handle) (*T, error) {
	t.mu.Lock()
	if v, ok := t.entries[h]; ok {
		t.mu.Unlock()
		return v, nil
	}
	w := make(chan struct{})
	if t.waiters == nil {
		t.waiters = make(map[Handle][]chan struct{})
	}
	t.waiters[h] = append(t.waiters[h], w)
	t.mu.Unlock()

	select {
	case <-ctx.Done():
		t.dropWaiter(h, w)
		return nil, ctx.Err()
	case <-w:
	}

	if v, ok := t.Get(h); ok {
		return v, nil
	}
	// Released by Clear rather than an assignment.
	return nil, ErrNotInterned
}

func (t *Table[T]) dropWaiter(h Handle, w chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ws := t.waiters[h]
	for i, cand := range ws {
		if cand == w {
			t.waiters[h] = append(ws[:i], ws[i+1:]...)
			break
		}
	}
	if len(t.waiters[h]) == 0 {
		delete(t.waiters, h)
	}
}

// Len returns the number of assigned entries.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Clear drops all entries and releases any blocked waiters.
func (t *Table[T]) Clear() {
	t.mu.Lock()
	t.entries = nil
	waiters := t.waiters
	t.waiters = nil
	t.mu.Unlock()

	for _, ws := range waiters {
		for _, w := range ws {
			close(w)
		}
	}
}
