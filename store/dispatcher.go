package store

import (
	"context"
	"sync"
)

// Queue resources. Each dispatcher keeps its pending work inside the store
// itself, under the dispatched key transmuted to one of these types, so
// queues are addressable per resource and survive the dispatcher value.
type (
	mutQueue[T any]   struct{ fns []func(*T) }
	roQueue[T any]    struct{ fns []func(T) }
	ownedQueue[T any] struct{ fns []func(T) T }
	taskQueue[T any]  struct {
		fns []func(context.Context, T) (T, error)
	}
)

// Dispatcher queues deferred work against one resource and applies it in a
// fixed order. Creating a dispatcher initializes the resource to its zero
// value when absent.
//
// DispatchAll applies, in order: completed background tasks, owned tasks
// (each awaited and written back before the next runs), owned
// transformations and mutations under a single write guard, then
// observations under a read guard.
type Dispatcher[T any] struct {
	store *Store
	key   ResourceKey[T]

	mu    sync.Mutex
	tasks []chan error
}

// NewDispatcher returns a dispatcher for the resource under key,
// initializing it to the zero value of T when absent.
func NewDispatcher[T any](s *Store, key ResourceKey[T]) *Dispatcher[T] {
	var zero T
	MaybePut(s, key, zero)
	return &Dispatcher[T]{store: s, key: key}
}

// Store returns the store the dispatcher operates on.
func (d *Dispatcher[T]) Store() *Store {
	return d.store
}

// Key returns the key of the dispatched resource.
func (d *Dispatcher[T]) Key() ResourceKey[T] {
	return d.key
}

// QueueDispatch queues fn to observe the resource.
func (d *Dispatcher[T]) QueueDispatch(fn func(T)) {
	modifyValue(d.store, Transmute[roQueue[T]](d.key), func(q *roQueue[T]) {
		q.fns = append(q.fns, fn)
	})
}

// QueueDispatchMut queues fn to mutate the resource in place.
func (d *Dispatcher[T]) QueueDispatchMut(fn func(*T)) {
	modifyValue(d.store, Transmute[mutQueue[T]](d.key), func(q *mutQueue[T]) {
		q.fns = append(q.fns, fn)
	})
}

// QueueDispatchOwned queues fn to replace the resource with a transformed
// value.
func (d *Dispatcher[T]) QueueDispatchOwned(fn func(T) T) {
	modifyValue(d.store, Transmute[ownedQueue[T]](d.key), func(q *ownedQueue[T]) {
		q.fns = append(q.fns, fn)
	})
}

// QueueDispatchOwnedTask queues fn to replace the resource asynchronously.
// Owned tasks run one at a time during DispatchAll; an error aborts the
// cycle and drops the tasks queued behind it.
func (d *Dispatcher[T]) QueueDispatchOwnedTask(fn func(context.Context, T) (T, error)) {
	modifyValue(d.store, Transmute[taskQueue[T]](d.key), func(q *taskQueue[T]) {
		q.fns = append(q.fns, fn)
	})
}

// Spawn starts fn immediately in its own goroutine and tracks it. The next
// HandleTasks or DispatchAll waits for every spawned task in start order.
func (d *Dispatcher[T]) Spawn(ctx context.Context, fn func(context.Context) error) {
	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()
	d.mu.Lock()
	d.tasks = append(d.tasks, done)
	d.mu.Unlock()
}

// HandleTasks waits for all spawned background tasks and returns the first
// error any of them produced.
func (d *Dispatcher[T]) HandleTasks(ctx context.Context) error {
	d.mu.Lock()
	tasks := d.tasks
	d.tasks = nil
	d.mu.Unlock()

	var firstErr error
	for _, done := range tasks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-done:
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// DispatchAll drains every queue against the resource. See the type doc
// for ordering. Work queued while the write guard is held lands in the
// next cycle, except observations, which are collected after mutations
// finish and therefore run in the current one.
func (d *Dispatcher[T]) DispatchAll(ctx context.Context) error {
	if err := d.HandleTasks(ctx); err != nil {
		return err
	}

	var tasks []func(context.Context, T) (T, error)
	modifyValue(d.store, Transmute[taskQueue[T]](d.key), func(q *taskQueue[T]) {
		tasks = q.fns
		q.fns = nil
	})
	for _, fn := range tasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		var current T
		viewValue(d.store, d.key, func(p *T) {
			current = *p
		})
		next, err := fn(ctx, current)
		if err != nil {
			return err
		}
		Put(d.store, d.key, next)
	}

	var owned []func(T) T
	modifyValue(d.store, Transmute[ownedQueue[T]](d.key), func(q *ownedQueue[T]) {
		owned = q.fns
		q.fns = nil
	})
	var muts []func(*T)
	modifyValue(d.store, Transmute[mutQueue[T]](d.key), func(q *mutQueue[T]) {
		muts = q.fns
		q.fns = nil
	})
	if len(owned) > 0 || len(muts) > 0 {
		modifyValue(d.store, d.key, func(p *T) {
			for _, fn := range owned {
				*p = fn(*p)
			}
			for _, fn := range muts {
				fn(p)
			}
		})
	}

	var ros []func(T)
	modifyValue(d.store, Transmute[roQueue[T]](d.key), func(q *roQueue[T]) {
		ros = q.fns
		q.fns = nil
	})
	if len(ros) > 0 {
		viewValue(d.store, d.key, func(p *T) {
			for _, fn := range ros {
				fn(*p)
			}
		})
	}

	mutating := len(tasks) + len(owned) + len(muts)
	if mutating > 0 || len(ros) > 0 {
		d.store.log.Debug("dispatched resource queues",
			"store", d.store.name,
			"resource", d.key.String(),
			"mutating", mutating,
			"observing", len(ros),
		)
	}
	return nil
}
