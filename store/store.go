package store

import (
	"encoding/binary"
	"hash/fnv"
	"reflect"
	"sync"

	"github.com/juliusl/reality-sub001/intern"
	"github.com/juliusl/reality-sub001/logging"
)

// slot guards one resource value. The value is always a *T for the slot's
// resource type, kept behind an any so slots of every type share one map.
type slot struct {
	mu    sync.RWMutex
	value any
}

// Options configures a Store.
type Options struct {
	// Name identifies the store in log output.
	Name string

	// Logger receives store diagnostics. Defaults to a no-op logger.
	Logger logging.Logger
}

// WithName sets the store's name.
func WithName(name string) func(*Options) {
	return func(o *Options) {
		o.Name = name
	}
}

// WithLogger sets the store's logger.
func WithLogger(logger logging.Logger) func(*Options) {
	return func(o *Options) {
		o.Logger = logger
	}
}

// Store is a typed resource map. All operations are safe for concurrent
// use; borrows fail fast rather than block.
type Store struct {
	mu    sync.RWMutex
	slots map[uint64]*slot

	name string
	log  logging.Logger

	queueMu  sync.Mutex
	mutQueue []func(*Store)
	roQueue  []func(*Store)
}

// New returns an empty store.
func New(optFns ...func(*Options)) *Store {
	opts := Options{
		Name:   "root",
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{
		slots: make(map[uint64]*slot),
		name:  opts.Name,
		log:   opts.Logger,
	}
}

// Name returns the store's name.
func (s *Store) Name() string {
	return s.name
}

// Len returns the number of resident resources, queues and namespaces
// included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}

// Namespace returns the child store stored under label, creating it on
// first access. Children are ordinary resources of the parent, so taking
// or replacing them follows the usual rules.
func (s *Store) Namespace(label string) *Store {
	key := KeyOf[*Store](label)
	if guard, ok := Borrow(s, key); ok {
		child := *guard.Value()
		guard.Release()
		return child
	}

	child := New(func(o *Options) {
		o.Name = s.name + "/" + label
		o.Logger = s.log
	})
	resident := MaybePut(s, key, child)
	if resident == child {
		s.log.Debug("created namespace", "store", s.name, "namespace", label)
	}
	return resident
}

// LazyDispatch queues fn to observe the store on the next drain.
func (s *Store) LazyDispatch(fn func(*Store)) {
	s.queueMu.Lock()
	s.roQueue = append(s.roQueue, fn)
	s.queueMu.Unlock()
}

// LazyDispatchMut queues fn to mutate the store on the next drain.
func (s *Store) LazyDispatchMut(fn func(*Store)) {
	s.queueMu.Lock()
	s.mutQueue = append(s.mutQueue, fn)
	s.queueMu.Unlock()
}

// DrainDispatchQueues runs queued store functions. Mutating functions run
// first, in submission order, then observing functions. Work queued while
// a mutating function runs lands in the next drain for the mutating queue
// but in the current drain for the observing queue.
func (s *Store) DrainDispatchQueues() {
	s.queueMu.Lock()
	muts := s.mutQueue
	s.mutQueue = nil
	s.queueMu.Unlock()

	for _, fn := range muts {
		fn(s)
	}

	s.queueMu.Lock()
	ros := s.roQueue
	s.roQueue = nil
	s.queueMu.Unlock()

	for _, fn := range ros {
		fn(s)
	}

	if len(muts) > 0 || len(ros) > 0 {
		s.log.Debug("drained store queues", "store", s.name, "mutating", len(muts), "observing", len(ros))
	}
}

// typeHash folds a resource type into the slot address space.
func typeHash(t reflect.Type) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(t.String()))
	var size [8]byte
	binary.BigEndian.PutUint64(size[:], uint64(t.Size()))
	_, _ = h.Write(size[:])
	return h.Sum64()
}

// address computes the slot address of a key, folding in the resource type
// so identical key data under different types stays disjoint.
func address[T any](key ResourceKey[T]) uint64 {
	return typeHash(intern.TypeOf[T]()) ^ key.Hash()
}

func (s *Store) lookup(addr uint64) *slot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slots[addr]
}

// Put installs value under key, replacing any resident slot. Existing
// guards keep the value they locked; new borrows see the new value. Put
// never blocks on resource locks.
func Put[T any](s *Store, key ResourceKey[T], value T) {
	fresh := &slot{value: &value}
	s.mu.Lock()
	s.slots[address(key)] = fresh
	s.mu.Unlock()
}

// MaybePut installs value only when key has no resident resource, and
// returns the resident either way.
func MaybePut[T any](s *Store, key ResourceKey[T], value T) T {
	addr := address(key)

	s.mu.Lock()
	if existing := s.slots[addr]; existing != nil {
		s.mu.Unlock()
		existing.mu.RLock()
		resident := *existing.value.(*T)
		existing.mu.RUnlock()
		return resident
	}
	s.slots[addr] = &slot{value: &value}
	s.mu.Unlock()
	return value
}

// Contains reports whether key has a resident resource.
func Contains[T any](s *Store, key ResourceKey[T]) bool {
	return s.lookup(address(key)) != nil
}

// Take removes and returns the resource under key. It fails when the
// resource is absent or currently borrowed.
func Take[T any](s *Store, key ResourceKey[T]) (T, bool) {
	var zero T
	addr := address(key)

	s.mu.Lock()
	sl := s.slots[addr]
	if sl == nil {
		s.mu.Unlock()
		return zero, false
	}
	if !sl.mu.TryLock() {
		s.mu.Unlock()
		return zero, false
	}
	delete(s.slots, addr)
	s.mu.Unlock()

	value := *sl.value.(*T)
	sl.mu.Unlock()
	return value, true
}

// Delete removes the resource under key. It fails when the resource is
// absent or currently borrowed.
func Delete[T any](s *Store, key ResourceKey[T]) bool {
	_, ok := Take(s, key)
	return ok
}

// Borrow acquires shared read access to the resource under key. It fails
// when the resource is absent or exclusively borrowed. The caller must
// Release the guard.
func Borrow[T any](s *Store, key ResourceKey[T]) (*ReadGuard[T], bool) {
	sl := s.lookup(address(key))
	if sl == nil {
		return nil, false
	}
	if !sl.mu.TryRLock() {
		return nil, false
	}
	return &ReadGuard[T]{slot: sl, value: sl.value.(*T)}, true
}

// BorrowMut acquires exclusive access to the resource under key. It fails
// when the resource is absent or borrowed in any mode. The caller must
// Release the guard.
func BorrowMut[T any](s *Store, key ResourceKey[T]) (*WriteGuard[T], bool) {
	sl := s.lookup(address(key))
	if sl == nil {
		return nil, false
	}
	if !sl.mu.TryLock() {
		return nil, false
	}
	return &WriteGuard[T]{slot: sl, value: sl.value.(*T)}, true
}

// viewValue runs fn with shared access to the resource under key, creating
// a zero value first when absent. Unlike Borrow it blocks, so it is
// reserved for internal short critical sections.
func viewValue[T any](s *Store, key ResourceKey[T], fn func(*T)) {
	sl := ensureSlot(s, key)
	sl.mu.RLock()
	fn(sl.value.(*T))
	sl.mu.RUnlock()
}

// modifyValue runs fn with exclusive access to the resource under key,
// creating a zero value first when absent. Blocking, internal use only.
func modifyValue[T any](s *Store, key ResourceKey[T], fn func(*T)) {
	sl := ensureSlot(s, key)
	sl.mu.Lock()
	fn(sl.value.(*T))
	sl.mu.Unlock()
}

func ensureSlot[T any](s *Store, key ResourceKey[T]) *slot {
	addr := address(key)
	for {
		if sl := s.lookup(addr); sl != nil {
			return sl
		}
		var zero T
		MaybePut(s, key, zero)
	}
}

// ReadGuard holds shared access to one resource. Release is idempotent.
type ReadGuard[T any] struct {
	slot  *slot
	value *T
	once  sync.Once
}

// Value returns the guarded resource. The pointer must not be retained
// past Release.
func (g *ReadGuard[T]) Value() *T {
	return g.value
}

// Release drops the guard.
func (g *ReadGuard[T]) Release() {
	g.once.Do(func() {
		g.slot.mu.RUnlock()
	})
}

// WriteGuard holds exclusive access to one resource. Release is
// idempotent.
type WriteGuard[T any] struct {
	slot  *slot
	value *T
	once  sync.Once
}

// Value returns the guarded resource. The pointer must not be retained
// past Release.
func (g *WriteGuard[T]) Value() *T {
	return g.value
}

// Release drops the guard.
func (g *WriteGuard[T]) Release() {
	g.once.Do(func() {
		g.slot.mu.Unlock()
	})
}
