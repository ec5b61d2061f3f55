// Package store provides typed, keyed storage for runtime resources.
//
// A Store maps resource keys to slots. Each slot guards one value behind a
// read/write lock, and borrow operations fail fast instead of blocking, so
// a caller holding a guard can never deadlock another. Put always succeeds:
// it installs a fresh slot, leaving existing guards pinned to the value
// they locked.
//
// Keys are typed. A ResourceKey[T] can only address resources of type T,
// and the slot address folds the key with a hash of T, so the same key
// data under two types never collides.
//
// Work against a resource can be deferred. A Dispatcher[T] queues
// mutations, observations, and owned transformations as resources inside
// the store itself, then applies them in a fixed order when DispatchAll
// runs. Stores also carry their own lazy queues for work that needs the
// whole store.
//
// Usage:
//
//	s := store.New()
//	key := store.KeyOf[Config]("deploy")
//	store.Put(s, key, Config{Replicas: 3})
//
//	if guard, ok := store.Borrow(s, key); ok {
//		fmt.Println(guard.Value().Replicas)
//		guard.Release()
//	}
package store
