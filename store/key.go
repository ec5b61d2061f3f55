package store

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"
	"github.com/juliusl/reality-sub001/intern"
)

// ResourceKey addresses one resource of type T. The key packs sixteen bytes
// of data: the upper eight carry the resource's linked representation when
// one has been attached, the lower eight carry a discriminator hash.
//
// Keys are comparable and usable as map keys. The zero value is the root
// key of T.
type ResourceKey[T any] struct {
	data uuid.UUID
}

// Root returns the root key of T, which addresses the type's default slot.
func Root[T any]() ResourceKey[T] {
	return ResourceKey[T]{}
}

// KeyOf returns the key for T discriminated by label.
func KeyOf[T any](label string) ResourceKey[T] {
	return Root[T]().Branch(label)
}

// Transmute rebinds a key to resource type B, preserving its data. The
// transmuted key addresses a different slot because the slot address folds
// in the resource type.
func Transmute[B any, A any](key ResourceKey[A]) ResourceKey[B] {
	return ResourceKey[B]{data: key.data}
}

// Branch derives a child key by chaining the discriminator hash over label.
// Branching is deterministic and order-sensitive: a.Branch("x").Branch("y")
// and a.Branch("y").Branch("x") are distinct.
func (k ResourceKey[T]) Branch(label string) ResourceKey[T] {
	h := fnv.New64a()
	_, _ = h.Write(k.data[8:16])
	_, _ = h.Write([]byte(label))

	next := k
	binary.BigEndian.PutUint64(next.data[8:16], h.Sum64())
	return next
}

// WithRepr attaches a linked representation to the key's upper bytes.
func (k ResourceKey[T]) WithRepr(r intern.Repr) ResourceKey[T] {
	next := k
	binary.BigEndian.PutUint64(next.data[0:8], r.Uint64())
	return next
}

// Repr recovers the representation attached to the key, resolving against
// reg. Returns false when the key carries none.
func (k ResourceKey[T]) Repr(reg *intern.Registry) (intern.Repr, bool) {
	packed := binary.BigEndian.Uint64(k.data[0:8])
	if packed == 0 {
		return intern.Repr{}, false
	}
	return intern.ReprFromUint64(reg, packed), true
}

// UUID returns the key's raw data.
func (k ResourceKey[T]) UUID() uuid.UUID {
	return k.data
}

// Hash folds the key data into the value used for slot addressing. The
// root key hashes to zero.
func (k ResourceKey[T]) Hash() uint64 {
	return binary.BigEndian.Uint64(k.data[0:8]) ^ binary.BigEndian.Uint64(k.data[8:16])
}

// IsRoot reports whether the key is the root key.
func (k ResourceKey[T]) IsRoot() bool {
	return k.data == uuid.Nil
}

func (k ResourceKey[T]) String() string {
	return fmt.Sprintf("%s@%016x", intern.TypeOf[T]().String(), k.Hash())
}
