package intern

import (
	"context"
	"fmt"
	"reflect"
)

// Repr is a linked representation of a resource, anchored at the handle of
// its highest level. Lower levels are recovered by walking the link chain
// back through the registry's handle table.
type Repr struct {
	reg  *Registry
	tail Handle
}

// ReprFromUint64 rebuilds a representation from a packed tail handle. The
// handle must have been linked against the same registry.
func ReprFromUint64(reg *Registry, v uint64) Repr {
	return Repr{reg: reg, tail: HandleFromUint64(v)}
}

// Uint64 packs the representation's tail handle into a single integer,
// suitable for embedding in keys and wire frames.
func (r Repr) Uint64() uint64 {
	return r.tail.Uint64()
}

// Tail returns the linked handle of the highest level.
func (r Repr) Tail() Handle {
	return r.tail
}

// IsZero reports whether the representation is empty.
func (r Repr) IsZero() bool {
	return r.reg == nil && r.tail.IsZero()
}

func (r Repr) String() string {
	return fmt.Sprintf("repr(%s)", r.tail)
}

// Levels walks the link chain and returns the unlinked handle of every
// level, root first.
func (r Repr) Levels() ([]Handle, error) {
	if r.reg == nil {
		return nil, fmt.Errorf("representation has no registry: %w", ErrNotInterned)
	}
	var levels []Handle
	h := r.tail
	for {
		prev, current, ok := h.Node()
		levels = append(levels, current)
		if !ok {
			break
		}
		linked, found := r.reg.handles.Value(prev)
		if !found {
			return nil, fmt.Errorf("level %s: %w", prev, ErrNotInterned)
		}
		h = linked
	}
	for i, j := 0, len(levels)-1; i < j; i, j = i+1, j-1 {
		levels[i], levels[j] = levels[j], levels[i]
	}
	return levels, nil
}

// Upgrade interns an additional level directly above the current tail and
// relinks the representation in place. The level must sit exactly one
// ordinal above the tail. Handle assignment is idempotent, so upgrading a
// level that was already linked elsewhere keeps its first link.
//
// A nil factory uses a fresh CRC interner.
func (r *Repr) Upgrade(ctx context.Context, f Factory, level Level) error {
	if r.reg == nil {
		return fmt.Errorf("representation has no registry: %w", ErrNotInterned)
	}
	if f == nil {
		f = NewCrcInterner()
	}

	res := level.Configure(f)
	h, err := res.WaitForReady(ctx)
	if err != nil {
		return err
	}
	if r.tail.LevelFlags().Next() != h.LevelFlags() {
		return ErrExpectedNextLevel
	}

	from := r.tail
	from.link = 0
	linked := h
	linked.link = from.Register() ^ h.Register()
	if err := r.reg.handles.Assign(h, linked); err != nil {
		return err
	}

	tail, err := r.reg.handles.Wait(ctx, h)
	if err != nil {
		return err
	}
	r.tail = *tail
	return nil
}

func (r Repr) level(i int) (Handle, bool) {
	levels, err := r.Levels()
	if err != nil || len(levels) <= i {
		return Handle{}, false
	}
	return levels[i], true
}

// AsResource views the root level.
func (r Repr) AsResource() (ResourceRepr, bool) {
	h, ok := r.level(0)
	if !ok {
		return ResourceRepr{}, false
	}
	return ResourceRepr{reg: r.reg, handle: h}, true
}

// AsField views the first extension level as a field.
func (r Repr) AsField() (FieldRepr, bool) {
	h, ok := r.level(1)
	if !ok {
		return FieldRepr{}, false
	}
	return FieldRepr{reg: r.reg, handle: h}, true
}

// AsRecv views the first extension level as a receiver.
func (r Repr) AsRecv() (RecvRepr, bool) {
	h, ok := r.level(1)
	if !ok {
		return RecvRepr{}, false
	}
	return RecvRepr{reg: r.reg, handle: h}, true
}

// AsDependency views the first extension level as a dependency.
func (r Repr) AsDependency() (DependencyRepr, bool) {
	h, ok := r.level(1)
	if !ok {
		return DependencyRepr{}, false
	}
	return DependencyRepr{reg: r.reg, handle: h}, true
}

// AsNode views the node level.
func (r Repr) AsNode() (NodeRepr, bool) {
	h, ok := r.level(2)
	if !ok {
		return NodeRepr{}, false
	}
	return NodeRepr{reg: r.reg, handle: h}, true
}

// AsHost views the host level.
func (r Repr) AsHost() (HostRepr, bool) {
	h, ok := r.level(3)
	if !ok {
		return HostRepr{}, false
	}
	return HostRepr{reg: r.reg, handle: h}, true
}

// ResourceRepr reads root level tags back out of the registry.
type ResourceRepr struct {
	reg    *Registry
	handle Handle
}

// Handle returns the unlinked handle of the level.
func (v ResourceRepr) Handle() Handle {
	return v.handle
}

// TypeID returns the reflected resource type.
func (v ResourceRepr) TypeID() (reflect.Type, bool) {
	return v.reg.typeIDs.Value(v.handle)
}

// TypeName returns the printable resource type name.
func (v ResourceRepr) TypeName() (string, bool) {
	return v.reg.typeNames.Value(v.handle)
}

// TypeSize returns the in-memory size of the resource type.
func (v ResourceRepr) TypeSize() (uint64, bool) {
	return v.reg.typeSizes.Value(v.handle)
}

// FieldRepr reads field level tags back out of the registry.
type FieldRepr struct {
	reg    *Registry
	handle Handle
}

// Handle returns the unlinked handle of the level.
func (v FieldRepr) Handle() Handle {
	return v.handle
}

// OwnerID returns the reflected type owning the field.
func (v FieldRepr) OwnerID() (reflect.Type, bool) {
	return v.reg.ownerIDs.Value(v.handle)
}

// OwnerName returns the printable name of the owning type.
func (v FieldRepr) OwnerName() (string, bool) {
	return v.reg.ownerNames.Value(v.handle)
}

// OwnerSize returns the in-memory size of the owning type.
func (v FieldRepr) OwnerSize() (uint64, bool) {
	return v.reg.ownerSizes.Value(v.handle)
}

// Offset returns the field's byte offset within its owner.
func (v FieldRepr) Offset() (uint64, bool) {
	return v.reg.fieldOffsets.Value(v.handle)
}

// Name returns the field's declared name.
func (v FieldRepr) Name() (string, bool) {
	return v.reg.fieldNames.Value(v.handle)
}

// RecvRepr reads receiver level tags back out of the registry.
type RecvRepr struct {
	reg    *Registry
	handle Handle
}

// Handle returns the unlinked handle of the level.
func (v RecvRepr) Handle() Handle {
	return v.handle
}

// Name returns the receiver's name.
func (v RecvRepr) Name() (string, bool) {
	return v.reg.recvNames.Value(v.handle)
}

// Fields returns the field representations the receiver's payload carries.
func (v RecvRepr) Fields() ([]Repr, bool) {
	return v.reg.recvFields.Value(v.handle)
}

// FindField looks up one of the receiver's fields by declared name.
func (v RecvRepr) FindField(name string) (Repr, bool) {
	fields, ok := v.Fields()
	if !ok {
		return Repr{}, false
	}
	for _, field := range fields {
		fr, ok := field.AsField()
		if !ok {
			continue
		}
		if n, ok := fr.Name(); ok && n == name {
			return field, true
		}
	}
	return Repr{}, false
}

// DependencyRepr reads dependency level tags back out of the registry.
type DependencyRepr struct {
	reg    *Registry
	handle Handle
}

// Handle returns the unlinked handle of the level.
func (v DependencyRepr) Handle() Handle {
	return v.handle
}

// Name returns the dependency's name.
func (v DependencyRepr) Name() (string, bool) {
	return v.reg.dependencyNames.Value(v.handle)
}

// Parent returns the representation the dependency descends from.
func (v DependencyRepr) Parent() (Repr, bool) {
	return v.reg.dependencyParents.Value(v.handle)
}

// NodeRepr reads node level tags back out of the registry.
type NodeRepr struct {
	reg    *Registry
	handle Handle
}

// Handle returns the unlinked handle of the level.
func (v NodeRepr) Handle() Handle {
	return v.handle
}

// Symbol returns the symbol that declared the node.
func (v NodeRepr) Symbol() (string, bool) {
	return v.reg.symbols.Value(v.handle)
}

// Input returns the node's raw declaration input.
func (v NodeRepr) Input() (string, bool) {
	return v.reg.inputs.Value(v.handle)
}

// Tag returns the node's freeform tag.
func (v NodeRepr) Tag() (string, bool) {
	return v.reg.nodeTags.Value(v.handle)
}

// Path returns the node's path within the declaring document.
func (v NodeRepr) Path() (string, bool) {
	return v.reg.paths.Value(v.handle)
}

// Index returns the node's position within its declaring source.
func (v NodeRepr) Index() (uint64, bool) {
	return v.reg.nodeIndexes.Value(v.handle)
}

// Source returns the document the node was declared in.
func (v NodeRepr) Source() (string, bool) {
	return v.reg.sources.Value(v.handle)
}

// DocHeaders returns documentation headers attached to the node.
func (v NodeRepr) DocHeaders() ([]string, bool) {
	return v.reg.docHeaders.Value(v.handle)
}

// Annotations returns key value annotations attached to the node.
func (v NodeRepr) Annotations() (map[string]string, bool) {
	return v.reg.annotations.Value(v.handle)
}

// HostRepr reads host level tags back out of the registry.
type HostRepr struct {
	reg    *Registry
	handle Handle
}

// Handle returns the unlinked handle of the level.
func (v HostRepr) Handle() Handle {
	return v.handle
}

// Address returns the address the host serves on.
func (v HostRepr) Address() (string, bool) {
	return v.reg.addresses.Value(v.handle)
}

// Extensions returns the extension representations attached to the host.
func (v HostRepr) Extensions() ([]Repr, bool) {
	return v.reg.hostExtensions.Value(v.handle)
}
