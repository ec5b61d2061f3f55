package intern

import "reflect"

// Registry owns the tag tables a runtime interns into. Every linker, repr,
// and typed view operates against exactly one registry, so isolated
// registries never observe each other's handles.
type Registry struct {
	// Root level.
	typeIDs   Table[reflect.Type]
	typeNames Table[string]
	typeSizes Table[uint64]

	// Field level.
	ownerIDs     Table[reflect.Type]
	ownerNames   Table[string]
	ownerSizes   Table[uint64]
	fieldOffsets Table[uint64]
	fieldNames   Table[string]

	// Receiver level.
	recvNames  Table[string]
	recvFields Table[[]Repr]

	// Dependency level.
	dependencyNames   Table[string]
	dependencyParents Table[Repr]

	// Node level.
	symbols     Table[string]
	inputs      Table[string]
	nodeTags    Table[string]
	paths       Table[string]
	nodeIndexes Table[uint64]
	sources     Table[string]
	docHeaders  Table[[]string]
	annotations Table[map[string]string]

	// Host level.
	addresses      Table[string]
	hostExtensions Table[[]Repr]

	// Linked handles, keyed by their unlinked form.
	handles Table[Handle]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// TypeIDs holds the reflected type of each interned resource.
func (r *Registry) TypeIDs() *Table[reflect.Type] {
	return &r.typeIDs
}

// TypeNames holds the printable name of each interned resource type.
func (r *Registry) TypeNames() *Table[string] {
	return &r.typeNames
}

// TypeSizes holds the in-memory size of each interned resource type.
func (r *Registry) TypeSizes() *Table[uint64] {
	return &r.typeSizes
}

// OwnerIDs holds the reflected type owning each interned field.
func (r *Registry) OwnerIDs() *Table[reflect.Type] {
	return &r.ownerIDs
}

// OwnerNames holds the printable name of each field's owner type.
func (r *Registry) OwnerNames() *Table[string] {
	return &r.ownerNames
}

// OwnerSizes holds the in-memory size of each field's owner type.
func (r *Registry) OwnerSizes() *Table[uint64] {
	return &r.ownerSizes
}

// FieldOffsets holds the byte offset of each interned field within its
// owner.
func (r *Registry) FieldOffsets() *Table[uint64] {
	return &r.fieldOffsets
}

// FieldNames holds the declared name of each interned field.
func (r *Registry) FieldNames() *Table[string] {
	return &r.fieldNames
}

// RecvNames holds the name of each interned receiver.
func (r *Registry) RecvNames() *Table[string] {
	return &r.recvNames
}

// RecvFields holds the field representations owned by each receiver.
func (r *Registry) RecvFields() *Table[[]Repr] {
	return &r.recvFields
}

// DependencyNames holds the name of each interned dependency.
func (r *Registry) DependencyNames() *Table[string] {
	return &r.dependencyNames
}

// DependencyParents holds the representation a dependency descends from.
func (r *Registry) DependencyParents() *Table[Repr] {
	return &r.dependencyParents
}

// Symbols holds node symbol tags.
func (r *Registry) Symbols() *Table[string] {
	return &r.symbols
}

// Inputs holds node input tags.
func (r *Registry) Inputs() *Table[string] {
	return &r.inputs
}

// NodeTags holds freeform node tags.
func (r *Registry) NodeTags() *Table[string] {
	return &r.nodeTags
}

// Paths holds node path tags.
func (r *Registry) Paths() *Table[string] {
	return &r.paths
}

// NodeIndexes holds the position of each node within its declaring source.
func (r *Registry) NodeIndexes() *Table[uint64] {
	return &r.nodeIndexes
}

// Sources holds the source document a node was declared in.
func (r *Registry) Sources() *Table[string] {
	return &r.sources
}

// DocHeaders holds documentation headers attached to a node.
func (r *Registry) DocHeaders() *Table[[]string] {
	return &r.docHeaders
}

// Annotations holds key value annotations attached to a node.
func (r *Registry) Annotations() *Table[map[string]string] {
	return &r.annotations
}

// Addresses holds the address a host level serves on.
func (r *Registry) Addresses() *Table[string] {
	return &r.addresses
}

// HostExtensions holds the extension representations attached to a host.
func (r *Registry) HostExtensions() *Table[[]Repr] {
	return &r.hostExtensions
}

// Handles is the table of linked handles keyed by their unlinked form. The
// level walk reads predecessors back out of it.
func (r *Registry) Handles() *Table[Handle] {
	return &r.handles
}

// Clear drops every table, releasing any blocked waiters. Handles interned
// before the clear can no longer be resolved.
func (r *Registry) Clear() {
	r.typeIDs.Clear()
	r.typeNames.Clear()
	r.typeSizes.Clear()
	r.ownerIDs.Clear()
	r.ownerNames.Clear()
	r.ownerSizes.Clear()
	r.fieldOffsets.Clear()
	r.fieldNames.Clear()
	r.recvNames.Clear()
	r.recvFields.Clear()
	r.dependencyNames.Clear()
	r.dependencyParents.Clear()
	r.symbols.Clear()
	r.inputs.Clear()
	r.nodeTags.Clear()
	r.paths.Clear()
	r.nodeIndexes.Clear()
	r.sources.Clear()
	r.docHeaders.Clear()
	r.annotations.Clear()
	r.addresses.Clear()
	r.hostExtensions.Clear()
	r.handles.Clear()
}
