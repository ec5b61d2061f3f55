package intern

import (
	"fmt"
	"reflect"
)

// Level describes one facet of a resource representation. Configuring a
// level pushes its tag values into a factory and interns them into a
// handle carrying the level's flag.
type Level interface {
	Configure(f Factory) *Result
}

// TypeOf returns the reflected type of T without constructing a value.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// ResourceLevel is the root level. It identifies a resource by its
// reflected type, printable name, and in-memory size.
type ResourceLevel struct {
	reg *Registry
	typ reflect.Type
}

// ResourceOf describes the root level of resource type T.
func ResourceOf[T any](reg *Registry) ResourceLevel {
	return NewResourceLevel(reg, TypeOf[T]())
}

// NewResourceLevel describes the root level of an already reflected type.
func NewResourceLevel(reg *Registry, typ reflect.Type) ResourceLevel {
	return ResourceLevel{reg: reg, typ: typ}
}

// Configure implements Level.
func (l ResourceLevel) Configure(f Factory) *Result {
	ValueTag(l.reg.TypeIDs(), l.typ).Push(f)
	ValueTag(l.reg.TypeSizes(), uint64(l.typ.Size())).Push(f)
	ValueTag(l.reg.TypeNames(), l.typ.String()).Push(f)
	f.SetLevelFlags(Root)
	return f.Intern()
}

// FieldLevel extends a resource with one of its fields, identified by the
// owner type, the field's declared name, and its byte offset.
type FieldLevel struct {
	reg       *Registry
	owner     reflect.Type
	offset    uint64
	fieldName string
}

// FieldOf describes the field named fieldName of Owner, resolving the
// offset via reflection. The name must match the Go field declaration.
func FieldOf[Owner any](reg *Registry, fieldName string) (FieldLevel, error) {
	owner := TypeOf[Owner]()
	sf, ok := owner.FieldByName(fieldName)
	if !ok {
		return FieldLevel{}, fmt.Errorf("type %s has no field %q", owner, fieldName)
	}
	return NewFieldLevel(reg, owner, fieldName, uint64(sf.Offset)), nil
}

// NewFieldLevel describes a field from already resolved parts.
func NewFieldLevel(reg *Registry, owner reflect.Type, fieldName string, offset uint64) FieldLevel {
	return FieldLevel{reg: reg, owner: owner, offset: offset, fieldName: fieldName}
}

// Configure implements Level.
func (l FieldLevel) Configure(f Factory) *Result {
	ValueTag(l.reg.OwnerIDs(), l.owner).Push(f)
	ValueTag(l.reg.OwnerNames(), l.owner.String()).Push(f)
	ValueTag(l.reg.OwnerSizes(), uint64(l.owner.Size())).Push(f)
	ValueTag(l.reg.FieldOffsets(), l.offset).Push(f)
	ValueTag(l.reg.FieldNames(), l.fieldName).Push(f)
	f.SetLevelFlags(Level1)
	return f.Intern()
}

// RecvLevel extends a resource with a named receiver and the field
// representations its payload carries.
type RecvLevel struct {
	reg    *Registry
	name   string
	fields []Repr
}

// NewRecvLevel describes the receiver named name.
func NewRecvLevel(reg *Registry, name string, fields []Repr) RecvLevel {
	return RecvLevel{reg: reg, name: name, fields: fields}
}

// Configure implements Level.
func (l RecvLevel) Configure(f Factory) *Result {
	ValueTag(l.reg.RecvNames(), l.name).Push(f)
	ValueTag(l.reg.RecvFields(), l.fields).Push(f)
	f.SetLevelFlags(Level1)
	return f.Intern()
}

// DependencyLevel extends a resource with a named dependency, optionally
// recording the representation the dependency descends from.
type DependencyLevel struct {
	reg    *Registry
	name   string
	parent *Repr
}

// NewDependencyLevel describes the dependency named name.
func NewDependencyLevel(reg *Registry, name string) DependencyLevel {
	return DependencyLevel{reg: reg, name: name}
}

// WithParent records the representation this dependency descends from.
func (l DependencyLevel) WithParent(parent Repr) DependencyLevel {
	l.parent = &parent
	return l
}

// Configure implements Level.
func (l DependencyLevel) Configure(f Factory) *Result {
	ValueTag(l.reg.DependencyNames(), l.name).Push(f)
	if l.parent != nil {
		ValueTag(l.reg.DependencyParents(), *l.parent).Push(f)
	}
	f.SetLevelFlags(Level1)
	return f.Intern()
}

// NodeLevel extends a representation with the declaration site of the
// resource. All tags are optional; unset tags do not contribute to the
// handle, so two nodes with the same set tags intern identically.
type NodeLevel struct {
	reg         *Registry
	symbol      *string
	input       *string
	tag         *string
	path        *string
	index       *uint64
	source      *string
	docHeaders  []string
	annotations map[string]string
}

// NodeOption sets one optional tag on a NodeLevel.
type NodeOption func(*NodeLevel)

// NewNodeLevel describes a node with the given tags.
func NewNodeLevel(reg *Registry, opts ...NodeOption) NodeLevel {
	l := NodeLevel{reg: reg}
	for _, opt := range opts {
		opt(&l)
	}
	return l
}

// WithSymbol tags the node with the symbol that declared it.
func WithSymbol(symbol string) NodeOption {
	return func(l *NodeLevel) {
		l.symbol = &symbol
	}
}

// WithInput tags the node with its raw declaration input.
func WithInput(input string) NodeOption {
	return func(l *NodeLevel) {
		l.input = &input
	}
}

// WithTag attaches a freeform tag to the node.
func WithTag(tag string) NodeOption {
	return func(l *NodeLevel) {
		l.tag = &tag
	}
}

// WithPath tags the node with its path in the declaring document.
func WithPath(path string) NodeOption {
	return func(l *NodeLevel) {
		l.path = &path
	}
}

// WithIndex tags the node with its position within the declaring source.
func WithIndex(index uint64) NodeOption {
	return func(l *NodeLevel) {
		l.index = &index
	}
}

// WithSource tags the node with the document it was declared in.
func WithSource(source string) NodeOption {
	return func(l *NodeLevel) {
		l.source = &source
	}
}

// WithDocHeaders attaches documentation headers to the node.
func WithDocHeaders(headers ...string) NodeOption {
	return func(l *NodeLevel) {
		l.docHeaders = headers
	}
}

// WithAnnotations attaches key value annotations to the node.
func WithAnnotations(annotations map[string]string) NodeOption {
	return func(l *NodeLevel) {
		l.annotations = annotations
	}
}

// Configure implements Level.
func (l NodeLevel) Configure(f Factory) *Result {
	if l.symbol != nil {
		ValueTag(l.reg.Symbols(), *l.symbol).Push(f)
	}
	if l.input != nil {
		ValueTag(l.reg.Inputs(), *l.input).Push(f)
	}
	if l.tag != nil {
		ValueTag(l.reg.NodeTags(), *l.tag).Push(f)
	}
	if l.path != nil {
		ValueTag(l.reg.Paths(), *l.path).Push(f)
	}
	if l.index != nil {
		ValueTag(l.reg.NodeIndexes(), *l.index).Push(f)
	}
	if l.source != nil {
		ValueTag(l.reg.Sources(), *l.source).Push(f)
	}
	if len(l.docHeaders) > 0 {
		ValueTag(l.reg.DocHeaders(), l.docHeaders).Push(f)
	}
	if len(l.annotations) > 0 {
		ValueTag(l.reg.Annotations(), l.annotations).Push(f)
	}
	f.SetLevelFlags(Level2)
	return f.Intern()
}

// HostLevel extends a representation with the host serving the resource.
type HostLevel struct {
	reg        *Registry
	address    string
	extensions []Repr
}

// NewHostLevel describes a host reachable at address.
func NewHostLevel(reg *Registry, address string) HostLevel {
	return HostLevel{reg: reg, address: address}
}

// WithExtensions attaches extension representations to the host.
func (l HostLevel) WithExtensions(extensions ...Repr) HostLevel {
	l.extensions = extensions
	return l
}

// Configure implements Level.
func (l HostLevel) Configure(f Factory) *Result {
	ValueTag(l.reg.Addresses(), l.address).Push(f)
	if len(l.extensions) > 0 {
		ValueTag(l.reg.HostExtensions(), l.extensions).Push(f)
	}
	f.SetLevelFlags(Level3)
	return f.Intern()
}
