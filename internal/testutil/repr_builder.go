package testutil

import (
	"context"
	"reflect"

	"github.com/juliusl/reality-sub001/intern"
)

// ReprBuilder provides a fluent helper for linking representations in
// tests. Levels are pushed in call order; the first push error is latched
// and returned from Link. Example:
//
//	repr, err := NewReprBuilder(reg).
//		Resource(intern.TypeOf[townRecord]()).
//		Field(intern.TypeOf[townRecord](), "Name", 0).
//		Link(ctx)
type ReprBuilder struct {
	reg    *intern.Registry
	linker *intern.Linker
	err    error
}

// NewReprBuilder creates a builder linking against reg.
func NewReprBuilder(reg *intern.Registry) *ReprBuilder {
	return &ReprBuilder{reg: reg, linker: intern.NewLinker(reg)}
}

func (b *ReprBuilder) push(level intern.Level) *ReprBuilder {
	if b.err == nil {
		b.err = b.linker.PushLevel(level)
	}
	return b
}

// Resource pushes the root resource level for typ (chainable).
func (b *ReprBuilder) Resource(typ reflect.Type) *ReprBuilder {
	return b.push(intern.NewResourceLevel(b.reg, typ))
}

// Field pushes a field level for the named field of owner (chainable).
func (b *ReprBuilder) Field(owner reflect.Type, name string, offset uint64) *ReprBuilder {
	return b.push(intern.NewFieldLevel(b.reg, owner, name, offset))
}

// Recv pushes a receiver level bundling fields (chainable).
func (b *ReprBuilder) Recv(name string, fields ...intern.Repr) *ReprBuilder {
	return b.push(intern.NewRecvLevel(b.reg, name, fields))
}

// Dependency pushes a named dependency level (chainable).
func (b *ReprBuilder) Dependency(name string) *ReprBuilder {
	return b.push(intern.NewDependencyLevel(b.reg, name))
}

// DependencyOn pushes a dependency level descending from parent (chainable).
func (b *ReprBuilder) DependencyOn(name string, parent intern.Repr) *ReprBuilder {
	return b.push(intern.NewDependencyLevel(b.reg, name).WithParent(parent))
}

// Node pushes a node level built from opts (chainable).
func (b *ReprBuilder) Node(opts ...intern.NodeOption) *ReprBuilder {
	return b.push(intern.NewNodeLevel(b.reg, opts...))
}

// Host pushes a host level for address (chainable).
func (b *ReprBuilder) Host(address string, extensions ...intern.Repr) *ReprBuilder {
	level := intern.NewHostLevel(b.reg, address)
	if len(extensions) > 0 {
		level = level.WithExtensions(extensions...)
	}
	return b.push(level)
}

// Link resolves the pushed levels into a representation. Any error latched
// while pushing levels is returned instead.
func (b *ReprBuilder) Link(ctx context.Context) (intern.Repr, error) {
	if b.err != nil {
		return intern.Repr{}, b.err
	}
	return b.linker.Link(ctx)
}
