// Package intern builds compact, linkable identities for runtime resources.
//
// An identity is assembled level by level. Each level describes one facet of
// a resource (the resource type itself, a field of it, the node that declared
// it, the host serving it) and is folded by an interner into a 64-bit Handle
// that carries the level's ordinal flag. Tag values pushed while folding are
// persisted into typed tables on a Registry, keyed by the resulting handle,
// so the original values can be recovered later.
//
// A Linker chains handles in level order and produces a Repr, a walkable
// representation whose tail handle links back through every lower level.
// Typed views over a Repr (resource, field, receiver, node, host) read the
// tag tables back out of the registry.
//
// Usage:
//
//	registry := intern.NewRegistry()
//
//	linker := intern.DescribeResource[MyResource](registry)
//	repr, err := linker.Link(ctx)
//	if err != nil {
//		return err
//	}
//
//	if res, ok := repr.AsResource(); ok {
//		name, _ := res.TypeName()
//		fmt.Println(name)
//	}
//
// All state lives on the Registry passed in by the caller. Two registries
// never observe each other's assignments, which keeps tests and independent
// runtimes isolated.
package intern
