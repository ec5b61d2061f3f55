// Package reality provides a high-level façade over the runtime core: the
// intern registry, the typed resource store and the wire synchronization
// layer. Most applications interact with this package by:
//  1. Creating a Runtime via New() (optionally overriding the registry,
//     store name or logger)
//  2. Describing resource types with DescribeResource and linking their
//     interned levels into representations
//  3. Serving typed values over the wire with ServeWire and editing them
//     through the returned client
//
// The façade delegates resource management to store.Store and field
// routing to wire.Server while keeping setup ergonomics concise. All
// defaults are safe for local development and testing; production
// deployments typically supply a structured logger.
package reality

import (
	"context"

	"github.com/juliusl/reality-sub001/intern"
	"github.com/juliusl/reality-sub001/logging"
	"github.com/juliusl/reality-sub001/store"
	"github.com/juliusl/reality-sub001/wire"
)

// Options configures the Runtime instance.
type Options struct {
	// Registry receives interned level descriptions. A fresh registry is
	// created when nil, so independent runtimes never share handles.
	Registry *intern.Registry

	// StoreName names the root resource store in log output.
	StoreName string

	// FrameBuffer sets the inbound frame queue capacity of wire servers
	// started through the runtime. Larger buffers absorb bursts of
	// multi-packet frames at the cost of memory. Values below one fall
	// back to the wire default.
	FrameBuffer int

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Runtime is the high-level façade aggregating the registry, the root
// resource store and the lifecycle context shared by everything started
// through it.
type Runtime struct {
	opts     Options
	registry *intern.Registry
	root     *store.Store
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a Runtime with optional overrides. Any unset dependency is
// initialized with an in-process implementation.
func New(optFns ...func(o *Options)) *Runtime {
	opts := Options{
		StoreName:   "root",
		FrameBuffer: 4,
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Registry == nil {
		opts.Registry = intern.NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Runtime{
		opts:     opts,
		registry: opts.Registry,
		root: store.New(
			store.WithName(opts.StoreName),
			store.WithLogger(opts.Logger),
		),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Store returns the root resource store.
func (rt *Runtime) Store() *store.Store {
	return rt.root
}

// Registry returns the intern registry.
func (rt *Runtime) Registry() *intern.Registry {
	return rt.registry
}

// Context returns the runtime's lifecycle context. It ends when Shutdown
// is called.
func (rt *Runtime) Context() context.Context {
	return rt.ctx
}

// Namespace returns the child store under label, creating it on first
// access.
func (rt *Runtime) Namespace(label string) *store.Store {
	return rt.root.Namespace(label)
}

// Shutdown cancels the runtime context and clears the registry. Wire
// servers started through the runtime stop serving, and interned handles
// are released so a later runtime can rebuild them.
func (rt *Runtime) Shutdown() {
	rt.cancel()
	rt.registry.Clear()
}

// DescribeResource returns a linker for the runtime's registry whose root
// level already describes resource type T.
func DescribeResource[T any](rt *Runtime, opts ...intern.LinkerOption) *intern.Linker {
	opts = append([]intern.LinkerOption{intern.WithLinkerLogger(rt.opts.Logger)}, opts...)
	return intern.DescribeResource[T](rt.registry, opts...)
}

// ServeWire builds a wire server over value on the runtime's root store
// and starts serving it on the runtime context. The returned client
// encodes edits against the served value; the server stops when the
// runtime shuts down.
func ServeWire[P any](rt *Runtime, value P, label string, optFns ...func(*wire.ServerOptions)) (*wire.Server[P], *wire.Client[P]) {
	key := store.KeyOf[P](label)
	base := []func(*wire.ServerOptions){
		wire.WithBufferLen(rt.opts.FrameBuffer),
		wire.WithLogger(rt.opts.Logger),
	}
	srv := wire.NewServer(rt.root, value, key, append(base, optFns...)...)

	go func() {
		if err := srv.Serve(rt.ctx); err != nil && rt.ctx.Err() == nil {
			rt.opts.Logger.Error("wire server stopped", "resource", key.String(), "error", err)
		}
	}()
	return srv, srv.Client()
}
