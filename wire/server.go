package wire

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/juliusl/reality-sub001/logging"
	"github.com/juliusl/reality-sub001/store"
	"github.com/juliusl/reality-sub001/watch"
)

// ServerOptions configures a wire server.
type ServerOptions struct {
	// BufferLen is the capacity of the inbound frame queue.
	BufferLen int

	// RetryInterval paces resubmission of packets that found no open
	// route port.
	RetryInterval time.Duration

	// Logger receives server diagnostics.
	Logger logging.Logger
}

// WithBufferLen sets the inbound frame queue capacity.
func WithBufferLen(n int) func(*ServerOptions) {
	return func(o *ServerOptions) {
		o.BufferLen = n
	}
}

// WithRetryInterval sets the pacing interval for resubmitted packets.
func WithRetryInterval(d time.Duration) func(*ServerOptions) {
	return func(o *ServerOptions) {
		o.RetryInterval = d
	}
}

// WithLogger sets the server's logger.
func WithLogger(logger logging.Logger) func(*ServerOptions) {
	return func(o *ServerOptions) {
		o.Logger = logger
	}
}

// Server serves the routing table of one value of P. Inbound frames are
// split into packets, routed to fields, and accumulated as FrameUpdates
// in the backing store.
type Server[P any] struct {
	store    *store.Store
	listener *FrameListener[P]
	router   *Router[P]
	updates  *store.Dispatcher[FrameUpdates]
	limiter  *rate.Limiter
	log      logging.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// NewServer builds a routing table over value and prepares a server for
// it. Routed updates accumulate in s under key transmuted to
// FrameUpdates.
func NewServer[P any](s *store.Store, value P, key store.ResourceKey[P], optFns ...func(*ServerOptions)) *Server[P] {
	opts := ServerOptions{
		BufferLen:     defaultBufferLen,
		RetryInterval: 100 * time.Millisecond,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	listener := NewFrameListener(NewRoutingTable(value, key), opts.BufferLen)
	router := NewRouter(listener, opts.Logger)
	updates := store.NewDispatcher(s, store.Transmute[FrameUpdates](key))
	router.Bind(updates)

	return &Server[P]{
		store:    s,
		listener: listener,
		router:   router,
		updates:  updates,
		limiter:  rate.NewLimiter(rate.Every(opts.RetryInterval), 1),
		log:      opts.Logger,
		done:     make(chan struct{}),
	}
}

// Listener returns the server's frame listener.
func (s *Server[P]) Listener() *FrameListener[P] {
	return s.listener
}

// Updates returns the dispatcher accumulating routed updates.
func (s *Server[P]) Updates() *store.Dispatcher[FrameUpdates] {
	return s.updates
}

// Client returns a client bound to this server.
func (s *Server[P]) Client() *Client[P] {
	return &Client[P]{listener: s.listener}
}

// SubscribeRoutes registers an observer over the served routing table.
func (s *Server[P]) SubscribeRoutes() *watch.Receiver[RoutingTable[P]] {
	return s.listener.SubscribeRoutes()
}

// Shutdown stops Serve without touching the caller's context. It is safe
// to call more than once and before Serve starts.
func (s *Server[P]) Shutdown() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Serve routes inbound frames until the context ends, then returns
// ErrShuttingDown.
//
// A packet that finds no open port is requeued at the back of the frame
// queue after a pacing delay, so its order relative to newer frames is
// not preserved; a packet that cannot even be requeued is dropped with a
// warning.
func (s *Server[P]) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()
	go s.servePort(ctx)

	s.log.Info("wire server started", "resource", s.updates.Key().String())
	for {
		frame, err := s.listener.Listen(ctx)
		if err != nil {
			s.log.Info("wire server shutting down")
			return ErrShuttingDown
		}
		for _, p := range frame {
			if s.router.Submit(p) {
				continue
			}
			if err := s.limiter.Wait(ctx); err != nil {
				return ErrShuttingDown
			}
			if err := s.listener.TrySend([]FieldPacket{p}); err != nil {
				s.log.Warn("dropping packet with no route port", "field", p.FieldName)
			}
		}
	}
}

// servePort consumes the router's inbound queue and drains routed updates
// into the store after every staged change.
func (s *Server[P]) servePort(ctx context.Context) {
	release := s.router.OpenPort()
	defer release()

	for {
		routed, err := s.router.RouteOne(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.log.Error("routing stopped", "error", err)
			}
			return
		}
		if routed {
			if err := s.updates.DispatchAll(ctx); err != nil {
				s.log.Error("dispatching frame updates failed", "error", err)
			}
		}
	}
}
