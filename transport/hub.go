package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/juliusl/reality-sub001/logging"
	"github.com/juliusl/reality-sub001/watch"
	"github.com/juliusl/reality-sub001/wire"
)

const (
	defaultWriteTimeout = 10 * time.Second
	defaultReadLimit    = 1 << 20
	connBufferSize      = 1024
)

// RemoteUpdate is the snapshot a hub pushes to its peers: the owner value
// with every committed change applied, plus the routing state of each
// field.
type RemoteUpdate[P any] struct {
	Value  P                 `json:"value"`
	Routes []wire.RouteState `json:"routes"`
}

// HubOptions configures a Hub.
type HubOptions struct {
	// ReadLimit caps the size of one inbound message in bytes.
	ReadLimit int64

	// WriteTimeout bounds each snapshot push.
	WriteTimeout time.Duration

	// CheckOrigin overrides the upgrader's origin policy.
	CheckOrigin func(r *http.Request) bool

	// Logger receives connection diagnostics.
	Logger logging.Logger
}

// WithReadLimit caps the size of one inbound message in bytes.
func WithReadLimit(n int64) func(*HubOptions) {
	return func(o *HubOptions) {
		o.ReadLimit = n
	}
}

// WithWriteTimeout bounds each snapshot push.
func WithWriteTimeout(d time.Duration) func(*HubOptions) {
	return func(o *HubOptions) {
		o.WriteTimeout = d
	}
}

// WithCheckOrigin overrides the upgrader's origin policy.
func WithCheckOrigin(fn func(r *http.Request) bool) func(*HubOptions) {
	return func(o *HubOptions) {
		o.CheckOrigin = fn
	}
}

// WithHubLogger sets the hub's logger.
func WithHubLogger(logger logging.Logger) func(*HubOptions) {
	return func(o *HubOptions) {
		o.Logger = logger
	}
}

// Hub exposes a wire server to remote peers over websocket. It implements
// http.Handler; every accepted connection exchanges frames with the
// server until either side closes.
type Hub[P any] struct {
	server       *wire.Server[P]
	upgrader     websocket.Upgrader
	readLimit    int64
	writeTimeout time.Duration
	log          logging.Logger
}

// NewHub wraps srv as a websocket endpoint.
func NewHub[P any](srv *wire.Server[P], optFns ...func(*HubOptions)) *Hub[P] {
	opts := HubOptions{
		ReadLimit:    defaultReadLimit,
		WriteTimeout: defaultWriteTimeout,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Hub[P]{
		server: srv,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  connBufferSize,
			WriteBufferSize: connBufferSize,
			CheckOrigin:     opts.CheckOrigin,
		},
		readLimit:    opts.ReadLimit,
		writeTimeout: opts.WriteTimeout,
		log:          opts.Logger,
	}
}

// ServeHTTP upgrades the request and pumps frames until the connection or
// the request context ends.
func (h *Hub[P]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.log.Debug("peer connected", "remote", conn.RemoteAddr().String())

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(ctx, conn)
	}()

	h.readPump(ctx, conn)
	cancel()
	<-done

	h.log.Debug("peer disconnected", "remote", conn.RemoteAddr().String())
}

// readPump forwards inbound frames into the server until the connection
// breaks or the context ends.
func (h *Hub[P]) readPump(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadLimit(h.readLimit)
	for {
		var frame []wire.FieldPacket
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("read pump stopped", "error", err)
			}
			return
		}
		if len(frame) == 0 {
			continue
		}
		if err := h.server.Listener().Send(ctx, frame); err != nil {
			return
		}
	}
}

// writePump pushes a snapshot on connect and again after every routing
// table change.
func (h *Hub[P]) writePump(ctx context.Context, conn *websocket.Conn) {
	sub := h.server.SubscribeRoutes()
	defer sub.Close()

	if err := h.pushSnapshot(conn, sub); err != nil {
		return
	}
	for {
		if err := sub.Changed(ctx); err != nil {
			return
		}
		if err := h.pushSnapshot(conn, sub); err != nil {
			h.log.Debug("write pump stopped", "error", err)
			conn.Close()
			return
		}
	}
}

func (h *Hub[P]) pushSnapshot(conn *websocket.Conn, sub *watch.Receiver[wire.RoutingTable[P]]) error {
	var update RemoteUpdate[P]
	sub.View(func(t *wire.RoutingTable[P]) {
		update = RemoteUpdate[P]{
			Value:  t.Value(),
			Routes: t.State(),
		}
	})
	_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	return conn.WriteJSON(update)
}
