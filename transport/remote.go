package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/juliusl/reality-sub001/logging"
	"github.com/juliusl/reality-sub001/wire"
)

// RemoteOptions configures a Remote.
type RemoteOptions struct {
	// HandshakeTimeout bounds the websocket handshake.
	HandshakeTimeout time.Duration

	// UpdateBuffer is the capacity of the updates channel. When it fills,
	// the oldest snapshot is dropped in favor of the newest.
	UpdateBuffer int

	// Logger receives connection diagnostics.
	Logger logging.Logger
}

// WithHandshakeTimeout bounds the websocket handshake.
func WithHandshakeTimeout(d time.Duration) func(*RemoteOptions) {
	return func(o *RemoteOptions) {
		o.HandshakeTimeout = d
	}
}

// WithUpdateBuffer sets the capacity of the updates channel.
func WithUpdateBuffer(n int) func(*RemoteOptions) {
	return func(o *RemoteOptions) {
		o.UpdateBuffer = n
	}
}

// WithRemoteLogger sets the remote's logger.
func WithRemoteLogger(logger logging.Logger) func(*RemoteOptions) {
	return func(o *RemoteOptions) {
		o.Logger = logger
	}
}

// Remote is the dialing side of a hub connection. It sends frames to the
// hub's wire server and surfaces the snapshots the hub pushes back.
type Remote[P any] struct {
	conn    *websocket.Conn
	updates chan RemoteUpdate[P]
	log     logging.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// Dial connects to a hub at url.
func Dial[P any](ctx context.Context, url string, optFns ...func(*RemoteOptions)) (*Remote[P], error) {
	opts := RemoteOptions{
		HandshakeTimeout: defaultWriteTimeout,
		UpdateBuffer:     4,
		Logger:           logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.UpdateBuffer < 1 {
		opts.UpdateBuffer = 1
	}

	dialer := websocket.Dialer{HandshakeTimeout: opts.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}

	r := &Remote[P]{
		conn:    conn,
		updates: make(chan RemoteUpdate[P], opts.UpdateBuffer),
		log:     opts.Logger,
	}
	go r.readLoop()
	return r, nil
}

// readLoop surfaces pushed snapshots until the connection ends, then
// closes the updates channel.
func (r *Remote[P]) readLoop() {
	defer close(r.updates)
	for {
		var update RemoteUpdate[P]
		if err := r.conn.ReadJSON(&update); err != nil {
			if !websocket.IsCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				r.log.Debug("remote read loop stopped", "error", err)
			}
			return
		}
		select {
		case r.updates <- update:
		default:
			// Full buffer: drop the oldest snapshot, only the latest
			// state matters.
			select {
			case <-r.updates:
			default:
			}
			r.updates <- update
		}
	}
}

// SendFrame encodes every packet into wire form and sends the frame to
// the hub.
func (r *Remote[P]) SendFrame(ctx context.Context, frame []wire.FieldPacket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	encoded := make([]wire.FieldPacket, len(frame))
	for i, p := range frame {
		wp, err := p.IntoWire()
		if err != nil {
			return err
		}
		encoded[i] = wp
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultWriteTimeout)
	}
	_ = r.conn.SetWriteDeadline(deadline)
	if err := r.conn.WriteJSON(encoded); err != nil {
		return fmt.Errorf("sending frame: %w", err)
	}
	return nil
}

// Updates returns the channel of snapshots pushed by the hub. It closes
// when the connection ends.
func (r *Remote[P]) Updates() <-chan RemoteUpdate[P] {
	return r.updates
}

// Close tells the hub the remote is going away and tears the connection
// down.
func (r *Remote[P]) Close() error {
	r.closeOnce.Do(func() {
		r.writeMu.Lock()
		_ = r.conn.SetWriteDeadline(time.Now().Add(time.Second))
		_ = r.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		r.writeMu.Unlock()
		r.closeErr = r.conn.Close()
	})
	return r.closeErr
}
