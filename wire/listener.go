package wire

import (
	"context"

	"github.com/juliusl/reality-sub001/watch"
)

// defaultBufferLen is the frame queue capacity when none is configured.
const defaultBufferLen = 1

// FrameListener is the inbound edge of a wire server: a bounded queue of
// frames plus the watch channel holding the routing table.
type FrameListener[P any] struct {
	frames chan []FieldPacket
	routes *watch.Channel[RoutingTable[P]]
}

// NewFrameListener wraps table with a frame queue of the given capacity.
// Capacities below one are raised to one.
func NewFrameListener[P any](table RoutingTable[P], bufferLen int) *FrameListener[P] {
	if bufferLen < 1 {
		bufferLen = defaultBufferLen
	}
	return &FrameListener[P]{
		frames: make(chan []FieldPacket, bufferLen),
		routes: watch.NewChannel(table),
	}
}

// Listen blocks until a frame arrives or the context ends.
func (l *FrameListener[P]) Listen(ctx context.Context) ([]FieldPacket, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case frame := <-l.frames:
		return frame, nil
	}
}

// Send queues a frame, blocking while the queue is full.
func (l *FrameListener[P]) Send(ctx context.Context, frame []FieldPacket) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case l.frames <- frame:
		return nil
	}
}

// TrySend queues a frame without blocking.
func (l *FrameListener[P]) TrySend(frame []FieldPacket) error {
	select {
	case l.frames <- frame:
		return nil
	default:
		return ErrNoCapacity
	}
}

// Routes returns the watch channel holding the routing table.
func (l *FrameListener[P]) Routes() *watch.Channel[RoutingTable[P]] {
	return l.routes
}

// SubscribeRoutes registers an observer of routing table changes.
func (l *FrameListener[P]) SubscribeRoutes() *watch.Receiver[RoutingTable[P]] {
	return l.routes.Subscribe()
}
