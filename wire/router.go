package wire

import (
	"context"
	"sync/atomic"

	"github.com/juliusl/reality-sub001/logging"
	"github.com/juliusl/reality-sub001/store"
)

// Router fans inbound packets out to the fields of a routing table. Ports
// consume the inbound queue; while no port is open, submissions fail so
// the caller can pace and retry.
type Router[P any] struct {
	listener *FrameListener[P]
	inbound  chan FieldPacket
	ports    atomic.Int32
	updates  *store.Dispatcher[FrameUpdates]
	log      logging.Logger
}

// NewRouter returns a router feeding the listener's routing table. The
// inbound queue is sized to the table's field count.
func NewRouter[P any](listener *FrameListener[P], log logging.Logger) *Router[P] {
	capacity := 1
	listener.routes.View(func(t *RoutingTable[P]) {
		if n := t.Len(); n > capacity {
			capacity = n
		}
	})
	if log == nil {
		log = logging.NoOpLogger{}
	}
	return &Router[P]{
		listener: listener,
		inbound:  make(chan FieldPacket, capacity),
		log:      log,
	}
}

// Bind attaches the dispatcher that accumulates routed updates. Routing
// fails with ErrNotBound until one is bound.
func (r *Router[P]) Bind(updates *store.Dispatcher[FrameUpdates]) {
	r.updates = updates
}

// OpenPort registers the caller as a consumer of the inbound queue. The
// returned release must be called when the port stops consuming.
func (r *Router[P]) OpenPort() func() {
	r.ports.Add(1)
	var released atomic.Bool
	return func() {
		if released.CompareAndSwap(false, true) {
			r.ports.Add(-1)
		}
	}
}

// Submit queues one packet for routing. It fails when no port is open or
// the queue is full.
func (r *Router[P]) Submit(p FieldPacket) bool {
	if r.ports.Load() == 0 {
		return false
	}
	select {
	case r.inbound <- p:
		return true
	default:
		return false
	}
}

// RouteOne consumes and routes a single packet, reporting whether a field
// update was staged. Receiver packets and packets that match no field are
// logged and skipped. Routing table observers are notified on every
// staged update.
func (r *Router[P]) RouteOne(ctx context.Context) (bool, error) {
	if r.updates == nil {
		return false, ErrNotBound
	}

	var p FieldPacket
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case p = <-r.inbound:
	}

	if p.IsReceiver() {
		r.log.Debug("skipping receiver packet", "recv", p.FieldName)
		return false, nil
	}

	routed := false
	r.listener.routes.Modify(func(t *RoutingTable[P]) bool {
		ref, ok := t.FieldByOffset(p.FieldOffset)
		if !ok {
			r.log.Debug("no route for packet", "field", p.FieldName, "offset", p.FieldOffset)
			return false
		}
		if err := ref.FilterPacket(p); err != nil {
			r.log.Debug("packet rejected", "field", ref.Name(), "error", err)
			return false
		}

		encoded := ref.Encode()
		r.updates.QueueDispatchMut(func(u *FrameUpdates) {
			u.Frame.Fields = append(u.Frame.Fields, encoded)
		})
		routed = true
		return true
	})
	return routed, nil
}
