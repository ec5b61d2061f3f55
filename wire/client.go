package wire

import (
	"github.com/juliusl/reality-sub001/watch"
)

// Client encodes field edits against a server's routing table and submits
// them for routing.
type Client[P any] struct {
	listener *FrameListener[P]
}

// TryBorrowModify runs op with read access to the routing table and
// submits the packet it encodes. The table is not modified by the call
// itself; the edit is staged once the server routes the packet.
func (c *Client[P]) TryBorrowModify(op func(*RoutingTable[P]) (FieldPacket, error)) error {
	var (
		packet FieldPacket
		opErr  error
	)
	c.listener.routes.Modify(func(t *RoutingTable[P]) bool {
		packet, opErr = op(t)
		return false
	})
	if opErr != nil {
		return opErr
	}
	return c.listener.TrySend([]FieldPacket{packet})
}

// TryBorrowModifyBatch is TryBorrowModify for several edits submitted as
// one frame.
func (c *Client[P]) TryBorrowModifyBatch(op func(*RoutingTable[P]) ([]FieldPacket, error)) error {
	var (
		packets []FieldPacket
		opErr   error
	)
	c.listener.routes.Modify(func(t *RoutingTable[P]) bool {
		packets, opErr = op(t)
		return false
	})
	if opErr != nil {
		return opErr
	}
	if len(packets) == 0 {
		return nil
	}
	return c.listener.TrySend(packets)
}

// TrySend submits already encoded packets without blocking.
func (c *Client[P]) TrySend(packets ...FieldPacket) error {
	return c.listener.TrySend(packets)
}

// Subscribe registers an observer of the server's routing table.
func (c *Client[P]) Subscribe() *watch.Receiver[RoutingTable[P]] {
	return c.listener.SubscribeRoutes()
}

// Routes snapshots the current routing table state.
func (c *Client[P]) Routes() []RouteState {
	var states []RouteState
	c.listener.routes.View(func(t *RoutingTable[P]) {
		states = t.State()
	})
	return states
}
