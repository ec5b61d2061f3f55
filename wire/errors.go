package wire

import "fmt"

var (
	// ErrShuttingDown is returned by Serve when its context ends.
	ErrShuttingDown = fmt.Errorf("wire server is shutting down")

	// ErrNoCapacity is returned when a frame cannot be queued without
	// blocking.
	ErrNoCapacity = fmt.Errorf("frame queue is at capacity")

	// ErrPacketMismatch is returned when a packet's type name, type size,
	// or field name does not match the field it was routed to.
	ErrPacketMismatch = fmt.Errorf("packet does not match field")

	// ErrNotBound is returned when a router is asked to route before an
	// updates dispatcher is bound.
	ErrNotBound = fmt.Errorf("router is not bound to an updates dispatcher")

	// ErrUnknownField is returned when a name or offset resolves to no
	// field of the routed type.
	ErrUnknownField = fmt.Errorf("unknown field")
)
