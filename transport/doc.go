// Package transport bridges wire servers across process boundaries over
// websocket connections.
//
// A Hub wraps a wire server as an http.Handler. Each accepted connection
// runs a read pump, which decodes JSON frames and forwards them into the
// server's inbound queue, and a write pump, which watches the server's
// routing table and pushes a snapshot to the peer after every staged or
// committed change.
//
// A Remote is the dialing side: it sends frames to a hub and receives the
// snapshots the hub pushes. Frames and snapshots share the JSON encoding
// used by FieldPacket wire data, so a value edited on one side of the
// bridge decodes unchanged on the other.
package transport
