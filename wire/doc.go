// Package wire synchronizes the fields of a typed value between peers.
//
// A Server owns a RoutingTable built over one value of type P. The table
// reflects over P's exported fields and exposes each as a routable field
// with a wire name, byte offset, type name, and type size. Clients encode
// field edits as FieldPackets and submit them through the server's frame
// listener; the server routes each packet to the matching field, stages
// the carried value, and appends the update to a FrameUpdates resource in
// the backing store.
//
// Observers subscribe to the routing table through a watch channel and see
// every staged or committed change. Packets that do not match any field
// are logged and skipped rather than failing the stream.
//
// Frames group packets. ToFrame captures a whole value as one frame, and
// ApplyFrame plays a frame back into a table, which round-trips a value
// through its wire form.
package wire
