package testutil

import (
	"github.com/google/uuid"

	"github.com/juliusl/reality-sub001/store"
	"github.com/juliusl/reality-sub001/wire"
)

// PacketBuilder provides a fluent helper for constructing field packets in
// tests. Example:
//
//	pkt := NewPacketBuilder("name").Type("string", 16).Data("hello").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type PacketBuilder struct {
	fieldName string
	owner     string
	typeName  string
	typeSize  uint64
	offset    uint64
	op        uint64
	hash      *uuid.UUID
	data      any
}

// NewPacketBuilder creates a builder for a packet addressing fieldName.
func NewPacketBuilder(fieldName string) *PacketBuilder {
	return &PacketBuilder{fieldName: fieldName}
}

// ForField seeds a builder from the named field of P, filling the owner,
// type identity and offset the way a routing table would. The second
// return is false when P has no such field.
func ForField[P any](fieldName string) (*PacketBuilder, bool) {
	var zero P
	table := wire.NewRoutingTable(zero, store.Root[P]())
	ref, ok := table.Field(fieldName)
	if !ok {
		return nil, false
	}
	seed := ref.Encode()
	return &PacketBuilder{
		fieldName: seed.FieldName,
		owner:     seed.OwnerName,
		typeName:  seed.DataTypeName,
		typeSize:  seed.DataTypeSize,
		offset:    seed.FieldOffset,
	}, true
}

// Owner sets the owner type name (chainable).
func (b *PacketBuilder) Owner(name string) *PacketBuilder {
	b.owner = name
	return b
}

// Type sets the carried type's name and size (chainable).
func (b *PacketBuilder) Type(name string, size uint64) *PacketBuilder {
	b.typeName = name
	b.typeSize = size
	return b
}

// Offset sets the target field's byte offset (chainable).
func (b *PacketBuilder) Offset(off uint64) *PacketBuilder {
	b.offset = off
	return b
}

// Op tags the packet with an operation number (chainable).
func (b *PacketBuilder) Op(op uint64) *PacketBuilder {
	b.op = op
	return b
}

// AttributeHash keys the packet to a resource (chainable).
func (b *PacketBuilder) AttributeHash(hash uuid.UUID) *PacketBuilder {
	b.hash = &hash
	return b
}

// Data sets the carried value in process form (chainable).
func (b *PacketBuilder) Data(v any) *PacketBuilder {
	b.data = v
	return b
}

// Build constructs the wire.FieldPacket value.
func (b *PacketBuilder) Build() wire.FieldPacket {
	return wire.FieldPacket{
		DataTypeName:  b.typeName,
		DataTypeSize:  b.typeSize,
		FieldOffset:   b.offset,
		FieldName:     b.fieldName,
		OwnerName:     b.owner,
		AttributeHash: b.hash,
		Op:            b.op,
		Data:          b.data,
	}
}

// BuildWire constructs the packet and encodes it into wire form.
func (b *PacketBuilder) BuildWire() (wire.FieldPacket, error) {
	return b.Build().IntoWire()
}

// FrameBuilder assembles frames from built packets. Example:
//
//	frame := NewFrameBuilder("town_record").Packets(p1, p2).Build()
type FrameBuilder struct {
	recvName string
	packets  []wire.FieldPacket
}

// NewFrameBuilder creates a builder for a frame addressed to recvName.
func NewFrameBuilder(recvName string) *FrameBuilder {
	return &FrameBuilder{recvName: recvName}
}

// Packet appends a single field packet to the frame (chainable).
func (b *FrameBuilder) Packet(p wire.FieldPacket) *FrameBuilder {
	b.packets = append(b.packets, p)
	return b
}

// Packets appends multiple field packets to the frame (chainable).
func (b *FrameBuilder) Packets(ps ...wire.FieldPacket) *FrameBuilder {
	b.packets = append(b.packets, ps...)
	return b
}

// Build returns the assembled wire.Frame.
func (b *FrameBuilder) Build() wire.Frame {
	return wire.Frame{
		Recv:   wire.NewRecvPacket(b.recvName),
		Fields: append([]wire.FieldPacket{}, b.packets...),
	}
}
