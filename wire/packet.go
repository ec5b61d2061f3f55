package wire

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/juliusl/reality-sub001/intern"
)

// recvOwnerName marks a packet as addressing a receiver rather than a
// field of the owner type.
const recvOwnerName = "self"

// FieldPacket carries one field value between peers. A packet is routable
// to a field when its data type name, data type size, and field name all
// match the field's.
//
// The value travels in one of two forms: Data holds it in process, and
// WireData holds its JSON encoding for transport. IntoWire moves a packet
// from the first form to the second.
type FieldPacket struct {
	// DataTypeName names the type of the carried value.
	DataTypeName string `json:"data_type_name"`

	// DataTypeSize is the in-memory size of the carried type.
	DataTypeSize uint64 `json:"data_type_size"`

	// FieldOffset is the byte offset of the target field within its
	// owner, or math.MaxUint64 for receiver packets.
	FieldOffset uint64 `json:"field_offset"`

	// FieldName is the wire name of the target field.
	FieldName string `json:"field_name"`

	// OwnerName names the type owning the target field.
	OwnerName string `json:"owner_name"`

	// AttributeHash keys the packet to a resource when set.
	AttributeHash *uuid.UUID `json:"attribute_hash,omitempty"`

	// Op correlates a packet with the operation that produced it. Not
	// serialized.
	Op uint64 `json:"-"`

	// Data is the carried value in process form. Not serialized.
	Data any `json:"-"`

	// WireData is the JSON encoding of the carried value.
	WireData []byte `json:"wire_data,omitempty"`
}

// NewPacket returns an empty packet typed for values of T.
func NewPacket[T any]() FieldPacket {
	t := intern.TypeOf[T]()
	return FieldPacket{
		DataTypeName: t.String(),
		DataTypeSize: uint64(t.Size()),
	}
}

// NewDataPacket returns a packet typed for T and carrying data in process
// form.
func NewDataPacket[T any](data T) FieldPacket {
	p := NewPacket[T]()
	p.Data = data
	return p
}

// NewRecvPacket returns the packet representing a receiver itself rather
// than one of its fields.
func NewRecvPacket(name string) FieldPacket {
	return FieldPacket{
		FieldOffset: math.MaxUint64,
		FieldName:   name,
		OwnerName:   recvOwnerName,
	}
}

// IsReceiver reports whether the packet addresses a receiver rather than a
// field.
func (p FieldPacket) IsReceiver() bool {
	return p.FieldOffset == math.MaxUint64 && p.OwnerName == recvOwnerName
}

// Routable reports whether the packet can be applied to a field of the
// given type name and size.
func (p FieldPacket) Routable(typeName string, typeSize uint64) bool {
	return p.DataTypeName == typeName && p.DataTypeSize == typeSize
}

// IsEmpty reports whether the packet carries no value in either form.
func (p FieldPacket) IsEmpty() bool {
	return p.Data == nil && len(p.WireData) == 0
}

// IntoWire encodes the packet's in-process value into WireData and drops
// the in-process form. Packets already in wire form pass through.
func (p FieldPacket) IntoWire() (FieldPacket, error) {
	if p.Data == nil {
		return p, nil
	}
	encoded, err := json.Marshal(p.Data)
	if err != nil {
		return FieldPacket{}, fmt.Errorf("encoding packet %q: %w", p.FieldName, err)
	}
	p.WireData = encoded
	p.Data = nil
	return p, nil
}

// DecodePacket recovers the carried value as a T, from the in-process form
// when present and the wire form otherwise. The packet's declared type name
// and size must both match T.
func DecodePacket[T any](p FieldPacket) (T, error) {
	var zero T
	t := intern.TypeOf[T]()
	if !p.Routable(t.String(), uint64(t.Size())) {
		return zero, fmt.Errorf("packet %q declares %s, not %s: %w",
			p.FieldName, p.DataTypeName, t.String(), ErrPacketMismatch)
	}
	if p.Data != nil {
		v, ok := p.Data.(T)
		if !ok {
			return zero, fmt.Errorf("packet %q carries %T, not %s: %w",
				p.FieldName, p.Data, t.String(), ErrPacketMismatch)
		}
		return v, nil
	}
	if len(p.WireData) == 0 {
		return zero, fmt.Errorf("packet %q is empty", p.FieldName)
	}
	var v T
	if err := json.Unmarshal(p.WireData, &v); err != nil {
		return zero, fmt.Errorf("decoding packet %q: %w", p.FieldName, err)
	}
	return v, nil
}

func (p FieldPacket) String() string {
	return fmt.Sprintf("packet(%s.%s %s)", p.OwnerName, p.FieldName, p.DataTypeName)
}
