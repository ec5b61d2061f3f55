package wire

import (
	"reflect"

	"github.com/juliusl/reality-sub001/intern"
	"github.com/juliusl/reality-sub001/store"
)

// Frame groups the packets describing one value: a receiver packet naming
// the value and one field packet per routable field.
type Frame struct {
	Recv   FieldPacket   `json:"recv"`
	Fields []FieldPacket `json:"fields"`
}

// IsEmpty reports whether the frame carries no field packets.
func (f Frame) IsEmpty() bool {
	return len(f.Fields) == 0
}

func recvName(t reflect.Type) string {
	if name := t.Name(); name != "" {
		return snakeCase(name)
	}
	return t.String()
}

// ToFrame captures value as a frame with packets in process form.
func ToFrame[P any](value P, key store.ResourceKey[P]) Frame {
	table := NewRoutingTable(value, key)
	fields := make([]FieldPacket, 0, table.Len())
	for _, ref := range table.Fields() {
		fields = append(fields, ref.Encode())
	}
	return Frame{
		Recv:   NewRecvPacket(recvName(intern.TypeOf[P]())),
		Fields: fields,
	}
}

// ToWireFrame captures value as a frame with packets in wire form, ready
// to serialize.
func ToWireFrame[P any](value P, key store.ResourceKey[P]) (Frame, error) {
	frame := ToFrame(value, key)
	for i, p := range frame.Fields {
		encoded, err := p.IntoWire()
		if err != nil {
			return Frame{}, err
		}
		frame.Fields[i] = encoded
	}
	return frame, nil
}

// FrameUpdates accumulates routed field updates and annotations for one
// resource. The wire router appends to it through a store dispatcher; the
// resource owner consumes it to learn what changed.
type FrameUpdates struct {
	Frame       Frame
	Annotations map[string]string
}

// SetProperty records an annotation update.
func (u *FrameUpdates) SetProperty(name, value string) {
	if u.Annotations == nil {
		u.Annotations = make(map[string]string)
	}
	u.Annotations[name] = value
}

// HasUpdate reports whether any field update or annotation has
// accumulated.
func (u *FrameUpdates) HasUpdate() bool {
	return len(u.Frame.Fields) > 0 || len(u.Annotations) > 0
}

// Consume returns the accumulated updates and resets the accumulator.
func (u *FrameUpdates) Consume() FrameUpdates {
	out := *u
	*u = FrameUpdates{}
	return out
}
