package wire

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/juliusl/reality-sub001/intern"
	"github.com/juliusl/reality-sub001/store"
)

// FieldCondition tracks the routing lifecycle of one field.
type FieldCondition int

const (
	// ConditionDefault marks a field still at its zero value.
	ConditionDefault FieldCondition = iota

	// ConditionInitial marks a field whose value was set when the table
	// was built.
	ConditionInitial

	// ConditionPending marks a field holding a staged value that has not
	// been committed.
	ConditionPending

	// ConditionCommitted marks a field whose staged value was applied to
	// the owner.
	ConditionCommitted
)

func (c FieldCondition) String() string {
	switch c {
	case ConditionDefault:
		return "default"
	case ConditionInitial:
		return "initial"
	case ConditionPending:
		return "pending"
	case ConditionCommitted:
		return "committed"
	default:
		return fmt.Sprintf("condition(%d)", int(c))
	}
}

// fieldSpec is the reflected shape of one routable field.
type fieldSpec struct {
	name     string
	goName   string
	index    int
	offset   uint64
	typeName string
	typeSize uint64
	typ      reflect.Type
}

// fieldState carries the mutable routing state of one field.
type fieldState struct {
	spec      fieldSpec
	staged    any
	condition FieldCondition
}

// fieldSpecsOf reflects the routable fields of a struct type. Unexported
// fields and fields tagged `wire:"-"` are skipped; a `wire:"name"` tag
// overrides the default snake case wire name.
func fieldSpecsOf(t reflect.Type) []fieldSpec {
	if t.Kind() != reflect.Struct {
		return nil
	}
	var specs []fieldSpec
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := snakeCase(sf.Name)
		if tag, ok := sf.Tag.Lookup("wire"); ok {
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		specs = append(specs, fieldSpec{
			name:     name,
			goName:   sf.Name,
			index:    i,
			offset:   uint64(sf.Offset),
			typeName: sf.Type.String(),
			typeSize: uint64(sf.Type.Size()),
			typ:      sf.Type,
		})
	}
	return specs
}

func snakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && !unicode.IsUpper(runes[i-1])
			nextLower := i+1 < len(runes) && !unicode.IsUpper(runes[i+1])
			if i > 0 && (prevLower || nextLower) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// RoutingTable exposes the exported fields of one value of P as routable
// fields. A table belongs to the watch channel of its frame listener;
// field refs taken from it are only valid while the table is held, inside
// a Modify or View callback.
type RoutingTable[P any] struct {
	value  P
	key    store.ResourceKey[P]
	fields []*fieldState
}

// NewRoutingTable builds a table over value. Fields carrying a non-zero
// value start in the initial condition, the rest in default.
func NewRoutingTable[P any](value P, key store.ResourceKey[P]) RoutingTable[P] {
	specs := fieldSpecsOf(intern.TypeOf[P]())
	rv := reflect.ValueOf(value)

	fields := make([]*fieldState, 0, len(specs))
	for _, spec := range specs {
		condition := ConditionDefault
		if !rv.Field(spec.index).IsZero() {
			condition = ConditionInitial
		}
		fields = append(fields, &fieldState{spec: spec, condition: condition})
	}
	return RoutingTable[P]{value: value, key: key, fields: fields}
}

// Key returns the resource key the table serves.
func (t *RoutingTable[P]) Key() store.ResourceKey[P] {
	return t.key
}

// Value returns a copy of the owner value with every committed change
// applied. Staged values are not included until committed.
func (t *RoutingTable[P]) Value() P {
	return t.value
}

// Len returns the number of routable fields.
func (t *RoutingTable[P]) Len() int {
	return len(t.fields)
}

// Field looks a field up by wire name.
func (t *RoutingTable[P]) Field(name string) (FieldRef[P], bool) {
	for _, state := range t.fields {
		if state.spec.name == name {
			return FieldRef[P]{table: t, state: state}, true
		}
	}
	return FieldRef[P]{}, false
}

// FieldByOffset looks a field up by its byte offset within the owner.
func (t *RoutingTable[P]) FieldByOffset(offset uint64) (FieldRef[P], bool) {
	for _, state := range t.fields {
		if state.spec.offset == offset {
			return FieldRef[P]{table: t, state: state}, true
		}
	}
	return FieldRef[P]{}, false
}

// Fields returns a ref for every routable field in declaration order.
func (t *RoutingTable[P]) Fields() []FieldRef[P] {
	refs := make([]FieldRef[P], 0, len(t.fields))
	for _, state := range t.fields {
		refs = append(refs, FieldRef[P]{table: t, state: state})
	}
	return refs
}

// ListPending returns refs for every field holding a staged value.
func (t *RoutingTable[P]) ListPending() []FieldRef[P] {
	var refs []FieldRef[P]
	for _, state := range t.fields {
		if state.condition == ConditionPending {
			refs = append(refs, FieldRef[P]{table: t, state: state})
		}
	}
	return refs
}

// CommitAll commits every pending field and returns how many were applied.
func (t *RoutingTable[P]) CommitAll() int {
	committed := 0
	for _, ref := range t.ListPending() {
		if ref.Commit() {
			committed++
		}
	}
	return committed
}

// State snapshots every field as a serializable RouteState, with values in
// wire form. Fields whose values cannot be encoded are omitted.
func (t *RoutingTable[P]) State() []RouteState {
	states := make([]RouteState, 0, len(t.fields))
	for _, ref := range t.Fields() {
		pkt, err := ref.Encode().IntoWire()
		if err != nil {
			continue
		}
		states = append(states, RouteState{
			Field:     ref.Name(),
			Condition: ref.Condition().String(),
			Packet:    pkt,
		})
	}
	return states
}

// ApplyFrame stages and commits every field packet in the frame. Receiver
// packets are skipped.
func (t *RoutingTable[P]) ApplyFrame(frame Frame) error {
	for _, p := range frame.Fields {
		if p.IsReceiver() {
			continue
		}
		ref, ok := t.FieldByOffset(p.FieldOffset)
		if !ok {
			return fmt.Errorf("offset %d: %w", p.FieldOffset, ErrUnknownField)
		}
		if err := ref.FilterPacket(p); err != nil {
			return err
		}
		ref.Commit()
	}
	return nil
}

// RouteState is a serializable snapshot of one field's routing state.
type RouteState struct {
	Field     string      `json:"field"`
	Condition string      `json:"condition"`
	Packet    FieldPacket `json:"packet"`
}

// ViewField reads the named field's current value as a V. It returns false
// when the field does not exist or holds a different type.
func ViewField[V any, P any](t *RoutingTable[P], name string) (V, bool) {
	var zero V
	ref, ok := t.Field(name)
	if !ok {
		return zero, false
	}
	v, ok := ref.CurrentValue().(V)
	if !ok {
		return zero, false
	}
	return v, true
}

// EditField encodes a packet staging value on the named field.
func EditField[V any, P any](t *RoutingTable[P], name string, value V) (FieldPacket, error) {
	ref, ok := t.Field(name)
	if !ok {
		return FieldPacket{}, fmt.Errorf("field %q: %w", name, ErrUnknownField)
	}
	return ref.EditValue(value)
}

// FieldRef addresses one field of a routing table.
type FieldRef[P any] struct {
	table *RoutingTable[P]
	state *fieldState
}

// Name returns the field's wire name.
func (f FieldRef[P]) Name() string {
	return f.state.spec.name
}

// Offset returns the field's byte offset within the owner.
func (f FieldRef[P]) Offset() uint64 {
	return f.state.spec.offset
}

// TypeName returns the name of the field's type.
func (f FieldRef[P]) TypeName() string {
	return f.state.spec.typeName
}

// Condition returns the field's routing condition.
func (f FieldRef[P]) Condition() FieldCondition {
	return f.state.condition
}

// IsPending reports whether the field holds an uncommitted staged value.
func (f FieldRef[P]) IsPending() bool {
	return f.state.condition == ConditionPending
}

// CurrentValue returns the staged value when one is pending and the
// owner's committed field value otherwise.
func (f FieldRef[P]) CurrentValue() any {
	if f.state.condition == ConditionPending {
		return f.state.staged
	}
	rv := reflect.ValueOf(f.table.value)
	return rv.Field(f.state.spec.index).Interface()
}

// Encode captures the field's current value as a packet carrying the
// table's attribute hash.
func (f FieldRef[P]) Encode() FieldPacket {
	spec := f.state.spec
	p := FieldPacket{
		DataTypeName: spec.typeName,
		DataTypeSize: spec.typeSize,
		FieldOffset:  spec.offset,
		FieldName:    spec.name,
		OwnerName:    intern.TypeOf[P]().String(),
		Data:         f.CurrentValue(),
	}
	if !f.table.key.IsRoot() {
		hash := f.table.key.UUID()
		p.AttributeHash = &hash
	}
	return p
}

// EditValue encodes a packet carrying a replacement value for the field.
// The table itself is not touched; routing the packet back through a
// server stages the edit.
func (f FieldRef[P]) EditValue(value any) (FieldPacket, error) {
	if err := f.checkAssignable(value); err != nil {
		return FieldPacket{}, err
	}
	p := f.Encode()
	p.Data = value
	return p, nil
}

// SetPending stages value directly on the field, bypassing packet
// routing.
func (f FieldRef[P]) SetPending(value any) error {
	if err := f.checkAssignable(value); err != nil {
		return err
	}
	f.state.staged = value
	f.state.condition = ConditionPending
	return nil
}

// FilterPacket stages the packet's carried value when the packet's type
// name, type size, and field name all match the field.
func (f FieldRef[P]) FilterPacket(p FieldPacket) error {
	spec := f.state.spec
	if !p.Routable(spec.typeName, spec.typeSize) || p.FieldName != spec.name {
		return fmt.Errorf("field %q: %w", spec.name, ErrPacketMismatch)
	}
	value, err := decodeAs(p, spec.typ)
	if err != nil {
		return err
	}
	f.state.staged = value
	f.state.condition = ConditionPending
	return nil
}

// Commit applies the staged value to the owner. Returns false when
// nothing was pending.
func (f FieldRef[P]) Commit() bool {
	if f.state.condition != ConditionPending {
		return false
	}
	owner := reflect.ValueOf(&f.table.value).Elem()
	owner.Field(f.state.spec.index).Set(reflect.ValueOf(f.state.staged))
	f.state.staged = nil
	f.state.condition = ConditionCommitted
	return true
}

func (f FieldRef[P]) checkAssignable(value any) error {
	if value == nil || !reflect.TypeOf(value).AssignableTo(f.state.spec.typ) {
		return fmt.Errorf("field %q takes %s, got %T: %w",
			f.state.spec.name, f.state.spec.typeName, value, ErrPacketMismatch)
	}
	return nil
}

// decodeAs recovers a packet's value as type t, preferring the in-process
// form.
func decodeAs(p FieldPacket, t reflect.Type) (any, error) {
	if p.Data != nil {
		if !reflect.TypeOf(p.Data).AssignableTo(t) {
			return nil, fmt.Errorf("packet %q carries %T: %w", p.FieldName, p.Data, ErrPacketMismatch)
		}
		return p.Data, nil
	}
	if len(p.WireData) == 0 {
		return nil, fmt.Errorf("packet %q is empty", p.FieldName)
	}
	target := reflect.New(t)
	if err := json.Unmarshal(p.WireData, target.Interface()); err != nil {
		return nil, fmt.Errorf("decoding packet %q: %w", p.FieldName, err)
	}
	return target.Elem().Interface(), nil
}
