package intern

import "context"

// Tag pairs a value with the registry table it persists into. Pushing a tag
// folds the value into the factory's digest and schedules its assignment
// into the table once the handle is known.
type Tag[T any] struct {
	table *Table[T]
	value func() T
}

// NewTag builds a tag whose value is produced lazily when pushed.
func NewTag[T any](table *Table[T], value func() T) Tag[T] {
	return Tag[T]{table: table, value: value}
}

// ValueTag builds a tag over an already computed value.
func ValueTag[T any](table *Table[T], value T) Tag[T] {
	return NewTag(table, func() T { return value })
}

// Value evaluates the tag.
func (t Tag[T]) Value() T {
	return t.value()
}

// Push folds the tag into the factory and schedules its table assignment.
func (t Tag[T]) Push(f Factory) {
	v := t.value()
	f.PushTag(v, func(_ context.Context, h Handle) error {
		return t.table.Assign(h, v)
	})
}
