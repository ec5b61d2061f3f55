package intern

import (
	"context"

	"github.com/juliusl/reality-sub001/logging"
)

// Linker chains interned levels into a representation. Levels must be
// pushed in ascending order starting at the root; each pushed level is
// folded against its predecessor so the resulting handles can be walked
// back down.
type Linker struct {
	reg     *Registry
	factory Factory
	log     logging.Logger
	levels  []Handle
	ready   []<-chan struct{}
}

// LinkerOption configures a Linker.
type LinkerOption func(*Linker)

// WithFactory replaces the default CRC interner.
func WithFactory(f Factory) LinkerOption {
	return func(l *Linker) {
		l.factory = f
	}
}

// WithLinkerLogger attaches a logger for handle creation traces.
func WithLinkerLogger(log logging.Logger) LinkerOption {
	return func(l *Linker) {
		l.log = log
	}
}

// NewLinker returns a linker interning into reg.
func NewLinker(reg *Registry, opts ...LinkerOption) *Linker {
	l := &Linker{
		reg:     reg,
		factory: NewCrcInterner(),
		log:     logging.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DescribeResource returns a linker whose root level already describes
// resource type T.
func DescribeResource[T any](reg *Registry, opts ...LinkerOption) *Linker {
	l := NewLinker(reg, opts...)
	// The first pushed level always carries the root flag.
	_ = l.PushLevel(ResourceOf[T](reg))
	return l
}

// Level returns the ordinal of the most recently pushed level, or -1 when
// nothing has been pushed.
func (l *Linker) Level() int {
	return len(l.levels) - 1
}

// PushLevel configures and interns the next level. The first level must
// carry the root flag; every later level must sit exactly one level above
// the previous push.
func (l *Linker) PushLevel(level Level) error {
	res := level.Configure(l.factory)
	h, ready, err := res.Handle()
	if err != nil {
		return err
	}

	if len(l.levels) == 0 {
		if !h.IsRoot() {
			return ErrExpectedRootLevel
		}
	} else {
		last := l.levels[len(l.levels)-1]
		if last.LevelFlags().Next() != h.LevelFlags() {
			return ErrExpectedNextLevel
		}
	}

	l.log.Debug("interned level", "intern_level", h.LevelFlags().String(), "handle", h.String())
	l.levels = append(l.levels, h)
	l.ready = append(l.ready, ready)
	return nil
}

// Link waits for every pushed level's tags to persist, folds the chain of
// handles, records each linked handle in the registry, and returns the
// representation anchored at the highest level.
func (l *Linker) Link(ctx context.Context) (Repr, error) {
	if len(l.levels) == 0 {
		return Repr{}, ErrExpectedRootLevel
	}
	for _, ready := range l.ready {
		select {
		case <-ctx.Done():
			return Repr{}, ctx.Err()
		case <-ready:
		}
	}

	var from Handle
	for _, to := range l.levels {
		linked := to
		linked.link = from.Register() ^ to.Register()
		if err := l.reg.handles.Assign(to, linked); err != nil {
			return Repr{}, err
		}
		from = to
	}

	tail, ok := l.reg.handles.Value(l.levels[len(l.levels)-1])
	if !ok {
		return Repr{}, ErrNotInterned
	}
	return Repr{reg: l.reg, tail: tail}, nil
}
