package intern

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"reflect"
	"sort"
)

// registerMask keeps the folded digest inside 24 bits so the level flags
// own the top byte of the register.
const registerMask = 0x00ffffff

// Completion persists one tag value under the handle the interner settled
// on. Completions run asynchronously after Intern, in push order.
type Completion func(ctx context.Context, h Handle) error

// Factory folds pushed tag values into a Handle. Implementations must be
// deterministic: pushing the same values in the same order with the same
// level flags always produces the same handle.
type Factory interface {
	// PushTag folds value into the pending digest and schedules assign to
	// run once the handle is known. A nil assign only contributes to the
	// digest.
	PushTag(value any, assign Completion)

	// SetLevelFlags sets the level bits packed into the next handle.
	SetLevelFlags(flags LevelFlags)

	// Intern produces the handle for everything pushed since the last
	// call and resets the factory to its root state.
	Intern() *Result
}

// Result is the outcome of an Intern call. The handle is available
// immediately; the ready channel closes once all scheduled completions have
// persisted their tag values.
type Result struct {
	handle  Handle
	ready   chan struct{}
	err     error
	persist error
}

// WaitForReady blocks until every completion has run, then returns the
// handle. Persistence failures surface here.
func (r *Result) WaitForReady(ctx context.Context) (Handle, error) {
	if r.err != nil {
		return Handle{}, r.err
	}
	select {
	case <-ctx.Done():
		return Handle{}, ctx.Err()
	case <-r.ready:
	}
	if r.persist != nil {
		return Handle{}, r.persist
	}
	return r.handle, nil
}

// Handle returns the interned handle without waiting for completions,
// along with the channel that closes once they have all run.
func (r *Result) Handle() (Handle, <-chan struct{}, error) {
	if r.err != nil {
		return Handle{}, nil, r.err
	}
	return r.handle, r.ready, nil
}

// CrcInterner folds tag values through a CRC-32C digest masked to 24 bits.
// It is the default Factory used by linkers. Not safe for concurrent use;
// each goroutine should own its own interner.
type CrcInterner struct {
	digest  hash.Hash32
	flags   LevelFlags
	pending []Completion
}

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// NewCrcInterner returns an interner primed at the root level.
func NewCrcInterner() *CrcInterner {
	return &CrcInterner{
		digest: crc32.New(castagnoli),
		flags:  Root,
	}
}

// PushTag implements Factory.
func (c *CrcInterner) PushTag(value any, assign Completion) {
	writeTagBytes(c.digest, value)
	if assign != nil {
		c.pending = append(c.pending, assign)
	}
}

// SetLevelFlags implements Factory.
func (c *CrcInterner) SetLevelFlags(flags LevelFlags) {
	c.flags = flags
}

// Intern packs the digest and level flags into a handle, spawns a goroutine
// that runs the scheduled completions in push order, and resets the
// interner back to the root level.
func (c *CrcInterner) Intern() *Result {
	sum := c.digest.Sum32() & registerMask
	handle := Handle{
		hi: uint16(c.flags) | uint16(sum>>16),
		lo: uint16(sum),
	}

	pending := c.pending
	c.pending = nil
	c.digest.Reset()
	c.flags = Root

	res := &Result{
		handle: handle,
		ready:  make(chan struct{}),
	}
	go func() {
		defer close(res.ready)
		ctx := context.Background()
		for _, assign := range pending {
			if err := assign(ctx, handle); err != nil {
				res.persist = err
				return
			}
		}
	}()
	return res
}

// writeTagBytes encodes a tag value into the digest. The encoding must be
// stable across processes for handles to be reproducible, so unordered
// collections are sorted first and integers use a fixed width and byte
// order.
func writeTagBytes(w io.Writer, value any) {
	switch v := value.(type) {
	case string:
		_, _ = io.WriteString(w, v)
	case []byte:
		_, _ = w.Write(v)
	case bool:
		b := byte(0)
		if v {
			b = 1
		}
		_, _ = w.Write([]byte{b})
	case int:
		writeTagUint(w, uint64(v))
	case int64:
		writeTagUint(w, uint64(v))
	case uint:
		writeTagUint(w, uint64(v))
	case uint32:
		writeTagUint(w, uint64(v))
	case uint64:
		writeTagUint(w, v)
	case []string:
		for _, s := range v {
			_, _ = io.WriteString(w, s)
			_, _ = w.Write([]byte{0})
		}
	case map[string]string:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			_, _ = io.WriteString(w, k)
			_, _ = w.Write([]byte{0})
			_, _ = io.WriteString(w, v[k])
			_, _ = w.Write([]byte{0})
		}
	case Handle:
		writeTagUint(w, v.Uint64())
	case Repr:
		writeTagUint(w, v.Uint64())
	case []Repr:
		for _, r := range v {
			writeTagUint(w, r.Uint64())
		}
	case reflect.Type:
		_, _ = io.WriteString(w, v.String())
	default:
		fmt.Fprintf(w, "%T:%v", value, value)
	}
}

func writeTagUint(w io.Writer, v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, _ = w.Write(buf[:])
}
