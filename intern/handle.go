package intern

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/google/uuid"
)

// LevelFlags marks which level of a representation a handle belongs to.
// Exactly one bit of the high byte is set for a valid level.
type LevelFlags uint16

const (
	// Root is the level of the resource type itself.
	Root LevelFlags = 0x0100

	// Level1 through Level7 are the successive extension levels. A level
	// may only ever be linked to the level directly below it.
	Level1 = Root << 1
	Level2 = Root << 2
	Level3 = Root << 3
	Level4 = Root << 4
	Level5 = Root << 5
	Level6 = Root << 6
	Level7 = Root << 7

	levelMask LevelFlags = 0xff00
)

// Next returns the flag of the level directly above f.
func (f LevelFlags) Next() LevelFlags {
	return (f << 1) & levelMask
}

// Level returns the ordinal of f, with Root at 0. Returns -1 when no level
// bit is set.
func (f LevelFlags) Level() int {
	if f&levelMask == 0 {
		return -1
	}
	return bits.TrailingZeros16(uint16(f&levelMask)) - 8
}

// Valid reports whether exactly one level bit is set.
func (f LevelFlags) Valid() bool {
	masked := uint16(f & levelMask)
	return masked != 0 && masked&(masked-1) == 0
}

func (f LevelFlags) String() string {
	if !f.Valid() {
		return fmt.Sprintf("invalid(%#04x)", uint16(f))
	}
	if f == Root {
		return "root"
	}
	return fmt.Sprintf("level-%d", f.Level())
}

// Handle is the interned identity of one level of a resource
// representation. The two data fields fold the level's tag values into a
// register, with the level flag packed into the high byte of hi. The link
// field is zero until a linker folds the previous level's register in,
// after which the handle can recover its predecessor via Node.
type Handle struct {
	link uint32
	hi   uint16
	lo   uint16
}

// HandleFromUint64 reverses Handle.Uint64.
func HandleFromUint64(v uint64) Handle {
	return Handle{
		link: uint32(v >> 32),
		hi:   uint16(v >> 16),
		lo:   uint16(v),
	}
}

// Register returns the handle's data register, the folded tag digest with
// the level flag in the upper bits.
func (h Handle) Register() uint32 {
	return uint32(h.hi)<<16 | uint32(h.lo)
}

// Uint64 packs the handle into a single integer, link in the upper half and
// register in the lower half.
func (h Handle) Uint64() uint64 {
	return uint64(h.link)<<32 | uint64(h.Register())
}

// UUID projects the handle into a uuid for transports that key on one. The
// lower eight bytes are zero.
func (h Handle) UUID() uuid.UUID {
	var u uuid.UUID
	binary.BigEndian.PutUint32(u[0:4], h.link)
	binary.BigEndian.PutUint16(u[4:6], h.hi)
	binary.BigEndian.PutUint16(u[6:8], h.lo)
	return u
}

// LevelFlags returns the level bits packed into the handle.
func (h Handle) LevelFlags() LevelFlags {
	return LevelFlags(h.hi) & levelMask
}

// IsRoot reports whether the handle is at the root level.
func (h Handle) IsRoot() bool {
	return h.LevelFlags() == Root
}

// IsLinked reports whether a linker has folded a predecessor into the
// handle.
func (h Handle) IsLinked() bool {
	return h.link != 0
}

// IsZero reports whether the handle is empty.
func (h Handle) IsZero() bool {
	return h == Handle{}
}

// Node splits a linked handle into its predecessor and its own unlinked
// form. The predecessor register is recovered by folding the link against
// the handle's own register; it is only trusted when its level flag sits
// exactly one level below the handle's. For root handles ok is false and
// current still carries the unlinked handle.
func (h Handle) Node() (prev Handle, current Handle, ok bool) {
	prevRegister := h.link ^ h.Register()
	prev = Handle{
		hi: uint16(prevRegister >> 16),
		lo: uint16(prevRegister),
	}
	current = h
	current.link = 0

	if prev.LevelFlags() != 0 && prev.LevelFlags().Next() == h.LevelFlags() {
		return prev, current, true
	}
	return Handle{}, current, false
}

func (h Handle) String() string {
	return fmt.Sprintf("%08x-%04x-%04x", h.link, h.hi, h.lo)
}
