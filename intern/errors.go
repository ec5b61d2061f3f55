package intern

import "fmt"

var (
	// ErrExpectedRootLevel is returned when the first level pushed to a
	// linker does not carry the root level flag.
	ErrExpectedRootLevel = fmt.Errorf("expected root level")

	// ErrExpectedNextLevel is returned when a pushed level does not
	// immediately follow the previous level's ordinal.
	ErrExpectedNextLevel = fmt.Errorf("expected next level")

	// ErrNotInterned is returned when a handle has no entry in the
	// registry table being consulted.
	ErrNotInterned = fmt.Errorf("handle is not interned")
)
