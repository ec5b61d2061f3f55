package intern

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterResource struct {
	Name  string
	Count uint64
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestDescribeResourceLinksRoot(t *testing.T) {
	reg := NewRegistry()

	repr, err := DescribeResource[counterResource](reg).Link(testContext(t))
	require.NoError(t, err)

	levels, err := repr.Levels()
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, Root, levels[0].LevelFlags())

	res, ok := repr.AsResource()
	require.True(t, ok)

	name, ok := res.TypeName()
	require.True(t, ok)
	assert.Equal(t, "intern.counterResource", name)

	size, ok := res.TypeSize()
	require.True(t, ok)
	assert.Equal(t, uint64(TypeOf[counterResource]().Size()), size)

	typ, ok := res.TypeID()
	require.True(t, ok)
	assert.Equal(t, TypeOf[counterResource](), typ)
}

func TestLinkerRejectsNonRootFirstLevel(t *testing.T) {
	reg := NewRegistry()
	linker := NewLinker(reg)

	err := linker.PushLevel(NewNodeLevel(reg, WithSymbol("orphan")))
	assert.ErrorIs(t, err, ErrExpectedRootLevel)
	assert.Equal(t, -1, linker.Level())
}

func TestLinkerRejectsSkippedLevel(t *testing.T) {
	reg := NewRegistry()
	linker := DescribeResource[counterResource](reg)

	err := linker.PushLevel(NewNodeLevel(reg, WithSymbol("skipped")))
	assert.ErrorIs(t, err, ErrExpectedNextLevel)
	assert.Equal(t, 0, linker.Level())
}

func TestLinkerRejectsRepeatedLevel(t *testing.T) {
	reg := NewRegistry()
	linker := DescribeResource[counterResource](reg)

	field, err := FieldOf[counterResource](reg, "Name")
	require.NoError(t, err)
	require.NoError(t, linker.PushLevel(field))

	again, err := FieldOf[counterResource](reg, "Count")
	require.NoError(t, err)
	assert.ErrorIs(t, linker.PushLevel(again), ErrExpectedNextLevel)
}

func TestLinkEmptyLinkerFails(t *testing.T) {
	reg := NewRegistry()

	_, err := NewLinker(reg).Link(testContext(t))
	assert.ErrorIs(t, err, ErrExpectedRootLevel)
}

func TestLinkFullChain(t *testing.T) {
	reg := NewRegistry()
	ctx := testContext(t)

	linker := DescribeResource[counterResource](reg)

	field, err := FieldOf[counterResource](reg, "Count")
	require.NoError(t, err)
	require.NoError(t, linker.PushLevel(field))
	require.NoError(t, linker.PushLevel(NewNodeLevel(reg,
		WithSymbol("counter"),
		WithSource("deploy.md"),
		WithIndex(3),
	)))
	require.NoError(t, linker.PushLevel(NewHostLevel(reg, "localhost:7575")))
	assert.Equal(t, 3, linker.Level())

	repr, err := linker.Link(ctx)
	require.NoError(t, err)

	levels, err := repr.Levels()
	require.NoError(t, err)
	require.Len(t, levels, 4)
	assert.Equal(t, Root, levels[0].LevelFlags())
	assert.Equal(t, Level1, levels[1].LevelFlags())
	assert.Equal(t, Level2, levels[2].LevelFlags())
	assert.Equal(t, Level3, levels[3].LevelFlags())
	assert.True(t, repr.Tail().IsLinked())
}

func TestConcurrentLinkersShareRegistry(t *testing.T) {
	reg := NewRegistry()
	ctx := testContext(t)

	const linkers = 16
	results := make([]uint64, linkers)

	var wg sync.WaitGroup
	for i := 0; i < linkers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			repr, err := DescribeResource[counterResource](reg).Link(ctx)
			if err == nil {
				results[i] = repr.Uint64()
			}
		}(i)
	}
	wg.Wait()

	for i := 1; i < linkers; i++ {
		assert.Equal(t, results[0], results[i])
	}
	assert.NotZero(t, results[0])
}

func TestRegistriesAreIsolated(t *testing.T) {
	ctx := testContext(t)

	regA := NewRegistry()
	regB := NewRegistry()

	linkerA := DescribeResource[counterResource](regA)
	fieldA, err := FieldOf[counterResource](regA, "Name")
	require.NoError(t, err)
	require.NoError(t, linkerA.PushLevel(fieldA))
	reprA, err := linkerA.Link(ctx)
	require.NoError(t, err)

	linkerB := DescribeResource[counterResource](regB)
	fieldB, err := FieldOf[counterResource](regB, "Name")
	require.NoError(t, err)
	require.NoError(t, linkerB.PushLevel(fieldB))
	reprB, err := linkerB.Link(ctx)
	require.NoError(t, err)

	// Interning is deterministic, so both registries settle on the same
	// packed handle.
	assert.Equal(t, reprA.Uint64(), reprB.Uint64())

	// Clearing one registry does not disturb the other.
	regA.Clear()

	_, err = reprA.Levels()
	assert.ErrorIs(t, err, ErrNotInterned)

	levels, err := reprB.Levels()
	require.NoError(t, err)
	assert.Len(t, levels, 2)
}
