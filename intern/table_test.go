package intern

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableAssignAndGet(t *testing.T) {
	var table Table[string]
	h := Handle{hi: uint16(Root) | 0x0001, lo: 0x0002}

	_, ok := table.Get(h)
	assert.False(t, ok)

	require.NoError(t, table.Assign(h, "value"))

	v, ok := table.Value(h)
	assert.True(t, ok)
	assert.Equal(t, "value", v)
	assert.Equal(t, 1, table.Len())
}

func TestTableAssignIsIdempotent(t *testing.T) {
	var table Table[string]
	h := Handle{hi: uint16(Root) | 0x0001, lo: 0x0002}

	require.NoError(t, table.Assign(h, "first"))
	require.NoError(t, table.Assign(h, "second"))

	v, ok := table.Value(h)
	assert.True(t, ok)
	assert.Equal(t, "first", v)
	assert.Equal(t, 1, table.Len())
}

func TestTableWaitBlocksUntilAssign(t *testing.T) {
	var table Table[int]
	h := Handle{hi: uint16(Level1) | 0x00aa, lo: 0xbbcc}

	got := make(chan int, 1)
	go func() {
		v, err := table.Wait(context.Background(), h)
		if err == nil {
			got <- *v
		}
	}()

	// Give the waiter a moment to register before assigning.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, table.Assign(h, 42))

	select {
	case v := <-got:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("waiter was not released by Assign")
	}
}

func TestTableWaitReturnsImmediatelyWhenPresent(t *testing.T) {
	var table Table[int]
	h := Handle{hi: uint16(Root) | 0x0001, lo: 0x0002}
	require.NoError(t, table.Assign(h, 7))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := table.Wait(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, 7, *v)
}

func TestTableWaitHonorsContext(t *testing.T) {
	var table Table[int]
	h := Handle{hi: uint16(Root) | 0x0001, lo: 0x0002}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := table.Wait(ctx, h)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTableClearReleasesWaiters(t *testing.T) {
	var table Table[int]
	h := Handle{hi: uint16(Root) | 0x0001, lo: 0x0002}

	errs := make(chan error, 1)
	go func() {
		_, err := table.Wait(context.Background(), h)
		errs <- err
	}()

	time.Sleep(10 * time.Millisecond)
	table.Clear()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrNotInterned)
	case <-time.After(time.Second):
		t.Fatal("waiter was not released by Clear")
	}
}

func TestTableGetSurvivesClear(t *testing.T) {
	var table Table[string]
	h := Handle{hi: uint16(Root) | 0x0001, lo: 0x0002}
	require.NoError(t, table.Assign(h, "kept"))

	p, ok := table.Get(h)
	require.True(t, ok)

	table.Clear()
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, "kept", *p)

	_, ok = table.Get(h)
	assert.False(t, ok)
}
