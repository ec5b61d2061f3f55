package reality

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juliusl/reality-sub001/intern"
	"github.com/juliusl/reality-sub001/wire"
)

type cityRecord struct {
	Name       string
	Population int64
}

func runtimeContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestNewProvidesDefaults(t *testing.T) {
	rt := New()
	defer rt.Shutdown()

	require.NotNil(t, rt.Store())
	assert.Equal(t, "root", rt.Store().Name())
	require.NotNil(t, rt.Registry())
	require.NoError(t, rt.Context().Err())
}

func TestExternalRegistryIsAdopted(t *testing.T) {
	reg := intern.NewRegistry()
	rt := New(func(o *Options) {
		o.Registry = reg
	})
	defer rt.Shutdown()

	assert.Same(t, reg, rt.Registry())
}

func TestNamespaceDelegatesToRootStore(t *testing.T) {
	rt := New(func(o *Options) {
		o.StoreName = "engine"
	})
	defer rt.Shutdown()

	ns := rt.Namespace("jobs")
	assert.Equal(t, "engine/jobs", ns.Name())
	assert.Same(t, ns, rt.Namespace("jobs"))
}

func TestDescribeResourceLinksIntoRegistry(t *testing.T) {
	rt := New()
	defer rt.Shutdown()

	repr, err := DescribeResource[cityRecord](rt).Link(runtimeContext(t))
	require.NoError(t, err)

	res, ok := repr.AsResource()
	require.True(t, ok)
	name, ok := res.TypeName()
	require.True(t, ok)
	assert.Equal(t, "reality.cityRecord", name)
}

func TestShutdownCancelsContextAndClearsRegistry(t *testing.T) {
	rt := New()

	_, err := DescribeResource[cityRecord](rt).Link(runtimeContext(t))
	require.NoError(t, err)
	require.NotZero(t, rt.Registry().TypeNames().Len())

	rt.Shutdown()

	assert.ErrorIs(t, rt.Context().Err(), context.Canceled)
	assert.Zero(t, rt.Registry().TypeNames().Len())
}

func TestServeWireRoutesEdits(t *testing.T) {
	rt := New()
	defer rt.Shutdown()

	_, client := ServeWire(rt, cityRecord{}, "city")

	sub := client.Subscribe()
	defer sub.Close()

	require.NoError(t, client.TryBorrowModify(func(table *wire.RoutingTable[cityRecord]) (wire.FieldPacket, error) {
		ref, ok := table.Field("name")
		if !ok {
			return wire.FieldPacket{}, wire.ErrUnknownField
		}
		return ref.EditValue("hello town")
	}))

	require.NoError(t, sub.Changed(runtimeContext(t)))

	var staged any
	sub.View(func(table *wire.RoutingTable[cityRecord]) {
		ref, ok := table.Field("name")
		require.True(t, ok)
		staged = ref.CurrentValue()
	})
	assert.Equal(t, "hello town", staged)
}
