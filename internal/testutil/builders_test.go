package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juliusl/reality-sub001/intern"
	"github.com/juliusl/reality-sub001/store"
	"github.com/juliusl/reality-sub001/wire"
)

type townRecord struct {
	Name       string
	Population int64
}

func builderContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestPacketBuilderSetsEveryField(t *testing.T) {
	hash := store.KeyOf[townRecord]("town").UUID()

	pkt := NewPacketBuilder("name").
		Owner("testutil.townRecord").
		Type("string", uint64(intern.TypeOf[string]().Size())).
		Offset(0).
		Op(7).
		AttributeHash(hash).
		Data("hello town").
		Build()

	assert.Equal(t, "name", pkt.FieldName)
	assert.Equal(t, "testutil.townRecord", pkt.OwnerName)
	assert.Equal(t, "string", pkt.DataTypeName)
	assert.Equal(t, uint64(7), pkt.Op)
	require.NotNil(t, pkt.AttributeHash)
	assert.Equal(t, hash, *pkt.AttributeHash)
	assert.Equal(t, "hello town", pkt.Data)
}

func TestForFieldSeedsFromRoutingTable(t *testing.T) {
	builder, ok := ForField[townRecord]("population")
	require.True(t, ok)

	pkt := builder.Data(int64(912)).Build()

	table := wire.NewRoutingTable(townRecord{}, store.Root[townRecord]())
	ref, ok := table.Field("population")
	require.True(t, ok)
	want := ref.Encode()

	assert.Equal(t, want.FieldName, pkt.FieldName)
	assert.Equal(t, want.OwnerName, pkt.OwnerName)
	assert.Equal(t, want.DataTypeName, pkt.DataTypeName)
	assert.Equal(t, want.DataTypeSize, pkt.DataTypeSize)
	assert.Equal(t, want.FieldOffset, pkt.FieldOffset)
	assert.True(t, pkt.Routable(want.DataTypeName, want.DataTypeSize))
}

func TestForFieldRejectsUnknownField(t *testing.T) {
	_, ok := ForField[townRecord]("mayor")
	assert.False(t, ok)
}

func TestBuildWireEncodesData(t *testing.T) {
	builder, ok := ForField[townRecord]("name")
	require.True(t, ok)

	pkt, err := builder.Data("hello town").BuildWire()
	require.NoError(t, err)

	assert.Nil(t, pkt.Data)
	assert.JSONEq(t, `"hello town"`, string(pkt.WireData))
}

func TestFrameBuilderAssemblesReceiverAndFields(t *testing.T) {
	nameBuilder, ok := ForField[townRecord]("name")
	require.True(t, ok)
	popBuilder, ok := ForField[townRecord]("population")
	require.True(t, ok)

	frame := NewFrameBuilder("town_record").
		Packet(nameBuilder.Data("hello town").Build()).
		Packets(popBuilder.Data(int64(912)).Build()).
		Build()

	assert.True(t, frame.Recv.IsReceiver())
	assert.Equal(t, "town_record", frame.Recv.FieldName)
	require.Len(t, frame.Fields, 2)
	assert.Equal(t, "name", frame.Fields[0].FieldName)
	assert.Equal(t, "population", frame.Fields[1].FieldName)
}

func TestReprBuilderLinksResourceField(t *testing.T) {
	ctx := builderContext(t)
	reg := intern.NewRegistry()

	repr, err := NewReprBuilder(reg).
		Resource(intern.TypeOf[townRecord]()).
		Field(intern.TypeOf[townRecord](), "Name", 0).
		Link(ctx)
	require.NoError(t, err)

	res, ok := repr.AsResource()
	require.True(t, ok)
	name, ok := res.TypeName()
	require.True(t, ok)
	assert.Equal(t, "testutil.townRecord", name)

	field, ok := repr.AsField()
	require.True(t, ok)
	fieldName, ok := field.Name()
	require.True(t, ok)
	assert.Equal(t, "Name", fieldName)
}

func TestReprBuilderLinksDependencyChain(t *testing.T) {
	ctx := builderContext(t)
	reg := intern.NewRegistry()

	parent, err := NewReprBuilder(reg).
		Resource(intern.TypeOf[townRecord]()).
		Dependency("census").
		Link(ctx)
	require.NoError(t, err)

	child, err := NewReprBuilder(reg).
		Resource(intern.TypeOf[int64]()).
		DependencyOn("population", parent).
		Link(ctx)
	require.NoError(t, err)

	dep, ok := child.AsDependency()
	require.True(t, ok)
	got, ok := dep.Parent()
	require.True(t, ok)
	assert.Equal(t, parent.Uint64(), got.Uint64())
}

func TestReprBuilderLinksNodeAndHost(t *testing.T) {
	ctx := builderContext(t)
	reg := intern.NewRegistry()

	repr, err := NewReprBuilder(reg).
		Resource(intern.TypeOf[townRecord]()).
		Recv("town_record").
		Node(intern.WithSymbol("town"), intern.WithInput("hello town")).
		Host("localhost:7575").
		Link(ctx)
	require.NoError(t, err)

	node, ok := repr.AsNode()
	require.True(t, ok)
	symbol, ok := node.Symbol()
	require.True(t, ok)
	assert.Equal(t, "town", symbol)

	host, ok := repr.AsHost()
	require.True(t, ok)
	address, ok := host.Address()
	require.True(t, ok)
	assert.Equal(t, "localhost:7575", address)
}

func TestReprBuilderLatchesFirstError(t *testing.T) {
	ctx := builderContext(t)
	reg := intern.NewRegistry()

	_, err := NewReprBuilder(reg).
		Field(intern.TypeOf[townRecord](), "Name", 0).
		Resource(intern.TypeOf[townRecord]()).
		Link(ctx)
	assert.ErrorIs(t, err, intern.ErrExpectedRootLevel)

	_, err = NewReprBuilder(reg).
		Resource(intern.TypeOf[townRecord]()).
		Host("localhost:7575").
		Link(ctx)
	assert.ErrorIs(t, err, intern.ErrExpectedNextLevel)
}

func TestUUIDRoundTrip(t *testing.T) {
	builder, ok := ForField[townRecord]("name")
	require.True(t, ok)
	key := store.KeyOf[townRecord]("town")

	pkt := builder.AttributeHash(key.UUID()).Build()
	require.NotNil(t, pkt.AttributeHash)
	parsed, err := uuid.Parse(pkt.AttributeHash.String())
	require.NoError(t, err)
	assert.Equal(t, key.UUID(), parsed)
}
