package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coldchain/compliance/internal/domain"
	"coldchain/compliance/internal/store"
)

func TestShipmentService_Register(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sh, err := h.shipments.Register(ctx, ShipmentRegistration{OrderNumber: " ORD-77 ", ProductCategory: domain.CategoryChilled}, "ops")
	require.NoError(t, err)
	assert.NotEmpty(t, sh.ID)
	assert.Equal(t, "ORD-77", sh.OrderNumber)
	assert.Equal(t, domain.ShipmentPending, sh.Status)
	assert.Equal(t, testNow, sh.CreatedAt)

	_, err = h.shipments.Register(ctx, ShipmentRegistration{ID: sh.ID, OrderNumber: "ORD-78"}, "ops")
	assert.True(t, domain.IsKind(err, domain.KindConflict))

	cases := []ShipmentRegistration{
		{OrderNumber: ""},
		{OrderNumber: "ORD-1", Status: "lost"},
		{OrderNumber: "ORD-1", ProductCategory: "pharma"},
		{OrderNumber: "ORD-1", Range: rangeInput(6, 2)},
	}
	for _, reg := range cases {
		_, err := h.shipments.Register(ctx, reg, "ops")
		assert.True(t, domain.IsKind(err, domain.KindValidation), "%+v", reg)
	}
}

func TestShipmentService_RegistrationRangeCoversEarlierReadings(t *testing.T) {
	h := newHarness(t)
	h.register(t, "shp-1", domain.CategoryChilled, rangeInput(0, 10))

	// Reading an hour before registration still uses the registered band.
	res := h.ingestAt(t, "shp-1", 8, 0)
	assert.Equal(t, domain.Compliant, res.Compliance)
}

func TestShipmentService_RegisterIsAtomic(t *testing.T) {
	mem := store.NewMemoryStore()
	st := &faultyStore{MemoryStore: mem, failCreates: 1}
	h := newHarnessOn(t, mem, st)
	ctx := context.Background()
	reg := ShipmentRegistration{ID: "shp-1", OrderNumber: "ORD-1", Status: domain.ShipmentInTransit,
		ProductCategory: domain.CategoryChilled, Range: rangeInput(0, 10)}

	_, err := h.shipments.Register(ctx, reg, "ops")
	require.True(t, domain.IsKind(err, domain.KindStorage))

	_, err = mem.GetShipment(ctx, "shp-1")
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
	versions, err := mem.RangeVersions(ctx, domain.ScopeShipment, "shp-1")
	require.NoError(t, err)
	assert.Empty(t, versions)

	// A retry succeeds and the agreed band applies.
	_, err = h.shipments.Register(ctx, reg, "ops")
	require.NoError(t, err)
	res := h.ingestAt(t, "shp-1", 8, 0)
	assert.Equal(t, domain.Compliant, res.Compliance)
}

func TestShipmentService_RegisterStoresRangeWithShipment(t *testing.T) {
	mem := store.NewMemoryStore()
	st := &faultyStore{MemoryStore: mem, failAppends: true}
	h := newHarnessOn(t, mem, st)

	h.register(t, "shp-1", domain.CategoryChilled, rangeInput(0, 10))

	rng, err := h.resolver.ResolveCurrent(context.Background(), "shp-1")
	require.NoError(t, err)
	assert.Equal(t, 10.0, *rng.Max)
}

func TestShipmentService_UpdateStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.shipments.Register(ctx, ShipmentRegistration{ID: "shp-1", OrderNumber: "ORD-1"}, "ops")
	require.NoError(t, err)

	sh, err := h.shipments.UpdateStatus(ctx, "shp-1", domain.ShipmentInTransit)
	require.NoError(t, err)
	assert.Equal(t, domain.ShipmentInTransit, sh.Status)

	sh, err = h.shipments.UpdateStatus(ctx, "shp-1", domain.ShipmentInTransit)
	require.NoError(t, err)
	assert.Equal(t, domain.ShipmentInTransit, sh.Status)

	_, err = h.shipments.UpdateStatus(ctx, "shp-1", domain.ShipmentProcessing)
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	_, err = h.shipments.UpdateStatus(ctx, "shp-1", domain.ShipmentDelivered)
	require.NoError(t, err)

	_, err = h.shipments.UpdateStatus(ctx, "shp-1", domain.ShipmentCancelled)
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	stored, err := h.shipments.Get(ctx, "shp-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ShipmentDelivered, stored.Status)

	_, err = h.ingestor.Ingest(ctx, domain.ReadingInput{ShipmentID: "shp-1", Temperature: domain.Float(4)})
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	_, err = h.shipments.UpdateStatus(ctx, "ghost", domain.ShipmentInTransit)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}
