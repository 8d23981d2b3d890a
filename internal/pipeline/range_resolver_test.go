package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coldchain/compliance/internal/domain"
)

func TestRangeResolver_BuiltInDefaults(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "frozen", domain.CategoryFrozen, nil)
	h.register(t, "chilled", domain.CategoryChilled, nil)
	h.register(t, "ambient", domain.CategoryAmbient, nil)

	rng, err := h.resolver.ResolveCurrent(ctx, "frozen")
	require.NoError(t, err)
	assert.Equal(t, -20.0, *rng.Min)
	assert.Equal(t, -18.0, *rng.Max)

	rng, err = h.resolver.ResolveCurrent(ctx, "chilled")
	require.NoError(t, err)
	assert.Equal(t, 2.0, *rng.Min)
	assert.Equal(t, 6.0, *rng.Max)

	rng, err = h.resolver.ResolveCurrent(ctx, "ambient")
	require.NoError(t, err)
	assert.Nil(t, rng.Min)
	assert.Nil(t, rng.Max)
}

func TestRangeResolver_Idempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "shp-1", domain.CategoryChilled, rangeInput(3, 5))

	first, err := h.resolver.ResolveCurrent(ctx, "shp-1")
	require.NoError(t, err)
	second, err := h.resolver.ResolveCurrent(ctx, "shp-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRangeResolver_Precedence(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "shp-1", domain.CategoryChilled, nil)

	_, err := h.resolver.SetCategoryDefault(ctx, domain.CategoryChilled, domain.RangeInput{
		Min: domain.Float(1), Max: domain.Float(7),
	}, "admin")
	require.NoError(t, err)

	rng, err := h.resolver.ResolveCurrent(ctx, "shp-1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, *rng.Min, "stored category version beats built-in default")

	_, err = h.resolver.SetShipmentOverride(ctx, "shp-1", domain.RangeInput{
		Min: domain.Float(3), Max: domain.Float(4),
	}, "admin")
	require.NoError(t, err)

	rng, err = h.resolver.ResolveCurrent(ctx, "shp-1")
	require.NoError(t, err)
	assert.Equal(t, 3.0, *rng.Min, "shipment override beats category version")
	assert.Equal(t, 4.0, *rng.Max)
}

func TestRangeResolver_VersionsAreAppendOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "shp-1", domain.CategoryChilled, rangeInput(2, 8))

	later := testNow.Add(time.Hour)
	_, err := h.resolver.SetShipmentOverride(ctx, "shp-1", domain.RangeInput{
		Min: domain.Float(4), Max: domain.Float(5), EffectiveFrom: &later,
	}, "admin")
	require.NoError(t, err)

	sh, err := h.store.GetShipment(ctx, "shp-1")
	require.NoError(t, err)

	now, err := h.resolver.Resolve(ctx, sh, testNow)
	require.NoError(t, err)
	assert.Equal(t, 8.0, *now.Max)

	future, err := h.resolver.Resolve(ctx, sh, later)
	require.NoError(t, err)
	assert.Equal(t, 5.0, *future.Max)

	versions, err := h.store.RangeVersions(ctx, domain.ScopeShipment, "shp-1")
	require.NoError(t, err)
	assert.Len(t, versions, 2)
}

func TestRangeResolver_CategoryCacheInvalidatedOnWrite(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "shp-1", domain.CategoryFrozen, nil)

	_, err := h.resolver.ResolveCurrent(ctx, "shp-1")
	require.NoError(t, err)

	_, err = h.resolver.SetCategoryDefault(ctx, domain.CategoryFrozen, domain.RangeInput{
		Min: domain.Float(-25), Max: domain.Float(-15),
	}, "admin")
	require.NoError(t, err)

	rng, err := h.resolver.ResolveCurrent(ctx, "shp-1")
	require.NoError(t, err)
	assert.Equal(t, -25.0, *rng.Min)

	defaults, err := h.resolver.CategoryDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, -15.0, *defaults[domain.CategoryFrozen].Max)
	assert.Equal(t, 6.0, *defaults[domain.CategoryChilled].Max)
}

func TestRangeResolver_Errors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "shp-1", "", nil)

	_, err := h.resolver.ResolveCurrent(ctx, "shp-1")
	assert.True(t, domain.IsKind(err, domain.KindRangeNotFound))

	_, err = h.resolver.ResolveCurrent(ctx, "ghost")
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	_, err = h.resolver.SetShipmentOverride(ctx, "ghost", *rangeInput(1, 2), "admin")
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	_, err = h.resolver.SetShipmentOverride(ctx, "shp-1", *rangeInput(5, 2), "admin")
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	_, err = h.resolver.SetCategoryDefault(ctx, "pharma", *rangeInput(1, 2), "admin")
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}
