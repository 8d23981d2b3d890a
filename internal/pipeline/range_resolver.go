package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coldchain/compliance/internal/domain"
)

// DefaultCategoryRanges are used when no category version has been stored.
// Ambient goods carry no bound.
var DefaultCategoryRanges = map[domain.ProductCategory]domain.ComplianceRange{
	domain.CategoryFrozen:  {Min: domain.Float(-20), Max: domain.Float(-18)},
	domain.CategoryChilled: {Min: domain.Float(2), Max: domain.Float(6)},
	domain.CategoryAmbient: {},
}

// RangeVersionReader is implemented by the store and by a shipment scope.
type RangeVersionReader interface {
	RangeVersions(ctx context.Context, scope domain.RangeScope, key string) ([]domain.RangeVersion, error)
}

type RangeStore interface {
	RangeVersionReader
	GetShipment(ctx context.Context, id string) (domain.Shipment, error)
	AppendRangeVersion(ctx context.Context, v domain.RangeVersion) error
}

type cacheEntry struct {
	versions  []domain.RangeVersion
	expiresAt time.Time
}

type RangeResolver struct {
	store    RangeStore
	defaults map[domain.ProductCategory]domain.ComplianceRange
	cache    sync.Map // category -> cacheEntry
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func NewRangeResolver(store RangeStore, cacheTTL time.Duration, logger *zap.Logger) *RangeResolver {
	return &RangeResolver{
		store:    store,
		defaults: DefaultCategoryRanges,
		ttl:      cacheTTL,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// Resolve returns the range in effect for the shipment at the given time.
// Shipment overrides win over category versions, which win over the
// built-in category defaults.
func (r *RangeResolver) Resolve(ctx context.Context, sh domain.Shipment, at time.Time) (domain.ComplianceRange, error) {
	return r.ResolveWith(ctx, r.store, sh, at)
}

// ResolveWith reads versions through src. Callers holding a shipment scope
// pass the scope so that resolution does not need a second connection.
func (r *RangeResolver) ResolveWith(ctx context.Context, src RangeVersionReader, sh domain.Shipment, at time.Time) (domain.ComplianceRange, error) {
	overrides, err := src.RangeVersions(ctx, domain.ScopeShipment, sh.ID)
	if err != nil {
		return domain.ComplianceRange{}, err
	}
	if v, ok := domain.ActiveVersion(overrides, at); ok {
		return v.Range, nil
	}

	if sh.ProductCategory == "" {
		return domain.ComplianceRange{}, domain.RangeNotFoundf("shipment %s has no product category and no range override", sh.ID)
	}

	versions, err := r.categoryVersions(ctx, src, sh.ProductCategory)
	if err != nil {
		return domain.ComplianceRange{}, err
	}
	if v, ok := domain.ActiveVersion(versions, at); ok {
		return v.Range, nil
	}

	if rng, ok := r.defaults[sh.ProductCategory]; ok {
		return rng, nil
	}
	return domain.ComplianceRange{}, domain.RangeNotFoundf("no range defined for product category %q", sh.ProductCategory)
}

func (r *RangeResolver) ResolveCurrent(ctx context.Context, shipmentID string) (domain.ComplianceRange, error) {
	sh, err := r.store.GetShipment(ctx, shipmentID)
	if err != nil {
		return domain.ComplianceRange{}, err
	}
	return r.Resolve(ctx, sh, r.now())
}

func (r *RangeResolver) categoryVersions(ctx context.Context, src RangeVersionReader, category domain.ProductCategory) ([]domain.RangeVersion, error) {
	if raw, ok := r.cache.Load(category); ok {
		entry := raw.(cacheEntry)
		if r.now().Before(entry.expiresAt) {
			return entry.versions, nil
		}
		r.cache.Delete(category)
	}

	versions, err := src.RangeVersions(ctx, domain.ScopeCategory, string(category))
	if err != nil {
		return nil, err
	}
	r.cache.Store(category, cacheEntry{versions: versions, expiresAt: r.now().Add(r.ttl)})
	return versions, nil
}

// SetShipmentOverride appends a new override version for one shipment.
func (r *RangeResolver) SetShipmentOverride(ctx context.Context, shipmentID string, in domain.RangeInput, by string) (domain.RangeVersion, error) {
	if _, err := r.store.GetShipment(ctx, shipmentID); err != nil {
		return domain.RangeVersion{}, err
	}
	return r.appendVersion(ctx, domain.ScopeShipment, shipmentID, in, by)
}

// SetCategoryDefault appends a new default version for a product category.
func (r *RangeResolver) SetCategoryDefault(ctx context.Context, category domain.ProductCategory, in domain.RangeInput, by string) (domain.RangeVersion, error) {
	if !category.Valid() {
		return domain.RangeVersion{}, domain.Validationf("unknown product category %q", category)
	}
	v, err := r.appendVersion(ctx, domain.ScopeCategory, string(category), in, by)
	if err != nil {
		return domain.RangeVersion{}, err
	}
	r.cache.Delete(category)
	return v, nil
}

func (r *RangeResolver) appendVersion(ctx context.Context, scope domain.RangeScope, key string, in domain.RangeInput, by string) (domain.RangeVersion, error) {
	v, err := r.NewVersion(scope, key, in, by)
	if err != nil {
		return domain.RangeVersion{}, err
	}
	if err := r.store.AppendRangeVersion(ctx, v); err != nil {
		return domain.RangeVersion{}, err
	}
	r.logVersion(v)
	return v, nil
}

// NewVersion validates in and builds a version without storing it. A nil
// EffectiveFrom means now.
func (r *RangeResolver) NewVersion(scope domain.RangeScope, key string, in domain.RangeInput, by string) (domain.RangeVersion, error) {
	now := r.now()
	rng := domain.ComplianceRange{Min: in.Min, Max: in.Max, EffectiveFrom: now}
	if in.EffectiveFrom != nil {
		rng.EffectiveFrom = in.EffectiveFrom.UTC()
	}
	if err := rng.Validate(); err != nil {
		return domain.RangeVersion{}, err
	}
	return domain.RangeVersion{
		ID:        uuid.NewString(),
		Scope:     scope,
		Key:       key,
		Range:     rng,
		CreatedBy: by,
		CreatedAt: now,
	}, nil
}

func (r *RangeResolver) logVersion(v domain.RangeVersion) {
	r.logger.Info("compliance range version appended",
		zap.String("scope", string(v.Scope)),
		zap.String("key", v.Key),
		zap.Time("effective_from", v.Range.EffectiveFrom),
		zap.String("created_by", v.CreatedBy),
	)
}

// CategoryDefaults lists the range currently in effect for every category.
func (r *RangeResolver) CategoryDefaults(ctx context.Context) (map[domain.ProductCategory]domain.ComplianceRange, error) {
	now := r.now()
	out := make(map[domain.ProductCategory]domain.ComplianceRange, len(r.defaults))
	for category, fallback := range r.defaults {
		versions, err := r.categoryVersions(ctx, r.store, category)
		if err != nil {
			return nil, err
		}
		if v, ok := domain.ActiveVersion(versions, now); ok {
			out[category] = v.Range
			continue
		}
		out[category] = fallback
	}
	return out, nil
}
