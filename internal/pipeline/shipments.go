package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coldchain/compliance/internal/domain"
	"coldchain/compliance/internal/store"
)

// ShipmentRegistration is the shipment projection pushed by the logistics
// workflow, with an optional per-shipment range.
type ShipmentRegistration struct {
	ID              string                 `json:"id"`
	OrderNumber     string                 `json:"orderNumber"`
	Status          domain.ShipmentStatus  `json:"status"`
	VehicleID       string                 `json:"vehicleId"`
	ProductCategory domain.ProductCategory `json:"productCategory"`
	Range           *domain.RangeInput     `json:"range,omitempty"`
}

type ShipmentService struct {
	store    store.Store
	resolver *RangeResolver
	now      func() time.Time
	logger   *zap.Logger
}

func NewShipmentService(st store.Store, resolver *RangeResolver, logger *zap.Logger) *ShipmentService {
	return &ShipmentService{
		store:    st,
		resolver: resolver,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// Register stores a new shipment. A range given at registration applies to
// every reading of the shipment unless an explicit effectiveFrom is set.
func (s *ShipmentService) Register(ctx context.Context, reg ShipmentRegistration, by string) (domain.Shipment, error) {
	orderNumber := strings.TrimSpace(reg.OrderNumber)
	if orderNumber == "" {
		return domain.Shipment{}, domain.Validationf("orderNumber is required")
	}
	status := reg.Status
	if status == "" {
		status = domain.ShipmentPending
	}
	if !status.Valid() {
		return domain.Shipment{}, domain.Validationf("unknown shipment status %q", status)
	}
	if reg.ProductCategory != "" && !reg.ProductCategory.Valid() {
		return domain.Shipment{}, domain.Validationf("unknown product category %q", reg.ProductCategory)
	}

	id := strings.TrimSpace(reg.ID)
	if id == "" {
		id = uuid.NewString()
	}

	var overrides []domain.RangeVersion
	if reg.Range != nil {
		r := *reg.Range
		if r.EffectiveFrom == nil {
			r.EffectiveFrom = &time.Time{}
		}
		v, err := s.resolver.NewVersion(domain.ScopeShipment, id, r, by)
		if err != nil {
			return domain.Shipment{}, err
		}
		overrides = append(overrides, v)
	}

	now := s.now()
	sh := domain.Shipment{
		ID:              id,
		OrderNumber:     orderNumber,
		Status:          status,
		VehicleID:       strings.TrimSpace(reg.VehicleID),
		ProductCategory: reg.ProductCategory,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.CreateShipment(ctx, sh, overrides...); err != nil {
		return domain.Shipment{}, err
	}
	for _, v := range overrides {
		s.resolver.logVersion(v)
	}

	s.logger.Info("shipment registered",
		zap.String("shipment_id", sh.ID),
		zap.String("order_number", sh.OrderNumber),
		zap.String("status", string(sh.Status)),
		zap.String("category", string(sh.ProductCategory)),
	)
	return sh, nil
}

// UpdateStatus moves a shipment forward in its lifecycle. It runs in the
// shipment's serialized scope so that no reading is accepted after a
// terminal status commits.
func (s *ShipmentService) UpdateStatus(ctx context.Context, id string, next domain.ShipmentStatus) (domain.Shipment, error) {
	var updated domain.Shipment
	err := s.store.WithShipmentLock(ctx, id, func(tx store.ShipmentTx) error {
		sh := tx.Shipment()
		if err := sh.CheckTransition(next); err != nil {
			return err
		}
		if next == sh.Status {
			updated = sh
			return nil
		}
		at := s.now()
		if err := tx.SetShipmentStatus(ctx, next, at); err != nil {
			return err
		}
		sh.Status = next
		sh.UpdatedAt = at
		updated = sh
		return nil
	})
	if err != nil {
		return domain.Shipment{}, err
	}

	s.logger.Info("shipment status updated",
		zap.String("shipment_id", updated.ID),
		zap.String("status", string(updated.Status)),
	)
	return updated, nil
}

func (s *ShipmentService) Get(ctx context.Context, id string) (domain.Shipment, error) {
	return s.store.GetShipment(ctx, id)
}
