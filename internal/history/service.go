package history

import (
	"context"
	"math"
	"time"

	"coldchain/compliance/internal/domain"
)

type Store interface {
	ListReadings(ctx context.Context, f domain.ReadingFilter) ([]domain.TemperatureReading, int, error)
	ListAlerts(ctx context.Context, f domain.AlertFilter) ([]domain.Alert, int, error)
	GetAlert(ctx context.Context, id string) (domain.Alert, error)
	AlertReadings(ctx context.Context, alertID string) ([]domain.TemperatureReading, error)
}

// Service serves paginated reading and alert history for the dashboards.
type Service struct {
	store       Store
	defaultSize int
	maxSize     int
}

func NewService(store Store, defaultSize, maxSize int) *Service {
	if maxSize <= 0 {
		maxSize = 100
	}
	if defaultSize <= 0 || defaultSize > maxSize {
		defaultSize = min(20, maxSize)
	}
	return &Service{store: store, defaultSize: defaultSize, maxSize: maxSize}
}

func (s *Service) ListReadings(ctx context.Context, f domain.ReadingFilter) (domain.Page[domain.TemperatureReading], error) {
	if f.Compliance != "" && !f.Compliance.Valid() {
		return domain.Page[domain.TemperatureReading]{}, domain.Validationf("unknown compliance %q", f.Compliance)
	}
	if f.Severity != "" && !f.Severity.Valid() {
		return domain.Page[domain.TemperatureReading]{}, domain.Validationf("unknown severity %q", f.Severity)
	}
	switch f.SortBy {
	case "":
		f.SortBy = domain.SortByTimestamp
	case domain.SortByTimestamp, domain.SortByTemperature:
	default:
		return domain.Page[domain.TemperatureReading]{}, domain.Validationf("readings cannot be sorted by %q", f.SortBy)
	}
	var err error
	if f.Order, err = normalizeOrder(f.Order); err != nil {
		return domain.Page[domain.TemperatureReading]{}, err
	}
	if err := checkWindow(f.Start, f.End); err != nil {
		return domain.Page[domain.TemperatureReading]{}, err
	}
	f.PageRequest = s.normalizePage(f.PageRequest)

	items, total, err := s.store.ListReadings(ctx, f)
	if err != nil {
		return domain.Page[domain.TemperatureReading]{}, err
	}
	if items == nil {
		items = []domain.TemperatureReading{}
	}
	return domain.Page[domain.TemperatureReading]{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (s *Service) ListAlerts(ctx context.Context, f domain.AlertFilter) (domain.Page[domain.Alert], error) {
	if f.Status != "" && !f.Status.Valid() {
		return domain.Page[domain.Alert]{}, domain.Validationf("unknown alert status %q", f.Status)
	}
	if f.Severity != "" && !f.Severity.Valid() {
		return domain.Page[domain.Alert]{}, domain.Validationf("unknown severity %q", f.Severity)
	}
	switch f.SortBy {
	case "":
		f.SortBy = domain.SortByTimestamp
	case domain.SortByTimestamp, domain.SortBySeverity:
	default:
		return domain.Page[domain.Alert]{}, domain.Validationf("alerts cannot be sorted by %q", f.SortBy)
	}
	var err error
	if f.Order, err = normalizeOrder(f.Order); err != nil {
		return domain.Page[domain.Alert]{}, err
	}
	if err := checkWindow(f.Start, f.End); err != nil {
		return domain.Page[domain.Alert]{}, err
	}
	f.PageRequest = s.normalizePage(f.PageRequest)

	items, total, err := s.store.ListAlerts(ctx, f)
	if err != nil {
		return domain.Page[domain.Alert]{}, err
	}
	if items == nil {
		items = []domain.Alert{}
	}
	return domain.Page[domain.Alert]{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// GetAlert returns the alert together with the readings in its window.
func (s *Service) GetAlert(ctx context.Context, id string) (domain.AlertDetail, error) {
	alert, err := s.store.GetAlert(ctx, id)
	if err != nil {
		return domain.AlertDetail{}, err
	}
	readings, err := s.store.AlertReadings(ctx, id)
	if err != nil {
		return domain.AlertDetail{}, err
	}
	if readings == nil {
		readings = []domain.TemperatureReading{}
	}
	return domain.AlertDetail{Alert: alert, Readings: readings}, nil
}

func (s *Service) normalizePage(p domain.PageRequest) domain.PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = s.defaultSize
	}
	if p.Limit > s.maxSize {
		p.Limit = s.maxSize
	}
	// Keep (page-1)*limit representable; any such page is past the end.
	if maxPage := math.MaxInt/p.Limit + 1; p.Page > maxPage {
		p.Page = maxPage
	}
	return p
}

func normalizeOrder(o domain.SortOrder) (domain.SortOrder, error) {
	switch o {
	case "":
		return domain.SortDesc, nil
	case domain.SortAsc, domain.SortDesc:
		return o, nil
	}
	return "", domain.Validationf("order must be asc or desc, got %q", o)
}

func checkWindow(start, end *time.Time) error {
	if start != nil && end != nil && start.After(*end) {
		return domain.Validationf("start %s is after end %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return nil
}
