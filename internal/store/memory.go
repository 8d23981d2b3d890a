package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"coldchain/compliance/internal/domain"
)

// shipmentSlot holds the per-shipment lock and the reference to the
// shipment's open alert, if any.
type shipmentSlot struct {
	mu          sync.Mutex
	openAlertID string
}

// MemoryStore keeps everything in process. It is used for local runs and
// tests and honours the same serialization contract as PostgresStore.
type MemoryStore struct {
	mu         sync.RWMutex
	shipments  map[string]domain.Shipment
	readings   map[string]domain.TemperatureReading
	alerts     map[string]domain.Alert
	alertLinks map[string][]string
	versions   []domain.RangeVersion

	slots sync.Map // shipment id -> *shipmentSlot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		shipments:  make(map[string]domain.Shipment),
		readings:   make(map[string]domain.TemperatureReading),
		alerts:     make(map[string]domain.Alert),
		alertLinks: make(map[string][]string),
	}
}

func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemoryStore) Close() {}

func (s *MemoryStore) slot(shipmentID string) *shipmentSlot {
	raw, _ := s.slots.LoadOrStore(shipmentID, &shipmentSlot{})
	return raw.(*shipmentSlot)
}

func (s *MemoryStore) CreateShipment(ctx context.Context, sh domain.Shipment, overrides ...domain.RangeVersion) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shipments[sh.ID]; ok {
		return domain.Conflictf("shipment %s already exists", sh.ID)
	}
	s.shipments[sh.ID] = sh
	s.versions = append(s.versions, overrides...)
	return nil
}

func (s *MemoryStore) GetShipment(ctx context.Context, id string) (domain.Shipment, error) {
	if err := ctx.Err(); err != nil {
		return domain.Shipment{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.shipments[id]
	if !ok {
		return domain.Shipment{}, domain.NotFoundf("shipment %s not found", id)
	}
	return sh, nil
}

func (s *MemoryStore) WithShipmentLock(ctx context.Context, shipmentID string, fn func(tx ShipmentTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sl := s.slot(shipmentID)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	sh, err := s.GetShipment(ctx, shipmentID)
	if err != nil {
		return err
	}

	tx := &memoryTx{
		store:       s,
		slot:        sl,
		shipment:    sh,
		openAlertID: sl.openAlertID,
		alerts:      make(map[string]domain.Alert),
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *MemoryStore) AppendRangeVersion(ctx context.Context, v domain.RangeVersion) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions = append(s.versions, v)
	return nil
}

func (s *MemoryStore) RangeVersions(ctx context.Context, scope domain.RangeScope, key string) ([]domain.RangeVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.RangeVersion
	for _, v := range s.versions {
		if v.Scope == scope && v.Key == key {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetAlert(ctx context.Context, id string) (domain.Alert, error) {
	if err := ctx.Err(); err != nil {
		return domain.Alert{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[id]
	if !ok {
		return domain.Alert{}, domain.NotFoundf("alert %s not found", id)
	}
	return a, nil
}

func (s *MemoryStore) AlertReadings(ctx context.Context, alertID string) ([]domain.TemperatureReading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.alerts[alertID]; !ok {
		return nil, domain.NotFoundf("alert %s not found", alertID)
	}
	ids := s.alertLinks[alertID]
	out := make([]domain.TemperatureReading, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.readings[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *MemoryStore) ListReadings(ctx context.Context, f domain.ReadingFilter) ([]domain.TemperatureReading, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	var matched []domain.TemperatureReading
	for _, r := range s.readings {
		if f.ShipmentID != "" && r.ShipmentID != f.ShipmentID {
			continue
		}
		if f.OrderNumber != "" && s.shipments[r.ShipmentID].OrderNumber != f.OrderNumber {
			continue
		}
		if f.Compliance != "" && r.Compliance != f.Compliance {
			continue
		}
		if f.Severity != "" && r.Severity != f.Severity {
			continue
		}
		if !containsFold(r.Location, f.Location) || !inWindow(r.Timestamp, f.Start, f.End) {
			continue
		}
		matched = append(matched, r)
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		var less bool
		switch f.SortBy {
		case domain.SortByTemperature:
			if a.Temperature == b.Temperature {
				return tieBreak(a.Timestamp, b.Timestamp, a.ID, b.ID)
			}
			less = a.Temperature < b.Temperature
		default:
			if a.Timestamp.Equal(b.Timestamp) {
				return tieBreak(a.Timestamp, b.Timestamp, a.ID, b.ID)
			}
			less = a.Timestamp.Before(b.Timestamp)
		}
		if f.Order == domain.SortAsc {
			return less
		}
		return !less
	})

	return paginate(matched, f.PageRequest), len(matched), nil
}

func (s *MemoryStore) ListAlerts(ctx context.Context, f domain.AlertFilter) ([]domain.Alert, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	var matched []domain.Alert
	for _, a := range s.alerts {
		if f.ShipmentID != "" && a.ShipmentID != f.ShipmentID {
			continue
		}
		if f.OrderNumber != "" && s.shipments[a.ShipmentID].OrderNumber != f.OrderNumber {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.Severity != "" && a.Severity != f.Severity {
			continue
		}
		if !containsFold(a.Location, f.Location) || !inWindow(a.OpenedAt, f.Start, f.End) {
			continue
		}
		matched = append(matched, a)
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		var less bool
		switch f.SortBy {
		case domain.SortBySeverity:
			if a.Severity == b.Severity {
				return tieBreak(a.OpenedAt, b.OpenedAt, a.ID, b.ID)
			}
			less = a.Severity.Rank() < b.Severity.Rank()
		default:
			if a.OpenedAt.Equal(b.OpenedAt) {
				return tieBreak(a.OpenedAt, b.OpenedAt, a.ID, b.ID)
			}
			less = a.OpenedAt.Before(b.OpenedAt)
		}
		if f.Order == domain.SortAsc {
			return less
		}
		return !less
	})

	return paginate(matched, f.PageRequest), len(matched), nil
}

// tieBreak keeps equal sort keys in a stable newest-first, then id order.
func tieBreak(at, bt time.Time, aID, bID string) bool {
	if !at.Equal(bt) {
		return at.After(bt)
	}
	return aID < bID
}

func containsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func inWindow(t time.Time, start, end *time.Time) bool {
	if start != nil && t.Before(*start) {
		return false
	}
	if end != nil && t.After(*end) {
		return false
	}
	return true
}

func paginate[T any](items []T, p domain.PageRequest) []T {
	start := p.Offset()
	if start < 0 || start >= len(items) {
		return []T{}
	}
	end := start + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// memoryTx buffers writes and applies them atomically on commit.
type memoryTx struct {
	store    *MemoryStore
	slot     *shipmentSlot
	shipment domain.Shipment

	openAlertID string
	status      *domain.ShipmentStatus
	readings    []domain.TemperatureReading
	alerts      map[string]domain.Alert
	links       [][2]string
}

func (tx *memoryTx) Shipment() domain.Shipment { return tx.shipment }

func (tx *memoryTx) SetShipmentStatus(ctx context.Context, status domain.ShipmentStatus, at time.Time) error {
	tx.status = &status
	tx.shipment.Status = status
	tx.shipment.UpdatedAt = at
	return ctx.Err()
}

func (tx *memoryTx) InsertReading(ctx context.Context, r domain.TemperatureReading) error {
	tx.readings = append(tx.readings, r)
	return ctx.Err()
}

func (tx *memoryTx) OpenAlert(ctx context.Context) (*domain.Alert, error) {
	if tx.openAlertID == "" {
		return nil, ctx.Err()
	}
	a, err := tx.GetAlert(ctx, tx.openAlertID)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (tx *memoryTx) GetAlert(ctx context.Context, alertID string) (domain.Alert, error) {
	if a, ok := tx.alerts[alertID]; ok {
		return a, nil
	}
	a, err := tx.store.GetAlert(ctx, alertID)
	if err != nil {
		return domain.Alert{}, err
	}
	if a.ShipmentID != tx.shipment.ID {
		return domain.Alert{}, domain.NotFoundf("alert %s not found for shipment %s", alertID, tx.shipment.ID)
	}
	return a, nil
}

func (tx *memoryTx) InsertAlert(ctx context.Context, a domain.Alert) error {
	if a.Status == domain.AlertPending {
		if tx.openAlertID != "" {
			return domain.Conflictf("shipment %s already has open alert %s", tx.shipment.ID, tx.openAlertID)
		}
		tx.openAlertID = a.ID
	}
	tx.alerts[a.ID] = a
	return ctx.Err()
}

func (tx *memoryTx) UpdateAlert(ctx context.Context, a domain.Alert) error {
	if _, err := tx.GetAlert(ctx, a.ID); err != nil {
		return err
	}
	if a.Status == domain.AlertResolved && tx.openAlertID == a.ID {
		tx.openAlertID = ""
	}
	tx.alerts[a.ID] = a
	return nil
}

func (tx *memoryTx) LinkReading(ctx context.Context, alertID, readingID string) error {
	tx.links = append(tx.links, [2]string{alertID, readingID})
	return ctx.Err()
}

func (tx *memoryTx) RangeVersions(ctx context.Context, scope domain.RangeScope, key string) ([]domain.RangeVersion, error) {
	return tx.store.RangeVersions(ctx, scope, key)
}

func (tx *memoryTx) commit() {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.status != nil {
		s.shipments[tx.shipment.ID] = tx.shipment
	}
	for _, r := range tx.readings {
		s.readings[r.ID] = r
	}
	for id, a := range tx.alerts {
		s.alerts[id] = a
	}
	for _, l := range tx.links {
		s.alertLinks[l[0]] = append(s.alertLinks[l[0]], l[1])
	}
	tx.slot.openAlertID = tx.openAlertID
}
