package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"coldchain/compliance/internal/domain"
	"coldchain/compliance/internal/store"
)

var testNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

type recordingSink struct {
	mu       sync.Mutex
	readings []domain.TemperatureReading
	events   []domain.AlertEvent
}

func (s *recordingSink) DispatchReading(r domain.TemperatureReading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings = append(s.readings, r)
}

func (s *recordingSink) DispatchAlert(e domain.AlertEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) eventTypes() []domain.AlertEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AlertEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	store     *store.MemoryStore
	sink      *recordingSink
	resolver  *RangeResolver
	alerts    *AlertManager
	ingestor  *Ingestor
	shipments *ShipmentService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mem := store.NewMemoryStore()
	return newHarnessOn(t, mem, mem)
}

// newHarnessOn wires the services to st, which wraps mem.
func newHarnessOn(t *testing.T, mem *store.MemoryStore, st store.Store) *harness {
	t.Helper()
	logger := zap.NewNop()
	sink := &recordingSink{}
	clock := func() time.Time { return testNow }

	resolver := NewRangeResolver(st, time.Minute, logger)
	resolver.now = clock
	alerts := NewAlertManager(st, sink, logger)
	alerts.now = clock
	ingestor := NewIngestor(st, resolver, NewEvaluator(DefaultThresholds), alerts, sink, 5*time.Minute, logger)
	ingestor.now = clock
	shipments := NewShipmentService(st, resolver, logger)
	shipments.now = clock

	return &harness{
		store:     mem,
		sink:      sink,
		resolver:  resolver,
		alerts:    alerts,
		ingestor:  ingestor,
		shipments: shipments,
	}
}

func (h *harness) register(t *testing.T, id string, category domain.ProductCategory, rng *domain.RangeInput) domain.Shipment {
	t.Helper()
	sh, err := h.shipments.Register(context.Background(), ShipmentRegistration{
		ID:              id,
		OrderNumber:     "ORD-" + id,
		Status:          domain.ShipmentInTransit,
		ProductCategory: category,
		Range:           rng,
	}, "ops@example.com")
	require.NoError(t, err)
	return sh
}

// ingestAt submits a reading minutes after testNow minus one hour so
// successive readings are ordered.
func (h *harness) ingestAt(t *testing.T, shipmentID string, temp float64, minute int) domain.IngestResult {
	t.Helper()
	ts := testNow.Add(-time.Hour).Add(time.Duration(minute) * time.Minute)
	res, err := h.ingestor.Ingest(context.Background(), domain.ReadingInput{
		ShipmentID:  shipmentID,
		Temperature: domain.Float(temp),
		Timestamp:   &ts,
		Location:    "Rotterdam DC",
		Source:      domain.SourceDevice,
	})
	require.NoError(t, err)
	return res
}

func rangeInput(min, max float64) *domain.RangeInput {
	return &domain.RangeInput{Min: domain.Float(min), Max: domain.Float(max)}
}

// faultyStore injects storage failures and records range reads made on the
// store itself while a shipment scope is held.
type faultyStore struct {
	*store.MemoryStore

	mu           sync.Mutex
	failCreates  int
	failAppends  bool
	scopesHeld   int
	readsInScope int
}

func (s *faultyStore) CreateShipment(ctx context.Context, sh domain.Shipment, overrides ...domain.RangeVersion) error {
	s.mu.Lock()
	if s.failCreates > 0 {
		s.failCreates--
		s.mu.Unlock()
		return domain.StorageErr("insert shipment", errors.New("connection reset"))
	}
	s.mu.Unlock()
	return s.MemoryStore.CreateShipment(ctx, sh, overrides...)
}

func (s *faultyStore) AppendRangeVersion(ctx context.Context, v domain.RangeVersion) error {
	if s.failAppends {
		return domain.StorageErr("insert range version", errors.New("connection reset"))
	}
	return s.MemoryStore.AppendRangeVersion(ctx, v)
}

func (s *faultyStore) WithShipmentLock(ctx context.Context, shipmentID string, fn func(tx store.ShipmentTx) error) error {
	return s.MemoryStore.WithShipmentLock(ctx, shipmentID, func(tx store.ShipmentTx) error {
		s.mu.Lock()
		s.scopesHeld++
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			s.scopesHeld--
			s.mu.Unlock()
		}()
		return fn(tx)
	})
}

func (s *faultyStore) RangeVersions(ctx context.Context, scope domain.RangeScope, key string) ([]domain.RangeVersion, error) {
	s.mu.Lock()
	if s.scopesHeld > 0 {
		s.readsInScope++
	}
	s.mu.Unlock()
	return s.MemoryStore.RangeVersions(ctx, scope, key)
}
