package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coldchain/compliance/internal/domain"
)

var base = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

func seedShipment(t *testing.T, s *MemoryStore, id, order string) {
	t.Helper()
	require.NoError(t, s.CreateShipment(context.Background(), domain.Shipment{
		ID: id, OrderNumber: order, Status: domain.ShipmentInTransit,
		ProductCategory: domain.CategoryChilled, CreatedAt: base, UpdatedAt: base,
	}))
}

func TestMemoryStore_CreateShipmentDuplicate(t *testing.T) {
	s := NewMemoryStore()
	seedShipment(t, s, "shp-1", "ORD-1")

	err := s.CreateShipment(context.Background(), domain.Shipment{ID: "shp-1"})
	assert.True(t, domain.IsKind(err, domain.KindConflict))
}

func TestMemoryStore_CreateShipmentWithOverride(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	v := domain.RangeVersion{ID: "v-1", Scope: domain.ScopeShipment, Key: "shp-1",
		Range: domain.ComplianceRange{Min: domain.Float(0), Max: domain.Float(10)}}

	require.NoError(t, s.CreateShipment(ctx, domain.Shipment{ID: "shp-1"}, v))
	err := s.CreateShipment(ctx, domain.Shipment{ID: "shp-1"}, domain.RangeVersion{ID: "v-2", Scope: domain.ScopeShipment, Key: "shp-1"})
	assert.True(t, domain.IsKind(err, domain.KindConflict))

	versions, err := s.RangeVersions(ctx, domain.ScopeShipment, "shp-1")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "v-1", versions[0].ID)
}

func TestMemoryStore_LockUnknownShipment(t *testing.T) {
	s := NewMemoryStore()

	err := s.WithShipmentLock(context.Background(), "ghost", func(tx ShipmentTx) error { return nil })
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestMemoryStore_RollbackOnError(t *testing.T) {
	s := NewMemoryStore()
	seedShipment(t, s, "shp-1", "ORD-1")
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.WithShipmentLock(ctx, "shp-1", func(tx ShipmentTx) error {
		require.NoError(t, tx.InsertReading(ctx, domain.TemperatureReading{ID: "r-1", ShipmentID: "shp-1", Timestamp: base}))
		require.NoError(t, tx.InsertAlert(ctx, domain.Alert{ID: "a-1", ShipmentID: "shp-1", Status: domain.AlertPending}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	items, total, err := s.ListReadings(ctx, domain.ReadingFilter{PageRequest: domain.PageRequest{Page: 1, Limit: 10}})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)

	err = s.WithShipmentLock(ctx, "shp-1", func(tx ShipmentTx) error {
		open, err := tx.OpenAlert(ctx)
		require.NoError(t, err)
		assert.Nil(t, open)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStore_SingleOpenAlertPerShipment(t *testing.T) {
	s := NewMemoryStore()
	seedShipment(t, s, "shp-1", "ORD-1")
	ctx := context.Background()

	require.NoError(t, s.WithShipmentLock(ctx, "shp-1", func(tx ShipmentTx) error {
		return tx.InsertAlert(ctx, domain.Alert{ID: "a-1", ShipmentID: "shp-1", Status: domain.AlertPending})
	}))

	err := s.WithShipmentLock(ctx, "shp-1", func(tx ShipmentTx) error {
		return tx.InsertAlert(ctx, domain.Alert{ID: "a-2", ShipmentID: "shp-1", Status: domain.AlertPending})
	})
	assert.True(t, domain.IsKind(err, domain.KindConflict))

	// resolving frees the slot
	require.NoError(t, s.WithShipmentLock(ctx, "shp-1", func(tx ShipmentTx) error {
		a, err := tx.GetAlert(ctx, "a-1")
		require.NoError(t, err)
		a.Status = domain.AlertResolved
		return tx.UpdateAlert(ctx, a)
	}))
	require.NoError(t, s.WithShipmentLock(ctx, "shp-1", func(tx ShipmentTx) error {
		return tx.InsertAlert(ctx, domain.Alert{ID: "a-2", ShipmentID: "shp-1", Status: domain.AlertPending})
	}))
}

func TestMemoryStore_LockSerializesSameShipment(t *testing.T) {
	s := NewMemoryStore()
	seedShipment(t, s, "shp-1", "ORD-1")
	ctx := context.Background()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		active int
		peak   int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.WithShipmentLock(ctx, "shp-1", func(tx ShipmentTx) error {
				mu.Lock()
				active++
				if active > peak {
					peak = active
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				active--
				mu.Unlock()
				return tx.InsertReading(ctx, domain.TemperatureReading{ID: fmt.Sprintf("r-%d", i), ShipmentID: "shp-1", Timestamp: base})
			})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, peak)
	_, total, err := s.ListReadings(ctx, domain.ReadingFilter{PageRequest: domain.PageRequest{Page: 1, Limit: 100}})
	require.NoError(t, err)
	assert.Equal(t, 20, total)
}

func TestMemoryStore_ListReadingsFiltersAndSort(t *testing.T) {
	s := NewMemoryStore()
	seedShipment(t, s, "shp-1", "ORD-1")
	seedShipment(t, s, "shp-2", "ORD-2")
	ctx := context.Background()

	insert := func(shipmentID, id string, offset time.Duration, temp float64, loc string) {
		require.NoError(t, s.WithShipmentLock(ctx, shipmentID, func(tx ShipmentTx) error {
			return tx.InsertReading(ctx, domain.TemperatureReading{
				ID: id, ShipmentID: shipmentID, Timestamp: base.Add(offset), Temperature: temp,
				Location: loc, Compliance: domain.Compliant,
			})
		}))
	}
	insert("shp-1", "r-1", 0, 4, "Warehouse North")
	insert("shp-1", "r-2", time.Hour, 5, "Highway 9")
	insert("shp-1", "r-3", 2*time.Hour, 3, "warehouse south")
	insert("shp-2", "r-4", 3*time.Hour, 2, "Port")

	items, total, err := s.ListReadings(ctx, domain.ReadingFilter{
		ShipmentID: "shp-1", PageRequest: domain.PageRequest{Page: 1, Limit: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"r-3", "r-2", "r-1"}, readingIDs(items))

	items, _, err = s.ListReadings(ctx, domain.ReadingFilter{
		OrderNumber: "ORD-1", Location: "WAREHOUSE", PageRequest: domain.PageRequest{Page: 1, Limit: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"r-3", "r-1"}, readingIDs(items))

	start, end := base.Add(time.Hour), base.Add(3*time.Hour)
	items, _, err = s.ListReadings(ctx, domain.ReadingFilter{
		Start: &start, End: &end, SortBy: domain.SortByTemperature, Order: domain.SortAsc,
		PageRequest: domain.PageRequest{Page: 1, Limit: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"r-4", "r-3", "r-2"}, readingIDs(items))
}

func TestMemoryStore_PageBeyondEnd(t *testing.T) {
	s := NewMemoryStore()
	seedShipment(t, s, "shp-1", "ORD-1")
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		i := i
		require.NoError(t, s.WithShipmentLock(ctx, "shp-1", func(tx ShipmentTx) error {
			return tx.InsertAlert(ctx, domain.Alert{
				ID: fmt.Sprintf("a-%02d", i), ShipmentID: "shp-1", Status: domain.AlertResolved,
				Severity: domain.SeverityLow, OpenedAt: base.Add(time.Duration(i) * time.Minute),
			})
		}))
	}

	items, total, err := s.ListAlerts(ctx, domain.AlertFilter{PageRequest: domain.PageRequest{Page: 3, Limit: 10}})
	require.NoError(t, err)
	assert.Equal(t, 15, total)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	items, _, err = s.ListAlerts(ctx, domain.AlertFilter{PageRequest: domain.PageRequest{Page: 2, Limit: 10}})
	require.NoError(t, err)
	assert.Len(t, items, 5)
	assert.Equal(t, "a-04", items[0].ID)
}

func TestMemoryStore_RangeVersionsByKey(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.AppendRangeVersion(ctx, domain.RangeVersion{ID: "v1", Scope: domain.ScopeCategory, Key: "frozen"}))
	require.NoError(t, s.AppendRangeVersion(ctx, domain.RangeVersion{ID: "v2", Scope: domain.ScopeShipment, Key: "frozen"}))
	require.NoError(t, s.AppendRangeVersion(ctx, domain.RangeVersion{ID: "v3", Scope: domain.ScopeCategory, Key: "frozen"}))

	got, err := s.RangeVersions(ctx, domain.ScopeCategory, "frozen")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "v1", got[0].ID)
	assert.Equal(t, "v3", got[1].ID)
}

func readingIDs(items []domain.TemperatureReading) []string {
	out := make([]string, len(items))
	for i, r := range items {
		out[i] = r.ID
	}
	return out
}
