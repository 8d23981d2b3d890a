package store

import (
	"context"
	"time"

	"coldchain/compliance/internal/domain"
)

// Store is the shared persistent state of the engine. All mutation of
// readings and alerts goes through WithShipmentLock so that work for one
// shipment is serialized while different shipments proceed in parallel.
type Store interface {
	// CreateShipment stores the shipment together with its initial range
	// overrides. Either all of them are written or none is.
	CreateShipment(ctx context.Context, s domain.Shipment, overrides ...domain.RangeVersion) error
	GetShipment(ctx context.Context, id string) (domain.Shipment, error)

	// WithShipmentLock runs fn while holding the shipment's exclusive scope.
	// Writes made through tx become visible only if fn returns nil.
	WithShipmentLock(ctx context.Context, shipmentID string, fn func(tx ShipmentTx) error) error

	AppendRangeVersion(ctx context.Context, v domain.RangeVersion) error
	RangeVersions(ctx context.Context, scope domain.RangeScope, key string) ([]domain.RangeVersion, error)

	GetAlert(ctx context.Context, id string) (domain.Alert, error)
	AlertReadings(ctx context.Context, alertID string) ([]domain.TemperatureReading, error)

	ListReadings(ctx context.Context, f domain.ReadingFilter) ([]domain.TemperatureReading, int, error)
	ListAlerts(ctx context.Context, f domain.AlertFilter) ([]domain.Alert, int, error)

	Ping(ctx context.Context) error
	Close()
}

// ShipmentTx is the view of the store inside a shipment's exclusive scope.
type ShipmentTx interface {
	// Shipment is the snapshot loaded when the scope was acquired.
	Shipment() domain.Shipment
	SetShipmentStatus(ctx context.Context, status domain.ShipmentStatus, at time.Time) error

	InsertReading(ctx context.Context, r domain.TemperatureReading) error
	OpenAlert(ctx context.Context) (*domain.Alert, error)
	GetAlert(ctx context.Context, alertID string) (domain.Alert, error)
	InsertAlert(ctx context.Context, a domain.Alert) error
	UpdateAlert(ctx context.Context, a domain.Alert) error
	LinkReading(ctx context.Context, alertID, readingID string) error

	// RangeVersions reads range versions on the scope's own connection.
	RangeVersions(ctx context.Context, scope domain.RangeScope, key string) ([]domain.RangeVersion, error)
}
