package domain

import "time"

type ShipmentStatus string

const (
	ShipmentPending    ShipmentStatus = "pending"
	ShipmentProcessing ShipmentStatus = "processing"
	ShipmentInTransit  ShipmentStatus = "in-transit"
	ShipmentDelivered  ShipmentStatus = "delivered"
	ShipmentCancelled  ShipmentStatus = "cancelled"
)

// shipmentStage orders the forward-only lifecycle. Cancelled sits outside it.
var shipmentStage = map[ShipmentStatus]int{
	ShipmentPending:    0,
	ShipmentProcessing: 1,
	ShipmentInTransit:  2,
	ShipmentDelivered:  3,
}

func (s ShipmentStatus) Valid() bool {
	if s == ShipmentCancelled {
		return true
	}
	_, ok := shipmentStage[s]
	return ok
}

func (s ShipmentStatus) Terminal() bool {
	return s == ShipmentDelivered || s == ShipmentCancelled
}

// AcceptsReadings reports whether readings may be recorded against a
// shipment in this status.
func (s ShipmentStatus) AcceptsReadings() bool {
	return s == ShipmentProcessing || s == ShipmentInTransit
}

type ProductCategory string

const (
	CategoryFrozen  ProductCategory = "frozen"
	CategoryChilled ProductCategory = "chilled"
	CategoryAmbient ProductCategory = "ambient"
)

func (c ProductCategory) Valid() bool {
	switch c {
	case CategoryFrozen, CategoryChilled, CategoryAmbient:
		return true
	}
	return false
}

type Shipment struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"orderNumber"`
	Status          ShipmentStatus  `json:"status"`
	VehicleID       string          `json:"vehicleId,omitempty"`
	ProductCategory ProductCategory `json:"productCategory,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// CheckTransition validates a status change. Moving to the current status
// is allowed and treated as a no-op by callers.
func (s Shipment) CheckTransition(next ShipmentStatus) error {
	if !next.Valid() {
		return Validationf("unknown shipment status %q", next)
	}
	if next == s.Status {
		return nil
	}
	if s.Status.Terminal() {
		return Validationf("shipment %s is %s and can no longer change status", s.ID, s.Status)
	}
	if next == ShipmentCancelled {
		return nil
	}
	if shipmentStage[next] < shipmentStage[s.Status] {
		return Validationf("shipment %s cannot move from %s back to %s", s.ID, s.Status, next)
	}
	return nil
}
