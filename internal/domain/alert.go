package domain

import "time"

type AlertStatus string

const (
	AlertPending  AlertStatus = "pending"
	AlertResolved AlertStatus = "resolved"
)

func (s AlertStatus) Valid() bool {
	return s == AlertPending || s == AlertResolved
}

type Alert struct {
	ID                 string      `json:"id"`
	ShipmentID         string      `json:"shipmentId"`
	TriggerReadingID   string      `json:"triggerReadingId"`
	TriggerTemperature float64     `json:"triggerTemperature"`
	Location           string      `json:"location,omitempty"`
	Severity           Severity    `json:"severity"`
	Status             AlertStatus `json:"status"`
	OpenedAt           time.Time   `json:"openedAt"`
	LastViolationAt    time.Time   `json:"lastViolationAt"`
	ViolationCount     int         `json:"violationCount"`
	ResolvedAt         *time.Time  `json:"resolvedAt,omitempty"`
	ResolvedBy         *string     `json:"resolvedBy,omitempty"`
	ResolutionNote     *string     `json:"resolutionNote,omitempty"`
}

type AlertEventType string

const (
	AlertOpened    AlertEventType = "alert.opened"
	AlertEscalated AlertEventType = "alert.escalated"
	AlertUpdated   AlertEventType = "alert.updated"
	AlertClosed    AlertEventType = "alert.resolved"
)

// AlertEvent is published after the owning transaction commits.
type AlertEvent struct {
	Type       AlertEventType `json:"type"`
	Alert      Alert          `json:"alert"`
	ReadingID  string         `json:"readingId,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// ResolveInput is the operator acknowledgment of an alert.
type ResolveInput struct {
	AlertID    string `json:"-"`
	ResolvedBy string `json:"resolvedBy"`
	Note       string `json:"note"`
}

type AlertDetail struct {
	Alert    Alert                `json:"alert"`
	Readings []TemperatureReading `json:"readings"`
}
