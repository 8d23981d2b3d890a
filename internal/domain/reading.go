package domain

import "time"

type ReadingSource string

const (
	SourceManual ReadingSource = "manual"
	SourceDevice ReadingSource = "device"
)

type Compliance string

const (
	Compliant   Compliance = "compliant"
	Violation   Compliance = "violation"
	Unevaluated Compliance = "unevaluated"
)

func (c Compliance) Valid() bool {
	return c == Compliant || c == Violation || c == Unevaluated
}

// TemperatureReading is immutable once stored. The evaluation outcome is
// fixed at insert time against the range active at Timestamp.
type TemperatureReading struct {
	ID          string        `json:"id"`
	ShipmentID  string        `json:"shipmentId"`
	Timestamp   time.Time     `json:"timestamp"`
	ReceivedAt  time.Time     `json:"receivedAt"`
	Temperature float64       `json:"temperature"`
	Humidity    *float64      `json:"humidity,omitempty"`
	Location    string        `json:"location,omitempty"`
	Note        string        `json:"note,omitempty"`
	Source      ReadingSource `json:"source"`

	Compliance Compliance `json:"compliance"`
	Severity   Severity   `json:"severity,omitempty"`
	AlertID    string     `json:"alertId,omitempty"`
}

// ReadingInput is what callers submit. Temperature is a pointer so an
// omitted value can be told apart from 0 °C.
type ReadingInput struct {
	ShipmentID  string        `json:"shipmentId"`
	Temperature *float64      `json:"temperature"`
	Humidity    *float64      `json:"humidity,omitempty"`
	Location    string        `json:"location,omitempty"`
	Note        string        `json:"note,omitempty"`
	Timestamp   *time.Time    `json:"timestamp,omitempty"`
	Source      ReadingSource `json:"-"`
}

// IngestResult is returned to the submitter in the same request.
type IngestResult struct {
	ReadingID   string     `json:"readingId"`
	Compliance  Compliance `json:"compliance"`
	Severity    Severity   `json:"severity,omitempty"`
	AlertID     string     `json:"alertId,omitempty"`
	AlertOpened bool       `json:"alertOpened"`
	Warning     string     `json:"warning,omitempty"`
}
