package domain

import (
	"math"
	"time"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

const (
	SortByTimestamp   = "timestamp"
	SortByTemperature = "temperature"
	SortBySeverity    = "severity"
)

type PageRequest struct {
	Page  int
	Limit int
}

// Offset assumes a normalized request. It saturates at math.MaxInt.
func (p PageRequest) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

type ReadingFilter struct {
	ShipmentID  string
	OrderNumber string
	Location    string
	Compliance  Compliance
	Severity    Severity
	Start       *time.Time
	End         *time.Time
	SortBy      string
	Order       SortOrder
	PageRequest
}

type AlertFilter struct {
	ShipmentID  string
	OrderNumber string
	Status      AlertStatus
	Severity    Severity
	Location    string
	Start       *time.Time
	End         *time.Time
	SortBy      string
	Order       SortOrder
	PageRequest
}

type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}
