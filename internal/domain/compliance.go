package domain

import (
	"math"
	"time"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

var severityRank = map[Severity]int{
	SeverityLow:    1,
	SeverityMedium: 2,
	SeverityHigh:   3,
}

func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

func (s Severity) Rank() int {
	return severityRank[s]
}

// MaxSeverity returns the higher of two severities.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// ComplianceRange is one version of an acceptable band. A nil bound is
// unbounded on that side.
type ComplianceRange struct {
	Min           *float64  `json:"min"`
	Max           *float64  `json:"max"`
	EffectiveFrom time.Time `json:"effectiveFrom"`
}

func (r ComplianceRange) Validate() error {
	if r.Min != nil && (math.IsNaN(*r.Min) || math.IsInf(*r.Min, 0)) {
		return Validationf("range min must be a finite number")
	}
	if r.Max != nil && (math.IsNaN(*r.Max) || math.IsInf(*r.Max, 0)) {
		return Validationf("range max must be a finite number")
	}
	if r.Min != nil && r.Max != nil && *r.Max < *r.Min {
		return Validationf("range max %.2f is below min %.2f", *r.Max, *r.Min)
	}
	return nil
}

// Width is +Inf when either side is unbounded.
func (r ComplianceRange) Width() float64 {
	if r.Min == nil || r.Max == nil {
		return math.Inf(1)
	}
	return *r.Max - *r.Min
}

func (r ComplianceRange) Contains(t float64) bool {
	if r.Min != nil && t < *r.Min {
		return false
	}
	if r.Max != nil && t > *r.Max {
		return false
	}
	return true
}

// Excursion is the distance from t to the bound it violates, 0 when inside.
func (r ComplianceRange) Excursion(t float64) float64 {
	if r.Min != nil && t < *r.Min {
		return *r.Min - t
	}
	if r.Max != nil && t > *r.Max {
		return t - *r.Max
	}
	return 0
}

type RangeScope string

const (
	ScopeShipment RangeScope = "shipment"
	ScopeCategory RangeScope = "category"
)

// RangeVersion is an append-only record; the active range for a key at
// time t is the version with the latest EffectiveFrom not after t.
type RangeVersion struct {
	ID        string          `json:"id"`
	Scope     RangeScope      `json:"scope"`
	Key       string          `json:"key"`
	Range     ComplianceRange `json:"range"`
	CreatedBy string          `json:"createdBy,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ActiveVersion picks the version in effect at t.
func ActiveVersion(versions []RangeVersion, at time.Time) (RangeVersion, bool) {
	var (
		best  RangeVersion
		found bool
	)
	for _, v := range versions {
		if v.Range.EffectiveFrom.After(at) {
			continue
		}
		if !found || !v.Range.EffectiveFrom.Before(best.Range.EffectiveFrom) {
			best = v
			found = true
		}
	}
	return best, found
}

// Verdict is the evaluator's output for one reading.
type Verdict struct {
	Compliance Compliance
	Severity   Severity
	Delta      float64
}

// Float is a small helper for building optional bounds.
func Float(v float64) *float64 {
	return &v
}

// RangeInput is a requested new range version. A nil EffectiveFrom means
// the version takes effect immediately.
type RangeInput struct {
	Min           *float64   `json:"min"`
	Max           *float64   `json:"max"`
	EffectiveFrom *time.Time `json:"effectiveFrom,omitempty"`
}
