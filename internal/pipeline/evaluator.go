package pipeline

import (
	"math"

	"coldchain/compliance/internal/domain"
)

// Thresholds tier an excursion by its size relative to the band width and
// by an absolute floor in °C. Either condition is enough for a tier.
type Thresholds struct {
	HighRatio   float64
	HighAbs     float64
	MediumRatio float64
	MediumAbs   float64
}

var DefaultThresholds = Thresholds{
	HighRatio:   0.5,
	HighAbs:     3,
	MediumRatio: 0.15,
	MediumAbs:   1,
}

// tolerance absorbs float noise so values on a boundary land in the
// higher tier.
const tolerance = 1e-9

type Evaluator struct {
	thresholds Thresholds
}

func NewEvaluator(t Thresholds) *Evaluator {
	return &Evaluator{thresholds: t}
}

func (e *Evaluator) Evaluate(temperature float64, rng domain.ComplianceRange) domain.Verdict {
	if rng.Contains(temperature) {
		return domain.Verdict{Compliance: domain.Compliant}
	}
	delta := rng.Excursion(temperature)
	return domain.Verdict{
		Compliance: domain.Violation,
		Severity:   e.Severity(delta, rng.Width()),
		Delta:      delta,
	}
}

// Severity classifies an excursion of delta °C from a band of the given
// width. An unbounded band only ever meets the absolute floors.
func (e *Evaluator) Severity(delta, width float64) domain.Severity {
	t := e.thresholds
	switch {
	case atLeast(delta, t.HighRatio*width) || atLeast(delta, t.HighAbs):
		return domain.SeverityHigh
	case atLeast(delta, t.MediumRatio*width) || atLeast(delta, t.MediumAbs):
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

func atLeast(v, limit float64) bool {
	if math.IsInf(limit, 1) {
		return false
	}
	return v >= limit-tolerance
}
