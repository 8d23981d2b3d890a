package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"coldchain/compliance/internal/domain"
)

func band(min, max float64) domain.ComplianceRange {
	return domain.ComplianceRange{Min: domain.Float(min), Max: domain.Float(max)}
}

func TestEvaluator_Evaluate(t *testing.T) {
	e := NewEvaluator(DefaultThresholds)

	cases := []struct {
		name       string
		rng        domain.ComplianceRange
		temp       float64
		compliance domain.Compliance
		severity   domain.Severity
	}{
		{"frozen in range", band(-20, -18), -19, domain.Compliant, ""},
		{"frozen on lower bound", band(-20, -18), -20, domain.Compliant, ""},
		{"frozen on upper bound", band(-20, -18), -18, domain.Compliant, ""},
		{"frozen 4 above is high", band(-20, -18), -14, domain.Violation, domain.SeverityHigh},
		{"frozen exactly half width is high", band(-20, -18), -17, domain.Violation, domain.SeverityHigh},
		{"frozen 0.2 above is low", band(-20, -18), -17.8, domain.Violation, domain.SeverityLow},
		{"frozen 0.3 above hits medium ratio", band(-20, -18), -17.7, domain.Violation, domain.SeverityMedium},
		{"chilled 6.8 is medium", band(2, 6), 6.8, domain.Violation, domain.SeverityMedium},
		{"chilled 6.5 is low", band(2, 6), 6.5, domain.Violation, domain.SeverityLow},
		{"chilled 1 below is medium", band(2, 6), 1, domain.Violation, domain.SeverityMedium},
		{"chilled 2 above is high", band(2, 6), 8, domain.Violation, domain.SeverityHigh},
		{"wide band uses absolute floor for high", band(0, 30), 33, domain.Violation, domain.SeverityHigh},
		{"wide band uses absolute floor for medium", band(0, 30), 31, domain.Violation, domain.SeverityMedium},
		{"wide band small excursion is low", band(0, 30), 30.5, domain.Violation, domain.SeverityLow},
		{"unbounded always compliant", domain.ComplianceRange{}, 80, domain.Compliant, ""},
		{"max only, 3 above is high", domain.ComplianceRange{Max: domain.Float(8)}, 11, domain.Violation, domain.SeverityHigh},
		{"max only, 2 above is medium", domain.ComplianceRange{Max: domain.Float(8)}, 10, domain.Violation, domain.SeverityMedium},
		{"min only, 0.5 below is low", domain.ComplianceRange{Min: domain.Float(-25)}, -25.5, domain.Violation, domain.SeverityLow},
		{"zero width band", band(4, 4), 4.01, domain.Violation, domain.SeverityHigh},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v := e.Evaluate(c.temp, c.rng)
			assert.Equal(t, c.compliance, v.Compliance)
			assert.Equal(t, c.severity, v.Severity)
			if c.compliance == domain.Compliant {
				assert.Zero(t, v.Delta)
			} else {
				assert.Greater(t, v.Delta, 0.0)
			}
		})
	}
}

func TestEvaluator_CustomThresholds(t *testing.T) {
	e := NewEvaluator(Thresholds{HighRatio: 1, HighAbs: 10, MediumRatio: 0.5, MediumAbs: 5})

	assert.Equal(t, domain.SeverityLow, e.Severity(0.8, 4))
	assert.Equal(t, domain.SeverityMedium, e.Severity(2, 4))
	assert.Equal(t, domain.SeverityHigh, e.Severity(4, 4))
}
