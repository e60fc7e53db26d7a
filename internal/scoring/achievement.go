package scoring

import (
	"math"

	"scorecard/internal/strategy"
)

// Default achievement caps, in percent.
const (
	DefaultOrgCap      = 200.0
	DefaultEmployeeCap = 200.0
)

// Achievement converts a calculated value into a percentage of target.
// Positive polarity is calc/target, negative polarity is target/calc. The
// result is capped from above at maxPct and has no floor. The bool is false
// when there is no calculated value, no finite target, or the divisor is
// zero. A NaN calculated value yields NaN.
func Achievement(calc float64, hasCalc bool, target *float64, polarity strategy.Polarity, maxPct float64) (float64, bool) {
	if !hasCalc || target == nil || math.IsNaN(*target) || math.IsInf(*target, 0) {
		return 0, false
	}
	if math.IsNaN(calc) {
		return math.NaN(), true
	}

	var pct float64
	switch polarity {
	case strategy.PolarityNegative:
		if calc == 0 {
			return 0, false
		}
		pct = *target / calc * 100
	default:
		if *target == 0 {
			return 0, false
		}
		pct = calc / *target * 100
	}

	if pct > maxPct {
		pct = maxPct
	}
	return pct, true
}

// capFor returns the cap that applies to a KPI kind.
func (o Options) capFor(kind strategy.KPIKind) float64 {
	if kind == strategy.KindEmployee {
		return o.EmployeeCap
	}
	return o.OrgCap
}
