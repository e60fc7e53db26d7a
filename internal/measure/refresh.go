package measure

import (
	"math"
	"reflect"

	"scorecard/internal/formula"
	"scorecard/internal/strategy"
)

// Refresh drops the entries of c that were computed from prev and no longer
// hold for next, and returns how many were removed. A measure whose
// parameter values changed is dropped together with its dependents in g; a
// global value change drops the affected periods. Any change to a measure
// definition empties the cache, since g itself may differ. A nil prev
// empties the cache.
func (c *Cache) Refresh(prev, next *strategy.Snapshot, g *Graph) int {
	if c == nil {
		return 0
	}
	if prev == nil || !sameDefinitions(prev, next) {
		n := c.Len()
		c.Reset()
		return n
	}

	periods := unionPeriods(prev, next)
	removed := 0
	for _, m := range next.Measures() {
		if parametersChanged(prev, next, m, periods) {
			removed += c.Invalidate(m.Code, g)
		}
	}

	globals := make(map[string]struct{})
	for _, snap := range []*strategy.Snapshot{prev, next} {
		for _, gv := range snap.GlobalValues() {
			globals[gv.Code] = struct{}{}
		}
	}
	for _, period := range periods {
		for code := range globals {
			a, okA := prev.GlobalValueAt(code, period)
			b, okB := next.GlobalValueAt(code, period)
			if !sameValue(a, okA, b, okB) {
				removed += c.InvalidatePeriod(period)
				break
			}
		}
	}
	return removed
}

func sameDefinitions(prev, next *strategy.Snapshot) bool {
	if len(prev.Measures()) != len(next.Measures()) {
		return false
	}
	for _, m := range next.Measures() {
		old, ok := prev.Measure(m.Code)
		if !ok || !reflect.DeepEqual(old.Tokens(), m.Tokens()) {
			return false
		}
	}
	return true
}

// parametersChanged compares every dataPoint m reads, in every period
// either snapshot has data for.
func parametersChanged(prev, next *strategy.Snapshot, m strategy.Measure, periods []string) bool {
	for _, tok := range m.Tokens() {
		if tok.Kind != formula.KindReference || tok.Ref.Type != formula.RefDataPoint {
			continue
		}
		for _, period := range periods {
			a, okA := prev.ParameterValue(m.Code, tok.Ref.Code, period)
			b, okB := next.ParameterValue(m.Code, tok.Ref.Code, period)
			if !sameValue(a, okA, b, okB) {
				return true
			}
		}
	}
	return false
}

func sameValue(a float64, okA bool, b float64, okB bool) bool {
	if okA != okB {
		return false
	}
	if !okA {
		return true
	}
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

func unionPeriods(prev, next *strategy.Snapshot) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, snap := range []*strategy.Snapshot{prev, next} {
		for _, p := range snap.Periods() {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}
