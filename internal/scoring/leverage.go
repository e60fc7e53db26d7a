package scoring

import (
	"fmt"
	"math"
	"sort"

	"scorecard/internal/strategy"
)

// CompositeMode selects how a KPI's organization-wide weight is derived.
type CompositeMode string

const (
	// CompositeDirect uses the KPI weight alone.
	CompositeDirect CompositeMode = "direct"
	// CompositePath multiplies the KPI weight by every ancestor objective
	// weight and the pillar weight.
	CompositePath CompositeMode = "path"
)

// DefaultImprovementStep is the achievement gain, in points, used for the
// impact estimate.
const DefaultImprovementStep = 10.0

// ParseCompositeMode validates a mode name. Empty means direct.
func ParseCompositeMode(s string) (CompositeMode, error) {
	switch CompositeMode(s) {
	case "", CompositeDirect:
		return CompositeDirect, nil
	case CompositePath:
		return CompositePath, nil
	}
	return "", fmt.Errorf("unknown composite weight mode %q", s)
}

// LeverageOptions tunes the leverage ranking.
type LeverageOptions struct {
	Mode            CompositeMode
	ImprovementStep float64
}

// LeverageEntry is one ranked KPI.
type LeverageEntry struct {
	KPICode         string   `json:"kpi_code"`
	KPIName         string   `json:"kpi_name,omitempty"`
	ObjectiveCode   string   `json:"objective_code"`
	PillarCode      string   `json:"pillar_code,omitempty"`
	CompositeWeight float64  `json:"composite_weight"`
	Achievement     *float64 `json:"achievement"`
	Gap             float64  `json:"gap"`
	Leverage        float64  `json:"leverage"`
	ImpactOf10Pct   float64  `json:"impact_of_10_pct"`
}

// Leverage ranks active KPIs by compositeWeight*gap, highest first. KPIs
// whose objective is missing, inactive or operational are skipped. A KPI
// with no valid achievement has a gap of 100.
func Leverage(h *Hierarchy, achievements map[string]*float64, opts LeverageOptions) []LeverageEntry {
	step := opts.ImprovementStep
	if step == 0 {
		step = DefaultImprovementStep
	}
	snap := h.Snapshot()

	var out []LeverageEntry
	for _, k := range snap.KPIs() {
		if !k.Status.Active() {
			continue
		}
		o, ok := snap.Objective(k.ObjectiveCode)
		if !ok || !contributes(o) {
			continue
		}

		weight := compositeWeight(h, k, o, opts.Mode)
		entry := LeverageEntry{
			KPICode:         k.Code,
			KPIName:         k.Name,
			ObjectiveCode:   o.Code,
			CompositeWeight: weight,
			Gap:             100,
		}
		entry.PillarCode, _ = h.PillarFor(o.Code)
		if a := achievements[k.Code]; a != nil && !math.IsNaN(*a) {
			entry.Achievement = ptr(*a)
			entry.Gap = math.Max(0, 100-*a)
		}
		entry.Leverage = weight * entry.Gap
		entry.ImpactOf10Pct = weight * step
		out = append(out, entry)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Leverage > out[j].Leverage
	})
	return out
}

func compositeWeight(h *Hierarchy, k strategy.KPI, o strategy.Objective, mode CompositeMode) float64 {
	w := k.Weight / 100
	if mode != CompositePath {
		return w
	}
	w *= o.Weight / 100
	for _, a := range h.Ancestors(o.Code) {
		w *= a.Weight / 100
	}
	if pillarCode, ok := h.PillarFor(o.Code); ok {
		p, _ := h.Snapshot().Pillar(pillarCode)
		w *= p.Weight / 100
	}
	return w
}
