package scoring

import (
	"sort"

	"scorecard/internal/strategy"
)

// Hierarchy composes KPI achievements into objective, business unit,
// pillar and organization scores.
type Hierarchy struct {
	snap   *strategy.Snapshot
	cyclic map[string]struct{}
}

// NewHierarchy indexes the parent chains of snap.
func NewHierarchy(snap *strategy.Snapshot) *Hierarchy {
	h := &Hierarchy{snap: snap, cyclic: make(map[string]struct{})}
	for _, o := range snap.Objectives() {
		if snap.InParentCycle(o.Code) {
			h.cyclic[o.Code] = struct{}{}
		}
	}
	return h
}

// Snapshot returns the snapshot the hierarchy was built from.
func (h *Hierarchy) Snapshot() *strategy.Snapshot {
	return h.snap
}

// Ancestors returns the parent chain of code, nearest first, stopping at
// a root or when the chain loops.
func (h *Hierarchy) Ancestors(code string) []strategy.Objective {
	var out []strategy.Objective
	visited := map[string]struct{}{code: {}}
	current := code
	for {
		parent, ok := h.snap.ParentObjective(current)
		if !ok {
			return out
		}
		if _, seen := visited[parent.Code]; seen {
			return out
		}
		visited[parent.Code] = struct{}{}
		out = append(out, parent)
		current = parent.Code
	}
}

// PillarFor walks up from an objective to the pillar of its L1 ancestor.
func (h *Hierarchy) PillarFor(objectiveCode string) (string, bool) {
	o, ok := h.snap.Objective(objectiveCode)
	if !ok {
		return "", false
	}
	chain := append([]strategy.Objective{o}, h.Ancestors(objectiveCode)...)
	for _, node := range chain {
		if node.Level != strategy.LevelL1 {
			continue
		}
		if _, ok := h.snap.Pillar(node.PillarCode); !ok {
			return "", false
		}
		return node.PillarCode, true
	}
	return "", false
}

// contributes reports whether an objective takes part in its parent's
// rollup. Operational and inactive objectives are scored but not rolled up.
func contributes(o strategy.Objective) bool {
	return o.Status.Active() && !o.Operational
}

// ObjectiveScores scores every objective from its active KPIs and its
// contributing child objectives. Children on a parent cycle are left out of
// each other's rollups.
func (h *Hierarchy) ObjectiveScores(achievements map[string]*float64) map[string]*float64 {
	scores := make(map[string]*float64)
	done := make(map[string]bool)

	var score func(code string) *float64
	score = func(code string) *float64 {
		if done[code] {
			return scores[code]
		}
		var items []Item
		for _, kpiCode := range h.snap.KPIsFor(code) {
			k, _ := h.snap.KPI(kpiCode)
			if !k.Status.Active() {
				continue
			}
			items = append(items, Item{Code: k.Code, Weight: k.Weight, Score: achievements[k.Code]})
		}
		for _, childCode := range h.snap.ObjectivesUnder(code) {
			if _, loop := h.cyclic[childCode]; loop {
				continue
			}
			child, _ := h.snap.Objective(childCode)
			if !contributes(child) {
				continue
			}
			items = append(items, Item{Code: child.Code, Weight: child.Weight, Score: score(childCode)})
		}
		scores[code] = rollupPtr(items)
		done[code] = true
		return scores[code]
	}

	for _, o := range h.snap.Objectives() {
		score(o.Code)
	}
	return scores
}

// PillarScores rolls the contributing L1 objectives of each pillar up by
// objective weight.
func (h *Hierarchy) PillarScores(objectiveScores map[string]*float64) map[string]*float64 {
	items := make(map[string][]Item)
	for _, o := range h.snap.Objectives() {
		if o.Level != strategy.LevelL1 || !contributes(o) {
			continue
		}
		items[o.PillarCode] = append(items[o.PillarCode], Item{Code: o.Code, Weight: o.Weight, Score: objectiveScores[o.Code]})
	}

	out := make(map[string]*float64)
	for _, p := range h.snap.Pillars() {
		out[p.Code] = rollupPtr(items[p.Code])
	}
	return out
}

// OrganizationScore rolls the active pillars up by pillar weight.
func (h *Hierarchy) OrganizationScore(pillarScores map[string]*float64) *float64 {
	var items []Item
	for _, p := range h.snap.Pillars() {
		if !p.Status.Active() {
			continue
		}
		items = append(items, Item{Code: p.Code, Weight: p.Weight, Score: pillarScores[p.Code]})
	}
	return rollupPtr(items)
}

// UnitScore is the score of one business unit, overall and per pillar.
type UnitScore struct {
	Unit       string
	Score      *float64
	Pillars    map[string]*float64
	Objectives []string
}

// BusinessUnitScores scores each business unit from its entry objectives:
// the unit's objectives whose parent belongs to another unit or that have
// no parent.
func (h *Hierarchy) BusinessUnitScores(objectiveScores map[string]*float64) []UnitScore {
	entries := make(map[string][]strategy.Objective)
	for _, o := range h.snap.Objectives() {
		if o.BusinessUnit == "" || !contributes(o) {
			continue
		}
		if parent, ok := h.snap.ParentObjective(o.Code); ok && parent.BusinessUnit == o.BusinessUnit {
			continue
		}
		entries[o.BusinessUnit] = append(entries[o.BusinessUnit], o)
	}

	units := make([]string, 0, len(entries))
	for unit := range entries {
		units = append(units, unit)
	}
	sort.Strings(units)

	out := make([]UnitScore, 0, len(units))
	for _, unit := range units {
		var all []Item
		byPillar := make(map[string][]Item)
		us := UnitScore{Unit: unit, Pillars: make(map[string]*float64)}
		for _, o := range entries[unit] {
			it := Item{Code: o.Code, Weight: o.Weight, Score: objectiveScores[o.Code]}
			all = append(all, it)
			us.Objectives = append(us.Objectives, o.Code)
			if pillar, ok := h.PillarFor(o.Code); ok {
				byPillar[pillar] = append(byPillar[pillar], it)
			}
		}
		us.Score = rollupPtr(all)
		for pillar, items := range byPillar {
			us.Pillars[pillar] = rollupPtr(items)
		}
		out = append(out, us)
	}
	return out
}
