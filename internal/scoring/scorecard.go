// Package scoring turns calculated measure values into achievements,
// hierarchy scores and a leverage ranking.
package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"scorecard/internal/measure"
	"scorecard/internal/strategy"
)

// ScorecardSchemaVersion is written into every report.
const ScorecardSchemaVersion = 1

// Options carries the tunables of one computation.
type Options struct {
	OrgCap      float64
	EmployeeCap float64
	Leverage    LeverageOptions
	// Cache, when set, memoizes calculated values across calls.
	Cache *measure.Cache
}

// DefaultOptions returns the default caps and leverage settings.
func DefaultOptions() Options {
	return Options{
		OrgCap:      DefaultOrgCap,
		EmployeeCap: DefaultEmployeeCap,
		Leverage: LeverageOptions{
			Mode:            CompositeDirect,
			ImprovementStep: DefaultImprovementStep,
		},
	}
}

// Value is a number that may be absent or invalid. NaN is reported as a
// null value with Invalid set.
type Value struct {
	Value   *float64 `json:"value"`
	Invalid bool     `json:"invalid,omitempty"`
}

func valueOf(v *float64) Value {
	if v == nil {
		return Value{}
	}
	if math.IsNaN(*v) {
		return Value{Invalid: true}
	}
	return Value{Value: ptr(*v)}
}

// Float returns the value and whether it is present.
func (v Value) Float() (float64, bool) {
	if v.Value == nil {
		return 0, false
	}
	return *v.Value, true
}

// MeasureResult is the calculated value of one measure.
type MeasureResult struct {
	Code    string `json:"code"`
	KPICode string `json:"kpi_code,omitempty"`
	Value   Value  `json:"value"`
}

// KPIResult is the actual and achievement of one KPI.
type KPIResult struct {
	Code          string   `json:"code"`
	Name          string   `json:"name,omitempty"`
	ObjectiveCode string   `json:"objective_code"`
	MeasureCode   string   `json:"measure_code,omitempty"`
	Weight        float64  `json:"weight"`
	Target        *float64 `json:"target"`
	Polarity      string   `json:"polarity"`
	Kind          string   `json:"kind"`
	Active        bool     `json:"active"`
	Actual        Value    `json:"actual"`
	Achievement   Value    `json:"achievement"`
}

// ObjectiveResult is the rolled up score of one objective.
type ObjectiveResult struct {
	Code         string  `json:"code"`
	Name         string  `json:"name,omitempty"`
	Level        string  `json:"level"`
	Weight       float64 `json:"weight"`
	ParentCode   string  `json:"parent_code,omitempty"`
	PillarCode   string  `json:"pillar_code,omitempty"`
	BusinessUnit string  `json:"business_unit,omitempty"`
	Operational  bool    `json:"operational,omitempty"`
	Active       bool    `json:"active"`
	Score        Value   `json:"score"`
}

// PillarResult is the rolled up score of one pillar.
type PillarResult struct {
	Code   string  `json:"code"`
	Name   string  `json:"name,omitempty"`
	Weight float64 `json:"weight"`
	Score  Value   `json:"score"`
}

// PillarShare is a business unit's score within one pillar.
type PillarShare struct {
	PillarCode string `json:"pillar_code"`
	Score      Value  `json:"score"`
}

// BusinessUnitResult is the rolled up score of one business unit.
type BusinessUnitResult struct {
	Unit       string        `json:"unit"`
	Score      Value         `json:"score"`
	Objectives []string      `json:"objectives"`
	Pillars    []PillarShare `json:"pillars,omitempty"`
}

// Scorecard is the full result of scoring one period.
type Scorecard struct {
	SchemaVersion int                  `json:"schema_version"`
	Period        string               `json:"period"`
	Organization  Value                `json:"organization"`
	Pillars       []PillarResult       `json:"pillars"`
	BusinessUnits []BusinessUnitResult `json:"business_units"`
	Objectives    []ObjectiveResult    `json:"objectives"`
	KPIs          []KPIResult          `json:"kpis"`
	Measures      []MeasureResult      `json:"measures"`
	Leverage      []LeverageEntry      `json:"leverage"`
}

// Compute scores one period. It never fails: missing or malformed inputs
// degrade to absent values.
func Compute(snap *strategy.Snapshot, period string, opts Options) *Scorecard {
	opts = opts.withDefaults()

	var resolverOpts []measure.Option
	if opts.Cache != nil {
		resolverOpts = append(resolverOpts, measure.WithCache(opts.Cache))
	}
	calculated := measure.NewResolver(snap, resolverOpts...).ResolveAll(period)

	sc := &Scorecard{SchemaVersion: ScorecardSchemaVersion, Period: period}
	for _, m := range snap.Measures() {
		sc.Measures = append(sc.Measures, MeasureResult{Code: m.Code, KPICode: m.KPICode, Value: valueOf(calculated[m.Code])})
	}

	achievements := make(map[string]*float64)
	for _, k := range snap.KPIs() {
		res := KPIResult{
			Code:          k.Code,
			Name:          k.Name,
			ObjectiveCode: k.ObjectiveCode,
			Weight:        k.Weight,
			Target:        k.Target.For(period),
			Polarity:      string(k.Polarity),
			Kind:          string(k.Kind),
			Active:        k.Status.Active(),
		}
		var actual *float64
		if m, ok := snap.MeasureForKPI(k.Code); ok {
			res.MeasureCode = m.Code
			actual = calculated[m.Code]
		}
		res.Actual = valueOf(actual)
		if actual != nil {
			if a, ok := Achievement(*actual, true, res.Target, k.Polarity, opts.capFor(k.Kind)); ok {
				achievements[k.Code] = ptr(a)
			}
		}
		res.Achievement = valueOf(achievements[k.Code])
		sc.KPIs = append(sc.KPIs, res)
	}

	h := NewHierarchy(snap)
	objectiveScores := h.ObjectiveScores(achievements)
	for _, o := range snap.Objectives() {
		res := ObjectiveResult{
			Code:         o.Code,
			Name:         o.Name,
			Level:        string(o.Level),
			Weight:       o.Weight,
			ParentCode:   o.ParentCode,
			BusinessUnit: o.BusinessUnit,
			Operational:  o.Operational,
			Active:       o.Status.Active(),
			Score:        valueOf(objectiveScores[o.Code]),
		}
		res.PillarCode, _ = h.PillarFor(o.Code)
		sc.Objectives = append(sc.Objectives, res)
	}

	pillarScores := h.PillarScores(objectiveScores)
	for _, p := range snap.Pillars() {
		sc.Pillars = append(sc.Pillars, PillarResult{Code: p.Code, Name: p.Name, Weight: p.Weight, Score: valueOf(pillarScores[p.Code])})
	}
	sc.Organization = valueOf(h.OrganizationScore(pillarScores))

	for _, us := range h.BusinessUnitScores(objectiveScores) {
		res := BusinessUnitResult{Unit: us.Unit, Score: valueOf(us.Score), Objectives: us.Objectives}
		pillars := make([]string, 0, len(us.Pillars))
		for code := range us.Pillars {
			pillars = append(pillars, code)
		}
		sort.Strings(pillars)
		for _, code := range pillars {
			res.Pillars = append(res.Pillars, PillarShare{PillarCode: code, Score: valueOf(us.Pillars[code])})
		}
		sc.BusinessUnits = append(sc.BusinessUnits, res)
	}

	sc.Leverage = Leverage(h, achievements, opts.Leverage)
	return sc
}

// ComputeRange scores every month from..to inclusive, at most GOMAXPROCS
// months at a time, sharing one cache. Results are in period order.
func ComputeRange(snap *strategy.Snapshot, from, to string, opts Options) ([]*Scorecard, error) {
	periods, err := strategy.PeriodRange(from, to)
	if err != nil {
		return nil, err
	}
	if opts.Cache == nil {
		opts.Cache = measure.NewCache()
	}

	out := make([]*Scorecard, len(periods))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, period := range periods {
		i, period := i, period
		g.Go(func() error {
			out[i] = Compute(snap, period, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("compute range %s..%s: %w", from, to, err)
	}
	return out, nil
}

func (o Options) withDefaults() Options {
	if o.OrgCap == 0 {
		o.OrgCap = DefaultOrgCap
	}
	if o.EmployeeCap == 0 {
		o.EmployeeCap = DefaultEmployeeCap
	}
	if o.Leverage.Mode == "" {
		o.Leverage.Mode = CompositeDirect
	}
	if o.Leverage.ImprovementStep == 0 {
		o.Leverage.ImprovementStep = DefaultImprovementStep
	}
	return o
}

// JSON returns the indented JSON encoding of the scorecard.
func (sc *Scorecard) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
