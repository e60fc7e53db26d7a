package strategy

import "scorecard/internal/formula"

// Level is the depth of an objective in the strategy cascade.
type Level string

const (
	LevelL1 Level = "L1"
	LevelL2 Level = "L2"
	LevelL3 Level = "L3"
)

// Status marks whether a node takes part in scoring.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Active reports whether the status counts as active. Empty means active.
func (s Status) Active() bool {
	return s == "" || s == StatusActive
}

// Polarity says whether higher or lower actual values are better.
type Polarity string

const (
	PolarityPositive Polarity = "positive"
	PolarityNegative Polarity = "negative"
)

// KPIKind selects which achievement cap applies.
type KPIKind string

const (
	KindOrganizational KPIKind = "organizational"
	KindEmployee       KPIKind = "employee"
)

// ValueType describes how a global value is displayed.
type ValueType string

const (
	ValueNumber   ValueType = "number"
	ValuePercent  ValueType = "percent"
	ValueCurrency ValueType = "currency"
)

// Pillar is a top-level weighted strategic theme.
type Pillar struct {
	Code   string
	Name   string
	Weight float64
	Status Status
	Source string
}

// Objective is a node of the cascade. L1 objectives hang off a pillar, L2
// and L3 objectives off a parent objective.
type Objective struct {
	Code         string
	Name         string
	Level        Level
	Weight       float64
	PillarCode   string
	ParentCode   string
	BusinessUnit string
	Operational  bool
	Status       Status
	Source       string
}

// Target is a KPI target: a default value plus optional per-month overrides.
type Target struct {
	Value   *float64
	Monthly map[string]float64
}

// For returns the target for period, preferring a monthly override.
func (t Target) For(period string) *float64 {
	if v, ok := t.Monthly[period]; ok {
		return &v
	}
	if t.Value == nil {
		return nil
	}
	v := *t.Value
	return &v
}

// KPI is a weighted, targetable metric attached to exactly one objective.
type KPI struct {
	Code          string
	Name          string
	ObjectiveCode string
	Weight        float64
	Target        Target
	Polarity      Polarity
	Kind          KPIKind
	Status        Status
	Source        string
}

// Measure is a formula plus parameters computing a KPI's actual value.
type Measure struct {
	Code       string
	Name       string
	KPICode    string
	Parameters []string
	Formula    []formula.Element
	Source     string
}

// Tokens returns the normalized formula.
func (m Measure) Tokens() []formula.Token {
	return formula.Normalize(m.Formula)
}

// GlobalValue is an organisation-wide time series usable by any formula.
type GlobalValue struct {
	Code   string
	Name   string
	Type   ValueType
	Values map[string]float64
	Source string
}

// ParameterValue is one user-entered monthly input of a measure.
type ParameterValue struct {
	Measure   string
	Parameter string
	Period    string
	Value     float64
	Source    string
}

// Document is one normalized strategy YAML file.
type Document struct {
	Pillars         []Pillar
	Objectives      []Objective
	KPIs            []KPI
	Measures        []Measure
	GlobalValues    []GlobalValue
	ParameterValues []ParameterValue
	Source          string
}

type paramKey struct {
	measure   string
	parameter string
	period    string
}

// Snapshot is the read-only, indexed view of every loaded document.
type Snapshot struct {
	pillars    []Pillar
	objectives []Objective
	kpis       []KPI
	measures   []Measure
	globals    []GlobalValue

	pillarIndex    map[string]int
	objectiveIndex map[string]int
	kpiIndex       map[string]int
	measureIndex   map[string]int
	globalIndex    map[string]int
	measureByKPI   map[string]string
	children       map[string][]string
	kpisByObj      map[string][]string
	params         map[paramKey]float64
}
