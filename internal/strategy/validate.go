package strategy

import (
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"scorecard/internal/formula"
)

type rawDocument struct {
	Pillars         []rawPillar         `yaml:"pillars"`
	Objectives      []rawObjective      `yaml:"objectives"`
	KPIs            []rawKPI            `yaml:"kpis"`
	Measures        []rawMeasure        `yaml:"measures"`
	GlobalValues    []rawGlobalValue    `yaml:"global_values"`
	ParameterValues []rawParameterValue `yaml:"parameter_values"`
}

type rawPillar struct {
	Code   string   `yaml:"code"`
	Name   string   `yaml:"name"`
	Weight *float64 `yaml:"weight"`
	Status string   `yaml:"status"`
}

type rawObjective struct {
	Code         string   `yaml:"code"`
	Name         string   `yaml:"name"`
	Level        string   `yaml:"level"`
	Weight       *float64 `yaml:"weight"`
	PillarCode   string   `yaml:"pillar_code"`
	ParentCode   string   `yaml:"parent_objective_code"`
	BusinessUnit string   `yaml:"business_unit"`
	Operational  bool     `yaml:"operational"`
	Status       string   `yaml:"status"`
}

type rawKPI struct {
	Code           string             `yaml:"code"`
	Name           string             `yaml:"name"`
	ObjectiveCode  string             `yaml:"objective_code"`
	Weight         *float64           `yaml:"weight"`
	Target         *float64           `yaml:"target"`
	MonthlyTargets map[string]float64 `yaml:"monthly_targets"`
	Polarity       string             `yaml:"polarity"`
	Kind           string             `yaml:"kind"`
	Status         string             `yaml:"status"`
}

type rawMeasure struct {
	Code       string            `yaml:"code"`
	Name       string            `yaml:"name"`
	KPICode    string            `yaml:"kpi_code"`
	Parameters []string          `yaml:"parameters"`
	Formula    []formula.Element `yaml:"formula"`
}

type rawGlobalValue struct {
	Code   string             `yaml:"code"`
	Name   string             `yaml:"name"`
	Type   string             `yaml:"type"`
	Values map[string]float64 `yaml:"values"`
}

type rawParameterValue struct {
	Measure   string   `yaml:"measure"`
	Parameter string   `yaml:"parameter"`
	Period    string   `yaml:"period"`
	Value     *float64 `yaml:"value"`
}

// ValidationError captures a single field-specific validation issue.
type ValidationError struct {
	File    string
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.File, e.Field, e.Message)
}

// ValidationErrors aggregates multiple validation problems.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "\n")
}

// ParseAndValidateDocument unmarshals and validates a strategy YAML document.
func ParseAndValidateDocument(data []byte, source string) (Document, error) {
	var raw rawDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Document{}, ValidationErrors{{
			File:    source,
			Field:   "yaml",
			Message: err.Error(),
		}}
	}
	return validateRawDocument(raw, source)
}

func validateRawDocument(raw rawDocument, source string) (Document, error) {
	v := &validator{source: source}
	doc := Document{Source: source}

	for i, r := range raw.Pillars {
		doc.Pillars = append(doc.Pillars, v.pillar(r, fmt.Sprintf("pillars[%d]", i)))
	}
	for i, r := range raw.Objectives {
		doc.Objectives = append(doc.Objectives, v.objective(r, fmt.Sprintf("objectives[%d]", i)))
	}
	for i, r := range raw.KPIs {
		doc.KPIs = append(doc.KPIs, v.kpi(r, fmt.Sprintf("kpis[%d]", i)))
	}
	for i, r := range raw.Measures {
		doc.Measures = append(doc.Measures, v.measure(r, fmt.Sprintf("measures[%d]", i)))
	}
	for i, r := range raw.GlobalValues {
		doc.GlobalValues = append(doc.GlobalValues, v.globalValue(r, fmt.Sprintf("global_values[%d]", i)))
	}
	for i, r := range raw.ParameterValues {
		doc.ParameterValues = append(doc.ParameterValues, v.parameterValue(r, fmt.Sprintf("parameter_values[%d]", i)))
	}

	if len(v.errs) > 0 {
		return Document{}, v.errs
	}
	return doc, nil
}

type validator struct {
	source string
	errs   ValidationErrors
}

func (v *validator) add(field, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{
		File:    v.source,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}

func (v *validator) required(field, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		name := field[strings.LastIndex(field, ".")+1:]
		v.add(field, "%s is required", name)
	}
	return value
}

func (v *validator) weight(field string, w *float64, max float64) float64 {
	if w == nil {
		v.add(field, "weight is required")
		return 0
	}
	if math.IsNaN(*w) || math.IsInf(*w, 0) {
		v.add(field, "must be a finite number")
		return 0
	}
	if *w < 0 || *w > max {
		v.add(field, "must be between 0 and %g", max)
	}
	return *w
}

func (v *validator) status(field, value string) Status {
	s := Status(strings.TrimSpace(value))
	switch s {
	case "":
		return StatusActive
	case StatusActive, StatusInactive:
		return s
	}
	v.add(field, "invalid status %q (expected active or inactive)", value)
	return s
}

func (v *validator) periodKeys(field string, values map[string]float64) map[string]float64 {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]float64, len(values))
	for _, key := range sortedKeys(values) {
		if _, err := ParsePeriod(key); err != nil {
			v.add(field, "%s", err.Error())
			continue
		}
		out[strings.TrimSpace(key)] = values[key]
	}
	return out
}

func (v *validator) pillar(raw rawPillar, path string) Pillar {
	return Pillar{
		Code:   v.required(path+".code", raw.Code),
		Name:   strings.TrimSpace(raw.Name),
		Weight: v.weight(path+".weight", raw.Weight, 100),
		Status: v.status(path+".status", raw.Status),
		Source: v.source,
	}
}

func (v *validator) objective(raw rawObjective, path string) Objective {
	obj := Objective{
		Code:         v.required(path+".code", raw.Code),
		Name:         strings.TrimSpace(raw.Name),
		Level:        Level(strings.ToUpper(strings.TrimSpace(raw.Level))),
		Weight:       v.weight(path+".weight", raw.Weight, 100),
		PillarCode:   strings.TrimSpace(raw.PillarCode),
		ParentCode:   strings.TrimSpace(raw.ParentCode),
		BusinessUnit: strings.TrimSpace(raw.BusinessUnit),
		Operational:  raw.Operational,
		Status:       v.status(path+".status", raw.Status),
		Source:       v.source,
	}
	switch obj.Level {
	case LevelL1:
		if obj.PillarCode == "" {
			v.add(path+".pillar_code", "pillar_code is required for L1 objectives")
		}
	case LevelL2, LevelL3:
		if obj.ParentCode == "" {
			v.add(path+".parent_objective_code", "parent_objective_code is required for %s objectives", obj.Level)
		}
	default:
		v.add(path+".level", "invalid level %q (expected L1, L2, or L3)", raw.Level)
	}
	return obj
}

func (v *validator) kpi(raw rawKPI, path string) KPI {
	k := KPI{
		Code:          v.required(path+".code", raw.Code),
		Name:          strings.TrimSpace(raw.Name),
		ObjectiveCode: v.required(path+".objective_code", raw.ObjectiveCode),
		Weight:        v.weight(path+".weight", raw.Weight, 100),
		Target: Target{
			Value:   raw.Target,
			Monthly: v.periodKeys(path+".monthly_targets", raw.MonthlyTargets),
		},
		Polarity: Polarity(strings.TrimSpace(raw.Polarity)),
		Kind:     KPIKind(strings.TrimSpace(raw.Kind)),
		Status:   v.status(path+".status", raw.Status),
		Source:   v.source,
	}
	switch k.Polarity {
	case "":
		k.Polarity = PolarityPositive
	case PolarityPositive, PolarityNegative:
	default:
		v.add(path+".polarity", "invalid polarity %q (expected positive or negative)", raw.Polarity)
	}
	switch k.Kind {
	case "":
		k.Kind = KindOrganizational
	case KindOrganizational, KindEmployee:
	default:
		v.add(path+".kind", "invalid kind %q (expected organizational or employee)", raw.Kind)
	}
	return k
}

func (v *validator) measure(raw rawMeasure, path string) Measure {
	m := Measure{
		Code:    v.required(path+".code", raw.Code),
		Name:    strings.TrimSpace(raw.Name),
		KPICode: strings.TrimSpace(raw.KPICode),
		Source:  v.source,
	}
	seen := make(map[string]struct{}, len(raw.Parameters))
	for i, p := range raw.Parameters {
		p = strings.TrimSpace(p)
		if p == "" {
			v.add(fmt.Sprintf("%s.parameters[%d]", path, i), "parameter names cannot be empty")
			continue
		}
		if _, dup := seen[p]; dup {
			v.add(fmt.Sprintf("%s.parameters[%d]", path, i), "duplicate parameter %q", p)
			continue
		}
		seen[p] = struct{}{}
		m.Parameters = append(m.Parameters, p)
	}
	for i, el := range raw.Formula {
		field := fmt.Sprintf("%s.formula[%d]", path, i)
		if !formula.ValidElementType(el.Type) {
			v.add(field+".type", "invalid element type %q", el.Type)
			continue
		}
		switch el.Type {
		case formula.ElementDataPoint, formula.ElementGlobalValue, formula.ElementMeasureRef:
			if strings.TrimSpace(el.Code) == "" {
				if s, ok := el.Value.(string); !ok || strings.TrimSpace(s) == "" {
					v.add(field+".code", "code is required for %s elements", el.Type)
				}
			}
		}
		m.Formula = append(m.Formula, el)
	}
	return m
}

func (v *validator) globalValue(raw rawGlobalValue, path string) GlobalValue {
	g := GlobalValue{
		Code:   v.required(path+".code", raw.Code),
		Name:   strings.TrimSpace(raw.Name),
		Type:   ValueType(strings.TrimSpace(raw.Type)),
		Values: v.periodKeys(path+".values", raw.Values),
		Source: v.source,
	}
	switch g.Type {
	case "":
		g.Type = ValueNumber
	case ValueNumber, ValuePercent, ValueCurrency:
	default:
		v.add(path+".type", "invalid type %q (expected number, percent, or currency)", raw.Type)
	}
	return g
}

func (v *validator) parameterValue(raw rawParameterValue, path string) ParameterValue {
	pv := ParameterValue{
		Measure:   v.required(path+".measure", raw.Measure),
		Parameter: v.required(path+".parameter", raw.Parameter),
		Period:    strings.TrimSpace(raw.Period),
		Source:    v.source,
	}
	if _, err := ParsePeriod(raw.Period); err != nil {
		v.add(path+".period", "%s", err.Error())
	}
	if raw.Value == nil {
		v.add(path+".value", "value is required")
	} else {
		pv.Value = *raw.Value
	}
	return pv
}
