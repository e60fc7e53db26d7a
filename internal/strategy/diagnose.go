package strategy

import (
	"fmt"
	"math"
	"sort"

	"scorecard/internal/formula"
)

// Diagnostic is a modelling problem the engine tolerates but a user should
// see. Diagnostics never block scoring.
type Diagnostic struct {
	Kind    string `json:"kind"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s %s: %s", d.Kind, d.Subject, d.Message)
}

// Diagnostic kinds.
const (
	DiagUnresolvedParent = "unresolved_parent"
	DiagParentCycle      = "parent_cycle"
	DiagUnresolvedKPI    = "unresolved_objective"
	DiagWeightMismatch   = "weight_mismatch"
	DiagMissingMeasure   = "missing_measure"
	DiagMissingTarget    = "missing_target"
	DiagUnknownKPI       = "unknown_kpi"
	DiagUnknownReference = "unknown_reference"
	DiagUndeclaredParam  = "undeclared_parameter"
	DiagOrphanParamValue = "orphan_parameter_value"
)

// Diagnose inspects the snapshot for problems that degrade scores to "no
// data" or make weights inconsistent. tolerance bounds the allowed
// difference between an objective weight and the sum of its KPI weights.
func Diagnose(s *Snapshot, tolerance float64) []Diagnostic {
	if s == nil {
		return nil
	}
	var out []Diagnostic
	add := func(kind, subject, format string, args ...any) {
		out = append(out, Diagnostic{Kind: kind, Subject: subject, Message: fmt.Sprintf(format, args...)})
	}

	for _, o := range s.objectives {
		switch o.Level {
		case LevelL1:
			if _, ok := s.Pillar(o.PillarCode); !ok {
				add(DiagUnresolvedParent, o.Code, "pillar %q not found; objective treated as root", o.PillarCode)
			}
		default:
			if _, ok := s.ParentObjective(o.Code); !ok {
				add(DiagUnresolvedParent, o.Code, "parent objective %q not found; objective treated as root", o.ParentCode)
			}
		}
		if s.InParentCycle(o.Code) {
			add(DiagParentCycle, o.Code, "objective parent chain loops back to itself")
		}

		kpiCodes := s.KPIsFor(o.Code)
		if len(kpiCodes) == 0 {
			continue
		}
		var sum float64
		for _, code := range kpiCodes {
			k, _ := s.KPI(code)
			sum += k.Weight
		}
		if math.Abs(sum-o.Weight) > tolerance {
			add(DiagWeightMismatch, o.Code, "kpi weights sum to %g, objective weight is %g", sum, o.Weight)
		}
	}

	for _, k := range s.kpis {
		if _, ok := s.Objective(k.ObjectiveCode); !ok {
			add(DiagUnresolvedKPI, k.Code, "objective %q not found; kpi excluded from rollups", k.ObjectiveCode)
		}
		if _, ok := s.MeasureForKPI(k.Code); !ok {
			add(DiagMissingMeasure, k.Code, "no measure computes this kpi")
		}
		if k.Target.Value == nil && len(k.Target.Monthly) == 0 {
			add(DiagMissingTarget, k.Code, "no target defined")
		}
	}

	for _, m := range s.measures {
		if m.KPICode != "" {
			if _, ok := s.KPI(m.KPICode); !ok {
				add(DiagUnknownKPI, m.Code, "kpi %q not found", m.KPICode)
			}
		}
		declared := make(map[string]struct{}, len(m.Parameters))
		for _, p := range m.Parameters {
			declared[p] = struct{}{}
		}
		for _, tok := range m.Tokens() {
			if tok.Kind != formula.KindReference {
				continue
			}
			switch tok.Ref.Type {
			case formula.RefDataPoint:
				if _, ok := declared[tok.Ref.Code]; !ok {
					add(DiagUndeclaredParam, m.Code, "parameter %q is not declared", tok.Ref.Code)
				}
			case formula.RefGlobalValue:
				if _, ok := s.GlobalValue(tok.Ref.Code); !ok {
					add(DiagUnknownReference, m.Code, "global value %q not found", tok.Ref.Code)
				}
			case formula.RefMeasure:
				if _, ok := s.Measure(tok.Ref.Code); !ok {
					add(DiagUnknownReference, m.Code, "measure %q not found", tok.Ref.Code)
				}
			}
		}
	}

	orphans := make(map[string]struct{})
	for key := range s.params {
		if _, ok := s.Measure(key.measure); !ok {
			orphans[key.measure] = struct{}{}
		}
	}
	for _, code := range sortedKeys(orphans) {
		add(DiagOrphanParamValue, code, "parameter values reference an unknown measure")
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Subject < out[j].Subject
	})
	return out
}

// InParentCycle reports whether walking parent objectives from code
// returns to code.
func (s *Snapshot) InParentCycle(code string) bool {
	visited := map[string]struct{}{code: {}}
	current := code
	for {
		parent, ok := s.ParentObjective(current)
		if !ok {
			return false
		}
		if parent.Code == code {
			return true
		}
		if _, seen := visited[parent.Code]; seen {
			return false
		}
		visited[parent.Code] = struct{}{}
		current = parent.Code
	}
}
