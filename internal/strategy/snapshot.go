package strategy

// NewSnapshot indexes documents into a Snapshot. Later documents do not
// override earlier codes; LoadFromDir rejects duplicates before this point.
func NewSnapshot(docs ...Document) *Snapshot {
	s := &Snapshot{
		pillarIndex:    make(map[string]int),
		objectiveIndex: make(map[string]int),
		kpiIndex:       make(map[string]int),
		measureIndex:   make(map[string]int),
		globalIndex:    make(map[string]int),
		measureByKPI:   make(map[string]string),
		children:       make(map[string][]string),
		kpisByObj:      make(map[string][]string),
		params:         make(map[paramKey]float64),
	}

	for _, doc := range docs {
		for _, p := range doc.Pillars {
			if _, ok := s.pillarIndex[p.Code]; ok {
				continue
			}
			s.pillarIndex[p.Code] = len(s.pillars)
			s.pillars = append(s.pillars, p)
		}
		for _, o := range doc.Objectives {
			if _, ok := s.objectiveIndex[o.Code]; ok {
				continue
			}
			s.objectiveIndex[o.Code] = len(s.objectives)
			s.objectives = append(s.objectives, o)
		}
		for _, k := range doc.KPIs {
			if _, ok := s.kpiIndex[k.Code]; ok {
				continue
			}
			s.kpiIndex[k.Code] = len(s.kpis)
			s.kpis = append(s.kpis, k)
			s.kpisByObj[k.ObjectiveCode] = append(s.kpisByObj[k.ObjectiveCode], k.Code)
		}
		for _, m := range doc.Measures {
			if _, ok := s.measureIndex[m.Code]; ok {
				continue
			}
			s.measureIndex[m.Code] = len(s.measures)
			s.measures = append(s.measures, m)
			if m.KPICode != "" {
				if _, taken := s.measureByKPI[m.KPICode]; !taken {
					s.measureByKPI[m.KPICode] = m.Code
				}
			}
		}
		for _, g := range doc.GlobalValues {
			if _, ok := s.globalIndex[g.Code]; ok {
				continue
			}
			s.globalIndex[g.Code] = len(s.globals)
			s.globals = append(s.globals, g)
		}
		for _, pv := range doc.ParameterValues {
			key := paramKey{measure: pv.Measure, parameter: pv.Parameter, period: pv.Period}
			if _, ok := s.params[key]; ok {
				continue
			}
			s.params[key] = pv.Value
		}
	}

	// Children are linked after every objective is indexed so documents may
	// appear in any order. Unresolved parents leave the objective a root.
	for _, o := range s.objectives {
		if parent, ok := s.ParentObjective(o.Code); ok {
			s.children[parent.Code] = append(s.children[parent.Code], o.Code)
		}
	}
	return s
}

// Pillars returns every pillar in load order.
func (s *Snapshot) Pillars() []Pillar {
	if s == nil {
		return nil
	}
	return append([]Pillar(nil), s.pillars...)
}

// Objectives returns every objective in load order.
func (s *Snapshot) Objectives() []Objective {
	if s == nil {
		return nil
	}
	return append([]Objective(nil), s.objectives...)
}

// KPIs returns every KPI in load order.
func (s *Snapshot) KPIs() []KPI {
	if s == nil {
		return nil
	}
	return append([]KPI(nil), s.kpis...)
}

// Measures returns every measure in load order.
func (s *Snapshot) Measures() []Measure {
	if s == nil {
		return nil
	}
	return append([]Measure(nil), s.measures...)
}

// GlobalValues returns every global value in load order.
func (s *Snapshot) GlobalValues() []GlobalValue {
	if s == nil {
		return nil
	}
	return append([]GlobalValue(nil), s.globals...)
}

// Pillar returns the pillar with the given code, if present.
func (s *Snapshot) Pillar(code string) (Pillar, bool) {
	if s == nil {
		return Pillar{}, false
	}
	i, ok := s.pillarIndex[code]
	if !ok {
		return Pillar{}, false
	}
	return s.pillars[i], true
}

// Objective returns the objective with the given code, if present.
func (s *Snapshot) Objective(code string) (Objective, bool) {
	if s == nil {
		return Objective{}, false
	}
	i, ok := s.objectiveIndex[code]
	if !ok {
		return Objective{}, false
	}
	return s.objectives[i], true
}

// KPI returns the KPI with the given code, if present.
func (s *Snapshot) KPI(code string) (KPI, bool) {
	if s == nil {
		return KPI{}, false
	}
	i, ok := s.kpiIndex[code]
	if !ok {
		return KPI{}, false
	}
	return s.kpis[i], true
}

// Measure returns the measure with the given code, if present.
func (s *Snapshot) Measure(code string) (Measure, bool) {
	if s == nil {
		return Measure{}, false
	}
	i, ok := s.measureIndex[code]
	if !ok {
		return Measure{}, false
	}
	return s.measures[i], true
}

// MeasureForKPI returns the measure owned by the KPI, if any.
func (s *Snapshot) MeasureForKPI(kpiCode string) (Measure, bool) {
	if s == nil {
		return Measure{}, false
	}
	code, ok := s.measureByKPI[kpiCode]
	if !ok {
		return Measure{}, false
	}
	return s.Measure(code)
}

// GlobalValue returns the global value series with the given code, if present.
func (s *Snapshot) GlobalValue(code string) (GlobalValue, bool) {
	if s == nil {
		return GlobalValue{}, false
	}
	i, ok := s.globalIndex[code]
	if !ok {
		return GlobalValue{}, false
	}
	return s.globals[i], true
}

// GlobalValueAt returns the value of a global series for one month.
func (s *Snapshot) GlobalValueAt(code, period string) (float64, bool) {
	g, ok := s.GlobalValue(code)
	if !ok {
		return 0, false
	}
	v, ok := g.Values[period]
	return v, ok
}

// ParameterValue returns the user input for (measure, parameter, period).
func (s *Snapshot) ParameterValue(measure, parameter, period string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	v, ok := s.params[paramKey{measure: measure, parameter: parameter, period: period}]
	return v, ok
}

// ParentObjective returns the parent objective of an L2/L3 objective when
// the parent code resolves.
func (s *Snapshot) ParentObjective(code string) (Objective, bool) {
	o, ok := s.Objective(code)
	if !ok || o.Level == LevelL1 || o.ParentCode == "" || o.ParentCode == o.Code {
		return Objective{}, false
	}
	return s.Objective(o.ParentCode)
}

// ObjectivesUnder returns the direct child objective codes in load order.
func (s *Snapshot) ObjectivesUnder(code string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.children[code]...)
}

// KPIsFor returns the KPI codes attached to an objective in load order.
func (s *Snapshot) KPIsFor(objectiveCode string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.kpisByObj[objectiveCode]...)
}

// Periods returns every month that has parameter or global input, sorted.
func (s *Snapshot) Periods() []string {
	if s == nil {
		return nil
	}
	seen := make(map[string]struct{})
	for key := range s.params {
		seen[key.period] = struct{}{}
	}
	for _, g := range s.globals {
		for p := range g.Values {
			seen[p] = struct{}{}
		}
	}
	return sortedKeys(seen)
}
