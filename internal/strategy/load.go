package strategy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// LoadFromDir loads and validates all strategy YAML files from dir and
// returns the indexed snapshot.
func LoadFromDir(dir string) (*Snapshot, error) {
	if dir == "" {
		dir = "strategy"
	}

	var files []string
	for _, pattern := range []string{"*.yml", "*.yaml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("scan strategy dir: %w", err)
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no strategy YAML files found in %s", dir)
	}
	sort.Strings(files)

	var docs []Document
	var vErrs ValidationErrors

	for _, path := range files {
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, fmt.Errorf("read %s: %w", path, readErr)
		}
		doc, parseErr := ParseAndValidateDocument(data, path)
		if parseErr != nil {
			var ve ValidationErrors
			if errors.As(parseErr, &ve) {
				vErrs = append(vErrs, ve...)
				continue
			}
			return nil, parseErr
		}
		docs = append(docs, doc)
	}

	if len(vErrs) > 0 {
		return nil, vErrs
	}

	return Build(docs...)
}

// Build checks cross-document uniqueness and indexes the documents.
func Build(docs ...Document) (*Snapshot, error) {
	if errs := validateCrossDocumentUniqueness(docs); len(errs) > 0 {
		return nil, errs
	}
	return NewSnapshot(docs...), nil
}

type origin struct {
	file  string
	field string
}

type uniqueSet struct {
	kind string
	seen map[string]origin
	errs *ValidationErrors
}

func newUniqueSet(kind string, errs *ValidationErrors) *uniqueSet {
	return &uniqueSet{kind: kind, seen: make(map[string]origin), errs: errs}
}

func (u *uniqueSet) check(key, file, field string) {
	if key == "" {
		return
	}
	if prev, exists := u.seen[key]; exists {
		*u.errs = append(*u.errs, ValidationError{
			File:    file,
			Field:   field,
			Message: fmt.Sprintf("%s %q already defined in %s (%s)", u.kind, key, prev.file, prev.field),
		})
		return
	}
	u.seen[key] = origin{file: file, field: field}
}

func validateCrossDocumentUniqueness(docs []Document) ValidationErrors {
	var errs ValidationErrors

	pillars := newUniqueSet("pillar", &errs)
	objectives := newUniqueSet("objective", &errs)
	kpis := newUniqueSet("kpi", &errs)
	measures := newUniqueSet("measure", &errs)
	measureOwners := newUniqueSet("measure for kpi", &errs)
	globals := newUniqueSet("global value", &errs)
	params := newUniqueSet("parameter value", &errs)

	for _, doc := range docs {
		for i, p := range doc.Pillars {
			pillars.check(p.Code, doc.Source, fmt.Sprintf("pillars[%d].code", i))
		}
		for i, o := range doc.Objectives {
			objectives.check(o.Code, doc.Source, fmt.Sprintf("objectives[%d].code", i))
		}
		for i, k := range doc.KPIs {
			kpis.check(k.Code, doc.Source, fmt.Sprintf("kpis[%d].code", i))
		}
		for i, m := range doc.Measures {
			measures.check(m.Code, doc.Source, fmt.Sprintf("measures[%d].code", i))
			measureOwners.check(m.KPICode, doc.Source, fmt.Sprintf("measures[%d].kpi_code", i))
		}
		for i, g := range doc.GlobalValues {
			globals.check(g.Code, doc.Source, fmt.Sprintf("global_values[%d].code", i))
		}
		for i, pv := range doc.ParameterValues {
			key := pv.Measure + "/" + pv.Parameter + "@" + pv.Period
			params.check(key, doc.Source, fmt.Sprintf("parameter_values[%d]", i))
		}
	}
	return errs
}
