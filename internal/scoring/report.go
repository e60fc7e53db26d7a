package scoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// WriteReport writes the scorecard as indented JSON, atomically.
func WriteReport(path string, sc *Scorecard) error {
	if path == "" {
		return fmt.Errorf("report path is required")
	}
	if sc == nil {
		return fmt.Errorf("scorecard is required")
	}
	if sc.Period == "" {
		return fmt.Errorf("scorecard period is required")
	}
	sc.SchemaVersion = ScorecardSchemaVersion

	data, err := sc.JSON()
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure report dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp report: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename report: %w", err)
	}
	return nil
}

// LoadReport reads a report written by WriteReport.
func LoadReport(path string) (*Scorecard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	return DecodeReport(data)
}

// DecodeReport parses report JSON strictly.
func DecodeReport(data []byte) (*Scorecard, error) {
	var sc Scorecard
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	if sc.SchemaVersion != ScorecardSchemaVersion {
		return nil, fmt.Errorf("unsupported report schema_version %d", sc.SchemaVersion)
	}
	if sc.Period == "" {
		return nil, fmt.Errorf("report missing period")
	}
	return &sc, nil
}

// ReportPath returns the conventional report location for a period.
func ReportPath(dir, period string) string {
	return filepath.Join(dir, period+".json")
}

// LatestReportPath returns the newest report in dir. YYYY-MM.json names
// sort chronologically.
func LatestReportPath(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read reports dir: %w", err)
	}
	var candidates []string
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".json") {
			continue
		}
		candidates = append(candidates, filepath.Join(dir, ent.Name()))
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no reports found in %s", dir)
	}
	sort.Strings(candidates)
	return candidates[len(candidates)-1], nil
}

// RenderText renders a stable plain-text view of the scorecard.
func RenderText(sc *Scorecard) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scorecard %s\n", sc.Period)
	fmt.Fprintf(&b, "Organization: %s\n", formatValue(sc.Organization))

	b.WriteString("\nPillars\n")
	for _, p := range sc.Pillars {
		fmt.Fprintf(&b, "  %-12s w=%-6s %s\n", p.Code, formatNumber(p.Weight), formatValue(p.Score))
	}

	if len(sc.BusinessUnits) > 0 {
		b.WriteString("\nBusiness units\n")
		for _, bu := range sc.BusinessUnits {
			fmt.Fprintf(&b, "  %-12s %s\n", bu.Unit, formatValue(bu.Score))
			for _, share := range bu.Pillars {
				fmt.Fprintf(&b, "    %-10s %s\n", share.PillarCode, formatValue(share.Score))
			}
		}
	}

	b.WriteString("\nObjectives\n")
	for _, o := range sc.Objectives {
		var flags []string
		if o.Operational {
			flags = append(flags, "operational")
		}
		if !o.Active {
			flags = append(flags, "inactive")
		}
		suffix := ""
		if len(flags) > 0 {
			suffix = " [" + strings.Join(flags, ",") + "]"
		}
		fmt.Fprintf(&b, "  %-12s %-3s w=%-6s %s%s\n", o.Code, o.Level, formatNumber(o.Weight), formatValue(o.Score), suffix)
	}

	b.WriteString("\nKPIs\n")
	for _, k := range sc.KPIs {
		target := "-"
		if k.Target != nil {
			target = formatNumber(*k.Target)
		}
		fmt.Fprintf(&b, "  %-12s obj=%-10s w=%-6s target=%-8s actual=%-10s achievement=%s\n",
			k.Code, k.ObjectiveCode, formatNumber(k.Weight), target, formatValue(k.Actual), formatValue(k.Achievement))
	}

	if len(sc.Leverage) > 0 {
		b.WriteString("\nLeverage\n")
		for i, l := range sc.Leverage {
			fmt.Fprintf(&b, "  %2d. %-12s leverage=%-8s gap=%-8s impact=%s\n",
				i+1, l.KPICode, formatNumber(l.Leverage), formatNumber(l.Gap), formatNumber(l.ImpactOf10Pct))
		}
	}
	return b.String()
}

func formatValue(v Value) string {
	if v.Invalid {
		return "invalid"
	}
	f, ok := v.Float()
	if !ok {
		return "n/a"
	}
	return formatNumber(f)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
