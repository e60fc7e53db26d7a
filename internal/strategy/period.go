package strategy

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const periodLayout = "2006-01"

// ParsePeriod parses a YYYY-MM period key.
func ParsePeriod(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if len(value) != len(periodLayout) {
		return time.Time{}, fmt.Errorf("invalid period %q (expected YYYY-MM)", value)
	}
	t, err := time.Parse(periodLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid period %q (expected YYYY-MM)", value)
	}
	return t, nil
}

// FormatPeriod returns the YYYY-MM key for t.
func FormatPeriod(t time.Time) string {
	return t.UTC().Format(periodLayout)
}

// PeriodRange returns every month from..to inclusive.
func PeriodRange(from, to string) ([]string, error) {
	start, err := ParsePeriod(from)
	if err != nil {
		return nil, err
	}
	end, err := ParsePeriod(to)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("period range %s..%s is reversed", from, to)
	}
	var out []string
	for t := start; !t.After(end); t = t.AddDate(0, 1, 0) {
		out = append(out, FormatPeriod(t))
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
