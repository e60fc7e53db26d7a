package main

import (
	"strconv"

	"scorecard/internal/scoring"
)

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func formatValue(v scoring.Value) string {
	if v.Invalid {
		return "invalid"
	}
	f, ok := v.Float()
	if !ok {
		return "n/a"
	}
	return formatFloat(f)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
