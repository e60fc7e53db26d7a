package scoring

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// DiffReports returns a unified diff of the text renders of a and b. It is
// empty when they render identically.
func DiffReports(a, b *Scorecard, labelA, labelB string) (string, error) {
	if a == nil || b == nil {
		return "", fmt.Errorf("both scorecards are required")
	}
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(RenderText(a)),
		B:        difflib.SplitLines(RenderText(b)),
		FromFile: labelA,
		ToFile:   labelB,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("diff reports: %w", err)
	}
	return text, nil
}
