package formula

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eval(t *testing.T, values ...any) (float64, bool) {
	t.Helper()
	return Evaluate(NormalizeValues(values))
}

func TestEvaluateArithmetic(t *testing.T) {
	tests := []struct {
		name   string
		values []any
		want   float64
	}{
		{name: "multiplicative binds tighter", values: []any{2, "+", 3, "*", 4}, want: 14},
		{name: "parenthesis precedence", values: []any{"(", 2, "+", 3, ")", "*", 4}, want: 20},
		{name: "left to right division", values: []any{100, "/", 5, "/", 2}, want: 10},
		{name: "subtraction chain", values: []any{10, "-", 3, "-", 2}, want: 5},
		{name: "mixed", values: []any{10, "-", 2, "*", 3, "+", 8, "/", 4}, want: 6},
		{name: "single number", values: []any{42}, want: 42},
		{name: "nested groups", values: []any{"(", "(", 1, "+", 1, ")", "*", "(", 2, "+", 1, ")", ")", "*", 2}, want: 12},
		{name: "numeric strings", values: []any{" 2 ", "*", "3.5"}, want: 7},
		{name: "dangling operator skipped", values: []any{4, "+"}, want: 4},
		{name: "leading operator skipped", values: []any{"*", 3, "+", 1}, want: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := eval(t, tt.values...)
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestEvaluateFunctions(t *testing.T) {
	tests := []struct {
		name   string
		values []any
		want   float64
	}{
		{name: "sum", values: []any{"SUM(", 1, 2, 3, ")"}, want: 6},
		{name: "avg", values: []any{"AVG(", 2, 4, ")"}, want: 3},
		{name: "min", values: []any{"MIN(", 5, -1, 3, ")"}, want: -1},
		{name: "max", values: []any{"MAX(", 5, -1, 3, ")"}, want: 5},
		{name: "first", values: []any{"FIRST(", 7, 8, 9, ")"}, want: 7},
		{name: "last", values: []any{"LAST(", 7, 8, 9, ")"}, want: 9},
		{name: "abs uses first argument", values: []any{"ABS(", -4, -9, ")"}, want: 4},
		{name: "operators inside args are ignored", values: []any{"SUM(", 2, "*", 3, ")"}, want: 5},
		{name: "nested group is an argument", values: []any{"SUM(", "(", 1, "+", 2, ")", 4, ")"}, want: 7},
		{name: "nested function", values: []any{"MAX(", "SUM(", 1, 2, ")", 2, ")"}, want: 3},
		{name: "function in arithmetic", values: []any{"SUM(", 1, 2, ")", "*", 10}, want: 30},
		{name: "lowercase tag", values: []any{"sum(", 1, 1, ")"}, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := eval(t, tt.values...)
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestEvaluateFunctionsPropagateNaN(t *testing.T) {
	nan := []any{"(", 5, "/", 0, ")"}
	with := func(fn string, args ...any) []any {
		return append(append([]any{fn}, args...), ")")
	}
	for _, fn := range []string{"MIN(", "MAX(", "SUM(", "AVG(", "FIRST(", "LAST(", "ABS("} {
		t.Run(fn+" leading", func(t *testing.T) {
			got, ok := eval(t, with(fn, append(append([]any{}, nan...), 1, 9)...)...)
			require.True(t, ok)
			assert.True(t, math.IsNaN(got))
		})
		t.Run(fn+" trailing", func(t *testing.T) {
			got, ok := eval(t, with(fn, append([]any{1, 9}, nan...)...)...)
			require.True(t, ok)
			assert.True(t, math.IsNaN(got))
		})
	}
}

func TestEvaluateNoValue(t *testing.T) {
	tests := []struct {
		name   string
		values []any
	}{
		{name: "empty", values: nil},
		{name: "zero argument function", values: []any{"AVG(", ")"}},
		{name: "unknown function", values: []any{"MEDIAN(", 1, 2, ")"}},
		{name: "unknown function nested", values: []any{1, "+", "(", "MEDIAN(", 1, ")", ")"}},
		{name: "unbalanced open", values: []any{"(", 1, "+", 2}},
		{name: "unbalanced close", values: []any{1, "+", 2, ")"}},
		{name: "invalid token", values: []any{1, "+", "abc"}},
		{name: "operators only", values: []any{"+", "-"}},
		{name: "whitespace token", values: []any{1, "+", "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := eval(t, tt.values...)
			assert.False(t, ok)
		})
	}
}

func TestEvaluateDropsEmptySubExpressions(t *testing.T) {
	got, ok := eval(t, 5, "+", "SUM(", ")", "+", 1)
	require.True(t, ok)
	assert.Equal(t, 6.0, got)

	got, ok = eval(t, "(", ")", "*", 4)
	require.True(t, ok)
	assert.Equal(t, 4.0, got)
}

func TestEvaluateDivisionByZero(t *testing.T) {
	got, ok := eval(t, 5, "/", 0)
	require.True(t, ok)
	assert.True(t, math.IsNaN(got))

	got, ok = eval(t, 1, "+", "(", 5, "/", 0, ")", "*", 2)
	require.True(t, ok)
	assert.True(t, math.IsNaN(got))
}

func TestEvaluateDoesNotMutateInput(t *testing.T) {
	tokens := NormalizeValues([]any{"(", 2, "+", 3, ")", "*", "SUM(", 1, 1, ")"})
	before := append([]Token(nil), tokens...)

	first, ok1 := Evaluate(tokens)
	second, ok2 := Evaluate(tokens)

	assert.Equal(t, before, tokens)
	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.Equal(t, first, second)
	assert.Equal(t, 10.0, first)
}

func TestEvaluateUnresolvedReference(t *testing.T) {
	_, ok := Evaluate([]Token{Number(1), Operator('+'), Ref(RefDataPoint, "x")})
	assert.False(t, ok)
}
