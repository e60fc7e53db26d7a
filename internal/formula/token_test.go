package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeValues(t *testing.T) {
	got := NormalizeValues([]any{1, " 2.5 ", "+", "(", ")", "SUM(", "avg(", "NaN", "Inf", "", "foo", nil, 3.0})
	want := []Token{
		Number(1),
		Number(2.5),
		Operator('+'),
		Open(),
		Close(),
		Call(FuncSum),
		Call(FuncAvg),
		Invalid("NaN"),
		Invalid("Inf"),
		Invalid(""),
		Invalid("foo"),
		Invalid(""),
		Number(3),
	}
	assert.Equal(t, want, got)
}

func TestNormalizeElements(t *testing.T) {
	elements := []Element{
		{Type: ElementFunction, Value: "SUM("},
		{Type: ElementDataPoint, Code: "revenue"},
		{Type: ElementGlobalValue, Code: " FX "},
		{Type: ElementMeasureRef, Value: "M-2"},
		{Type: ElementParen, Value: ")"},
		{Type: ElementOperator, Value: "/"},
		{Type: ElementLiteral, Value: 4},
		{Type: ElementLiteral, Value: "12"},
		{Type: ElementLiteral, Value: "+"},
		{Type: ElementOperator, Value: "%"},
		{Type: ElementParen, Value: "["},
		{Type: ElementFunction, Value: "median("},
		{Type: ElementFunction, Value: 3},
		{Type: "", Value: "*"},
	}
	want := []Token{
		Call(FuncSum),
		Ref(RefDataPoint, "revenue"),
		Ref(RefGlobalValue, "FX"),
		Ref(RefMeasure, "M-2"),
		Close(),
		Operator('/'),
		Number(4),
		Number(12),
		Invalid("+"),
		Invalid("%"),
		Invalid("["),
		Call(Function("MEDIAN")),
		Invalid("3"),
		Operator('*'),
	}
	assert.Equal(t, want, Normalize(elements))
}

func TestFunctionKnown(t *testing.T) {
	for _, f := range []Function{FuncSum, FuncAvg, FuncMin, FuncMax, FuncFirst, FuncLast, FuncAbs} {
		assert.True(t, f.Known(), f)
	}
	assert.False(t, Function("MEDIAN").Known())
}

func TestTokenString(t *testing.T) {
	assert.Equal(t, "2.5", Number(2.5).String())
	assert.Equal(t, "SUM(", Call(FuncSum).String())
	assert.Equal(t, "{globalValue:FX}", Ref(RefGlobalValue, "FX").String())
}
