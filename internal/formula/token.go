package formula

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Token.
type Kind int

const (
	KindInvalid Kind = iota
	KindNumber
	KindOperator
	KindOpen
	KindClose
	KindFunction
	KindReference
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindOperator:
		return "operator"
	case KindOpen:
		return "open"
	case KindClose:
		return "close"
	case KindFunction:
		return "function"
	case KindReference:
		return "reference"
	default:
		return "invalid"
	}
}

// Function names an aggregate applied to the numbers inside its parentheses.
type Function string

const (
	FuncSum   Function = "SUM"
	FuncAvg   Function = "AVG"
	FuncMin   Function = "MIN"
	FuncMax   Function = "MAX"
	FuncFirst Function = "FIRST"
	FuncLast  Function = "LAST"
	FuncAbs   Function = "ABS"
)

// Known reports whether the evaluator can apply f.
func (f Function) Known() bool {
	switch f {
	case FuncSum, FuncAvg, FuncMin, FuncMax, FuncFirst, FuncLast, FuncAbs:
		return true
	}
	return false
}

// RefType is the data series a reference token points at.
type RefType string

const (
	RefDataPoint   RefType = "dataPoint"
	RefGlobalValue RefType = "globalValue"
	RefMeasure     RefType = "measure-ref"
)

// Reference points at a parameter, global value or another measure.
type Reference struct {
	Type RefType
	Code string
}

// Token is one canonical formula element. Exactly one payload field is
// meaningful, selected by Kind.
type Token struct {
	Kind Kind
	Num  float64
	Op   byte
	Func Function
	Ref  Reference
	Raw  string
}

// Number returns a numeric token.
func Number(v float64) Token { return Token{Kind: KindNumber, Num: v} }

// Operator returns an arithmetic operator token; op must be one of + - * /.
func Operator(op byte) Token { return Token{Kind: KindOperator, Op: op} }

// Open returns an opening parenthesis token.
func Open() Token { return Token{Kind: KindOpen} }

// Close returns a closing parenthesis token.
func Close() Token { return Token{Kind: KindClose} }

// Call returns a function token. It carries an implicit opening parenthesis.
func Call(f Function) Token { return Token{Kind: KindFunction, Func: f} }

// Ref returns a reference token.
func Ref(t RefType, code string) Token {
	return Token{Kind: KindReference, Ref: Reference{Type: t, Code: code}}
}

// Invalid returns a token the evaluator will reject.
func Invalid(raw string) Token { return Token{Kind: KindInvalid, Raw: raw} }

func (t Token) IsNumber() bool { return t.Kind == KindNumber }

func (t Token) isOp(ops string) bool {
	return t.Kind == KindOperator && strings.IndexByte(ops, t.Op) >= 0
}

func (t Token) String() string {
	switch t.Kind {
	case KindNumber:
		return strconv.FormatFloat(t.Num, 'g', -1, 64)
	case KindOperator:
		return string(t.Op)
	case KindOpen:
		return "("
	case KindClose:
		return ")"
	case KindFunction:
		return string(t.Func) + "("
	case KindReference:
		return fmt.Sprintf("{%s:%s}", t.Ref.Type, t.Ref.Code)
	default:
		return fmt.Sprintf("?%q", t.Raw)
	}
}

// Element is the persisted wire shape of a formula element as produced by
// the formula builder.
type Element struct {
	Type  string `json:"type" yaml:"type"`
	Value any    `json:"value,omitempty" yaml:"value,omitempty"`
	Code  string `json:"code,omitempty" yaml:"code,omitempty"`
}

// Element types accepted on the wire.
const (
	ElementLiteral     = "literal"
	ElementOperator    = "operator"
	ElementParen       = "paren"
	ElementFunction    = "function"
	ElementDataPoint   = "dataPoint"
	ElementGlobalValue = "globalValue"
	ElementMeasureRef  = "measure-ref"
)

// ValidElementType reports whether t is a known wire element type.
func ValidElementType(t string) bool {
	switch t {
	case ElementLiteral, ElementOperator, ElementParen, ElementFunction,
		ElementDataPoint, ElementGlobalValue, ElementMeasureRef:
		return true
	}
	return false
}

// Normalize converts persisted formula elements into canonical tokens. It
// never fails: anything it cannot classify becomes an invalid token.
func Normalize(elements []Element) []Token {
	out := make([]Token, 0, len(elements))
	for _, el := range elements {
		out = append(out, normalizeElement(el))
	}
	return out
}

// NormalizeValues converts a loosely typed sequence (numbers and strings
// such as "3", "+", "(", "SUM(") into canonical tokens.
func NormalizeValues(values []any) []Token {
	out := make([]Token, 0, len(values))
	for _, v := range values {
		out = append(out, normalizeValue(v))
	}
	return out
}

func normalizeElement(el Element) Token {
	switch strings.TrimSpace(el.Type) {
	case ElementDataPoint:
		return Ref(RefDataPoint, refCode(el))
	case ElementGlobalValue:
		return Ref(RefGlobalValue, refCode(el))
	case ElementMeasureRef:
		return Ref(RefMeasure, refCode(el))
	case ElementLiteral:
		tok := normalizeValue(el.Value)
		if tok.Kind != KindNumber {
			return Invalid(fmt.Sprint(el.Value))
		}
		return tok
	case ElementOperator:
		tok := normalizeValue(el.Value)
		if tok.Kind != KindOperator {
			return Invalid(fmt.Sprint(el.Value))
		}
		return tok
	case ElementParen:
		tok := normalizeValue(el.Value)
		if tok.Kind != KindOpen && tok.Kind != KindClose {
			return Invalid(fmt.Sprint(el.Value))
		}
		return tok
	case ElementFunction:
		s, ok := el.Value.(string)
		if !ok {
			return Invalid(fmt.Sprint(el.Value))
		}
		name := strings.TrimSuffix(strings.TrimSpace(s), "(")
		if name == "" {
			return Invalid(s)
		}
		return Call(Function(strings.ToUpper(name)))
	default:
		return normalizeValue(el.Value)
	}
}

func refCode(el Element) string {
	if code := strings.TrimSpace(el.Code); code != "" {
		return code
	}
	if s, ok := el.Value.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func normalizeValue(v any) Token {
	switch n := v.(type) {
	case float64:
		return Number(n)
	case float32:
		return Number(float64(n))
	case int:
		return Number(float64(n))
	case int64:
		return Number(float64(n))
	case int32:
		return Number(float64(n))
	case uint64:
		return Number(float64(n))
	case uint:
		return Number(float64(n))
	case Token:
		return n
	case string:
		return normalizeString(n)
	case nil:
		return Invalid("")
	default:
		return Invalid(fmt.Sprint(v))
	}
}

func normalizeString(s string) Token {
	trimmed := strings.TrimSpace(s)
	switch trimmed {
	case "+", "-", "*", "/":
		return Operator(trimmed[0])
	case "(":
		return Open()
	case ")":
		return Close()
	case "":
		return Invalid(s)
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return Number(f)
	}
	if strings.HasSuffix(trimmed, "(") {
		name := strings.TrimSpace(strings.TrimSuffix(trimmed, "("))
		if isFunctionName(name) {
			return Call(Function(strings.ToUpper(name)))
		}
	}
	return Invalid(s)
}

func isFunctionName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r == '_') {
			return false
		}
	}
	return true
}
