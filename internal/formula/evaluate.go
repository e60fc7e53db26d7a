package formula

import "math"

// outcome classifies the result of reducing a (sub-)expression.
type outcome int

const (
	// reduced: the expression produced a number (possibly NaN).
	reduced outcome = iota
	// vanished: the expression produced no value; enclosing expressions skip it.
	vanished
	// aborted: the whole formula is invalid (unknown function, unbalanced parens).
	aborted
)

// Evaluate reduces a canonical token sequence to a single number. The bool
// is false when the formula has no value. Groups and function calls are
// resolved innermost first, then the flat stream is folded in a
// multiplicative pass followed by an additive pass. Division by zero yields
// NaN. The input slice is never modified.
func Evaluate(tokens []Token) (float64, bool) {
	v, res := evaluate(tokens)
	return v, res == reduced
}

func evaluate(tokens []Token) (float64, outcome) {
	if len(tokens) == 0 {
		return 0, vanished
	}
	flat, res := flatten(tokens)
	if res == aborted {
		return 0, aborted
	}
	return arithmetic(flat)
}

// flatten replaces every parenthesized group and function call with the
// number it reduces to.
func flatten(tokens []Token) ([]Token, outcome) {
	out := make([]Token, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		switch t.Kind {
		case KindOpen, KindFunction:
			end := matchingClose(tokens, i)
			if end < 0 {
				return nil, aborted
			}
			inner := tokens[i+1 : end]
			var v float64
			var res outcome
			if t.Kind == KindOpen {
				v, res = evaluate(inner)
			} else {
				v, res = call(t.Func, inner)
			}
			if res == aborted {
				return nil, aborted
			}
			out = reduceOrDrop(out, v, res)
			i = end
		case KindClose:
			return nil, aborted
		default:
			out = append(out, t)
		}
	}
	return out, reduced
}

// reduceOrDrop is the one place where a sub-expression without a value is
// silently discarded instead of failing the enclosing formula.
func reduceOrDrop(out []Token, v float64, res outcome) []Token {
	if res != reduced {
		return out
	}
	return append(out, Number(v))
}

// matchingClose returns the index of the close paren matching the opener at
// start, or -1. Function tokens count as openers.
func matchingClose(tokens []Token, start int) int {
	depth := 0
	for j := start; j < len(tokens); j++ {
		switch tokens[j].Kind {
		case KindOpen, KindFunction:
			depth++
		case KindClose:
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

func call(f Function, inner []Token) (float64, outcome) {
	if !f.Known() {
		return 0, aborted
	}
	flat, res := flatten(inner)
	if res == aborted {
		return 0, aborted
	}
	args := make([]float64, 0, len(flat))
	for _, t := range flat {
		if t.IsNumber() {
			args = append(args, t.Num)
		}
	}
	if len(args) == 0 {
		return 0, vanished
	}
	return apply(f, args), reduced
}

// apply evaluates f over args. Any NaN argument makes the result NaN.
func apply(f Function, args []float64) float64 {
	for _, a := range args {
		if math.IsNaN(a) {
			return math.NaN()
		}
	}
	switch f {
	case FuncSum:
		return sum(args)
	case FuncAvg:
		return sum(args) / float64(len(args))
	case FuncMin:
		m := args[0]
		for _, a := range args[1:] {
			if a < m {
				m = a
			}
		}
		return m
	case FuncMax:
		m := args[0]
		for _, a := range args[1:] {
			if a > m {
				m = a
			}
		}
		return m
	case FuncFirst:
		return args[0]
	case FuncLast:
		return args[len(args)-1]
	case FuncAbs:
		return math.Abs(args[0])
	}
	return math.NaN()
}

func sum(args []float64) float64 {
	var s float64
	for _, a := range args {
		s += a
	}
	return s
}

// arithmetic folds a stream with no groups left in it.
func arithmetic(flat []Token) (float64, outcome) {
	stack := make([]Token, 0, len(flat))
	for _, t := range flat {
		if t.Kind != KindNumber && t.Kind != KindOperator {
			return 0, vanished
		}
		n := len(stack)
		if t.IsNumber() && n >= 2 && stack[n-1].isOp("*/") && stack[n-2].IsNumber() {
			left, op := stack[n-2].Num, stack[n-1].Op
			stack = stack[:n-2]
			if op == '/' {
				if t.Num == 0 {
					return math.NaN(), reduced
				}
				stack = append(stack, Number(left/t.Num))
			} else {
				stack = append(stack, Number(left*t.Num))
			}
			continue
		}
		stack = append(stack, t)
	}

	start := -1
	for i, t := range stack {
		if t.IsNumber() {
			start = i
			break
		}
	}
	if start < 0 {
		return 0, vanished
	}

	result := stack[start].Num
	for i := start + 1; i < len(stack); {
		if stack[i].isOp("+-") && i+1 < len(stack) && stack[i+1].IsNumber() {
			if stack[i].Op == '+' {
				result += stack[i+1].Num
			} else {
				result -= stack[i+1].Num
			}
			i += 2
			continue
		}
		i++
	}
	return result, reduced
}
