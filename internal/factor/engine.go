package factor

import (
	"fmt"
	"math"
	"strings"

	"github.com/Genius-apple/open-alpha/internal/dataset"
)

// EvaluationError reports a failed expression evaluation together with
// the expression that caused it.
type EvaluationError struct {
	Expression string
	Err        error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("error evaluating expression %q: %v", e.Expression, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// Engine evaluates factor expressions against candle frames. The
// expression language is a closed set of builtin functions plus infix
// arithmetic and comparisons; see the builtin table.
//
// An Engine carries no state and is safe for concurrent use.
type Engine struct{}

// NewEngine creates an expression engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate parses and runs an expression over a single frame. The
// result always has the frame's length; scalar expressions broadcast.
func (e *Engine) Evaluate(expression string, frame *dataset.Frame) (dataset.Series, error) {
	root, err := parse(expression)
	if err != nil {
		return nil, &EvaluationError{Expression: expression, Err: err}
	}

	v, err := evalNode(root, buildScope(frame), frame.Len())
	if err != nil {
		return nil, &EvaluationError{Expression: expression, Err: err}
	}
	return v.materialize(frame.Len()), nil
}

// buildScope exposes each frame column under its own name and, when
// free, its lower-cased name.
func buildScope(frame *dataset.Frame) map[string]dataset.Series {
	names := frame.Columns()
	scope := make(map[string]dataset.Series, 2*len(names))
	for _, name := range names {
		col, _ := frame.Column(name)
		scope[name] = col
	}
	for _, name := range names {
		lower := strings.ToLower(name)
		if _, taken := scope[lower]; !taken {
			col, _ := frame.Column(name)
			scope[lower] = col
		}
	}
	return scope
}

func evalNode(nd node, scope map[string]dataset.Series, n int) (value, error) {
	switch node := nd.(type) {
	case literal:
		return scalarValue(node.value), nil

	case columnRef:
		col, ok := scope[node.name]
		if !ok {
			return value{}, fmt.Errorf("unknown column %q at position %d", node.name, node.pos)
		}
		return seriesValue(col), nil

	case unary:
		operand, err := evalNode(node.operand, scope, n)
		if err != nil {
			return value{}, err
		}
		return apply1(operand, func(x float64) float64 { return -x }), nil

	case binary:
		left, err := evalNode(node.left, scope, n)
		if err != nil {
			return value{}, err
		}
		right, err := evalNode(node.right, scope, n)
		if err != nil {
			return value{}, err
		}
		return evalBinary(node.op, left, right, n), nil

	case call:
		fn, ok := builtins[node.name]
		if !ok {
			return value{}, fmt.Errorf("unknown function %q at position %d", node.name, node.pos)
		}
		if len(node.args) < fn.minArgs || len(node.args) > fn.maxArgs {
			if fn.minArgs == fn.maxArgs {
				return value{}, fmt.Errorf("%s expects %d argument(s), got %d", node.name, fn.minArgs, len(node.args))
			}
			return value{}, fmt.Errorf("%s expects %d to %d arguments, got %d", node.name, fn.minArgs, fn.maxArgs, len(node.args))
		}

		args := make([]value, len(node.args))
		for i, argNode := range node.args {
			arg, err := evalNode(argNode, scope, n)
			if err != nil {
				return value{}, err
			}
			args[i] = arg
		}
		return fn.apply(node.name, args, n)
	}

	return value{}, fmt.Errorf("unsupported expression node %T", nd)
}

func evalBinary(op tokenKind, left, right value, n int) value {
	switch op {
	case tokenPlus:
		return apply2(left, right, n, func(x, y float64) float64 { return x + y })
	case tokenMinus:
		return apply2(left, right, n, func(x, y float64) float64 { return x - y })
	case tokenStar:
		return apply2(left, right, n, func(x, y float64) float64 { return x * y })
	case tokenSlash:
		return apply2(left, right, n, func(x, y float64) float64 { return x / y })
	case tokenPower:
		return apply2(left, right, n, math.Pow)
	case tokenGT:
		return apply2(left, right, n, compare(func(x, y float64) bool { return x > y }))
	case tokenLT:
		return apply2(left, right, n, compare(func(x, y float64) bool { return x < y }))
	case tokenGE:
		return apply2(left, right, n, compare(func(x, y float64) bool { return x >= y }))
	case tokenLE:
		return apply2(left, right, n, compare(func(x, y float64) bool { return x <= y }))
	case tokenEQ:
		return apply2(left, right, n, compare(func(x, y float64) bool { return x == y }))
	case tokenNE:
		return apply2(left, right, n, compare(func(x, y float64) bool { return x != y }))
	}
	return value{}
}

// compare lifts a predicate to a 1/0 result. A NaN operand yields NaN
// instead of a silent false.
func compare(pred func(x, y float64) bool) func(x, y float64) float64 {
	return func(x, y float64) float64 {
		if math.IsNaN(x) || math.IsNaN(y) {
			return math.NaN()
		}
		if pred(x, y) {
			return 1
		}
		return 0
	}
}
