// Package keyexpr compiles user-supplied sort keys such as "(R+G+B)/3" or
// "max(R, G, B)" into functions over pixels. The variables R, G and B hold
// the channel values 0-255; the result is truncated to an integer.
package keyexpr

import (
	"errors"
	"fmt"
	"math"

	"github.com/knetic/govaluate"

	"github.com/anas-shakeel/imgsort/internal/pixbuf"
)

var ErrInvalid = errors.New("invalid sort key expression")

var variables = map[string]bool{"R": true, "G": true, "B": true}

// Expr is a compiled sort key expression. It is not safe for concurrent use.
type Expr struct {
	src    string
	expr   *govaluate.EvaluableExpression
	params map[string]interface{}
	err    error
}

// Functions usable in expressions
func functions() map[string]govaluate.ExpressionFunction {
	numbers := func(name string, args []interface{}) ([]float64, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("%s expects at least 1 argument", name)
		}
		out := make([]float64, len(args))
		for i, arg := range args {
			v, ok := arg.(float64)
			if !ok {
				return nil, fmt.Errorf("arg %d of %s must be numeric", i+1, name)
			}
			out[i] = v
		}
		return out, nil
	}

	return map[string]govaluate.ExpressionFunction{
		"min": func(args ...interface{}) (interface{}, error) {
			n, err := numbers("min", args)
			if err != nil {
				return nil, err
			}
			m := n[0]
			for _, v := range n[1:] {
				m = math.Min(m, v)
			}
			return m, nil
		},
		"max": func(args ...interface{}) (interface{}, error) {
			n, err := numbers("max", args)
			if err != nil {
				return nil, err
			}
			m := n[0]
			for _, v := range n[1:] {
				m = math.Max(m, v)
			}
			return m, nil
		},
		"avg": func(args ...interface{}) (interface{}, error) {
			n, err := numbers("avg", args)
			if err != nil {
				return nil, err
			}
			var sum float64
			for _, v := range n {
				sum += v
			}
			return math.Trunc(sum / float64(len(n))), nil
		},
		"abs": func(args ...interface{}) (interface{}, error) {
			n, err := numbers("abs", args)
			if err != nil {
				return nil, err
			}
			if len(n) != 1 {
				return nil, fmt.Errorf("abs expects 1 argument")
			}
			return math.Abs(n[0]), nil
		},
	}
}

// Evaluated once by Compile
var midGray = pixbuf.Pixel{B: 128, G: 128, R: 128}

// Compile parses src and checks that it yields a number for a mid-gray
// pixel. Expressions that divide by a channel compile, but fail at sort
// time if a pixel makes the divisor zero.
func Compile(src string) (*Expr, error) {
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(src, functions())
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalid, src, err)
	}
	for _, v := range expr.Vars() {
		if !variables[v] {
			return nil, fmt.Errorf("%w %q: unknown variable %q (use R, G, B)", ErrInvalid, src, v)
		}
	}

	e := &Expr{src: src, expr: expr, params: make(map[string]interface{}, 3)}
	if _, err := e.Eval(midGray); err != nil {
		return nil, err
	}
	return e, nil
}

// String returns the source of the expression.
func (e *Expr) String() string { return e.src }

// Eval computes the key of p.
func (e *Expr) Eval(p pixbuf.Pixel) (int, error) {
	e.params["R"] = float64(p.R)
	e.params["G"] = float64(p.G)
	e.params["B"] = float64(p.B)

	result, err := e.expr.Evaluate(e.params)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %w", ErrInvalid, e.src, err)
	}
	v, ok := result.(float64)
	if !ok {
		return 0, fmt.Errorf("%w %q: result %v is not a number", ErrInvalid, e.src, result)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w %q: result %v is not finite", ErrInvalid, e.src, v)
	}
	return int(v), nil
}

// Key is Eval for use as a filters.KeyFunc. The first evaluation error is
// kept for Err and the failing pixel gets key 0.
func (e *Expr) Key(p pixbuf.Pixel) int {
	k, err := e.Eval(p)
	if err != nil && e.err == nil {
		e.err = err
	}
	return k
}

// Err returns the first error seen by Key.
func (e *Expr) Err() error { return e.err }
