package formula

import (
	"fmt"
	"math"

	"github.com/expr-lang/expr"
)

type mathFunction struct {
	name string
	fn   func(args ...float64) (float64, error)
}

var mathFunctions = []mathFunction{
	{"SUM", sum},
	{"AVG", avg},
	{"AVERAGE", avg},
	{"MIN", minOf},
	{"MAX", maxOf},
	{"ABS", unary("ABS", math.Abs)},
	{"SQRT", unary("SQRT", math.Sqrt)},
	{"FLOOR", unary("FLOOR", math.Floor)},
	{"CEIL", unary("CEIL", math.Ceil)},
	{"ROUND", round},
	{"POW", pow},
}

// functionOptions registers the spreadsheet functions under their upper and
// lower case names, plus IF, which keeps its argument types.
func functionOptions() []expr.Option {
	options := make([]expr.Option, 0, len(mathFunctions)*2+1)
	for _, f := range mathFunctions {
		call := numericCall(f.name, f.fn)
		options = append(options, expr.Function(f.name, call))
		if lower := toLower(f.name); lower != f.name {
			options = append(options, expr.Function(lower, call))
		}
	}
	options = append(options, expr.Function("IF", ifFunction))
	return options
}

func numericCall(name string, fn func(args ...float64) (float64, error)) func(params ...any) (any, error) {
	return func(params ...any) (any, error) {
		args := make([]float64, len(params))
		for i, p := range params {
			f, err := toFloat(p)
			if err != nil {
				return nil, fmt.Errorf("%s argument %d: %w", name, i+1, err)
			}
			args[i] = f
		}
		return fn(args...)
	}
}

func ifFunction(params ...any) (any, error) {
	if len(params) != 3 {
		return nil, fmt.Errorf("IF expects 3 arguments, got %d", len(params))
	}
	cond, err := truthy(params[0])
	if err != nil {
		return nil, fmt.Errorf("IF condition: %w", err)
	}
	if cond {
		return params[1], nil
	}
	return params[2], nil
}

func sum(args ...float64) (float64, error) {
	total := 0.0
	for _, a := range args {
		total += a
	}
	return total, nil
}

func avg(args ...float64) (float64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("AVG needs at least one argument")
	}
	total, _ := sum(args...)
	return total / float64(len(args)), nil
}

func minOf(args ...float64) (float64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("MIN needs at least one argument")
	}
	m := args[0]
	for _, a := range args[1:] {
		if a < m {
			m = a
		}
	}
	return m, nil
}

func maxOf(args ...float64) (float64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("MAX needs at least one argument")
	}
	m := args[0]
	for _, a := range args[1:] {
		if a > m {
			m = a
		}
	}
	return m, nil
}

func round(args ...float64) (float64, error) {
	switch len(args) {
	case 1:
		return math.Round(args[0]), nil
	case 2:
		scale := math.Pow(10, math.Trunc(args[1]))
		return math.Round(args[0]*scale) / scale, nil
	default:
		return 0, fmt.Errorf("ROUND expects 1 or 2 arguments, got %d", len(args))
	}
}

func pow(args ...float64) (float64, error) {
	if len(args) != 2 {
		return 0, fmt.Errorf("POW expects 2 arguments, got %d", len(args))
	}
	return math.Pow(args[0], args[1]), nil
}

func unary(name string, fn func(float64) float64) func(args ...float64) (float64, error) {
	return func(args ...float64) (float64, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("%s expects 1 argument, got %d", name, len(args))
		}
		return fn(args[0]), nil
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}

func truthy(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	default:
		f, err := toFloat(v)
		if err != nil {
			return false, err
		}
		return f != 0, nil
	}
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
