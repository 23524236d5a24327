package formula

import (
	"fmt"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// DefaultProgramCacheSize bounds the number of compiled bodies kept around.
const DefaultProgramCacheSize = 512

// ExprEngine evaluates formula bodies with expr-lang/expr. Compiled programs
// are cached by body text and VMs are pooled, so re-evaluating the same
// formulas during a recompute is cheap.
type ExprEngine struct {
	compilerOptions []expr.Option
	programs        *programCache
	vmPool          sync.Pool
}

var _ Engine = (*ExprEngine)(nil)

func NewExprEngine(cacheSize int) *ExprEngine {
	if cacheSize <= 0 {
		cacheSize = DefaultProgramCacheSize
	}

	options := []expr.Option{
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
		expr.DisableAllBuiltins(),
		expr.Optimize(false),
	}
	options = append(options, functionOptions()...)

	return &ExprEngine{
		compilerOptions: options,
		programs:        newProgramCache(cacheSize),
		vmPool: sync.Pool{
			New: func() any {
				return new(vm.VM)
			},
		},
	}
}

func (e *ExprEngine) Evaluate(body string, bindings map[string]float64) (result Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = Value{}, newFault(body, "run", fmt.Errorf("%v", r))
		}
	}()

	if strings.TrimSpace(body) == "" {
		return Value{}, newFault(body, "empty formula", nil)
	}

	program, err := e.compile(body)
	if err != nil {
		return Value{}, newFault(body, "compile", err)
	}

	env := make(map[string]any, len(bindings))
	for name, v := range bindings {
		env[name] = v
	}

	machine := e.vmPool.Get().(*vm.VM)
	out, err := machine.Run(program, env)
	e.vmPool.Put(machine)
	if err != nil {
		return Value{}, newFault(body, "run", err)
	}

	return toValue(body, out)
}

// CachedPrograms reports how many compiled bodies are cached.
func (e *ExprEngine) CachedPrograms() int {
	return e.programs.Len()
}

func (e *ExprEngine) compile(body string) (*vm.Program, error) {
	if program, ok := e.programs.Get(body); ok {
		return program, nil
	}
	program, err := expr.Compile(body, e.compilerOptions...)
	if err != nil {
		return nil, err
	}
	e.programs.Put(body, program)
	return program, nil
}

func toValue(body string, out any) (Value, error) {
	switch v := out.(type) {
	case int:
		return Number(float64(v)), nil
	case int64:
		return Number(float64(v)), nil
	case int32:
		return Number(float64(v)), nil
	case uint:
		return Number(float64(v)), nil
	case float32:
		return finiteNumber(body, float64(v))
	case float64:
		return finiteNumber(body, v)
	case bool:
		if v {
			return Text("TRUE"), nil
		}
		return Text("FALSE"), nil
	case string:
		return Text(v), nil
	case nil:
		return Value{}, newFault(body, "no value", nil)
	default:
		return Value{}, newFault(body, fmt.Sprintf("unsupported result type %T", out), nil)
	}
}

func finiteNumber(body string, f float64) (Value, error) {
	if !isFinite(f) {
		return Value{}, newFault(body, "non-finite result", nil)
	}
	return Number(f), nil
}
