package exprlang

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ExprLang evaluates the full expr-lang/expr grammar, for rules whose
// condition needs more than Safe's fixed pattern set. Compiled programs
// are cached by expression text; concurrent evaluators of the same
// expression share one compilation.
type ExprLang struct {
	programs sync.Map // string -> *vm.Program
}

// NewExprLang returns an ExprLang evaluator with an empty program cache.
func NewExprLang() *ExprLang {
	return &ExprLang{}
}

// Evaluate compiles (or reuses a cached compilation of) expression and
// runs it against ctx, expecting a boolean result.
func (e *ExprLang) Evaluate(expression string, ctx map[string]any) (bool, error) {
	program, err := e.compile(expression)
	if err != nil {
		return false, err
	}

	out, err := expr.Run(program, ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrEvaluationFailed, err)
	}

	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("%w: expression %q did not evaluate to a boolean", ErrEvaluationFailed, expression)
	}
	return b, nil
}

func (e *ExprLang) compile(expression string) (*vm.Program, error) {
	if cached, ok := e.programs.Load(expression); ok {
		return cached.(*vm.Program), nil
	}

	program, err := expr.Compile(expression, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("%w: compile %q: %v", ErrEvaluationFailed, expression, err)
	}

	actual, _ := e.programs.LoadOrStore(expression, program)
	return actual.(*vm.Program), nil
}
