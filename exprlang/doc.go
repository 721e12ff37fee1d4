// Package exprlang evaluates the boolean expressions attached to CEL-type
// policy rules against a request's evaluation map (reqctx.Context.ToEvalMap).
//
// Two Evaluator implementations are provided behind the same interface:
//
//   - Safe recognizes a small, fixed set of comparison patterns (equality,
//     inequality, scalar membership, size and numeric comparisons, and
//     short-circuiting && / ||) without evaluating arbitrary code. It is
//     the default.
//   - ExprLang compiles and runs the full github.com/expr-lang/expr
//     grammar, for policies that need more than the safe subset. Compiled
//     programs are cached per expression string.
//
//	eval := exprlang.NewSafe()
//	ok, err := eval.Evaluate(`identity.tenant == request.body.json.tenantId`, ctx.ToEvalMap())
package exprlang
