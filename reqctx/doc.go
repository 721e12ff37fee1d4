// Package reqctx normalizes an incoming *http.Request into a frozen
// evaluation Context: a stable, read-only snapshot that every pipeline
// evaluator (schema validator, expression evaluator, vulnerability scanner)
// consumes without touching the original request.
//
// # Building a context
//
//	norm := reqctx.New(1<<20, reqctx.Runtime{Language: "go", Service: "checkout"})
//	ctx, err := norm.Normalize(r)
//	if err != nil {
//	    // ErrPayloadTooLarge or ErrBodyParse — the caller decides disposition.
//	}
//
// A Context is considered frozen the moment Normalize returns it: nothing in
// this package or in the gateway package mutates it afterward. Identity
// starts out unauthenticated and may be overwritten exactly once, by an
// external identity provider hook invoked before evaluators run.
package reqctx
