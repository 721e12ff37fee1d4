// Package gateway wires the normalizer, vulnerability scanner, schema
// validator, expression evaluators, and risk reducer into a single
// request pipeline: the Pipeline Driver. It is the one component an
// embedding service actually talks to.
//
// Construct a Gateway from a Config and wrap a handler:
//
//	mw, err := gateway.Middleware(gateway.Config{
//	    PolicyPath:        "policy.yaml",
//	    OpenAPIPath:       "openapi.yaml",
//	    ValidateRequest:   true,
//	    VulnerabilityScan: true,
//	    Mode:              policy.ModeEnforce,
//	    Logger:            slog.Default(),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	router.Use(mw)
//
// Or, without the mux router, wrap a plain http.Handler directly:
//
//	handler, err := gateway.Handler(cfg, next)
//
// Per request, the driver: checks path exclusions, normalizes the
// request into a reqctx.Context, runs the vulnerability scanner and
// schema validator, evaluates the matched policy route's rules,
// aggregates every hit through a risk.Reducer, logs the decision, and
// either forwards the request or synthesizes a block/challenge
// response. See risk, policy, reqctx, vuln, schema, exprlang, and
// webhookrule for the components it drives.
package gateway
