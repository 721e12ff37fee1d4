// Package risk turns the raw findings produced by the vulnerability
// scanner, schema validator, and policy evaluator into a single Decision.
//
// Every evaluator in the pipeline emits zero or more Hits. The Reducer
// combines them into a Score (a numeric score plus a max severity
// level) and resolves a Decision: ALLOW, MONITOR, BLOCK, or CHALLENGE.
//
//	var hits []risk.Hit
//	hits = append(hits, scanHits...)   // vuln.Finding values converted to Hit
//	hits = append(hits, schemaHits...) // schema.Violation values converted to Hit
//	hits = append(hits, policyHits...)
//
//	reducer := risk.NewReducer()
//	decision := reducer.Decide(hits, risk.Mode("enforce"))
package risk
