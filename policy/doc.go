// Package policy loads and resolves declarative route policies: which
// mode a route runs in, what request limits and vulnerability checks
// apply to it, and which rules (CEL expressions, webhook signature and
// replay checks, contract overrides, limit overrides) evaluate against
// it.
//
//	set, err := policy.LoadFile("policy.yaml")
//	route := set.MatchRoute(http.MethodPost, "/webhooks/github")
//	mode := set.EffectiveMode(route)
//	limits := set.EffectiveLimits(route)
//
// A Set is immutable once loaded; reloading means loading a new one
// and swapping it in atomically at the call site (see gateway.Config).
package policy
