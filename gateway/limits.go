package gateway

import (
	"fmt"

	"github.com/apisentry/apisentry/policy"
	"github.com/apisentry/apisentry/reqctx"
	"github.com/apisentry/apisentry/risk"
)

// checkLimits enforces limits against ctx's body, tagging every produced
// hit with idPrefix and action. Called both for a route's blanket Limits
// (action ActionNone, never rule-gated) and for a RuleLimits-typed rule
// (action from the rule).
func checkLimits(idPrefix string, action risk.Action, limits policy.Limits, ctx *reqctx.Context) []risk.Hit {
	var hits []risk.Hit

	if limits.MaxBodyBytes != nil && int64(ctx.Body.SizeBytes) > *limits.MaxBodyBytes {
		hits = append(hits, risk.Hit{
			ID:       idPrefix + ".max_body_bytes",
			Severity: risk.Medium,
			Message:  fmt.Sprintf("body size %d exceeds limit %d", ctx.Body.SizeBytes, *limits.MaxBodyBytes),
			Action:   action,
		})
	}

	if ctx.Body.JSON == nil {
		return hits
	}

	if limits.MaxJSONDepth != nil {
		if depth := jsonDepth(ctx.Body.JSON); depth > *limits.MaxJSONDepth {
			hits = append(hits, risk.Hit{
				ID:       idPrefix + ".max_json_depth",
				Severity: risk.Medium,
				Message:  fmt.Sprintf("json depth %d exceeds limit %d", depth, *limits.MaxJSONDepth),
				Action:   action,
			})
		}
	}

	if limits.MaxArrayLength != nil {
		if length := maxArrayLength(ctx.Body.JSON); length > *limits.MaxArrayLength {
			hits = append(hits, risk.Hit{
				ID:       idPrefix + ".max_array_length",
				Severity: risk.Medium,
				Message:  fmt.Sprintf("array length %d exceeds limit %d", length, *limits.MaxArrayLength),
				Action:   action,
			})
		}
	}

	return hits
}

// jsonDepth returns the nesting depth of v: a scalar is depth 0, an
// object or array one level deeper than its deepest child.
func jsonDepth(v any) int {
	switch t := v.(type) {
	case map[string]any:
		return 1 + maxChildDepth(mapValues(t))
	case []any:
		return 1 + maxChildDepth(t)
	default:
		return 0
	}
}

func maxChildDepth(children []any) int {
	max := 0
	for _, child := range children {
		if d := jsonDepth(child); d > max {
			max = d
		}
	}
	return max
}

func mapValues(m map[string]any) []any {
	out := make([]any, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

// maxArrayLength returns the length of the longest array anywhere in v.
func maxArrayLength(v any) int {
	switch t := v.(type) {
	case map[string]any:
		max := 0
		for _, child := range t {
			if l := maxArrayLength(child); l > max {
				max = l
			}
		}
		return max
	case []any:
		max := len(t)
		for _, child := range t {
			if l := maxArrayLength(child); l > max {
				max = l
			}
		}
		return max
	default:
		return 0
	}
}
