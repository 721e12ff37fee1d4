package gateway

import (
	"fmt"
	"strings"
	"time"

	"github.com/apisentry/apisentry/policy"
	"github.com/apisentry/apisentry/reqctx"
	"github.com/apisentry/apisentry/risk"
	"github.com/apisentry/apisentry/schema"
	"github.com/apisentry/apisentry/webhookrule"
)

const defaultReplayGuardCapacity = 4096

// evaluateRoute runs every rule bound to route, in declaration order, and
// returns the hits they produce.
func (g *Gateway) evaluateRoute(route *policy.Route, ctx *reqctx.Context) []risk.Hit {
	var hits []risk.Hit

	effLimits := g.policy.EffectiveLimits(route)
	hits = append(hits, checkLimits("policy.limits", risk.ActionNone, effLimits, ctx)...)

	evalMap := ctx.ToEvalMap()
	for _, rule := range route.Rules {
		switch rule.Type {
		case policy.RuleCEL:
			hits = append(hits, g.evaluateCELRule(rule, evalMap)...)
		case policy.RuleWebhookSignature:
			hits = append(hits, g.evaluateWebhookSignatureRule(rule, ctx)...)
		case policy.RuleWebhookReplay:
			hits = append(hits, g.evaluateWebhookReplayRule(rule, ctx)...)
		case policy.RuleContract:
			hits = append(hits, g.evaluateContractRule(rule, ctx)...)
		case policy.RuleLimits:
			hits = append(hits, g.evaluateLimitsRule(rule, ctx)...)
		}
	}
	return hits
}

// evaluateCELRule treats the rule's expression as a condition the request
// must satisfy: it produces a hit when the expression evaluates to false.
func (g *Gateway) evaluateCELRule(rule policy.Rule, evalMap map[string]any) []risk.Hit {
	if rule.CEL == nil || rule.CEL.Expression == "" {
		return nil
	}
	satisfied, err := g.cel.Evaluate(rule.CEL.Expression, evalMap)
	if err != nil {
		return []risk.Hit{{
			ID:       "policy.cel_error." + rule.ID,
			Severity: risk.Low,
			Message:  fmt.Sprintf("CEL evaluation error: %v", err),
		}}
	}
	if satisfied {
		return nil
	}
	return []risk.Hit{{
		ID:       "policy." + rule.ID,
		Severity: severityFromString(rule.Severity, risk.High),
		Message:  fmt.Sprintf("policy rule %q failed: %s", rule.ID, rule.CEL.Expression),
		Action:   ruleActionToRisk(rule.Action),
	}}
}

// evaluateWebhookSignatureRule verifies the inbound webhook's HMAC
// signature. It populates ctx.Webhook as a side effect — the webhook rule
// evaluators are the only ones permitted to do so; reqctx.Snapshot deliberately omits
// Webhook from the fields it compares, since it is populated mid-pipeline
// rather than at normalization time.
func (g *Gateway) evaluateWebhookSignatureRule(rule policy.Rule, ctx *reqctx.Context) []risk.Hit {
	wv := rule.WebhookSignature
	if wv == nil {
		return nil
	}
	ctx.Webhook.Provider = wv.Provider

	verifier, err := g.webhookVerifier(wv)
	if err != nil {
		return []risk.Hit{{
			ID:       "policy.webhook_config." + rule.ID,
			Severity: risk.Low,
			Message:  err.Error(),
		}}
	}

	err = verifier.Verify(ctx.Headers, ctx.Body.Raw)
	ctx.Webhook.SignatureValid = err == nil
	if err == nil {
		return nil
	}
	return []risk.Hit{{
		ID:       "policy." + rule.ID,
		Severity: severityFromString(rule.Severity, risk.High),
		Message:  fmt.Sprintf("webhook signature verification failed: %v", err),
		Action:   ruleActionToRisk(rule.Action),
	}}
}

func (g *Gateway) evaluateWebhookReplayRule(rule policy.Rule, ctx *reqctx.Context) []risk.Hit {
	wv := rule.WebhookReplay
	if wv == nil || !wv.ReplayProtection {
		return nil
	}

	guard := g.replayGuard(rule.ID)
	key := replayKey(ctx)
	if !guard.Seen(key) {
		return nil
	}
	ctx.Webhook.Replayed = true
	return []risk.Hit{{
		ID:       "policy." + rule.ID,
		Severity: severityFromString(rule.Severity, risk.High),
		Message:  "webhook delivery replay detected",
		Action:   ruleActionToRisk(rule.Action),
	}}
}

// replayKey identifies one webhook delivery. Providers that send a
// unique delivery ID header are keyed by that; otherwise the digest of
// the raw body stands in.
func replayKey(ctx *reqctx.Context) string {
	for _, header := range []string{"x-github-delivery", "x-slack-request-timestamp", "stripe-signature"} {
		if v, ok := ctx.Header(header); ok && v != "" {
			return header + ":" + v
		}
	}
	return "body:" + ctx.Body.SHA256
}

func (g *Gateway) replayGuard(ruleID string) *webhookrule.ReplayGuard {
	if cached, ok := g.replayGuards.Load(ruleID); ok {
		return cached.(*webhookrule.ReplayGuard)
	}
	guard := webhookrule.NewReplayGuard(defaultReplayGuardCapacity, 10*time.Minute)
	actual, _ := g.replayGuards.LoadOrStore(ruleID, guard)
	return actual.(*webhookrule.ReplayGuard)
}

const defaultGenericHMACHeader = "X-Webhook-Signature"

func (g *Gateway) webhookVerifier(wv *policy.WebhookVariant) (*webhookrule.Verifier, error) {
	secret := wv.Secret
	if secret == "" && wv.SecretRef != "" && g.cfg.SecretResolver != nil {
		resolved, err := g.cfg.SecretResolver(wv.SecretRef)
		if err != nil {
			return nil, fmt.Errorf("resolve secret %q: %w", wv.SecretRef, err)
		}
		secret = resolved
	}

	header := defaultGenericHMACHeader
	cfg := webhookrule.Config{
		Provider:           webhookrule.Provider(wv.Provider),
		Secret:             secret,
		TimestampTolerance: time.Duration(wv.TimestampTolerance) * time.Second,
		HeaderName:         header,
	}
	return webhookrule.NewVerifier(cfg)
}

// evaluateContractRule validates the request body against a schema
// referenced from the policy's components section, independent of any
// OpenAPI operation schema.
func (g *Gateway) evaluateContractRule(rule policy.Rule, ctx *reqctx.Context) []risk.Hit {
	cv := rule.Contract
	if cv == nil || cv.RequestSchemaRef == "" || ctx.Body.JSON == nil {
		return nil
	}

	schemaDict, ok := resolveComponentRef(g.policy.Components, cv.RequestSchemaRef)
	if !ok {
		return []risk.Hit{{
			ID:       "policy.contract_config." + rule.ID,
			Severity: risk.Low,
			Message:  fmt.Sprintf("contract rule references unknown schema %q", cv.RequestSchemaRef),
		}}
	}

	validator, err := g.contractValidator(rule.ID, schemaDict)
	if err != nil {
		return []risk.Hit{{
			ID:       "policy.contract_config." + rule.ID,
			Severity: risk.Critical,
			Message:  err.Error(),
		}}
	}

	violations := validator.Validate(ctx.Body.JSON, schema.Options{RejectUnknownFields: cv.RejectUnknownFields})
	hits := make([]risk.Hit, 0, len(violations))
	for _, v := range violations {
		hits = append(hits, risk.Hit{
			ID:       "policy." + rule.ID,
			Severity: severityFromString(rule.Severity, risk.Medium),
			Message:  v.Message,
			Path:     v.Path,
			Value:    v.Value,
			Action:   ruleActionToRisk(rule.Action),
		})
	}
	return hits
}

func (g *Gateway) contractValidator(ruleID string, schemaDict map[string]any) (*schema.Validator, error) {
	if cached, ok := g.contractCache.Load(ruleID); ok {
		return cached.(*schema.Validator), nil
	}
	validator, err := schema.Compile(schemaDict, g.policy.Components)
	if err != nil {
		return nil, err
	}
	actual, _ := g.contractCache.LoadOrStore(ruleID, validator)
	return actual.(*schema.Validator), nil
}

// resolveComponentRef looks up ref against components, accepting either
// a "#/components/..." JSON pointer or a bare "schemas/Foo"-style path
// relative to components itself.
func resolveComponentRef(components map[string]any, ref string) (map[string]any, bool) {
	pointer := strings.TrimPrefix(ref, "#/components/")
	pointer = strings.TrimPrefix(pointer, "#/")
	parts := strings.Split(strings.Trim(pointer, "/"), "/")

	var current any = components
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	result, ok := current.(map[string]any)
	return result, ok
}

func (g *Gateway) evaluateLimitsRule(rule policy.Rule, ctx *reqctx.Context) []risk.Hit {
	if rule.LimitsRule == nil {
		return nil
	}
	return checkLimits("policy."+rule.ID, ruleActionToRisk(rule.Action), rule.LimitsRule.Limits, ctx)
}

func ruleActionToRisk(a policy.RuleAction) risk.Action {
	switch a {
	case policy.ActionAllow:
		return risk.ActionAllow
	case policy.ActionMonitor:
		return risk.ActionMonitor
	case policy.ActionChallenge:
		return risk.ActionChallenge
	default:
		return risk.ActionBlock
	}
}

func severityFromString(s string, def risk.Severity) risk.Severity {
	switch risk.Severity(s) {
	case risk.Low, risk.Medium, risk.High, risk.Critical:
		return risk.Severity(s)
	default:
		return def
	}
}
