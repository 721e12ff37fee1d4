package gateway

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/apisentry/apisentry/exprlang"
	"github.com/apisentry/apisentry/openapi"
	"github.com/apisentry/apisentry/policy"
	"github.com/apisentry/apisentry/reqctx"
	"github.com/apisentry/apisentry/vuln"
)

// ErrInvalidConfig is returned by New/Middleware/Handler when Config is
// unusable: a policy or OpenAPI path fails to load, or an ExcludePaths
// pattern fails to compile. A Config with neither a policy nor a spec is
// accepted.
var ErrInvalidConfig = errors.New("gateway: invalid configuration")

// Event is the decision record emitted to Logger and LogCallback once
// per request.
type Event struct {
	RequestID  string
	Method     string
	Path       string
	Action     string
	StatusCode int
	Reason     string
	RuleHits   []HitEvent
	RiskScore  int
	RiskLevel  string
	DurationMS float64
}

// HitEvent is the logged projection of a risk.Hit.
type HitEvent struct {
	ID       string
	Severity string
	Message  string
	Path     string
}

// SecretResolver turns a policy WebhookVariant.SecretRef into the actual
// signing secret, e.g. by reading a secret store or environment
// variable. When nil, only the literal WebhookVariant.Secret is used.
type SecretResolver func(ref string) (string, error)

// IdentityProvider inspects an inbound request and returns the Identity
// to install into its Context before any evaluator runs. Returning the
// zero Identity leaves the request unauthenticated.
type IdentityProvider func(r *http.Request) reqctx.Identity

// Config configures a Gateway.
type Config struct {
	// Policy is a preloaded policy set. If nil, PolicyPath is loaded
	// instead. If both are empty, no policy rules run and no
	// unmatched-route hit is produced.
	Policy     *policy.Set
	PolicyPath string

	// OpenAPI is a preloaded spec. If nil, OpenAPIPath is loaded
	// instead. Schema validation is skipped entirely when neither is
	// set, regardless of ValidateRequest.
	OpenAPI     *openapi.Spec
	OpenAPIPath string

	// ValidateRequest enables OpenAPI request-body schema validation.
	ValidateRequest bool
	// ValidateResponse is accepted for configuration-surface parity
	// but intentionally unimplemented: response-body validation is a
	// carried Non-goal.
	ValidateResponse bool

	// VulnerabilityScan enables the vuln scanner over parsed JSON
	// bodies. When a policy is configured, the detector families come
	// from its VulnerabilityChecks (the matched route's overrides, or
	// the policy defaults for unmatched requests). Vulnerability is
	// used only when no policy is configured; its zero value means
	// vuln.DefaultConfig().
	VulnerabilityScan bool
	Vulnerability     vuln.Config

	// Mode is the enforcement mode used when no policy is configured.
	// When a policy is configured, policy.Set.EffectiveMode (the
	// route's override, or the policy default) is used instead, for
	// matched and unmatched requests alike. Defaults to
	// policy.ModeEnforce.
	Mode policy.Mode

	// BlockResponseCode is the status used for a BLOCK outcome.
	// Defaults to 403, or to the policy default's ResponseBlockStatus
	// when a policy is configured and leaves this at zero.
	BlockResponseCode int
	// BlockResponseBody overrides the default
	// {"error":"Forbidden","message":<reason>} body.
	BlockResponseBody map[string]any
	// ChallengeStatusCode is the status used for a CHALLENGE outcome.
	// Defaults to 401.
	ChallengeStatusCode int

	// LogDecisions emits one Event per request via Logger.
	LogDecisions bool
	// LogCallback, if set, additionally receives every Event. A panic
	// or error inside it is recovered and logged at warn; it never
	// aborts the request.
	LogCallback func(Event)
	// Logger receives decision events at Info (allow/monitor) or Warn
	// (block/challenge). Defaults to slog.Default().
	Logger *slog.Logger

	// MaxBodySize caps the number of request body bytes read.
	// Defaults to 1 MiB.
	MaxBodySize int64

	// ExcludePaths are regex patterns (start-anchored) checked against
	// the request path before any other work happens.
	ExcludePaths []string

	// CELEvaluator overrides the safe-grammar default
	// (exprlang.NewSafe()) used to evaluate policy CEL rules.
	CELEvaluator exprlang.Evaluator

	// IdentityProvider installs an Identity before evaluators run.
	IdentityProvider IdentityProvider

	// SecretResolver resolves a webhook rule's SecretRef. Optional.
	SecretResolver SecretResolver

	// Runtime is stamped onto every built Context.
	Runtime reqctx.Runtime
}
