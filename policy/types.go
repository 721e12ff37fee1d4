package policy

// Mode is the enforcement mode a route runs under.
type Mode string

const (
	ModeEnforce Mode = "enforce"
	ModeMonitor Mode = "monitor"
)

// UnmatchedAction controls what happens to a request whose method and
// path don't match any configured route.
type UnmatchedAction string

const (
	UnmatchedAllow   UnmatchedAction = "allow"
	UnmatchedBlock   UnmatchedAction = "block"
	UnmatchedMonitor UnmatchedAction = "monitor"
)

// RuleType selects which Variant a Rule carries.
type RuleType string

const (
	RuleCEL              RuleType = "cel"
	RuleWebhookSignature RuleType = "webhook-signature"
	RuleWebhookReplay    RuleType = "webhook-replay"
	RuleContract         RuleType = "contract"
	RuleLimits           RuleType = "limits"
)

// RuleAction is the disposition applied to a Hit a rule produces. It mirrors risk.Action; the gateway package maps
// between the two at the evaluator boundary so this package stays free
// of a risk import.
type RuleAction string

const (
	ActionAllow     RuleAction = "allow"
	ActionBlock     RuleAction = "block"
	ActionMonitor   RuleAction = "monitor"
	ActionChallenge RuleAction = "challenge"
)

// Limits bounds request shape. A nil field means "not set at this
// level"; EffectiveLimits fills nil fields from the default.
type Limits struct {
	MaxBodyBytes   *int64
	MaxJSONDepth   *int
	MaxArrayLength *int
}

// VulnerabilityChecks toggles which scanner detector families run.
// PrototypePollution, PathTraversal, and SSRFInternal default on;
// NoSQLInjection and CommandInjection are opt-in, matching the posture of
// checks cheap enough to always run versus checks narrow enough to need
// explicit enablement.
type VulnerabilityChecks struct {
	PrototypePollution *bool
	PathTraversal      *bool
	SSRFInternal       *bool
	NoSQLInjection     *bool
	CommandInjection   *bool
}

// DefaultVulnerabilityChecks returns the zero-configuration posture.
func DefaultVulnerabilityChecks() VulnerabilityChecks {
	return VulnerabilityChecks{
		PrototypePollution: boolPtr(true),
		PathTraversal:      boolPtr(true),
		SSRFInternal:       boolPtr(true),
		NoSQLInjection:     boolPtr(false),
		CommandInjection:   boolPtr(false),
	}
}

func boolPtr(b bool) *bool { return &b }

// ContractVariant overrides request/response schema validation for the
// route a Rule of type RuleContract is attached to.
type ContractVariant struct {
	RequestSchemaRef    string
	ResponseSchemaRef   string
	RejectUnknownFields bool
}

// WebhookVariant configures signature verification and/or replay
// protection for one provider. It backs both RuleWebhookSignature and
// RuleWebhookReplay rules, and the route-level Webhook field that the
// gateway consults before any rule-level override.
type WebhookVariant struct {
	Provider           string
	SecretRef          string
	Secret             string
	RequireRawBody     bool
	TimestampTolerance int // seconds
	ReplayProtection   bool
	AllowedEventTypes  []string
}

// CELVariant is a single boolean expression evaluated against the
// request's evaluation map.
type CELVariant struct {
	Expression string
}

// LimitsVariant lets a rule (as opposed to a route-level Limits field)
// carry its own request-shape ceiling, so violating it can be scored and
// gated independently from the route's blanket limits.
type LimitsVariant struct {
	Limits Limits
}

// Rule is one policy rule. Exactly one of the Variant fields is set,
// matching Type. The sum is expressed as typed fields rather than an
// `any` to keep evaluation a type switch instead of a repeated
// map[string]any decode per request.
type Rule struct {
	ID       string
	Type     RuleType
	Action   RuleAction
	Severity string

	CEL              *CELVariant
	WebhookSignature *WebhookVariant
	WebhookReplay    *WebhookVariant
	Contract         *ContractVariant
	LimitsRule       *LimitsVariant
}

// RouteMatch identifies a route by exact method and path.
type RouteMatch struct {
	Method string
	Path   string
}

// Route is one configured route's policy.
type Route struct {
	ID            string
	Match         RouteMatch
	Mode          *Mode
	Contract      *ContractVariant
	Webhook       *WebhookVariant
	Vulnerability *VulnerabilityChecks
	Rules         []Rule
	Limits        *Limits
}

// Defaults are the fallback settings applied when a route doesn't
// override them.
type Defaults struct {
	Mode                 Mode
	UnmatchedRouteAction UnmatchedAction
	ResponseBlockStatus  int
	Limits               Limits
	VulnerabilityChecks  VulnerabilityChecks
}

// DefaultDefaults returns the policy's zero-configuration defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		Mode:                 ModeEnforce,
		UnmatchedRouteAction: UnmatchedAllow,
		ResponseBlockStatus:  403,
		VulnerabilityChecks:  DefaultVulnerabilityChecks(),
	}
}

// Set is a fully loaded, immutable policy configuration.
type Set struct {
	Version    string
	Defaults   Defaults
	Routes     []Route
	Components map[string]any
}

// MatchRoute returns the first route whose method and path match exactly
// (case-insensitive on method), or nil if none do.
func (s *Set) MatchRoute(method, path string) *Route {
	upper := upperASCII(method)
	for i := range s.Routes {
		r := &s.Routes[i]
		if upperASCII(r.Match.Method) == upper && r.Match.Path == path {
			return r
		}
	}
	return nil
}

// EffectiveMode returns route's mode override, or the policy default.
func (s *Set) EffectiveMode(route *Route) Mode {
	if route != nil && route.Mode != nil {
		return *route.Mode
	}
	return s.Defaults.Mode
}

// EffectiveLimits merges route's limits over the policy default,
// field by field; a nil field at the route level inherits the default.
func (s *Set) EffectiveLimits(route *Route) Limits {
	out := s.Defaults.Limits
	if route == nil || route.Limits == nil {
		return out
	}
	if route.Limits.MaxBodyBytes != nil {
		out.MaxBodyBytes = route.Limits.MaxBodyBytes
	}
	if route.Limits.MaxJSONDepth != nil {
		out.MaxJSONDepth = route.Limits.MaxJSONDepth
	}
	if route.Limits.MaxArrayLength != nil {
		out.MaxArrayLength = route.Limits.MaxArrayLength
	}
	return out
}

// EffectiveVulnerabilityChecks merges route's checks over the policy
// default, field by field.
func (s *Set) EffectiveVulnerabilityChecks(route *Route) VulnerabilityChecks {
	out := s.Defaults.VulnerabilityChecks
	if route == nil || route.Vulnerability == nil {
		return out
	}
	v := route.Vulnerability
	if v.PrototypePollution != nil {
		out.PrototypePollution = v.PrototypePollution
	}
	if v.PathTraversal != nil {
		out.PathTraversal = v.PathTraversal
	}
	if v.SSRFInternal != nil {
		out.SSRFInternal = v.SSRFInternal
	}
	if v.NoSQLInjection != nil {
		out.NoSQLInjection = v.NoSQLInjection
	}
	if v.CommandInjection != nil {
		out.CommandInjection = v.CommandInjection
	}
	return out
}

func upperASCII(s string) string {
	b := []byte(s)
	changed := false
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
			changed = true
		}
	}
	if !changed {
		return s
	}
	return string(b)
}
