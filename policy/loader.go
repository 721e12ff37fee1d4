package policy

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrUnsupportedVersion is returned when policyVersion is set to anything
// but "0.1"; an absent policyVersion is read as "0.1".
var ErrUnsupportedVersion = errors.New("policy: unsupported policyVersion")

// ErrInvalidPolicy is returned when the document is structurally invalid
// (wrong top-level shape or unknown enum value). A missing field is not an
// error: it takes its default.
var ErrInvalidPolicy = errors.New("policy: invalid policy document")

const supportedVersion = "0.1"

// LoadFile loads a policy document from disk. Both YAML and JSON are
// accepted (a JSON document is a YAML document).
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: read %s: %w", path, err)
	}
	return LoadBytes(data)
}

// rawDoc mirrors the on-wire document shape before conversion to Set.
type rawDoc struct {
	PolicyVersion string         `yaml:"policyVersion"`
	Defaults      rawDefaults    `yaml:"defaults"`
	Routes        []rawRoute     `yaml:"routes"`
	Components    map[string]any `yaml:"components"`
}

type rawDefaults struct {
	Mode                 string             `yaml:"mode"`
	UnmatchedRouteAction string             `yaml:"unmatchedRouteAction"`
	Response             rawResponse        `yaml:"response"`
	Limits               rawLimits          `yaml:"limits"`
	VulnerabilityChecks  rawVulnerability   `yaml:"vulnerabilityChecks"`
}

type rawResponse struct {
	BlockStatusCode int `yaml:"blockStatusCode"`
}

type rawLimits struct {
	MaxBodyBytes   *int64 `yaml:"maxBodyBytes"`
	MaxJSONDepth   *int   `yaml:"maxJsonDepth"`
	MaxArrayLength *int   `yaml:"maxArrayLength"`
}

type rawVulnerability struct {
	PrototypePollution *bool `yaml:"prototypePollution"`
	PathTraversal      *bool `yaml:"pathTraversal"`
	SSRFInternal       *bool `yaml:"ssrfInternal"`
	NoSQLInjection     *bool `yaml:"nosqlInjection"`
	CommandInjection   *bool `yaml:"commandInjection"`
}

type rawRoute struct {
	ID            string           `yaml:"id"`
	Match         rawMatch         `yaml:"match"`
	Mode          string           `yaml:"mode"`
	Contract      *rawContract     `yaml:"contract"`
	Webhook       *rawWebhook      `yaml:"webhook"`
	Vulnerability *rawVulnerability `yaml:"vulnerability"`
	Rules         []rawRule        `yaml:"rules"`
	Limits        *rawLimits       `yaml:"limits"`
}

type rawMatch struct {
	Method string `yaml:"method"`
	Path   string `yaml:"path"`
}

type rawContract struct {
	RequestSchemaRef    string `yaml:"requestSchemaRef"`
	ResponseSchemaRef   string `yaml:"responseSchemaRef"`
	RejectUnknownFields bool   `yaml:"rejectUnknownFields"`
}

type rawWebhook struct {
	Provider           string   `yaml:"provider"`
	SecretRef          string   `yaml:"secretRef"`
	Secret             string   `yaml:"secret"`
	RequireRawBody     *bool    `yaml:"requireRawBody"`
	TimestampTolerance *int     `yaml:"timestampTolerance"`
	ReplayProtection   *bool    `yaml:"replayProtection"`
	AllowedEventTypes  []string `yaml:"allowedEventTypes"`
}

type rawRule struct {
	ID       string         `yaml:"id"`
	Type     string         `yaml:"type"`
	Action   string         `yaml:"action"`
	Severity string         `yaml:"severity"`
	Config   map[string]any `yaml:"config"`
}

// LoadBytes parses a policy document already in memory.
func LoadBytes(data []byte) (*Set, error) {
	var doc rawDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}

	version := doc.PolicyVersion
	if version == "" {
		version = supportedVersion
	}
	if version != supportedVersion {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, version)
	}

	defaults, err := convertDefaults(doc.Defaults)
	if err != nil {
		return nil, err
	}

	routes := make([]Route, 0, len(doc.Routes))
	for _, rr := range doc.Routes {
		route, err := convertRoute(rr)
		if err != nil {
			return nil, err
		}
		routes = append(routes, route)
	}

	return &Set{
		Version:    version,
		Defaults:   defaults,
		Routes:     routes,
		Components: doc.Components,
	}, nil
}

func convertDefaults(d rawDefaults) (Defaults, error) {
	out := DefaultDefaults()

	if d.Mode != "" {
		mode, err := parseMode(d.Mode)
		if err != nil {
			return Defaults{}, err
		}
		out.Mode = mode
	}
	if d.UnmatchedRouteAction != "" {
		action, err := parseUnmatchedAction(d.UnmatchedRouteAction)
		if err != nil {
			return Defaults{}, err
		}
		out.UnmatchedRouteAction = action
	}
	if d.Response.BlockStatusCode != 0 {
		out.ResponseBlockStatus = d.Response.BlockStatusCode
	}
	out.Limits = convertLimits(d.Limits)
	out.VulnerabilityChecks = convertVulnerability(d.VulnerabilityChecks, DefaultVulnerabilityChecks())
	return out, nil
}

func convertLimits(l rawLimits) Limits {
	return Limits{
		MaxBodyBytes:   l.MaxBodyBytes,
		MaxJSONDepth:   l.MaxJSONDepth,
		MaxArrayLength: l.MaxArrayLength,
	}
}

// convertVulnerability fills any unset field from base so a default-level
// document that omits a key still gets its always-true/opt-in posture.
func convertVulnerability(v rawVulnerability, base VulnerabilityChecks) VulnerabilityChecks {
	out := base
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

func convertRoute(r rawRoute) (Route, error) {
	out := Route{
		ID: orDefault(r.ID, "unnamed"),
		Match: RouteMatch{
			Method: orDefault(r.Match.Method, "GET"),
			Path:   orDefault(r.Match.Path, "/"),
		},
	}

	if r.Mode != "" {
		mode, err := parseMode(r.Mode)
		if err != nil {
			return Route{}, err
		}
		out.Mode = &mode
	}

	if r.Contract != nil {
		out.Contract = &ContractVariant{
			RequestSchemaRef:    r.Contract.RequestSchemaRef,
			ResponseSchemaRef:   r.Contract.ResponseSchemaRef,
			RejectUnknownFields: r.Contract.RejectUnknownFields,
		}
	}

	if r.Webhook != nil {
		out.Webhook = convertWebhook(r.Webhook)
	}

	if r.Vulnerability != nil {
		vuln := convertVulnerability(*r.Vulnerability, VulnerabilityChecks{})
		out.Vulnerability = &vuln
	}

	if r.Limits != nil {
		limits := convertLimits(*r.Limits)
		out.Limits = &limits
	}

	rules := make([]Rule, 0, len(r.Rules))
	for _, rr := range r.Rules {
		rule, err := convertRule(rr)
		if err != nil {
			return Route{}, err
		}
		rules = append(rules, rule)
	}
	out.Rules = rules

	return out, nil
}

func convertWebhook(w *rawWebhook) *WebhookVariant {
	requireRawBody := true
	if w.RequireRawBody != nil {
		requireRawBody = *w.RequireRawBody
	}
	tolerance := 300
	if w.TimestampTolerance != nil {
		tolerance = *w.TimestampTolerance
	}
	replayProtection := true
	if w.ReplayProtection != nil {
		replayProtection = *w.ReplayProtection
	}
	return &WebhookVariant{
		Provider:           w.Provider,
		SecretRef:          w.SecretRef,
		Secret:             w.Secret,
		RequireRawBody:     requireRawBody,
		TimestampTolerance: tolerance,
		ReplayProtection:   replayProtection,
		AllowedEventTypes:  w.AllowedEventTypes,
	}
}

func convertRule(r rawRule) (Rule, error) {
	ruleType, err := parseRuleType(orDefault(r.Type, "cel"))
	if err != nil {
		return Rule{}, err
	}
	action, err := parseRuleAction(orDefault(r.Action, "block"))
	if err != nil {
		return Rule{}, err
	}

	out := Rule{
		ID:       orDefault(r.ID, "unnamed"),
		Type:     ruleType,
		Action:   action,
		Severity: orDefault(r.Severity, "high"),
	}

	switch ruleType {
	case RuleCEL:
		expr, _ := r.Config["expression"].(string)
		out.CEL = &CELVariant{Expression: expr}
	case RuleWebhookSignature:
		out.WebhookSignature = webhookVariantFromConfig(r.Config)
	case RuleWebhookReplay:
		out.WebhookReplay = webhookVariantFromConfig(r.Config)
	case RuleContract:
		out.Contract = &ContractVariant{
			RequestSchemaRef:    stringFromConfig(r.Config, "requestSchemaRef"),
			ResponseSchemaRef:   stringFromConfig(r.Config, "responseSchemaRef"),
			RejectUnknownFields: boolFromConfig(r.Config, "rejectUnknownFields"),
		}
	case RuleLimits:
		out.LimitsRule = &LimitsVariant{Limits: limitsFromConfig(r.Config)}
	}

	return out, nil
}

func webhookVariantFromConfig(cfg map[string]any) *WebhookVariant {
	tolerance := 300
	if v, ok := cfg["timestampTolerance"].(int); ok {
		tolerance = v
	}
	var events []string
	if raw, ok := cfg["allowedEventTypes"].([]any); ok {
		for _, e := range raw {
			if s, ok := e.(string); ok {
				events = append(events, s)
			}
		}
	}
	return &WebhookVariant{
		Provider:           stringFromConfig(cfg, "provider"),
		SecretRef:          stringFromConfig(cfg, "secretRef"),
		Secret:             stringFromConfig(cfg, "secret"),
		RequireRawBody:     boolFromConfigDefault(cfg, "requireRawBody", true),
		TimestampTolerance: tolerance,
		ReplayProtection:   boolFromConfigDefault(cfg, "replayProtection", true),
		AllowedEventTypes:  events,
	}
}

func limitsFromConfig(cfg map[string]any) Limits {
	var out Limits
	if v, ok := cfg["maxBodyBytes"].(int); ok {
		i64 := int64(v)
		out.MaxBodyBytes = &i64
	}
	if v, ok := cfg["maxJsonDepth"].(int); ok {
		out.MaxJSONDepth = &v
	}
	if v, ok := cfg["maxArrayLength"].(int); ok {
		out.MaxArrayLength = &v
	}
	return out
}

func stringFromConfig(cfg map[string]any, key string) string {
	s, _ := cfg[key].(string)
	return s
}

func boolFromConfig(cfg map[string]any, key string) bool {
	b, _ := cfg[key].(bool)
	return b
}

func boolFromConfigDefault(cfg map[string]any, key string, def bool) bool {
	if v, ok := cfg[key].(bool); ok {
		return v
	}
	return def
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func parseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeEnforce, ModeMonitor:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: mode %q", ErrInvalidPolicy, s)
	}
}

func parseUnmatchedAction(s string) (UnmatchedAction, error) {
	switch UnmatchedAction(s) {
	case UnmatchedAllow, UnmatchedBlock, UnmatchedMonitor:
		return UnmatchedAction(s), nil
	default:
		return "", fmt.Errorf("%w: unmatchedRouteAction %q", ErrInvalidPolicy, s)
	}
}

func parseRuleType(s string) (RuleType, error) {
	switch RuleType(s) {
	case RuleCEL, RuleWebhookSignature, RuleWebhookReplay, RuleContract, RuleLimits:
		return RuleType(s), nil
	default:
		return "", fmt.Errorf("%w: rule type %q", ErrInvalidPolicy, s)
	}
}

func parseRuleAction(s string) (RuleAction, error) {
	switch RuleAction(s) {
	case ActionAllow, ActionBlock, ActionMonitor, ActionChallenge:
		return RuleAction(s), nil
	default:
		return "", fmt.Errorf("%w: rule action %q", ErrInvalidPolicy, s)
	}
}
