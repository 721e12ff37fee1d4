package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
policyVersion: "0.1"
defaults:
  mode: enforce
  unmatchedRouteAction: allow
  response:
    blockStatusCode: 403
  vulnerabilityChecks:
    nosqlInjection: true
routes:
  - id: create-order
    match:
      method: POST
      path: /orders
    mode: monitor
    contract:
      rejectUnknownFields: true
    vulnerability:
      commandInjection: true
    limits:
      maxBodyBytes: 65536
    rules:
      - id: tenant-binding
        type: cel
        action: block
        severity: high
        config:
          expression: "identity.tenant == request.body.json.tenantId"
  - id: github-webhook
    match:
      method: POST
      path: /webhooks/github
    webhook:
      provider: github
      secretRef: GITHUB_WEBHOOK_SECRET
    rules:
      - id: verify-signature
        type: webhook-signature
        action: block
        severity: critical
        config:
          provider: github
          secretRef: GITHUB_WEBHOOK_SECRET
`

func TestLoadBytes_ParsesDefaultsAndRoutes(t *testing.T) {
	set, err := LoadBytes([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, ModeEnforce, set.Defaults.Mode)
	assert.Equal(t, UnmatchedAllow, set.Defaults.UnmatchedRouteAction)
	assert.Equal(t, 403, set.Defaults.ResponseBlockStatus)
	require.NotNil(t, set.Defaults.VulnerabilityChecks.NoSQLInjection)
	assert.True(t, *set.Defaults.VulnerabilityChecks.NoSQLInjection)
	require.Len(t, set.Routes, 2)
}

func TestMatchRoute_ExactMethodAndPath(t *testing.T) {
	set, err := LoadBytes([]byte(sampleYAML))
	require.NoError(t, err)

	route := set.MatchRoute("post", "/orders")
	require.NotNil(t, route)
	assert.Equal(t, "create-order", route.ID)

	assert.Nil(t, set.MatchRoute("GET", "/orders"))
}

func TestEffectiveMode_RouteOverridesDefault(t *testing.T) {
	set, err := LoadBytes([]byte(sampleYAML))
	require.NoError(t, err)

	route := set.MatchRoute("POST", "/orders")
	assert.Equal(t, ModeMonitor, set.EffectiveMode(route))

	webhookRoute := set.MatchRoute("POST", "/webhooks/github")
	assert.Equal(t, ModeEnforce, set.EffectiveMode(webhookRoute))
}

func TestEffectiveVulnerabilityChecks_MergesFieldByField(t *testing.T) {
	set, err := LoadBytes([]byte(sampleYAML))
	require.NoError(t, err)

	route := set.MatchRoute("POST", "/orders")
	checks := set.EffectiveVulnerabilityChecks(route)

	require.NotNil(t, checks.CommandInjection)
	assert.True(t, *checks.CommandInjection, "route override applies")
	require.NotNil(t, checks.PrototypePollution)
	assert.True(t, *checks.PrototypePollution, "unset field inherits default posture")
}

func TestEffectiveLimits_RouteOverridesOneField(t *testing.T) {
	set, err := LoadBytes([]byte(sampleYAML))
	require.NoError(t, err)

	route := set.MatchRoute("POST", "/orders")
	limits := set.EffectiveLimits(route)
	require.NotNil(t, limits.MaxBodyBytes)
	assert.EqualValues(t, 65536, *limits.MaxBodyBytes)
}

func TestConvertRule_CELVariantCarriesExpression(t *testing.T) {
	set, err := LoadBytes([]byte(sampleYAML))
	require.NoError(t, err)

	route := set.MatchRoute("POST", "/orders")
	require.Len(t, route.Rules, 1)
	rule := route.Rules[0]
	require.NotNil(t, rule.CEL)
	assert.Contains(t, rule.CEL.Expression, "tenantId")
}

func TestConvertRule_WebhookSignatureVariant(t *testing.T) {
	set, err := LoadBytes([]byte(sampleYAML))
	require.NoError(t, err)

	route := set.MatchRoute("POST", "/webhooks/github")
	require.Len(t, route.Rules, 1)
	rule := route.Rules[0]
	require.NotNil(t, rule.WebhookSignature)
	assert.Equal(t, "github", rule.WebhookSignature.Provider)
	assert.True(t, rule.WebhookSignature.RequireRawBody, "defaults to true when unset")
}

func TestLoadBytes_RejectsUnsupportedVersion(t *testing.T) {
	_, err := LoadBytes([]byte("policyVersion: \"0.2\"\n"))
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestLoadBytes_RejectsUnknownMode(t *testing.T) {
	_, err := LoadBytes([]byte("policyVersion: \"0.1\"\ndefaults:\n  mode: paranoid\n"))
	require.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestLoadBytes_RejectsUnknownRuleType(t *testing.T) {
	doc := `
policyVersion: "0.1"
routes:
  - id: r
    match: {method: GET, path: /x}
    rules:
      - id: bad
        type: not-a-type
`
	_, err := LoadBytes([]byte(doc))
	require.ErrorIs(t, err, ErrInvalidPolicy)
}
