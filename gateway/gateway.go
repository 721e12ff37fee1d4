package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/apisentry/apisentry/exprlang"
	"github.com/apisentry/apisentry/mux"
	"github.com/apisentry/apisentry/openapi"
	"github.com/apisentry/apisentry/policy"
	"github.com/apisentry/apisentry/reqctx"
	"github.com/apisentry/apisentry/risk"
	"github.com/apisentry/apisentry/schema"
	"github.com/apisentry/apisentry/vuln"
)

const defaultMaxBodySize = 1 << 20

// Gateway is a constructed Pipeline Driver, ready to wrap handlers.
type Gateway struct {
	cfg Config

	policy *policy.Set
	spec   *openapi.Spec

	normalizer *reqctx.Normalizer
	cel        exprlang.Evaluator
	reducer    *risk.Reducer

	excludePatterns []*regexp.Regexp

	blockCode     int
	challengeCode int

	logger *slog.Logger

	schemaCache   sync.Map // *openapi.OperationSchema -> *schema.Validator
	contractCache sync.Map // string (rule ID) -> *schema.Validator
	replayGuards  sync.Map // string (rule ID) -> *webhookrule.ReplayGuard
}

// New constructs a Gateway from cfg, loading a policy and/or OpenAPI
// spec from disk when only a path was given.
func New(cfg Config) (*Gateway, error) {
	pol := cfg.Policy
	if pol == nil && cfg.PolicyPath != "" {
		loaded, err := policy.LoadFile(cfg.PolicyPath)
		if err != nil {
			return nil, fmt.Errorf("%w: load policy: %v", ErrInvalidConfig, err)
		}
		pol = loaded
	}

	spec := cfg.OpenAPI
	if spec == nil && cfg.OpenAPIPath != "" {
		loaded, err := openapi.LoadFile(cfg.OpenAPIPath, openapi.DefaultLoaderConfig())
		if err != nil {
			return nil, fmt.Errorf("%w: load openapi spec: %v", ErrInvalidConfig, err)
		}
		spec = loaded
	}

	patterns := make([]*regexp.Regexp, 0, len(cfg.ExcludePaths))
	for _, p := range cfg.ExcludePaths {
		re, err := regexp.Compile("^(?:" + p + ")")
		if err != nil {
			return nil, fmt.Errorf("%w: exclude path %q: %v", ErrInvalidConfig, p, err)
		}
		patterns = append(patterns, re)
	}

	maxBody := cfg.MaxBodySize
	if maxBody <= 0 {
		maxBody = defaultMaxBodySize
	}

	mode := cfg.Mode
	if mode == "" {
		mode = policy.ModeEnforce
	}

	blockCode := cfg.BlockResponseCode
	if blockCode == 0 {
		if pol != nil && pol.Defaults.ResponseBlockStatus != 0 {
			blockCode = pol.Defaults.ResponseBlockStatus
		} else {
			blockCode = http.StatusForbidden
		}
	}
	challengeCode := cfg.ChallengeStatusCode
	if challengeCode == 0 {
		challengeCode = http.StatusUnauthorized
	}

	cel := cfg.CELEvaluator
	if cel == nil {
		cel = exprlang.NewSafe()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg.Mode = mode
	if cfg.Vulnerability == (vuln.Config{}) {
		cfg.Vulnerability = vuln.DefaultConfig()
	}

	return &Gateway{
		cfg:             cfg,
		policy:          pol,
		spec:            spec,
		normalizer:      reqctx.New(maxBody, cfg.Runtime),
		cel:             cel,
		reducer:         risk.NewReducer(),
		excludePatterns: patterns,
		blockCode:       blockCode,
		challengeCode:   challengeCode,
		logger:          logger,
	}, nil
}

// Middleware builds a Gateway from cfg and returns it as a
// mux.MiddlewareFunc, the factory convention used throughout
// muxhandlers (e.g. RequestSizeLimitMiddleware, SecurityHeadersMiddleware).
func Middleware(cfg Config) (mux.MiddlewareFunc, error) {
	g, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return g.Wrap, nil
}

// Handler builds a Gateway from cfg and returns next wrapped directly,
// for callers not using the mux router.
func Handler(cfg Config, next http.Handler) (http.Handler, error) {
	g, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return g.Wrap(next), nil
}

// Status reports introspectable facts about the running Gateway, for an
// operator-facing admin surface.
type Status struct {
	PolicyLoaded  bool
	RouteCount    int
	OpenAPILoaded bool
	Mode          policy.Mode
}

// Status returns g's current Status.
func (g *Gateway) Status() Status {
	st := Status{
		OpenAPILoaded: g.spec != nil,
		Mode:          g.cfg.Mode,
	}
	if g.policy != nil {
		st.PolicyLoaded = true
		st.RouteCount = len(g.policy.Routes)
	}
	return st
}

// Wrap returns next wrapped by g's pipeline.
func (g *Gateway) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.serve(w, r, next)
	})
}

func (g *Gateway) serve(w http.ResponseWriter, r *http.Request, next http.Handler) {
	start := time.Now()

	if g.isExcluded(r.URL.Path) {
		next.ServeHTTP(w, r)
		return
	}

	var route *policy.Route
	if g.policy != nil {
		route = g.policy.MatchRoute(r.Method, r.URL.Path)
	}
	effectiveMode := g.effectiveMode(route)

	ctx, err := g.normalizer.Normalize(r)
	if err != nil {
		if effectiveMode == policy.ModeEnforce {
			g.writeBlock(w, g.blockCode, fmt.Sprintf("request parsing failed: %v", err))
			return
		}
		// Monitor mode: forward with no evaluation. The body stream was
		// already consumed attempting to read it; there is nothing left
		// to restore.
		next.ServeHTTP(w, r)
		return
	}

	if g.cfg.IdentityProvider != nil {
		ctx.Identity = g.cfg.IdentityProvider(r)
	}

	var hits []risk.Hit

	if g.cfg.VulnerabilityScan && ctx.Body.Present && ctx.Body.JSONOrdered != nil {
		vulnCfg := g.cfg.Vulnerability
		if g.policy != nil {
			vulnCfg = vulnerabilityConfigFrom(g.policy.EffectiveVulnerabilityChecks(route))
		}
		for _, f := range vuln.NewScanner(vulnCfg).Scan(ctx.Body.JSONOrdered) {
			hits = append(hits, risk.Hit{
				ID:       f.ID,
				Severity: vulnSeverityToRisk(f.Severity),
				Message:  f.Message,
				Path:     f.Path,
				Value:    f.Value,
			})
		}
	}

	if g.cfg.ValidateRequest && g.spec != nil && ctx.Body.JSON != nil {
		hits = append(hits, g.validateAgainstOpenAPI(ctx)...)
	}

	if route != nil {
		hits = append(hits, g.evaluateRoute(route, ctx)...)
	} else if g.policy != nil {
		hits = append(hits, g.unmatchedHit(r.Method, r.URL.Path)...)
	}

	decision := g.reducer.Decide(hits, riskModeFrom(effectiveMode))

	event := g.buildEvent(ctx, decision, time.Since(start))
	if g.cfg.LogDecisions {
		g.logDecision(event, decision)
	}
	g.invokeCallback(event)

	switch {
	case decision.Outcome == risk.Block && effectiveMode == policy.ModeEnforce:
		g.writeBlock(w, g.blockCode, decision.Reason)
		return
	case decision.Outcome == risk.Challenge && effectiveMode == policy.ModeEnforce:
		g.writeBlock(w, g.challengeCode, decision.Reason)
		return
	}

	restoreBody(r, ctx)
	next.ServeHTTP(w, r)
}

func (g *Gateway) isExcluded(path string) bool {
	for _, re := range g.excludePatterns {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

func (g *Gateway) effectiveMode(route *policy.Route) policy.Mode {
	if g.policy != nil {
		return g.policy.EffectiveMode(route)
	}
	return g.cfg.Mode
}

func (g *Gateway) unmatchedHit(method, path string) []risk.Hit {
	switch g.policy.Defaults.UnmatchedRouteAction {
	case policy.UnmatchedBlock:
		return []risk.Hit{{
			ID:       "policy.unmatched",
			Severity: risk.High,
			Message:  fmt.Sprintf("no policy route matches: %s %s", method, path),
		}}
	case policy.UnmatchedMonitor:
		return []risk.Hit{{
			ID:       "policy.unmatched",
			Severity: risk.Medium,
			Message:  fmt.Sprintf("no policy route matches: %s %s", method, path),
			Action:   risk.ActionMonitor,
		}}
	default:
		return nil
	}
}

func (g *Gateway) validateAgainstOpenAPI(ctx *reqctx.Context) []risk.Hit {
	op, _, ok := g.spec.GetOperation(ctx.Path, ctx.Method)
	if !ok {
		return nil
	}
	reqSchema := op.RequestSchema()
	if reqSchema == nil {
		return nil
	}

	validator, err := g.operationValidator(op, reqSchema)
	if err != nil {
		return []risk.Hit{{
			ID:       "schema.config_error",
			Severity: risk.Critical,
			Message:  err.Error(),
		}}
	}

	violations := validator.Validate(ctx.Body.JSON, schema.Options{})
	hits := make([]risk.Hit, 0, len(violations))
	for _, v := range violations {
		hits = append(hits, risk.Hit{
			ID:       "schema.request.invalid",
			Severity: risk.Medium,
			Message:  v.Message,
			Path:     v.Path,
			Value:    v.Value,
		})
	}
	return hits
}

func (g *Gateway) operationValidator(op *openapi.OperationSchema, reqSchema map[string]any) (*schema.Validator, error) {
	if cached, ok := g.schemaCache.Load(op); ok {
		return cached.(*schema.Validator), nil
	}
	components := map[string]any{}
	if g.spec.Components != nil {
		components = g.spec.Components
	}
	validator, err := schema.Compile(reqSchema, components)
	if err != nil {
		return nil, err
	}
	actual, _ := g.schemaCache.LoadOrStore(op, validator)
	return actual.(*schema.Validator), nil
}

func (g *Gateway) buildEvent(ctx *reqctx.Context, decision risk.Decision, elapsed time.Duration) Event {
	hitEvents := make([]HitEvent, 0, len(decision.Hits))
	for _, h := range decision.Hits {
		hitEvents = append(hitEvents, HitEvent{
			ID:       h.ID,
			Severity: string(h.Severity),
			Message:  h.Message,
			Path:     h.Path,
		})
	}
	statusCode := 0
	switch decision.Outcome {
	case risk.Block:
		statusCode = g.blockCode
	case risk.Challenge:
		statusCode = g.challengeCode
	}
	return Event{
		RequestID:  ctx.ID,
		Method:     ctx.Method,
		Path:       ctx.Path,
		Action:     string(decision.Outcome),
		StatusCode: statusCode,
		Reason:     decision.Reason,
		RuleHits:   hitEvents,
		RiskScore:  decision.Score.Value,
		RiskLevel:  string(decision.Score.Level),
		DurationMS: float64(elapsed) / float64(time.Millisecond),
	}
}

func (g *Gateway) logDecision(event Event, decision risk.Decision) {
	attrs := []any{
		"requestId", event.RequestID,
		"method", event.Method,
		"path", event.Path,
		"action", event.Action,
		"riskScore", event.RiskScore,
		"riskLevel", event.RiskLevel,
		"durationMs", event.DurationMS,
		"hits", len(event.RuleHits),
	}
	if decision.Outcome == risk.Block || decision.Outcome == risk.Challenge {
		g.logger.Warn("gateway decision", attrs...)
		return
	}
	g.logger.Info("gateway decision", attrs...)
}

func (g *Gateway) invokeCallback(event Event) {
	if g.cfg.LogCallback == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			g.logger.Warn("gateway log callback panicked", "error", fmt.Sprint(r))
		}
	}()
	g.cfg.LogCallback(event)
}

func (g *Gateway) writeBlock(w http.ResponseWriter, code int, reason string) {
	body := g.cfg.BlockResponseBody
	if body == nil {
		body = map[string]any{"error": "Forbidden", "message": reason}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// restoreBody reattaches the already-read and digested body so the
// downstream handler can read it again. The normalizer consumed r.Body
// to compute Body.SHA256/JSON; without this, forwarded requests would
// see an empty body.
func restoreBody(r *http.Request, ctx *reqctx.Context) {
	if !ctx.Body.Present {
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(ctx.Body.Raw))
}

func riskModeFrom(m policy.Mode) risk.Mode {
	if m == policy.ModeMonitor {
		return risk.Monitor
	}
	return risk.Enforce
}

func vulnSeverityToRisk(s vuln.Severity) risk.Severity {
	switch s {
	case vuln.Critical:
		return risk.Critical
	case vuln.High:
		return risk.High
	case vuln.Medium:
		return risk.Medium
	default:
		return risk.Low
	}
}

func vulnerabilityConfigFrom(checks policy.VulnerabilityChecks) vuln.Config {
	return vuln.Config{
		SQLi:               true,
		XSS:                true,
		SSRFInternal:       boolOrDefault(checks.SSRFInternal, true),
		PathTraversal:      boolOrDefault(checks.PathTraversal, true),
		PrototypePollution: boolOrDefault(checks.PrototypePollution, true),
		NoSQLInjection:     boolOrDefault(checks.NoSQLInjection, false),
		CommandInjection:   boolOrDefault(checks.CommandInjection, false),
	}
}

func boolOrDefault(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
