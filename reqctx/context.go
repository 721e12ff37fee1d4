package reqctx

import "time"

// Body is the normalized view of a request body.
type Body struct {
	Present   bool
	SizeBytes int
	SHA256    string
	Raw       []byte
	JSON      any

	// JSONOrdered holds the same document as JSON, except every object
	// is an *OrderedMap instead of a map[string]any, so a depth-first
	// walk visits keys in declaration order. The vulnerability scanner
	// uses this; everything else (schema validation, CEL evaluation,
	// size limits) uses JSON.
	JSONOrdered any
}

// Identity is the authenticated principal associated with a request, or the
// unauthenticated zero value.
type Identity struct {
	Authenticated bool
	Subject       string
	Tenant        string
	Scopes        []string
	Roles         []string
	Claims        map[string]any
}

// Client carries caller network identity.
type Client struct {
	IP        string
	UserAgent string
}

// Runtime describes the service the gateway is embedded in.
type Runtime struct {
	Language string
	Service  string
	Env      string
}

// Webhook carries webhook-specific verification results, populated only
// when a webhook-signature or webhook-replay policy rule ran.
type Webhook struct {
	Provider       string
	SignatureValid bool
	Replayed       bool
}

// Context is the immutable, normalized view of one HTTP request that the
// pipeline evaluators run against. It is built exactly once per request and
// discarded after the Decision is logged.
type Context struct {
	ID          string
	Timestamp   time.Time
	Method      string
	Path        string
	ContentType string

	// Headers is a case-insensitive mapping (keys are lower-cased) from
	// header name to value. Repeated headers are last-write-wins; values
	// are never comma-joined.
	Headers map[string]string

	// Query is a mapping from query parameter name to value. Repeated keys
	// are last-write-wins (see DESIGN.md for the Open Question decision).
	Query map[string]string

	Body     Body
	Identity Identity
	Client   Client
	Runtime  Runtime
	Webhook  Webhook
}

// Header returns the normalized (lower-cased) header value for name, and
// whether it was present.
func (c *Context) Header(name string) (string, bool) {
	v, ok := c.Headers[lowerASCII(name)]
	return v, ok
}

func lowerASCII(s string) string {
	b := []byte(s)
	changed := false
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
			changed = true
		}
	}
	if !changed {
		return s
	}
	return string(b)
}

// Snapshot is a plain projection of Context, with its maps copied, for
// checking (with a deep comparison) that evaluators never mutate the
// context they're given (spec invariant: "E(c) does not mutate c").
type Snapshot struct {
	ID          string
	Method      string
	Path        string
	ContentType string
	Headers     map[string]string
	Query       map[string]string
	BodySHA256  string
	BodySize    int
	Identity    Identity
}

// Snap captures a Snapshot of the context's current state.
func (c *Context) Snap() Snapshot {
	headers := make(map[string]string, len(c.Headers))
	for k, v := range c.Headers {
		headers[k] = v
	}
	query := make(map[string]string, len(c.Query))
	for k, v := range c.Query {
		query[k] = v
	}
	return Snapshot{
		ID:          c.ID,
		Method:      c.Method,
		Path:        c.Path,
		ContentType: c.ContentType,
		Headers:     headers,
		Query:       query,
		BodySHA256:  c.Body.SHA256,
		BodySize:    c.Body.SizeBytes,
		Identity:    c.Identity,
	}
}

// ToEvalMap projects the context into the nested map[string]any shape that
// the expression evaluators (exprlang.Safe / exprlang.ExprLang) walk by dotted
// path: "request.method", "identity.tenant", "request.body.json.<field>",
// etc.
func (c *Context) ToEvalMap() map[string]any {
	return map[string]any{
		"id": c.ID,
		"request": map[string]any{
			"method":      c.Method,
			"path":        c.Path,
			"contentType": c.ContentType,
			"headers":     stringMapToAny(c.Headers),
			"query":       stringMapToAny(c.Query),
			"body": map[string]any{
				"present":   c.Body.Present,
				"sizeBytes": c.Body.SizeBytes,
				"json":      c.Body.JSON,
			},
		},
		"identity": map[string]any{
			"authenticated": c.Identity.Authenticated,
			"subject":       c.Identity.Subject,
			"tenant":        c.Identity.Tenant,
			"scopes":        stringsToAny(c.Identity.Scopes),
			"roles":         stringsToAny(c.Identity.Roles),
			"claims":        c.Identity.Claims,
		},
		"client": map[string]any{
			"ip":        c.Client.IP,
			"userAgent": c.Client.UserAgent,
		},
		"runtime": map[string]any{
			"language": c.Runtime.Language,
			"service":  c.Runtime.Service,
			"env":      c.Runtime.Env,
		},
		"webhook": map[string]any{
			"provider":       c.Webhook.Provider,
			"signatureValid": c.Webhook.SignatureValid,
			"replayed":       c.Webhook.Replayed,
		},
	}
}

func stringMapToAny(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func stringsToAny(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
