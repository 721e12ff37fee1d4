package reqctx

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrPayloadTooLarge is returned by Normalize when the request body exceeds
// the configured maximum size.
var ErrPayloadTooLarge = errors.New("reqctx: request body exceeds max body size")

// ErrBodyParse is returned by Normalize when the content type declares JSON
// but the body does not parse as JSON.
var ErrBodyParse = errors.New("reqctx: request body is not valid JSON")

// Normalizer builds Contexts from *http.Request values.
type Normalizer struct {
	// MaxBodySize is the maximum number of body bytes read. A body larger
	// than this yields ErrPayloadTooLarge.
	MaxBodySize int64

	// Runtime is stamped onto every built Context unchanged.
	Runtime Runtime

	// Clock returns the current time; defaults to time.Now. Exposed for
	// deterministic tests.
	Clock func() time.Time
}

// New returns a Normalizer with the given body size cap and runtime info.
func New(maxBodySize int64, runtime Runtime) *Normalizer {
	return &Normalizer{MaxBodySize: maxBodySize, Runtime: runtime}
}

// Normalize reads r's body (bounded by MaxBodySize), computes its digest,
// parses it as JSON when the content type warrants it, and returns the
// resulting Context. Identity starts unauthenticated; callers install a
// real Identity (e.g. from an identity_provider hook) before running
// evaluators.
func (n *Normalizer) Normalize(r *http.Request) (*Context, error) {
	clock := n.Clock
	if clock == nil {
		clock = time.Now
	}

	headers := make(map[string]string, len(r.Header))
	for name, values := range r.Header {
		if len(values) == 0 {
			continue
		}
		headers[strings.ToLower(name)] = values[len(values)-1]
	}

	query := make(map[string]string)
	for name, values := range r.URL.Query() {
		if len(values) == 0 {
			continue
		}
		query[name] = values[len(values)-1]
	}

	contentType := headers["content-type"]

	body, err := n.readBody(r, contentType)
	if err != nil {
		return nil, err
	}

	ip := r.RemoteAddr
	if host, _, splitErr := net.SplitHostPort(r.RemoteAddr); splitErr == nil {
		ip = host
	}

	return &Context{
		ID:          uuid.New().String(),
		Timestamp:   clock(),
		Method:      r.Method,
		Path:        r.URL.Path,
		ContentType: contentType,
		Headers:     headers,
		Query:       query,
		Body:        body,
		Identity:    Identity{},
		Client: Client{
			IP:        ip,
			UserAgent: headers["user-agent"],
		},
		Runtime: n.Runtime,
	}, nil
}

func (n *Normalizer) readBody(r *http.Request, contentType string) (Body, error) {
	if r.Body == nil {
		return Body{}, nil
	}

	limit := n.MaxBodySize
	if limit <= 0 {
		limit = 1 << 20
	}

	// Read one byte beyond the limit so an exact-limit body is not
	// mistaken for an oversized one.
	limited := io.LimitReader(r.Body, limit+1)
	raw, err := io.ReadAll(limited)
	if err != nil {
		return Body{}, fmt.Errorf("reqctx: read body: %w", err)
	}
	if int64(len(raw)) > limit {
		return Body{}, ErrPayloadTooLarge
	}
	if len(raw) == 0 {
		return Body{}, nil
	}

	sum := sha256.Sum256(raw)
	body := Body{
		Present:   true,
		SizeBytes: len(raw),
		SHA256:    hex.EncodeToString(sum[:]),
		Raw:       raw,
	}

	if isJSONContentType(contentType) {
		var parsed any
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return Body{}, ErrBodyParse
		}
		body.JSON = parsed

		ordered, err := decodeOrderedJSON(raw)
		if err != nil {
			return Body{}, ErrBodyParse
		}
		body.JSONOrdered = ordered
	}

	return body, nil
}

// isJSONContentType reports whether contentType begins with
// "application/json", case-insensitively, ignoring any ";parameters".
func isJSONContentType(contentType string) bool {
	base := contentType
	if idx := strings.IndexByte(base, ';'); idx >= 0 {
		base = base[:idx]
	}
	base = strings.TrimSpace(base)
	return strings.EqualFold(base, "application/json")
}
