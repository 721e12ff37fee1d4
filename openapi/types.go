package openapi

import "regexp"

// OperationSchema describes one (method, path-template) entry of an OpenAPI
// document: its parameters, request body schema, and responses.
type OperationSchema struct {
	OperationID string
	Summary     string
	Deprecated  bool

	// Parameters is the merged parameter list: path-level parameters first,
	// in declaration order, followed by operation-level parameters.
	Parameters []map[string]any

	// RequestBody is the raw "requestBody" object, with local $ref already
	// resolved when the loader was configured with ResolveRefs.
	RequestBody map[string]any

	// Responses maps status code strings ("200", "4XX", "default") to the
	// raw response object.
	Responses map[string]map[string]any
}

// RequestSchema returns the application/json content schema declared on the
// operation's request body, or nil when the operation has no JSON request
// body.
func (o *OperationSchema) RequestSchema() map[string]any {
	if o == nil || o.RequestBody == nil {
		return nil
	}
	return jsonSchemaOf(o.RequestBody)
}

// ResponseSchema returns the application/json content schema declared for
// the given status code, or nil when absent.
func (o *OperationSchema) ResponseSchema(statusCode string) map[string]any {
	if o == nil {
		return nil
	}
	resp, ok := o.Responses[statusCode]
	if !ok {
		return nil
	}
	return jsonSchemaOf(resp)
}

func jsonSchemaOf(container map[string]any) map[string]any {
	content, _ := container["content"].(map[string]any)
	if content == nil {
		return nil
	}
	jsonContent, _ := content["application/json"].(map[string]any)
	if jsonContent == nil {
		return nil
	}
	schema, _ := jsonContent["schema"].(map[string]any)
	return schema
}

// RouteSchema describes a single OpenAPI path template: its compiled
// matcher, the ordered list of templated parameter names, and the
// operations declared for it.
type RouteSchema struct {
	// PathTemplate is the literal OpenAPI path, e.g. "/users/{userId}".
	PathTemplate string

	matcher    *regexp.Regexp
	paramNames []string

	// Operations maps lower-cased HTTP methods to their schema.
	Operations map[string]*OperationSchema
}

// Match reports whether requestPath matches this route's compiled template,
// returning the extracted path parameters when it does.
func (r *RouteSchema) Match(requestPath string) (map[string]string, bool) {
	m := r.matcher.FindStringSubmatch(requestPath)
	if m == nil {
		return nil, false
	}
	params := make(map[string]string, len(r.paramNames))
	for i, name := range r.matcher.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		params[name] = m[i]
	}
	return params, true
}

// GetOperation returns the operation schema for the given HTTP method
// (case-insensitive), or nil if the route has no such operation.
func (r *RouteSchema) GetOperation(method string) *OperationSchema {
	return r.Operations[lowerASCII(method)]
}

// Spec is a parsed OpenAPI document: compiled path matchers, per-operation
// schema handles, and the components section used for $ref resolution.
type Spec struct {
	Version     string
	Title       string
	Description string

	// routes preserves the declaration order of the document's "paths"
	// mapping, since FindRoute must return the first match in that order.
	routes []*RouteSchema

	Components map[string]any
	Security   []map[string]any
}

// FindRoute returns the first route (in document declaration order) whose
// compiled matcher fully matches requestPath, along with the extracted path
// parameters.
func (s *Spec) FindRoute(requestPath string) (*RouteSchema, map[string]string, bool) {
	for _, route := range s.routes {
		if params, ok := route.Match(requestPath); ok {
			return route, params, true
		}
	}
	return nil, nil, false
}

// GetOperation composes FindRoute with a method-keyed lookup.
func (s *Spec) GetOperation(requestPath, method string) (*OperationSchema, map[string]string, bool) {
	route, params, ok := s.FindRoute(requestPath)
	if !ok {
		return nil, nil, false
	}
	op := route.GetOperation(method)
	if op == nil {
		return nil, nil, false
	}
	return op, params, true
}

// Routes returns the parsed routes in declaration order. The returned slice
// must not be mutated.
func (s *Spec) Routes() []*RouteSchema {
	return s.routes
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
