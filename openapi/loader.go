package openapi

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnsupportedVersion is returned when the document's "openapi" field is
// missing or does not begin with "3.".
var ErrUnsupportedVersion = errors.New("openapi: unsupported version, only 3.x is supported")

// ErrAmbiguousPath is returned when two path templates compile to the same
// matcher, which makes route lookup ambiguous.
var ErrAmbiguousPath = errors.New("openapi: two path templates compile to the same matcher")

var httpMethods = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

// LoaderConfig configures spec loading.
type LoaderConfig struct {
	// ResolveRefs enables inline resolution of local "$ref" references
	// (e.g. "#/components/schemas/User"). Non-local references are left
	// untouched. The zero value leaves every reference unresolved;
	// DefaultLoaderConfig turns resolution on.
	ResolveRefs bool
}

// DefaultLoaderConfig returns the conventional configuration: refs resolved.
func DefaultLoaderConfig() LoaderConfig {
	return LoaderConfig{ResolveRefs: true}
}

// LoadFile reads and parses an OpenAPI 3.x document from disk.
func LoadFile(path string, cfg LoaderConfig) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("openapi: read %s: %w", path, err)
	}
	return LoadBytes(data, cfg)
}

// LoadBytes parses an OpenAPI 3.x document from YAML or JSON bytes. JSON is
// accepted as a subset of YAML 1.2 flow style, so a single decoder path
// handles both.
func LoadBytes(data []byte, cfg LoaderConfig) (*Spec, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("openapi: parse document: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("openapi: empty document")
	}

	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("openapi: document root must be a mapping")
	}

	var raw map[string]any
	if err := doc.Decode(&raw); err != nil {
		return nil, fmt.Errorf("openapi: decode document: %w", err)
	}

	version, _ := raw["openapi"].(string)
	if !strings.HasPrefix(version, "3.") {
		return nil, fmt.Errorf("%w: got %q", ErrUnsupportedVersion, version)
	}

	info, _ := raw["info"].(map[string]any)
	title, _ := info["title"].(string)
	description, _ := info["description"].(string)

	components, _ := raw["components"].(map[string]any)

	var security []map[string]any
	if rawSec, ok := raw["security"].([]any); ok {
		for _, s := range rawSec {
			if m, ok := s.(map[string]any); ok {
				security = append(security, m)
			}
		}
	}

	spec := &Spec{
		Version:     version,
		Title:       title,
		Description: description,
		Components:  components,
		Security:    security,
	}

	resolver := &refResolver{root: raw, enabled: cfg.ResolveRefs}

	pathsNode := mappingValue(doc, "paths")
	if pathsNode == nil {
		return spec, nil
	}

	seen := make(map[string]string) // compiled pattern -> owning path template
	for i := 0; i+1 < len(pathsNode.Content); i += 2 {
		pathKeyNode := pathsNode.Content[i]
		pathValNode := pathsNode.Content[i+1]

		pathTemplate := pathKeyNode.Value
		var pathItem map[string]any
		if err := pathValNode.Decode(&pathItem); err != nil {
			return nil, fmt.Errorf("openapi: decode path item %q: %w", pathTemplate, err)
		}

		route, err := buildRoute(pathTemplate, pathItem, resolver)
		if err != nil {
			return nil, err
		}

		if owner, dup := seen[route.matcher.String()]; dup {
			return nil, fmt.Errorf("%w: %q and %q", ErrAmbiguousPath, owner, pathTemplate)
		}
		seen[route.matcher.String()] = pathTemplate

		spec.routes = append(spec.routes, route)
	}

	return spec, nil
}

// mappingValue returns the value node for key within a mapping node, or nil.
func mappingValue(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func buildRoute(pathTemplate string, pathItem map[string]any, resolver *refResolver) (*RouteSchema, error) {
	matcher, paramNames, err := compilePathTemplate(pathTemplate)
	if err != nil {
		return nil, fmt.Errorf("openapi: compile path %q: %w", pathTemplate, err)
	}

	var pathLevelParams []map[string]any
	if rawParams, ok := pathItem["parameters"].([]any); ok {
		pathLevelParams = toMapSlice(rawParams)
	}

	operations := make(map[string]*OperationSchema)
	for _, method := range httpMethods {
		rawOp, ok := pathItem[method].(map[string]any)
		if !ok {
			continue
		}

		op := &OperationSchema{}
		if id, ok := rawOp["operationId"].(string); ok {
			op.OperationID = id
		}
		if summary, ok := rawOp["summary"].(string); ok {
			op.Summary = summary
		}
		if dep, ok := rawOp["deprecated"].(bool); ok {
			op.Deprecated = dep
		}

		var opLevelParams []map[string]any
		if rawParams, ok := rawOp["parameters"].([]any); ok {
			opLevelParams = toMapSlice(rawParams)
		}

		merged := make([]map[string]any, 0, len(pathLevelParams)+len(opLevelParams))
		merged = append(merged, pathLevelParams...)
		merged = append(merged, opLevelParams...)
		for i, p := range merged {
			merged[i], _ = resolver.resolve(p).(map[string]any)
		}
		op.Parameters = merged

		if rb, ok := rawOp["requestBody"].(map[string]any); ok {
			resolved, _ := resolver.resolve(rb).(map[string]any)
			op.RequestBody = resolved
		}

		op.Responses = make(map[string]map[string]any)
		if rawResponses, ok := rawOp["responses"].(map[string]any); ok {
			for code, rawResp := range rawResponses {
				if m, ok := rawResp.(map[string]any); ok {
					resolved, _ := resolver.resolve(m).(map[string]any)
					op.Responses[code] = resolved
				}
			}
		}

		operations[method] = op
	}

	return &RouteSchema{
		PathTemplate: pathTemplate,
		matcher:      matcher,
		paramNames:   paramNames,
		Operations:   operations,
	}, nil
}

func toMapSlice(raw []any) []map[string]any {
	out := make([]map[string]any, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

var pathParamPattern = regexp.MustCompile(`\{([^}]+)\}`)

// compilePathTemplate converts an OpenAPI path template such as
// "/users/{userId}/posts/{postId}" into an anchored regexp with one named
// capture group per templated segment, matching any run of non-slash
// characters. Literal regex metacharacters are escaped first so that a
// path segment like "/v1.2/things" is matched literally.
func compilePathTemplate(path string) (*regexp.Regexp, []string, error) {
	var params []string
	var sb strings.Builder
	sb.WriteString("^")

	last := 0
	for _, loc := range pathParamPattern.FindAllStringSubmatchIndex(path, -1) {
		literal := path[last:loc[0]]
		sb.WriteString(regexp.QuoteMeta(literal))

		name := path[loc[2]:loc[3]]
		params = append(params, name)
		fmt.Fprintf(&sb, "(?P<%s>[^/]+)", sanitizeGroupName(name))

		last = loc[1]
	}
	sb.WriteString(regexp.QuoteMeta(path[last:]))
	sb.WriteString("$")

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, nil, err
	}
	return re, params, nil
}

// sanitizeGroupName makes a path parameter name safe for use as a Go regexp
// named capture group, since OpenAPI parameter names may contain characters
// ("-", ".") that Go's regexp package rejects in group names.
func sanitizeGroupName(name string) string {
	var sb strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			sb.WriteRune(r)
		} else {
			sb.WriteRune('_')
		}
	}
	return sb.String()
}
