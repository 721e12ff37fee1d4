package openapi

import "strings"

// refResolver resolves local "$ref" JSON pointers against the root document.
// Non-local references ("$ref" values not starting with "#/") pass through
// unchanged. Resolution is recursive; the spec's fixed-point guarantee rests
// on local references being acyclic, which this resolver assumes rather than
// detects (an accidental cycle would recurse until the call stack is
// exhausted, which is an acceptable failure mode for malformed input).
type refResolver struct {
	root    map[string]any
	enabled bool
}

// resolve walks obj, replacing any "$ref" mapping with the object it points
// to, recursively, through maps and slices.
func (r *refResolver) resolve(obj any) any {
	if !r.enabled {
		return obj
	}
	return r.resolveValue(obj)
}

func (r *refResolver) resolveValue(obj any) any {
	switch v := obj.(type) {
	case map[string]any:
		if ref, ok := v["$ref"].(string); ok {
			if !strings.HasPrefix(ref, "#/") {
				return v
			}
			target := r.lookup(ref)
			if target == nil {
				return v
			}
			return r.resolveValue(target)
		}
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = r.resolveValue(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = r.resolveValue(val)
		}
		return out
	default:
		return obj
	}
}

// lookup resolves a "#/a/b/c" JSON pointer against the root document,
// honoring the "~1" -> "/" and "~0" -> "~" escape sequences.
func (r *refResolver) lookup(ref string) any {
	parts := strings.Split(ref[2:], "/")
	var current any = r.root
	for _, part := range parts {
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")

		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[part]
		if !ok {
			return nil
		}
	}
	return current
}
