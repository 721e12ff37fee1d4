package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrSchemaConstruction is returned by Compile when the schema document
// is malformed or a $ref cannot be resolved against components. A
// construction failure is treated as a critical RuleHit by the caller,
// distinct from the medium-severity Violations Validate returns.
var ErrSchemaConstruction = errors.New("schema: construction failed")

const schemaResourceURL = "contractshield://request-schema.json"
const componentsResourceURL = "contractshield://components.json"

// Validator wraps one compiled JSON Schema document.
type Validator struct {
	compiled *jsonschema.Schema
	raw      map[string]any
}

// Compile builds a Validator from a schema document (already decoded
// into a Go value tree by the OpenAPI or policy loader) and a components
// map used to resolve local `$ref`s that point outside the schema
// itself (e.g. `#/components/schemas/User`, rewritten by the caller's
// $ref resolver already, or still present when resolution was skipped).
func Compile(schemaDict map[string]any, components map[string]any) (*Validator, error) {
	if schemaDict == nil {
		return nil, fmt.Errorf("%w: nil schema", ErrSchemaConstruction)
	}

	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat()
	registerCustomFormats(compiler)

	if len(components) > 0 {
		doc, err := toResourceDoc(map[string]any{"components": components})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSchemaConstruction, err)
		}
		if err := compiler.AddResource(componentsResourceURL, doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSchemaConstruction, err)
		}
	}

	// A local "#/components/..." ref resolves inside the schema's own
	// document, so the components map travels with it.
	root := schemaDict
	if _, has := schemaDict["components"]; !has && len(components) > 0 {
		root = make(map[string]any, len(schemaDict)+1)
		for k, v := range schemaDict {
			root[k] = v
		}
		root["components"] = components
	}

	doc, err := toResourceDoc(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaConstruction, err)
	}
	if err := compiler.AddResource(schemaResourceURL, doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaConstruction, err)
	}

	compiled, err := compiler.Compile(schemaResourceURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaConstruction, err)
	}

	return &Validator{compiled: compiled, raw: schemaDict}, nil
}

// toResourceDoc round-trips through encoding/json so map values produced
// by the YAML loader (ints, float64s, nested maps) become the exact
// shape jsonschema.UnmarshalJSON expects.
func toResourceDoc(v map[string]any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(data))
}

// Validate checks instance against the compiled schema, collecting every
// violation rather than stopping at the first.
func (v *Validator) Validate(instance any, opts Options) []Violation {
	var violations []Violation

	if err := v.compiled.Validate(instance); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			violations = append(violations, flatten(ve)...)
		} else {
			violations = append(violations, Violation{Message: err.Error()})
		}
	}

	if opts.RejectUnknownFields {
		violations = append(violations, checkUnknownFields(v.raw, instance, "")...)
	}

	return violations
}

// flatten walks a ValidationError's BasicOutput, which already contains
// every leaf failure instead of just the first.
func flatten(ve *jsonschema.ValidationError) []Violation {
	out := ve.BasicOutput()
	violations := make([]Violation, 0, len(out.Errors))
	for _, e := range out.Errors {
		if e.Error == "" {
			continue
		}
		violations = append(violations, Violation{
			Path:       e.InstanceLocation,
			SchemaPath: e.KeywordLocation,
			Keyword:    lastSegment(e.KeywordLocation),
			Message:    e.Error,
		})
	}
	return violations
}

func lastSegment(pointer string) string {
	parts := strings.Split(strings.Trim(pointer, "/"), "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// --- custom formats ---

var (
	uuidPattern     = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[1-5][0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)
	dateTimePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

func registerCustomFormats(c *jsonschema.Compiler) {
	c.RegisterFormat(&jsonschema.Format{
		Name: "uuid",
		Validate: func(v any) error {
			s, ok := v.(string)
			if !ok {
				return nil
			}
			if !uuidPattern.MatchString(s) {
				return fmt.Errorf("not a canonical UUID")
			}
			return nil
		},
	})
	c.RegisterFormat(&jsonschema.Format{
		Name: "date-time",
		Validate: func(v any) error {
			s, ok := v.(string)
			if !ok {
				return nil
			}
			if !dateTimePattern.MatchString(s) {
				return fmt.Errorf("not an ISO-8601 date-time")
			}
			return nil
		},
	})
	c.RegisterFormat(&jsonschema.Format{
		Name: "email",
		Validate: func(v any) error {
			s, ok := v.(string)
			if !ok {
				return nil
			}
			if !emailPattern.MatchString(s) {
				return fmt.Errorf("not a well-formed email address")
			}
			return nil
		},
	})
}
