package schema

import (
	"fmt"
	"regexp"
	"sort"
)

// checkUnknownFields recursively walks schemaDict/instance together,
// flagging any object member not covered by "properties" or
// "patternProperties" when "additionalProperties" doesn't explicitly
// admit it (true, or a schema). This runs independently of whatever the
// schema's own additionalProperties says about standard validation —
// it's an opt-in stricter pass a contract can turn on.
func checkUnknownFields(schemaDict map[string]any, instance any, path string) []Violation {
	obj, ok := instance.(map[string]any)
	if !ok || schemaDict == nil {
		if arr, isArr := instance.([]any); isArr {
			if itemSchema, ok := schemaDict["items"].(map[string]any); ok {
				var violations []Violation
				for i, elem := range arr {
					violations = append(violations, checkUnknownFields(itemSchema, elem, fmt.Sprintf("%s/%d", path, i))...)
				}
				return violations
			}
		}
		return nil
	}

	properties, _ := schemaDict["properties"].(map[string]any)
	patternProps, _ := schemaDict["patternProperties"].(map[string]any)
	additional, hasAdditional := schemaDict["additionalProperties"]

	allowAdditional := false
	if hasAdditional {
		switch v := additional.(type) {
		case bool:
			allowAdditional = v
		case map[string]any:
			allowAdditional = true
		}
	}

	patterns := make(map[*regexp.Regexp]bool, len(patternProps))
	for pat := range patternProps {
		if re, err := regexp.Compile(pat); err == nil {
			patterns[re] = true
		}
	}

	var violations []Violation
	for _, key := range sortedKeys(obj) {
		value := obj[key]
		propSchema, inProps := properties[key].(map[string]any)

		matched := inProps
		if !matched {
			for re := range patterns {
				if re.MatchString(key) {
					matched = true
					break
				}
			}
		}

		if !matched && !allowAdditional {
			violations = append(violations, Violation{
				Path:    path + "/" + key,
				Keyword: "additionalProperties",
				Value:   truncate(fmt.Sprint(value)),
				Message: fmt.Sprintf("unexpected field %q not declared in schema", key),
			})
			continue
		}

		if inProps {
			violations = append(violations, checkUnknownFields(propSchema, value, path+"/"+key)...)
		}
	}
	return violations
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
