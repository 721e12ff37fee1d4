package vuln

import (
	"fmt"
	"sort"
)

// Scanner walks a parsed JSON value, running every enabled detector
// against string leaves and object keys.
type Scanner struct {
	cfg Config
}

// NewScanner returns a Scanner with the given detector configuration.
func NewScanner(cfg Config) *Scanner {
	return &Scanner{cfg: cfg}
}

// orderedObject is satisfied by reqctx.OrderedMap. Accepting the
// interface here, rather than importing reqctx, keeps the scanner
// usable against any order-preserving JSON decode, not just reqctx's.
type orderedObject interface {
	OrderedKeys() []string
	Value(key string) any
}

// Scan walks value depth-first and returns every Finding, in traversal
// order. Object keys are visited in the order orderedObject reports them
// (declaration order, for reqctx's decode); a plain map[string]any falls
// back to an alphabetical walk, since Go's map iteration order is random
// and declaration order is otherwise unrecoverable. A nil value yields no
// findings.
func (s *Scanner) Scan(value any) []Finding {
	var findings []Finding
	s.walk(value, "", &findings)
	return findings
}

func (s *Scanner) walk(value any, path string, findings *[]Finding) {
	switch v := value.(type) {
	case orderedObject:
		keys := v.OrderedKeys()
		s.scanObjectForNoSQL(keys, path, findings)
		for _, key := range keys {
			keyPath := path + "/" + key
			if s.cfg.PrototypePollution {
				if f, ok := checkPrototypePollution(key, keyPath); ok {
					*findings = append(*findings, f)
				}
			}
			s.walk(v.Value(key), keyPath, findings)
		}
	case map[string]any:
		keys := sortedKeys(v)
		s.scanObjectForNoSQL(keys, path, findings)
		for _, key := range keys {
			keyPath := path + "/" + key
			if s.cfg.PrototypePollution {
				if f, ok := checkPrototypePollution(key, keyPath); ok {
					*findings = append(*findings, f)
				}
			}
			s.walk(v[key], keyPath, findings)
		}
	case []any:
		for i, elem := range v {
			s.walk(elem, fmt.Sprintf("%s/%d", path, i), findings)
		}
	case string:
		*findings = append(*findings, s.scanString(v, path)...)
	default:
		// numeric, boolean, null leaves are not scanned.
	}
}

func (s *Scanner) scanString(value, path string) []Finding {
	var findings []Finding
	if s.cfg.SQLi {
		if f, ok := checkSQLi(value, path); ok {
			findings = append(findings, f)
		}
	}
	if s.cfg.XSS {
		if f, ok := checkXSS(value, path); ok {
			findings = append(findings, f)
		}
	}
	if s.cfg.CommandInjection {
		if f, ok := checkCommandInjection(value, path); ok {
			findings = append(findings, f)
		}
	}
	if s.cfg.SSRFInternal {
		if f, ok := checkSSRF(value, path); ok {
			findings = append(findings, f)
		}
	}
	if s.cfg.PathTraversal {
		if f, ok := checkPathTraversal(value, path); ok {
			findings = append(findings, f)
		}
	}
	return findings
}

// scanObjectForNoSQL runs the NoSQL detector over keys, which unlike the
// others needs to see the *parent object's* keys (it looks for
// `$`-prefixed siblings), not just a single string leaf. It's invoked
// from the object case directly rather than from scanString.
func (s *Scanner) scanObjectForNoSQL(keys []string, path string, findings *[]Finding) {
	if !s.cfg.NoSQLInjection {
		return
	}
	for _, key := range keys {
		if f, ok := checkNoSQLKey(key, path+"/"+key); ok {
			*findings = append(*findings, f)
		}
	}
}

// sortedKeys is the fallback ordering for plain map[string]any values
// (declaration order is unrecoverable once a document has gone through a
// non-order-preserving decode).
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
