package reqctx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// OrderedMap is a JSON object decoded with its key order preserved.
// Code that cares about first-occurrence order (the vulnerability
// scanner's declaration-order traversal) type-asserts for this shape
// instead of ranging over a map[string]any, whose iteration order Go
// deliberately randomizes.
type OrderedMap struct {
	keys   []string
	values map[string]any
}

// OrderedKeys returns the object's keys in the order they appeared in
// the source document.
func (m *OrderedMap) OrderedKeys() []string { return m.keys }

// Value returns the value stored under key, or nil if key is absent.
func (m *OrderedMap) Value(key string) any { return m.values[key] }

// Len returns the number of keys in the object.
func (m *OrderedMap) Len() int { return len(m.keys) }

func newOrderedMap() *OrderedMap {
	return &OrderedMap{values: make(map[string]any)}
}

func (m *OrderedMap) set(key string, value any) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// decodeOrderedJSON parses raw the same way encoding/json.Unmarshal would
// (objects, arrays, strings, float64 numbers, bools, nil), except every
// object becomes an *OrderedMap rather than a map[string]any, so a
// depth-first walk of the result visits keys in declaration order.
func decodeOrderedJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	val, err := decodeOrderedValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("reqctx: unexpected trailing data after JSON value")
	}
	return val, nil
}

func decodeOrderedValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeOrderedToken(dec, tok)
}

func decodeOrderedToken(dec *json.Decoder, tok json.Token) (any, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeOrderedObject(dec)
		case '[':
			return decodeOrderedArray(dec)
		}
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	case string, bool, nil:
		return t, nil
	}
	return nil, fmt.Errorf("reqctx: unexpected JSON token %v", tok)
}

func decodeOrderedObject(dec *json.Decoder) (*OrderedMap, error) {
	obj := newOrderedMap()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("reqctx: unexpected object key token %v", keyTok)
		}
		val, err := decodeOrderedValue(dec)
		if err != nil {
			return nil, err
		}
		obj.set(key, val)
	}
	if _, err := dec.Token(); err != nil { // consume closing '}'
		return nil, err
	}
	return obj, nil
}

func decodeOrderedArray(dec *json.Decoder) ([]any, error) {
	var arr []any
	for dec.More() {
		val, err := decodeOrderedValue(dec)
		if err != nil {
			return nil, err
		}
		arr = append(arr, val)
	}
	if _, err := dec.Token(); err != nil { // consume closing ']'
		return nil, err
	}
	return arr, nil
}
