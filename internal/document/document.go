// Package document provides typed, non-panicking access to the nested JSON
// documents returned by the Onecta cloud.
package document

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-openapi/jsonpointer"
)

// Document is a decoded JSON object. Numbers are float64 as produced by encoding/json.
type Document = map[string]any

// Result is the tagged outcome of a path lookup: either Found with a value, or Absent.
type Result struct {
	value any
	found bool
}

// Absent is the zero Result.
var Absent = Result{}

// Found wraps a value as a successful lookup.
func Found(v any) Result {
	return Result{value: v, found: true}
}

// Lookup walks node along the given object keys. Any missing key or
// non-object intermediate yields Absent.
func Lookup(node any, keys ...string) Result {
	cur := node
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return Absent
		}
		next, ok := m[k]
		if !ok {
			return Absent
		}
		cur = next
	}
	return Found(cur)
}

// Found reports whether the lookup succeeded.
func (r Result) Found() bool { return r.found }

// Value returns the raw value, nil when absent.
func (r Result) Value() any { return r.value }

// Get continues the lookup from this result.
func (r Result) Get(keys ...string) Result {
	if !r.found {
		return Absent
	}
	return Lookup(r.value, keys...)
}

// Map returns the value as a JSON object.
func (r Result) Map() (map[string]any, bool) {
	if !r.found {
		return nil, false
	}
	m, ok := r.value.(map[string]any)
	return m, ok
}

// String returns the value as a string.
func (r Result) String() (string, bool) {
	if !r.found {
		return "", false
	}
	s, ok := r.value.(string)
	return s, ok
}

// Float returns the value as a number. Integer kinds are widened so documents
// patched locally with Go ints read back the same way as decoded ones.
func (r Result) Float() (float64, bool) {
	if !r.found {
		return 0, false
	}
	switch v := r.value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	}
	return 0, false
}

// Bool returns the value as a boolean.
func (r Result) Bool() (bool, bool) {
	if !r.found {
		return false, false
	}
	b, ok := r.value.(bool)
	return b, ok
}

// Strings returns the value as a list of strings. Non-string members make the
// whole result absent.
func (r Result) Strings() ([]string, bool) {
	if !r.found {
		return nil, false
	}
	switch v := r.value.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// Objects returns the value as a list of JSON objects, skipping members that are not objects.
func (r Result) Objects() ([]map[string]any, bool) {
	if !r.found {
		return nil, false
	}
	list, ok := r.value.([]any)
	if !ok {
		return nil, false
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, true
}

// Keys returns the sorted keys of an object value.
func (r Result) Keys() []string {
	m, ok := r.Map()
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns value at keys inside node, mutating it in place. Every parent
// must already exist as an object; Set never creates intermediate objects.
func Set(node any, value any, keys ...string) bool {
	if len(keys) == 0 {
		return false
	}
	parent, ok := Lookup(node, keys[:len(keys)-1]...).Map()
	if !ok {
		return false
	}
	parent[keys[len(keys)-1]] = value
	return true
}

// ParsePointer splits a JSON pointer such as "/modes/fixed" into decoded
// reference tokens. The empty string addresses the root.
func ParsePointer(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	p, err := jsonpointer.New(path)
	if err != nil {
		return nil, fmt.Errorf("parse pointer %q: %w", path, err)
	}
	return p.DecodedTokens(), nil
}

// Pointer builds a JSON pointer from raw tokens, escaping "~" and "/".
func Pointer(tokens ...string) string {
	if len(tokens) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, t := range tokens {
		sb.WriteByte('/')
		sb.WriteString(jsonpointer.Escape(t))
	}
	return sb.String()
}
