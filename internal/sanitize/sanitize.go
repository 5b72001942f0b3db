// Package sanitize rewrites untrusted profile documents into a shape the
// document store accepts.
package sanitize

import "strings"

// Profile returns a storage-safe rebuild of p. The store rejects keys that
// contain a path separator or begin with an operator sigil, so at every
// nesting depth a "." inside a key becomes "_" and a leading "$" becomes "_".
// Each input value feeds exactly one output entry; a value is never aliased
// under both its old and new key. The rebuild is depth-first and shares no
// maps or slices with the input, so callers can sanitize entries that are
// still referenced by an in-flight batch. A nil input passes through
// unchanged.
func Profile(p map[string]any) map[string]any {
	if p == nil {
		return nil
	}
	out := make(map[string]any, len(p))
	for key, value := range p {
		out[safeKey(key)] = safeValue(value)
	}
	return out
}

func safeKey(key string) string {
	key = strings.ReplaceAll(key, ".", "_")
	if strings.HasPrefix(key, "$") {
		key = "_" + key[1:]
	}
	return key
}

func safeValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return Profile(v)
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = safeValue(elem)
		}
		return out
	default:
		return value
	}
}
