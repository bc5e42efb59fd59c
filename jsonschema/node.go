// Package jsonschema holds the compiled-schema node representation shared by
// the picoschema compiler and the prompt engine.
//
// Nodes are deliberately open mappings rather than a closed struct: callers may
// embed raw JSON Schema fragments in Picoschema documents, and those fragments
// must round-trip unchanged, including keywords this module never interprets.
package jsonschema

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Map is an insertion-ordered JSON object node. Key order is semantically
// significant for Picoschema (it drives property and required ordering), so
// the compiler builds every node it owns as a Map.
type Map = *orderedmap.OrderedMap[string, any]

// NewMap returns an empty ordered object node.
func NewMap() Map { return orderedmap.New[string, any]() }

// IsMapping reports whether v is an object node of either supported shape.
func IsMapping(v any) bool {
	switch v.(type) {
	case Map, map[string]any:
		return true
	}
	return false
}

// Get looks up key on an object node. It accepts both ordered and plain maps
// so resolver-supplied nodes do not need converting before inspection.
func Get(node any, key string) (any, bool) {
	switch m := node.(type) {
	case Map:
		return m.Get(key)
	case map[string]any:
		v, ok := m[key]
		return v, ok
	}
	return nil, false
}

// Set stores key on an object node in place. Setting an existing key on a Map
// keeps its position; new keys append.
func Set(node any, key string, v any) {
	switch m := node.(type) {
	case Map:
		m.Set(key, v)
	case map[string]any:
		m[key] = v
	}
}

// Copy returns a shallow copy of an object node, preserving its shape and, for
// ordered nodes, its key order. Non-mapping values are returned as-is.
func Copy(node any) any {
	switch m := node.(type) {
	case Map:
		out := orderedmap.New[string, any](m.Len())
		for p := m.Oldest(); p != nil; p = p.Next() {
			out.Set(p.Key, p.Value)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out
	}
	return node
}

// Len returns the number of keys on an object node, or 0 for non-mappings.
func Len(node any) int {
	switch m := node.(type) {
	case Map:
		return m.Len()
	case map[string]any:
		return len(m)
	}
	return 0
}
