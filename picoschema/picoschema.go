package picoschema

import (
	"context"
	"sort"

	"github.com/reoring/picoprompt/jsonschema"
)

// scalarTypes is the closed set of primitive type names recognized without
// resolution.
var scalarTypes = map[string]struct{}{
	"any":     {},
	"boolean": {},
	"integer": {},
	"null":    {},
	"number":  {},
	"string":  {},
}

func isScalarType(name string) bool {
	_, ok := scalarTypes[name]
	return ok
}

// isCompiledType reports whether name is a type a compiled JSON Schema node
// may carry at its top level.
func isCompiledType(name string) bool {
	return isScalarType(name) || name == "object" || name == "array"
}

// Options configures a Compiler.
type Options struct {
	// Resolver supplies named schemas. Optional; without it any non-scalar
	// type reference fails compilation.
	Resolver SchemaResolver
}

// Compiler translates Picoschema values into JSON Schema nodes. It holds a
// single immutable resolver reference and no other state; Compile is a pure
// function of its input, so a Compiler is safe for concurrent use.
type Compiler struct {
	resolver SchemaResolver
}

// NewCompiler returns a Compiler with the given options.
func NewCompiler(opts Options) *Compiler {
	return &Compiler{resolver: opts.Resolver}
}

// Compile is a convenience wrapper for one-shot compilation.
func Compile(ctx context.Context, schema any, opts Options) (any, error) {
	return NewCompiler(opts).Compile(ctx, schema)
}

// Compile translates a Picoschema value into a JSON Schema node. A nil or
// empty input yields (nil, nil). Mappings that already look like JSON Schema
// pass through unchanged, which lets callers mix raw JSON Schema fragments
// into Picoschema documents. Named type references are resolved through the
// configured resolver; each reference triggers an independent resolver call,
// in depth-first key-declaration order, with no caching.
func (c *Compiler) Compile(ctx context.Context, schema any) (any, error) {
	if isAbsent(schema) {
		return nil, nil
	}
	if s, ok := schema.(string); ok {
		return c.compileString(ctx, s, nil, false)
	}
	if jsonschema.IsMapping(schema) {
		if isCompiledSchema(schema) {
			return schema, nil
		}
		if props, ok := jsonschema.Get(schema, "properties"); ok && jsonschema.IsMapping(props) {
			out := jsonschema.Copy(schema)
			jsonschema.Set(out, "type", "object")
			return out, nil
		}
	}
	return c.compileObject(ctx, schema, nil)
}

// isAbsent implements the top-level absent check. Emptiness counts only here;
// nested recursion treats empty mappings as ordinary object fragments.
func isAbsent(schema any) bool {
	switch v := schema.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	case int:
		return v == 0
	case int64:
		return v == 0
	case float64:
		return v == 0
	case []any:
		return len(v) == 0
	}
	if jsonschema.IsMapping(schema) {
		return jsonschema.Len(schema) == 0
	}
	return false
}

// isCompiledSchema reports whether a mapping already is JSON Schema: it has a
// "type" key whose value is one of the known type names.
func isCompiledSchema(schema any) bool {
	t, ok := jsonschema.Get(schema, "type")
	if !ok {
		return false
	}
	s, ok := t.(string)
	return ok && isCompiledType(s)
}

// compileString handles shorthand strings. nested selects the recursion-level
// semantics for the bare scalar "any": at the top level it compiles to
// {type: any}, inside an object fragment it compiles to the empty node.
func (c *Compiler) compileString(ctx context.Context, s string, path []string, nested bool) (any, error) {
	token, desc, _ := extractDescription(s)
	if !isScalarType(token) {
		resolved, err := c.mustResolve(ctx, token, path)
		if err != nil {
			return nil, err
		}
		if desc != "" {
			resolved = jsonschema.Copy(resolved)
			jsonschema.Set(resolved, "description", desc)
		}
		return resolved, nil
	}
	node := jsonschema.NewMap()
	if !nested || token != "any" {
		node.Set("type", token)
	}
	if desc != "" {
		node.Set("description", desc)
	}
	return node, nil
}

// compileObject is the recursive heart of the compiler: it walks a Picoschema
// mapping, interprets each key's annotation syntax, and assembles the
// corresponding JSON Schema object node. path accumulates the raw keys from
// the document root for error reporting.
func (c *Compiler) compileObject(ctx context.Context, fragment any, path []string) (any, error) {
	if s, ok := fragment.(string); ok {
		return c.compileString(ctx, s, path, true)
	}
	if !jsonschema.IsMapping(fragment) {
		return nil, issueAt(CodeInvalidStructure, path, "fragments consist only of objects and strings, got %T", fragment)
	}

	node := jsonschema.NewMap()
	node.Set("type", "object")
	props := jsonschema.NewMap()
	node.Set("properties", props)
	node.Set("required", []string(nil))
	node.Set("additionalProperties", false)
	var required []string

	for _, e := range entries(fragment) {
		kd := lexKey(e.key)
		keyPath := appendPath(path, e.key)

		if kd.Wildcard {
			ap, err := c.compileObject(ctx, e.value, keyPath)
			if err != nil {
				return nil, err
			}
			node.Set("additionalProperties", ap)
			continue
		}

		if !kd.Optional {
			required = append(required, kd.Name)
		}

		var prop any
		switch kd.Annotation {
		case "":
			child, err := c.compileObject(ctx, e.value, keyPath)
			if err != nil {
				return nil, err
			}
			if kd.Optional {
				child = withNullType(child)
			}
			props.Set(kd.Name, child)
			continue
		case "array":
			items, err := c.compileObject(ctx, e.value, keyPath)
			if err != nil {
				return nil, err
			}
			arr := jsonschema.NewMap()
			if kd.Optional {
				arr.Set("type", []any{"array", "null"})
			} else {
				arr.Set("type", "array")
			}
			arr.Set("items", items)
			prop = arr
		case "object":
			child, err := c.compileObject(ctx, e.value, keyPath)
			if err != nil {
				return nil, err
			}
			if kd.Optional {
				child = withNullType(child)
			}
			prop = child
		case "enum":
			values, ok := e.value.([]any)
			if !ok {
				return nil, issueAt(CodeInvalidStructure, keyPath, "enum values must be a literal list, got %T", e.value)
			}
			vals := append([]any(nil), values...)
			if kd.Optional && !containsNull(vals) {
				vals = append(vals, nil)
			}
			en := jsonschema.NewMap()
			en.Set("enum", vals)
			prop = en
		default:
			return nil, issueAt(CodeInvalidAnnotation, keyPath, "parenthetical type must be \"array\", \"object\" or \"enum\", got %q", kd.Annotation)
		}

		if kd.Description != "" {
			jsonschema.Set(prop, "description", kd.Description)
		}
		props.Set(kd.Name, prop)
	}

	if len(required) > 0 {
		node.Set("required", required)
	} else {
		node.Delete("required")
	}
	return node, nil
}

// withNullType widens a node's single string type into a [type, "null"] union.
// Nodes with absent or already-union types are returned untouched. The input
// node is copied, not mutated, because it may have come from a resolver.
func withNullType(node any) any {
	t, ok := jsonschema.Get(node, "type")
	if !ok {
		return node
	}
	s, ok := t.(string)
	if !ok {
		return node
	}
	out := jsonschema.Copy(node)
	jsonschema.Set(out, "type", []any{s, "null"})
	return out
}

func containsNull(values []any) bool {
	for _, v := range values {
		if v == nil {
			return true
		}
	}
	return false
}

// appendPath extends the error path without aliasing the parent's backing
// array across sibling recursions.
func appendPath(path []string, key string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, key)
}

type entry struct {
	key   string
	value any
}

// entries iterates a fragment's keys in declaration order for ordered maps.
// Plain Go maps carry no declaration order, so their keys are visited sorted
// to keep output deterministic; the YAML decoding path always produces
// ordered maps.
func entries(fragment any) []entry {
	switch m := fragment.(type) {
	case jsonschema.Map:
		out := make([]entry, 0, m.Len())
		for p := m.Oldest(); p != nil; p = p.Next() {
			out = append(out, entry{key: p.Key, value: p.Value})
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]entry, 0, len(keys))
		for _, k := range keys {
			out = append(out, entry{key: k, value: m[k]})
		}
		return out
	}
	return nil
}
