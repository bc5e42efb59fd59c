// Package picoprompt parses, compiles and renders .prompt files: YAML
// frontmatter for metadata, a Handlebars body for the template, and
// Picoschema for compact input/output schema declarations.
//
// Typical usage:
//
//	engine := picoprompt.New(picoprompt.Options{DefaultModel: "example/basic"})
//	rendered, err := engine.Render(ctx, source, &picoprompt.DataArgument{
//	    Input: map[string]any{"name": "World"},
//	}, nil)
//
// Design policy:
//   - Rendering produces structured messages, not strings. Role, history,
//     media and section helpers emit inline markers that ToMessages converts
//     back into message structure.
//   - Metadata layers deterministically: model config, then prompt
//     frontmatter, then caller overrides, with config maps merged key by key.
//   - Schemas written in Picoschema compile to plain JSON Schema before the
//     metadata is returned; callers never see the shorthand form.
//   - Resolvers (schema, tool, partial) are consulted lazily so registries can
//     live outside the engine.
//
// Subpackages: picoschema implements the schema compiler, store loads prompt
// directories, jsonschema holds the ordered schema node representation.
package picoprompt
