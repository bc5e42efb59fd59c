// Package picoschema compiles Picoschema, a compact YAML-optimized schema
// shorthand, into standard JSON Schema.
//
// The shorthand covers:
//
//   - scalar types: any, boolean, integer, null, number, string
//   - optional properties via a "?" suffix (name?: string)
//   - inline descriptions after a comma (age: integer, age in years)
//   - arrays, nested objects and enums via parenthetical annotations
//     (tags(array): string, address(object): ..., status(enum): [A, B])
//   - wildcard properties ((*): any) mapped to additionalProperties
//   - named schema references resolved through a caller-supplied
//     SchemaResolver
//
// Design policy:
//   - Compilation is a pure function of (input, resolver); a Compiler holds no
//     other state and may be shared.
//   - Errors are surfaced as Issues carrying a code and the key path from the
//     document root; the first error aborts the compile.
//   - Mappings that already look like JSON Schema pass through unchanged.
//
// Typical usage:
//
//	node, err := picoschema.Compile(ctx, value, picoschema.Options{Resolver: r})
package picoschema
