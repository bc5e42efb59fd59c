package picoschema

import "context"

// SchemaResolver supplies compiled JSON Schema nodes for named type references
// such as "MyType". Implementations may perform I/O; they receive the caller's
// context and should honor its cancellation. Returning (nil, nil) means the
// name is unknown.
//
// The compiler treats resolver output as already-compiled JSON Schema: it is
// passed through without recursive expansion and never mutated beyond copying
// a node to attach an inline description.
type SchemaResolver interface {
	ResolveSchema(ctx context.Context, name string) (any, error)
}

// SchemaResolverFunc adapts a plain function to SchemaResolver.
type SchemaResolverFunc func(ctx context.Context, name string) (any, error)

// ResolveSchema implements SchemaResolver.
func (f SchemaResolverFunc) ResolveSchema(ctx context.Context, name string) (any, error) {
	return f(ctx, name)
}

// mustResolve wraps the configured resolver, converting its absence and its
// not-found result into compile errors carrying the offending path. Resolver
// failures (including context cancellation) propagate unchanged and abort the
// remaining recursion.
func (c *Compiler) mustResolve(ctx context.Context, name string, path []string) (any, error) {
	if c.resolver == nil {
		return nil, issueAt(CodeUnresolvableType, path, "unsupported scalar type %q and no schema resolver configured", name)
	}
	v, err := c.resolver.ResolveSchema(ctx, name)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, issueAt(CodeUnknownSchema, path, "could not find schema with name %q", name)
	}
	return v, nil
}
