package picoprompt

import (
	"context"
	"fmt"
	"sync"

	"github.com/aymerick/raymond"

	"github.com/reoring/picoprompt/picoschema"
)

// ToolResolver looks up tool definitions that were not registered up front.
// Returning (nil, nil) means the tool is unknown here; its name stays on the
// prompt metadata for a later layer to resolve.
type ToolResolver interface {
	ResolveTool(ctx context.Context, name string) (*ToolDefinition, error)
}

// ToolResolverFunc adapts a function to ToolResolver.
type ToolResolverFunc func(ctx context.Context, name string) (*ToolDefinition, error)

func (f ToolResolverFunc) ResolveTool(ctx context.Context, name string) (*ToolDefinition, error) {
	return f(ctx, name)
}

// PartialResolver supplies template sources for partials that were not
// registered on the engine. Returning ("", nil) means the partial is unknown.
type PartialResolver interface {
	ResolvePartial(ctx context.Context, name string) (string, error)
}

// PartialResolverFunc adapts a function to PartialResolver.
type PartialResolverFunc func(ctx context.Context, name string) (string, error)

func (f PartialResolverFunc) ResolvePartial(ctx context.Context, name string) (string, error) {
	return f(ctx, name)
}

// Options configures a new Engine. All fields are optional.
type Options struct {
	// DefaultModel is used when neither the prompt nor the caller names one.
	DefaultModel string
	// ModelConfigs supplies per-model base configuration, merged underneath
	// prompt and caller config.
	ModelConfigs map[string]map[string]any
	// Helpers are extra template helpers, registered alongside the built-ins.
	Helpers map[string]any
	// Partials maps partial names to template sources.
	Partials map[string]string
	// Tools are known tool definitions, keyed by name.
	Tools map[string]ToolDefinition

	ToolResolver ToolResolver
	// Schemas are named schemas referenced from Picoschema sources. Values
	// must already be JSON Schema; they are returned to the compiler as-is.
	Schemas         map[string]any
	SchemaResolver  picoschema.SchemaResolver
	PartialResolver PartialResolver
}

// Engine parses, compiles and renders prompt files. It is safe for concurrent
// use; Define* registrations may race with renders but each render sees a
// consistent snapshot.
type Engine struct {
	defaultModel string
	modelConfigs map[string]map[string]any

	toolResolver    ToolResolver
	schemaResolver  picoschema.SchemaResolver
	partialResolver PartialResolver

	mu       sync.RWMutex
	helpers  map[string]any
	partials map[string]string
	tools    map[string]ToolDefinition
	schemas  map[string]any
}

// New builds an Engine from opts.
func New(opts Options) *Engine {
	e := &Engine{
		defaultModel:    opts.DefaultModel,
		modelConfigs:    opts.ModelConfigs,
		toolResolver:    opts.ToolResolver,
		schemaResolver:  opts.SchemaResolver,
		partialResolver: opts.PartialResolver,
		helpers:         map[string]any{},
		partials:        map[string]string{},
		tools:           map[string]ToolDefinition{},
		schemas:         map[string]any{},
	}
	for name, fn := range opts.Helpers {
		e.helpers[name] = fn
	}
	for name, src := range opts.Partials {
		e.partials[name] = src
	}
	for name, def := range opts.Tools {
		e.tools[name] = def
	}
	for name, schema := range opts.Schemas {
		e.schemas[name] = schema
	}
	return e
}

// DefineHelper registers a template helper under name.
func (e *Engine) DefineHelper(name string, fn any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.helpers[name] = fn
}

// DefinePartial registers a partial template source under name.
func (e *Engine) DefinePartial(name, source string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.partials[name] = source
}

// DefineTool registers a tool definition under its name.
func (e *Engine) DefineTool(def ToolDefinition) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tools[def.Name] = def
}

// DefineSchema registers a named schema. The value must already be JSON
// Schema: when a prompt references the name, the registered node is returned
// as-is without recursive Picoschema expansion.
func (e *Engine) DefineSchema(name string, schema any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.schemas[name] = schema
}

// Parse splits a prompt source into metadata and template body.
func (e *Engine) Parse(source string) ParsedPrompt {
	return ParseDocument(source)
}

// Compile parses source and prepares a render function for it. The template is
// parsed once; the returned PromptFunction may be called many times.
func (e *Engine) Compile(ctx context.Context, source string) (PromptFunction, error) {
	parsed := ParseDocument(source)

	partials, err := e.collectPartials(ctx, parsed.Template)
	if err != nil {
		return nil, err
	}

	tpl, err := raymond.Parse(parsed.Template)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	tpl.RegisterHelpers(e.helperSet())
	for name, src := range partials {
		tpl.RegisterPartial(name, src)
	}

	return func(ctx context.Context, data *DataArgument, extra *PromptMetadata) (RenderedPrompt, error) {
		if data == nil {
			data = &DataArgument{}
		}
		md, err := e.renderMetadata(ctx, parsed.PromptMetadata, extra)
		if err != nil {
			return RenderedPrompt{}, err
		}

		input := map[string]any{}
		if md.Input != nil {
			for k, v := range md.Input.Default {
				input[k] = v
			}
		}
		for k, v := range data.Input {
			input[k] = v
		}

		frame := raymond.NewDataFrame()
		frame.Set("metadata", map[string]any{
			"prompt":   md,
			"docs":     data.Docs,
			"messages": data.Messages,
		})
		for k, v := range data.Context {
			frame.Set(k, v)
		}

		rendered, err := tpl.ExecWith(input, frame)
		if err != nil {
			return RenderedPrompt{}, fmt.Errorf("render template: %w", err)
		}
		return RenderedPrompt{
			PromptMetadata: md,
			Messages:       ToMessages(rendered, data),
		}, nil
	}, nil
}

// Render compiles source and renders it against data in one step.
func (e *Engine) Render(ctx context.Context, source string, data *DataArgument, extra *PromptMetadata) (RenderedPrompt, error) {
	fn, err := e.Compile(ctx, source)
	if err != nil {
		return RenderedPrompt{}, err
	}
	return fn(ctx, data, extra)
}

// RenderMetadata resolves the effective metadata for a parsed prompt: model
// selection, model config layering, tool resolution and schema compilation.
func (e *Engine) RenderMetadata(ctx context.Context, parsed ParsedPrompt, extra *PromptMetadata) (PromptMetadata, error) {
	return e.renderMetadata(ctx, parsed.PromptMetadata, extra)
}

func (e *Engine) renderMetadata(ctx context.Context, parsed PromptMetadata, extra *PromptMetadata) (PromptMetadata, error) {
	model := e.defaultModel
	if parsed.Model != "" {
		model = parsed.Model
	}
	if extra != nil && extra.Model != "" {
		model = extra.Model
	}

	var md PromptMetadata
	if cfg, ok := e.modelConfigs[model]; ok {
		md.Config = copyMap(cfg)
	}
	mergeMetadata(&md, parsed)
	if extra != nil {
		mergeMetadata(&md, *extra)
	}
	md.Model = model

	if err := e.resolveTools(ctx, &md); err != nil {
		return PromptMetadata{}, err
	}
	if err := e.compileSchemas(ctx, &md); err != nil {
		return PromptMetadata{}, err
	}
	return md, nil
}

// mergeMetadata layers overlay on top of dst. Set fields replace; Config is
// merged key by key so model defaults survive partial overrides.
func mergeMetadata(dst *PromptMetadata, overlay PromptMetadata) {
	if overlay.Name != "" {
		dst.Name = overlay.Name
	}
	if overlay.Variant != "" {
		dst.Variant = overlay.Variant
	}
	if overlay.Version != "" {
		dst.Version = overlay.Version
	}
	if overlay.Description != "" {
		dst.Description = overlay.Description
	}
	if overlay.Model != "" {
		dst.Model = overlay.Model
	}
	if overlay.Tools != nil {
		dst.Tools = append([]string(nil), overlay.Tools...)
	}
	if overlay.ToolDefs != nil {
		dst.ToolDefs = append([]ToolDefinition(nil), overlay.ToolDefs...)
	}
	if overlay.Config != nil {
		if dst.Config == nil {
			dst.Config = map[string]any{}
		}
		for k, v := range overlay.Config {
			dst.Config[k] = v
		}
	}
	if overlay.Input != nil {
		in := *overlay.Input
		dst.Input = &in
	}
	if overlay.Output != nil {
		out := *overlay.Output
		dst.Output = &out
	}
	if overlay.Raw != nil {
		dst.Raw = overlay.Raw
	}
	if overlay.Ext != nil {
		dst.Ext = overlay.Ext
	}
	if overlay.Metadata != nil {
		dst.Metadata = overlay.Metadata
	}
}

// resolveTools moves known tool names into ToolDefs. Names no registration or
// resolver recognizes stay in Tools.
func (e *Engine) resolveTools(ctx context.Context, md *PromptMetadata) error {
	if len(md.Tools) == 0 {
		return nil
	}
	var unresolved []string
	for _, name := range md.Tools {
		e.mu.RLock()
		def, ok := e.tools[name]
		e.mu.RUnlock()
		if ok {
			md.ToolDefs = append(md.ToolDefs, def)
			continue
		}
		if e.toolResolver != nil {
			resolved, err := e.toolResolver.ResolveTool(ctx, name)
			if err != nil {
				return fmt.Errorf("resolve tool %q: %w", name, err)
			}
			if resolved != nil {
				md.ToolDefs = append(md.ToolDefs, *resolved)
				continue
			}
		}
		unresolved = append(unresolved, name)
	}
	md.Tools = unresolved
	return nil
}

// compileSchemas compiles Picoschema input and output schemas to JSON Schema.
func (e *Engine) compileSchemas(ctx context.Context, md *PromptMetadata) error {
	opts := picoschema.Options{Resolver: e.namedSchemaResolver()}
	if md.Input != nil && md.Input.Schema != nil {
		compiled, err := picoschema.Compile(ctx, md.Input.Schema, opts)
		if err != nil {
			return fmt.Errorf("input schema: %w", err)
		}
		in := *md.Input
		in.Schema = compiled
		md.Input = &in
	}
	if md.Output != nil && md.Output.Schema != nil {
		compiled, err := picoschema.Compile(ctx, md.Output.Schema, opts)
		if err != nil {
			return fmt.Errorf("output schema: %w", err)
		}
		out := *md.Output
		out.Schema = compiled
		md.Output = &out
	}
	return nil
}

// namedSchemaResolver consults schemas registered on the engine before
// deferring to the external resolver.
func (e *Engine) namedSchemaResolver() picoschema.SchemaResolver {
	return picoschema.SchemaResolverFunc(func(ctx context.Context, name string) (any, error) {
		e.mu.RLock()
		schema, ok := e.schemas[name]
		e.mu.RUnlock()
		if ok {
			return schema, nil
		}
		if e.schemaResolver != nil {
			return e.schemaResolver.ResolveSchema(ctx, name)
		}
		return nil, nil
	})
}

func (e *Engine) helperSet() map[string]any {
	merged := templateHelpers()
	e.mu.RLock()
	defer e.mu.RUnlock()
	for name, fn := range e.helpers {
		merged[name] = fn
	}
	return merged
}

// collectPartials gathers the template sources for every partial reachable
// from template, resolving unregistered names through the partial resolver.
func (e *Engine) collectPartials(ctx context.Context, template string) (map[string]string, error) {
	out := map[string]string{}
	var walk func(tpl string) error
	walk = func(tpl string) error {
		for name := range identifyPartials(tpl) {
			if _, done := out[name]; done {
				continue
			}
			e.mu.RLock()
			src, ok := e.partials[name]
			e.mu.RUnlock()
			if !ok {
				if e.partialResolver == nil {
					continue
				}
				resolved, err := e.partialResolver.ResolvePartial(ctx, name)
				if err != nil {
					return fmt.Errorf("resolve partial %q: %w", name, err)
				}
				if resolved == "" {
					continue
				}
				src = resolved
				e.mu.Lock()
				e.partials[name] = src
				e.mu.Unlock()
			}
			out[name] = src
			if err := walk(src); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(template); err != nil {
		return nil, err
	}
	return out, nil
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
