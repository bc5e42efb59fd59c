package picoprompt

import "context"

// Role identifies the author of a message.
type Role string

const (
	RoleUser   Role = "user"
	RoleModel  Role = "model"
	RoleSystem Role = "system"
	RoleTool   Role = "tool"
)

// MediaContent references media by URL with an optional content type.
type MediaContent struct {
	URL         string `json:"url"`
	ContentType string `json:"contentType,omitempty"`
}

// Part is one piece of message content. Exactly one of Text, Media or Data is
// set for regular parts; pending section placeholders carry only Metadata.
type Part struct {
	Text     string         `json:"text,omitempty"`
	Media    *MediaContent  `json:"media,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Message is a single conversational turn.
type Message struct {
	Role     Role           `json:"role"`
	Content  []Part         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Document is retrieved context supplied alongside the input data.
type Document struct {
	Content  []Part         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// DataArgument carries everything a render call may consume: template input
// variables, prior conversation history, documents and request context.
type DataArgument struct {
	Input    map[string]any `json:"input,omitempty"`
	Docs     []Document     `json:"docs,omitempty"`
	Messages []Message      `json:"messages,omitempty"`
	Context  map[string]any `json:"context,omitempty"`
}

// ToolDefinition describes a tool a prompt may call.
type ToolDefinition struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	InputSchema  any    `json:"inputSchema,omitempty"`
	OutputSchema any    `json:"outputSchema,omitempty"`
}

// PromptInputConfig configures the input variables of a prompt. Schema holds a
// Picoschema or JSON Schema value before metadata resolution and compiled JSON
// Schema after.
type PromptInputConfig struct {
	Default map[string]any `json:"default,omitempty"`
	Schema  any            `json:"schema,omitempty"`
}

// PromptOutputConfig configures the expected model output.
type PromptOutputConfig struct {
	Format string `json:"format,omitempty"`
	Schema any    `json:"schema,omitempty"`
}

// PromptMetadata is the structured form of a prompt's frontmatter.
type PromptMetadata struct {
	Name        string                    `json:"name,omitempty"`
	Variant     string                    `json:"variant,omitempty"`
	Version     string                    `json:"version,omitempty"`
	Description string                    `json:"description,omitempty"`
	Model       string                    `json:"model,omitempty"`
	Tools       []string                  `json:"tools,omitempty"`
	ToolDefs    []ToolDefinition          `json:"toolDefs,omitempty"`
	Config      map[string]any            `json:"config,omitempty"`
	Input       *PromptInputConfig        `json:"input,omitempty"`
	Output      *PromptOutputConfig       `json:"output,omitempty"`
	Raw         map[string]any            `json:"raw,omitempty"`
	Ext         map[string]map[string]any `json:"ext,omitempty"`
	Metadata    map[string]any            `json:"metadata,omitempty"`
}

// ParsedPrompt is a prompt source split into frontmatter metadata and the
// template body.
type ParsedPrompt struct {
	PromptMetadata
	Template string `json:"template"`
}

// RenderedPrompt is the output of rendering: resolved metadata plus the
// message list derived from the rendered template.
type RenderedPrompt struct {
	PromptMetadata
	Messages []Message `json:"messages"`
}

// PromptFunction renders a previously compiled prompt against data.
type PromptFunction func(ctx context.Context, data *DataArgument, extra *PromptMetadata) (RenderedPrompt, error)
