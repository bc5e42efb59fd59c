package picoprompt

import (
	"regexp"
	"strings"

	"github.com/reoring/picoprompt/internal/yamlconv"
	"github.com/reoring/picoprompt/jsonschema"
)

// Rendered templates carry inline markers that the message splitter turns back
// into structure. Helpers emit them; user content never should.
const (
	roleMarkerPrefix    = "<<<picoprompt:role:"
	historyMarkerPrefix = "<<<picoprompt:history"
	sectionMarkerPrefix = "<<<picoprompt:section"
	mediaMarkerPrefix   = "<<<picoprompt:media:url"
)

var (
	frontmatterRe       = regexp.MustCompile(`(?s)^---\s*\r?\n(.*?)\r?\n---\s*\r?\n(.*)$`)
	roleAndHistoryRe    = regexp.MustCompile(`(<<<picoprompt:(?:role:[a-z]+|history))>>>`)
	mediaAndSectionRe   = regexp.MustCompile(`(<<<picoprompt:(?:media:url|section).*?)>>>`)
	partialNameRe       = regexp.MustCompile(`{{\s*>\s*([a-zA-Z0-9_.-]+)\s*}}`)
	reservedMetadataKey = map[string]struct{}{
		"name": {}, "variant": {}, "version": {}, "description": {}, "model": {},
		"tools": {}, "toolDefs": {}, "config": {}, "input": {}, "output": {},
		"raw": {}, "ext": {}, "metadata": {},
	}
)

// ExtractFrontmatterAndBody splits a prompt source into its YAML frontmatter
// and template body. found reports whether frontmatter markers were present;
// without them the whole source is the body, untrimmed. With frontmatter the
// body is trimmed of surrounding whitespace.
func ExtractFrontmatterAndBody(source string) (frontmatter, body string, found bool) {
	m := frontmatterRe.FindStringSubmatch(source)
	if m == nil {
		return "", source, false
	}
	return m[1], strings.TrimSpace(m[2]), true
}

// ParseDocument parses a prompt source into structured metadata and the
// template body. Reserved frontmatter keys populate PromptMetadata fields,
// dotted keys fold into Ext by namespace, and the complete frontmatter is kept
// in Raw. Malformed YAML frontmatter is not an error: the whole source becomes
// the template, matching the reference behavior across runtimes.
func ParseDocument(source string) ParsedPrompt {
	empty := ParsedPrompt{
		PromptMetadata: PromptMetadata{Ext: map[string]map[string]any{}},
		Template:       source,
	}

	yamlText, body, found := ExtractFrontmatterAndBody(source)
	if !found || strings.TrimSpace(yamlText) == "" {
		if found {
			empty.Template = body
		}
		return empty
	}

	decoded, err := yamlconv.Decode([]byte(yamlText))
	if err != nil {
		return empty
	}
	fm, ok := decoded.(jsonschema.Map)
	if !ok {
		return empty
	}

	md := PromptMetadata{
		Raw: make(map[string]any, fm.Len()),
		Ext: map[string]map[string]any{},
	}
	for p := fm.Oldest(); p != nil; p = p.Next() {
		key, value := p.Key, p.Value
		md.Raw[key] = value

		if i := strings.LastIndex(key, "."); i >= 0 {
			ns, field := key[:i], key[i+1:]
			if md.Ext[ns] == nil {
				md.Ext[ns] = map[string]any{}
			}
			md.Ext[ns][field] = plainValue(value)
			continue
		}
		if _, reserved := reservedMetadataKey[key]; !reserved {
			continue
		}
		switch key {
		case "name":
			md.Name = stringOrEmpty(value)
		case "variant":
			md.Variant = stringOrEmpty(value)
		case "version":
			md.Version = stringOrEmpty(value)
		case "description":
			md.Description = stringOrEmpty(value)
		case "model":
			md.Model = stringOrEmpty(value)
		case "tools":
			md.Tools = stringSlice(value)
		case "toolDefs":
			md.ToolDefs = toolDefs(value)
		case "config":
			md.Config = plainMap(value)
		case "metadata":
			md.Metadata = plainMap(value)
		case "input":
			md.Input = inputConfig(value)
		case "output":
			md.Output = outputConfig(value)
		}
	}
	return ParsedPrompt{PromptMetadata: md, Template: body}
}

// inputConfig reads an input block. The schema value is kept in its ordered
// form so Picoschema key declaration order survives until compilation.
func inputConfig(v any) *PromptInputConfig {
	if !jsonschema.IsMapping(v) {
		return nil
	}
	cfg := &PromptInputConfig{}
	if d, ok := jsonschema.Get(v, "default"); ok {
		cfg.Default = plainMap(d)
	}
	if s, ok := jsonschema.Get(v, "schema"); ok {
		cfg.Schema = s
	}
	return cfg
}

func outputConfig(v any) *PromptOutputConfig {
	if !jsonschema.IsMapping(v) {
		return nil
	}
	cfg := &PromptOutputConfig{}
	if f, ok := jsonschema.Get(v, "format"); ok {
		cfg.Format = stringOrEmpty(f)
	}
	if s, ok := jsonschema.Get(v, "schema"); ok {
		cfg.Schema = s
	}
	return cfg
}

func toolDefs(v any) []ToolDefinition {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]ToolDefinition, 0, len(list))
	for _, item := range list {
		if !jsonschema.IsMapping(item) {
			continue
		}
		def := ToolDefinition{}
		if n, ok := jsonschema.Get(item, "name"); ok {
			def.Name = stringOrEmpty(n)
		}
		if d, ok := jsonschema.Get(item, "description"); ok {
			def.Description = stringOrEmpty(d)
		}
		if s, ok := jsonschema.Get(item, "inputSchema"); ok {
			def.InputSchema = s
		}
		if s, ok := jsonschema.Get(item, "outputSchema"); ok {
			def.OutputSchema = s
		}
		out = append(out, def)
	}
	return out
}

func stringOrEmpty(v any) string {
	s, _ := v.(string)
	return s
}

func stringSlice(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// plainValue converts ordered maps back into plain map[string]any recursively.
// Metadata consumers expect ordinary JSON-ish values; only schema fields need
// ordering.
func plainValue(v any) any {
	switch t := v.(type) {
	case jsonschema.Map:
		out := make(map[string]any, t.Len())
		for p := t.Oldest(); p != nil; p = p.Next() {
			out[p.Key] = plainValue(p.Value)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = plainValue(item)
		}
		return out
	}
	return v
}

func plainMap(v any) map[string]any {
	m, _ := plainValue(v).(map[string]any)
	return m
}

// ---- message splitting ----

// splitByRegex splits source on re while keeping the first capture group of
// each match as its own piece. Text between markers is dropped when it is
// whitespace-only.
func splitByRegex(source string, re *regexp.Regexp) []string {
	var out []string
	last := 0
	for _, m := range re.FindAllStringSubmatchIndex(source, -1) {
		before := source[last:m[0]]
		if strings.TrimSpace(before) != "" {
			out = append(out, before)
		}
		out = append(out, source[m[2]:m[3]])
		last = m[1]
	}
	rest := source[last:]
	if strings.TrimSpace(rest) != "" {
		out = append(out, rest)
	}
	return out
}

// parsePart turns one split piece into a message part.
func parsePart(piece string) Part {
	switch {
	case strings.HasPrefix(piece, mediaMarkerPrefix):
		fields := strings.Fields(strings.TrimPrefix(piece, mediaMarkerPrefix))
		media := &MediaContent{}
		if len(fields) > 0 {
			media.URL = fields[0]
		}
		if len(fields) > 1 {
			media.ContentType = fields[1]
		}
		return Part{Media: media}
	case strings.HasPrefix(piece, sectionMarkerPrefix):
		purpose := strings.TrimSpace(strings.TrimPrefix(piece, sectionMarkerPrefix))
		return Part{Metadata: map[string]any{"purpose": purpose, "pending": true}}
	default:
		return Part{Text: piece}
	}
}

func toParts(source string) []Part {
	pieces := splitByRegex(source, mediaAndSectionRe)
	out := make([]Part, 0, len(pieces))
	for _, piece := range pieces {
		out = append(out, parsePart(piece))
	}
	return out
}

// messageSource accumulates template text for one message while the splitter
// walks the rendered string. content is set directly only for messages spliced
// in from history.
type messageSource struct {
	role     Role
	source   string
	content  []Part
	metadata map[string]any
}

func (ms *messageSource) hasContent() bool {
	return strings.TrimSpace(ms.source) != "" || ms.content != nil
}

func messageSourcesToMessages(sources []*messageSource) []Message {
	var out []Message
	for _, ms := range sources {
		if !ms.hasContent() {
			continue
		}
		content := ms.content
		if content == nil {
			content = toParts(ms.source)
		}
		out = append(out, Message{Role: ms.role, Content: content, Metadata: ms.metadata})
	}
	return out
}

// transformMessagesToHistory marks messages as history without mutating the
// caller's copies.
func transformMessagesToHistory(messages []Message) []Message {
	out := make([]Message, len(messages))
	for i, m := range messages {
		md := make(map[string]any, len(m.Metadata)+1)
		for k, v := range m.Metadata {
			md[k] = v
		}
		md["purpose"] = "history"
		out[i] = Message{Role: m.Role, Content: m.Content, Metadata: md}
	}
	return out
}

func messagesHaveHistory(messages []Message) bool {
	for _, m := range messages {
		if m.Metadata != nil && m.Metadata["purpose"] == "history" {
			return true
		}
	}
	return false
}

// insertHistory splices history messages into a rendered message list unless a
// history marker already placed them. History lands before a trailing user
// message so the latest question stays last; otherwise it is appended.
func insertHistory(messages, history []Message) []Message {
	if len(history) == 0 || messagesHaveHistory(messages) {
		return messages
	}
	if len(messages) == 0 {
		return history
	}
	if last := messages[len(messages)-1]; last.Role == RoleUser {
		out := make([]Message, 0, len(messages)+len(history))
		out = append(out, messages[:len(messages)-1]...)
		out = append(out, transformMessagesToHistory(history)...)
		out = append(out, last)
		return out
	}
	return append(messages, transformMessagesToHistory(history)...)
}

// ToMessages converts a rendered template string into messages, honoring role
// and history markers. data supplies the conversation history referenced by
// the history marker or inserted implicitly.
func ToMessages(rendered string, data *DataArgument) []Message {
	current := &messageSource{role: RoleUser}
	var sources []*messageSource

	for _, piece := range splitByRegex(rendered, roleAndHistoryRe) {
		switch {
		case strings.HasPrefix(piece, roleMarkerPrefix):
			role := roleFromMarker(strings.TrimPrefix(piece, roleMarkerPrefix))
			if strings.TrimSpace(current.source) == "" {
				// No content yet: retarget the current message.
				current.role = role
			} else {
				sources = append(sources, current)
				current = &messageSource{role: role}
			}
		case strings.HasPrefix(piece, historyMarkerPrefix):
			if strings.TrimSpace(current.source) != "" {
				sources = append(sources, current)
			}
			if data != nil {
				for _, msg := range transformMessagesToHistory(data.Messages) {
					sources = append(sources, &messageSource{
						role:     msg.Role,
						content:  msg.Content,
						metadata: msg.Metadata,
					})
				}
			}
			current = &messageSource{role: RoleModel}
		default:
			current.source += piece
		}
	}
	sources = append(sources, current)

	messages := messageSourcesToMessages(sources)

	var history []Message
	if data != nil {
		history = data.Messages
	}
	return insertHistory(messages, history)
}

func roleFromMarker(name string) Role {
	switch name {
	case "model":
		return RoleModel
	case "system":
		return RoleSystem
	case "tool":
		return RoleTool
	default:
		return RoleUser
	}
}

// identifyPartials returns the set of partial names referenced by a template.
func identifyPartials(template string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, m := range partialNameRe.FindAllStringSubmatch(template, -1) {
		out[m[1]] = struct{}{}
	}
	return out
}
