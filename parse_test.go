package picoprompt_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/reoring/picoprompt"
)

func TestExtractFrontmatterAndBody(t *testing.T) {
	tests := []struct {
		name            string
		source          string
		wantFrontmatter string
		wantBody        string
		wantFound       bool
	}{
		{
			name:            "simple",
			source:          "---\nfoo: bar\n---\nBody text",
			wantFrontmatter: "foo: bar",
			wantBody:        "Body text",
			wantFound:       true,
		},
		{
			name:            "crlf",
			source:          "---\r\nfoo: bar\r\n---\r\nBody text",
			wantFrontmatter: "foo: bar",
			wantBody:        "Body text",
			wantFound:       true,
		},
		{
			name:            "multiline frontmatter",
			source:          "---\nfoo: bar\nbaz: qux\n---\nBody",
			wantFrontmatter: "foo: bar\nbaz: qux",
			wantBody:        "Body",
			wantFound:       true,
		},
		{
			name:            "body trimmed",
			source:          "---\nfoo: bar\n---\n\n  Body  \n",
			wantFrontmatter: "foo: bar",
			wantBody:        "Body",
			wantFound:       true,
		},
		{
			name:      "no frontmatter",
			source:    "Hello world",
			wantBody:  "Hello world",
			wantFound: false,
		},
		{
			name:      "marker not at start",
			source:    "text\n---\nfoo: bar\n---\nBody",
			wantBody:  "text\n---\nfoo: bar\n---\nBody",
			wantFound: false,
		},
		{
			name:            "extra markers stay in body",
			source:          "---\nfoo: bar\n---\nBody\n---\nmore",
			wantFrontmatter: "foo: bar",
			wantBody:        "Body\n---\nmore",
			wantFound:       true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm, body, found := picoprompt.ExtractFrontmatterAndBody(tt.source)
			if found != tt.wantFound {
				t.Fatalf("found = %v, want %v", found, tt.wantFound)
			}
			if fm != tt.wantFrontmatter {
				t.Errorf("frontmatter = %q, want %q", fm, tt.wantFrontmatter)
			}
			if body != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

func TestParseDocument(t *testing.T) {
	source := `---
name: greet
description: Greets the user
model: example/basic
tools:
  - lookup
config:
  temperature: 0.7
input:
  default:
    name: World
  schema:
    name: string, who to greet
output:
  format: json
mythical.beast: dragon
mythical.count: 3
---
Hello {{name}}!`

	p := picoprompt.ParseDocument(source)

	if p.Name != "greet" {
		t.Errorf("Name = %q", p.Name)
	}
	if p.Description != "Greets the user" {
		t.Errorf("Description = %q", p.Description)
	}
	if p.Model != "example/basic" {
		t.Errorf("Model = %q", p.Model)
	}
	if diff := cmp.Diff([]string{"lookup"}, p.Tools); diff != "" {
		t.Errorf("Tools mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"temperature": 0.7}, p.Config); diff != "" {
		t.Errorf("Config mismatch (-want +got):\n%s", diff)
	}
	if p.Input == nil {
		t.Fatal("Input is nil")
	}
	if diff := cmp.Diff(map[string]any{"name": "World"}, p.Input.Default); diff != "" {
		t.Errorf("Input.Default mismatch (-want +got):\n%s", diff)
	}
	if p.Input.Schema == nil {
		t.Error("Input.Schema is nil")
	}
	if p.Output == nil || p.Output.Format != "json" {
		t.Errorf("Output = %+v", p.Output)
	}
	wantExt := map[string]map[string]any{
		"mythical": {"beast": "dragon", "count": int64(3)},
	}
	if diff := cmp.Diff(wantExt, p.Ext); diff != "" {
		t.Errorf("Ext mismatch (-want +got):\n%s", diff)
	}
	if p.Template != "Hello {{name}}!" {
		t.Errorf("Template = %q", p.Template)
	}
	if _, ok := p.Raw["mythical.beast"]; !ok {
		t.Error("Raw missing dotted key")
	}
	if _, ok := p.Raw["name"]; !ok {
		t.Error("Raw missing reserved key")
	}
}

func TestParseDocument_NoFrontmatter(t *testing.T) {
	p := picoprompt.ParseDocument("Just a template")
	if p.Template != "Just a template" {
		t.Errorf("Template = %q", p.Template)
	}
	if p.Ext == nil || len(p.Ext) != 0 {
		t.Errorf("Ext = %#v, want empty initialized map", p.Ext)
	}
	if p.Name != "" || p.Raw != nil {
		t.Errorf("unexpected metadata: %+v", p.PromptMetadata)
	}
}

func TestParseDocument_InvalidYAML(t *testing.T) {
	source := "---\nfoo: [unclosed\n---\nBody"
	p := picoprompt.ParseDocument(source)
	if p.Template != source {
		t.Errorf("Template = %q, want full source", p.Template)
	}
	if len(p.Ext) != 0 {
		t.Errorf("Ext = %#v", p.Ext)
	}
}

func TestParseDocument_EmptyFrontmatter(t *testing.T) {
	p := picoprompt.ParseDocument("---\n\n---\nTemplate content")
	if p.Template != "Template content" {
		t.Errorf("Template = %q", p.Template)
	}
	if p.Name != "" {
		t.Errorf("Name = %q", p.Name)
	}
}

func TestToMessages_PlainText(t *testing.T) {
	got := picoprompt.ToMessages("Hello world", nil)
	want := []picoprompt.Message{
		{Role: picoprompt.RoleUser, Content: []picoprompt.Part{{Text: "Hello world"}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestToMessages_RoleMarkers(t *testing.T) {
	rendered := "<<<picoprompt:role:system>>>You are helpful.\n<<<picoprompt:role:user>>>Hi there"
	got := picoprompt.ToMessages(rendered, nil)
	want := []picoprompt.Message{
		{Role: picoprompt.RoleSystem, Content: []picoprompt.Part{{Text: "You are helpful.\n"}}},
		{Role: picoprompt.RoleUser, Content: []picoprompt.Part{{Text: "Hi there"}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestToMessages_ConsecutiveRoleMarkers(t *testing.T) {
	// A role marker with no content yet retargets the current message instead
	// of emitting an empty one.
	rendered := "<<<picoprompt:role:user>>><<<picoprompt:role:model>>>Response"
	got := picoprompt.ToMessages(rendered, nil)
	want := []picoprompt.Message{
		{Role: picoprompt.RoleModel, Content: []picoprompt.Part{{Text: "Response"}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestToMessages_HistoryMarker(t *testing.T) {
	data := &picoprompt.DataArgument{
		Messages: []picoprompt.Message{
			{Role: picoprompt.RoleUser, Content: []picoprompt.Part{{Text: "earlier question"}}},
			{Role: picoprompt.RoleModel, Content: []picoprompt.Part{{Text: "earlier answer"}}},
		},
	}
	rendered := "<<<picoprompt:role:system>>>Be brief.\n<<<picoprompt:history>>>Continue."
	got := picoprompt.ToMessages(rendered, data)

	historyMD := map[string]any{"purpose": "history"}
	want := []picoprompt.Message{
		{Role: picoprompt.RoleSystem, Content: []picoprompt.Part{{Text: "Be brief.\n"}}},
		{Role: picoprompt.RoleUser, Content: []picoprompt.Part{{Text: "earlier question"}}, Metadata: historyMD},
		{Role: picoprompt.RoleModel, Content: []picoprompt.Part{{Text: "earlier answer"}}, Metadata: historyMD},
		{Role: picoprompt.RoleModel, Content: []picoprompt.Part{{Text: "Continue."}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestToMessages_ImplicitHistoryBeforeTrailingUser(t *testing.T) {
	data := &picoprompt.DataArgument{
		Messages: []picoprompt.Message{
			{Role: picoprompt.RoleUser, Content: []picoprompt.Part{{Text: "old"}}},
		},
	}
	got := picoprompt.ToMessages("<<<picoprompt:role:user>>>new question", data)

	want := []picoprompt.Message{
		{Role: picoprompt.RoleUser, Content: []picoprompt.Part{{Text: "old"}}, Metadata: map[string]any{"purpose": "history"}},
		{Role: picoprompt.RoleUser, Content: []picoprompt.Part{{Text: "new question"}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestToMessages_HistoryNotDuplicated(t *testing.T) {
	data := &picoprompt.DataArgument{
		Messages: []picoprompt.Message{
			{Role: picoprompt.RoleUser, Content: []picoprompt.Part{{Text: "old"}}},
		},
	}
	rendered := "<<<picoprompt:history>>><<<picoprompt:role:user>>>again"
	got := picoprompt.ToMessages(rendered, data)
	count := 0
	for _, m := range got {
		if m.Metadata != nil && m.Metadata["purpose"] == "history" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("history message count = %d, want 1\nmessages: %+v", count, got)
	}
}

func TestToMessages_MediaAndSection(t *testing.T) {
	rendered := "Look at this: <<<picoprompt:media:url https://example.com/a.png image/png>>><<<picoprompt:section output>>>"
	got := picoprompt.ToMessages(rendered, nil)
	want := []picoprompt.Message{
		{Role: picoprompt.RoleUser, Content: []picoprompt.Part{
			{Text: "Look at this: "},
			{Media: &picoprompt.MediaContent{URL: "https://example.com/a.png", ContentType: "image/png"}},
			{Metadata: map[string]any{"purpose": "output", "pending": true}},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestToMessages_MediaWithoutContentType(t *testing.T) {
	got := picoprompt.ToMessages("<<<picoprompt:media:url https://example.com/b.jpg>>>", nil)
	if len(got) != 1 || len(got[0].Content) != 1 {
		t.Fatalf("unexpected shape: %+v", got)
	}
	media := got[0].Content[0].Media
	if media == nil || media.URL != "https://example.com/b.jpg" || media.ContentType != "" {
		t.Errorf("media = %+v", media)
	}
}

func TestToMessages_WhitespaceOnlyPiecesDropped(t *testing.T) {
	rendered := "  \n<<<picoprompt:role:model>>>Answer\n  \n"
	got := picoprompt.ToMessages(rendered, nil)
	want := []picoprompt.Message{
		{Role: picoprompt.RoleModel, Content: []picoprompt.Part{{Text: "Answer\n  \n"}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
}
