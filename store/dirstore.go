// Package store loads and saves prompt files. The directory layout mirrors
// the .prompt convention: "name.prompt" for prompts, "name.variant.prompt"
// for variants, a leading underscore for partials, and subdirectories as name
// prefixes.
package store

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const promptExtension = ".prompt"

// PromptRef identifies a stored prompt. Version is derived from the file
// content, so two refs with the same version carry identical sources.
type PromptRef struct {
	Name    string
	Variant string
	Version string
}

// PromptData is a prompt ref together with its source.
type PromptData struct {
	PromptRef
	Source string
}

// PartialRef identifies a stored partial template.
type PartialRef struct {
	Name    string
	Variant string
	Version string
}

// PartialData is a partial ref together with its source.
type PartialData struct {
	PartialRef
	Source string
}

// ListOptions pages through prompt or partial listings. Cursor is the value
// returned by a previous call.
type ListOptions struct {
	Limit  int
	Cursor string
}

// LoadOptions selects a prompt variant and optionally pins an exact content
// version.
type LoadOptions struct {
	Variant string
	Version string
}

// DirStore reads and writes prompts under a single root directory.
type DirStore struct {
	root string
}

// NewDirStore opens a store rooted at dir. The directory must exist.
func NewDirStore(dir string) (*DirStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve store root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("open store root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("store root %s is not a directory", abs)
	}
	return &DirStore{root: abs}, nil
}

// contentVersion derives a short stable version from prompt source.
func contentVersion(source string) string {
	sum := sha1.Sum([]byte(source))
	return hex.EncodeToString(sum[:])[:8]
}

// promptFilename builds the relative file path for a prompt or partial name.
func promptFilename(name, variant string, partial bool) string {
	dir, base := "", name
	if i := strings.LastIndex(name, "/"); i >= 0 {
		dir, base = name[:i], name[i+1:]
	}
	if partial {
		base = "_" + base
	}
	if variant != "" {
		base += "." + variant
	}
	return filepath.Join(filepath.FromSlash(dir), base+promptExtension)
}

// resolve joins a relative prompt path onto the root and verifies containment.
func (s *DirStore) resolve(rel string) (string, error) {
	full := filepath.Join(s.root, rel)
	if full != s.root && !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s escapes store root", rel)
	}
	return full, nil
}

// parseFilename splits a prompt file basename into name, variant and whether
// it is a partial. Only the first dot separates name from variant, matching
// how filenames are generated.
func parseFilename(base string) (name, variant string, partial bool) {
	base = strings.TrimSuffix(base, promptExtension)
	if strings.HasPrefix(base, "_") {
		partial = true
		base = base[1:]
	}
	if i := strings.Index(base, "."); i >= 0 {
		return base[:i], base[i+1:], partial
	}
	return base, "", partial
}

type listEntry struct {
	name    string
	variant string
	rel     string
	partial bool
}

// walk collects every prompt file under the root, skipping dot directories.
func (s *DirStore) walk() ([]listEntry, error) {
	var out []listEntry
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), promptExtension) {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		name, variant, partial := parseFilename(filepath.Base(rel))
		if dir := filepath.Dir(rel); dir != "." {
			name = filepath.ToSlash(dir) + "/" + name
		}
		out = append(out, listEntry{name: name, variant: variant, rel: rel, partial: partial})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk store: %w", err)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].name != out[j].name {
			return out[i].name < out[j].name
		}
		return out[i].variant < out[j].variant
	})
	return out, nil
}

func entryKey(e listEntry) string {
	if e.variant == "" {
		return e.name
	}
	return e.name + "." + e.variant
}

// page applies cursor and limit to sorted entries and returns the next cursor.
func page(entries []listEntry, opts *ListOptions) ([]listEntry, string) {
	cursor, limit := "", 0
	if opts != nil {
		cursor, limit = opts.Cursor, opts.Limit
	}
	start := 0
	if cursor != "" {
		for i, e := range entries {
			if entryKey(e) > cursor {
				start = i
				break
			}
			start = i + 1
		}
	}
	entries = entries[start:]
	next := ""
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
		next = entryKey(entries[len(entries)-1])
	}
	return entries, next
}

// List returns refs for all prompts in the store, sorted by name then
// variant. The returned cursor is non-empty when more results remain.
func (s *DirStore) List(ctx context.Context, opts *ListOptions) ([]PromptRef, string, error) {
	entries, err := s.walk()
	if err != nil {
		return nil, "", err
	}
	var prompts []listEntry
	for _, e := range entries {
		if !e.partial {
			prompts = append(prompts, e)
		}
	}
	prompts, next := page(prompts, opts)

	out := make([]PromptRef, 0, len(prompts))
	for _, e := range prompts {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		full, err := s.resolve(e.rel)
		if err != nil {
			return nil, "", err
		}
		b, err := os.ReadFile(full)
		if err != nil {
			return nil, "", fmt.Errorf("read %s: %w", e.rel, err)
		}
		out = append(out, PromptRef{Name: e.name, Variant: e.variant, Version: contentVersion(string(b))})
	}
	return out, next, nil
}

// ListPartials returns refs for all partials in the store.
func (s *DirStore) ListPartials(ctx context.Context, opts *ListOptions) ([]PartialRef, string, error) {
	entries, err := s.walk()
	if err != nil {
		return nil, "", err
	}
	var partials []listEntry
	for _, e := range entries {
		if e.partial {
			partials = append(partials, e)
		}
	}
	partials, next := page(partials, opts)

	out := make([]PartialRef, 0, len(partials))
	for _, e := range partials {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		full, err := s.resolve(e.rel)
		if err != nil {
			return nil, "", err
		}
		b, err := os.ReadFile(full)
		if err != nil {
			return nil, "", fmt.Errorf("read %s: %w", e.rel, err)
		}
		out = append(out, PartialRef{Name: e.name, Variant: e.variant, Version: contentVersion(string(b))})
	}
	return out, next, nil
}

func (s *DirStore) load(name string, opts *LoadOptions, partial bool) (string, string, string, error) {
	if err := ValidatePromptName(name); err != nil {
		return "", "", "", err
	}
	variant, pinned := "", ""
	if opts != nil {
		variant, pinned = opts.Variant, opts.Version
	}
	full, err := s.resolve(promptFilename(name, variant, partial))
	if err != nil {
		return "", "", "", err
	}
	b, err := os.ReadFile(full)
	if err != nil {
		return "", "", "", fmt.Errorf("load %q: %w", name, err)
	}
	source := string(b)
	version := contentVersion(source)
	if pinned != "" && pinned != version {
		return "", "", "", fmt.Errorf("load %q: version mismatch: have %s, want %s", name, version, pinned)
	}
	return source, variant, version, nil
}

// Load reads a prompt by name. A pinned version in opts must match the
// current content version.
func (s *DirStore) Load(ctx context.Context, name string, opts *LoadOptions) (PromptData, error) {
	if err := ctx.Err(); err != nil {
		return PromptData{}, err
	}
	source, variant, version, err := s.load(name, opts, false)
	if err != nil {
		return PromptData{}, err
	}
	return PromptData{
		PromptRef: PromptRef{Name: name, Variant: variant, Version: version},
		Source:    source,
	}, nil
}

// LoadPartial reads a partial by name, without the underscore prefix.
func (s *DirStore) LoadPartial(ctx context.Context, name string, opts *LoadOptions) (PartialData, error) {
	if err := ctx.Err(); err != nil {
		return PartialData{}, err
	}
	source, variant, version, err := s.load(name, opts, true)
	if err != nil {
		return PartialData{}, err
	}
	return PartialData{
		PartialRef: PartialRef{Name: name, Variant: variant, Version: version},
		Source:     source,
	}, nil
}

// Save writes a prompt, creating intermediate directories as needed.
func (s *DirStore) Save(ctx context.Context, prompt PromptData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidatePromptName(prompt.Name); err != nil {
		return err
	}
	full, err := s.resolve(promptFilename(prompt.Name, prompt.Variant, false))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("save %q: %w", prompt.Name, err)
	}
	if err := os.WriteFile(full, []byte(prompt.Source), 0o644); err != nil {
		return fmt.Errorf("save %q: %w", prompt.Name, err)
	}
	return nil
}

// Delete removes a prompt or partial by name. Both spellings are tried so
// callers need not know whether the name refers to a partial.
func (s *DirStore) Delete(ctx context.Context, name, variant string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidatePromptName(name); err != nil {
		return err
	}
	for _, partial := range []bool{false, true} {
		full, err := s.resolve(promptFilename(name, variant, partial))
		if err != nil {
			return err
		}
		err = os.Remove(full)
		if err == nil {
			return nil
		}
		if !os.IsNotExist(err) {
			return fmt.Errorf("delete %q: %w", name, err)
		}
	}
	return fmt.Errorf("delete %q: not found", name)
}
