package store

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// EventKind describes what happened to a prompt file.
type EventKind int

const (
	EventWrite EventKind = iota
	EventRemove
)

// Event reports a change to a prompt or partial in the store.
type Event struct {
	Kind    EventKind
	Name    string
	Variant string
	Partial bool
}

// Watch blocks, invoking fn for every change to a .prompt file under the
// store root until ctx is canceled or the watcher fails. Subdirectories
// created while watching are picked up as they appear.
func (s *DirStore) Watch(ctx context.Context, fn func(Event)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	addTree := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if path != s.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		})
	}
	if err := addTree(s.root); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op.Has(fsnotify.Create) {
				// New directories join the watch set.
				if rel, err := filepath.Rel(s.root, ev.Name); err == nil && rel != "." {
					_ = addTree(ev.Name)
				}
			}
			if !strings.HasSuffix(ev.Name, promptExtension) {
				continue
			}
			rel, err := filepath.Rel(s.root, ev.Name)
			if err != nil {
				continue
			}
			name, variant, partial := parseFilename(filepath.Base(rel))
			if dir := filepath.Dir(rel); dir != "." {
				name = filepath.ToSlash(dir) + "/" + name
			}
			out := Event{Name: name, Variant: variant, Partial: partial}
			switch {
			case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
				out.Kind = EventRemove
			case ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create):
				out.Kind = EventWrite
			default:
				continue
			}
			fn(out)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}
