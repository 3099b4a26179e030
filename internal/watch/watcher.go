// Package watch replays edit scripts as they change on disk.
package watch

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"lukechampine.com/blake3"

	"github.com/Benny93/graphol-go/internal/editor"
)

// DefaultDebounce is the quiet period after the last change before a batch
// is processed.
const DefaultDebounce = 2 * time.Second

// DefaultPattern selects YAML scripts anywhere below the watched directory.
const DefaultPattern = "**/*.{yaml,yml}"

// ignoredDirs are never descended into, .gitignore or not.
var ignoredDirs = map[string]bool{
	".git":         true,
	".graphol":     true,
	"node_modules": true,
	"vendor":       true,
}

// Handler is called with each script whose content changed. path is
// relative to the watched directory.
type Handler func(ctx context.Context, path string, script *editor.Script) error

// Watcher monitors a directory of edit scripts.
type Watcher struct {
	root     string
	pattern  string
	debounce time.Duration
	logger   *log.Logger
	handler  Handler
	matcher  gitignore.Matcher

	// fingerprints maps relative script paths to the blake3 digest of the
	// content last handed to the handler.
	fingerprints map[string]string
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithPattern sets the doublestar glob selecting script files.
func WithPattern(pattern string) Option {
	return func(w *Watcher) { w.pattern = pattern }
}

// WithDebounce sets the batching delay.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New returns a watcher over root. The .gitignore at root, if any, is
// honoured.
func New(root string, handler Handler, opts ...Option) (*Watcher, error) {
	w := &Watcher{
		root:         root,
		pattern:      DefaultPattern,
		debounce:     DefaultDebounce,
		handler:      handler,
		fingerprints: make(map[string]string),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = log.Default()
	}
	if !doublestar.ValidatePattern(w.pattern) {
		return nil, fmt.Errorf("invalid watch pattern %q", w.pattern)
	}

	matcher, err := loadGitignoreMatcher(root)
	if err != nil {
		w.logger.Warn("ignoring unreadable .gitignore", "err", err)
	}
	w.matcher = matcher
	return w, nil
}

// Scan processes every matching script currently on disk. It returns the
// number of scripts handed to the handler.
func (w *Watcher) Scan(ctx context.Context) (int, error) {
	changed := make(map[string]bool)
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if rel != "." && w.shouldIgnoreDir(d.Name(), rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if w.shouldWatchFile(rel) {
			changed[rel] = true
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scanning %s: %w", w.root, err)
	}
	return w.process(ctx, changed), nil
}

// Run watches for changes until ctx is cancelled. Changes are batched and
// processed once no further event arrived for the debounce delay.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	err = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(w.root, path)
		if rel != "." && w.shouldIgnoreDir(d.Name(), rel) {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
	if err != nil {
		return fmt.Errorf("setting up watcher: %w", err)
	}

	changed := make(map[string]bool)
	batchTimer := time.NewTimer(w.debounce)
	batchTimer.Stop()

	w.logger.Info("watching for script changes", "dir", w.root, "pattern", w.pattern)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			rel, err := filepath.Rel(w.root, event.Name)
			if err != nil {
				continue
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !w.shouldIgnoreDir(info.Name(), rel) {
						if err := fsw.Add(event.Name); err != nil {
							w.logger.Warn("cannot watch new directory", "dir", rel, "err", err)
						}
					}
					continue
				}
			}

			if !w.shouldWatchFile(rel) {
				continue
			}
			changed[rel] = true
			batchTimer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "err", err)

		case <-batchTimer.C:
			if len(changed) > 0 {
				w.process(ctx, changed)
				changed = make(map[string]bool)
			}
		}
	}
}

// process hands every changed script whose content differs from the last
// successfully handled version to the handler, in path order. Deleted
// scripts are forgotten. Failures are logged and do not stop the batch; a
// failed script is retried on its next change event.
func (w *Watcher) process(ctx context.Context, changed map[string]bool) int {
	paths := make([]string, 0, len(changed))
	for rel := range changed {
		paths = append(paths, rel)
	}
	sort.Strings(paths)

	handled := 0
	for _, rel := range paths {
		if ctx.Err() != nil {
			break
		}

		data, err := os.ReadFile(filepath.Join(w.root, rel))
		if errors.Is(err, fs.ErrNotExist) {
			if _, known := w.fingerprints[rel]; known {
				delete(w.fingerprints, rel)
				w.logger.Info("script removed", "path", rel)
			}
			continue
		}
		if err != nil {
			w.logger.Error("reading script", "path", rel, "err", err)
			continue
		}

		sum := fingerprint(data)
		if w.fingerprints[rel] == sum {
			w.logger.Debug("script unchanged", "path", rel)
			continue
		}

		script, err := editor.ParseScript(data)
		if err != nil {
			w.logger.Error("parsing script", "path", rel, "err", err)
			continue
		}
		if script.Name == "" {
			script.Name = rel
		}

		if err := w.handler(ctx, rel, script); err != nil {
			w.logger.Error("replaying script", "path", rel, "err", err)
			continue
		}
		w.fingerprints[rel] = sum
		handled++
	}
	return handled
}

// shouldWatchFile reports whether rel is a script this watcher handles.
func (w *Watcher) shouldWatchFile(rel string) bool {
	if w.matcher != nil && w.matcher.Match(strings.Split(rel, string(filepath.Separator)), false) {
		return false
	}
	for _, part := range strings.Split(filepath.Dir(rel), string(filepath.Separator)) {
		if ignoredDirs[part] {
			return false
		}
	}
	ok, err := doublestar.Match(w.pattern, filepath.ToSlash(rel))
	return err == nil && ok
}

func (w *Watcher) shouldIgnoreDir(name, rel string) bool {
	if ignoredDirs[name] {
		return true
	}
	if w.matcher != nil {
		return w.matcher.Match(strings.Split(rel, string(filepath.Separator)), true)
	}
	return false
}

func fingerprint(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// loadGitignoreMatcher loads a gitignore matcher from the directory root.
// A missing .gitignore yields a nil matcher.
func loadGitignoreMatcher(root string) (gitignore.Matcher, error) {
	content, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return gitignore.NewMatcher(patterns), nil
}
