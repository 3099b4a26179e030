// Package workspace ties a directory's configuration, its diagram store and
// the editor over the stored diagram together.
//
// A workspace is a directory holding .graphol/config.toml and the Badger
// store. Commands open it, edit through the editor, and the diagram is
// written back after every successful update.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Benny93/graphol-go/internal/config"
	"github.com/Benny93/graphol-go/internal/editor"
	"github.com/Benny93/graphol-go/internal/graph"
	"github.com/Benny93/graphol-go/internal/storage"
	"github.com/Benny93/graphol-go/internal/validity"
)

// ErrNotInitialized is returned by Open when the directory has no stored
// diagram.
var ErrNotInitialized = errors.New("workspace not initialized")

// Workspace is an opened workspace. View and Update serialise every access
// to the diagram, so a workspace may be shared between goroutines.
type Workspace struct {
	Root   string
	Config *config.Config

	mu       sync.Mutex
	store    storage.StorageBackend
	editor   *editor.Editor
	logger   *log.Logger
	readOnly bool
}

type options struct {
	backend  storage.StorageBackend
	logger   *log.Logger
	metrics  *editor.Metrics
	readOnly bool
}

// Option configures Init and Open.
type Option func(*options)

// WithBackend uses b instead of the Badger store named by the config.
func WithBackend(b storage.StorageBackend) Option {
	return func(o *options) { o.backend = b }
}

// WithLogger sets the logger passed to the editor.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the collectors passed to the editor.
func WithMetrics(m *editor.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// ReadOnly opens the store read-only. Update fails on a read-only workspace.
func ReadOnly() Option {
	return func(o *options) { o.readOnly = true }
}

func buildOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = log.Default()
	}
	if o.backend == nil {
		o.backend = storage.NewBadgerBackend()
	}
	return o
}

// Init creates a workspace at root: it writes cfg (the defaults when nil)
// and stores an empty diagram with a fresh ID. An existing workspace is an
// error.
func Init(ctx context.Context, root string, cfg *config.Config, opts ...Option) (*Workspace, error) {
	if _, err := os.Stat(config.Path(root)); err == nil {
		return nil, fmt.Errorf("workspace already initialized at %s", root)
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if err := config.Write(root, cfg); err != nil {
		return nil, err
	}

	o := buildOptions(opts)
	if err := o.backend.Initialize(cfg.ResolveStorePath(root), false); err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	d := graph.NewDiagram(uuid.NewString())
	if err := o.backend.BulkLoad(ctx, d); err != nil {
		_ = o.backend.Close()
		return nil, fmt.Errorf("saving diagram: %w", err)
	}
	return newWorkspace(root, cfg, d, o), nil
}

// Open loads the workspace at root.
func Open(ctx context.Context, root string, opts ...Option) (*Workspace, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	o := buildOptions(opts)
	storePath := cfg.ResolveStorePath(root)
	if _, isBadger := o.backend.(*storage.BadgerBackend); isBadger {
		if _, err := os.Stat(storePath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s. Run 'graphol init' first", ErrNotInitialized, root)
		}
	}
	if err := o.backend.Initialize(storePath, o.readOnly); err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	d, err := o.backend.Load(ctx)
	if errors.Is(err, storage.ErrEmpty) {
		_ = o.backend.Close()
		return nil, fmt.Errorf("%w at %s. Run 'graphol init' first", ErrNotInitialized, root)
	}
	if err != nil {
		_ = o.backend.Close()
		return nil, err
	}
	return newWorkspace(root, cfg, d, o), nil
}

func newWorkspace(root string, cfg *config.Config, d *graph.Diagram, o *options) *Workspace {
	ed := editor.New(d,
		editor.WithLogger(o.logger),
		editor.WithMetrics(o.metrics),
		editor.WithDefaultRestriction(graph.Restriction(cfg.DefaultRestriction)),
		editor.WithProfile(validity.Profile(cfg.Profile)),
	)
	return &Workspace{
		Root:     root,
		Config:   cfg,
		store:    o.backend,
		editor:   ed,
		logger:   o.logger,
		readOnly: o.readOnly,
	}
}

// Store returns the workspace's storage backend.
func (w *Workspace) Store() storage.StorageBackend {
	return w.store
}

// View runs fn with exclusive access to the editor. fn must not edit.
func (w *Workspace) View(fn func(ed *editor.Editor) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return fn(w.editor)
}

// Update runs fn with exclusive access to the editor and saves the diagram
// when fn succeeds. The save is not cancelled with ctx, so an edit that was
// applied is always written out.
func (w *Workspace) Update(ctx context.Context, fn func(ed *editor.Editor) error) error {
	if w.readOnly {
		return fmt.Errorf("workspace opened read-only")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := fn(w.editor); err != nil {
		return err
	}
	if err := w.store.BulkLoad(context.WithoutCancel(ctx), w.editor.Diagram()); err != nil {
		return fmt.Errorf("saving diagram: %w", err)
	}
	w.logger.Debug("diagram saved", "nodes", w.editor.Diagram().NodeCount(), "edges", w.editor.Diagram().EdgeCount())
	return nil
}

// Close releases the store.
func (w *Workspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store.Close()
}
