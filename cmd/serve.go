package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/Benny93/graphol-go/internal/editor"
	"github.com/Benny93/graphol-go/internal/watch"
	"github.com/Benny93/graphol-go/internal/workspace"
	"github.com/Benny93/graphol-go/mcp"
)

// WatchCmd replays edit scripts into the diagram whenever they change.
type WatchCmd struct {
	Path string `arg:"" optional:"" help:"Directory of edit scripts (default: the workspace)"`
	Scan bool   `help:"Replay every matching script once before watching"`
}

// Run executes the watch command.
func (c *WatchCmd) Run(g *Globals) error {
	ctx, stop := signalContext()
	defer stop()

	ws, logger, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	w, err := newScriptWatcher(ws, logger, c.dir(ws))
	if err != nil {
		return err
	}
	if c.Scan {
		n, err := w.Scan(ctx)
		if err != nil {
			return fmt.Errorf("scanning scripts: %w", err)
		}
		logger.Info("initial scan complete", "scripts", n)
	}

	logger.Info("watching for script changes (Ctrl+C to stop)", "dir", c.dir(ws), "pattern", ws.Config.Watch.Pattern)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("stopped watching")
	return nil
}

func (c *WatchCmd) dir(ws *workspace.Workspace) string {
	switch {
	case c.Path == "":
		return ws.Root
	case filepath.IsAbs(c.Path):
		return c.Path
	}
	return filepath.Join(ws.Root, c.Path)
}

// newScriptWatcher watches dir with the workspace's watch settings and
// replays every changed script into the workspace.
func newScriptWatcher(ws *workspace.Workspace, logger *log.Logger, dir string) (*watch.Watcher, error) {
	return watch.New(dir, replayHandler(ws, logger),
		watch.WithPattern(ws.Config.Watch.Pattern),
		watch.WithDebounce(ws.Config.Watch.DebounceDuration()),
		watch.WithLogger(logger),
	)
}

func replayHandler(ws *workspace.Workspace, logger *log.Logger) watch.Handler {
	return func(ctx context.Context, path string, script *editor.Script) error {
		var report *editor.Report
		err := ws.Update(ctx, func(ed *editor.Editor) error {
			report = ed.Replay(script)
			for _, c := range ed.TakeChanges() {
				logger.Debug("identity changed", "node", c.Node, "from", c.From, "to", c.To)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if !report.OK() {
			logger.Warn("script did not match its expectations", "path", path, "failures", report.Failures, "steps", len(report.Steps))
			return nil
		}
		logger.Info("replayed script", "path", path, "steps", len(report.Steps))
		return nil
	}
}

// MCPCmd starts the MCP server over stdio.
type MCPCmd struct{}

// Run executes the mcp command.
func (c *MCPCmd) Run(g *Globals) error {
	ctx, stop := signalContext()
	defer stop()

	ws, logger, err := g.open(ctx, workspace.ReadOnly())
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	logger.Info("starting MCP server", "workspace", ws.Root)
	server := mcp.NewServer(ws)
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// ServeCmd runs the MCP server, optionally with watch mode and a metrics
// endpoint.
type ServeCmd struct {
	Watch       bool   `short:"w" help:"Enable script watching"`
	MetricsAddr string `help:"Serve Prometheus metrics on this address (e.g. :9090)"`
}

// Run executes the serve command.
func (c *ServeCmd) Run(g *Globals) error {
	ctx, stop := signalContext()
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ws, logger, err := g.open(ctx, workspace.WithMetrics(editor.NewMetrics(reg)))
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	return c.serve(ctx, ws, logger, reg, &sdk.StdioTransport{})
}

// serve runs the MCP server on transport together with the optional watcher
// and metrics endpoint until the client disconnects or ctx is cancelled.
func (c *ServeCmd) serve(ctx context.Context, ws *workspace.Workspace, logger *log.Logger, reg *prometheus.Registry, transport sdk.Transport) error {
	// Built before any goroutine starts, so a failure leaves nothing running.
	var w *watch.Watcher
	var err error
	if c.Watch {
		if w, err = newScriptWatcher(ws, logger, ws.Root); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, gctx := errgroup.WithContext(ctx)

	server := mcp.NewServer(ws)
	group.Go(func() error {
		// The server returns when the client disconnects.
		defer cancel()
		return server.Serve(gctx, transport)
	})

	if w != nil {
		group.Go(func() error {
			return w.Run(gctx)
		})
		logger.Info("script watching enabled", "pattern", ws.Config.Watch.Pattern)
	}

	if c.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		srv := &http.Server{
			Addr:              c.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		group.Go(func() error {
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
		logger.Info("serving metrics", "addr", c.MetricsAddr)
	}

	logger.Info("starting MCP server", "workspace", ws.Root)
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
