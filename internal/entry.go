// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/envtest/internal/api"
	"github.com/starford/envtest/internal/backend"
	"github.com/starford/envtest/internal/clock"
	"github.com/starford/envtest/internal/heroic"
	"github.com/starford/envtest/internal/history"
	"github.com/starford/envtest/internal/index"
	"github.com/starford/envtest/internal/mcpserver"
	"github.com/starford/envtest/internal/recorder"
	"github.com/starford/envtest/internal/sse"
	"github.com/starford/envtest/internal/storage"
)

// ErrCallFailed is returned by Call when the operation answered with an
// error envelope. The envelope itself has already been written.
var ErrCallFailed = errors.New("call failed")

// core holds the components shared by every run mode.
type core struct {
	cfg     *Config
	logger  *slog.Logger
	store   *storage.FS
	backend *backend.Backend
	db      *index.DB // nil when the index is disabled or failed to open
	history *history.Service
}

func newApplication(opts []Option, logOut io.Writer) (*application, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logger == nil {
		app.logger = slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
	}
	return app, nil
}

// newCore prepares the log directory and wires storage, the two operations and
// (when withIndex is set) the record index.
func newCore(app *application, withIndex bool) (*core, error) {
	cfg, logger := app.config, app.logger

	// A log dir that cannot be created is not fatal: every debug_log call
	// then reports the write failure in its envelope.
	if err := storage.EnsureDir(cfg.Log.Dir); err != nil {
		logger.Error("log directory unavailable", slog.String("dir", cfg.Log.Dir), slog.String("error", err.Error()))
	}

	store, err := storage.NewFS(cfg.Log.Dir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	clk := clock.New()
	c := &core{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		backend: backend.New(recorder.New(store, clk, logger), heroic.NewResolver(cfg.Heroic.Home, clk, logger), logger),
	}

	if withIndex && cfg.Index.Enabled {
		c.db = openIndex(cfg.Index.Path, logger)
	}
	var idx index.RecordIndex
	if c.db != nil {
		idx = c.db
		if err := index.Sync(c.db, store, logger); err != nil {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		}
	}
	c.history = history.NewService(store, idx)
	return c, nil
}

// openIndex opens the record index, or returns nil and logs why not.
func openIndex(path string, logger *slog.Logger) *index.DB {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		logger.Warn("record index disabled", slog.String("path", path), slog.String("error", err.Error()))
		return nil
	}
	db, err := index.Open(path)
	if err != nil {
		logger.Warn("record index disabled", slog.String("path", path), slog.String("error", err.Error()))
		return nil
	}
	return db
}

func (c *core) Close() {
	if c.db != nil {
		_ = c.db.Close()
	}
}

// watch keeps the index in step with the log directory until ctx ends.
// Watcher failures only disable live updates.
func (c *core) watch(ctx context.Context, cb index.EventCallback) error {
	if c.db == nil {
		return nil
	}
	if err := index.Watch(ctx, c.db, c.store, c.logger, cb); err != nil {
		c.logger.Warn("log directory watcher disabled", slog.String("error", err.Error()))
	}
	return nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stdout)
	if err != nil {
		return err
	}
	cfg, logger := app.config, app.logger
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("log_dir", cfg.Log.Dir),
		slog.String("heroic_home", cfg.Heroic.Home),
		slog.Bool("index_enabled", cfg.Index.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c, err := newCore(app, true)
	if err != nil {
		return err
	}
	defer c.Close()

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"ok","index":%t}`, c.history.IndexAvailable())
	})

	r.Mount("/api", api.NewRouter(c.backend, c.history, broker, cfg.Auth.AuthEnabled(), cfg.Auth.Token))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.watch(gCtx, broker.PublishFileEvent)
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group once the server has been shut down so the
// watcher stops too.
var errShutdown = errors.New("shutdown")

// RunMCP serves the operations as MCP tools over stdio. Logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stderr)
	if err != nil {
		return err
	}
	c, err := newCore(app, true)
	if err != nil {
		return err
	}
	defer c.Close()

	srv := mcpserver.New(c.backend, c.history, app.version)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.watch(gCtx, nil)
	})
	g.Go(func() error {
		defer cancel()
		app.logger.Info("MCP server listening on stdio")
		return srv.ServeStdio()
	})
	return g.Wait()
}

// Call runs one operation with the JSON request in data and writes the
// indented envelope to out. Logs go to stderr.
func Call(ctx context.Context, op string, data []byte, out io.Writer, opts ...Option) error {
	app, err := newApplication(opts, os.Stderr)
	if err != nil {
		return err
	}
	c, err := newCore(app, false)
	if err != nil {
		return err
	}
	defer c.Close()

	env, callErr := c.backend.Call(ctx, op, data)
	text, err := backend.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	if _, err := fmt.Fprintln(out, string(text)); err != nil {
		return err
	}
	if callErr != nil {
		return callErr
	}
	if env.Failed() {
		return ErrCallFailed
	}
	return nil
}
