// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/arving/kbmirror/internal/api"
	"github.com/arving/kbmirror/internal/apperr"
	"github.com/arving/kbmirror/internal/content"
	"github.com/arving/kbmirror/internal/index"
	"github.com/arving/kbmirror/internal/mcpserver"
	"github.com/arving/kbmirror/internal/progress"
	"github.com/arving/kbmirror/internal/source"
	"github.com/arving/kbmirror/internal/storage"
	"github.com/arving/kbmirror/internal/syncer"
	"github.com/arving/kbmirror/internal/ui"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(cfg *Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// RunMirror fetches the book's tree and mirrors it into the destination
// directory. Interrupted or partially failed runs are resumed by running
// the same command again.
func RunMirror(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg)

	locator := app.book
	if locator == "" {
		locator = cfg.Source.BaseURL
	}
	if locator == "" {
		return fmt.Errorf("book locator required (pass a book URL or set source.base_url)")
	}

	logger.Info("Configuration loaded",
		slog.String("book", locator),
		slog.String("dest", cfg.Mirror.Dest),
		slog.String("log_level", cfg.App.LogLevel.String()))

	baseURL := cfg.Source.BaseURL
	if baseURL == "" {
		if u, err := url.Parse(locator); err == nil && u.Scheme != "" {
			baseURL = u.Scheme + "://" + u.Host
		}
	}
	if baseURL == "" {
		return fmt.Errorf("source base URL required (pass a book URL, --base-url, or set source.base_url)")
	}

	src := source.NewClient(cfg.Source.Timeout(), cfg.Source.UserAgent)
	book, err := src.FetchBookInfo(ctx, locator)
	if err != nil {
		return fmt.Errorf("fetch book info: %w", err)
	}

	// Fatal conditions abort here, before the destination directory or any
	// run state exists. The orchestrator re-checks them as its own contract.
	if book.ID == "" {
		return apperr.ErrMissingBookID
	}
	if len(book.Nodes) == 0 {
		return apperr.ErrEmptyTree
	}

	files, err := storage.NewFS(cfg.Mirror.Dest)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	records, err := progress.Open(cfg.Mirror.Dest)
	if err != nil {
		return fmt.Errorf("open progress store: %w", err)
	}
	defer records.Close()

	interrupted, err := records.IsInterrupted()
	if err != nil {
		return fmt.Errorf("inspect progress store: %w", err)
	}
	if interrupted {
		done, _ := records.RecordCount()
		total, _ := records.Total()
		logger.Info("resuming interrupted run",
			slog.Int("recorded", done),
			slog.Int("total", total))
	}

	fetcher := content.NewClient(baseURL, cfg.Source.Timeout(), cfg.Source.UserAgent, files)

	indicator := ui.NewProgress(os.Stdout, len(book.Nodes))
	indicator.Header(book.Name, cfg.Mirror.Dest)

	orch := syncer.New(files, records, fetcher, logger, indicator)
	report, err := orch.Run(ctx, book)
	indicator.Finish()
	if err != nil {
		return fmt.Errorf("mirror run: %w", err)
	}

	ui.Report(os.Stdout, report)
	return nil
}

// RunServe starts the read-only HTTP server over an existing mirror.
func RunServe(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("dest", cfg.Mirror.Dest),
		slog.String("log_level", cfg.App.LogLevel.String()))

	files, err := storage.NewFS(cfg.Mirror.Dest)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	records, err := progress.Open(cfg.Mirror.Dest)
	if err != nil {
		return fmt.Errorf("open progress store: %w", err)
	}
	defer records.Close()

	db, err := index.Open(cfg.Mirror.Dest)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	// Run initial index reconcile.
	if err := index.Sync(db, files, logger); err != nil {
		logger.Warn("initial index sync failed", slog.String("error", err.Error()))
	}

	apiRouter := api.NewRouter(records, files, db, cfg.Auth.AuthEnabled(), cfg.Auth.Token)

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
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Keep the index current while the mirror is refreshed underneath us.
	g.Go(func() error {
		return index.Watch(gCtx, db, files, cfg.Mirror.Dest, logger)
	})

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the MCP stdio server over an existing mirror.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg)

	files, err := storage.NewFS(cfg.Mirror.Dest)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	records, err := progress.Open(cfg.Mirror.Dest)
	if err != nil {
		return fmt.Errorf("open progress store: %w", err)
	}
	defer records.Close()

	db, err := index.Open(cfg.Mirror.Dest)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	if err := index.Sync(db, files, logger); err != nil {
		logger.Warn("initial index sync failed", slog.String("error", err.Error()))
	}

	logger.Info("MCP server starting on stdio", slog.String("dest", cfg.Mirror.Dest))

	srv := mcpserver.New(files, records, db)
	if err := srv.ServeStdio(); err != nil && !strings.Contains(err.Error(), "EOF") {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
