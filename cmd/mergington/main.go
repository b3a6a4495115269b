package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opus-domini/mergington/internal/api"
	"github.com/opus-domini/mergington/internal/config"
	"github.com/opus-domini/mergington/internal/events"
	"github.com/opus-domini/mergington/internal/httpui"
	"github.com/opus-domini/mergington/internal/metrics"
	"github.com/opus-domini/mergington/internal/registry"
	"github.com/opus-domini/mergington/internal/scheduler"
	"github.com/opus-domini/mergington/internal/store"
)

func main() {
	os.Exit(runCLI(os.Args[1:], os.Stdout, os.Stderr))
}

func serve() int {
	cfg := config.Load()
	initLogger(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		return 1
	}

	seed, err := registry.LoadSeedFile(cfg.SeedFile)
	if err != nil {
		slog.Error("seed load failed", "seed_file", cfg.SeedFile, "err", err)
		return 1
	}
	reg, err := registry.New(seed)
	if err != nil {
		slog.Error("registry init failed", "err", err)
		return 1
	}

	st, err := store.New(cfg.Journal.Path)
	if err != nil {
		slog.Error("journal init failed", "path", cfg.Journal.Path, "err", err)
		return 1
	}

	eventHub := events.NewHub()
	serviceMetrics := metrics.New()

	mux := http.NewServeMux()
	if err := httpui.Register(mux); err != nil {
		slog.Error("frontend init failed", "err", err)
		_ = st.Close()
		return 1
	}
	api.Register(mux, reg, api.Options{
		Journal: st,
		Events:  eventHub,
		Metrics: serviceMetrics,
		Version: currentVersion(),
	})

	retention, err := scheduler.New(st, scheduler.Options{
		Spec:    cfg.Journal.PruneCron,
		MaxRows: cfg.Journal.MaxRows,
		OnPrune: serviceMetrics.AddPruned,
	})
	if err != nil {
		slog.Error("journal retention init failed", "prune_cron", cfg.Journal.PruneCron, "err", err)
		_ = st.Close()
		return 1
	}
	retention.Start(context.Background())

	exitCode := run(cfg, mux, eventHub, st.Path())
	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	retention.Stop(stopCtx)
	cancel()
	_ = st.Close()
	return exitCode
}

type commandContext struct {
	stdout io.Writer
	stderr io.Writer
}

func newServer(addr string, handler http.Handler, hub *events.Hub) *http.Server {
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	// Event streams only end when their subscription closes.
	server.RegisterOnShutdown(hub.Close)
	return server
}

func run(cfg config.Config, mux *http.ServeMux, hub *events.Hub, journalPath string) int {
	server := newServer(cfg.ListenAddr, requestLog(mux), hub)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdownCh)

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-shutdownCh
		slog.Info("shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "err", err)
		}
	}()

	slog.Info("mergington started",
		"listen", cfg.ListenAddr,
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"seed_file", cfg.SeedFile,
		"journal", journalPath,
		"journal_max_rows", cfg.Journal.MaxRows,
		"journal_prune_cron", cfg.Journal.PruneCron,
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "err", err)
		return 1
	}
	// ListenAndServe returns as soon as Shutdown starts; handlers may still
	// be writing to the journal.
	<-shutdownDone
	slog.Info("mergington stopped")
	return 0
}

func requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start).Truncate(time.Millisecond))
	})
}

func initLogger(level string) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(level)})))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
