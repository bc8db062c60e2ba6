package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/minimize/economyd/internal/config"
	"github.com/minimize/economyd/internal/httpapi"
	"github.com/minimize/economyd/internal/ledger"
	pgstore "github.com/minimize/economyd/internal/storage/postgres"
	"github.com/minimize/economyd/internal/storage/yamlfile"
	"github.com/minimize/economyd/internal/txlog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	logger := buildLogger(cfg)
	slog.SetDefault(logger)

	var (
		snapStore ledger.SnapshotStore
		journal   txlog.Journal
		closeFn   func()
	)
	if cfg.DatabaseURL != "" {
		pg, err := pgstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		closeFn = pg.Close
		snapStore, journal = pg, pg
		logger.Info("storage backend: postgres")
	} else {
		snap, err := yamlfile.NewSnapshotStore(filepath.Join(cfg.DataDir, "balances.yml"), logger)
		if err != nil {
			logger.Error("failed to open snapshot store", "err", err)
			os.Exit(1)
		}
		jrn, err := yamlfile.NewJournal(filepath.Join(cfg.DataDir, "transactions.yml"), logger)
		if err != nil {
			logger.Error("failed to open transaction journal", "err", err)
			os.Exit(1)
		}
		snapStore, journal = snap, jrn
		logger.Info("storage backend: yaml files", "dir", cfg.DataDir)
	}

	policy := ledger.Policy{MaxBalanceEnabled: cfg.MaxBalanceEnabled, MaxBalance: cfg.MaxBalanceLimit()}
	cache := ledger.New(policy, logger)
	// A failed load degrades to an empty ledger rather than refusing to
	// start; the snapshot on disk is left untouched until the next flush.
	if err := cache.Load(ctx, snapStore); err != nil {
		logger.Error("snapshot load failed, starting with empty ledger", "err", err)
	}

	txs, err := txlog.Open(ctx, journal, logger, cfg.LogToConsole)
	if err != nil {
		logger.Error("transaction journal read failed, starting with empty history", "err", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.New(cache, txs, cfg, logger, snapStore, journal).Handler(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Periodic snapshot flush; mutations are memory-only in between.
	flushDone := make(chan struct{})
	go func() {
		defer close(flushDone)
		ticker := time.NewTicker(cfg.FlushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !cache.Dirty() {
					continue
				}
				if err := cache.Flush(context.Background(), snapStore); err != nil {
					logger.Error("periodic flush failed", "err", err)
				}
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("economy service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
	stop()
	<-flushDone

	// Final flush so nothing mutated since the last tick is lost.
	if err := cache.Flush(context.Background(), snapStore); err != nil {
		logger.Error("final flush failed", "err", err)
	}
	if closeFn != nil {
		closeFn()
	}
}

// parseLogLevel maps config values to slog.Leveler.
func parseLogLevel(s string) slog.Leveler {
	switch s {
	case "DEBUG", "debug":
		return slog.LevelDebug
	case "WARN", "WARNING", "warn", "warning":
		return slog.LevelWarn
	case "ERROR", "ERR", "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildLogger(cfg config.Config) *slog.Logger {
	level := parseLogLevel(cfg.LogLevel)
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	// default to JSON
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
