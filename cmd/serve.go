package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"schoolwijzer/db"
	"schoolwijzer/internal/api"
	"schoolwijzer/internal/assembler"
	"schoolwijzer/internal/cache"
	"schoolwijzer/internal/config"
	"schoolwijzer/internal/i18n"
	"schoolwijzer/internal/knowledge"
	"schoolwijzer/internal/log"
	"schoolwijzer/internal/orchestrator"
	"schoolwijzer/internal/provider"
	"schoolwijzer/internal/store"
)

// Server timeout configuration.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 2 * time.Minute // SSE streaming needs longer timeout
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

// Upstream provider throttle: shared across all conversations so a burst of
// users cannot trip the vendor's account-level rate limit.
const (
	providerRatePerSec = 2
	providerRateBurst  = 4
)

// runServe initializes and starts the HTTP API server.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	addr, err := parseServeAddr(cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("parsing address: %w", err)
	}

	logger := newLogger()
	slog.SetDefault(logger)
	i18n.Init(cfg.Language)

	logger.Info("starting schoolwijzer", "version", Version, "config", cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err = db.Migrate(cfg.ConnString()); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.ConnString())
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer pool.Close()

	st := store.New(pool, logger)
	syncer := store.NewSynchronizer(st, logger)

	snippets := cache.New[knowledge.Snippet](cfg.CacheTTL)
	retriever := knowledge.NewKeywordRetriever(nil, snippets, logger)

	chat, err := provider.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating provider: %w", err)
	}

	retrier := provider.NewRetrier(provider.RetryConfig{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
	}, rate.NewLimiter(providerRatePerSec, providerRateBurst), logger)

	engine, err := orchestrator.New(orchestrator.Config{
		Provider:  chat,
		Retrier:   retrier,
		Assembler: assembler.New(retriever, logger, assembler.WithHistoryWindow(cfg.HistoryWindow)),
		Syncer:    syncer,
		Feedback:  st,
		Params: provider.Params{
			Model:           cfg.ModelName,
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxOutputTokens,
			TopP:            cfg.TopP,
			Timeout:         cfg.RequestTimeout,
		},
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	apiServer, err := api.NewServer(api.ServerConfig{
		Logger:     logger,
		Engine:     engine,
		Store:      st,
		Pool:       pool,
		TrustProxy: os.Getenv("SCHOOLWIJZER_TRUST_PROXY") != "",
		RateBurst:  cfg.RateBurst,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	logger.Info("HTTP server ready",
		"addr", addr,
		"api", "/api/v1/*",
		"health", "/healthz, /readyz",
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}

// runMigrate applies pending database migrations and exits.
func runMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger()
	if err := db.Migrate(cfg.ConnString()); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	logger.Info("migrations applied", "database", cfg.PostgresDBName)
	return nil
}

// newLogger builds the process logger. DEBUG in the environment enables
// debug level; output is JSON for log aggregation.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level, JSON: true})
}
