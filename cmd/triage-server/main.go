package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"email-triage/internal/common/config"
	"email-triage/internal/common/database"
	"email-triage/internal/common/logger"
	"email-triage/internal/common/observability"
	"email-triage/internal/events"
	"email-triage/internal/httpserver"
	"email-triage/internal/llm"
	"email-triage/internal/store"
	"email-triage/internal/triage"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting triage server...")

	obs := observability.New("triage-server")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	if err := store.Init(ctx, pg.DB); err != nil {
		zapLog.Fatal("schema init failed", zap.Error(err))
	}
	if err := store.SeedProductsIfEmpty(ctx, pg.DB); err != nil {
		zapLog.Fatal("product seed failed", zap.Error(err))
	}

	// --- Init Redis (optional, product cache degrades without it) ---
	var rdb *database.RedisClient
	if cfg.Database.Redis.Address != "" {
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Warn("redis unavailable, product cache disabled", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
			zapLog.Info("Redis connected successfully")
		}
	}

	// --- Wire the triage pipeline ---
	tickets := store.NewTicketStore(pg.DB, log)
	products := store.NewProductStore(pg.DB, log)

	cacheTTL := time.Duration(cfg.Triage.ProductCacheTTL) * time.Second
	var catalog store.ActiveLister = products
	if rdb != nil {
		catalog = store.NewProductCache(products, rdb.Client, cacheTTL, log)
	}

	model := llm.NewHTTPClient(cfg.Model, log)
	registry := events.NewRegistry(cfg.Triage.EventBuffer)
	pipeline := triage.NewPipeline(model, tickets, products, catalog, registry, obs, log)

	server := httpserver.NewServer(cfg, pipeline, registry, tickets, pg, log)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(runCtx, cfg.Server.Addr()); err != nil {
		zapLog.Fatal("http server failed", zap.Error(err))
	}
	zapLog.Info("Shutdown complete")
}
