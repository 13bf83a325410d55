package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bkramer/bank-ledger-go/internal/config"
	"github.com/bkramer/bank-ledger-go/internal/handler"
	"github.com/bkramer/bank-ledger-go/internal/infra/cache"
	"github.com/bkramer/bank-ledger-go/internal/infra/flatfile"
	"github.com/bkramer/bank-ledger-go/internal/infra/observability"
	"github.com/bkramer/bank-ledger-go/internal/infra/resilience"
	"github.com/bkramer/bank-ledger-go/internal/ledger"
	"github.com/bkramer/bank-ledger-go/internal/service"
)

// lockoutWindow is how long a customer stays locked out after too many
// failed PIN attempts.
const lockoutWindow = 30 * time.Minute

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("data_dir", cfg.DataDir),
		zap.Duration("lock_wait", cfg.LockWait),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
	)

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(cfg.OTLPEndpoint, "bank-ledger")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Persistence ---
	store, err := flatfile.New(cfg.DataDir, logger)
	if err != nil {
		logger.Fatal("failed to open data dir", zap.Error(err))
	}

	// --- Core ---
	seq := ledger.NewSequencer()
	dir := ledger.NewDirectory(seq)
	transfers := ledger.NewTransferCoordinator(seq)

	snap, err := store.Load(context.Background())
	if err != nil {
		logger.Fatal("failed to load ledger state", zap.Error(err))
	}
	if err := dir.Restore(snap); err != nil {
		logger.Fatal("failed to restore ledger state", zap.Error(err))
	}
	logger.Info("ledger restored", zap.Uint64("last_sequence", seq.Last()))

	// --- Services ---
	attempts := cache.New[int](lockoutWindow)
	authSvc := service.NewAuthService(dir, attempts, cfg.JWTSecret, cfg.JWTAccessTTL, metrics, logger)

	retryCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
	}
	breaker := resilience.NewCircuitBreaker("ledger-store")
	ledgerSvc := service.NewLedgerService(dir, transfers, authSvc, store, breaker, retryCfg, cfg.LockWait, metrics, logger)

	// --- Router ---
	router := handler.NewRouter(ledgerSvc, authSvc, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	// Final state write; every mutation already committed, this catches
	// anything the breaker swallowed during the run.
	if err := ledgerSvc.Commit(ctx); err != nil {
		logger.Error("final commit failed", zap.Error(err))
	}

	logger.Info("server stopped")
}
