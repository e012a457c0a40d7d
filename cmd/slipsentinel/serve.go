package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"slipsentinel/internal/chain"
	"slipsentinel/internal/config"
	"slipsentinel/internal/history"
	"slipsentinel/internal/metrics"
	"slipsentinel/internal/model"
	"slipsentinel/internal/pool"
	"slipsentinel/internal/route"
	"slipsentinel/internal/server"
	"slipsentinel/internal/slippage"
	"slipsentinel/internal/storage/postgres"
)

// engine bundles the wired estimation stack.
type engine struct {
	registry  *config.Registry
	pool      *chain.Pool
	finder    *route.Finder
	estimator *slippage.Estimator
	store     *postgres.Store
}

func (e *engine) Close() {
	e.pool.Close()
	if e.store != nil {
		e.store.Close()
	}
}

func buildEngine(ctx context.Context, cfg config.Config, logger *zap.Logger) (*engine, error) {
	registry, err := cfg.Registry()
	if err != nil {
		return nil, err
	}

	connPool := chain.NewPool(registry, logger)

	var store *postgres.Store
	if cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			connPool.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			connPool.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}

	routeDiag := func(diag model.Diagnostic) {
		metrics.ProbeFailures.Inc()
		persistDiagnostic(store, logger, diag)
	}
	historyDiag := func(diag model.Diagnostic) {
		metrics.HistoryFailures.Inc()
		persistDiagnostic(store, logger, diag)
	}

	finder := route.NewFinder(registry, &route.FactoryProber{Pool: connPool}, logger, routeDiag)
	pools := pool.NewAnalyzer(connPool, logger)
	swaps := history.NewAnalyzer(connPool, logger, historyDiag)
	estimator := slippage.NewEstimator(finder, pools, swaps, cfg.BlocksBack, logger)

	if store != nil {
		estimator.SetAuditSink(func(ctx context.Context, chainID uint64, rec model.Recommendation) {
			go func() {
				insertCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := store.InsertRecommendation(insertCtx, chainID, rec); err != nil {
					logger.Warn("audit insert failed", zap.Error(err))
				}
			}()
		})
	}

	return &engine{
		registry:  registry,
		pool:      connPool,
		finder:    finder,
		estimator: estimator,
		store:     store,
	}, nil
}

func persistDiagnostic(store *postgres.Store, logger *zap.Logger, diag model.Diagnostic) {
	if store == nil {
		return
	}
	go func() {
		insertCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.InsertDiagnostics(insertCtx, []model.Diagnostic{diag}); err != nil {
			logger.Warn("diagnostic insert failed", zap.Error(err))
		}
	}()
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	metrics.Serve(ctx, cfg.MetricsAddr, logger)

	srv := server.New(eng.estimator, eng.finder, eng.registry, logger)

	logger.Info("serve start",
		zap.String("listen", cfg.Listen),
		zap.Uint64("blocks_back", cfg.BlocksBack),
		zap.Bool("audit_store", eng.store != nil),
	)

	return srv.Run(ctx, cfg.Listen)
}
