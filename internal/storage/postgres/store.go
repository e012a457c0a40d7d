package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"slipsentinel/internal/model"
)

// Store persists emitted recommendations and swallowed diagnostics for
// operators. The estimation path never reads this data back.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the audit tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS recommendations (
			id BIGSERIAL PRIMARY KEY,
			chain_id BIGINT NOT NULL,
			pair_address TEXT NOT NULL,
			route_used TEXT NOT NULL,
			min_safe_slip_bps INT NOT NULL,
			price_impact_bps INT NOT NULL,
			volatility_factor DOUBLE PRECISION NOT NULL,
			liquidity_score TEXT NOT NULL,
			recommended_max_trade TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS diagnostics (
			id BIGSERIAL PRIMARY KEY,
			chain_id BIGINT NOT NULL,
			component TEXT NOT NULL,
			subject TEXT NOT NULL,
			error TEXT NOT NULL,
			observed_at TIMESTAMPTZ NOT NULL
		);
	`)
	return err
}

// InsertRecommendation records one emitted recommendation.
func (s *Store) InsertRecommendation(ctx context.Context, chainID uint64, rec model.Recommendation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO recommendations (
			chain_id, pair_address, route_used, min_safe_slip_bps,
			price_impact_bps, volatility_factor, liquidity_score, recommended_max_trade
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		int64(chainID),
		rec.PairAddress,
		rec.RouteUsed,
		rec.MinSafeSlipBps,
		rec.PriceImpactBps,
		rec.VolatilityFactor,
		rec.PoolDepths.LiquidityScore,
		rec.RecommendedMaxTrade,
	)
	return err
}

// InsertDiagnostics records a batch of swallowed failures.
func (s *Store) InsertDiagnostics(ctx context.Context, diags []model.Diagnostic) error {
	if len(diags) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, diag := range diags {
		batch.Queue(`
			INSERT INTO diagnostics (chain_id, component, subject, error, observed_at)
			VALUES ($1, $2, $3, $4, $5)
		`,
			int64(diag.ChainID),
			diag.Component,
			diag.Subject,
			diag.Error,
			diag.ObservedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range diags {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
