package slippage

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"slipsentinel/internal/history"
	"slipsentinel/internal/model"
	"slipsentinel/internal/pool"
)

// DefaultBlocksBack is the trailing block window used for volatility analysis.
const DefaultBlocksBack = 500

// Fixed scoring policy.
const (
	minSlipBps       = 50
	maxSlipBps       = 5000
	mevBufferBps     = 20
	baseMultiplier   = 1.5
	volatilityScale  = 100
	liquidityLowBps  = 50
	liquidityMedBps  = 25
	liquidityHighBps = 10
)

// RouteFinder resolves which exchange hosts a tradeable pair.
type RouteFinder interface {
	FindPair(ctx context.Context, chainID uint64, tokenIn, tokenOut, hint string) (model.Route, error)
}

// ReserveReader reads pool state.
type ReserveReader interface {
	Reserves(ctx context.Context, chainID uint64, pairAddress, tokenIn, tokenOut string) (model.PoolReserves, error)
	Decimals(ctx context.Context, chainID uint64, token string) uint8
}

// HistoryReader retrieves recent swap events. It never fails; an empty slice
// stands in for both "no events" and "query failed".
type HistoryReader interface {
	RecentSwaps(ctx context.Context, chainID uint64, pairAddress string, blocksBack uint64) []model.SwapEvent
}

// AuditSink receives every emitted recommendation.
type AuditSink func(ctx context.Context, chainID uint64, rec model.Recommendation)

// Estimator combines route discovery, pool reserves, and trade history into a
// slippage recommendation.
type Estimator struct {
	routes     RouteFinder
	pools      ReserveReader
	swaps      HistoryReader
	blocksBack uint64
	logger     *zap.Logger
	audit      AuditSink
}

// NewEstimator wires the aggregator. blocksBack of 0 selects the default
// window.
func NewEstimator(routes RouteFinder, pools ReserveReader, swaps HistoryReader, blocksBack uint64, logger *zap.Logger) *Estimator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if blocksBack == 0 {
		blocksBack = DefaultBlocksBack
	}
	return &Estimator{
		routes:     routes,
		pools:      pools,
		swaps:      swaps,
		blocksBack: blocksBack,
		logger:     logger,
	}
}

// SetAuditSink attaches an optional sink for emitted recommendations.
func (e *Estimator) SetAuditSink(sink AuditSink) {
	e.audit = sink
}

// Estimate runs the single-hop pipeline: resolve route, fetch reserves and
// trade history concurrently, score, clamp.
func (e *Estimator) Estimate(ctx context.Context, chainID uint64, tokenIn, tokenOut string, amountIn *big.Int, hint string) (model.Recommendation, error) {
	rec, _, err := e.estimateHop(ctx, chainID, tokenIn, tokenOut, amountIn, hint)
	if err != nil {
		return model.Recommendation{}, err
	}
	if e.audit != nil {
		e.audit(ctx, chainID, rec)
	}
	return rec, nil
}

// EstimateMultiHop runs the single-hop pipeline for each leg of a
// caller-supplied path, propagating each hop's swap output as the next hop's
// input. Any hop failure fails the whole call; the summed slippage is capped
// at the policy maximum.
func (e *Estimator) EstimateMultiHop(ctx context.Context, chainID uint64, path []model.TokenPair, amountIn *big.Int) (model.MultiHopResult, error) {
	if len(path) == 0 {
		return model.MultiHopResult{}, model.ErrEmptyPath
	}
	if err := validateAmount(amountIn); err != nil {
		return model.MultiHopResult{}, err
	}

	current := new(big.Int).Set(amountIn)
	total := 0
	details := make([]model.HopDetail, 0, len(path))

	for _, hop := range path {
		rec, reserves, err := e.estimateHop(ctx, chainID, hop.TokenIn, hop.TokenOut, current, "")
		if err != nil {
			return model.MultiHopResult{}, fmt.Errorf("hop %s/%s: %w", hop.TokenIn, hop.TokenOut, err)
		}

		total += rec.MinSafeSlipBps
		details = append(details, model.HopDetail{
			TokenIn:     hop.TokenIn,
			TokenOut:    hop.TokenOut,
			SlippageBps: rec.MinSafeSlipBps,
			PairAddress: rec.PairAddress,
		})

		current = pool.OutputAmount(current, reserves.ReserveIn, reserves.ReserveOut, pool.DefaultFeeBps)
	}

	if total > maxSlipBps {
		total = maxSlipBps
	}

	return model.MultiHopResult{
		TotalSlippageBps: total,
		NumHops:          len(path),
		HopDetails:       details,
	}, nil
}

func (e *Estimator) estimateHop(ctx context.Context, chainID uint64, tokenIn, tokenOut string, amountIn *big.Int, hint string) (model.Recommendation, model.PoolReserves, error) {
	if err := validateAmount(amountIn); err != nil {
		return model.Recommendation{}, model.PoolReserves{}, err
	}

	route, err := e.routes.FindPair(ctx, chainID, tokenIn, tokenOut, hint)
	if err != nil {
		return model.Recommendation{}, model.PoolReserves{}, err
	}

	// Reserves and history are independent reads of the same pool; fetch them
	// concurrently and join before scoring. History cannot fail, reserves can.
	var reserves model.PoolReserves
	var swaps []model.SwapEvent
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		reserves, err = e.pools.Reserves(groupCtx, chainID, route.PairAddress, route.TokenIn, route.TokenOut)
		return err
	})
	group.Go(func() error {
		swaps = e.swaps.RecentSwaps(groupCtx, chainID, route.PairAddress, e.blocksBack)
		return nil
	})
	if err := group.Wait(); err != nil {
		return model.Recommendation{}, model.PoolReserves{}, err
	}

	priceImpactBps := int(pool.PriceImpact(amountIn, reserves.ReserveIn) * 100)

	decimalsIn := e.pools.Decimals(ctx, chainID, reserves.TokenInAddress)
	decimalsOut := e.pools.Decimals(ctx, chainID, reserves.TokenOutAddress)
	depth := pool.EstimateLiquidityDepth(reserves.ReserveIn, reserves.ReserveOut, decimalsIn, decimalsOut)

	metrics := history.AnalyzeTradeSizes(swaps)

	bps := score(priceImpactBps, metrics.VolatilityFactor, depth.LiquidityScore)

	rec := model.Recommendation{
		MinSafeSlipBps: bps,
		PoolDepths: model.PoolDepths{
			TokenInReserve:   reserves.ReserveIn.String(),
			TokenOutReserve:  reserves.ReserveOut.String(),
			ReserveInTokens:  depth.ReserveInTokens,
			ReserveOutTokens: depth.ReserveOutTokens,
			LiquidityScore:   depth.LiquidityScore,
		},
		RecentTradeSizeP95:  metrics.TradeSizeP95.String(),
		PriceImpactBps:      priceImpactBps,
		VolatilityFactor:    math.Round(metrics.VolatilityFactor*10000) / 10000,
		RecommendedMaxTrade: depth.RecommendedMaxTrade.String(),
		RouteUsed:           route.ExchangeName,
		PairAddress:         route.PairAddress,
	}

	e.logger.Info("slippage estimated",
		zap.Uint64("chain_id", chainID),
		zap.String("exchange", route.ExchangeName),
		zap.String("pair", route.PairAddress),
		zap.Int("min_safe_slip_bps", bps),
		zap.Int("price_impact_bps", priceImpactBps),
		zap.Float64("volatility_factor", rec.VolatilityFactor),
		zap.Int("total_swaps", metrics.TotalSwaps),
	)

	return rec, reserves, nil
}

// score applies the fixed weighting and clamping policy.
func score(priceImpactBps int, volatilityFactor float64, liquidityScore string) int {
	base := int(float64(priceImpactBps) * baseMultiplier)
	volatilityBuffer := int(volatilityFactor * volatilityScale)

	liquidityBuffer := liquidityLowBps
	switch liquidityScore {
	case "medium":
		liquidityBuffer = liquidityMedBps
	case "high":
		liquidityBuffer = liquidityHighBps
	}

	total := base + volatilityBuffer + liquidityBuffer + mevBufferBps
	if total < minSlipBps {
		return minSlipBps
	}
	if total > maxSlipBps {
		return maxSlipBps
	}
	return total
}

// ParseAmount parses a base-10 smallest-unit amount.
func ParseAmount(raw string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("amount %q: %w", raw, model.ErrInvalidAmount)
	}
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	return amount, nil
}

func validateAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return model.ErrInvalidAmount
	}
	return nil
}
