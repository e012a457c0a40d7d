package slippage

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slipsentinel/internal/model"
	"slipsentinel/internal/pool"
)

const (
	tokenA = "0x1111111111111111111111111111111111111111"
	tokenB = "0x2222222222222222222222222222222222222222"
	tokenC = "0x5555555555555555555555555555555555555555"
	pairAB = "0x3333333333333333333333333333333333333333"
	pairBC = "0x4444444444444444444444444444444444444444"
)

func wei(units int64) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return new(big.Int).Mul(big.NewInt(units), scale)
}

// stubRoutes maps token pairs to fixed routes.
type stubRoutes struct {
	routes map[string]model.Route
	err    error
}

func (s *stubRoutes) FindPair(_ context.Context, chainID uint64, tokenIn, tokenOut, _ string) (model.Route, error) {
	if s.err != nil {
		return model.Route{}, s.err
	}
	route, ok := s.routes[tokenIn+"/"+tokenOut]
	if !ok {
		return model.Route{}, fmt.Errorf("%s/%s: %w", tokenIn, tokenOut, model.ErrNoRoute)
	}
	route.ChainID = chainID
	return route, nil
}

// stubPools serves reserves keyed by pair address.
type stubPools struct {
	reserves map[string]model.PoolReserves
	err      error
}

func (s *stubPools) Reserves(_ context.Context, _ uint64, pairAddress, _, _ string) (model.PoolReserves, error) {
	if s.err != nil {
		return model.PoolReserves{}, s.err
	}
	r, ok := s.reserves[pairAddress]
	if !ok {
		return model.PoolReserves{}, model.ErrReservesUnavailable
	}
	return r, nil
}

func (s *stubPools) Decimals(_ context.Context, _ uint64, _ string) uint8 {
	return 18
}

// stubSwaps replays a fixed event window.
type stubSwaps struct {
	swaps []model.SwapEvent
}

func (s *stubSwaps) RecentSwaps(_ context.Context, _ uint64, _ string, _ uint64) []model.SwapEvent {
	return s.swaps
}

func singleRouteFixture(reserveIn, reserveOut *big.Int) (*stubRoutes, *stubPools) {
	routes := &stubRoutes{routes: map[string]model.Route{
		tokenA + "/" + tokenB: {
			TokenIn:      tokenA,
			TokenOut:     tokenB,
			PairAddress:  pairAB,
			ExchangeName: "uniswap_v2",
		},
	}}
	pools := &stubPools{reserves: map[string]model.PoolReserves{
		pairAB: {
			ReserveIn:       reserveIn,
			ReserveOut:      reserveOut,
			TokenInAddress:  tokenA,
			TokenOutAddress: tokenB,
		},
	}}
	return routes, pools
}

func TestEstimateDeepPoolQuietHistory(t *testing.T) {
	// 10 tokens into a 1000-token reserve is 1% price impact: 100 bps impact,
	// base 150, high-liquidity buffer 10, mev buffer 20, no volatility.
	routes, pools := singleRouteFixture(wei(1000), wei(2_000_000))
	est := NewEstimator(routes, pools, &stubSwaps{}, 0, nil)

	rec, err := est.Estimate(context.Background(), 1, tokenA, tokenB, wei(10), "")
	require.NoError(t, err)

	assert.Equal(t, 180, rec.MinSafeSlipBps)
	assert.Equal(t, 100, rec.PriceImpactBps)
	assert.Equal(t, 0.0, rec.VolatilityFactor)
	assert.Equal(t, "high", rec.PoolDepths.LiquidityScore)
	assert.Equal(t, "uniswap_v2", rec.RouteUsed)
	assert.Equal(t, pairAB, rec.PairAddress)
	assert.Equal(t, wei(10).String(), rec.RecommendedMaxTrade)
	assert.Equal(t, "0", rec.RecentTradeSizeP95)
}

func TestEstimateClampsToFloor(t *testing.T) {
	// Negligible impact, deep pool, quiet history: raw score 30 clamps to 50.
	routes, pools := singleRouteFixture(wei(1_000_000), wei(1_000_000))
	est := NewEstimator(routes, pools, &stubSwaps{}, 0, nil)

	rec, err := est.Estimate(context.Background(), 1, tokenA, tokenB, big.NewInt(1), "")
	require.NoError(t, err)
	assert.Equal(t, 50, rec.MinSafeSlipBps)
}

func TestEstimateClampsToCeiling(t *testing.T) {
	// Trade equal to the full reserve: 100% impact, 10000 bps, base 15000.
	routes, pools := singleRouteFixture(wei(10), wei(10))
	est := NewEstimator(routes, pools, &stubSwaps{}, 0, nil)

	rec, err := est.Estimate(context.Background(), 1, tokenA, tokenB, wei(10), "")
	require.NoError(t, err)
	assert.Equal(t, 5000, rec.MinSafeSlipBps)
}

func TestEstimateDustReserve(t *testing.T) {
	// A pool holding 1 wei of the input token against a trade of 1e30 wei has
	// a linear impact ratio around 1e30. The reported impact must saturate at
	// 10000 bps and the recommendation must clamp to the ceiling, never wrap
	// negative or fall to the floor.
	routes, pools := singleRouteFixture(big.NewInt(1), big.NewInt(1))
	est := NewEstimator(routes, pools, &stubSwaps{}, 0, nil)

	rec, err := est.Estimate(context.Background(), 1, tokenA, tokenB, wei(1_000_000_000_000), "")
	require.NoError(t, err)
	assert.Equal(t, 10000, rec.PriceImpactBps)
	assert.Equal(t, 5000, rec.MinSafeSlipBps)
}

func TestEstimateVolatilityBuffer(t *testing.T) {
	routes, pools := singleRouteFixture(wei(1000), wei(2_000_000))
	swaps := &stubSwaps{swaps: []model.SwapEvent{
		{TradeSize: big.NewInt(10)},
		{TradeSize: big.NewInt(20)},
		{TradeSize: big.NewInt(20)},
		{TradeSize: big.NewInt(30)},
		{TradeSize: big.NewInt(1000)},
	}}
	est := NewEstimator(routes, pools, swaps, 0, nil)

	rec, err := est.Estimate(context.Background(), 1, tokenA, tokenB, wei(10), "")
	require.NoError(t, err)
	// quiet-history score 180 plus int(1.8151 * 100)
	assert.Equal(t, 361, rec.MinSafeSlipBps)
	assert.InDelta(t, 1.8151, rec.VolatilityFactor, 0.0001)
	assert.Equal(t, "806", rec.RecentTradeSizeP95)
}

func TestEstimateNoRoute(t *testing.T) {
	routes := &stubRoutes{routes: map[string]model.Route{}}
	est := NewEstimator(routes, &stubPools{}, &stubSwaps{}, 0, nil)

	_, err := est.Estimate(context.Background(), 1, tokenA, tokenB, wei(1), "")
	assert.ErrorIs(t, err, model.ErrNoRoute)
}

func TestEstimateReservesUnavailable(t *testing.T) {
	routes, _ := singleRouteFixture(wei(1), wei(1))
	pools := &stubPools{err: model.ErrReservesUnavailable}
	est := NewEstimator(routes, pools, &stubSwaps{}, 0, nil)

	_, err := est.Estimate(context.Background(), 1, tokenA, tokenB, wei(1), "")
	assert.ErrorIs(t, err, model.ErrReservesUnavailable)
}

func TestEstimateInvalidAmount(t *testing.T) {
	routes, pools := singleRouteFixture(wei(1000), wei(1000))
	est := NewEstimator(routes, pools, &stubSwaps{}, 0, nil)

	_, err := est.Estimate(context.Background(), 1, tokenA, tokenB, nil, "")
	assert.ErrorIs(t, err, model.ErrInvalidAmount)

	_, err = est.Estimate(context.Background(), 1, tokenA, tokenB, big.NewInt(-1), "")
	assert.ErrorIs(t, err, model.ErrInvalidAmount)
}

func TestEstimateAuditSink(t *testing.T) {
	routes, pools := singleRouteFixture(wei(1000), wei(2_000_000))
	est := NewEstimator(routes, pools, &stubSwaps{}, 0, nil)

	var audited []model.Recommendation
	est.SetAuditSink(func(_ context.Context, _ uint64, rec model.Recommendation) {
		audited = append(audited, rec)
	})

	rec, err := est.Estimate(context.Background(), 1, tokenA, tokenB, wei(10), "")
	require.NoError(t, err)
	require.Len(t, audited, 1)
	assert.Equal(t, rec, audited[0])
}

func TestEstimateMultiHopPropagatesOutput(t *testing.T) {
	hop1In, hop1Out := wei(1000), wei(2_000_000)
	hop2In, hop2Out := wei(10_000_000), wei(10_000_000)

	routes := &stubRoutes{routes: map[string]model.Route{
		tokenA + "/" + tokenB: {TokenIn: tokenA, TokenOut: tokenB, PairAddress: pairAB, ExchangeName: "uniswap_v2"},
		tokenB + "/" + tokenC: {TokenIn: tokenB, TokenOut: tokenC, PairAddress: pairBC, ExchangeName: "sushiswap"},
	}}
	pools := &stubPools{reserves: map[string]model.PoolReserves{
		pairAB: {ReserveIn: hop1In, ReserveOut: hop1Out, TokenInAddress: tokenA, TokenOutAddress: tokenB},
		pairBC: {ReserveIn: hop2In, ReserveOut: hop2Out, TokenInAddress: tokenB, TokenOutAddress: tokenC},
	}}
	est := NewEstimator(routes, pools, &stubSwaps{}, 0, nil)

	amountIn := wei(10)
	path := []model.TokenPair{
		{TokenIn: tokenA, TokenOut: tokenB},
		{TokenIn: tokenB, TokenOut: tokenC},
	}
	result, err := est.EstimateMultiHop(context.Background(), 1, path, amountIn)
	require.NoError(t, err)

	require.Equal(t, 2, result.NumHops)
	require.Len(t, result.HopDetails, 2)
	assert.Equal(t, 180, result.HopDetails[0].SlippageBps)

	// The second hop must be scored against the first hop's swap output, not
	// the original input. Recompute its expected score from the same math.
	propagated := pool.OutputAmount(amountIn, hop1In, hop1Out, pool.DefaultFeeBps)
	impactBps := int(pool.PriceImpact(propagated, hop2In) * 100)
	expected := int(float64(impactBps)*1.5) + 10 + 20
	assert.Equal(t, expected, result.HopDetails[1].SlippageBps)
	assert.Greater(t, result.HopDetails[1].SlippageBps, 50)

	assert.Equal(t, result.HopDetails[0].SlippageBps+result.HopDetails[1].SlippageBps, result.TotalSlippageBps)
	assert.Equal(t, pairAB, result.HopDetails[0].PairAddress)
	assert.Equal(t, pairBC, result.HopDetails[1].PairAddress)
}

func TestEstimateMultiHopCapsTotal(t *testing.T) {
	routes := &stubRoutes{routes: map[string]model.Route{
		tokenA + "/" + tokenB: {TokenIn: tokenA, TokenOut: tokenB, PairAddress: pairAB, ExchangeName: "uniswap_v2"},
		tokenB + "/" + tokenC: {TokenIn: tokenB, TokenOut: tokenC, PairAddress: pairBC, ExchangeName: "sushiswap"},
	}}
	pools := &stubPools{reserves: map[string]model.PoolReserves{
		pairAB: {ReserveIn: wei(10), ReserveOut: wei(10), TokenInAddress: tokenA, TokenOutAddress: tokenB},
		pairBC: {ReserveIn: wei(10), ReserveOut: wei(10), TokenInAddress: tokenB, TokenOutAddress: tokenC},
	}}
	est := NewEstimator(routes, pools, &stubSwaps{}, 0, nil)

	path := []model.TokenPair{
		{TokenIn: tokenA, TokenOut: tokenB},
		{TokenIn: tokenB, TokenOut: tokenC},
	}
	result, err := est.EstimateMultiHop(context.Background(), 1, path, wei(10))
	require.NoError(t, err)
	assert.Equal(t, 5000, result.TotalSlippageBps)
}

func TestEstimateMultiHopEmptyPath(t *testing.T) {
	routes, pools := singleRouteFixture(wei(1), wei(1))
	est := NewEstimator(routes, pools, &stubSwaps{}, 0, nil)

	_, err := est.EstimateMultiHop(context.Background(), 1, nil, wei(1))
	assert.ErrorIs(t, err, model.ErrEmptyPath)

	_, err = est.EstimateMultiHop(context.Background(), 1, []model.TokenPair{}, wei(1))
	assert.ErrorIs(t, err, model.ErrEmptyPath)
}

func TestEstimateMultiHopFailingHop(t *testing.T) {
	routes, pools := singleRouteFixture(wei(1000), wei(1000))
	est := NewEstimator(routes, pools, &stubSwaps{}, 0, nil)

	path := []model.TokenPair{
		{TokenIn: tokenA, TokenOut: tokenB},
		{TokenIn: tokenB, TokenOut: tokenC},
	}
	_, err := est.EstimateMultiHop(context.Background(), 1, path, wei(1))
	assert.ErrorIs(t, err, model.ErrNoRoute)
}

func TestParseAmount(t *testing.T) {
	amount, err := ParseAmount(" 1000000000000000000 ")
	require.NoError(t, err)
	assert.Equal(t, wei(1).String(), amount.String())

	amount, err = ParseAmount("0")
	require.NoError(t, err)
	assert.Equal(t, "0", amount.String())

	_, err = ParseAmount("1.5")
	assert.ErrorIs(t, err, model.ErrInvalidAmount)

	_, err = ParseAmount("-10")
	assert.ErrorIs(t, err, model.ErrInvalidAmount)

	_, err = ParseAmount("")
	assert.ErrorIs(t, err, model.ErrInvalidAmount)
}
