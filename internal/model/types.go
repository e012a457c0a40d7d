package model

import "math/big"

// Route identifies a tradeable pair on a specific exchange.
type Route struct {
	ChainID      uint64 `json:"chain_id"`
	TokenIn      string `json:"token_in"`
	TokenOut     string `json:"token_out"`
	PairAddress  string `json:"pair_address"`
	ExchangeName string `json:"exchange_name"`
	Factory      string `json:"factory_address"`
}

// PoolReserves holds the pair reserves mapped onto the requested trade direction.
type PoolReserves struct {
	ReserveIn       *big.Int
	ReserveOut      *big.Int
	TokenInAddress  string
	TokenOutAddress string
}

// SwapEvent is one decoded Swap log from a pair contract.
type SwapEvent struct {
	BlockNumber uint64
	Amount0In   *big.Int
	Amount1In   *big.Int
	Amount0Out  *big.Int
	Amount1Out  *big.Int
	TradeSize   *big.Int
}

// VolatilityMetrics summarizes recent trade sizes on a pair.
type VolatilityMetrics struct {
	TradeSizeP50     *big.Int `json:"trade_size_p50"`
	TradeSizeP95     *big.Int `json:"trade_size_p95"`
	TradeSizeP99     *big.Int `json:"trade_size_p99"`
	VolatilityFactor float64  `json:"volatility_factor"`
	TotalSwaps       int      `json:"total_swaps"`
}

// LiquidityDepth classifies pool depth in human token units.
type LiquidityDepth struct {
	ReserveInTokens     float64  `json:"reserve_in_tokens"`
	ReserveOutTokens    float64  `json:"reserve_out_tokens"`
	LiquidityScore      string   `json:"liquidity_score"`
	RecommendedMaxTrade *big.Int `json:"recommended_max_trade"`
}

// PoolDepths is the reserve view embedded in a recommendation.
type PoolDepths struct {
	TokenInReserve   string  `json:"token_in_reserve"`
	TokenOutReserve  string  `json:"token_out_reserve"`
	ReserveInTokens  float64 `json:"reserve_in_tokens"`
	ReserveOutTokens float64 `json:"reserve_out_tokens"`
	LiquidityScore   string  `json:"liquidity_score"`
}

// Recommendation is the final slippage estimate for a single hop.
type Recommendation struct {
	MinSafeSlipBps      int        `json:"min_safe_slip_bps"`
	PoolDepths          PoolDepths `json:"pool_depths"`
	RecentTradeSizeP95  string     `json:"recent_trade_size_p95"`
	PriceImpactBps      int        `json:"price_impact_bps"`
	VolatilityFactor    float64    `json:"volatility_factor"`
	RecommendedMaxTrade string     `json:"recommended_max_trade"`
	RouteUsed           string     `json:"route_used"`
	PairAddress         string     `json:"pair_address"`
}

// HopDetail is the per-hop breakdown of a multi-hop estimate.
type HopDetail struct {
	TokenIn     string `json:"token_in"`
	TokenOut    string `json:"token_out"`
	SlippageBps int    `json:"slippage_bps"`
	PairAddress string `json:"pair_address"`
}

// MultiHopResult is the combined estimate over a caller-supplied path.
type MultiHopResult struct {
	TotalSlippageBps int         `json:"total_slippage_bps"`
	NumHops          int         `json:"num_hops"`
	HopDetails       []HopDetail `json:"hop_details"`
}

// TokenPair is one leg of a multi-hop path.
type TokenPair struct {
	TokenIn  string `json:"token_in"`
	TokenOut string `json:"token_out"`
}
