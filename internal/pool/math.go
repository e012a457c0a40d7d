package pool

import (
	"math/big"

	"slipsentinel/internal/model"
)

// DefaultFeeBps is the standard V2 pool fee (0.30%).
const DefaultFeeBps = 30

const bpsDenominator = 10000

// OutputAmount computes the constant-product swap output with the pool fee
// applied. All arithmetic is integer with floor division, mirroring on-chain
// math exactly.
//
//	effective = amountIn * (10000 - feeBps)
//	out       = effective * reserveOut / (reserveIn * 10000 + effective)
func OutputAmount(amountIn, reserveIn, reserveOut *big.Int, feeBps int64) *big.Int {
	effective := new(big.Int).Mul(amountIn, big.NewInt(bpsDenominator-feeBps))
	numerator := new(big.Int).Mul(effective, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, big.NewInt(bpsDenominator))
	denominator.Add(denominator, effective)
	if denominator.Sign() == 0 {
		return new(big.Int)
	}
	return numerator.Quo(numerator, denominator)
}

// PriceImpact returns the trade size as a percentage of the input reserve,
// a linear approximation of the constant-product curve. The result saturates
// at 100.0: a zero input reserve or a trade at or beyond the full reserve
// both report the maximal impact, so the percentage stays safe to convert
// to an integer bps value no matter how lopsided the inputs are.
func PriceImpact(amountIn, reserveIn *big.Int) float64 {
	if reserveIn == nil || reserveIn.Sign() == 0 {
		return 100.0
	}
	ratio := new(big.Float).Quo(new(big.Float).SetInt(amountIn), new(big.Float).SetInt(reserveIn))
	pct, _ := new(big.Float).Mul(ratio, big.NewFloat(100)).Float64()
	if pct > 100.0 {
		return 100.0
	}
	return pct
}

// EstimateLiquidityDepth converts reserves to decimal token units, classifies
// depth, and derives the input amount that yields exactly 1% linear impact.
func EstimateLiquidityDepth(reserveIn, reserveOut *big.Int, decimalsIn, decimalsOut uint8) model.LiquidityDepth {
	reserveInTokens := toTokens(reserveIn, decimalsIn)
	reserveOutTokens := toTokens(reserveOut, decimalsOut)

	score := "low"
	if reserveInTokens > 100 {
		score = "high"
	} else if reserveInTokens > 10 {
		score = "medium"
	}

	maxTrade := new(big.Int).Quo(reserveIn, big.NewInt(100))

	return model.LiquidityDepth{
		ReserveInTokens:     reserveInTokens,
		ReserveOutTokens:    reserveOutTokens,
		LiquidityScore:      score,
		RecommendedMaxTrade: maxTrade,
	}
}

func toTokens(amount *big.Int, decimals uint8) float64 {
	if amount == nil {
		return 0
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	value, _ := new(big.Float).Quo(new(big.Float).SetInt(amount), new(big.Float).SetInt(scale)).Float64()
	return value
}
