package history

import (
	"math"
	"math/big"
	"sort"

	"slipsentinel/internal/model"
)

// AnalyzeTradeSizes computes trade-size percentiles and the volatility factor
// over a set of swaps. Only swaps with positive trade size contribute to the
// statistics; TotalSwaps counts every swap passed in. The computation does not
// depend on input order.
func AnalyzeTradeSizes(swaps []model.SwapEvent) model.VolatilityMetrics {
	metrics := model.VolatilityMetrics{
		TradeSizeP50: new(big.Int),
		TradeSizeP95: new(big.Int),
		TradeSizeP99: new(big.Int),
		TotalSwaps:   len(swaps),
	}

	sizes := make([]float64, 0, len(swaps))
	for _, swap := range swaps {
		if swap.TradeSize == nil || swap.TradeSize.Sign() <= 0 {
			continue
		}
		size, _ := new(big.Float).SetInt(swap.TradeSize).Float64()
		sizes = append(sizes, size)
	}
	if len(sizes) == 0 {
		return metrics
	}

	sort.Float64s(sizes)
	metrics.TradeSizeP50 = truncateToInt(percentile(sizes, 50))
	metrics.TradeSizeP95 = truncateToInt(percentile(sizes, 95))
	metrics.TradeSizeP99 = truncateToInt(percentile(sizes, 99))

	mean := 0.0
	for _, size := range sizes {
		mean += size
	}
	mean /= float64(len(sizes))
	if mean > 0 {
		variance := 0.0
		for _, size := range sizes {
			deviation := size - mean
			variance += deviation * deviation
		}
		variance /= float64(len(sizes))
		metrics.VolatilityFactor = math.Sqrt(variance) / mean
	}

	return metrics
}

// percentile interpolates linearly between order statistics of a sorted set.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	fraction := rank - float64(lower)
	return sorted[lower] + fraction*(sorted[upper]-sorted[lower])
}

func truncateToInt(value float64) *big.Int {
	out, _ := new(big.Float).SetFloat64(value).Int(nil)
	if out == nil {
		return new(big.Int)
	}
	return out
}
