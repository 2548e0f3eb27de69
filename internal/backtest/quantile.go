package backtest

import (
	"fmt"
	"math"
)

// quantileResult carries the quantile stage outputs.
type quantileResult struct {
	layers  []LayerRow
	returns map[string]float64
	summary QuantileSummary
}

// assignBuckets labels each row with a bucket in [0, q). Rows are
// rank-bucketed into equal-population groups with ties broken by row
// order; when the factor has fewer distinct values than buckets, it
// falls back to equal-width buckets over the value range.
func assignBuckets(factor []float64, q int) []int {
	if distinctCount(factor) < q {
		return equalWidthBuckets(factor, q)
	}
	return equalPopulationBuckets(factor, q)
}

// equalPopulationBuckets buckets rows by stable rank so counts differ by
// at most one. Bucket edges follow linear interpolation over the rank
// range, matching quantile cuts on the ranks 1..n.
func equalPopulationBuckets(factor []float64, q int) []int {
	n := len(factor)
	buckets := make([]int, n)
	if n < 2 || q < 2 {
		return buckets
	}
	for i, r := range stableRanks(factor) {
		if r == 1 {
			continue
		}
		buckets[i] = ceilDiv((r-1)*q, n-1) - 1
	}
	return buckets
}

// equalWidthBuckets splits the value range [min, max] into q equal
// intervals. A constant factor lands entirely in bucket 0.
func equalWidthBuckets(factor []float64, q int) []int {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range factor {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	buckets := make([]int, len(factor))
	if !(hi > lo) || q < 2 {
		return buckets
	}
	for i, v := range factor {
		b := int(float64(q) * (v - lo) / (hi - lo))
		if b >= q {
			b = q - 1
		}
		buckets[i] = b
	}
	return buckets
}

func distinctCount(values []float64) int {
	seen := make(map[float64]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// quantileAnalysis computes per-bucket return statistics, monotonicity
// and the top-minus-bottom spread.
func quantileAnalysis(factor, rets []float64, cfg Config) quantileResult {
	buckets := assignBuckets(factor, cfg.NQuantiles)

	grouped := make(map[int][]float64)
	for i, b := range buckets {
		grouped[b] = append(grouped[b], rets[i])
	}

	layers := make([]LayerRow, 0, len(grouped))
	returns := make(map[string]float64, len(grouped))
	meanReturns := make([]float64, 0, len(grouped))

	for b := 0; b < cfg.NQuantiles; b++ {
		bucketRets, ok := grouped[b]
		if !ok {
			continue
		}

		label := fmt.Sprintf("Q%d", b+1)
		meanRet := sampleMean(bucketRets)
		std := sampleStd(bucketRets)

		sharpe := 0.0
		if std > 0 {
			sharpe = meanRet / std * math.Sqrt(252)
		}

		total := 1.0
		wins := 0
		for _, r := range bucketRets {
			total *= 1 + r
			if r > 0 {
				wins++
			}
		}

		layers = append(layers, LayerRow{
			Layer:       label,
			MeanReturn:  safeFloat(meanRet),
			Std:         safeFloat(std),
			Sharpe:      safeFloat(sharpe),
			TotalReturn: safeFloat(total - 1),
			Count:       len(bucketRets),
			WinRate:     safeFloat(float64(wins) / float64(len(bucketRets))),
		})
		returns[label] = safeFloat(meanRet)
		meanReturns = append(meanReturns, safeFloat(meanRet))
	}

	spread := 0.0
	if len(meanReturns) >= 2 {
		spread = meanReturns[len(meanReturns)-1] - meanReturns[0]
	}

	return quantileResult{
		layers:  layers,
		returns: returns,
		summary: QuantileSummary{
			Spread:      safeFloat(spread),
			IsMonotonic: isMonotonic(meanReturns),
			NQuantiles:  cfg.NQuantiles,
		},
	}
}

// isMonotonic reports whether the bucket means increase from bottom to
// top, allowing at most one adjacent-pair violation.
func isMonotonic(returns []float64) bool {
	if len(returns) < 2 {
		return false
	}
	increasing := 0
	for i := 1; i < len(returns); i++ {
		if returns[i] >= returns[i-1] {
			increasing++
		}
	}
	return increasing >= len(returns)-2
}
