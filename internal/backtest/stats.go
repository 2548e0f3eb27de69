package backtest

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

const eps = 1e-10

// safeFloat collapses NaN and Inf to 0 so every emitted value is finite.
func safeFloat(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func nanFloats(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// averageRanks assigns 1-based ranks to values, averaging over ties.
func averageRanks(values []float64) []float64 {
	n := len(values)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	ranks := make([]float64, n)
	for lo := 0; lo < n; {
		hi := lo
		for hi+1 < n && values[idx[hi+1]] == values[idx[lo]] {
			hi++
		}
		avg := float64(lo+hi+2) / 2
		for k := lo; k <= hi; k++ {
			ranks[idx[k]] = avg
		}
		lo = hi + 1
	}
	return ranks
}

// stableRanks assigns 1-based ranks with ties broken by original row
// order, so equal values land in adjacent ranks deterministically.
func stableRanks(values []float64) []int {
	n := len(values)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	ranks := make([]int, n)
	for k, i := range idx {
		ranks[i] = k + 1
	}
	return ranks
}

// spearman is the rank correlation of x and y. Degenerate inputs
// (fewer than 2 points, zero variance) yield NaN.
func spearman(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return math.NaN()
	}
	r := stat.Correlation(averageRanks(x), averageRanks(y), nil)
	if math.IsInf(r, 0) {
		return math.NaN()
	}
	return r
}

// pearson is the linear correlation of x and y with the same degenerate
// handling as spearman.
func pearson(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return math.NaN()
	}
	r := stat.Correlation(x, y, nil)
	if math.IsInf(r, 0) {
		return math.NaN()
	}
	return r
}

// Correlation is the Pearson correlation over the rows where both
// series are finite. Fewer than two clean pairs yields 0. Handlers use
// it for the per-factor IC shown alongside composite results.
func Correlation(x, y []float64) float64 {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if isFinite(x[i]) && isFinite(y[i]) {
			xs = append(xs, x[i])
			ys = append(ys, y[i])
		}
	}
	return safeFloat(pearson(xs, ys))
}

// rollingSpearman computes the rank correlation over each trailing
// window of w rows. Positions before the first full window are NaN.
func rollingSpearman(x, y []float64, w int) []float64 {
	out := nanFloats(len(x))
	if w < 2 {
		return out
	}
	for i := w - 1; i < len(x); i++ {
		out[i] = spearman(x[i-w+1:i+1], y[i-w+1:i+1])
	}
	return out
}

// rollingMeanStd computes trailing-window mean and sample standard
// deviation, NaN before the first full window.
func rollingMeanStd(xs []float64, w int) (means, stds []float64) {
	means = nanFloats(len(xs))
	stds = nanFloats(len(xs))
	if w < 2 {
		return means, stds
	}
	for i := w - 1; i < len(xs); i++ {
		window := xs[i-w+1 : i+1]
		means[i] = stat.Mean(window, nil)
		stds[i] = stat.StdDev(window, nil)
	}
	return means, stds
}

// tTestIC computes the t-statistic and two-sided p-value for H0: IC = 0
// with n-2 degrees of freedom.
func tTestIC(icMean float64, n int) (tStat, pValue float64) {
	if math.Abs(icMean) >= 1 || n <= 2 {
		return 0, 1
	}
	tStat = icMean * math.Sqrt(float64(n-2)) / math.Sqrt(1-icMean*icMean+eps)
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
	pValue = 2 * (1 - dist.CDF(math.Abs(tStat)))
	return tStat, pValue
}

func sampleMean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}
