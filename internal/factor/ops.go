package factor

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Genius-apple/open-alpha/internal/dataset"
)

// eps guards denominators throughout the factor math.
const eps = 1e-10

// shift lags a series by n rows (negative n leads). Vacated positions
// become NaN.
func shift(s dataset.Series, n int) dataset.Series {
	out := nanSeries(len(s))
	for i := range s {
		j := i - n
		if j >= 0 && j < len(s) {
			out[i] = s[j]
		}
	}
	return out
}

// delta is s - shift(s, n).
func delta(s dataset.Series, n int) dataset.Series {
	out := nanSeries(len(s))
	for i := range s {
		j := i - n
		if j >= 0 && j < len(s) {
			out[i] = s[i] - s[j]
		}
	}
	return out
}

// rolling applies agg to the non-NaN values of each trailing window.
// Rows with fewer than minPeriods observations yield NaN. Windows are
// truncated at the start of the series.
func rolling(s dataset.Series, window, minPeriods int, agg func([]float64) float64) dataset.Series {
	out := nanSeries(len(s))
	buf := make([]float64, 0, window)
	for i := range s {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		buf = buf[:0]
		for _, v := range s[lo : i+1] {
			if !math.IsNaN(v) {
				buf = append(buf, v)
			}
		}
		if len(buf) >= minPeriods {
			out[i] = agg(buf)
		}
	}
	return out
}

func rollingMean(s dataset.Series, window int) dataset.Series {
	return rolling(s, window, 1, func(v []float64) float64 { return stat.Mean(v, nil) })
}

func rollingSum(s dataset.Series, window int) dataset.Series {
	return rolling(s, window, 1, floats.Sum)
}

func rollingMax(s dataset.Series, window int) dataset.Series {
	return rolling(s, window, 1, func(v []float64) float64 {
		max := v[0]
		for _, x := range v[1:] {
			if x > max {
				max = x
			}
		}
		return max
	})
}

func rollingMin(s dataset.Series, window int) dataset.Series {
	return rolling(s, window, 1, func(v []float64) float64 {
		min := v[0]
		for _, x := range v[1:] {
			if x < min {
				min = x
			}
		}
		return min
	})
}

func rollingStd(s dataset.Series, window int) dataset.Series {
	return rolling(s, window, 2, func(v []float64) float64 { return stat.StdDev(v, nil) })
}

func rollingVar(s dataset.Series, window int) dataset.Series {
	return rolling(s, window, 2, func(v []float64) float64 { return stat.Variance(v, nil) })
}

func rollingMedian(s dataset.Series, window int) dataset.Series {
	return rolling(s, window, 1, median)
}

func rollingSkew(s dataset.Series, window int) dataset.Series {
	return rolling(s, window, 3, func(v []float64) float64 {
		if stat.StdDev(v, nil) == 0 {
			return math.NaN()
		}
		return stat.Skew(v, nil)
	})
}

func rollingKurt(s dataset.Series, window int) dataset.Series {
	return rolling(s, window, 4, func(v []float64) float64 {
		if stat.StdDev(v, nil) == 0 {
			return math.NaN()
		}
		return stat.ExKurtosis(v, nil)
	})
}

// rollingRank places the latest value inside the window's min-max
// span as a 0-1 position. Windows shorter than two rows rank 0.5.
func rollingRank(s dataset.Series, window int) dataset.Series {
	out := nanSeries(len(s))
	for i := range s {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		win := s[lo : i+1]

		valid := 0
		min, max := math.Inf(1), math.Inf(-1)
		for _, v := range win {
			if math.IsNaN(v) {
				continue
			}
			valid++
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		if valid < 1 {
			continue
		}
		if len(win) < 2 {
			out[i] = 0.5
			continue
		}
		out[i] = (s[i] - min) / (max - min + eps)
	}
	return out
}

// rollingArg returns the offset of the window extreme, counted from
// the oldest row of the (possibly truncated) window. A NaN inside the
// window wins, matching how argmax treats unordered values.
func rollingArg(s dataset.Series, window int, findMax bool) dataset.Series {
	out := nanSeries(len(s))
	for i := range s {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		win := s[lo : i+1]

		valid := 0
		for _, v := range win {
			if !math.IsNaN(v) {
				valid++
			}
		}
		if valid < 1 {
			continue
		}

		arg := 0
		for j, v := range win {
			if math.IsNaN(v) {
				arg = j
				break
			}
			if findMax && v > win[arg] || !findMax && v < win[arg] {
				arg = j
			}
		}
		out[i] = float64(arg)
	}
	return out
}

// rollingPairwise applies f to the rows of each window where both
// series are observed.
func rollingPairwise(a, b dataset.Series, window, minPeriods int, f func(x, y []float64) float64) dataset.Series {
	out := nanSeries(len(a))
	bufA := make([]float64, 0, window)
	bufB := make([]float64, 0, window)
	for i := range a {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		bufA, bufB = bufA[:0], bufB[:0]
		for j := lo; j <= i; j++ {
			if !math.IsNaN(a[j]) && !math.IsNaN(b[j]) {
				bufA = append(bufA, a[j])
				bufB = append(bufB, b[j])
			}
		}
		if len(bufA) >= minPeriods {
			out[i] = f(bufA, bufB)
		}
	}
	return out
}

func rollingCorr(a, b dataset.Series, window int) dataset.Series {
	return rollingPairwise(a, b, window, 2, func(x, y []float64) float64 {
		r := stat.Correlation(x, y, nil)
		if math.IsInf(r, 0) {
			return math.NaN()
		}
		return r
	})
}

func rollingCov(a, b dataset.Series, window int) dataset.Series {
	return rollingPairwise(a, b, window, 2, func(x, y []float64) float64 {
		return stat.Covariance(x, y, nil)
	})
}

// rollingZScore is (x - rolling mean) / (rolling std + eps).
func rollingZScore(s dataset.Series, window int) dataset.Series {
	mean := rollingMean(s, window)
	std := rollingStd(s, window)
	out := make(dataset.Series, len(s))
	for i := range s {
		out[i] = (s[i] - mean[i]) / (std[i] + eps)
	}
	return out
}

// ffill carries the last observation forward. Leading NaNs stay NaN.
func ffill(s dataset.Series) dataset.Series {
	out := make(dataset.Series, len(s))
	last := math.NaN()
	for i, v := range s {
		if !math.IsNaN(v) {
			last = v
		}
		out[i] = last
	}
	return out
}

// pctChange is the n-row percent change with gaps padded forward
// before the ratio is taken.
func pctChange(s dataset.Series, n int) dataset.Series {
	filled := ffill(s)
	out := nanSeries(len(s))
	for i := range s {
		j := i - n
		if j < 0 || j >= len(s) {
			continue
		}
		if math.IsNaN(filled[i]) || math.IsNaN(filled[j]) {
			continue
		}
		out[i] = filled[i]/filled[j] - 1
	}
	return out
}

// simpleReturns is s / shift(s, n) - 1 with no padding.
func simpleReturns(s dataset.Series, n int) dataset.Series {
	out := nanSeries(len(s))
	for i := range s {
		j := i - n
		if j < 0 || j >= len(s) {
			continue
		}
		out[i] = s[i]/s[j] - 1
	}
	return out
}

// percentRank ranks every value against the whole series as a 0-1
// percentile. Ties share the average rank; NaN rows stay NaN.
func percentRank(s dataset.Series) dataset.Series {
	type entry struct {
		idx int
		v   float64
	}
	valid := make([]entry, 0, len(s))
	for i, v := range s {
		if !math.IsNaN(v) {
			valid = append(valid, entry{idx: i, v: v})
		}
	}

	out := nanSeries(len(s))
	if len(valid) == 0 {
		return out
	}
	sort.SliceStable(valid, func(i, j int) bool { return valid[i].v < valid[j].v })

	n := float64(len(valid))
	for lo := 0; lo < len(valid); {
		hi := lo + 1
		for hi < len(valid) && valid[hi].v == valid[lo].v {
			hi++
		}
		// 1-based ranks lo+1..hi averaged across the tie run
		avg := float64(lo+1+hi) / 2
		for k := lo; k < hi; k++ {
			out[valid[k].idx] = avg / n
		}
		lo = hi
	}
	return out
}

// winsorizeSeries clips values outside the lower/upper quantiles.
func winsorizeSeries(s dataset.Series, lower, upper float64) dataset.Series {
	lo := nanQuantile(s, lower)
	hi := nanQuantile(s, upper)
	out := make(dataset.Series, len(s))
	for i, v := range s {
		switch {
		case !math.IsNaN(lo) && v < lo:
			out[i] = lo
		case !math.IsNaN(hi) && v > hi:
			out[i] = hi
		default:
			out[i] = v
		}
	}
	return out
}

// standardizeSeries is (x - mean) / (std + eps) over the whole series.
func standardizeSeries(s dataset.Series) dataset.Series {
	mean := nanMean(s)
	std := nanStd(s)
	out := make(dataset.Series, len(s))
	for i, v := range s {
		out[i] = (v - mean) / (std + eps)
	}
	return out
}

// normalizeSeries rescales to [0, 1] by the series min-max span.
func normalizeSeries(s dataset.Series) dataset.Series {
	min := nanMin(s)
	max := nanMax(s)
	out := make(dataset.Series, len(s))
	for i, v := range s {
		out[i] = (v - min) / (max - min + eps)
	}
	return out
}

func demeanSeries(s dataset.Series) dataset.Series {
	mean := nanMean(s)
	out := make(dataset.Series, len(s))
	for i, v := range s {
		out[i] = v - mean
	}
	return out
}

func fillNA(s dataset.Series, value float64) dataset.Series {
	out := make(dataset.Series, len(s))
	for i, v := range s {
		if math.IsNaN(v) {
			out[i] = value
		} else {
			out[i] = v
		}
	}
	return out
}

// Full-series reductions over non-NaN values.

func nanMean(s dataset.Series) float64 {
	sum, n := 0.0, 0
	for _, v := range s {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// nanStd is the sample standard deviation; fewer than two observations
// yield NaN.
func nanStd(s dataset.Series) float64 {
	mean := nanMean(s)
	if math.IsNaN(mean) {
		return math.NaN()
	}
	sum, n := 0.0, 0
	for _, v := range s {
		if !math.IsNaN(v) {
			d := v - mean
			sum += d * d
			n++
		}
	}
	if n < 2 {
		return math.NaN()
	}
	return math.Sqrt(sum / float64(n-1))
}

func nanMin(s dataset.Series) float64 {
	min, seen := math.NaN(), false
	for _, v := range s {
		if math.IsNaN(v) {
			continue
		}
		if !seen || v < min {
			min, seen = v, true
		}
	}
	return min
}

func nanMax(s dataset.Series) float64 {
	max, seen := math.NaN(), false
	for _, v := range s {
		if math.IsNaN(v) {
			continue
		}
		if !seen || v > max {
			max, seen = v, true
		}
	}
	return max
}

// nanQuantile interpolates linearly between order statistics.
func nanQuantile(s dataset.Series, q float64) float64 {
	valid := make([]float64, 0, len(s))
	for _, v := range s {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return math.NaN()
	}
	sort.Float64s(valid)

	pos := q * float64(len(valid)-1)
	lo := int(math.Floor(pos))
	if lo < 0 {
		lo = 0
	}
	if lo >= len(valid)-1 {
		return valid[len(valid)-1]
	}
	frac := pos - float64(lo)
	return valid[lo]*(1-frac) + valid[lo+1]*frac
}

func median(v []float64) float64 {
	sorted := make([]float64, len(v))
	copy(sorted, v)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func signOf(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return math.NaN()
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

func nanSeries(n int) dataset.Series {
	out := make(dataset.Series, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
