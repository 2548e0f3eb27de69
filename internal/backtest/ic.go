package backtest

import (
	"fmt"
	"math"
	"time"
)

// icResult carries the IC stage outputs. rollingIC keeps NaN before the
// first full window; cumulativeIC and rollingICIR are already zero-filled.
type icResult struct {
	icMean         float64
	icStd          float64
	icIR           float64
	icPositivePct  float64
	tStat          float64
	pValue         float64
	factorAutocorr float64
	turnover       float64

	rollingIC    []float64
	cumulativeIC []float64
	rollingICIR  []float64

	histogram []HistogramBin
	monthly   []MonthlyIC
}

// icirWindow is the window for the rolling IC information ratio.
const icirWindow = 60

// icAnalysis measures how well the factor ranks forward returns: the
// overall rank correlation, its rolling behavior, and significance
// under a Student-t test.
func icAnalysis(times []time.Time, factor, rets []float64, cfg Config) icResult {
	n := len(factor)

	// Overall IC
	icMean := 0.0
	if overall := spearman(factor, rets); !math.IsNaN(overall) {
		icMean = overall
	}

	// Rolling IC
	rollingIC := rollingSpearman(factor, rets, cfg.ICWindow)
	var clean []float64
	for _, v := range rollingIC {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}

	icStd := 0.0
	if len(clean) > 1 {
		icStd = sampleStd(clean)
	}
	icIR := 0.0
	if icStd > 0 {
		icIR = icMean / icStd
	}

	icPositive := 0.5
	if len(clean) > 0 {
		positive := 0
		for _, v := range clean {
			if v > 0 {
				positive++
			}
		}
		icPositive = float64(positive) / float64(len(clean))
	}

	tStat, pValue := tTestIC(icMean, n)

	// Cumulative IC over the zero-filled rolling series
	filled := make([]float64, n)
	for i, v := range rollingIC {
		if !math.IsNaN(v) {
			filled[i] = v
		}
	}
	cumulative := make([]float64, n)
	sum := 0.0
	for i, v := range filled {
		sum += v
		cumulative[i] = sum
	}

	// Rolling IC information ratio
	means, stds := rollingMeanStd(filled, icirWindow)
	icir := make([]float64, n)
	for i := range icir {
		if math.IsNaN(means[i]) || math.IsNaN(stds[i]) {
			continue
		}
		icir[i] = safeFloat(means[i] / (stds[i] + eps))
	}

	// Lag-1 autocorrelation of the factor itself
	autocorr := 0.0
	if n >= 2 {
		autocorr = safeFloat(pearson(factor[1:], factor[:n-1]))
	}

	return icResult{
		icMean:         safeFloat(icMean),
		icStd:          safeFloat(icStd),
		icIR:           safeFloat(icIR),
		icPositivePct:  safeFloat(icPositive),
		tStat:          safeFloat(tStat),
		pValue:         safeFloat(pValue),
		factorAutocorr: autocorr,
		turnover:       safeFloat(turnoverStat(factor, cfg.NQuantiles)),
		rollingIC:      rollingIC,
		cumulativeIC:   cumulative,
		rollingICIR:    icir,
		histogram:      icHistogram(clean),
		monthly:        monthlyIC(times, factor, rets),
	}
}

// turnoverStat approximates portfolio churn as the mean absolute change
// of the top/bottom bucket position signal, halved.
func turnoverStat(factor []float64, q int) float64 {
	n := len(factor)
	if n < 2 || q < 2 {
		return 0
	}

	pos := make([]float64, n)
	for i, b := range equalPopulationBuckets(factor, q) {
		switch b {
		case q - 1:
			pos[i] = 1
		case 0:
			pos[i] = -1
		}
	}

	sum := 0.0
	for i := 1; i < n; i++ {
		sum += math.Abs(pos[i] - pos[i-1])
	}
	return sum / float64(n-1) / 2
}

// icHistogram bins the clean rolling-IC values into 15 equal-width
// buckets. Fewer than 10 values yields an empty histogram.
func icHistogram(clean []float64) []HistogramBin {
	if len(clean) < 10 {
		return []HistogramBin{}
	}

	lo, hi := clean[0], clean[0]
	for _, v := range clean {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	const bins = 15
	width := (hi - lo) / bins
	counts := make([]int, bins)
	for _, v := range clean {
		b := int((v - lo) / width)
		if b >= bins {
			b = bins - 1
		}
		if b < 0 {
			b = 0
		}
		counts[b]++
	}

	out := make([]HistogramBin, bins)
	for i, c := range counts {
		out[i] = HistogramBin{
			Range: fmt.Sprintf("%.2f", lo+width*float64(i)),
			Count: c,
		}
	}
	return out
}

// monthlyIC computes the rank correlation within each calendar month,
// skipping months with fewer than 5 observations.
func monthlyIC(times []time.Time, factor, rets []float64) []MonthlyIC {
	out := []MonthlyIC{}
	for start := 0; start < len(times); {
		year, month, _ := times[start].Date()
		end := start + 1
		for end < len(times) {
			y, m, _ := times[end].Date()
			if y != year || m != month {
				break
			}
			end++
		}

		if end-start >= 5 {
			ic := spearman(factor[start:end], rets[start:end])
			if !math.IsNaN(ic) {
				out = append(out, MonthlyIC{
					Period: times[start].Format("2006-01"),
					IC:     ic,
				})
			}
		}
		start = end
	}
	return out
}
