package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/Genius-apple/open-alpha/internal/dataset"
)

// Backtester measures a factor's predictive power against one price
// table. It holds no mutable state, so a single instance is safe for
// concurrent runs.
type Backtester struct {
	frame *dataset.Frame
	close dataset.Series
}

// New builds a Backtester over a price table. The table must carry a
// close column.
func New(frame *dataset.Frame) (*Backtester, error) {
	closeCol, ok := frame.Lookup("close")
	if !ok {
		return nil, fmt.Errorf("data must contain a close column")
	}
	return &Backtester{frame: frame, close: closeCol}, nil
}

// ForwardReturns computes, for each row t, the close-to-close return
// realized from t to t+periods. The last periods rows stay NaN since no
// future data exists for them. Gaps in close are forward-filled before
// the ratio so isolated missing rows do not wipe adjacent returns.
func (b *Backtester) ForwardReturns(periods int) dataset.Series {
	n := len(b.close)
	out := make(dataset.Series, n)
	for i := range out {
		out[i] = math.NaN()
	}
	if periods <= 0 {
		return out
	}

	padded := make(dataset.Series, n)
	last := math.NaN()
	for i, v := range b.close {
		if !math.IsNaN(v) {
			last = v
		}
		padded[i] = last
	}

	for i := 0; i+periods < n; i++ {
		prev, next := padded[i], padded[i+periods]
		if math.IsNaN(prev) || math.IsNaN(next) {
			continue
		}
		out[i] = next/prev - 1
	}
	return out
}

// Run executes the full analysis pipeline for one factor series: align
// with forward returns, IC analysis, quantile analysis, long/short
// portfolio, composite score and validity verdict, chart shaping.
//
// A factor whose aligned frame is shorter than cfg.MinObservations
// yields a Result with Error set and nil Metrics. Sparse data is an
// expected outcome, not a failure; the error return fires only on
// caller mistakes such as a factor of the wrong length.
func (b *Backtester) Run(factor dataset.Series, cfg Config) (*Result, error) {
	if len(factor) != b.frame.Len() {
		return nil, fmt.Errorf("factor length %d does not match data length %d", len(factor), b.frame.Len())
	}
	cfg = cfg.withDefaults()

	fwd := b.ForwardReturns(cfg.Periods)

	// Keep rows where both the factor and the forward return are finite.
	timestamps := b.frame.Timestamps()
	times := make([]time.Time, 0, len(factor))
	factorClean := make([]float64, 0, len(factor))
	retsClean := make([]float64, 0, len(factor))
	for i := range factor {
		if isFinite(factor[i]) && isFinite(fwd[i]) {
			times = append(times, timestamps[i])
			factorClean = append(factorClean, factor[i])
			retsClean = append(retsClean, fwd[i])
		}
	}

	n := len(factorClean)
	if n < cfg.MinObservations {
		return &Result{
			Error:       fmt.Sprintf("insufficient data: %d points (need %d)", n, cfg.MinObservations),
			TimeSeries:  []ChartPoint{},
			Layers:      []LayerRow{},
			ICHistogram: []HistogramBin{},
			MonthlyIC:   []MonthlyIC{},
		}, nil
	}

	ic := icAnalysis(times, factorClean, retsClean, cfg)
	quant := quantileAnalysis(factorClean, retsClean, cfg)
	port := portfolioMetrics(factorClean, retsClean, cfg)

	m := &Metrics{
		ICMean:         ic.icMean,
		ICStd:          ic.icStd,
		ICIR:           ic.icIR,
		ICPositivePct:  ic.icPositivePct,
		TStat:          ic.tStat,
		PValue:         ic.pValue,
		FactorAutocorr: ic.factorAutocorr,
		Turnover:       ic.turnover,

		TotalReturn:      port.totalReturn,
		AnnualizedReturn: port.annualizedReturn,
		AnnualizedVol:    port.annualizedVol,

		Sharpe:      port.sharpe,
		Sortino:     port.sortino,
		Calmar:      port.calmar,
		MaxDrawdown: port.maxDrawdown,

		WinRate:      port.winRate,
		ProfitFactor: port.profitFactor,
		AvgWin:       port.avgWin,
		AvgLoss:      port.avgLoss,
		NumTrades:    port.numTrades,

		QuantileSummary: quant.summary,
		QuantileReturns: quant.returns,

		NumObservations: n,
		Periods:         cfg.Periods,
		NQuantiles:      cfg.NQuantiles,
	}

	m.Score = computeScore(m)
	m.IsValidFactor, m.ValidityReason, m.ValidityChecks = assessValidity(m)

	return &Result{
		Metrics:     m,
		TimeSeries:  chartPoints(times, port, ic),
		Layers:      quant.layers,
		ICHistogram: ic.histogram,
		MonthlyIC:   ic.monthly,
	}, nil
}
