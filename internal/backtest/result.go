package backtest

// Result bundles every output of a backtest run. When the aligned frame
// is too short, Error carries the reason and Metrics is nil; callers
// must treat that as a regular outcome, not a fault.
type Result struct {
	Error       string         `json:"error,omitempty"`
	Metrics     *Metrics       `json:"metrics"`
	TimeSeries  []ChartPoint   `json:"ts_data"`
	Layers      []LayerRow     `json:"layer_data"`
	ICHistogram []HistogramBin `json:"ic_histogram"`
	MonthlyIC   []MonthlyIC    `json:"cs_ic_data"`
}

// Insufficient reports whether the run stopped at the minimum-observation
// check before producing metrics.
func (r *Result) Insufficient() bool {
	return r.Error != ""
}

// Metrics holds the scalar outputs of a backtest. All values are finite;
// degenerate inputs produce the documented fallbacks instead of NaN/Inf.
type Metrics struct {
	// IC analysis
	ICMean         float64 `json:"ic_mean"`
	ICStd          float64 `json:"ic_std"`
	ICIR           float64 `json:"ic_ir"`
	ICPositivePct  float64 `json:"ic_positive_pct"`
	TStat          float64 `json:"t_stat"`
	PValue         float64 `json:"p_value"`
	FactorAutocorr float64 `json:"factor_autocorr"`
	Turnover       float64 `json:"turnover"`

	// Return metrics
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	AnnualizedVol    float64 `json:"annualized_vol"`

	// Risk metrics
	Sharpe      float64 `json:"sharpe"`
	Sortino     float64 `json:"sortino"`
	Calmar      float64 `json:"calmar"`
	MaxDrawdown float64 `json:"max_drawdown"`

	// Trading metrics
	WinRate      float64 `json:"win_rate"`
	ProfitFactor float64 `json:"profit_factor"`
	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"`
	NumTrades    int     `json:"num_trades"`

	// Quantile analysis
	QuantileSummary QuantileSummary    `json:"quantile_analysis"`
	QuantileReturns map[string]float64 `json:"quantile_returns"`

	// Meta
	NumObservations int `json:"num_observations"`
	Periods         int `json:"periods"`
	NQuantiles      int `json:"n_quantiles"`

	// Verdict
	Score          int            `json:"score"`
	IsValidFactor  bool           `json:"is_valid_factor"`
	ValidityReason string         `json:"validity_reason"`
	ValidityChecks ValidityChecks `json:"validity_checks"`
}

// QuantileSummary condenses the quantile stage.
type QuantileSummary struct {
	Spread      float64 `json:"spread"`
	IsMonotonic bool    `json:"is_monotonic"`
	NQuantiles  int     `json:"n_quantiles"`
}

// LayerRow describes one quantile bucket.
type LayerRow struct {
	Layer       string  `json:"layer"`
	MeanReturn  float64 `json:"mean_return"`
	Std         float64 `json:"std"`
	Sharpe      float64 `json:"sharpe"`
	TotalReturn float64 `json:"total_return"`
	Count       int     `json:"count"`
	WinRate     float64 `json:"win_rate"`
}

// ChartPoint is one date-keyed row of the chart series.
type ChartPoint struct {
	Date         string  `json:"date"`
	Equity       float64 `json:"equity"`
	Drawdown     float64 `json:"drawdown"`
	RollingIC    float64 `json:"rolling_ic"`
	CumulativeIC float64 `json:"cumulative_ic"`
	RollingICIR  float64 `json:"rolling_icir"`
}

// HistogramBin is one bar of the rolling-IC distribution.
type HistogramBin struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

// MonthlyIC is the factor's rank correlation over one calendar month.
type MonthlyIC struct {
	Period string  `json:"period"`
	IC     float64 `json:"ic"`
}

// ValidityChecks records the individual pass/fail tests behind the
// validity verdict.
type ValidityChecks struct {
	ICSignificance bool `json:"ic_significance"`
	ICMeaningful   bool `json:"ic_meaningful"`
	PositiveSharpe bool `json:"positive_sharpe"`
	AboveRandom    bool `json:"above_random"`
	SufficientData bool `json:"sufficient_data"`
}
