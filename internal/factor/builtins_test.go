package factor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Genius-apple/open-alpha/internal/dataset"
)

func TestRollingWindowFunctions(t *testing.T) {
	tests := []struct {
		name string
		expr string
		cols map[string]dataset.Series
		want dataset.Series
	}{
		{
			name: "ts_mean truncates the window at the start",
			expr: "ts_mean(close, 3)",
			cols: map[string]dataset.Series{"close": {1, 2, 3, 4, 5}},
			want: dataset.Series{1, 1.5, 2, 3, 4},
		},
		{
			name: "ts_mean skips missing values",
			expr: "ts_mean(close, 3)",
			cols: map[string]dataset.Series{"close": {1, nan, 3, 4}},
			want: dataset.Series{1, 1, 2, 3.5},
		},
		{
			name: "ts_sum",
			expr: "ts_sum(close, 2)",
			cols: map[string]dataset.Series{"close": {1, 2, 3}},
			want: dataset.Series{1, 3, 5},
		},
		{
			name: "ts_max",
			expr: "ts_max(close, 2)",
			cols: map[string]dataset.Series{"close": {3, 1, 2}},
			want: dataset.Series{3, 3, 2},
		},
		{
			name: "ts_min",
			expr: "ts_min(close, 2)",
			cols: map[string]dataset.Series{"close": {3, 1, 2}},
			want: dataset.Series{3, 1, 1},
		},
		{
			name: "ts_std needs two observations",
			expr: "ts_std(close, 3)",
			cols: map[string]dataset.Series{"close": {1, 2, 3, 4}},
			want: dataset.Series{nan, 0.7071067811865476, 1, 1},
		},
		{
			name: "ts_var",
			expr: "ts_var(close, 3)",
			cols: map[string]dataset.Series{"close": {1, 2, 3, 4}},
			want: dataset.Series{nan, 0.5, 1, 1},
		},
		{
			name: "ts_median",
			expr: "ts_median(close, 3)",
			cols: map[string]dataset.Series{"close": {5, 1, 3, 2}},
			want: dataset.Series{5, 3, 3, 2},
		},
		{
			name: "ts_delta",
			expr: "ts_delta(close, 1)",
			cols: map[string]dataset.Series{"close": {1, 3, 6}},
			want: dataset.Series{nan, 2, 3},
		},
		{
			name: "ts_argmax counts from the window start",
			expr: "ts_argmax(close, 3)",
			cols: map[string]dataset.Series{"close": {1, 3, 2, 5}},
			want: dataset.Series{0, 1, 1, 2},
		},
		{
			name: "ts_argmin",
			expr: "ts_argmin(close, 3)",
			cols: map[string]dataset.Series{"close": {1, 3, 2, 5}},
			want: dataset.Series{0, 0, 0, 1},
		},
		{
			name: "ts_zscore",
			expr: "ts_zscore(close, 3)",
			cols: map[string]dataset.Series{"close": {1, 2, 3}},
			want: dataset.Series{nan, 0.7071067811865476, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalOn(t, tt.expr, tt.cols)
			assertSeries(t, tt.want, got, 1e-9)
		})
	}
}

func TestTsDelay(t *testing.T) {
	cols := map[string]dataset.Series{"close": {1, 2, 3}}

	assertSeries(t, dataset.Series{nan, 1, 2}, evalOn(t, "ts_delay(close, 1)", cols), 0)
	assertSeries(t, dataset.Series{2, 3, nan}, evalOn(t, "ts_delay(close, -1)", cols), 0)
}

func TestTsDelayRoundTrip(t *testing.T) {
	cols := map[string]dataset.Series{
		"close": {10, 11, 12, 13, 14, 15},
	}

	// Shifting forward then back restores the interior, with NaN at
	// the rows that fell off either edge.
	got := evalOn(t, "ts_delay(ts_delay(close, 2), -2)", cols)
	assertSeries(t, dataset.Series{10, 11, 12, 13, nan, nan}, got, 0)
}

func TestTsRank(t *testing.T) {
	got := evalOn(t, "ts_rank(close, 3)", map[string]dataset.Series{
		"close": {1, 2, 3, 2},
	})

	// One-row windows are ambiguous and pin to 0.5; afterwards the
	// latest value is placed inside the window's min-max span.
	assert.Equal(t, 0.5, got[0])
	assert.InDelta(t, 1, got[1], 1e-6)
	assert.InDelta(t, 1, got[2], 1e-6)
	assert.InDelta(t, 0, got[3], 1e-6)
}

func TestTsCorr(t *testing.T) {
	t.Run("perfect positive", func(t *testing.T) {
		got := evalOn(t, "ts_corr(close, volume, 3)", map[string]dataset.Series{
			"close":  {1, 2, 3, 4},
			"volume": {2, 4, 6, 8},
		})
		assertSeries(t, dataset.Series{nan, 1, 1, 1}, got, 1e-9)
	})

	t.Run("perfect negative", func(t *testing.T) {
		got := evalOn(t, "ts_corr(close, volume, 3)", map[string]dataset.Series{
			"close":  {1, 2, 3, 4},
			"volume": {4, 3, 2, 1},
		})
		assertSeries(t, dataset.Series{nan, -1, -1, -1}, got, 1e-9)
	})

	t.Run("constant series has no correlation", func(t *testing.T) {
		got := evalOn(t, "ts_corr(close, volume, 3)", map[string]dataset.Series{
			"close":  {1, 2, 3, 4},
			"volume": {5, 5, 5, 5},
		})
		for i, v := range got {
			assert.True(t, math.IsNaN(v), "index %d", i)
		}
	})
}

func TestTsCov(t *testing.T) {
	got := evalOn(t, "ts_cov(close, volume, 2)", map[string]dataset.Series{
		"close":  {1, 2, 3},
		"volume": {2, 4, 6},
	})
	assertSeries(t, dataset.Series{nan, 1, 1}, got, 1e-9)
}

func TestTsSkewKurt(t *testing.T) {
	skew := evalOn(t, "ts_skew(close, 3)", map[string]dataset.Series{
		"close": {1, 2, 4},
	})
	assertSeries(t, dataset.Series{nan, nan, 0.93522}, skew, 1e-4)

	kurt := evalOn(t, "ts_kurt(close, 4)", map[string]dataset.Series{
		"close": {1, 2, 3, 4, 5},
	})
	assertSeries(t, dataset.Series{nan, nan, nan, -1.2, -1.2}, kurt, 1e-9)

	// Constant windows have undefined higher moments.
	flatSkew := evalOn(t, "ts_skew(close, 3)", map[string]dataset.Series{
		"close": {2, 2, 2, 2},
	})
	for i, v := range flatSkew {
		assert.True(t, math.IsNaN(v), "index %d", i)
	}
}

func TestTsPctChangePadsGaps(t *testing.T) {
	cols := map[string]dataset.Series{
		"close": {100, nan, 110},
	}

	// pct_change carries the last observation across the gap.
	padded := evalOn(t, "ts_pct_change(close, 1)", cols)
	assertSeries(t, dataset.Series{nan, 0, 0.1}, padded, 1e-9)

	// ts_returns keeps the gap.
	raw := evalOn(t, "ts_returns(close, 1)", cols)
	assertSeries(t, dataset.Series{nan, nan, nan}, raw, 0)
}

func TestRank(t *testing.T) {
	got := evalOn(t, "rank(close)", map[string]dataset.Series{
		"close": {10, 20, 20, 30, nan},
	})
	assertSeries(t, dataset.Series{0.25, 0.625, 0.625, 1, nan}, got, 1e-9)
}

func TestMathFunctions(t *testing.T) {
	tests := []struct {
		name string
		expr string
		cols map[string]dataset.Series
		want dataset.Series
	}{
		{
			name: "log clips at a small floor",
			expr: "log(close)",
			cols: map[string]dataset.Series{"close": {math.E, 0, -5}},
			want: dataset.Series{1, math.Log(1e-10), math.Log(1e-10)},
		},
		{
			name: "log10",
			expr: "log10(close)",
			cols: map[string]dataset.Series{"close": {100, 1000}},
			want: dataset.Series{2, 3},
		},
		{
			name: "exp clips the exponent",
			expr: "exp(close)",
			cols: map[string]dataset.Series{"close": {0, 1, 200}},
			want: dataset.Series{1, math.E, math.Exp(100)},
		},
		{
			name: "sqrt clips negatives to zero",
			expr: "sqrt(close)",
			cols: map[string]dataset.Series{"close": {9, -4, 0}},
			want: dataset.Series{3, 0, 0},
		},
		{
			name: "abs",
			expr: "abs(close)",
			cols: map[string]dataset.Series{"close": {-2, 0, 2, nan}},
			want: dataset.Series{2, 0, 2, nan},
		},
		{
			name: "sign",
			expr: "sign(close)",
			cols: map[string]dataset.Series{"close": {-3, 0, 2, nan}},
			want: dataset.Series{-1, 0, 1, nan},
		},
		{
			name: "power",
			expr: "power(close, 2)",
			cols: map[string]dataset.Series{"close": {2, 3, -2}},
			want: dataset.Series{4, 9, 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalOn(t, tt.expr, tt.cols)
			assertSeries(t, tt.want, got, 1e-9)
		})
	}
}

func TestWinsorize(t *testing.T) {
	cols := map[string]dataset.Series{
		"close": {1, 2, 3, 4, 5},
	}

	got := evalOn(t, "winsorize(close, 0.25, 0.75)", cols)
	assertSeries(t, dataset.Series{2, 2, 3, 4, 4}, got, 1e-9)

	// Default bounds barely clip a short series.
	wide := evalOn(t, "winsorize(close)", cols)
	assert.InDelta(t, 1.04, wide[0], 1e-9)
	assert.InDelta(t, 4.96, wide[4], 1e-9)
}

func TestStandardize(t *testing.T) {
	cols := map[string]dataset.Series{
		"close": {1, 2, 3},
	}

	got := evalOn(t, "standardize(close)", cols)
	assertSeries(t, dataset.Series{-1, 0, 1}, got, 1e-6)

	// Standardizing twice changes nothing material.
	once := evalOn(t, "standardize(close)", cols)
	twice := evalOn(t, "standardize(standardize(close))", cols)
	assertSeries(t, once, twice, 1e-6)
}

func TestNormalize(t *testing.T) {
	got := evalOn(t, "normalize(close)", map[string]dataset.Series{
		"close": {5, 10, 15},
	})
	assertSeries(t, dataset.Series{0, 0.5, 1}, got, 1e-6)
}

func TestDemean(t *testing.T) {
	got := evalOn(t, "demean(close)", map[string]dataset.Series{
		"close": {1, 2, 3},
	})
	assertSeries(t, dataset.Series{-1, 0, 1}, got, 1e-9)
}

func TestFillna(t *testing.T) {
	cols := map[string]dataset.Series{
		"close": {1, nan, 3},
	}

	assertSeries(t, dataset.Series{1, 0, 3}, evalOn(t, "fillna(close)", cols), 0)
	assertSeries(t, dataset.Series{1, -1, 3}, evalOn(t, "fillna(close, -1)", cols), 0)
}

func TestIfElse(t *testing.T) {
	got := evalOn(t, "if_else(close > open, 1, -1)", map[string]dataset.Series{
		"close": {2, 1, nan},
		"open":  {1, 2, 1},
	})
	assertSeries(t, dataset.Series{1, -1, nan}, got, 0)
}

func TestElementwiseMaxMin(t *testing.T) {
	cols := map[string]dataset.Series{
		"close": {1, 5, nan},
		"open":  {3, 2, 1},
	}

	assertSeries(t, dataset.Series{3, 5, nan}, evalOn(t, "max(close, open)", cols), 0)
	assertSeries(t, dataset.Series{1, 2, nan}, evalOn(t, "min(close, open)", cols), 0)
	assertSeries(t, dataset.Series{1, 2, nan}, evalOn(t, "min(close, 2)", cols), 0)
}
