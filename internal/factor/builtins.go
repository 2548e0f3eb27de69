package factor

import (
	"fmt"
	"math"

	"github.com/Genius-apple/open-alpha/internal/dataset"
)

// builtin is one entry in the fixed function table. Aliases share the
// same entry under a different key.
type builtin struct {
	minArgs int
	maxArgs int
	apply   func(name string, args []value, n int) (value, error)
}

var builtins = buildBuiltins()

func buildBuiltins() map[string]*builtin {
	table := make(map[string]*builtin)
	add := func(name string, b *builtin, aliases ...string) {
		table[name] = b
		for _, alias := range aliases {
			table[alias] = b
		}
	}

	// Time-series functions

	add("ts_delay", &builtin{minArgs: 2, maxArgs: 2, apply: func(name string, args []value, n int) (value, error) {
		s, err := needSeries(name, args, 0)
		if err != nil {
			return value{}, err
		}
		steps, err := needInt(name, args, 1)
		if err != nil {
			return value{}, err
		}
		return seriesValue(shift(s, steps)), nil
	}}, "delay")

	add("ts_mean", rollingBuiltin(rollingMean), "sma")
	add("ts_sum", rollingBuiltin(rollingSum))
	add("ts_max", rollingBuiltin(rollingMax))
	add("ts_min", rollingBuiltin(rollingMin))
	add("ts_std", rollingBuiltin(rollingStd), "stddev")
	add("ts_var", rollingBuiltin(rollingVar))
	add("ts_median", rollingBuiltin(rollingMedian))
	add("ts_skew", rollingBuiltin(rollingSkew))
	add("ts_kurt", rollingBuiltin(rollingKurt))
	add("ts_rank", rollingBuiltin(rollingRank))
	add("ts_zscore", rollingBuiltin(rollingZScore))

	add("ts_argmax", rollingBuiltin(func(s dataset.Series, w int) dataset.Series {
		return rollingArg(s, w, true)
	}))
	add("ts_argmin", rollingBuiltin(func(s dataset.Series, w int) dataset.Series {
		return rollingArg(s, w, false)
	}))

	add("ts_delta", &builtin{minArgs: 2, maxArgs: 2, apply: func(name string, args []value, n int) (value, error) {
		s, err := needSeries(name, args, 0)
		if err != nil {
			return value{}, err
		}
		steps, err := needInt(name, args, 1)
		if err != nil {
			return value{}, err
		}
		return seriesValue(delta(s, steps)), nil
	}})

	add("ts_pct_change", &builtin{minArgs: 2, maxArgs: 2, apply: func(name string, args []value, n int) (value, error) {
		s, err := needSeries(name, args, 0)
		if err != nil {
			return value{}, err
		}
		steps, err := needInt(name, args, 1)
		if err != nil {
			return value{}, err
		}
		return seriesValue(pctChange(s, steps)), nil
	}})

	add("ts_returns", &builtin{minArgs: 1, maxArgs: 2, apply: func(name string, args []value, n int) (value, error) {
		s, err := needSeries(name, args, 0)
		if err != nil {
			return value{}, err
		}
		steps := 1
		if len(args) == 2 {
			if steps, err = needInt(name, args, 1); err != nil {
				return value{}, err
			}
		}
		return seriesValue(simpleReturns(s, steps)), nil
	}}, "returns")

	add("ts_corr", pairwiseBuiltin(rollingCorr), "rolling_corr")
	add("ts_cov", pairwiseBuiltin(rollingCov))

	// Math functions

	add("rank", seriesBuiltin(percentRank))

	add("log", seriesBuiltin(func(s dataset.Series) dataset.Series {
		return mapSeries(s, func(x float64) float64 { return math.Log(clipLower(x, eps)) })
	}))
	add("log10", seriesBuiltin(func(s dataset.Series) dataset.Series {
		return mapSeries(s, func(x float64) float64 { return math.Log10(clipLower(x, eps)) })
	}))
	add("exp", seriesBuiltin(func(s dataset.Series) dataset.Series {
		// Clip the exponent at 100 to prevent overflow
		return mapSeries(s, func(x float64) float64 { return math.Exp(clipUpper(x, 100)) })
	}))
	add("sqrt", seriesBuiltin(func(s dataset.Series) dataset.Series {
		return mapSeries(s, func(x float64) float64 { return math.Sqrt(clipLower(x, 0)) })
	}))

	add("abs", &builtin{minArgs: 1, maxArgs: 1, apply: func(name string, args []value, n int) (value, error) {
		return apply1(args[0], math.Abs), nil
	}})
	add("sign", &builtin{minArgs: 1, maxArgs: 1, apply: func(name string, args []value, n int) (value, error) {
		return apply1(args[0], signOf), nil
	}})
	add("power", &builtin{minArgs: 2, maxArgs: 2, apply: func(name string, args []value, n int) (value, error) {
		return apply2(args[0], args[1], n, math.Pow), nil
	}})

	// Preprocessing functions

	add("winsorize", &builtin{minArgs: 1, maxArgs: 3, apply: func(name string, args []value, n int) (value, error) {
		s, err := needSeries(name, args, 0)
		if err != nil {
			return value{}, err
		}
		lower, upper := 0.01, 0.99
		if len(args) > 1 {
			if lower, err = needScalar(name, args, 1); err != nil {
				return value{}, err
			}
		}
		if len(args) > 2 {
			if upper, err = needScalar(name, args, 2); err != nil {
				return value{}, err
			}
		}
		return seriesValue(winsorizeSeries(s, lower, upper)), nil
	}})

	add("standardize", seriesBuiltin(standardizeSeries))
	add("normalize", seriesBuiltin(normalizeSeries))
	add("demean", seriesBuiltin(demeanSeries))

	add("fillna", &builtin{minArgs: 1, maxArgs: 2, apply: func(name string, args []value, n int) (value, error) {
		s, err := needSeries(name, args, 0)
		if err != nil {
			return value{}, err
		}
		fill := 0.0
		if len(args) == 2 {
			if fill, err = needScalar(name, args, 1); err != nil {
				return value{}, err
			}
		}
		return seriesValue(fillNA(s, fill)), nil
	}})

	// Conditional functions

	add("if_else", &builtin{minArgs: 3, maxArgs: 3, apply: func(name string, args []value, n int) (value, error) {
		cond, whenTrue, whenFalse := args[0], args[1], args[2]
		if !cond.isSeries() && !whenTrue.isSeries() && !whenFalse.isSeries() {
			return scalarValue(choose(cond.scalar, whenTrue.scalar, whenFalse.scalar)), nil
		}
		length := n
		for _, v := range args {
			if v.isSeries() {
				length = len(v.series)
				break
			}
		}
		out := make(dataset.Series, length)
		for i := range out {
			out[i] = choose(cond.at(i), whenTrue.at(i), whenFalse.at(i))
		}
		return seriesValue(out), nil
	}})

	add("max", &builtin{minArgs: 2, maxArgs: 2, apply: func(name string, args []value, n int) (value, error) {
		return apply2(args[0], args[1], n, func(x, y float64) float64 {
			if math.IsNaN(x) || math.IsNaN(y) {
				return math.NaN()
			}
			return math.Max(x, y)
		}), nil
	}})
	add("min", &builtin{minArgs: 2, maxArgs: 2, apply: func(name string, args []value, n int) (value, error) {
		return apply2(args[0], args[1], n, func(x, y float64) float64 {
			if math.IsNaN(x) || math.IsNaN(y) {
				return math.NaN()
			}
			return math.Min(x, y)
		}), nil
	}})

	return table
}

// rollingBuiltin wraps a (series, window) transform with argument
// checks. The window must be a positive number.
func rollingBuiltin(fn func(dataset.Series, int) dataset.Series) *builtin {
	return &builtin{minArgs: 2, maxArgs: 2, apply: func(name string, args []value, n int) (value, error) {
		s, err := needSeries(name, args, 0)
		if err != nil {
			return value{}, err
		}
		window, err := needWindow(name, args, 1)
		if err != nil {
			return value{}, err
		}
		return seriesValue(fn(s, window)), nil
	}}
}

// pairwiseBuiltin wraps a (series, series, window) transform.
func pairwiseBuiltin(fn func(a, b dataset.Series, window int) dataset.Series) *builtin {
	return &builtin{minArgs: 3, maxArgs: 3, apply: func(name string, args []value, n int) (value, error) {
		a, err := needSeries(name, args, 0)
		if err != nil {
			return value{}, err
		}
		b, err := needSeries(name, args, 1)
		if err != nil {
			return value{}, err
		}
		window, err := needWindow(name, args, 2)
		if err != nil {
			return value{}, err
		}
		return seriesValue(fn(a, b, window)), nil
	}}
}

// seriesBuiltin wraps a single-series transform.
func seriesBuiltin(fn func(dataset.Series) dataset.Series) *builtin {
	return &builtin{minArgs: 1, maxArgs: 1, apply: func(name string, args []value, n int) (value, error) {
		s, err := needSeries(name, args, 0)
		if err != nil {
			return value{}, err
		}
		return seriesValue(fn(s)), nil
	}}
}

func needSeries(name string, args []value, i int) (dataset.Series, error) {
	if !args[i].isSeries() {
		return nil, fmt.Errorf("%s: argument %d must be a series", name, i+1)
	}
	return args[i].series, nil
}

func needScalar(name string, args []value, i int) (float64, error) {
	if args[i].isSeries() {
		return 0, fmt.Errorf("%s: argument %d must be a number", name, i+1)
	}
	return args[i].scalar, nil
}

func needInt(name string, args []value, i int) (int, error) {
	v, err := needScalar(name, args, i)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s: argument %d must be a finite number", name, i+1)
	}
	return int(v), nil
}

func needWindow(name string, args []value, i int) (int, error) {
	w, err := needInt(name, args, i)
	if err != nil {
		return 0, err
	}
	if w <= 0 {
		return 0, fmt.Errorf("%s: window must be positive, got %d", name, w)
	}
	return w, nil
}

func mapSeries(s dataset.Series, f func(float64) float64) dataset.Series {
	out := make(dataset.Series, len(s))
	for i, v := range s {
		if math.IsNaN(v) {
			out[i] = math.NaN()
		} else {
			out[i] = f(v)
		}
	}
	return out
}

func clipLower(x, lo float64) float64 {
	if x < lo {
		return lo
	}
	return x
}

func clipUpper(x, hi float64) float64 {
	if x > hi {
		return hi
	}
	return x
}

// choose implements if_else for one element. A NaN condition stays
// missing rather than silently picking a branch.
func choose(cond, whenTrue, whenFalse float64) float64 {
	if math.IsNaN(cond) {
		return math.NaN()
	}
	if cond != 0 {
		return whenTrue
	}
	return whenFalse
}
