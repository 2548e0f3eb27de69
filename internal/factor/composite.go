package factor

import (
	"math"

	"github.com/Genius-apple/open-alpha/internal/dataset"
)

// CleanFill replaces every non-finite value with fill. Factors go
// through this before backtesting so gaps read as neutral exposure.
func CleanFill(s dataset.Series, fill float64) dataset.Series {
	out := make(dataset.Series, len(s))
	for i, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[i] = fill
		} else {
			out[i] = v
		}
	}
	return out
}

// Standardized z-scores a series against its own mean and standard
// deviation. A zero std falls back to 1 so constant factors map to
// zeros instead of blowing up.
func Standardized(s dataset.Series) dataset.Series {
	mean := nanMean(s)
	std := nanStd(s)
	if std == 0 {
		std = 1
	}
	out := make(dataset.Series, len(s))
	for i, v := range s {
		out[i] = (v - mean) / std
	}
	return out
}

// Combine builds a composite factor as the weighted sum of the
// standardized inputs. All series must share the same length.
func Combine(factors []dataset.Series, weights []float64, n int) dataset.Series {
	combo := make(dataset.Series, n)
	for k, f := range factors {
		z := Standardized(f)
		w := weights[k]
		for i := range combo {
			combo[i] += z[i] * w
		}
	}
	return combo
}
