package backtest

import (
	"fmt"
	"math"
	"strings"
)

// computeScore maps the headline metrics onto a 0-100 quality score.
// Weights: IC magnitude 25, IC significance 20, Sharpe 20, win rate 15,
// monotonicity 10, IC stability 10. The thresholds are a fixed policy
// table kept for behavioral compatibility.
func computeScore(m *Metrics) int {
	score := 0.0

	// IC quality: full marks at |IC| >= 0.05
	score += clamp01(math.Abs(m.ICMean)/0.05) * 25

	// IC significance: full marks at |t| >= 2.5
	score += clamp01(math.Abs(m.TStat)/2.5) * 20

	// Sharpe: negative values earn nothing
	score += clamp01(math.Max(m.Sharpe, 0)/1.5) * 20

	// Win rate mapped linearly from 45% to 60%
	score += clamp01((m.WinRate-0.45)/0.15) * 15

	// Monotonic quantile returns
	if m.QuantileSummary.IsMonotonic {
		score += 10
	}

	// IC stability mapped linearly from 45% to 60%
	score += clamp01((m.ICPositivePct-0.45)/0.15) * 10

	rounded := int(math.Round(score))
	if rounded < 0 {
		rounded = 0
	}
	if rounded > 100 {
		rounded = 100
	}
	return rounded
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// assessValidity runs the five statistical checks. The t-stat and IC
// checks are critical: both must pass, along with at least 4 of 5
// checks overall.
func assessValidity(m *Metrics) (bool, string, ValidityChecks) {
	var checks ValidityChecks
	var issues []string

	tAbs := math.Abs(m.TStat)
	checks.ICSignificance = tAbs > 1.96
	if !checks.ICSignificance {
		issues = append(issues, fmt.Sprintf("IC not significant (t=%.2f, need >1.96)", tAbs))
	}

	icAbs := math.Abs(m.ICMean)
	checks.ICMeaningful = icAbs > 0.01
	if !checks.ICMeaningful {
		issues = append(issues, fmt.Sprintf("IC too weak (%.4f, need >0.01)", icAbs))
	}

	checks.PositiveSharpe = m.Sharpe > 0
	if !checks.PositiveSharpe {
		issues = append(issues, fmt.Sprintf("negative Sharpe (%.2f)", m.Sharpe))
	}

	checks.AboveRandom = m.WinRate > 0.48
	if !checks.AboveRandom {
		issues = append(issues, fmt.Sprintf("win rate too low (%.1f%%)", m.WinRate*100))
	}

	checks.SufficientData = m.NumObservations >= 100
	if !checks.SufficientData {
		issues = append(issues, fmt.Sprintf("too few observations (%d, need >=100)", m.NumObservations))
	}

	passed := 0
	for _, ok := range []bool{
		checks.ICSignificance,
		checks.ICMeaningful,
		checks.PositiveSharpe,
		checks.AboveRandom,
		checks.SufficientData,
	} {
		if ok {
			passed++
		}
	}

	valid := checks.ICSignificance && checks.ICMeaningful && passed >= 4
	if valid {
		return true, "factor passes validity checks", checks
	}
	if len(issues) == 0 {
		return false, "factor fails validity checks", checks
	}
	return false, "issues: " + strings.Join(issues, "; "), checks
}
