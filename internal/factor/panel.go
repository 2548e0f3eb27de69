package factor

import (
	"fmt"
	"sort"
	"time"

	"github.com/Genius-apple/open-alpha/internal/dataset"
)

// PanelResult holds one evaluated series per asset, aligned to the
// union of the assets' timestamps. Rows an asset never traded are NaN.
type PanelResult struct {
	Timestamps []time.Time
	Assets     []string
	Values     map[string]dataset.Series
}

// EvaluatePanel runs the expression independently over each asset's
// frame and assembles the results into a panel. The expression is
// parsed once.
func (e *Engine) EvaluatePanel(expression string, frames map[string]*dataset.Frame) (*PanelResult, error) {
	root, err := parse(expression)
	if err != nil {
		return nil, &EvaluationError{Expression: expression, Err: err}
	}

	assets := make([]string, 0, len(frames))
	for asset := range frames {
		assets = append(assets, asset)
	}
	sort.Strings(assets)

	perAsset := make(map[string]dataset.Series, len(assets))
	for _, asset := range assets {
		frame := frames[asset]
		v, err := evalNode(root, buildScope(frame), frame.Len())
		if err != nil {
			return nil, &EvaluationError{Expression: expression, Err: fmt.Errorf("asset %s: %w", asset, err)}
		}
		perAsset[asset] = v.materialize(frame.Len())
	}

	union := unionTimestamps(frames, assets)
	values := make(map[string]dataset.Series, len(assets))
	for _, asset := range assets {
		values[asset] = alignToUnion(frames[asset].Timestamps(), perAsset[asset], union)
	}

	return &PanelResult{Timestamps: union, Assets: assets, Values: values}, nil
}

// unionTimestamps merges the frames' indexes into one sorted, unique
// timeline.
func unionTimestamps(frames map[string]*dataset.Frame, assets []string) []time.Time {
	total := 0
	for _, asset := range assets {
		total += frames[asset].Len()
	}

	all := make([]time.Time, 0, total)
	for _, asset := range assets {
		all = append(all, frames[asset].Timestamps()...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Before(all[j]) })

	union := all[:0]
	for _, ts := range all {
		if len(union) == 0 || !ts.Equal(union[len(union)-1]) {
			union = append(union, ts)
		}
	}
	return union
}

// alignToUnion spreads an asset's series onto the union index, leaving
// NaN where the asset has no row. Both indexes are sorted.
func alignToUnion(index []time.Time, series dataset.Series, union []time.Time) dataset.Series {
	out := nanSeries(len(union))
	i := 0
	for u, ts := range union {
		if i < len(index) && index[i].Equal(ts) {
			out[u] = series[i]
			i++
		}
	}
	return out
}
