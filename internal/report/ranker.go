package report

import (
	"context"
	"math"
	"sort"
	"time"
)

// DefaultRankingLimit caps ranking rows when the caller does not ask
// for a specific count.
const DefaultRankingLimit = 20

// Summary is one row of the report listing.
type Summary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Expression  string    `json:"expression"`
	Timestamp   time.Time `json:"timestamp"`
	Score       float64   `json:"score"`
	ICMean      float64   `json:"ic_mean"`
	ICIR        float64   `json:"ic_ir"`
	Sharpe      float64   `json:"sharpe"`
	WinRate     float64   `json:"win_rate"`
	IsValid     bool      `json:"is_valid"`
	Rank        int       `json:"rank"`
}

// Ranking is one row of the cross-factor leaderboard.
type Ranking struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Score       float64   `json:"score"`
	ICMean      float64   `json:"ic_mean"`
	ICIR        float64   `json:"ic_ir"`
	Sharpe      float64   `json:"sharpe"`
	Sortino     float64   `json:"sortino"`
	WinRate     float64   `json:"win_rate"`
	MaxDrawdown float64   `json:"max_drawdown"`
	IsValid     bool      `json:"is_valid"`
	Timestamp   time.Time `json:"timestamp"`
	Rank        int       `json:"rank"`
}

// Ranker shapes stored reports into sorted listings. Metric sorts rank
// by absolute value, so a strongly negative factor places as high as a
// strongly positive one.
type Ranker struct {
	store Store
}

// NewRanker returns a ranker reading from the given store.
func NewRanker(store Store) *Ranker {
	return &Ranker{store: store}
}

// List returns every report as a summary row, sorted by the requested
// key. Valid keys are score, ic_mean, sharpe, win_rate and timestamp;
// anything else falls back to score. Timestamp sorts newest first.
func (k *Ranker) List(ctx context.Context, sortBy string) ([]Summary, error) {
	reports, err := k.store.List(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(reports))
	for _, r := range reports {
		m := r.metrics()
		summaries = append(summaries, Summary{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			Expression:  r.Expression,
			Timestamp:   r.CreatedAt,
			Score:       m.Score,
			ICMean:      m.ICMean,
			ICIR:        m.ICIR,
			Sharpe:      m.Sharpe,
			WinRate:     m.WinRate,
			IsValid:     m.IsValid,
		})
	}

	if sortBy == "timestamp" {
		sort.SliceStable(summaries, func(i, j int) bool {
			return summaries[i].Timestamp.After(summaries[j].Timestamp)
		})
	} else {
		key := summaryKey(sortBy)
		sort.SliceStable(summaries, func(i, j int) bool {
			return math.Abs(key(summaries[i])) > math.Abs(key(summaries[j]))
		})
	}

	for i := range summaries {
		summaries[i].Rank = i + 1
	}
	return summaries, nil
}

// Rankings returns the top reports by |metric| along with the total
// report count. Valid keys are score, ic_mean, sharpe, win_rate and
// sortino; anything else falls back to score. A non-positive limit
// uses DefaultRankingLimit.
func (k *Ranker) Rankings(ctx context.Context, sortBy string, limit int) ([]Ranking, int, error) {
	reports, err := k.store.List(ctx)
	if err != nil {
		return nil, 0, err
	}

	rows := make([]Ranking, 0, len(reports))
	for _, r := range reports {
		m := r.metrics()
		rows = append(rows, Ranking{
			ID:          r.ID,
			Name:        r.Name,
			Score:       m.Score,
			ICMean:      m.ICMean,
			ICIR:        m.ICIR,
			Sharpe:      m.Sharpe,
			Sortino:     m.Sortino,
			WinRate:     m.WinRate,
			MaxDrawdown: m.MaxDrawdown,
			IsValid:     m.IsValid,
			Timestamp:   r.CreatedAt,
		})
	}

	key := rankingKey(sortBy)
	sort.SliceStable(rows, func(i, j int) bool {
		return math.Abs(key(rows[i])) > math.Abs(key(rows[j]))
	})

	total := len(rows)
	if limit <= 0 {
		limit = DefaultRankingLimit
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, total, nil
}

func summaryKey(sortBy string) func(Summary) float64 {
	switch sortBy {
	case "ic_mean":
		return func(s Summary) float64 { return s.ICMean }
	case "sharpe":
		return func(s Summary) float64 { return s.Sharpe }
	case "win_rate":
		return func(s Summary) float64 { return s.WinRate }
	default:
		return func(s Summary) float64 { return s.Score }
	}
}

func rankingKey(sortBy string) func(Ranking) float64 {
	switch sortBy {
	case "ic_mean":
		return func(r Ranking) float64 { return r.ICMean }
	case "sharpe":
		return func(r Ranking) float64 { return r.Sharpe }
	case "win_rate":
		return func(r Ranking) float64 { return r.WinRate }
	case "sortino":
		return func(r Ranking) float64 { return r.Sortino }
	default:
		return func(r Ranking) float64 { return r.Score }
	}
}
