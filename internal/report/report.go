package report

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Report is one saved factor evaluation: user-facing metadata plus the
// full analysis payload exactly as the evaluate endpoint returned it.
type Report struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Expression  string          `json:"expression"`
	CreatedAt   time.Time       `json:"timestamp"`
	Data        json.RawMessage `json:"data"`
}

// New builds a report with a fresh ID and the current time.
func New(name, description, expression string, data json.RawMessage) *Report {
	return &Report{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		Expression:  expression,
		CreatedAt:   time.Now().UTC(),
		Data:        data,
	}
}

// headlineMetrics is the slice of the stored payload that listings and
// rankings read. Anything missing stays at its zero value.
type headlineMetrics struct {
	Score       float64 `json:"score"`
	ICMean      float64 `json:"ic_mean"`
	ICIR        float64 `json:"ic_ir"`
	Sharpe      float64 `json:"sharpe"`
	Sortino     float64 `json:"sortino"`
	WinRate     float64 `json:"win_rate"`
	MaxDrawdown float64 `json:"max_drawdown"`
	IsValid     bool    `json:"is_valid_factor"`
}

// metrics unpacks the metrics object embedded in Data. Reports whose
// payload carries no metrics rank with zeros rather than erroring.
func (r *Report) metrics() headlineMetrics {
	var payload struct {
		Metrics headlineMetrics `json:"metrics"`
	}
	if len(r.Data) > 0 {
		_ = json.Unmarshal(r.Data, &payload)
	}
	return payload.Metrics
}
