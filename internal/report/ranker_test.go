package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore serves a fixed report list, newest first like the real
// stores.
type memStore struct {
	reports []*Report
	err     error
}

func (m *memStore) Save(ctx context.Context, r *Report) error { return m.err }

func (m *memStore) Get(ctx context.Context, id string) (*Report, error) {
	for _, r := range m.reports {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) List(ctx context.Context) ([]*Report, error) {
	return m.reports, m.err
}

func (m *memStore) Delete(ctx context.Context, id string) error { return m.err }

func storedReport(name string, age time.Duration, metricsJSON string) *Report {
	r := New(name, "", "close", nil)
	r.CreatedAt = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC).Add(-age)
	if metricsJSON != "" {
		r.Data = json.RawMessage(fmt.Sprintf(`{"metrics":%s}`, metricsJSON))
	}
	return r
}

func rankerFixture() *Ranker {
	return NewRanker(&memStore{reports: []*Report{
		storedReport("weak", 0, `{"score":20,"ic_mean":0.01,"sharpe":0.2,"win_rate":0.50,"sortino":0.1}`),
		storedReport("strong", time.Hour, `{"score":80,"ic_mean":0.05,"sharpe":1.5,"win_rate":0.55,"sortino":2.0,"is_valid_factor":true}`),
		storedReport("inverse", 2*time.Hour, `{"score":50,"ic_mean":-0.09,"sharpe":-0.8,"win_rate":0.46,"sortino":-1.2}`),
	}})
}

func TestRankerListByScore(t *testing.T) {
	got, err := rankerFixture().List(context.Background(), "score")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, []string{"strong", "inverse", "weak"},
		[]string{got[0].Name, got[1].Name, got[2].Name})
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, 2, got[1].Rank)
	assert.Equal(t, 3, got[2].Rank)
	assert.True(t, got[0].IsValid)
}

func TestRankerListByICMagnitude(t *testing.T) {
	// |-0.09| beats 0.05 beats 0.01.
	got, err := rankerFixture().List(context.Background(), "ic_mean")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "inverse", got[0].Name)
	assert.Equal(t, "strong", got[1].Name)
	assert.Equal(t, "weak", got[2].Name)
}

func TestRankerListByTimestamp(t *testing.T) {
	got, err := rankerFixture().List(context.Background(), "timestamp")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "weak", got[0].Name)
	assert.Equal(t, "strong", got[1].Name)
	assert.Equal(t, "inverse", got[2].Name)
}

func TestRankerListUnknownKeyFallsBackToScore(t *testing.T) {
	got, err := rankerFixture().List(context.Background(), "bogus")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "strong", got[0].Name)
}

func TestRankerListMissingMetrics(t *testing.T) {
	ranker := NewRanker(&memStore{reports: []*Report{
		storedReport("empty", 0, ""),
		storedReport("scored", time.Hour, `{"score":10}`),
	}})

	got, err := ranker.List(context.Background(), "score")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "scored", got[0].Name)
	assert.Equal(t, 0.0, got[1].Score)
}

func TestRankerRankings(t *testing.T) {
	rows, total, err := rankerFixture().Rankings(context.Background(), "score", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, rows, 2)
	assert.Equal(t, "strong", rows[0].Name)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, "inverse", rows[1].Name)
	assert.Equal(t, 2, rows[1].Rank)
}

func TestRankerRankingsBySortino(t *testing.T) {
	rows, total, err := rankerFixture().Rankings(context.Background(), "sortino", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, rows, 3)
	assert.Equal(t, "strong", rows[0].Name)
	assert.Equal(t, "inverse", rows[1].Name)
	assert.Equal(t, "weak", rows[2].Name)
}

func TestRankerPropagatesStoreError(t *testing.T) {
	broken := NewRanker(&memStore{err: errors.New("disk on fire")})

	_, err := broken.List(context.Background(), "score")
	assert.ErrorContains(t, err, "disk on fire")

	_, _, err = broken.Rankings(context.Background(), "score", 5)
	assert.ErrorContains(t, err, "disk on fire")
}
