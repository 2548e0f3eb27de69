package handlers

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Genius-apple/open-alpha/internal/dataset"
	"github.com/Genius-apple/open-alpha/pkg/config"
	"github.com/Genius-apple/open-alpha/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{
		Env:      "development",
		LogLevel: "error", // Reduce log noise
	})
}

// stubDataService serves one fixed frame and records the last lookup.
type stubDataService struct {
	frame   *dataset.Frame
	catalog map[string][]string
	err     error

	lastSymbol   string
	lastInterval string
}

func (s *stubDataService) Catalog() (map[string][]string, error) {
	return s.catalog, s.err
}

func (s *stubDataService) Frame(symbol, interval string) (*dataset.Frame, error) {
	s.lastSymbol, s.lastInterval = symbol, interval
	if s.err != nil {
		return nil, s.err
	}
	return s.frame, nil
}

func (s *stubDataService) Range(symbol, interval string, from, to time.Time) (*dataset.Frame, error) {
	frame, err := s.Frame(symbol, interval)
	if err != nil {
		return nil, err
	}
	return frame.Slice(from, to), nil
}

// rampFrame builds n daily candles with close = 100 + i.
func rampFrame(t *testing.T, n int) *dataset.Frame {
	t.Helper()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	times := make([]time.Time, n)
	open := make(dataset.Series, n)
	high := make(dataset.Series, n)
	low := make(dataset.Series, n)
	closes := make(dataset.Series, n)
	volume := make(dataset.Series, n)
	for i := 0; i < n; i++ {
		times[i] = start.AddDate(0, 0, i)
		c := 100 + float64(i)
		open[i] = c - 1
		high[i] = c + 2
		low[i] = c - 2
		closes[i] = c
		volume[i] = 1000 + float64(i)
	}

	frame, err := dataset.NewFrame(times, map[string]dataset.Series{
		"open": open, "high": high, "low": low, "close": closes, "volume": volume,
	})
	require.NoError(t, err)
	return frame
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestStructure(t *testing.T) {
	svc := &stubDataService{catalog: map[string][]string{"BTC": {"1d", "4h"}, "ETH": {"1d"}}}
	h := NewDataHandler(svc, testLogger())

	rec := httptest.NewRecorder()
	h.Structure(rec, httptest.NewRequest(http.MethodGet, "/api/structure", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, svc.catalog, got)
}

func TestStructureError(t *testing.T) {
	svc := &stubDataService{err: errors.New("data directory missing")}
	h := NewDataHandler(svc, testLogger())

	rec := httptest.NewRecorder()
	h.Structure(rec, httptest.NewRequest(http.MethodGet, "/api/structure", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "data directory missing", decodeError(t, rec))
}

func TestCandles(t *testing.T) {
	svc := &stubDataService{frame: rampFrame(t, 5)}
	h := NewDataHandler(svc, testLogger())

	rec := httptest.NewRecorder()
	h.Candles(rec, httptest.NewRequest(http.MethodGet, "/api/data?symbol=BTC&interval=1d", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "BTC", svc.lastSymbol)
	assert.Equal(t, "1d", svc.lastInterval)

	var resp candleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "BTC", resp.Symbol)
	assert.Equal(t, "1d", resp.Interval)
	require.Len(t, resp.Data, 5)

	first := resp.Data[0]
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Unix(), first.Time)
	assert.Equal(t, "2024-01-01 00:00", first.Date)
	assert.Equal(t, 99.0, first.Open)
	assert.Equal(t, 102.0, first.High)
	assert.Equal(t, 98.0, first.Low)
	assert.Equal(t, 100.0, first.Close)
	assert.Equal(t, 1000.0, first.Volume)
}

func TestCandlesRange(t *testing.T) {
	svc := &stubDataService{frame: rampFrame(t, 10)}
	h := NewDataHandler(svc, testLogger())

	rec := httptest.NewRecorder()
	h.Candles(rec, httptest.NewRequest(http.MethodGet,
		"/api/data?symbol=BTC&interval=1d&start=2024-01-03&end=2024-01-05", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp candleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 3)
	assert.Equal(t, "2024-01-03 00:00", resp.Data[0].Date)
	// The end date covers the whole day.
	assert.Equal(t, "2024-01-05 00:00", resp.Data[2].Date)
}

func TestCandlesMissingParams(t *testing.T) {
	h := NewDataHandler(&stubDataService{frame: rampFrame(t, 3)}, testLogger())

	rec := httptest.NewRecorder()
	h.Candles(rec, httptest.NewRequest(http.MethodGet, "/api/data?symbol=BTC", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "symbol and interval are required", decodeError(t, rec))
}

func TestCandlesBadDate(t *testing.T) {
	h := NewDataHandler(&stubDataService{frame: rampFrame(t, 3)}, testLogger())

	rec := httptest.NewRecorder()
	h.Candles(rec, httptest.NewRequest(http.MethodGet,
		"/api/data?symbol=BTC&interval=1d&start=03-01-2024", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "start must be formatted as YYYY-MM-DD", decodeError(t, rec))
}

func TestCandlesLoadError(t *testing.T) {
	svc := &stubDataService{err: errors.New("no data for DOGE 1d")}
	h := NewDataHandler(svc, testLogger())

	rec := httptest.NewRecorder()
	h.Candles(rec, httptest.NewRequest(http.MethodGet, "/api/data?symbol=DOGE&interval=1d", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no data for DOGE 1d", decodeError(t, rec))
}

func TestCandlesCapped(t *testing.T) {
	svc := &stubDataService{frame: rampFrame(t, maxCandles+100)}
	h := NewDataHandler(svc, testLogger())

	rec := httptest.NewRecorder()
	h.Candles(rec, httptest.NewRequest(http.MethodGet, "/api/data?symbol=BTC&interval=1d", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp candleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, maxCandles)
	// Oldest rows are dropped, newest kept.
	assert.Equal(t, 100.0+100, resp.Data[0].Close)
	assert.Equal(t, 100.0+float64(maxCandles+99), resp.Data[maxCandles-1].Close)
}

func TestCandlesNaNRendersZero(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	frame, err := dataset.NewFrame(
		[]time.Time{start, start.AddDate(0, 0, 1)},
		map[string]dataset.Series{
			"open":   {1, 2},
			"high":   {1, 2},
			"low":    {1, 2},
			"close":  {100, math.NaN()},
			"volume": {1000, math.Inf(1)},
		},
	)
	require.NoError(t, err)

	h := NewDataHandler(&stubDataService{frame: frame}, testLogger())

	rec := httptest.NewRecorder()
	h.Candles(rec, httptest.NewRequest(http.MethodGet, "/api/data?symbol=BTC&interval=1d", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp candleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, 0.0, resp.Data[1].Close)
	assert.Equal(t, 0.0, resp.Data[1].Volume)
}
