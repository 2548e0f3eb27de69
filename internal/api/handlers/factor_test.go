package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Genius-apple/open-alpha/internal/factor"
)

func newFactorHandler(svc *stubDataService) *FactorHandler {
	return NewFactorHandler(svc, factor.NewEngine(), testLogger())
}

func postJSON(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestEvaluate(t *testing.T) {
	svc := &stubDataService{frame: rampFrame(t, 70)}
	h := newFactorHandler(svc)

	rec := httptest.NewRecorder()
	h.Evaluate(rec, postJSON(t, `{"expression": "close", "symbol": "BTC", "interval": "1d"}`))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp evaluateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.NotNil(t, resp.Metrics)
	// Rising close against shrinking ramp returns is perfectly anti-ordered.
	assert.InDelta(t, -1.0, resp.Metrics.ICMean, 1e-9)
	assert.Equal(t, 69, resp.Metrics.NumObservations)
	assert.Equal(t, 1, resp.Metrics.Periods)
	assert.Equal(t, 5, resp.Metrics.NQuantiles)

	// One chart row per aligned observation, one overlay row per candle.
	assert.Len(t, resp.EquityCurve, 69)
	require.Len(t, resp.PriceData, 70)
	assert.Equal(t, "2024-01-01 00:00", resp.PriceData[0].Date)
	assert.Equal(t, 100.0, resp.PriceData[0].Close)
	assert.Equal(t, 100.0, resp.PriceData[0].Factor)

	assert.Len(t, resp.Layers, 5)
	assert.Len(t, resp.ICHistogram, 15)
	require.Len(t, resp.MonthlyIC, 3)
	assert.Equal(t, "2024-01", resp.MonthlyIC[0].Period)
	assert.InDelta(t, -1.0, resp.MonthlyIC[0].IC, 1e-9)
}

func TestEvaluateAppliesDefaults(t *testing.T) {
	svc := &stubDataService{frame: rampFrame(t, 70)}
	h := newFactorHandler(svc)

	rec := httptest.NewRecorder()
	h.Evaluate(rec, postJSON(t, `{"expression": "close"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "BTC", svc.lastSymbol)
	assert.Equal(t, "1d", svc.lastInterval)
}

func TestEvaluateInvalidBody(t *testing.T) {
	h := newFactorHandler(&stubDataService{frame: rampFrame(t, 70)})

	rec := httptest.NewRecorder()
	h.Evaluate(rec, postJSON(t, `{"expression": `))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decodeError(t, rec))
}

func TestEvaluateMissingExpression(t *testing.T) {
	h := newFactorHandler(&stubDataService{frame: rampFrame(t, 70)})

	rec := httptest.NewRecorder()
	h.Evaluate(rec, postJSON(t, `{"symbol": "BTC"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "expression is required", decodeError(t, rec))
}

func TestEvaluateRejectsBadQuantile(t *testing.T) {
	h := newFactorHandler(&stubDataService{frame: rampFrame(t, 70)})

	rec := httptest.NewRecorder()
	h.Evaluate(rec, postJSON(t, `{"expression": "close", "quantile": 1}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "quantile must be at least 2", decodeError(t, rec))
}

func TestEvaluateExpressionError(t *testing.T) {
	h := newFactorHandler(&stubDataService{frame: rampFrame(t, 70)})

	rec := httptest.NewRecorder()
	h.Evaluate(rec, postJSON(t, `{"expression": "nope(close)"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec), "nope")
}

func TestEvaluateUnknownSymbol(t *testing.T) {
	svc := &stubDataService{err: errors.New("no data for DOGE 1d")}
	h := newFactorHandler(svc)

	rec := httptest.NewRecorder()
	h.Evaluate(rec, postJSON(t, `{"expression": "close", "symbol": "DOGE"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no data for DOGE 1d", decodeError(t, rec))
}

func TestEvaluateInsufficientData(t *testing.T) {
	svc := &stubDataService{frame: rampFrame(t, 10)}
	h := newFactorHandler(svc)

	rec := httptest.NewRecorder()
	h.Evaluate(rec, postJSON(t, `{"expression": "close"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "insufficient data: 9 points (need 60)", decodeError(t, rec))
}

func TestCombine(t *testing.T) {
	svc := &stubDataService{frame: rampFrame(t, 70)}
	h := newFactorHandler(svc)

	rec := httptest.NewRecorder()
	h.Combine(rec, postJSON(t, `{
		"factors": [
			{"expression": "close", "weight": 1.0},
			{"expression": "-close", "weight": 0.5}
		]
	}`))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp combineResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.NotNil(t, resp.Metrics)
	assert.Equal(t, 69, resp.Metrics.NumObservations)

	require.Len(t, resp.FactorDetails, 2)
	assert.Equal(t, "close", resp.FactorDetails[0].Expression)
	assert.Equal(t, 1.0, resp.FactorDetails[0].Weight)
	assert.Less(t, resp.FactorDetails[0].IC, 0.0)
	assert.Equal(t, "-close", resp.FactorDetails[1].Expression)
	assert.Equal(t, 0.5, resp.FactorDetails[1].Weight)
	assert.Greater(t, resp.FactorDetails[1].IC, 0.0)

	// Mirrored legs nearly cancel IC-wise but the net weight stays long.
	assert.Len(t, resp.Layers, 5)
	assert.Len(t, resp.EquityCurve, 69)
}

func TestCombineFactorError(t *testing.T) {
	svc := &stubDataService{frame: rampFrame(t, 70)}
	h := newFactorHandler(svc)

	rec := httptest.NewRecorder()
	h.Combine(rec, postJSON(t, `{
		"factors": [
			{"expression": "close", "weight": 1.0},
			{"expression": "nope(close)", "weight": 1.0}
		]
	}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	got := decodeError(t, rec)
	assert.Contains(t, got, "Error in factor 'nope(close)'")
}

func TestCombineRequiresFactors(t *testing.T) {
	h := newFactorHandler(&stubDataService{frame: rampFrame(t, 70)})

	rec := httptest.NewRecorder()
	h.Combine(rec, postJSON(t, `{}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "factors is required", decodeError(t, rec))

	rec = httptest.NewRecorder()
	h.Combine(rec, postJSON(t, `{"factors": []}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "factors must be at least 1", decodeError(t, rec))
}

func TestCombineMissingLegExpression(t *testing.T) {
	h := newFactorHandler(&stubDataService{frame: rampFrame(t, 70)})

	rec := httptest.NewRecorder()
	h.Combine(rec, postJSON(t, `{"factors": [{"weight": 1.0}]}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "expression is required", decodeError(t, rec))
}
