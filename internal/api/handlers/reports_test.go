package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Genius-apple/open-alpha/internal/report"
)

func newReportHandler(t *testing.T) *ReportHandler {
	t.Helper()
	store, err := report.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return NewReportHandler(store, report.NewRanker(store), testLogger())
}

func saveReport(t *testing.T, h *ReportHandler, name string, score int) string {
	t.Helper()

	body := fmt.Sprintf(`{
		"name": %q,
		"description": "test factor",
		"expression": "close",
		"result": {"metrics": {"score": %d, "ic_mean": 0.05, "sharpe": 1.2}}
	}`, name, score)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/reports", strings.NewReader(body))
	h.Save(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Report saved", resp["message"])
	return resp["id"]
}

func withID(req *http.Request, id string) *http.Request {
	return mux.SetURLVars(req, map[string]string{"id": id})
}

func TestReportSaveAndGet(t *testing.T) {
	h := newReportHandler(t)

	id := saveReport(t, h, "momentum", 72)
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := withID(httptest.NewRequest(http.MethodGet, "/api/reports/"+id, nil), id)
	h.Get(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got report.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "momentum", got.Name)
	assert.Equal(t, "close", got.Expression)
	assert.JSONEq(t, `{"metrics": {"score": 72, "ic_mean": 0.05, "sharpe": 1.2}}`, string(got.Data))
}

func TestReportSaveRequiresName(t *testing.T) {
	h := newReportHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/reports",
		strings.NewReader(`{"result": {"metrics": {}}}`))
	h.Save(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "name is required", decodeError(t, rec))
}

func TestReportSaveRequiresResult(t *testing.T) {
	h := newReportHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/reports",
		strings.NewReader(`{"name": "momentum"}`))
	h.Save(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "result is required", decodeError(t, rec))
}

func TestReportGetMissing(t *testing.T) {
	h := newReportHandler(t)

	id := uuid.New().String()
	rec := httptest.NewRecorder()
	req := withID(httptest.NewRequest(http.MethodGet, "/api/reports/"+id, nil), id)
	h.Get(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Report not found", decodeError(t, rec))
}

func TestReportDelete(t *testing.T) {
	h := newReportHandler(t)
	id := saveReport(t, h, "momentum", 72)

	rec := httptest.NewRecorder()
	h.Delete(rec, withID(httptest.NewRequest(http.MethodDelete, "/api/reports/"+id, nil), id))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Report deleted", resp["message"])

	rec = httptest.NewRecorder()
	h.Delete(rec, withID(httptest.NewRequest(http.MethodDelete, "/api/reports/"+id, nil), id))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportList(t *testing.T) {
	h := newReportHandler(t)
	saveReport(t, h, "weak", 10)
	saveReport(t, h, "strong", 90)
	saveReport(t, h, "middle", 50)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/reports?sort_by=score", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Reports []report.Summary `json:"reports"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Reports, 3)
	assert.Equal(t, "strong", resp.Reports[0].Name)
	assert.Equal(t, 1, resp.Reports[0].Rank)
	assert.Equal(t, "middle", resp.Reports[1].Name)
	assert.Equal(t, "weak", resp.Reports[2].Name)
}

func TestReportRankings(t *testing.T) {
	h := newReportHandler(t)
	saveReport(t, h, "weak", 10)
	saveReport(t, h, "strong", 90)
	saveReport(t, h, "middle", 50)

	rec := httptest.NewRecorder()
	h.Rankings(rec, httptest.NewRequest(http.MethodGet, "/api/rankings?sort_by=score&limit=2", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Rankings []report.Ranking `json:"rankings"`
		Total    int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Rankings, 2)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, "strong", resp.Rankings[0].Name)
	assert.Equal(t, 2, resp.Rankings[1].Rank)
}

func TestReportRankingsBadLimit(t *testing.T) {
	h := newReportHandler(t)

	rec := httptest.NewRecorder()
	h.Rankings(rec, httptest.NewRequest(http.MethodGet, "/api/rankings?limit=abc", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "limit must be an integer", decodeError(t, rec))
}
