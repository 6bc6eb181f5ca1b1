package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockrank/internal/api/handlers"
	"github.com/wonny/stockrank/internal/history"
	"github.com/wonny/stockrank/internal/pipeline"
	"github.com/wonny/stockrank/internal/ranking"
	"github.com/wonny/stockrank/internal/report"
	"github.com/wonny/stockrank/internal/stockdata"
	"github.com/wonny/stockrank/pkg/config"
	"github.com/wonny/stockrank/pkg/logger"
	"github.com/wonny/stockrank/pkg/metrics"
)

type fakeRunner struct {
	last pipeline.RunConfig
	err  error
}

func (f *fakeRunner) Run(_ context.Context, cfg pipeline.RunConfig) (*pipeline.RunResult, error) {
	f.last = cfg
	if f.err != nil {
		return nil, f.err
	}
	candidates := ranking.Candidates{"KO": {ranking.PeRatio: 24}, "VZ": {ranking.PeRatio: 9}}
	scores := ranking.Scores{"KO": 0, "VZ": 1}
	return &pipeline.RunResult{
		RunID:      "3f1c9e4e-8d6a-4a55-9f0e-1d2b3c4d5e6f",
		AccountID:  cfg.AccountID,
		Candidates: candidates,
		Scores:     scores,
		Entries:    report.NewRenderer().Render(candidates, scores),
	}, nil
}

type fakeHistory struct {
	runs []history.RunSummary
}

func (f *fakeHistory) ListRuns(_ context.Context, limit int) ([]history.RunSummary, error) {
	if limit < len(f.runs) {
		return f.runs[:limit], nil
	}
	return f.runs, nil
}

func (f *fakeHistory) GetRun(_ context.Context, runID string) (*pipeline.RunResult, error) {
	for _, r := range f.runs {
		if r.RunID == runID {
			return &pipeline.RunResult{RunID: runID, AccountID: r.AccountID}, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", runID, history.ErrRunNotFound)
}

type fakeCache struct {
	cleared bool
}

func (f *fakeCache) Status(_ context.Context, _ string) (*stockdata.Status, error) {
	return &stockdata.Status{Backend: "file", Present: !f.cleared, Fresh: true, Age: time.Hour}, nil
}

func (f *fakeCache) Clear(_ context.Context, _ string) error {
	f.cleared = true
	return nil
}

func newTestRouter(runner handlers.Runner, hist handlers.HistoryReader) (http.Handler, *fakeCache) {
	cache := &fakeCache{}
	log := logger.Nop()
	return NewRouter(
		handlers.NewRankingHandler(runner, hist, "U1", log),
		handlers.NewCacheHandler(cache, "U1", log),
		metrics.New().Handler(),
		log,
	), cache
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(&fakeRunner{}, nil)

	rec := serve(router, http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","service":"stockrank"}`, rec.Body.String())
}

func TestGetRanking(t *testing.T) {
	runner := &fakeRunner{}
	router, _ := newTestRouter(runner, nil)

	rec := serve(router, http.MethodGet, "/api/ranking")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pipeline.RunConfig{AccountID: "U1", UseCache: true}, runner.last)

	var body pipeline.RunResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Entries, 2)
	assert.Equal(t, "VZ", body.Entries[0].Ticker)

	serve(router, http.MethodGet, "/api/ranking?refresh=true&save=true")
	assert.Equal(t, pipeline.RunConfig{AccountID: "U1", UseCache: false, Save: true}, runner.last)
}

func TestGetRanking_CSV(t *testing.T) {
	router, _ := newTestRouter(&fakeRunner{}, nil)

	rec := serve(router, http.MethodGet, "/api/ranking?format=csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "VZ", records[1][0])
}

func TestGetRanking_Markdown(t *testing.T) {
	router, _ := newTestRouter(&fakeRunner{}, nil)

	rec := serve(router, http.MethodGet, "/api/ranking?format=markdown")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "| VZ | 100.00 |")
}

func TestGetRanking_Errors(t *testing.T) {
	router, _ := newTestRouter(&fakeRunner{err: errors.New("gateway down")}, nil)
	assert.Equal(t, http.StatusBadGateway, serve(router, http.MethodGet, "/api/ranking").Code)
	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodGet, "/api/ranking?format=table").Code)

	router, _ = newTestRouter(&fakeRunner{err: pipeline.ErrAccountRequired}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, serve(router, http.MethodGet, "/api/ranking").Code)
}

func TestRuns(t *testing.T) {
	hist := &fakeHistory{runs: []history.RunSummary{
		{RunID: "a1", AccountID: "U1", TopTicker: "VZ"},
		{RunID: "b2", AccountID: "U1", TopTicker: "KO"},
	}}
	router, _ := newTestRouter(&fakeRunner{}, hist)

	rec := serve(router, http.MethodGet, "/api/ranking/runs?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Runs  []history.RunSummary `json:"runs"`
		Count int                  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, "a1", list.Runs[0].RunID)

	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodGet, "/api/ranking/runs?limit=zero").Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/ranking/runs/b2").Code)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/api/ranking/runs/zz").Code)
}

func TestRuns_NoHistory(t *testing.T) {
	router, _ := newTestRouter(&fakeRunner{}, nil)

	assert.Equal(t, http.StatusServiceUnavailable, serve(router, http.MethodGet, "/api/ranking/runs").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(router, http.MethodGet, "/api/ranking/runs/a1").Code)
}

func TestCacheEndpoints(t *testing.T) {
	router, cache := newTestRouter(&fakeRunner{}, nil)

	rec := serve(router, http.MethodGet, "/api/cache")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"present":true`)

	assert.Equal(t, http.StatusNoContent, serve(router, http.MethodDelete, "/api/cache").Code)
	assert.True(t, cache.cleared)
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(&fakeRunner{}, nil)

	rec := serve(router, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestServer_New(t *testing.T) {
	router, _ := newTestRouter(&fakeRunner{}, nil)
	srv := New(&config.Config{Port: "0"}, logger.Nop(), router)

	assert.Equal(t, router, srv.Handler())
	assert.NoError(t, srv.Shutdown(context.Background()))
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := serve(h, http.MethodGet, "/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequestID(t *testing.T) {
	router, _ := newTestRouter(&fakeRunner{}, nil)

	rec := serve(router, http.MethodGet, "/health")
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
}

func TestWithCORS(t *testing.T) {
	router, _ := newTestRouter(&fakeRunner{}, nil)
	assert.Equal(t, router, WithCORS(router, nil))

	h := WithCORS(router, []string{"http://localhost:3000"})

	req := httptest.NewRequest(http.MethodOptions, "/api/ranking", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
