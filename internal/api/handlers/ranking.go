package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/stockrank/internal/history"
	"github.com/wonny/stockrank/internal/pipeline"
	"github.com/wonny/stockrank/internal/report"
	"github.com/wonny/stockrank/pkg/logger"
)

// Runner executes report runs, usually a *pipeline.Orchestrator
type Runner interface {
	Run(ctx context.Context, cfg pipeline.RunConfig) (*pipeline.RunResult, error)
}

// HistoryReader reads stored runs, usually a *history.Repository
type HistoryReader interface {
	ListRuns(ctx context.Context, limit int) ([]history.RunSummary, error)
	GetRun(ctx context.Context, runID string) (*pipeline.RunResult, error)
}

// RankingHandler handles ranking-related API endpoints
// ⭐ SSOT: 랭킹 API 핸들러는 이 구조체에서만
type RankingHandler struct {
	runner    Runner
	history   HistoryReader // nil when DATABASE_URL is not set
	accountID string
	logger    *logger.Logger
}

// NewRankingHandler creates a new ranking handler
func NewRankingHandler(runner Runner, hist HistoryReader, accountID string, log *logger.Logger) *RankingHandler {
	return &RankingHandler{
		runner:    runner,
		history:   hist,
		accountID: accountID,
		logger:    log,
	}
}

// GetRanking runs a report and returns it
// GET /api/ranking?refresh=true&save=true&format=json|csv|markdown
func (h *RankingHandler) GetRanking(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	refresh, _ := strconv.ParseBool(q.Get("refresh"))
	save, _ := strconv.ParseBool(q.Get("save"))

	format := report.FormatJSON
	if f := q.Get("format"); f != "" {
		parsed, err := report.ParseFormat(f)
		if err != nil || parsed == report.FormatTable {
			respondError(w, http.StatusBadRequest, "format must be json, csv or markdown")
			return
		}
		format = parsed
	}

	result, err := h.runner.Run(r.Context(), pipeline.RunConfig{
		AccountID: h.accountID,
		UseCache:  !refresh,
		Save:      save,
	})
	if err != nil {
		h.logger.WithError(err).Error("Ranking run failed")
		status := http.StatusBadGateway
		if errors.Is(err, pipeline.ErrAccountRequired) {
			status = http.StatusServiceUnavailable
		}
		respondError(w, status, err.Error())
		return
	}

	switch format {
	case report.FormatCSV:
		w.Header().Set("Content-Type", "text/csv")
	case report.FormatMarkdown:
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	default:
		respondJSON(w, http.StatusOK, result)
		return
	}

	if err := report.Write(w, format, result.Entries); err != nil {
		h.logger.WithError(err).WithField("format", format).Warn("Failed to write report")
	}
}

// ListRuns returns recent stored runs
// GET /api/ranking/runs?limit=20
func (h *RankingHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, "run history not configured")
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 || parsed > 500 {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}

	runs, err := h.history.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []history.RunSummary{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRun returns one stored run
// GET /api/ranking/runs/{id}
func (h *RankingHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, "run history not configured")
		return
	}

	runID := mux.Vars(r)["id"]
	run, err := h.history.GetRun(r.Context(), runID)
	if errors.Is(err, history.ErrRunNotFound) {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get run")
		respondError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	respondJSON(w, http.StatusOK, run)
}
