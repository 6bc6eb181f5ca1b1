package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/stockrank/internal/ranking"
	"github.com/wonny/stockrank/internal/report"
	"github.com/wonny/stockrank/internal/stockdata"
	"github.com/wonny/stockrank/pkg/logger"
	"github.com/wonny/stockrank/pkg/metrics"
)

// ErrAccountRequired is returned when a run has no account
var ErrAccountRequired = errors.New("account id is required")

// Fetcher provides stock data, usually a *stockdata.Cacher
type Fetcher interface {
	Fetch(ctx context.Context, accountID string, useCache bool) (*stockdata.StockData, error)
}

// Extractor turns stock data into candidates, usually an *extractor.Extractor
type Extractor interface {
	Extract(data *stockdata.StockData) ranking.Candidates
}

// Recorder persists finished runs, usually a *history.Repository
type Recorder interface {
	SaveRun(ctx context.Context, run *RunResult) error
}

// Strategy identifies the ranker configuration a run used
type Strategy struct {
	ID         string `json:"strategy_id"`
	Version    string `json:"version"`
	ConfigHash string `json:"config_hash"`
}

// RunConfig holds the options of one run
type RunConfig struct {
	AccountID string
	UseCache  bool
	Save      bool
}

// RunResult is the outcome of one report run
type RunResult struct {
	RunID         string                 `json:"run_id"`
	AccountID     string                 `json:"account_id"`
	Strategy      Strategy               `json:"strategy"`
	StartedAt     time.Time              `json:"started_at"`
	FinishedAt    time.Time              `json:"finished_at"`
	Duration      time.Duration          `json:"duration"`
	DataTimestamp time.Time              `json:"data_timestamp"`
	Candidates    ranking.Candidates     `json:"candidates"`
	Scores        ranking.Scores         `json:"scores"`
	Breakdown     []ranking.RankerScores `json:"breakdown"`
	Entries       []report.Entry         `json:"entries"`
}

// Orchestrator runs fetch → extract → rank → render
// ⭐ SSOT: 리포트 실행 흐름은 여기서만
type Orchestrator struct {
	fetcher   Fetcher
	extractor Extractor
	ranker    *ranking.StockRanker
	renderer  *report.Renderer
	recorder  Recorder
	strategy  Strategy
	logger    *logger.Logger
	metrics   *metrics.Registry
	now       func() time.Time
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(
	fetcher Fetcher,
	extractor Extractor,
	ranker *ranking.StockRanker,
	renderer *report.Renderer,
	strategy Strategy,
	log *logger.Logger,
	m *metrics.Registry,
) *Orchestrator {
	return &Orchestrator{
		fetcher:   fetcher,
		extractor: extractor,
		ranker:    ranker,
		renderer:  renderer,
		strategy:  strategy,
		logger:    log.WithComponent("pipeline"),
		metrics:   m,
		now:       time.Now,
	}
}

// WithRecorder enables run persistence for runs with Save set
func (o *Orchestrator) WithRecorder(r Recorder) *Orchestrator {
	o.recorder = r
	return o
}

// HasRecorder reports whether runs can be saved
func (o *Orchestrator) HasRecorder() bool {
	return o.recorder != nil
}

// Run executes one report run
func (o *Orchestrator) Run(ctx context.Context, cfg RunConfig) (*RunResult, error) {
	result, err := o.run(ctx, cfg)
	if err != nil {
		o.metrics.RecordRun(false, 0)
		return nil, err
	}
	o.metrics.RecordRun(true, len(result.Scores))
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, cfg RunConfig) (*RunResult, error) {
	if cfg.AccountID == "" {
		return nil, ErrAccountRequired
	}

	result := &RunResult{
		RunID:     uuid.NewString(),
		AccountID: cfg.AccountID,
		Strategy:  o.strategy,
		StartedAt: o.now(),
	}
	log := o.logger.WithFields(map[string]interface{}{
		"run_id":  result.RunID,
		"account": cfg.AccountID,
	})
	log.Info("Report run started")

	// Stage 1: 데이터 조회
	stageStart := time.Now()
	data, err := o.fetcher.Fetch(ctx, cfg.AccountID, cfg.UseCache)
	o.metrics.ObserveStage("fetch", time.Since(stageStart))
	if err != nil {
		log.WithError(err).Error("Failed to fetch stock data")
		return nil, fmt.Errorf("fetch stock data: %w", err)
	}
	result.DataTimestamp = data.Timestamp

	// Stage 2: 팩터 추출
	stageStart = time.Now()
	result.Candidates = o.extractor.Extract(data)
	o.metrics.ObserveStage("extract", time.Since(stageStart))

	// Stage 3: 랭킹
	stageStart = time.Now()
	result.Breakdown = o.ranker.Breakdown(result.Candidates)
	result.Scores = ranking.Sum(result.Breakdown)
	o.metrics.ObserveStage("rank", time.Since(stageStart))

	// Stage 4: 렌더링
	result.Entries = o.renderer.Render(result.Candidates, result.Scores)

	result.FinishedAt = o.now()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)

	if cfg.Save {
		if o.recorder == nil {
			log.Warn("Run history not configured, run not saved")
		} else if err := o.recorder.SaveRun(ctx, result); err != nil {
			return nil, fmt.Errorf("save run: %w", err)
		}
	}

	log.WithFields(map[string]interface{}{
		"candidates": len(result.Candidates),
		"scored":     len(result.Scores),
		"duration":   result.Duration.String(),
	}).Info("Report run completed")

	return result, nil
}
