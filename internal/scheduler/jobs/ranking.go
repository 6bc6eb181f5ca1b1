package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/stockrank/internal/pipeline"
	"github.com/wonny/stockrank/pkg/logger"
)

// Runner executes report runs
type Runner interface {
	Run(ctx context.Context, cfg pipeline.RunConfig) (*pipeline.RunResult, error)
}

// RankingJob produces a fresh report on schedule and stores it
type RankingJob struct {
	runner    Runner
	accountID string
	schedule  string
	save      bool
	logger    *logger.Logger
}

// NewRankingJob creates a new ranking job
func NewRankingJob(runner Runner, accountID, schedule string, save bool, log *logger.Logger) *RankingJob {
	return &RankingJob{
		runner:    runner,
		accountID: accountID,
		schedule:  schedule,
		save:      save,
		logger:    log,
	}
}

// Name returns the job name
func (j *RankingJob) Name() string {
	return "ranking_report"
}

// Schedule returns the cron schedule
func (j *RankingJob) Schedule() string {
	return j.schedule
}

// Run downloads fresh data and ranks the portfolio
func (j *RankingJob) Run(ctx context.Context) error {
	result, err := j.runner.Run(ctx, pipeline.RunConfig{
		AccountID: j.accountID,
		UseCache:  false, // 예약 실행은 항상 최신 데이터
		Save:      j.save,
	})
	if err != nil {
		return fmt.Errorf("ranking run: %w", err)
	}

	fields := map[string]interface{}{
		"run_id":     result.RunID,
		"candidates": len(result.Candidates),
	}
	if len(result.Entries) > 0 {
		fields["top"] = result.Entries[0].Ticker
		fields["top_score"] = result.Entries[0].Score
	}
	j.logger.WithFields(fields).Info("Scheduled ranking completed")

	return nil
}
