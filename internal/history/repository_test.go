package history

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockrank/internal/pipeline"
	"github.com/wonny/stockrank/internal/ranking"
	"github.com/wonny/stockrank/internal/report"
	"github.com/wonny/stockrank/pkg/config"
	"github.com/wonny/stockrank/pkg/database"
	"github.com/wonny/stockrank/pkg/logger"
)

func TestGetRun_InvalidID(t *testing.T) {
	// 잘못된 ID는 DB 조회 없이 거절
	_, err := NewRepository(nil).GetRun(context.Background(), "not-a-uuid")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

// Integration test, requires DATABASE_URL
func TestRepository_RoundTrip(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.New(ctx, cfg, logger.Nop())
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db.Pool)
	require.NoError(t, repo.EnsureSchema(ctx))

	candidates := ranking.Candidates{
		"KO":   {ranking.DividendYield: 0.031},
		"MSFT": {ranking.DividendYield: 0.008},
		"NVDA": {},
	}
	breakdown := []ranking.RankerScores{{
		Name:   "positive_greatest_winning(dividend_yield)",
		Scores: ranking.Scores{"KO": 1, "MSFT": 0},
	}}
	scores := ranking.Sum(breakdown)
	started := time.Now().UTC().Truncate(time.Millisecond)

	run := &pipeline.RunResult{
		RunID:         uuid.NewString(),
		AccountID:     "U_TEST",
		Strategy:      pipeline.Strategy{ID: "default", Version: "1", ConfigHash: "abc"},
		StartedAt:     started,
		FinishedAt:    started.Add(1500 * time.Millisecond),
		Duration:      1500 * time.Millisecond,
		DataTimestamp: started.Add(-time.Hour),
		Candidates:    candidates,
		Scores:        scores,
		Breakdown:     breakdown,
		Entries:       report.NewRenderer().Render(candidates, scores),
	}
	require.NoError(t, repo.SaveRun(ctx, run))

	got, err := repo.GetRun(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.AccountID, got.AccountID)
	assert.Equal(t, run.Strategy, got.Strategy)
	assert.Equal(t, run.Duration, got.Duration)
	assert.Equal(t, run.Scores, got.Scores)
	_, scored := got.Scores["NVDA"]
	assert.False(t, scored, "unscored ticker must stay absent")
	assert.Len(t, got.Entries, 3)
	assert.Equal(t, run.Entries, got.Entries)
	assert.Equal(t, run.Candidates, got.Candidates)

	runs, err := repo.ListRuns(ctx, 50)
	require.NoError(t, err)
	var found bool
	for _, s := range runs {
		if s.RunID == run.RunID {
			found = true
			assert.Equal(t, 3, s.Tickers)
			assert.Equal(t, "KO", s.TopTicker)
		}
	}
	assert.True(t, found)

	_, err = repo.GetRun(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrRunNotFound)
}
