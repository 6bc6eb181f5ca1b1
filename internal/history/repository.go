package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/stockrank/internal/pipeline"
	"github.com/wonny/stockrank/internal/ranking"
	"github.com/wonny/stockrank/internal/report"
)

// ErrRunNotFound is returned when no run has the requested id
var ErrRunNotFound = errors.New("run not found")

const schema = `
	CREATE SCHEMA IF NOT EXISTS ranking;

	CREATE TABLE IF NOT EXISTS ranking.runs (
		run_id           UUID PRIMARY KEY,
		account_id       TEXT NOT NULL,
		strategy_id      TEXT NOT NULL,
		strategy_version TEXT NOT NULL DEFAULT '',
		config_hash      TEXT NOT NULL DEFAULT '',
		started_at       TIMESTAMPTZ NOT NULL,
		finished_at      TIMESTAMPTZ NOT NULL,
		duration_ms      BIGINT NOT NULL,
		data_timestamp   TIMESTAMPTZ NOT NULL,
		candidates       JSONB NOT NULL,
		breakdown        JSONB NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS runs_started_at_idx ON ranking.runs (started_at DESC);

	CREATE TABLE IF NOT EXISTS ranking.run_scores (
		run_id UUID NOT NULL REFERENCES ranking.runs (run_id) ON DELETE CASCADE,
		rank   INT NOT NULL,
		ticker TEXT NOT NULL,
		score  DOUBLE PRECISION NOT NULL,
		entry  JSONB NOT NULL,
		PRIMARY KEY (run_id, ticker)
	);
`

// RunSummary is one row of the run listing
type RunSummary struct {
	RunID      string        `json:"run_id"`
	AccountID  string        `json:"account_id"`
	StrategyID string        `json:"strategy_id"`
	ConfigHash string        `json:"config_hash"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Tickers    int           `json:"tickers"`
	TopTicker  string        `json:"top_ticker,omitempty"`
}

// Repository handles ranking run persistence
// ⭐ SSOT: 랭킹 실행 이력 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new history repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the history tables when missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create history schema: %w", err)
	}
	return nil
}

// SaveRun stores a run and its per-ticker scores in one transaction
func (r *Repository) SaveRun(ctx context.Context, run *pipeline.RunResult) error {
	candidatesJSON, err := json.Marshal(run.Candidates)
	if err != nil {
		return fmt.Errorf("failed to marshal candidates: %w", err)
	}
	breakdownJSON, err := json.Marshal(run.Breakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal breakdown: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO ranking.runs (
			run_id, account_id, strategy_id, strategy_version, config_hash,
			started_at, finished_at, duration_ms, data_timestamp, candidates, breakdown
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		run.RunID, run.AccountID, run.Strategy.ID, run.Strategy.Version, run.Strategy.ConfigHash,
		run.StartedAt, run.FinishedAt, run.Duration.Milliseconds(), run.DataTimestamp,
		candidatesJSON, breakdownJSON,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, entry := range run.Entries {
		entryJSON, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal entry %s: %w", entry.Ticker, err)
		}

		ticker := ranking.Ticker(entry.Ticker)
		_, err = tx.Exec(ctx, `
			INSERT INTO ranking.run_scores (run_id, rank, ticker, score, entry)
			VALUES ($1, $2, $3, $4, $5)
		`, run.RunID, i+1, entry.Ticker, float64(run.Scores.Get(ticker)), entryJSON)
		if err != nil {
			return fmt.Errorf("insert score for %s: %w", entry.Ticker, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// ListRuns returns the most recent runs, newest first
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, `
		SELECT r.run_id::text, r.account_id, r.strategy_id, r.config_hash, r.started_at, r.duration_ms,
			(SELECT COUNT(*) FROM ranking.run_scores s WHERE s.run_id = r.run_id),
			COALESCE((SELECT s.ticker FROM ranking.run_scores s WHERE s.run_id = r.run_id AND s.rank = 1), '')
		FROM ranking.runs r
		ORDER BY r.started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var s RunSummary
		var durationMs int64
		if err := rows.Scan(
			&s.RunID, &s.AccountID, &s.StrategyID, &s.ConfigHash, &s.StartedAt, &durationMs,
			&s.Tickers, &s.TopTicker,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		s.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, s)
	}

	return runs, rows.Err()
}

// GetRun loads a stored run with its rendered entries
func (r *Repository) GetRun(ctx context.Context, runID string) (*pipeline.RunResult, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}

	run := &pipeline.RunResult{RunID: runID}
	var durationMs int64
	var candidatesJSON, breakdownJSON []byte

	err := r.pool.QueryRow(ctx, `
		SELECT account_id, strategy_id, strategy_version, config_hash,
			started_at, finished_at, duration_ms, data_timestamp, candidates, breakdown
		FROM ranking.runs
		WHERE run_id = $1
	`, runID).Scan(
		&run.AccountID, &run.Strategy.ID, &run.Strategy.Version, &run.Strategy.ConfigHash,
		&run.StartedAt, &run.FinishedAt, &durationMs, &run.DataTimestamp, &candidatesJSON, &breakdownJSON,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	run.Duration = time.Duration(durationMs) * time.Millisecond

	if err := json.Unmarshal(candidatesJSON, &run.Candidates); err != nil {
		return nil, fmt.Errorf("failed to unmarshal candidates: %w", err)
	}
	if err := json.Unmarshal(breakdownJSON, &run.Breakdown); err != nil {
		return nil, fmt.Errorf("failed to unmarshal breakdown: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT ticker, entry
		FROM ranking.run_scores
		WHERE run_id = $1
		ORDER BY rank
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get scores: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ticker string
		var entryJSON []byte
		if err := rows.Scan(&ticker, &entryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}

		var entry report.Entry
		if err := json.Unmarshal(entryJSON, &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entry %s: %w", ticker, err)
		}
		run.Entries = append(run.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scores: %w", err)
	}

	// 순위표에는 점수 없는 종목도 0으로 저장되므로 총점은 breakdown에서 다시 합산
	run.Scores = ranking.Sum(run.Breakdown)

	return run, nil
}
