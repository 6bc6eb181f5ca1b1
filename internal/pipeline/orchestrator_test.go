package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockrank/internal/ranking"
	"github.com/wonny/stockrank/internal/report"
	"github.com/wonny/stockrank/internal/stockdata"
	"github.com/wonny/stockrank/pkg/logger"
	"github.com/wonny/stockrank/pkg/metrics"
)

var dataTime = time.Date(2026, 3, 2, 21, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	err      error
	useCache bool
	calls    int
}

func (f *fakeFetcher) Fetch(_ context.Context, accountID string, useCache bool) (*stockdata.StockData, error) {
	f.calls++
	f.useCache = useCache
	if f.err != nil {
		return nil, f.err
	}
	return &stockdata.StockData{AccountID: accountID, Timestamp: dataTime}, nil
}

type fakeExtractor struct {
	candidates ranking.Candidates
}

func (e *fakeExtractor) Extract(_ *stockdata.StockData) ranking.Candidates {
	return e.candidates
}

type fakeRecorder struct {
	runs []*RunResult
	err  error
}

func (r *fakeRecorder) SaveRun(_ context.Context, run *RunResult) error {
	if r.err != nil {
		return r.err
	}
	r.runs = append(r.runs, run)
	return nil
}

func sampleCandidates() ranking.Candidates {
	return ranking.Candidates{
		"KO":   {ranking.DividendYield: 0.031, ranking.PeRatio: 24},
		"MSFT": {ranking.DividendYield: 0.008, ranking.PeRatio: 35},
		"VZ":   {ranking.DividendYield: 0.065, ranking.PeRatio: 9},
	}
}

func newTestOrchestrator(fetcher Fetcher) (*Orchestrator, *metrics.Registry) {
	m := metrics.New()
	o := NewOrchestrator(
		fetcher,
		&fakeExtractor{candidates: sampleCandidates()},
		ranking.NewStockRanker(logger.Nop(), ranking.DefaultRankers()...),
		report.NewRenderer(),
		Strategy{ID: "default", Version: "1", ConfigHash: "abc"},
		logger.Nop(),
		m,
	)
	return o, m
}

func TestRun(t *testing.T) {
	fetcher := &fakeFetcher{}
	o, m := newTestOrchestrator(fetcher)

	result, err := o.Run(context.Background(), RunConfig{AccountID: "U1", UseCache: true})
	require.NoError(t, err)

	_, err = uuid.Parse(result.RunID)
	assert.NoError(t, err)
	assert.True(t, fetcher.useCache)
	assert.Equal(t, "U1", result.AccountID)
	assert.Equal(t, "default", result.Strategy.ID)
	assert.True(t, dataTime.Equal(result.DataTimestamp))
	assert.Len(t, result.Breakdown, 4)
	assert.Equal(t, ranking.Sum(result.Breakdown), result.Scores)

	// VZ: 배당 1위, PER 1위
	require.Len(t, result.Entries, 3)
	assert.Equal(t, "VZ", result.Entries[0].Ticker)
	assert.Equal(t, "200.00", result.Entries[0].Score)
	assert.Equal(t, "MSFT", result.Entries[2].Ticker)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RankingRuns.WithLabelValues("success")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RankedTickers))
}

func TestRun_AccountRequired(t *testing.T) {
	fetcher := &fakeFetcher{}
	o, _ := newTestOrchestrator(fetcher)

	_, err := o.Run(context.Background(), RunConfig{})
	assert.ErrorIs(t, err, ErrAccountRequired)
	assert.Zero(t, fetcher.calls)
}

func TestRun_FetchError(t *testing.T) {
	o, m := newTestOrchestrator(&fakeFetcher{err: errors.New("gateway down")})

	_, err := o.Run(context.Background(), RunConfig{AccountID: "U1"})
	assert.ErrorContains(t, err, "gateway down")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RankingRuns.WithLabelValues("failure")))
}

func TestRun_Save(t *testing.T) {
	recorder := &fakeRecorder{}
	o, _ := newTestOrchestrator(&fakeFetcher{})
	o.WithRecorder(recorder)
	assert.True(t, o.HasRecorder())

	_, err := o.Run(context.Background(), RunConfig{AccountID: "U1"})
	require.NoError(t, err)
	assert.Empty(t, recorder.runs, "not saved unless asked")

	result, err := o.Run(context.Background(), RunConfig{AccountID: "U1", Save: true})
	require.NoError(t, err)
	require.Len(t, recorder.runs, 1)
	assert.Equal(t, result.RunID, recorder.runs[0].RunID)

	recorder.err = errors.New("db down")
	_, err = o.Run(context.Background(), RunConfig{AccountID: "U1", Save: true})
	assert.ErrorContains(t, err, "db down")
}

func TestRun_SaveWithoutRecorder(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeFetcher{})
	assert.False(t, o.HasRecorder())

	_, err := o.Run(context.Background(), RunConfig{AccountID: "U1", Save: true})
	assert.NoError(t, err)
}
