package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/stockrank/internal/stockdata"
)

// Fetcher downloads stock data
type Fetcher interface {
	Fetch(ctx context.Context, accountID string, useCache bool) (*stockdata.StockData, error)
}

// CacheWarmJob refreshes the stock data cache so interactive reports hit it
type CacheWarmJob struct {
	fetcher   Fetcher
	accountID string
	schedule  string
}

// NewCacheWarmJob creates a new cache warm-up job
func NewCacheWarmJob(fetcher Fetcher, accountID, schedule string) *CacheWarmJob {
	return &CacheWarmJob{fetcher: fetcher, accountID: accountID, schedule: schedule}
}

// Name returns the job name
func (j *CacheWarmJob) Name() string {
	return "cache_warm"
}

// Schedule returns the cron schedule
func (j *CacheWarmJob) Schedule() string {
	return j.schedule
}

// Run forces a download, which rewrites the cache
func (j *CacheWarmJob) Run(ctx context.Context) error {
	if _, err := j.fetcher.Fetch(ctx, j.accountID, false); err != nil {
		return fmt.Errorf("cache warm-up: %w", err)
	}
	return nil
}
