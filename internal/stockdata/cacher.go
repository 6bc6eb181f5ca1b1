package stockdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wonny/stockrank/pkg/logger"
	"github.com/wonny/stockrank/pkg/metrics"
)

// DefaultMaxAge is how long a downloaded snapshot stays usable
const DefaultMaxAge = 24 * time.Hour

// DownloadTimeout bounds a shared download once it no longer follows any caller's context
const DownloadTimeout = 5 * time.Minute

// Cacher serves StockData from a Store while it is fresh and downloads otherwise
// ⭐ SSOT: 주식 데이터 조회는 Cacher를 통해서만
type Cacher struct {
	source  Source
	store   Store // nil when caching is disabled
	maxAge  time.Duration
	logger  *logger.Logger
	metrics *metrics.Registry
	now     func() time.Time

	downloads singleflight.Group
}

// NewCacher creates a cacher. A nil store disables caching.
func NewCacher(source Source, store Store, maxAge time.Duration, log *logger.Logger, m *metrics.Registry) *Cacher {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Cacher{
		source:  source,
		store:   store,
		maxAge:  maxAge,
		logger:  log.WithComponent("cacher"),
		metrics: m,
		now:     time.Now,
	}
}

// WithClock replaces the clock used for staleness checks
func (c *Cacher) WithClock(now func() time.Time) *Cacher {
	c.now = now
	return c
}

func (c *Cacher) backend() string {
	if c.store == nil {
		return "none"
	}
	return c.store.Name()
}

// Fetch returns stock data for the account. With useCache a fresh cached entry
// is returned as is; in every other case the data is downloaded and the cache
// rewritten.
func (c *Cacher) Fetch(ctx context.Context, accountID string, useCache bool) (*StockData, error) {
	log := c.logger.WithFields(map[string]interface{}{
		"account": accountID,
		"backend": c.backend(),
	})

	switch {
	case !useCache || c.store == nil:
		c.metrics.RecordCache(c.backend(), "bypass")
		log.Info("Downloading stock data")

	default:
		data, err := c.store.Load(ctx, accountID)
		switch {
		case errors.Is(err, ErrCacheMiss):
			c.metrics.RecordCache(c.backend(), "miss")
			log.Info("Stock data not found in cache")
		case err != nil:
			c.metrics.RecordCache(c.backend(), "miss")
			log.WithError(err).Warn("Failed to read cache")
		case data.Age(c.now()) >= c.maxAge:
			c.metrics.RecordCache(c.backend(), "stale")
			log.WithField("timestamp", data.Timestamp).Info("Cache is outdated")
		default:
			c.metrics.RecordCache(c.backend(), "hit")
			log.WithField("timestamp", data.Timestamp).Info("Using cached stock data")
			return data, nil
		}
	}

	// 동시 요청(API 서버, 스케줄러)은 계좌별로 한 번만 다운로드
	// 다운로드는 호출자 취소와 분리, 각 호출자는 자기 ctx로만 대기
	flight := c.downloads.DoChan(accountID, func() (interface{}, error) {
		dlCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DownloadTimeout)
		defer cancel()
		return c.download(dlCtx, accountID, log)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to download stock data: %w", ctx.Err())
	case res := <-flight:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			log.Debug("Joined in-flight download")
		}
		return res.Val.(*StockData), nil
	}
}

// download pulls fresh data and rewrites the cache
func (c *Cacher) download(ctx context.Context, accountID string, log *logger.Logger) (*StockData, error) {
	start := time.Now()
	data, err := c.source.Download(ctx, accountID)
	c.metrics.ObserveStage("download", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to download stock data: %w", err)
	}

	if c.store != nil {
		if err := c.store.Save(ctx, data); err != nil {
			// 캐시 기록 실패는 랭킹을 막지 않음
			log.WithError(err).Warn("Failed to write cache")
		}
	}

	return data, nil
}

// Status reports the cached entry of the account without downloading
func (c *Cacher) Status(ctx context.Context, accountID string) (*Status, error) {
	status := &Status{Backend: c.backend()}
	if c.store == nil {
		return status, nil
	}

	data, err := c.store.Load(ctx, accountID)
	if errors.Is(err, ErrCacheMiss) {
		return status, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}

	status.Present = true
	status.Timestamp = data.Timestamp
	status.Age = data.Age(c.now())
	status.Fresh = status.Age < c.maxAge
	status.Positions = len(data.Portfolio)
	return status, nil
}

// Clear drops the cached entry of the account
func (c *Cacher) Clear(ctx context.Context, accountID string) error {
	if c.store == nil {
		return nil
	}
	if err := c.store.Clear(ctx, accountID); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	c.logger.WithFields(map[string]interface{}{
		"account": accountID,
		"backend": c.backend(),
	}).Info("Cache cleared")
	return nil
}
