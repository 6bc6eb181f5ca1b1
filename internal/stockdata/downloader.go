package stockdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/stockrank/internal/external/ibkr"
	"github.com/wonny/stockrank/pkg/logger"
)

// Broker is the subset of the IBKR client used for downloading
type Broker interface {
	Positions(ctx context.Context, accountID string) ([]ibkr.Position, error)
	Snapshot(ctx context.Context, conids []ibkr.ContractID) (map[ibkr.ContractID]ibkr.Snapshot, error)
	History(ctx context.Context, conid ibkr.ContractID, period, bar string) ([]ibkr.Bar, error)
}

// Source produces fresh stock data for an account
type Source interface {
	Download(ctx context.Context, accountID string) (*StockData, error)
}

// Downloader pulls positions, snapshots and price history from the broker
type Downloader struct {
	broker      Broker
	logger      *logger.Logger
	concurrency int
	now         func() time.Time
}

// NewDownloader creates a new downloader
func NewDownloader(broker Broker, log *logger.Logger) *Downloader {
	return &Downloader{
		broker:      broker,
		logger:      log.WithComponent("downloader"),
		concurrency: 4,
		now:         time.Now,
	}
}

// Download fetches a complete StockData for the account
func (d *Downloader) Download(ctx context.Context, accountID string) (*StockData, error) {
	positions, err := d.broker.Positions(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("download positions: %w", err)
	}

	conids := make([]ibkr.ContractID, 0, len(positions))
	seen := make(map[ibkr.ContractID]bool, len(positions))
	for _, p := range positions {
		if !seen[p.Conid] {
			seen[p.Conid] = true
			conids = append(conids, p.Conid)
		}
	}

	snapshot, err := d.broker.Snapshot(ctx, conids)
	if err != nil {
		return nil, fmt.Errorf("download market snapshot: %w", err)
	}

	data := &StockData{
		AccountID:        accountID,
		Timestamp:        d.now().UTC(),
		Portfolio:        positions,
		MarketSnapshot:   snapshot,
		ShortTermHistory: make(map[ibkr.ContractID][]ibkr.Bar, len(conids)),
		LongTermHistory:  make(map[ibkr.ContractID][]ibkr.Bar, len(conids)),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	for _, conid := range conids {
		conid := conid
		g.Go(func() error {
			short, err := d.broker.History(gctx, conid, ShortTermPeriod, ShortTermBar)
			if err != nil {
				return fmt.Errorf("download short-term history: %w", err)
			}
			long, err := d.broker.History(gctx, conid, LongTermPeriod, LongTermBar)
			if err != nil {
				return fmt.Errorf("download long-term history: %w", err)
			}

			mu.Lock()
			data.ShortTermHistory[conid] = short
			data.LongTermHistory[conid] = long
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	d.logger.WithFields(map[string]interface{}{
		"account":   accountID,
		"positions": len(positions),
		"contracts": len(conids),
	}).Info("Stock data downloaded")

	return data, nil
}
