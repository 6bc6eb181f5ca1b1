package extractor

import (
	"math"
	"time"

	"github.com/wonny/stockrank/internal/external/ibkr"
	"github.com/wonny/stockrank/internal/ranking"
	"github.com/wonny/stockrank/internal/stockdata"
	"github.com/wonny/stockrank/pkg/logger"
)

const (
	day = 24 * time.Hour

	// long_term_change needs history reaching back at least this far
	longTermMinAge = 5 * 365 * day

	// short_term_change compares against the latest bar in this age window
	shortTermMinAge = 30 * day
	shortTermMaxAge = 60 * day

	ema20  = 20
	ema200 = 200
)

// Extractor turns downloaded stock data into ranking candidates
// ⭐ SSOT: 팩터 값 추출은 여기서만
type Extractor struct {
	overrides ranking.Candidates
	logger    *logger.Logger
	now       func() time.Time
}

// New creates an extractor. overrides are manual factor values that win over
// extracted ones and may name tickers outside the portfolio.
func New(overrides ranking.Candidates, log *logger.Logger) *Extractor {
	return &Extractor{
		overrides: overrides,
		logger:    log.WithComponent("extractor"),
		now:       time.Now,
	}
}

// WithClock replaces the clock used for history windows
func (e *Extractor) WithClock(now func() time.Time) *Extractor {
	e.now = now
	return e
}

// Extract builds the candidate set of one report run
func (e *Extractor) Extract(data *stockdata.StockData) ranking.Candidates {
	candidates := make(ranking.Candidates)
	now := e.now()

	for _, position := range data.Portfolio {
		ticker := ranking.Ticker(position.Ticker)
		if ticker == "" {
			continue
		}
		candidates.Ensure(ticker)

		snap, hasSnap := data.MarketSnapshot[position.Conid]
		if hasSnap {
			addFinite(candidates, ticker, ranking.PeRatio, snap.PERatio)
			addFinite(candidates, ticker, ranking.DividendYield, snap.DividendYield)
		}

		short := data.ShortTermHistory[position.Conid]
		last, ok := lastPrice(snap, hasSnap, short)
		if !ok {
			continue
		}

		addFinite(candidates, ticker, ranking.PriceEma20Change, emaChange(short, ema20, last))
		addFinite(candidates, ticker, ranking.PriceEma200Change, emaChange(short, ema200, last))
		addFinite(candidates, ticker, ranking.LongTermChange,
			longTermChange(data.LongTermHistory[position.Conid], last, now))
		addFinite(candidates, ticker, ranking.ShortTermChange, shortTermChange(short, last, now))
	}

	for ticker, factors := range e.overrides {
		candidates.Ensure(ticker)
		for factor, value := range factors {
			candidates.Add(ticker, factor, value)
		}
	}

	e.logger.WithFields(map[string]interface{}{
		"positions":  len(data.Portfolio),
		"candidates": len(candidates),
		"overrides":  len(e.overrides),
	}).Debug("Scoring factors extracted")

	return candidates
}

func addFinite(c ranking.Candidates, ticker ranking.Ticker, factor ranking.Factor, value *float64) {
	if value == nil || math.IsNaN(*value) || math.IsInf(*value, 0) {
		return
	}
	c.Add(ticker, factor, ranking.Notional(*value))
}

// lastPrice prefers the snapshot price and falls back to the latest daily close
func lastPrice(snap ibkr.Snapshot, hasSnap bool, short []ibkr.Bar) (float64, bool) {
	if hasSnap && snap.LastPrice != nil {
		return *snap.LastPrice, true
	}
	if len(short) > 0 {
		return short[len(short)-1].C, true
	}
	return 0, false
}

// priceChange is the relative change from old to new, undefined for a zero old price
func priceChange(oldPrice, newPrice float64) *float64 {
	if oldPrice == 0 {
		return nil
	}
	change := (newPrice - oldPrice) / oldPrice
	return &change
}

// ema is the exponential moving average over bars, seeded with the first close
func ema(bars []ibkr.Bar, n int) (float64, bool) {
	if n <= 0 || len(bars) < n {
		return 0, false
	}
	alpha := 2 / float64(n+1)
	value := bars[0].C
	for _, bar := range bars[1:] {
		value = alpha*bar.C + (1-alpha)*value
	}
	return value, true
}

func emaChange(bars []ibkr.Bar, n int, last float64) *float64 {
	avg, ok := ema(bars, n)
	if !ok {
		return nil
	}
	return priceChange(avg, last)
}

func longTermChange(bars []ibkr.Bar, last float64, now time.Time) *float64 {
	if len(bars) == 0 {
		return nil
	}
	oldest := bars[0]
	if now.Sub(time.UnixMilli(oldest.T)) < longTermMinAge {
		return nil
	}
	return priceChange(oldest.C, last)
}

func shortTermChange(bars []ibkr.Bar, last float64, now time.Time) *float64 {
	entry, ok := lastMonthEntry(bars, now)
	if !ok {
		return nil
	}
	return priceChange(entry.C, last)
}

// lastMonthEntry finds the most recent bar aged between 30 and 60 days
func lastMonthEntry(bars []ibkr.Bar, now time.Time) (ibkr.Bar, bool) {
	for i := len(bars) - 1; i >= 0; i-- {
		age := now.Sub(time.UnixMilli(bars[i].T))
		if age >= shortTermMinAge && age <= shortTermMaxAge {
			return bars[i], true
		}
	}
	return ibkr.Bar{}, false
}
