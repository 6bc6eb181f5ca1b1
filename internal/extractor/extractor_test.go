package extractor

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockrank/internal/external/ibkr"
	"github.com/wonny/stockrank/internal/ranking"
	"github.com/wonny/stockrank/internal/stockdata"
	"github.com/wonny/stockrank/pkg/logger"
)

var now = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

func daysAgo(days int) int64 {
	return now.Add(-time.Duration(days) * day).UnixMilli()
}

// flatBars returns n daily closes at price, oldest first
func flatBars(n int, price float64) []ibkr.Bar {
	bars := make([]ibkr.Bar, n)
	for i := range bars {
		bars[i] = ibkr.Bar{T: daysAgo(n - i), C: price}
	}
	return bars
}

func newExtractor(overrides ranking.Candidates) *Extractor {
	return New(overrides, logger.Nop()).WithClock(func() time.Time { return now })
}

func TestPriceChange(t *testing.T) {
	assert.Equal(t, 1.0, *priceChange(100, 200))
	assert.Equal(t, -0.5, *priceChange(200, 100))
	assert.Nil(t, priceChange(0, 100), "division by zero")
}

func TestLastMonthEntry(t *testing.T) {
	tests := []struct {
		name  string
		bars  []ibkr.Bar
		want  float64
		found bool
	}{
		{"all too old", []ibkr.Bar{{T: daysAgo(300), C: 1}, {T: daysAgo(200), C: 2}, {T: daysAgo(100), C: 3}}, 0, false},
		{"all too recent", []ibkr.Bar{{T: daysAgo(5), C: 1}, {T: daysAgo(4), C: 2}, {T: daysAgo(3), C: 3}}, 0, false},
		{"latest in window wins", []ibkr.Bar{
			{T: daysAgo(100), C: 1}, {T: daysAgo(35), C: 2}, {T: daysAgo(30), C: 3}, {T: daysAgo(10), C: 4},
		}, 3, true},
		{"empty", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, ok := lastMonthEntry(tt.bars, now)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, entry.C)
		})
	}
}

func TestEMA(t *testing.T) {
	_, ok := ema(flatBars(19, 100), 20)
	assert.False(t, ok, "fewer bars than the window")

	v, ok := ema(flatBars(20, 100), 20)
	require.True(t, ok)
	assert.Equal(t, 100.0, v)

	// 시드 10, alpha = 2/3: 10 → 16.666.. → 18.888..
	v, ok = ema([]ibkr.Bar{{C: 10}, {C: 20}, {C: 20}}, 2)
	require.True(t, ok)
	assert.InDelta(t, 18.8889, v, 1e-4)
}

func TestLongTermChange(t *testing.T) {
	old := []ibkr.Bar{{T: daysAgo(6 * 365), C: 50}, {T: daysAgo(30), C: 90}}
	recent := []ibkr.Bar{{T: daysAgo(4 * 365), C: 50}}

	assert.Equal(t, 1.0, *longTermChange(old, 100, now))
	assert.Nil(t, longTermChange(recent, 100, now), "history shorter than five years")
	assert.Nil(t, longTermChange(nil, 100, now))
}

func TestExtract(t *testing.T) {
	daily := flatBars(250, 100)
	daily[len(daily)-30].C = 88 // 30일 전

	data := &stockdata.StockData{
		Portfolio: []ibkr.Position{
			{Conid: 1, Ticker: "AAPL"},
			{Conid: 2, Ticker: "NOSNAP"},
			{Conid: 3, Ticker: "BARE"},
		},
		MarketSnapshot: map[ibkr.ContractID]ibkr.Snapshot{
			1: {Conid: 1, LastPrice: ptr(110), PERatio: ptr(28), DividendYield: ptr(0.005)},
			3: {Conid: 3},
		},
		ShortTermHistory: map[ibkr.ContractID][]ibkr.Bar{
			1: daily,
			2: flatBars(25, 50),
		},
		LongTermHistory: map[ibkr.ContractID][]ibkr.Bar{
			1: {{T: daysAgo(6 * 365), C: 55}},
		},
	}

	candidates := newExtractor(nil).Extract(data)

	require.Len(t, candidates, 3)

	aapl := candidates["AAPL"]
	assert.Equal(t, ranking.Notional(28), aapl[ranking.PeRatio])
	assert.Equal(t, ranking.Notional(0.005), aapl[ranking.DividendYield])
	assert.Equal(t, ranking.Notional(1), aapl[ranking.LongTermChange])
	assert.InDelta(t, 0.25, float64(aapl[ranking.ShortTermChange]), 1e-12)
	assert.Contains(t, aapl, ranking.PriceEma20Change)
	assert.Contains(t, aapl, ranking.PriceEma200Change)

	// 스냅샷 없음: 마지막 종가 사용, 200일 EMA는 데이터 부족
	noSnap := candidates["NOSNAP"]
	assert.Equal(t, ranking.Notional(0), noSnap[ranking.PriceEma20Change])
	assert.NotContains(t, noSnap, ranking.PriceEma200Change)
	assert.NotContains(t, noSnap, ranking.PeRatio)

	assert.Empty(t, candidates["BARE"], "position without data still listed")
}

func TestExtract_Overrides(t *testing.T) {
	overrides := ranking.Candidates{
		"AAPL": {ranking.PeRatio: 15},
		"VWRL": {ranking.PeRatio: 17, ranking.DividendYield: 0.02},
	}
	data := &stockdata.StockData{
		Portfolio: []ibkr.Position{{Conid: 1, Ticker: "AAPL"}},
		MarketSnapshot: map[ibkr.ContractID]ibkr.Snapshot{
			1: {Conid: 1, LastPrice: ptr(110), PERatio: ptr(28), DividendYield: ptr(0.005)},
		},
	}

	candidates := newExtractor(overrides).Extract(data)

	assert.Equal(t, ranking.Notional(15), candidates["AAPL"][ranking.PeRatio], "override wins")
	assert.Equal(t, ranking.Notional(0.005), candidates["AAPL"][ranking.DividendYield])
	assert.Equal(t, ranking.Notional(0.02), candidates["VWRL"][ranking.DividendYield], "override-only ticker")
}

func TestExtract_DropsNonFinite(t *testing.T) {
	data := &stockdata.StockData{
		Portfolio: []ibkr.Position{{Conid: 1, Ticker: "AAPL"}},
		MarketSnapshot: map[ibkr.ContractID]ibkr.Snapshot{
			1: {Conid: 1, PERatio: ptr(math.NaN()), DividendYield: ptr(math.Inf(1))},
		},
	}

	candidates := newExtractor(nil).Extract(data)
	assert.Empty(t, candidates["AAPL"])
}
