package ranking

import (
	"sort"
)

// Ticker is the code name of a stock
// ⭐ SSOT: 종목 식별자는 이 타입만 사용
type Ticker string

// Factor names one scoring dimension.
// The set is open: any name can be carried in Candidates, only bound factors are ranked.
type Factor string

// Known factors produced by the extractor
const (
	PeRatio           Factor = "pe_ratio"            // price over earnings
	DividendYield     Factor = "dividend_yield"      // fraction, 0.03 = 3%
	PriceEma20Change  Factor = "price_ema20_change"  // last price vs 20-bar EMA
	PriceEma200Change Factor = "price_ema200_change" // last price vs 200-bar EMA
	LongTermChange    Factor = "long_term_change"    // change over 5 years
	ShortTermChange   Factor = "short_term_change"   // change over ~1 month
)

// KnownFactors lists the factors the extractor knows how to produce
func KnownFactors() []Factor {
	return []Factor{
		PeRatio,
		DividendYield,
		PriceEma20Change,
		PriceEma200Change,
		LongTermChange,
		ShortTermChange,
	}
}

// Notional is a raw measured value for one (ticker, factor) pair.
// Callers must only hand finite values to the ranking engine.
type Notional float64

// Score is the unit-less output of ranking. Scores from different rankers add up.
type Score float64

// Direction tells the kernel which end of the value range wins
type Direction int

const (
	// GreatestWins ranks larger values as more desirable
	GreatestWins Direction = iota
	// LeastWins ranks smaller values as more desirable
	LeastWins
)

func (d Direction) String() string {
	switch d {
	case GreatestWins:
		return "greatest_wins"
	case LeastWins:
		return "least_wins"
	default:
		return "unknown"
	}
}

// Candidates is the per-ticker, per-factor snapshot for one ranking pass
// ⭐ SSOT: 추출기 → 랭커 데이터 전달. 랭킹 중에는 절대 수정하지 않음
type Candidates map[Ticker]map[Factor]Notional

// Add records a notional for a ticker, replacing any previous value for the same factor
func (c Candidates) Add(ticker Ticker, factor Factor, notional Notional) {
	factors, ok := c[ticker]
	if !ok {
		factors = make(map[Factor]Notional)
		c[ticker] = factors
	}
	factors[factor] = notional
}

// Get returns the notional of a factor for a ticker
func (c Candidates) Get(ticker Ticker, factor Factor) (Notional, bool) {
	factors, ok := c[ticker]
	if !ok {
		return 0, false
	}
	notional, ok := factors[factor]
	return notional, ok
}

// Ensure registers a ticker without any factor so it still shows up in reports
func (c Candidates) Ensure(ticker Ticker) {
	if _, ok := c[ticker]; !ok {
		c[ticker] = make(map[Factor]Notional)
	}
}

// Tickers returns all tickers in ascending order
func (c Candidates) Tickers() []Ticker {
	tickers := make([]Ticker, 0, len(c))
	for ticker := range c {
		tickers = append(tickers, ticker)
	}
	sort.Slice(tickers, func(i, j int) bool { return tickers[i] < tickers[j] })
	return tickers
}

// Scores maps tickers to their score. A missing ticker counts as zero.
type Scores map[Ticker]Score

// Get returns the score of a ticker, zero when absent
func (s Scores) Get(ticker Ticker) Score {
	return s[ticker]
}

// ScoredTicker pairs a ticker with its score
type ScoredTicker struct {
	Ticker Ticker `json:"ticker"`
	Score  Score  `json:"score"`
}

// Sorted returns the scores by descending score, ties broken by ticker
func (s Scores) Sorted() []ScoredTicker {
	sorted := make([]ScoredTicker, 0, len(s))
	for ticker, score := range s {
		sorted = append(sorted, ScoredTicker{Ticker: ticker, Score: score})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].Ticker < sorted[j].Ticker
	})
	return sorted
}
