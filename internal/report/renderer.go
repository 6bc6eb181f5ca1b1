package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/wonny/stockrank/internal/ranking"
)

// None is shown for a factor the ticker has no value for
const None = "None"

var hundred = decimal.NewFromInt(100)

// Entry is one rendered report row
type Entry struct {
	Ticker        string `json:"ticker"`
	Score         string `json:"score"`
	PERatio       string `json:"pe_ratio"`
	DividendYield string `json:"dividend_yield"`
	PEMA20        string `json:"pema_20"`
	PEMA200       string `json:"pema_200"`
	LongTerm      string `json:"long_term"`
	ShortTerm     string `json:"short_term"`
}

// Columns is the header of tabular output, in Entry field order
var Columns = []string{"Ticker", "Score", "P/E", "Div Yield", "P/EMA20", "P/EMA200", "5Y", "1M"}

// Values returns the row in Columns order
func (e Entry) Values() []string {
	return []string{e.Ticker, e.Score, e.PERatio, e.DividendYield, e.PEMA20, e.PEMA200, e.LongTerm, e.ShortTerm}
}

// Renderer formats ranked candidates for display
type Renderer struct {
	places int32
}

// NewRenderer creates a renderer with two decimal places
func NewRenderer() *Renderer {
	return &Renderer{places: 2}
}

// Render returns one entry per candidate, best score first.
// A ticker without a score counts as 0, equal scores are ordered by ticker.
func (r *Renderer) Render(candidates ranking.Candidates, scores ranking.Scores) []Entry {
	tickers := candidates.Tickers()
	sort.SliceStable(tickers, func(i, j int) bool {
		return scores.Get(tickers[i]) > scores.Get(tickers[j])
	})

	entries := make([]Entry, 0, len(tickers))
	for _, ticker := range tickers {
		entries = append(entries, r.renderEntry(ticker, candidates[ticker], scores.Get(ticker)))
	}
	return entries
}

func (r *Renderer) renderEntry(ticker ranking.Ticker, factors map[ranking.Factor]ranking.Notional, score ranking.Score) Entry {
	return Entry{
		Ticker:        string(ticker),
		Score:         r.renderFloat(decimal.NewFromFloat(float64(score)).Mul(hundred)),
		PERatio:       r.renderFactor(factors, ranking.PeRatio, false),
		DividendYield: r.renderFactor(factors, ranking.DividendYield, true),
		PEMA20:        r.renderFactor(factors, ranking.PriceEma20Change, true),
		PEMA200:       r.renderFactor(factors, ranking.PriceEma200Change, true),
		LongTerm:      r.renderFactor(factors, ranking.LongTermChange, true),
		ShortTerm:     r.renderFactor(factors, ranking.ShortTermChange, true),
	}
}

func (r *Renderer) renderFactor(factors map[ranking.Factor]ranking.Notional, factor ranking.Factor, percentage bool) string {
	v, ok := factors[factor]
	if !ok {
		return None
	}
	d := decimal.NewFromFloat(float64(v))
	if percentage {
		return r.renderFloat(d.Mul(hundred)) + "%"
	}
	return r.renderFloat(d)
}

func (r *Renderer) renderFloat(d decimal.Decimal) string {
	return d.StringFixed(r.places)
}
