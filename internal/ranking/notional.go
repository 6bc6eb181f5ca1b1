package ranking

import (
	"sort"
)

// NotionalRanker turns raw values into position-based scores
type NotionalRanker interface {
	Rank(values map[Ticker]Notional, direction Direction) Scores
}

// PositionRanker is the default scoring kernel.
//
// Tickers are ordered from least to most desirable and scored
// rank_index / (n-1), so the worst gets 0.0 and the best gets 1.0.
// A lone ticker gets 1.0. Equal values share the mean of the indices
// they span.
type PositionRanker struct{}

type notionalEntry struct {
	ticker   Ticker
	notional Notional
}

// Rank scores every input ticker; the output key set equals the input key set
func (PositionRanker) Rank(values map[Ticker]Notional, direction Direction) Scores {
	scores := make(Scores, len(values))
	if len(values) == 0 {
		return scores
	}
	if len(values) == 1 {
		for ticker := range values {
			scores[ticker] = 1.0
		}
		return scores
	}

	entries := make([]notionalEntry, 0, len(values))
	for ticker, notional := range values {
		entries = append(entries, notionalEntry{ticker: ticker, notional: notional})
	}

	// Least desirable first
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].notional != entries[j].notional {
			if direction == LeastWins {
				return entries[i].notional > entries[j].notional
			}
			return entries[i].notional < entries[j].notional
		}
		return entries[i].ticker < entries[j].ticker
	})

	last := float64(len(entries) - 1)
	for start := 0; start < len(entries); {
		end := start
		for end+1 < len(entries) && entries[end+1].notional == entries[start].notional {
			end++
		}

		// Tie group [start, end] shares the average index
		score := Score((float64(start+end) / 2) / last)
		for i := start; i <= end; i++ {
			scores[entries[i].ticker] = score
		}
		start = end + 1
	}

	return scores
}
