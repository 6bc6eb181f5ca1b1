package ranking

import (
	"golang.org/x/sync/errgroup"

	"github.com/wonny/stockrank/pkg/logger"
)

// StockRanker sums the scores of every configured factor ranker
// ⭐ SSOT: 종합 점수 계산은 여기서만 (가중치 없음, 합산만)
type StockRanker struct {
	rankers  []FactorRanker
	parallel bool
	logger   *logger.Logger
}

// RankerScores is the output of one factor ranker
type RankerScores struct {
	Name   string `json:"name"`
	Scores Scores `json:"scores"`
}

// NewStockRanker creates an aggregator over an ordered list of rankers
func NewStockRanker(log *logger.Logger, rankers ...FactorRanker) *StockRanker {
	if log == nil {
		log = logger.Nop()
	}
	return &StockRanker{
		rankers: rankers,
		logger:  log,
	}
}

// DefaultRankers returns the bindings used when no strategy file overrides them
func DefaultRankers() []FactorRanker {
	return []FactorRanker{
		NewPositiveGreatestWinningRanker(DividendYield),
		NewPositiveLeastWinningRanker(PeRatio),
		NewNegativeLeastWinningRanker(PriceEma20Change),
		NewPositiveGreatestWinningRanker(PriceEma200Change),
	}
}

// WithParallel fans the rankers out over goroutines.
// The result is identical to the sequential run.
func (r *StockRanker) WithParallel(parallel bool) *StockRanker {
	r.parallel = parallel
	return r
}

// Rankers returns the configured rankers in order
func (r *StockRanker) Rankers() []FactorRanker {
	return r.rankers
}

// Rank computes the composite score of every ticker scored by at least one ranker
func (r *StockRanker) Rank(candidates Candidates) Scores {
	total := Sum(r.Breakdown(candidates))

	r.logger.WithFields(map[string]interface{}{
		"candidates": len(candidates),
		"rankers":    len(r.rankers),
		"scored":     len(total),
	}).Debug("Ranking completed")

	return total
}

// Breakdown runs every ranker against the same candidates and returns their outputs in ranker order
func (r *StockRanker) Breakdown(candidates Candidates) []RankerScores {
	results := make([]RankerScores, len(r.rankers))

	if r.parallel && len(r.rankers) > 1 {
		var g errgroup.Group
		for i, ranker := range r.rankers {
			i, ranker := i, ranker
			g.Go(func() error {
				results[i] = RankerScores{Name: ranker.Name(), Scores: ranker.Rank(candidates)}
				return nil
			})
		}
		_ = g.Wait() // rankers never fail
	} else {
		for i, ranker := range r.rankers {
			results[i] = RankerScores{Name: ranker.Name(), Scores: ranker.Rank(candidates)}
		}
	}

	for _, result := range results {
		r.logger.WithFields(map[string]interface{}{
			"ranker": result.Name,
			"scored": len(result.Scores),
		}).Debug("Factor ranked")
	}

	return results
}

// Sum adds up ranker outputs in the given order
func Sum(results []RankerScores) Scores {
	total := make(Scores)
	for _, result := range results {
		for ticker, score := range result.Scores {
			total[ticker] += score
		}
	}
	return total
}
