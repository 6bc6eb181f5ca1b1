package strategyconfig

import (
	"fmt"
	"sort"

	"github.com/wonny/stockrank/internal/ranking"
)

// Config is the ranking strategy: which factor rankers run and which
// factor values are supplied by hand
// ⭐ SSOT: 랭커 구성과 수동 팩터 값은 이 YAML에서만
type Config struct {
	Meta      Meta                          `yaml:"meta" json:"meta"`
	Rankers   []RankerBinding               `yaml:"rankers" json:"rankers"`
	Overrides map[string]map[string]float64 `yaml:"overrides,omitempty" json:"overrides,omitempty"`
}

// Meta identifies the strategy
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
}

// RankerBinding binds a ranker variant to a factor
type RankerBinding struct {
	Variant string `yaml:"variant" json:"variant"`
	Factor  string `yaml:"factor" json:"factor"`
}

func (b RankerBinding) String() string {
	return fmt.Sprintf("%s(%s)", b.Variant, b.Factor)
}

// Default returns the built-in strategy, equivalent to ranking.DefaultRankers
func Default() *Config {
	return &Config{
		Meta: Meta{StrategyID: "default", Version: "1"},
		Rankers: []RankerBinding{
			{Variant: string(ranking.PositiveGreatestWinning), Factor: string(ranking.DividendYield)},
			{Variant: string(ranking.PositiveLeastWinning), Factor: string(ranking.PeRatio)},
			{Variant: string(ranking.NegativeLeastWinning), Factor: string(ranking.PriceEma20Change)},
			{Variant: string(ranking.PositiveGreatestWinning), Factor: string(ranking.PriceEma200Change)},
		},
	}
}

// BuildRankers turns the bindings into factor rankers, in file order
func (c *Config) BuildRankers() ([]ranking.FactorRanker, error) {
	rankers := make([]ranking.FactorRanker, 0, len(c.Rankers))
	for i, b := range c.Rankers {
		r, err := ranking.NewFactorRanker(ranking.Variant(b.Variant), ranking.Factor(b.Factor))
		if err != nil {
			return nil, fmt.Errorf("rankers[%d]: %w", i, err)
		}
		rankers = append(rankers, r)
	}
	return rankers, nil
}

// OverrideCandidates converts the manual overrides into candidates
func (c *Config) OverrideCandidates() ranking.Candidates {
	candidates := make(ranking.Candidates, len(c.Overrides))
	for ticker, factors := range c.Overrides {
		candidates.Ensure(ranking.Ticker(ticker))
		for factor, value := range factors {
			candidates.Add(ranking.Ticker(ticker), ranking.Factor(factor), ranking.Notional(value))
		}
	}
	return candidates
}

// OverrideTickers returns the overridden tickers in ascending order
func (c *Config) OverrideTickers() []string {
	tickers := make([]string, 0, len(c.Overrides))
	for ticker := range c.Overrides {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)
	return tickers
}
