package ranking

import (
	"fmt"
	"math"
)

// FactorRanker scores the candidates on a single factor
// ⭐ SSOT: 팩터별 랭킹 인터페이스
type FactorRanker interface {
	// Name identifies the binding, e.g. "positive_least_winning(pe_ratio)"
	Name() string

	// Rank returns scores for the tickers this ranker considers.
	// Tickers it filters out are absent, not zero.
	Rank(candidates Candidates) Scores
}

// Variant tags one (predicate, transform, direction) strategy
type Variant string

const (
	PositiveGreatestWinning Variant = "positive_greatest_winning"
	PositiveLeastWinning    Variant = "positive_least_winning"
	NegativeLeastWinning    Variant = "negative_least_winning"
	Forward                 Variant = "forward"
)

// Variants lists every supported strategy variant
func Variants() []Variant {
	return []Variant{PositiveGreatestWinning, PositiveLeastWinning, NegativeLeastWinning, Forward}
}

// FilterRanker filters one factor, transforms the surviving values and hands them to a kernel
type FilterRanker struct {
	variant   Variant
	factor    Factor
	include   func(Notional) bool
	transform func(Notional) Notional
	direction Direction
	kernel    NotionalRanker
}

func positive(n Notional) bool { return n > 0 }

func negative(n Notional) bool { return n < 0 }

func identity(n Notional) Notional { return n }

func magnitude(n Notional) Notional { return Notional(math.Abs(float64(n))) }

// NewPositiveGreatestWinningRanker keeps positive values; larger wins
func NewPositiveGreatestWinningRanker(factor Factor) *FilterRanker {
	return &FilterRanker{
		variant:   PositiveGreatestWinning,
		factor:    factor,
		include:   positive,
		transform: identity,
		direction: GreatestWins,
		kernel:    PositionRanker{},
	}
}

// NewPositiveLeastWinningRanker keeps positive values; smaller wins (e.g. P/E)
func NewPositiveLeastWinningRanker(factor Factor) *FilterRanker {
	return &FilterRanker{
		variant:   PositiveLeastWinning,
		factor:    factor,
		include:   positive,
		transform: identity,
		direction: LeastWins,
		kernel:    PositionRanker{},
	}
}

// NewNegativeLeastWinningRanker keeps declines; the smallest drop wins
func NewNegativeLeastWinningRanker(factor Factor) *FilterRanker {
	return &FilterRanker{
		variant:   NegativeLeastWinning,
		factor:    factor,
		include:   negative,
		transform: magnitude,
		direction: LeastWins,
		kernel:    PositionRanker{},
	}
}

// NewForwardRanker keeps positive values of any configured factor; larger wins
func NewForwardRanker(factor Factor) *FilterRanker {
	return &FilterRanker{
		variant:   Forward,
		factor:    factor,
		include:   positive,
		transform: identity,
		direction: GreatestWins,
		kernel:    PositionRanker{},
	}
}

// NewFactorRanker builds a ranker from its variant tag
func NewFactorRanker(variant Variant, factor Factor) (*FilterRanker, error) {
	if factor == "" {
		return nil, fmt.Errorf("factor is required for variant %q", variant)
	}

	switch variant {
	case PositiveGreatestWinning:
		return NewPositiveGreatestWinningRanker(factor), nil
	case PositiveLeastWinning:
		return NewPositiveLeastWinningRanker(factor), nil
	case NegativeLeastWinning:
		return NewNegativeLeastWinningRanker(factor), nil
	case Forward:
		return NewForwardRanker(factor), nil
	default:
		return nil, fmt.Errorf("unknown ranker variant %q", variant)
	}
}

// WithKernel swaps the scoring kernel
func (r *FilterRanker) WithKernel(kernel NotionalRanker) *FilterRanker {
	r.kernel = kernel
	return r
}

// Name returns "variant(factor)"
func (r *FilterRanker) Name() string {
	return fmt.Sprintf("%s(%s)", r.variant, r.factor)
}

// Factor returns the bound factor
func (r *FilterRanker) Factor() Factor {
	return r.factor
}

// Variant returns the strategy tag
func (r *FilterRanker) Variant() Variant {
	return r.variant
}

// Direction returns the direction handed to the kernel
func (r *FilterRanker) Direction() Direction {
	return r.direction
}

// Rank filters and transforms the bound factor, then delegates to the kernel
func (r *FilterRanker) Rank(candidates Candidates) Scores {
	return r.kernel.Rank(r.Notionals(candidates), r.direction)
}

// Notionals returns the filtered, transformed values the kernel would see
func (r *FilterRanker) Notionals(candidates Candidates) map[Ticker]Notional {
	notionals := make(map[Ticker]Notional)
	for ticker, factors := range candidates {
		notional, ok := factors[r.factor]
		if !ok || !r.include(notional) {
			continue
		}
		notionals[ticker] = r.transform(notional)
	}
	return notionals
}
