package strategyconfig

import (
	"fmt"
	"math"

	"github.com/wonny/stockrank/internal/ranking"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}

	// === Rankers ===
	seen := make(map[RankerBinding]bool, len(cfg.Rankers))
	for i, b := range cfg.Rankers {
		field := fmt.Sprintf("rankers[%d]", i)
		if b.Factor == "" {
			return ValidationError{field + ".factor", "required"}
		}
		if !isKnownVariant(b.Variant) {
			return ValidationError{field + ".variant", fmt.Sprintf("unknown variant %q", b.Variant)}
		}
		if seen[b] {
			return ValidationError{field, fmt.Sprintf("duplicate binding %s", b)}
		}
		seen[b] = true
	}

	// === Overrides ===
	for ticker, factors := range cfg.Overrides {
		if ticker == "" {
			return ValidationError{"overrides", "ticker must not be empty"}
		}
		for factor, value := range factors {
			field := fmt.Sprintf("overrides.%s.%s", ticker, factor)
			if factor == "" {
				return ValidationError{fmt.Sprintf("overrides.%s", ticker), "factor must not be empty"}
			}
			if math.IsNaN(value) || math.IsInf(value, 0) {
				return ValidationError{field, "must be finite"}
			}
		}
	}

	return nil
}

// Check returns recommendations that do not block loading
func Check(cfg *Config) []Warning {
	var warnings []Warning

	if len(cfg.Rankers) == 0 {
		warnings = append(warnings, Warning{
			Code:    "NO_RANKERS",
			Message: "no rankers bound, every ticker scores 0",
		})
	}

	known := make(map[ranking.Factor]bool)
	for _, f := range ranking.KnownFactors() {
		known[f] = true
	}
	for _, factors := range cfg.Overrides {
		for factor := range factors {
			known[ranking.Factor(factor)] = true
		}
	}

	for _, b := range cfg.Rankers {
		if !known[ranking.Factor(b.Factor)] {
			warnings = append(warnings, Warning{
				Code:    "UNSOURCED_FACTOR",
				Message: fmt.Sprintf("%s: factor is neither extracted nor overridden", b),
			})
		}
	}

	return warnings
}

func isKnownVariant(v string) bool {
	for _, known := range ranking.Variants() {
		if string(known) == v {
			return true
		}
	}
	return false
}
