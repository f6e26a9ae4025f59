// internal/types/slippage.go
package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SlippageType определяет тип политики проскальзывания
type SlippageType string

const (
	// SlippageFixed использует фиксированное значение minAmountOut
	SlippageFixed SlippageType = "fixed"
	// SlippagePercent использует процент от ожидаемого выхода
	SlippagePercent SlippageType = "percent"
	// SlippageNone не использует ограничение minAmountOut
	SlippageNone SlippageType = "none"
)

// SlippagePresets are the tolerances offered by the swap form, in percent.
var SlippagePresets = []decimal.Decimal{
	decimal.RequireFromString("0.1"),
	decimal.RequireFromString("0.5"),
	decimal.RequireFromString("1.0"),
}

// SlippageConfig конфигурирует политику проскальзывания
type SlippageConfig struct {
	// Type определяет тип политики проскальзывания
	Type SlippageType `json:"type"`
	// Value содержит значение для выбранной политики:
	// - для SlippageFixed: точное значение minAmountOut
	// - для SlippagePercent: процент допустимого проскальзывания (например, 1.0 = 1%)
	// - для SlippageNone: игнорируется
	Value decimal.Decimal `json:"value"`
}

// DefaultSlippage is the 0.5% tolerance preselected in the swap form.
func DefaultSlippage() SlippageConfig {
	return SlippageConfig{Type: SlippagePercent, Value: SlippagePresets[1]}
}

// PercentSlippage builds a percent tolerance, rejecting values outside [0, 100].
func PercentSlippage(percent decimal.Decimal) (SlippageConfig, error) {
	if percent.IsNegative() || percent.GreaterThan(decimal.NewFromInt(100)) {
		return SlippageConfig{}, fmt.Errorf("%w: slippage must be between 0 and 100, got %s", ErrInvalidInput, percent)
	}
	return SlippageConfig{Type: SlippagePercent, Value: percent}, nil
}

// MinAmountOut вычисляет minAmountOut на основе политики проскальзывания
func MinAmountOut(expected decimal.Decimal, config SlippageConfig) decimal.Decimal {
	switch config.Type {
	case SlippageFixed:
		return config.Value
	case SlippagePercent:
		// 1% проскальзывания => минимум 99% от ожидаемого
		multiplier := decimal.NewFromInt(1).Sub(config.Value.Div(decimal.NewFromInt(100)))
		return expected.Mul(multiplier)
	default:
		return decimal.Zero
	}
}
