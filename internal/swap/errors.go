package swap

import (
	"fmt"

	"github.com/rovshanmuradov/datatrade/internal/types"
	"github.com/shopspring/decimal"
)

// SettlementError is returned when the settler rejects a swap.
// It matches types.ErrSettlementFailed and unwraps to the settler's error.
type SettlementError struct {
	InputToken    string
	OutputToken   string
	Amount        decimal.Decimal
	Attempts      int
	OriginalError error
}

func (e *SettlementError) Error() string {
	return fmt.Sprintf("settlement of %s %s -> %s failed after %d attempt(s): %v",
		e.Amount, e.InputToken, e.OutputToken, e.Attempts, e.OriginalError)
}

func (e *SettlementError) Unwrap() error {
	return e.OriginalError
}

func (e *SettlementError) Is(target error) bool {
	return target == types.ErrSettlementFailed
}

// SlippageExceededError reports that prices moved further than the caller tolerates.
type SlippageExceededError struct {
	Quoted  decimal.Decimal
	Fresh   decimal.Decimal
	Minimum decimal.Decimal
}

func (e *SlippageExceededError) Error() string {
	return fmt.Sprintf("slippage exceeded: quoted %s, now %s, minimum accepted %s",
		e.Quoted, e.Fresh, e.Minimum.StringFixed(AmountPlaces))
}

func (e *SlippageExceededError) Is(target error) bool {
	return target == types.ErrSlippageExceeded
}
