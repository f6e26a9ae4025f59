// internal/swap/quote.go
package swap

import (
	"fmt"
	"strings"

	"github.com/rovshanmuradov/datatrade/internal/types"
	"github.com/shopspring/decimal"
)

// AmountPlaces is the precision of quoted amounts and rates.
const AmountPlaces = 6

// FeeRate is the pool fee taken from every swap (0.3%).
var FeeRate = decimal.RequireFromString("0.003")

// SwapQuote is a priced swap. It is a snapshot: later price changes do not
// update it.
type SwapQuote struct {
	InputToken   types.Token
	OutputToken  types.Token
	InputAmount  decimal.Decimal
	OutputAmount decimal.Decimal
	FeeRate      decimal.Decimal
}

// Quote prices amount of in in units of out:
// amount * in.Price / out.Price * (1 - FeeRate), rounded half away from zero.
func Quote(in, out types.Token, amount decimal.Decimal) (SwapQuote, error) {
	if amount.IsNegative() {
		return SwapQuote{}, fmt.Errorf("%w: amount must not be negative, got %s", types.ErrInvalidInput, amount)
	}
	if in.SameAs(out) {
		return SwapQuote{}, fmt.Errorf("%w: cannot swap %s for itself", types.ErrInvalidInput, in.Symbol)
	}
	if err := in.Validate(); err != nil {
		return SwapQuote{}, err
	}
	if err := out.Validate(); err != nil {
		return SwapQuote{}, err
	}

	output := amount.
		Mul(in.Price).
		Mul(decimal.NewFromInt(1).Sub(FeeRate)).
		Div(out.Price).
		Round(AmountPlaces)

	return SwapQuote{
		InputToken:   in,
		OutputToken:  out,
		InputAmount:  amount,
		OutputAmount: output,
		FeeRate:      FeeRate,
	}, nil
}

// Flip swaps the two sides of a quote verbatim. Nothing is re-priced.
func Flip(q SwapQuote) SwapQuote {
	return SwapQuote{
		InputToken:   q.OutputToken,
		OutputToken:  q.InputToken,
		InputAmount:  q.OutputAmount,
		OutputAmount: q.InputAmount,
		FeeRate:      q.FeeRate,
	}
}

// Rate is how many out one unit of in is worth, before fees.
func Rate(in, out types.Token) (decimal.Decimal, error) {
	if err := in.Validate(); err != nil {
		return decimal.Zero, err
	}
	if err := out.Validate(); err != nil {
		return decimal.Zero, err
	}
	return in.Price.Div(out.Price).Round(AmountPlaces), nil
}

// FormatRate renders the rate line of the swap form: "1 ETH = 51.780973 DATA1".
func FormatRate(in, out types.Token) string {
	rate, err := Rate(in, out)
	if err != nil {
		return "-"
	}
	return fmt.Sprintf("1 %s = %s %s", in.Symbol, rate.StringFixed(AmountPlaces), out.Symbol)
}

// ParseAmount reads a user-entered amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: amount is empty", types.ErrInvalidInput)
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", types.ErrInvalidInput, s)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: amount must not be negative, got %s", types.ErrInvalidInput, s)
	}
	return amount, nil
}
