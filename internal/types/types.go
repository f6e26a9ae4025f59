// internal/types/types.go
package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Token is a catalog entry that can be quoted and swapped.
type Token struct {
	Symbol    string
	Name      string
	Price     decimal.Decimal
	Change24h decimal.Decimal
}

// Validate checks that the token can take part in a quote.
func (t Token) Validate() error {
	if strings.TrimSpace(t.Symbol) == "" {
		return fmt.Errorf("%w: token symbol is empty", ErrInvalidInput)
	}
	if !t.Price.IsPositive() {
		return fmt.Errorf("%w: token %s has non-positive reference price %s", ErrInvalidInput, t.Symbol, t.Price)
	}
	return nil
}

// SameAs reports whether both tokens refer to the same asset.
func (t Token) SameAs(other Token) bool {
	return strings.EqualFold(t.Symbol, other.Symbol)
}

func (t Token) String() string {
	return t.Symbol
}

// Account is what a wallet provider hands back after a successful handshake.
type Account struct {
	Address string
	Balance decimal.Decimal
}
