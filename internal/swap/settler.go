package swap

import (
	"context"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/rovshanmuradov/datatrade/internal/types"
)

// TxID identifies a settled swap.
type TxID string

// Settler executes a priced swap. Errors wrapped with types.Transient are retried.
type Settler interface {
	Settle(ctx context.Context, quote SwapQuote) (TxID, error)
}

// SettlerFunc adapts a function to Settler.
type SettlerFunc func(ctx context.Context, quote SwapQuote) (TxID, error)

// Settle calls f(ctx, quote).
func (f SettlerFunc) Settle(ctx context.Context, quote SwapQuote) (TxID, error) {
	return f(ctx, quote)
}

// SimulatedSettler confirms every swap after a fixed delay.
type SimulatedSettler struct {
	Clock clock.Clock
	Delay time.Duration
}

// NewSimulatedSettler creates a settler on the wall clock.
func NewSimulatedSettler(delay time.Duration) *SimulatedSettler {
	return &SimulatedSettler{Clock: clock.New(), Delay: delay}
}

func (s *SimulatedSettler) Settle(ctx context.Context, _ SwapQuote) (TxID, error) {
	if s.Delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-s.Clock.After(s.Delay):
		}
	}
	return TxID(types.NewID("trade", s.Clock.Now())), nil
}
