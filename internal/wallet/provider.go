package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/datatrade/internal/types"
	"github.com/shopspring/decimal"
)

// SimulatedProvider stands in for a wallet extension: it waits a fixed delay
// and hands back a configured account.
type SimulatedProvider struct {
	Clock   clock.Clock
	Delay   time.Duration
	Address string // empty: derive a fresh ephemeral address per handshake
	Balance decimal.Decimal
}

// NewSimulatedProvider creates a provider backed by the wall clock.
func NewSimulatedProvider(delay time.Duration, address string, balance decimal.Decimal) *SimulatedProvider {
	return &SimulatedProvider{
		Clock:   clock.New(),
		Delay:   delay,
		Address: address,
		Balance: balance,
	}
}

// Handshake waits for the configured delay or until ctx is done.
func (p *SimulatedProvider) Handshake(ctx context.Context) (types.Account, error) {
	if p.Delay > 0 {
		select {
		case <-ctx.Done():
			return types.Account{}, ctx.Err()
		case <-p.Clock.After(p.Delay):
		}
	}

	address := p.Address
	if address == "" {
		var err error
		address, err = EphemeralAddress()
		if err != nil {
			return types.Account{}, err
		}
	}
	return types.Account{Address: address, Balance: p.Balance}, nil
}

// EphemeralAddress generates a throwaway ed25519 keypair and returns its
// base58 public key. The private key is discarded.
func EphemeralAddress() (string, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return "", fmt.Errorf("failed to generate keypair: %w", err)
	}
	return key.PublicKey().String(), nil
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (types.Account, error)

// Handshake calls f(ctx).
func (f ProviderFunc) Handshake(ctx context.Context) (types.Account, error) {
	return f(ctx)
}
