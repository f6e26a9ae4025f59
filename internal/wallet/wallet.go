// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rovshanmuradov/datatrade/internal/events"
	"github.com/rovshanmuradov/datatrade/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Provider negotiates a connection with a wallet. Handshake must honour ctx.
type Provider interface {
	Handshake(ctx context.Context) (types.Account, error)
}

// State is a read-only copy of the session for display.
// Address and Balance are set only while Connected.
type State struct {
	Connected  bool
	Connecting bool
	Address    string
	Balance    decimal.NullDecimal
}

// SessionConfig configures a Session.
type SessionConfig struct {
	Provider         Provider
	Publisher        events.Publisher
	HandshakeTimeout time.Duration
	Logger           *zap.Logger
}

// Session is the single source of truth for wallet connectivity.
type Session struct {
	mu       sync.Mutex
	state    State
	cancel   context.CancelFunc
	attempt  uint64
	provider Provider
	bus      events.Publisher
	timeout  time.Duration
	logger   *zap.Logger
}

// NewSession creates a disconnected session.
func NewSession(cfg SessionConfig) *Session {
	timeout := cfg.HandshakeTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		provider: cfg.Provider,
		bus:      cfg.Publisher,
		timeout:  timeout,
		logger:   logger.Named("wallet"),
	}
}

// Connect performs the wallet handshake. It is a no-op while a connection exists
// or is being established. On failure the session stays disconnected and the
// error is returned.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state.Connected || s.state.Connecting {
		s.mu.Unlock()
		return nil
	}
	hctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	s.state.Connecting = true
	s.cancel = cancel
	s.attempt++
	attempt := s.attempt
	s.mu.Unlock()

	s.logger.Debug("Wallet handshake started", zap.Duration("timeout", s.timeout))
	account, err := s.provider.Handshake(hctx)
	if err == nil && account.Address == "" {
		err = fmt.Errorf("%w: provider returned an empty address", types.ErrInvalidInput)
	}

	s.mu.Lock()
	if s.attempt != attempt {
		// Disconnect ran while we were waiting.
		s.mu.Unlock()
		return fmt.Errorf("%w: handshake interrupted by disconnect", types.ErrCancelled)
	}
	s.cancel = nil
	if err != nil {
		s.state = State{}
		s.mu.Unlock()
		err = types.StepError(ctx, hctx, err)
		s.logger.Warn("Wallet handshake failed", zap.Error(err))
		return fmt.Errorf("wallet handshake failed: %w", err)
	}
	s.state = State{
		Connected: true,
		Address:   account.Address,
		Balance:   decimal.NewNullDecimal(account.Balance),
	}
	s.mu.Unlock()

	s.logger.Info("Wallet connected",
		zap.String("address", account.Address),
		zap.String("balance", account.Balance.String()))
	s.publish(events.SessionConnectedEvent{
		BaseEvent: events.NewBase(events.SessionConnected),
		Address:   account.Address,
		Balance:   account.Balance.String(),
	})
	return nil
}

// Disconnect resets the session to its initial state and interrupts a pending
// handshake. Calling it on a disconnected session does nothing.
func (s *Session) Disconnect() {
	s.mu.Lock()
	prev := s.state
	if !prev.Connected && !prev.Connecting {
		s.mu.Unlock()
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.attempt++
	s.state = State{}
	s.mu.Unlock()

	s.logger.Info("Wallet disconnected", zap.String("address", prev.Address))
	s.publish(events.SessionDisconnectedEvent{
		BaseEvent: events.NewBase(events.SessionDisconnected),
		Address:   prev.Address,
	})
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connected reports whether the session is usable.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Connected
}

// Require fails with ErrUnauthorized unless the session is connected.
func (s *Session) Require() error {
	if !s.Connected() {
		return types.ErrUnauthorized
	}
	return nil
}

// Address returns the connected address, or "" when disconnected.
func (s *Session) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Address
}

// publish runs subscribers synchronously so they observe state changes in order.
func (s *Session) publish(event events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishSync(context.Background(), event); err != nil {
		s.logger.Warn("Session event handler failed",
			zap.String("event_type", string(event.Type())),
			zap.Error(err))
	}
}

// FormatAddress shortens an address for display: 0x742d...A7E5.
func FormatAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
