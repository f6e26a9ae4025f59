package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/rovshanmuradov/datatrade/internal/events"
	"github.com/rovshanmuradov/datatrade/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// recorder collects session events in publish order.
type recorder struct {
	mu     sync.Mutex
	events []events.EventType
}

func (r *recorder) PublishSync(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e.Type())
	return nil
}

func (r *recorder) Publish(e events.Event) error {
	return r.PublishSync(context.Background(), e)
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.EventType(nil), r.events...)
}

func instantProvider(address string) Provider {
	return ProviderFunc(func(context.Context) (types.Account, error) {
		return types.Account{Address: address, Balance: decimal.RequireFromString("2.45")}, nil
	})
}

// blockingProvider waits until released or ctx is done.
func blockingProvider(release <-chan struct{}, started chan<- struct{}) Provider {
	return ProviderFunc(func(ctx context.Context) (types.Account, error) {
		if started != nil {
			started <- struct{}{}
		}
		select {
		case <-ctx.Done():
			return types.Account{}, ctx.Err()
		case <-release:
			return types.Account{Address: "0xabc", Balance: decimal.NewFromInt(1)}, nil
		}
	})
}

func newSession(t *testing.T, p Provider, pub events.Publisher) *Session {
	return NewSession(SessionConfig{
		Provider:         p,
		Publisher:        pub,
		HandshakeTimeout: time.Second,
		Logger:           zaptest.NewLogger(t),
	})
}

func TestSession_ConnectAndDisconnect(t *testing.T) {
	rec := &recorder{}
	s := newSession(t, instantProvider("0x742d35Cc6634C0532925a3b8D12C73AA9A7E5"), rec)

	assert.Equal(t, State{}, s.Snapshot())
	assert.ErrorIs(t, s.Require(), types.ErrUnauthorized)

	require.NoError(t, s.Connect(context.Background()))

	st := s.Snapshot()
	assert.True(t, st.Connected)
	assert.False(t, st.Connecting)
	assert.Equal(t, "0x742d35Cc6634C0532925a3b8D12C73AA9A7E5", st.Address)
	require.True(t, st.Balance.Valid)
	assert.Equal(t, "2.45", st.Balance.Decimal.String())
	assert.NoError(t, s.Require())

	s.Disconnect()
	assert.Equal(t, State{}, s.Snapshot())
	assert.False(t, s.Connected())

	s.Disconnect()
	assert.Equal(t, []events.EventType{events.SessionConnected, events.SessionDisconnected}, rec.types())
}

func TestSession_ConnectIsNoopWhileConnectingOrConnected(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	s := newSession(t, blockingProvider(release, started), nil)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Connect(context.Background()) }()
	<-started

	st := s.Snapshot()
	assert.True(t, st.Connecting)
	assert.False(t, st.Connected)
	assert.Empty(t, st.Address)

	// Second call returns immediately without a second handshake.
	require.NoError(t, s.Connect(context.Background()))

	close(release)
	require.NoError(t, <-errCh)
	assert.True(t, s.Connected())

	require.NoError(t, s.Connect(context.Background()))
	assert.Len(t, started, 0)
}

func TestSession_HandshakeFailureLeavesDisconnected(t *testing.T) {
	boom := errors.New("user rejected request")
	s := newSession(t, ProviderFunc(func(context.Context) (types.Account, error) {
		return types.Account{}, boom
	}), nil)

	err := s.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, State{}, s.Snapshot())
}

func TestSession_EmptyAddressRejected(t *testing.T) {
	s := newSession(t, instantProvider(""), nil)
	err := s.Connect(context.Background())
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	assert.False(t, s.Connected())
}

func TestSession_HandshakeTimeout(t *testing.T) {
	s := NewSession(SessionConfig{
		Provider:         blockingProvider(make(chan struct{}), nil),
		HandshakeTimeout: 20 * time.Millisecond,
		Logger:           zaptest.NewLogger(t),
	})

	err := s.Connect(context.Background())
	assert.ErrorIs(t, err, types.ErrTimeout)
	assert.Equal(t, State{}, s.Snapshot())
}

func TestSession_CallerCancel(t *testing.T) {
	s := newSession(t, blockingProvider(make(chan struct{}), nil), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Connect(ctx)
	assert.ErrorIs(t, err, types.ErrCancelled)
	assert.False(t, s.Snapshot().Connecting)
}

func TestSession_DisconnectInterruptsHandshake(t *testing.T) {
	rec := &recorder{}
	started := make(chan struct{}, 1)
	s := newSession(t, blockingProvider(make(chan struct{}), started), rec)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Connect(context.Background()) }()
	<-started

	s.Disconnect()
	err := <-errCh
	assert.ErrorIs(t, err, types.ErrCancelled)
	assert.Equal(t, State{}, s.Snapshot())
	assert.Equal(t, []events.EventType{events.SessionDisconnected}, rec.types())
}

func TestSimulatedProvider_WaitsForClock(t *testing.T) {
	mock := clock.NewMock()
	p := &SimulatedProvider{
		Clock:   mock,
		Delay:   1500 * time.Millisecond,
		Address: "0xfeed",
		Balance: decimal.RequireFromString("2.45"),
	}
	s := newSession(t, p, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Connect(context.Background()) }()

	require.Eventually(t, func() bool {
		mock.Add(100 * time.Millisecond)
		return s.Connected()
	}, 2*time.Second, time.Millisecond)

	require.NoError(t, <-errCh)
	assert.Equal(t, "0xfeed", s.Address())
}

func TestSimulatedProvider_EphemeralAddress(t *testing.T) {
	p := NewSimulatedProvider(0, "", decimal.Zero)

	a, err := p.Handshake(context.Background())
	require.NoError(t, err)
	b, err := p.Handshake(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, a.Address)
	assert.NotEqual(t, a.Address, b.Address)
	assert.GreaterOrEqual(t, len(a.Address), 32)
}

func TestFormatAddress(t *testing.T) {
	assert.Equal(t, "0x742d...A7E5", FormatAddress("0x742d35Cc6634C0532925a3b8D12C73AA9A7E5"))
	assert.Equal(t, "0xabc", FormatAddress("0xabc"))
}
