package types

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinAmountOut(t *testing.T) {
	expected := decimal.RequireFromString("200")

	tests := []struct {
		name   string
		config SlippageConfig
		want   string
	}{
		{"percent 0.5", SlippageConfig{Type: SlippagePercent, Value: decimal.RequireFromString("0.5")}, "199"},
		{"percent 1", SlippageConfig{Type: SlippagePercent, Value: decimal.RequireFromString("1")}, "198"},
		{"fixed", SlippageConfig{Type: SlippageFixed, Value: decimal.RequireFromString("150")}, "150"},
		{"none", SlippageConfig{Type: SlippageNone}, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MinAmountOut(expected, tt.config)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s, want %s", got, tt.want)
		})
	}
}

func TestPercentSlippage(t *testing.T) {
	cfg, err := PercentSlippage(decimal.RequireFromString("1.0"))
	require.NoError(t, err)
	assert.Equal(t, SlippagePercent, cfg.Type)

	_, err = PercentSlippage(decimal.RequireFromString("-0.1"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = PercentSlippage(decimal.RequireFromString("100.5"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.True(t, DefaultSlippage().Value.Equal(decimal.RequireFromString("0.5")))
}

func TestTokenValidate(t *testing.T) {
	ok := Token{Symbol: "ETH", Price: decimal.RequireFromString("2340.50")}
	assert.NoError(t, ok.Validate())

	assert.ErrorIs(t, Token{Symbol: "", Price: decimal.NewFromInt(1)}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, Token{Symbol: "X", Price: decimal.Zero}.Validate(), ErrInvalidInput)

	assert.True(t, ok.SameAs(Token{Symbol: "eth"}))
}

func TestStepError(t *testing.T) {
	boom := errors.New("boom")

	t.Run("plain failure passes through", func(t *testing.T) {
		assert.Equal(t, boom, StepError(context.Background(), context.Background(), boom))
	})

	t.Run("step deadline is a timeout", func(t *testing.T) {
		step, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
		defer cancel()
		<-step.Done()
		err := StepError(context.Background(), step, step.Err())
		assert.ErrorIs(t, err, ErrTimeout)
	})

	t.Run("parent cancel is a cancellation", func(t *testing.T) {
		parent, cancel := context.WithCancel(context.Background())
		cancel()
		err := StepError(parent, parent, parent.Err())
		assert.ErrorIs(t, err, ErrCancelled)
		assert.NotErrorIs(t, err, ErrTimeout)
	})

	t.Run("parent cause wins", func(t *testing.T) {
		parent, cancel := context.WithCancelCause(context.Background())
		cancel(fmt.Errorf("%w: gone", ErrUnauthorized))
		err := StepError(parent, parent, parent.Err())
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestTransient(t *testing.T) {
	base := errors.New("rpc hiccup")
	wrapped := fmt.Errorf("settle: %w", Transient(base))

	assert.True(t, IsTransient(wrapped))
	assert.ErrorIs(t, wrapped, base)
	assert.False(t, IsTransient(base))
	assert.Nil(t, Transient(nil))
}

func TestNewID(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	id := NewID("irys", now)

	parts := strings.Split(id, "_")
	require.Len(t, parts, 3)
	assert.Equal(t, "irys", parts[0])
	assert.Equal(t, "1700000000123", parts[1])
	assert.Regexp(t, `^[0-9a-z]{9}$`, parts[2])

	assert.NotEqual(t, id, NewID("irys", now))
}
