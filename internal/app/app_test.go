package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rovshanmuradov/datatrade/internal/config"
	"github.com/rovshanmuradov/datatrade/internal/events"
	"github.com/rovshanmuradov/datatrade/internal/pipeline"
	"github.com/rovshanmuradov/datatrade/internal/swap"
	"github.com/rovshanmuradov/datatrade/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

// instantConfig removes every simulated delay.
func instantConfig(t *testing.T) *config.Config {
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.ConnectDelay = 0
	cfg.StageDelay = 0
	cfg.GraceDelay = 0
	cfg.SettleDelay = 0
	return cfg
}

func newApp(t *testing.T, cfg *config.Config) *App {
	a, err := New(context.Background(), cfg, Options{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, a.Close(context.Background()))
	})
	return a
}

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestTokenize(t *testing.T) {
	a := newApp(t, instantConfig(t))
	path := writeFile(t, "climate.csv", "year,temp\n2024,15.1\n")

	_, err := a.Tokenize(context.Background(), path, nil)
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	require.NoError(t, a.Connect(context.Background()))
	assert.Equal(t, config.DefaultWalletAddress, a.Session.Address())

	var seen []pipeline.Stage
	asset, err := a.Tokenize(context.Background(), path, func(p pipeline.Progress) {
		seen = append(seen, p.Stage)
		assert.Equal(t, "climate.csv", p.File.Name)
		assert.EqualValues(t, 20, p.File.Size)
	})
	require.NoError(t, err)
	assert.Regexp(t, `^irys_\d+_[0-9a-z]{9}$`, string(asset))

	want := []pipeline.Stage{pipeline.Uploading, pipeline.Tokenizing, pipeline.CreatingPool, pipeline.Completed}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("progress mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenizeRejectsBadFiles(t *testing.T) {
	cfg := instantConfig(t)
	cfg.MaxFileSize = 8
	a := newApp(t, cfg)
	require.NoError(t, a.Connect(context.Background()))

	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(t.TempDir(), "nope.csv")},
		{"empty", writeFile(t, "empty.csv", "")},
		{"too large", writeFile(t, "big.csv", "0123456789")},
		{"directory", t.TempDir()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Tokenize(context.Background(), tt.path, nil)
			assert.ErrorIs(t, err, types.ErrInvalidInput)
		})
	}
}

func TestSwap(t *testing.T) {
	a := newApp(t, instantConfig(t))

	executed := make(chan events.SwapExecutedEvent, 1)
	a.Bus.SubscribeFunc(events.SwapExecuted, func(_ context.Context, e events.Event) error {
		executed <- e.(events.SwapExecutedEvent)
		return nil
	})

	_, _, err := a.Swap(context.Background(), "ETH", "DATA1", decimal.NewFromInt(1), types.DefaultSlippage())
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	require.NoError(t, a.Connect(context.Background()))
	quote, tx, err := a.Swap(context.Background(), "eth", "data1", decimal.NewFromInt(1), types.DefaultSlippage())
	require.NoError(t, err)
	assert.Equal(t, "51.625631", quote.OutputAmount.String())
	assert.Regexp(t, `^trade_\d+_[0-9a-z]{9}$`, string(tx))

	e := <-executed
	assert.Equal(t, string(tx), e.TxID)

	_, _, err = a.Swap(context.Background(), "ETH", "BTC", decimal.NewFromInt(1), types.DefaultSlippage())
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestCatalogFromFileIsWatched(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := writeFile(t, "catalog.yaml", `
tokens:
  - symbol: ETH
    name: Ethereum
    price: "2000"
  - symbol: DATA9
    name: Satellite Imagery
    price: "20"
`)
	cfg := instantConfig(t)
	cfg.CatalogPath = path
	cfg.WatchCatalog = true

	a, err := New(context.Background(), cfg, Options{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)

	reloaded := make(chan events.CatalogReloadedEvent, 4)
	a.Bus.SubscribeFunc(events.CatalogReloaded, func(_ context.Context, e events.Event) error {
		select {
		case reloaded <- e.(events.CatalogReloadedEvent):
		default:
		}
		return nil
	})

	quote, err := a.Quoter.QuoteSymbols("ETH", "DATA9", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, "99.7", quote.OutputAmount.String())

	require.NoError(t, os.WriteFile(path, []byte(`
tokens:
  - symbol: ETH
    price: "4000"
  - symbol: DATA9
    price: "20"
`), 0600))

	select {
	case e := <-reloaded:
		assert.Equal(t, 2, e.Tokens)
		assert.Equal(t, path, e.Path)
	case <-time.After(3 * time.Second):
		t.Fatal("catalog was not reloaded")
	}

	quote, err = a.Quoter.QuoteSymbols("ETH", "DATA9", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, "199.4", quote.OutputAmount.String())

	require.NoError(t, a.Close(context.Background()))
	require.NoError(t, a.Close(context.Background()))
}

func TestNewFailsOnBrokenCatalog(t *testing.T) {
	cfg := instantConfig(t)
	cfg.CatalogPath = writeFile(t, "catalog.yaml", "tokens: []\n")

	_, err := New(context.Background(), cfg, Options{Logger: zaptest.NewLogger(t)})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestTokenizeRejectedCallSeesNoProgress(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	a, err := New(context.Background(), instantConfig(t), Options{
		Logger: zaptest.NewLogger(t),
		Executor: pipeline.ExecutorFunc(func(ctx context.Context, stage pipeline.Stage, _ pipeline.File) error {
			if stage != pipeline.Tokenizing {
				return nil
			}
			entered <- struct{}{}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-release:
				return nil
			}
		}),
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close(context.Background())) })
	require.NoError(t, a.Connect(context.Background()))

	first := writeFile(t, "first.csv", "a,b\n1,2\n")
	second := writeFile(t, "second.csv", "c,d\n3,4\n")

	var seen []pipeline.Stage
	done := make(chan error, 1)
	go func() {
		_, err := a.Tokenize(context.Background(), first, func(p pipeline.Progress) {
			seen = append(seen, p.Stage)
		})
		done <- err
	}()
	<-entered

	var leaked []pipeline.Progress
	_, err = a.Tokenize(context.Background(), second, func(p pipeline.Progress) {
		leaked = append(leaked, p)
	})
	assert.ErrorIs(t, err, types.ErrAlreadyInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.Empty(t, leaked)

	want := []pipeline.Stage{pipeline.Uploading, pipeline.Tokenizing, pipeline.CreatingPool, pipeline.Completed}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("progress mismatch (-want +got):\n%s", diff)
	}
}

func TestRetriesCountAfterFirstAttempt(t *testing.T) {
	cfg := instantConfig(t)
	cfg.Retries = 2

	var attempts int
	a, err := New(context.Background(), cfg, Options{
		Logger: zaptest.NewLogger(t),
		Settler: swap.SettlerFunc(func(context.Context, swap.SwapQuote) (swap.TxID, error) {
			attempts++
			return "", types.Transient(errors.New("relayer busy"))
		}),
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close(context.Background())) })
	require.NoError(t, a.Connect(context.Background()))

	_, _, err = a.Swap(context.Background(), "ETH", "DATA1", decimal.NewFromInt(1), types.DefaultSlippage())
	assert.ErrorIs(t, err, types.ErrSettlementFailed)
	var settleErr *swap.SettlementError
	require.ErrorAs(t, err, &settleErr)
	assert.Equal(t, 3, settleErr.Attempts)
	assert.Equal(t, 3, attempts)
}
