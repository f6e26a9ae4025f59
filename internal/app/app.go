// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/andres-erbsen/clock"
	"github.com/rovshanmuradov/datatrade/internal/catalog"
	"github.com/rovshanmuradov/datatrade/internal/config"
	"github.com/rovshanmuradov/datatrade/internal/events"
	"github.com/rovshanmuradov/datatrade/internal/pipeline"
	"github.com/rovshanmuradov/datatrade/internal/swap"
	"github.com/rovshanmuradov/datatrade/internal/types"
	"github.com/rovshanmuradov/datatrade/internal/wallet"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const busBufferSize = 256

// Options overrides the collaborators New would otherwise build.
type Options struct {
	Logger   *zap.Logger
	Clock    clock.Clock
	Provider wallet.Provider
	Executor pipeline.StageExecutor
	Settler  swap.Settler
}

// App wires the wallet session, tokenization pipeline and swap quoter
// around one event bus.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Bus      *events.Bus
	Catalog  *catalog.Catalog
	Session  *wallet.Session
	Pipeline *pipeline.Pipeline
	Quoter   *swap.Quoter

	shutdown *shutdownList
}

// New builds the application. When the config enables it, the catalog file is
// watched until Close.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		shutdown: newShutdownList(logger.Named("shutdown")),
	}

	a.Bus = events.NewBus(logger, busBufferSize)
	a.shutdown.Add("event_bus", a.Bus.Shutdown)

	if err := a.loadCatalog(ctx); err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}

	provider := opts.Provider
	if provider == nil {
		provider = &wallet.SimulatedProvider{
			Clock:   clk,
			Delay:   cfg.ConnectDelayDuration(),
			Address: cfg.WalletAddress,
			Balance: cfg.Balance(),
		}
	}
	a.Session = wallet.NewSession(wallet.SessionConfig{
		Provider:         provider,
		Publisher:        a.Bus,
		HandshakeTimeout: cfg.HandshakeTimeoutDuration(),
		Logger:           logger,
	})
	a.shutdown.Add("wallet", func(context.Context) error {
		a.Session.Disconnect()
		return nil
	})

	executor := opts.Executor
	if executor == nil {
		executor = &pipeline.SimulatedExecutor{Clock: clk, Delay: cfg.StageDelayDuration()}
	}
	a.Pipeline = pipeline.New(pipeline.Config{
		Session:      a.Session,
		Executor:     pipeline.NewRetryingExecutor(executor, cfg.MaxTries(), logger),
		Bus:          a.Bus,
		Clock:        clk,
		MaxFileSize:  cfg.MaxFileSize,
		StageTimeout: cfg.StageTimeoutDuration(),
		GraceDelay:   cfg.GraceDelayDuration(),
		Logger:       logger,
	})
	a.shutdown.Add("pipeline", func(context.Context) error {
		a.Pipeline.Close()
		return nil
	})

	settler := opts.Settler
	if settler == nil {
		settler = &swap.SimulatedSettler{Clock: clk, Delay: cfg.SettleDelayDuration()}
	}
	a.Quoter = swap.NewQuoter(swap.Config{
		Session:       a.Session,
		Catalog:       a.Catalog,
		Settler:       settler,
		Publisher:     a.Bus,
		SettleTimeout: cfg.SettleTimeoutDuration(),
		MaxTries:      cfg.MaxTries(),
		Logger:        logger,
	})

	logger.Info("Application initialized",
		zap.Int("tokens", a.Catalog.Snapshot().Len()),
		zap.String("catalog", a.Catalog.Path()))
	return a, nil
}

func (a *App) loadCatalog(ctx context.Context) error {
	if a.Config.CatalogPath == "" {
		a.Catalog = catalog.Default()
		return nil
	}

	cat, err := catalog.LoadFile(a.Config.CatalogPath)
	if err != nil {
		return err
	}
	a.Catalog = cat

	if !a.Config.WatchCatalog {
		return nil
	}
	watchCtx, cancel := context.WithCancel(ctx)
	w, err := cat.Watch(watchCtx, a.Bus, a.Logger)
	if err != nil {
		cancel()
		return err
	}
	a.shutdown.Add("catalog_watcher", func(ctx context.Context) error {
		cancel()
		select {
		case <-waitFor(w.Wait):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	return nil
}

func waitFor(fn func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	return done
}

// Connect opens the wallet session.
func (a *App) Connect(ctx context.Context) error {
	return a.Session.Connect(ctx)
}

// Tokenize runs the pipeline on a file from disk. onProgress, if set, is
// called for every stage transition of this call's run, in order, from a
// separate goroutine.
func (a *App) Tokenize(ctx context.Context, path string, onProgress func(pipeline.Progress)) (pipeline.AssetID, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrInvalidInput, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", types.ErrInvalidInput, path)
	}

	file := pipeline.File{Name: filepath.Base(path), Size: info.Size(), Source: f}

	// Only this call's run is observed, so a rejected call sees no progress.
	progress := make(chan pipeline.Progress, len(pipeline.Stages))

	var asset pipeline.AssetID
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(progress)
		var err error
		asset, err = a.Pipeline.RunObserved(gctx, file, func(p pipeline.Progress) {
			progress <- p
		})
		return err
	})
	g.Go(func() error {
		for p := range progress {
			if onProgress != nil {
				onProgress(p)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return "", err
	}
	return asset, nil
}

// Swap quotes amount of from in units of to and settles it within the
// slippage tolerance.
func (a *App) Swap(ctx context.Context, from, to string, amount decimal.Decimal, slippage types.SlippageConfig) (swap.SwapQuote, swap.TxID, error) {
	quote, err := a.Quoter.QuoteSymbols(from, to, amount)
	if err != nil {
		return swap.SwapQuote{}, "", err
	}
	tx, err := a.Quoter.ExecuteQuote(ctx, quote, slippage)
	if err != nil {
		return quote, "", err
	}
	return quote, tx, nil
}

// Close shuts services down in reverse order of construction.
func (a *App) Close(ctx context.Context) error {
	err := a.shutdown.Shutdown(ctx)
	a.Logger.Info("Application stopped")
	return err
}
