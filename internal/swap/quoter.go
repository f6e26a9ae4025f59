// internal/swap/quoter.go
package swap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rovshanmuradov/datatrade/internal/catalog"
	"github.com/rovshanmuradov/datatrade/internal/events"
	"github.com/rovshanmuradov/datatrade/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Authorizer gates execution on a connected wallet.
type Authorizer interface {
	Require() error
}

// Config configures a Quoter.
type Config struct {
	Session       Authorizer
	Catalog       *catalog.Catalog
	Settler       Settler
	Publisher     events.Publisher
	SettleTimeout time.Duration
	MaxTries      uint
	RetryInterval time.Duration
	Logger        *zap.Logger
}

// Quoter prices swaps against the catalog and executes them through a Settler.
type Quoter struct {
	session       Authorizer
	catalog       *catalog.Catalog
	settler       Settler
	bus           events.Publisher
	settleTimeout time.Duration
	maxTries      uint
	retryInterval time.Duration
	logger        *zap.Logger
}

// NewQuoter creates a quoter.
func NewQuoter(cfg Config) *Quoter {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cat := cfg.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	timeout := cfg.SettleTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxTries := cfg.MaxTries
	if maxTries == 0 {
		maxTries = 1
	}
	interval := cfg.RetryInterval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Quoter{
		session:       cfg.Session,
		catalog:       cat,
		settler:       cfg.Settler,
		bus:           cfg.Publisher,
		settleTimeout: timeout,
		maxTries:      maxTries,
		retryInterval: interval,
		logger:        logger.Named("swap"),
	}
}

// Catalog returns the catalog quotes are priced against.
func (q *Quoter) Catalog() *catalog.Catalog {
	return q.catalog
}

// Quote prices a swap between two tokens. It never blocks.
func (q *Quoter) Quote(in, out types.Token, amount decimal.Decimal) (SwapQuote, error) {
	return Quote(in, out, amount)
}

// QuoteSymbols resolves both symbols in the current catalog and prices the swap.
func (q *Quoter) QuoteSymbols(inSymbol, outSymbol string, amount decimal.Decimal) (SwapQuote, error) {
	in, out, err := q.resolve(inSymbol, outSymbol)
	if err != nil {
		return SwapQuote{}, err
	}
	return Quote(in, out, amount)
}

func (q *Quoter) resolve(inSymbol, outSymbol string) (types.Token, types.Token, error) {
	snapshot := q.catalog.Snapshot()
	in, ok := snapshot.Lookup(inSymbol)
	if !ok {
		return types.Token{}, types.Token{}, fmt.Errorf("%w: unknown token %q", types.ErrInvalidInput, inSymbol)
	}
	out, ok := snapshot.Lookup(outSymbol)
	if !ok {
		return types.Token{}, types.Token{}, fmt.Errorf("%w: unknown token %q", types.ErrInvalidInput, outSymbol)
	}
	return in, out, nil
}

// Execute settles a swap of amount in for out. Preconditions are checked
// before any asynchronous work; a failed swap leaves nothing behind.
func (q *Quoter) Execute(ctx context.Context, in, out types.Token, amount decimal.Decimal) (TxID, error) {
	if err := q.session.Require(); err != nil {
		return "", err
	}
	if !amount.IsPositive() {
		return "", fmt.Errorf("%w: amount must be positive, got %s", types.ErrInvalidInput, amount)
	}
	quote, err := Quote(in, out, amount)
	if err != nil {
		return "", err
	}
	return q.settle(ctx, quote)
}

// ExecuteQuote re-prices a previously shown quote against the current catalog
// and settles it unless the fresh output falls below what slippage allows.
func (q *Quoter) ExecuteQuote(ctx context.Context, quoted SwapQuote, slippage types.SlippageConfig) (TxID, error) {
	if err := q.session.Require(); err != nil {
		return "", err
	}
	if !quoted.InputAmount.IsPositive() {
		return "", fmt.Errorf("%w: amount must be positive, got %s", types.ErrInvalidInput, quoted.InputAmount)
	}
	// The baseline is re-priced from the quote's own token prices: a flipped
	// quote carries amounts that were never priced in its direction.
	baseline, err := Quote(quoted.InputToken, quoted.OutputToken, quoted.InputAmount)
	if err != nil {
		return "", err
	}
	fresh, err := q.QuoteSymbols(quoted.InputToken.Symbol, quoted.OutputToken.Symbol, quoted.InputAmount)
	if err != nil {
		return "", err
	}

	minimum := types.MinAmountOut(baseline.OutputAmount, slippage)
	if fresh.OutputAmount.LessThan(minimum) {
		err := &SlippageExceededError{Quoted: baseline.OutputAmount, Fresh: fresh.OutputAmount, Minimum: minimum}
		q.logger.Warn("Quote went stale", zap.Error(err))
		return "", err
	}
	return q.settle(ctx, fresh)
}

func (q *Quoter) settle(ctx context.Context, quote SwapQuote) (TxID, error) {
	settleCtx, cancel := context.WithTimeout(ctx, q.settleTimeout)
	defer cancel()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = q.retryInterval
	policy.MaxInterval = q.retryInterval * 10

	attempts := 0
	operation := func() (TxID, error) {
		attempts++
		tx, err := q.settler.Settle(settleCtx, quote)
		if err == nil && tx == "" {
			err = errors.New("settler returned an empty transaction id")
		}
		if err == nil {
			return tx, nil
		}
		if settleCtx.Err() != nil || !types.IsTransient(err) {
			return "", backoff.Permanent(err)
		}
		return "", err
	}

	notify := func(err error, d time.Duration) {
		q.logger.Info("Retrying settlement", zap.Duration("backoff", d), zap.Error(err))
	}

	tx, err := backoff.Retry(settleCtx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(q.maxTries),
		backoff.WithNotify(notify))
	if err != nil {
		err = q.settlementError(ctx, settleCtx, quote, attempts, err)
		q.logger.Warn("Swap failed",
			zap.String("input_token", quote.InputToken.Symbol),
			zap.String("output_token", quote.OutputToken.Symbol),
			zap.String("amount", quote.InputAmount.String()),
			zap.Error(err))
		q.publish(ctx, events.SwapFailedEvent{
			BaseEvent:   events.NewBase(events.SwapFailed),
			InputToken:  quote.InputToken.Symbol,
			OutputToken: quote.OutputToken.Symbol,
			InputAmount: quote.InputAmount.String(),
			Error:       err,
		})
		return "", err
	}

	q.logger.Info("Swap settled",
		zap.String("tx_id", string(tx)),
		zap.String("input_token", quote.InputToken.Symbol),
		zap.String("output_token", quote.OutputToken.Symbol),
		zap.String("input_amount", quote.InputAmount.String()),
		zap.String("output_amount", quote.OutputAmount.StringFixed(AmountPlaces)))
	q.publish(ctx, events.SwapExecutedEvent{
		BaseEvent:    events.NewBase(events.SwapExecuted),
		InputToken:   quote.InputToken.Symbol,
		OutputToken:  quote.OutputToken.Symbol,
		InputAmount:  quote.InputAmount.String(),
		OutputAmount: quote.OutputAmount.StringFixed(AmountPlaces),
		TxID:         string(tx),
	})
	return tx, nil
}

func (q *Quoter) settlementError(parent, step context.Context, quote SwapQuote, attempts int, err error) error {
	classified := types.StepError(parent, step, err)
	if errors.Is(classified, types.ErrTimeout) ||
		errors.Is(classified, types.ErrCancelled) ||
		errors.Is(classified, types.ErrUnauthorized) {
		return classified
	}
	return &SettlementError{
		InputToken:    quote.InputToken.Symbol,
		OutputToken:   quote.OutputToken.Symbol,
		Amount:        quote.InputAmount,
		Attempts:      attempts,
		OriginalError: err,
	}
}

func (q *Quoter) publish(ctx context.Context, event events.Event) {
	if q.bus == nil {
		return
	}
	if err := q.bus.PublishSync(context.WithoutCancel(ctx), event); err != nil {
		q.logger.Warn("Swap event handler failed",
			zap.String("event_type", string(event.Type())),
			zap.Error(err))
	}
}
