package pipeline

import (
	"context"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/cenkalti/backoff/v5"
	"github.com/rovshanmuradov/datatrade/internal/types"
	"go.uber.org/zap"
)

// StageExecutor performs the work behind one stage. It must return promptly
// once ctx is done.
type StageExecutor interface {
	Execute(ctx context.Context, stage Stage, file File) error
}

// ExecutorFunc adapts a function to StageExecutor.
type ExecutorFunc func(ctx context.Context, stage Stage, file File) error

// Execute calls f(ctx, stage, file).
func (f ExecutorFunc) Execute(ctx context.Context, stage Stage, file File) error {
	return f(ctx, stage, file)
}

// SimulatedExecutor holds every stage for a fixed delay.
type SimulatedExecutor struct {
	Clock clock.Clock
	Delay time.Duration
}

// NewSimulatedExecutor creates an executor on the wall clock.
func NewSimulatedExecutor(delay time.Duration) *SimulatedExecutor {
	return &SimulatedExecutor{Clock: clock.New(), Delay: delay}
}

// Execute waits for the delay or ctx.
func (e *SimulatedExecutor) Execute(ctx context.Context, _ Stage, _ File) error {
	if e.Delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.Clock.After(e.Delay):
		return nil
	}
}

// RetryingExecutor retries errors marked with types.Transient.
type RetryingExecutor struct {
	Next            StageExecutor
	MaxTries        uint
	InitialInterval time.Duration
	Logger          *zap.Logger
}

// NewRetryingExecutor wraps next with exponential backoff.
func NewRetryingExecutor(next StageExecutor, maxTries uint, logger *zap.Logger) *RetryingExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingExecutor{
		Next:            next,
		MaxTries:        maxTries,
		InitialInterval: 200 * time.Millisecond,
		Logger:          logger.Named("stage_retry"),
	}
}

// Execute runs Next until it succeeds, fails permanently or tries run out.
func (e *RetryingExecutor) Execute(ctx context.Context, stage Stage, file File) error {
	policy := backoff.NewExponentialBackOff()
	if e.InitialInterval > 0 {
		policy.InitialInterval = e.InitialInterval
		policy.MaxInterval = e.InitialInterval * 10
	}

	operation := func() (struct{}, error) {
		err := e.Next.Execute(ctx, stage, file)
		if err == nil {
			return struct{}{}, nil
		}
		if ctx.Err() != nil || !types.IsTransient(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	notify := func(err error, d time.Duration) {
		e.Logger.Info("Retrying stage",
			zap.String("stage", stage.String()),
			zap.Duration("backoff", d),
			zap.Error(err))
	}

	maxTries := e.MaxTries
	if maxTries == 0 {
		maxTries = 1
	}
	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(maxTries),
		backoff.WithNotify(notify))
	return err
}
