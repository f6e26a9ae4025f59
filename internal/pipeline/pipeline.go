// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/google/uuid"
	"github.com/rovshanmuradov/datatrade/internal/events"
	"github.com/rovshanmuradov/datatrade/internal/types"
	"go.uber.org/zap"
)

var errDisconnected = fmt.Errorf("%w: wallet disconnected during run", types.ErrUnauthorized)

// Authorizer gates runs on a connected wallet.
type Authorizer interface {
	Require() error
}

// Bus is the part of the event bus the pipeline uses.
type Bus interface {
	events.Publisher
	Subscribe(eventType events.EventType, handler events.Handler) events.Subscription
}

// Config configures a Pipeline.
type Config struct {
	Session      Authorizer
	Executor     StageExecutor
	Bus          Bus
	Clock        clock.Clock
	MaxFileSize  int64
	StageTimeout time.Duration
	GraceDelay   time.Duration
	Logger       *zap.Logger
}

type run struct {
	id       string
	progress Progress
	cancel   context.CancelCauseFunc
	issued   bool
}

// Pipeline drives at most one tokenization run at a time.
type Pipeline struct {
	mu     sync.Mutex
	active *run

	session      Authorizer
	executor     StageExecutor
	bus          Bus
	clock        clock.Clock
	maxFileSize  int64
	stageTimeout time.Duration
	grace        time.Duration
	logger       *zap.Logger

	sub       events.Subscription
	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    chan struct{}
}

// New creates an idle pipeline. When a bus is given the pipeline aborts the
// active run as soon as the wallet session disconnects.
func New(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	stageTimeout := cfg.StageTimeout
	if stageTimeout <= 0 {
		stageTimeout = 30 * time.Second
	}

	p := &Pipeline{
		session:      cfg.Session,
		executor:     cfg.Executor,
		bus:          cfg.Bus,
		clock:        clk,
		maxFileSize:  cfg.MaxFileSize,
		stageTimeout: stageTimeout,
		grace:        cfg.GraceDelay,
		logger:       logger.Named("pipeline"),
		closed:       make(chan struct{}),
	}
	if p.bus != nil {
		p.sub = p.bus.Subscribe(events.SessionDisconnected, events.HandlerFunc(p.onDisconnect))
	}
	return p
}

// Run tokenizes file. Preconditions are checked before any progress is emitted.
func (p *Pipeline) Run(ctx context.Context, file File) (AssetID, error) {
	return p.RunObserved(ctx, file, nil)
}

// RunObserved is Run with observe called for each of this run's stage
// transitions, in order, on the calling goroutine. A rejected run observes nothing.
func (p *Pipeline) RunObserved(ctx context.Context, file File, observe func(Progress)) (AssetID, error) {
	if err := p.session.Require(); err != nil {
		return "", err
	}
	if strings.TrimSpace(file.Name) == "" {
		return "", fmt.Errorf("%w: file name is empty", types.ErrInvalidInput)
	}
	if file.Size <= 0 {
		return "", fmt.Errorf("%w: file %s is empty", types.ErrInvalidInput, file.Name)
	}
	if p.maxFileSize > 0 && file.Size > p.maxFileSize {
		return "", fmt.Errorf("%w: file %s is %d bytes, limit is %d",
			types.ErrInvalidInput, file.Name, file.Size, p.maxFileSize)
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	r := &run{
		id:       uuid.New().String(),
		progress: Progress{Stage: Idle, File: File{Name: file.Name, Size: file.Size}},
		cancel:   cancel,
	}

	p.mu.Lock()
	if p.active != nil {
		p.mu.Unlock()
		return "", types.ErrAlreadyInProgress
	}
	p.active = r
	r.progress.RunID = r.id
	p.mu.Unlock()

	// The session may have dropped between the first check and taking the slot.
	if err := p.session.Require(); err != nil {
		p.discard(r)
		return "", err
	}

	logger := p.logger.With(zap.String("run_id", r.id), zap.String("file", file.Name))
	logger.Info("Tokenization started", zap.Int64("size", file.Size))

	for _, info := range Stages {
		if runCtx.Err() != nil {
			return "", p.fail(ctx, r, info.Stage, types.StepError(runCtx, nil, runCtx.Err()))
		}
		progress := p.advance(ctx, r, info)
		if observe != nil {
			observe(progress)
		}
		logger.Info("Stage started",
			zap.String("stage", info.Stage.String()),
			zap.Int("percent", info.Percent))

		stepCtx, stepCancel := context.WithTimeout(runCtx, p.stageTimeout)
		err := p.executor.Execute(stepCtx, info.Stage, file)
		if err == nil && stepCtx.Err() != nil && runCtx.Err() != nil {
			err = runCtx.Err()
		}
		if err != nil {
			err = classify(runCtx, stepCtx, err)
		}
		stepCancel()
		if err != nil {
			return "", p.fail(ctx, r, info.Stage, err)
		}
	}
	// A disconnect during the Completed hold still aborts; once issued it cannot.
	p.mu.Lock()
	r.issued = runCtx.Err() == nil
	p.mu.Unlock()
	if !r.issued {
		return "", p.fail(ctx, r, Completed, types.StepError(runCtx, nil, runCtx.Err()))
	}

	asset := AssetID(types.NewID("irys", p.clock.Now()))
	logger.Info("Asset issued", zap.String("asset_id", string(asset)))
	p.publish(ctx, events.RunCompletedEvent{
		BaseEvent: events.NewBase(events.PipelineCompleted),
		RunID:     r.id,
		AssetID:   string(asset),
	})
	p.scheduleClear(r)
	return asset, nil
}

// classify maps a stage failure onto the shared error kinds.
func classify(runCtx, stepCtx context.Context, err error) error {
	classified := types.StepError(runCtx, stepCtx, err)
	switch {
	case errors.Is(classified, types.ErrUnauthorized),
		errors.Is(classified, types.ErrTimeout),
		errors.Is(classified, types.ErrCancelled):
		return classified
	default:
		return fmt.Errorf("%w: %w", types.ErrSettlementFailed, err)
	}
}

func (p *Pipeline) advance(ctx context.Context, r *run, info StageInfo) Progress {
	p.mu.Lock()
	r.progress.Stage = info.Stage
	r.progress.Percent = info.Percent
	r.progress.Message = info.Message
	snapshot := r.progress
	p.mu.Unlock()

	p.publish(ctx, events.ProgressEvent{
		BaseEvent: events.NewBase(events.PipelineProgress),
		RunID:     r.id,
		Stage:     info.Stage.String(),
		Percent:   info.Percent,
		Message:   info.Message,
		FileName:  snapshot.File.Name,
		FileSize:  snapshot.File.Size,
	})
	return snapshot
}

func (p *Pipeline) fail(ctx context.Context, r *run, stage Stage, err error) error {
	p.discard(r)
	p.logger.Warn("Tokenization failed",
		zap.String("run_id", r.id),
		zap.String("stage", stage.String()),
		zap.Error(err))
	p.publish(ctx, events.RunFailedEvent{
		BaseEvent: events.NewBase(events.PipelineFailed),
		RunID:     r.id,
		Stage:     stage.String(),
		Error:     err,
	})
	p.publish(ctx, events.RunClearedEvent{
		BaseEvent: events.NewBase(events.PipelineCleared),
		RunID:     r.id,
	})
	return err
}

// discard frees the slot if r still holds it.
func (p *Pipeline) discard(r *run) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active != r {
		return false
	}
	p.active = nil
	return true
}

// scheduleClear keeps the completed run visible for the grace delay.
func (p *Pipeline) scheduleClear(r *run) {
	if p.grace <= 0 {
		p.clear(r)
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		select {
		case <-p.clock.After(p.grace):
		case <-p.closed:
		}
		p.clear(r)
	}()
}

func (p *Pipeline) clear(r *run) {
	if !p.discard(r) {
		return
	}
	p.logger.Debug("Pipeline idle", zap.String("run_id", r.id))
	p.publish(context.Background(), events.RunClearedEvent{
		BaseEvent: events.NewBase(events.PipelineCleared),
		RunID:     r.id,
	})
}

func (p *Pipeline) onDisconnect(_ context.Context, _ events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	r := p.active
	if r == nil || r.issued {
		// Nothing running, or the asset is out and the grace timer clears it.
		return nil
	}
	p.logger.Info("Aborting run after wallet disconnect", zap.String("run_id", r.id))
	r.cancel(errDisconnected)
	return nil
}

// Snapshot returns the active run's progress. ok is false when idle.
func (p *Pipeline) Snapshot() (Progress, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return Progress{Stage: Idle}, false
	}
	return p.active.progress, true
}

// Subscribe registers fn for every progress transition, in order. Without a
// bus nothing is delivered and the returned subscription is a no-op.
func (p *Pipeline) Subscribe(fn func(Progress)) events.Subscription {
	if p.bus == nil {
		return events.NopSubscription()
	}
	return p.bus.Subscribe(events.PipelineProgress, events.HandlerFunc(func(_ context.Context, e events.Event) error {
		pe, ok := e.(events.ProgressEvent)
		if !ok {
			return nil
		}
		stage, _ := ParseStage(pe.Stage)
		fn(Progress{
			RunID:   pe.RunID,
			Stage:   stage,
			Percent: pe.Percent,
			Message: pe.Message,
			File:    File{Name: pe.FileName, Size: pe.FileSize},
		})
		return nil
	}))
}

// Close stops the grace timer, clears a completed run and detaches from the bus.
// A run still in flight is cancelled.
func (p *Pipeline) Close() {
	p.closeOnce.Do(func() {
		close(p.closed)
		if p.sub != nil {
			p.sub.Unsubscribe()
		}
		p.mu.Lock()
		r := p.active
		p.mu.Unlock()
		if r != nil {
			r.cancel(types.ErrCancelled)
		}
	})
	p.wg.Wait()
}

func (p *Pipeline) publish(ctx context.Context, event events.Event) {
	if p.bus == nil {
		return
	}
	if err := p.bus.PublishSync(context.WithoutCancel(ctx), event); err != nil {
		p.logger.Warn("Pipeline event handler failed",
			zap.String("event_type", string(event.Type())),
			zap.Error(err))
	}
}
