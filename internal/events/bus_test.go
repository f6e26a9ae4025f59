package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	bus := NewBus(zaptest.NewLogger(t), 16)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = bus.Shutdown(ctx)
	})
	return bus
}

func progress(stage string, percent int) ProgressEvent {
	return ProgressEvent{BaseEvent: NewBase(PipelineProgress), Stage: stage, Percent: percent}
}

func TestBus_PublishSyncOrdered(t *testing.T) {
	bus := newTestBus(t)

	var got []string
	bus.SubscribeFunc(PipelineProgress, func(_ context.Context, e Event) error {
		got = append(got, "first:"+e.(ProgressEvent).Stage)
		return nil
	})
	bus.SubscribeFunc(PipelineProgress, func(_ context.Context, e Event) error {
		got = append(got, "second:"+e.(ProgressEvent).Stage)
		return nil
	})

	require.NoError(t, bus.PublishSync(context.Background(), progress("uploading", 25)))
	require.NoError(t, bus.PublishSync(context.Background(), progress("tokenizing", 60)))

	assert.Equal(t, []string{
		"first:uploading", "second:uploading",
		"first:tokenizing", "second:tokenizing",
	}, got)
}

func TestBus_PublishSyncCollectsErrors(t *testing.T) {
	bus := newTestBus(t)
	boom := errors.New("boom")

	called := 0
	bus.SubscribeFunc(SwapFailed, func(context.Context, Event) error { return boom })
	bus.SubscribeFunc(SwapFailed, func(context.Context, Event) error { panic("bad handler") })
	bus.SubscribeFunc(SwapFailed, func(context.Context, Event) error { called++; return nil })

	err := bus.PublishSync(context.Background(), SwapFailedEvent{BaseEvent: NewBase(SwapFailed)})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, called, "later handlers still run")
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := newTestBus(t)

	calls := 0
	sub := bus.SubscribeFunc(CatalogReloaded, func(context.Context, Event) error { calls++; return nil })
	require.NoError(t, bus.PublishSync(context.Background(), CatalogReloadedEvent{BaseEvent: NewBase(CatalogReloaded)}))

	sub.Unsubscribe()
	sub.Unsubscribe()
	require.NoError(t, bus.PublishSync(context.Background(), CatalogReloadedEvent{BaseEvent: NewBase(CatalogReloaded)}))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, bus.Stats()["event_types"])
}

func TestBus_PublishAsync(t *testing.T) {
	bus := newTestBus(t)

	var mu sync.Mutex
	var received []EventType
	bus.SubscribeFunc(SwapExecuted, func(_ context.Context, e Event) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, e.Type())
		return nil
	})

	require.NoError(t, bus.Publish(SwapExecutedEvent{BaseEvent: NewBase(SwapExecuted), TxID: "trade_1"}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestBus_ShutdownStopsWorker(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := NewBus(zaptest.NewLogger(t), 4)
	delivered := make(chan struct{}, 1)
	bus.SubscribeFunc(PipelineCleared, func(context.Context, Event) error {
		delivered <- struct{}{}
		return nil
	})
	require.NoError(t, bus.Publish(RunClearedEvent{BaseEvent: NewBase(PipelineCleared)}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Shutdown(ctx))

	select {
	case <-delivered:
	default:
		t.Fatal("queued event was not drained on shutdown")
	}

	assert.Error(t, bus.Publish(RunClearedEvent{BaseEvent: NewBase(PipelineCleared)}))
}
