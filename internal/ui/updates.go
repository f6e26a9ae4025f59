package ui

import (
	"context"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rovshanmuradov/datatrade/internal/events"
	"github.com/rovshanmuradov/datatrade/internal/pipeline"
	"github.com/rovshanmuradov/datatrade/internal/wallet"
	"go.uber.org/zap"
)

// UpdateSender provides non-blocking UI update sending with statistics
type UpdateSender struct {
	msgChan        chan tea.Msg
	droppedUpdates uint64
	sentUpdates    uint64
	logger         *zap.Logger
	statsInterval  time.Duration
	stopStats      chan struct{}
}

// NewUpdateSender creates a new non-blocking update sender
func NewUpdateSender(msgChan chan tea.Msg, logger *zap.Logger) *UpdateSender {
	us := &UpdateSender{
		msgChan:       msgChan,
		logger:        logger,
		statsInterval: 30 * time.Second,
		stopStats:     make(chan struct{}),
	}

	go us.logStats()

	return us
}

// SendUpdate sends a message to UI without blocking
func (us *UpdateSender) SendUpdate(msg tea.Msg) {
	select {
	case us.msgChan <- msg:
		atomic.AddUint64(&us.sentUpdates, 1)
	default:
		// Never stall the publisher on a slow UI.
		atomic.AddUint64(&us.droppedUpdates, 1)
	}
}

// GetStats returns current statistics
func (us *UpdateSender) GetStats() (sent, dropped uint64) {
	sent = atomic.LoadUint64(&us.sentUpdates)
	dropped = atomic.LoadUint64(&us.droppedUpdates)
	return sent, dropped
}

func (us *UpdateSender) logStats() {
	ticker := time.NewTicker(us.statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sent, dropped := us.GetStats()
			if dropped > 0 {
				us.logger.Warn("UI update statistics",
					zap.Uint64("sent", sent),
					zap.Uint64("dropped", dropped),
					zap.Float64("drop_rate", float64(dropped)/float64(sent+dropped)*100))
			}
		case <-us.stopStats:
			return
		}
	}
}

// Close stops the update sender
func (us *UpdateSender) Close() {
	close(us.stopStats)
}

// Bridge forwards bus events to the UI as tea messages. Release the returned
// subscriptions before closing the sender.
func Bridge(bus *events.Bus, session *wallet.Session, sender *UpdateSender) events.Subscriptions {
	forward := func(_ context.Context, e events.Event) error {
		if msg := toMsg(e, session); msg != nil {
			sender.SendUpdate(msg)
		}
		return nil
	}

	var subs events.Subscriptions
	for _, t := range []events.EventType{
		events.SessionConnected,
		events.SessionDisconnected,
		events.PipelineProgress,
		events.PipelineCleared,
		events.CatalogReloaded,
	} {
		subs = append(subs, bus.SubscribeFunc(t, forward))
	}
	return subs
}

func toMsg(e events.Event, session *wallet.Session) tea.Msg {
	switch ev := e.(type) {
	case events.SessionConnectedEvent, events.SessionDisconnectedEvent:
		return SessionMsg{State: session.Snapshot()}
	case events.ProgressEvent:
		stage, _ := pipeline.ParseStage(ev.Stage)
		return ProgressMsg{Progress: pipeline.Progress{
			RunID:   ev.RunID,
			Stage:   stage,
			Percent: ev.Percent,
			Message: ev.Message,
			File:    pipeline.File{Name: ev.FileName, Size: ev.FileSize},
		}}
	case events.RunClearedEvent:
		return RunClearedMsg{RunID: ev.RunID}
	case events.CatalogReloadedEvent:
		return CatalogMsg{Tokens: ev.Tokens}
	default:
		return nil
	}
}
