// internal/events/types.go
package events

import (
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// Wallet session events
	SessionConnected    EventType = "session.connected"
	SessionDisconnected EventType = "session.disconnected"

	// Tokenization pipeline events
	PipelineProgress  EventType = "pipeline.progress"
	PipelineCompleted EventType = "pipeline.completed"
	PipelineFailed    EventType = "pipeline.failed"
	PipelineCleared   EventType = "pipeline.cleared"

	// Swap events
	SwapExecuted EventType = "swap.executed"
	SwapFailed   EventType = "swap.failed"

	// Catalog events
	CatalogReloaded EventType = "catalog.reloaded"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// NewBase stamps an event header with the current time.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// SessionConnectedEvent is emitted once a wallet handshake succeeds.
type SessionConnectedEvent struct {
	BaseEvent
	Address string
	Balance string
}

// SessionDisconnectedEvent is emitted when a connected or connecting session is reset.
type SessionDisconnectedEvent struct {
	BaseEvent
	Address string
}

// ProgressEvent carries one stage transition of a tokenization run.
type ProgressEvent struct {
	BaseEvent
	RunID    string
	Stage    string
	Percent  int
	Message  string
	FileName string
	FileSize int64
}

// RunCompletedEvent is emitted when a run issues its asset identifier.
type RunCompletedEvent struct {
	BaseEvent
	RunID   string
	AssetID string
}

// RunFailedEvent is emitted when a run is aborted, cancelled or fails.
type RunFailedEvent struct {
	BaseEvent
	RunID string
	Stage string
	Error error
}

// RunClearedEvent signals that the pipeline slot is idle again.
type RunClearedEvent struct {
	BaseEvent
	RunID string
}

// SwapExecutedEvent is emitted after a settlement returns a transaction id.
type SwapExecutedEvent struct {
	BaseEvent
	InputToken   string
	OutputToken  string
	InputAmount  string
	OutputAmount string
	TxID         string
}

// SwapFailedEvent is emitted when settlement fails after preconditions passed.
type SwapFailedEvent struct {
	BaseEvent
	InputToken  string
	OutputToken string
	InputAmount string
	Error       error
}

// CatalogReloadedEvent is emitted after the token catalog file is re-read.
type CatalogReloadedEvent struct {
	BaseEvent
	Tokens int
	Path   string
}
