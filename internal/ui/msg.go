package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rovshanmuradov/datatrade/internal/pipeline"
	"github.com/rovshanmuradov/datatrade/internal/swap"
	"github.com/rovshanmuradov/datatrade/internal/wallet"
)

// Tea message types for UI communication

// SessionMsg carries the wallet state after a change.
type SessionMsg struct {
	State wallet.State
}

// ConnectResultMsg is the outcome of a connect attempt started from the UI.
type ConnectResultMsg struct {
	Err error
}

// ProgressMsg carries one stage transition of the active run.
type ProgressMsg struct {
	Progress pipeline.Progress
}

// RunClearedMsg signals that the pipeline is idle again.
type RunClearedMsg struct {
	RunID string
}

// TokenizeResultMsg is the outcome of a run started from the UI.
type TokenizeResultMsg struct {
	AssetID pipeline.AssetID
	Err     error
}

// SwapResultMsg is the outcome of a swap started from the UI.
type SwapResultMsg struct {
	Quote swap.SwapQuote
	TxID  swap.TxID
	Err   error
}

// CatalogMsg signals that token prices changed.
type CatalogMsg struct {
	Tokens int
}

// ListenBus returns a tea.Cmd that waits for the next bridged message.
func ListenBus(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}
