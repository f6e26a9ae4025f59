package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rovshanmuradov/datatrade/internal/app"
	"github.com/rovshanmuradov/datatrade/internal/pipeline"
	"github.com/rovshanmuradov/datatrade/internal/swap"
	"github.com/rovshanmuradov/datatrade/internal/types"
	"github.com/rovshanmuradov/datatrade/internal/ui/style"
	"github.com/rovshanmuradov/datatrade/internal/wallet"
)

type field int

const (
	fieldFile field = iota
	fieldAmount
)

// Model is the single-screen dashboard: wallet header, token list,
// upload panel, swap form and the progress overlay.
type Model struct {
	app     *app.App
	ctx     context.Context
	keys    KeyMap
	styles  style.Styles
	updates <-chan tea.Msg

	help        help.Model
	spinner     spinner.Model
	bar         progress.Model
	fileInput   textinput.Model
	amountInput textinput.Model
	focus       field

	session    wallet.State
	connecting bool

	progress pipeline.Progress
	running  bool
	asset    pipeline.AssetID

	tokens   []types.Token
	from, to int
	slippage int
	quote    swap.SwapQuote
	quoteErr error
	swapping bool

	status    string
	statusErr bool
	width     int
}

// NewModel builds the dashboard. updates is the channel a Bridge feeds.
func NewModel(ctx context.Context, a *app.App, updates <-chan tea.Msg) *Model {
	palette := style.DefaultPalette()

	fileInput := textinput.New()
	fileInput.Placeholder = "path/to/dataset.csv"
	fileInput.Prompt = "File: "
	fileInput.Focus()

	amountInput := textinput.New()
	amountInput.Placeholder = "0.0"
	amountInput.Prompt = "Amount: "

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		app:         a,
		ctx:         ctx,
		keys:        DefaultKeyMap(),
		styles:      style.NewStyles(palette),
		updates:     updates,
		help:        help.New(),
		spinner:     sp,
		bar:         progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		fileInput:   fileInput,
		amountInput: amountInput,
		session:     a.Session.Snapshot(),
		tokens:      a.Catalog.Snapshot().Tokens(),
		slippage:    defaultSlippageIndex(),
	}
	if len(m.tokens) > 1 {
		m.to = 1
	}
	return m
}

func defaultSlippageIndex() int {
	def := types.DefaultSlippage().Value
	for i, p := range types.SlippagePresets {
		if p.Equal(def) {
			return i
		}
	}
	return 0
}

// Init starts the cursor, the spinner and the bus listener.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, ListenBus(m.updates))
}

// Update handles key presses, bridged bus events and command results.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = clamp(msg.Width-20, 20, 60)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SessionMsg:
		m.session = msg.State
		return m, ListenBus(m.updates)

	case ProgressMsg:
		m.running = true
		m.progress = msg.Progress
		return m, ListenBus(m.updates)

	case RunClearedMsg:
		m.running = false
		m.progress = pipeline.Progress{}
		return m, ListenBus(m.updates)

	case CatalogMsg:
		m.reloadTokens()
		return m, ListenBus(m.updates)

	case ConnectResultMsg:
		m.connecting = false
		m.session = m.app.Session.Snapshot()
		if msg.Err != nil {
			m.setError(msg.Err)
		} else {
			m.setStatus("Wallet connected")
		}
		return m, nil

	case TokenizeResultMsg:
		if msg.Err != nil {
			m.setError(msg.Err)
			return m, nil
		}
		m.asset = msg.AssetID
		m.setStatus("Issued " + string(msg.AssetID))
		m.fileInput.Reset()
		return m, nil

	case SwapResultMsg:
		m.swapping = false
		if msg.Err != nil {
			m.setError(msg.Err)
			return m, nil
		}
		m.setStatus("Swapped " + msg.Quote.InputAmount.String() + " " + msg.Quote.InputToken.Symbol +
			" for " + msg.Quote.OutputAmount.StringFixed(swap.AmountPlaces) + " " + msg.Quote.OutputToken.Symbol +
			" (" + string(msg.TxID) + ")")
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Connect):
		if m.session.Connected || m.connecting {
			return m, nil
		}
		m.connecting = true
		m.session.Connecting = true
		return m, m.connectCmd()

	case key.Matches(msg, m.keys.Disconnect):
		m.app.Session.Disconnect()
		m.session = m.app.Session.Snapshot()
		return m, nil

	case key.Matches(msg, m.keys.NextField):
		m.toggleFocus()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		if m.focus == fieldFile {
			return m, m.tokenizeCmd()
		}
		return m, m.swapCmd()

	case key.Matches(msg, m.keys.NextInput):
		m.from = m.nextToken(m.from, m.to)
		m.requote()
		return m, nil

	case key.Matches(msg, m.keys.NextOutput):
		m.to = m.nextToken(m.to, m.from)
		m.requote()
		return m, nil

	case key.Matches(msg, m.keys.Flip):
		m.flip()
		return m, nil

	case key.Matches(msg, m.keys.Slippage):
		m.slippage = (m.slippage + 1) % len(types.SlippagePresets)
		return m, nil
	}

	var cmd tea.Cmd
	if m.focus == fieldFile {
		m.fileInput, cmd = m.fileInput.Update(msg)
		return m, cmd
	}
	before := m.amountInput.Value()
	m.amountInput, cmd = m.amountInput.Update(msg)
	if m.amountInput.Value() != before {
		m.requote()
	}
	return m, cmd
}

func (m *Model) toggleFocus() {
	if m.focus == fieldFile {
		m.focus = fieldAmount
		m.fileInput.Blur()
		m.amountInput.Focus()
		return
	}
	m.focus = fieldFile
	m.amountInput.Blur()
	m.fileInput.Focus()
}

// nextToken advances i, skipping the index held by the other side of the form.
func (m *Model) nextToken(i, other int) int {
	n := len(m.tokens)
	if n < 2 {
		return i
	}
	next := (i + 1) % n
	if next == other {
		next = (next + 1) % n
	}
	return next
}

func (m *Model) requote() {
	m.quote = swap.SwapQuote{}
	m.quoteErr = nil
	if strings.TrimSpace(m.amountInput.Value()) == "" || len(m.tokens) < 2 {
		return
	}
	amount, err := swap.ParseAmount(m.amountInput.Value())
	if err != nil {
		m.quoteErr = err
		return
	}
	m.quote, m.quoteErr = m.app.Quoter.Quote(m.tokens[m.from], m.tokens[m.to], amount)
}

// flip exchanges both sides of the form, amounts included, without re-pricing.
func (m *Model) flip() {
	m.from, m.to = m.to, m.from
	if m.hasQuote() {
		m.quote = swap.Flip(m.quote)
		m.amountInput.SetValue(m.quote.InputAmount.String())
		return
	}
	m.requote()
}

func (m *Model) hasQuote() bool {
	return m.quoteErr == nil && m.quote.InputToken.Symbol != ""
}

func (m *Model) reloadTokens() {
	from, to := m.tokens[m.from].Symbol, m.tokens[m.to].Symbol
	m.tokens = m.app.Catalog.Snapshot().Tokens()
	m.from, m.to = 0, 0
	for i, t := range m.tokens {
		if strings.EqualFold(t.Symbol, from) {
			m.from = i
		}
		if strings.EqualFold(t.Symbol, to) {
			m.to = i
		}
	}
	if m.from == m.to {
		m.to = m.nextToken(m.to, m.from)
	}
	m.requote()
}

func (m *Model) slippageConfig() types.SlippageConfig {
	return types.SlippageConfig{Type: types.SlippagePercent, Value: types.SlippagePresets[m.slippage]}
}

func (m *Model) connectCmd() tea.Cmd {
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		return ConnectResultMsg{Err: a.Connect(ctx)}
	}
}

func (m *Model) tokenizeCmd() tea.Cmd {
	path := strings.TrimSpace(m.fileInput.Value())
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		asset, err := a.Tokenize(ctx, path, nil)
		return TokenizeResultMsg{AssetID: asset, Err: err}
	}
}

func (m *Model) swapCmd() tea.Cmd {
	if m.swapping {
		return nil
	}
	if !m.hasQuote() {
		if m.quoteErr != nil {
			m.setError(m.quoteErr)
		}
		return nil
	}
	m.swapping = true
	quote, slippage := m.quote, m.slippageConfig()
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		tx, err := a.Quoter.ExecuteQuote(ctx, quote, slippage)
		return SwapResultMsg{Quote: quote, TxID: tx, Err: err}
	}
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(err error) {
	m.status = err.Error()
	m.statusErr = true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
