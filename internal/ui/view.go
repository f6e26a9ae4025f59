package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/rovshanmuradov/datatrade/internal/swap"
	"github.com/rovshanmuradov/datatrade/internal/types"
	"github.com/rovshanmuradov/datatrade/internal/wallet"
)

// View renders the dashboard, or the progress overlay while a run is active.
func (m *Model) View() string {
	if m.running {
		return lipgloss.JoinVertical(lipgloss.Left, m.headerView(), m.overlayView())
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.tokensView(),
		lipgloss.JoinVertical(lipgloss.Left, m.uploadView(), m.swapView()),
	)
	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerView(),
		body,
		m.statusView(),
		m.styles.Help.Render(m.help.ShortHelpView(m.keys.ShortHelp())),
	)
}

func (m *Model) headerView() string {
	title := m.styles.Title.Render("DataTrade")

	var account string
	switch {
	case m.session.Connected:
		balance := "-"
		if m.session.Balance.Valid {
			balance = m.session.Balance.Decimal.String()
		}
		account = m.styles.Connected.Render("● ") +
			m.styles.Wallet.Render(fmt.Sprintf("%s  %s ETH", wallet.FormatAddress(m.session.Address), balance))
	case m.session.Connecting:
		account = m.spinner.View() + m.styles.Offline.Render(" Connecting...")
	default:
		account = m.styles.Offline.Render("○ Connect Wallet")
	}

	return m.styles.Header.Render(title + "   " + account)
}

func (m *Model) tokensView() string {
	var b strings.Builder
	b.WriteString(m.styles.PanelTitle.Render("Data Tokens"))
	b.WriteString("\n")
	for _, t := range m.tokens {
		change := t.Change24h.StringFixed(1) + "%"
		changeStyle := m.styles.Up
		if t.Change24h.IsNegative() {
			changeStyle = m.styles.Down
		} else {
			change = "+" + change
		}
		fmt.Fprintf(&b, "%-6s %-18s %s %s\n",
			t.Symbol,
			t.Name,
			m.styles.Value.Render("$"+t.Price.StringFixed(2)),
			changeStyle.Render(change))
	}
	return m.styles.Panel.Render(strings.TrimRight(b.String(), "\n"))
}

func (m *Model) uploadView() string {
	panel := m.styles.Panel
	if m.focus == fieldFile {
		panel = m.styles.FocusPanel
	}
	lines := []string{
		m.styles.PanelTitle.Render("Upload Dataset"),
		m.fileInput.View(),
	}
	if m.asset != "" {
		lines = append(lines, m.styles.Label.Render("Last asset: ")+m.styles.Value.Render(string(m.asset)))
	}
	if !m.session.Connected {
		lines = append(lines, m.styles.Muted.Render("Connect a wallet to tokenize data"))
	}
	return panel.Render(strings.Join(lines, "\n"))
}

func (m *Model) swapView() string {
	panel := m.styles.Panel
	if m.focus == fieldAmount {
		panel = m.styles.FocusPanel
	}
	if len(m.tokens) < 2 {
		return panel.Render(m.styles.Muted.Render("Not enough tokens to swap"))
	}

	in, out := m.tokens[m.from], m.tokens[m.to]
	lines := []string{
		m.styles.PanelTitle.Render("Swap"),
		m.styles.Label.Render("From: ") + m.styles.Value.Render(in.Symbol),
		m.amountInput.View(),
		m.styles.Label.Render("To:   ") + m.styles.Value.Render(out.Symbol),
	}

	switch {
	case m.quoteErr != nil:
		lines = append(lines, m.styles.Error.Render(m.quoteErr.Error()))
	case m.hasQuote():
		minimum := types.MinAmountOut(m.quote.OutputAmount, m.slippageConfig())
		lines = append(lines,
			m.styles.Label.Render("You receive: ")+m.styles.Value.Render(m.quote.OutputAmount.StringFixed(swap.AmountPlaces)+" "+out.Symbol),
			m.styles.Label.Render("Minimum:     ")+m.styles.Value.Render(minimum.StringFixed(swap.AmountPlaces)),
		)
	}

	lines = append(lines,
		m.styles.Label.Render("Rate: ")+m.styles.Value.Render(swap.FormatRate(in, out)),
		m.styles.Label.Render("Fee: ")+m.styles.Value.Render(swap.FeeRate.Shift(2).String()+"%"),
		m.styles.Label.Render("Slippage: ")+m.styles.Value.Render(types.SlippagePresets[m.slippage].StringFixed(1)+"%"),
	)
	if m.swapping {
		lines = append(lines, m.spinner.View()+" Settling...")
	}
	return panel.Render(strings.Join(lines, "\n"))
}

func (m *Model) overlayView() string {
	p := m.progress
	lines := []string{
		m.styles.Title.Render("Tokenizing " + p.File.Name),
		m.styles.Label.Render(humanize.Bytes(uint64(p.File.Size))),
		"",
		m.bar.ViewAs(float64(p.Percent) / 100),
		m.spinner.View() + " " + p.Message,
	}
	return m.styles.Overlay.Render(strings.Join(lines, "\n"))
}

func (m *Model) statusView() string {
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return m.styles.Error.Render("✗ " + m.status)
	}
	return m.styles.Success.Render("✓ " + m.status)
}
