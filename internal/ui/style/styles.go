package style

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles groups every style the dashboard renders with.
type Styles struct {
	Header     lipgloss.Style
	Title      lipgloss.Style
	Wallet     lipgloss.Style
	Connected  lipgloss.Style
	Offline    lipgloss.Style
	Panel      lipgloss.Style
	FocusPanel lipgloss.Style
	PanelTitle lipgloss.Style
	Label      lipgloss.Style
	Value      lipgloss.Style
	Muted      lipgloss.Style
	Up         lipgloss.Style
	Down       lipgloss.Style
	Overlay    lipgloss.Style
	Success    lipgloss.Style
	Error      lipgloss.Style
	Help       lipgloss.Style
}

// NewStyles creates dashboard styles with the given palette
func NewStyles(palette Palette) Styles {
	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(palette.TextMuted).
		Padding(0, 1)

	return Styles{
		Header: lipgloss.NewStyle().
			Foreground(palette.Text).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.Primary).
			Padding(0, 2),

		Title: lipgloss.NewStyle().
			Foreground(palette.Primary).
			Bold(true),

		Wallet: lipgloss.NewStyle().
			Foreground(palette.TextSecondary),

		Connected: lipgloss.NewStyle().
			Foreground(palette.Success).
			Bold(true),

		Offline: lipgloss.NewStyle().
			Foreground(palette.Warning).
			Bold(true),

		Panel: panel,

		FocusPanel: panel.BorderForeground(palette.Secondary),

		PanelTitle: lipgloss.NewStyle().
			Foreground(palette.Accent).
			Bold(true),

		Label: lipgloss.NewStyle().
			Foreground(palette.TextMuted),

		Value: lipgloss.NewStyle().
			Foreground(palette.Text),

		Muted: lipgloss.NewStyle().
			Foreground(palette.TextMuted).
			Italic(true),

		Up: lipgloss.NewStyle().
			Foreground(palette.Up),

		Down: lipgloss.NewStyle().
			Foreground(palette.Down),

		Overlay: lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(palette.Primary).
			Padding(1, 3),

		Success: lipgloss.NewStyle().
			Foreground(palette.Success).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(palette.Error).
			Bold(true),

		Help: lipgloss.NewStyle().
			Foreground(palette.TextMuted),
	}
}
