package ui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rovshanmuradov/datatrade/internal/app"
	"go.uber.org/zap"
)

const updateBufferSize = 100

// Run drives the dashboard until the user quits or ctx is done.
func Run(ctx context.Context, a *app.App, logger *zap.Logger) error {
	msgChan := make(chan tea.Msg, updateBufferSize)
	sender := NewUpdateSender(msgChan, logger.Named("updates"))
	defer sender.Close()

	subs := Bridge(a.Bus, a.Session, sender)
	defer subs.Unsubscribe()

	program := tea.NewProgram(
		NewSafeModel(NewModel(ctx, a, msgChan), logger),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	logger.Info("Dashboard started")
	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		err = nil
	}
	logger.Info("Dashboard stopped")
	return err
}
