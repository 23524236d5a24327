package cli

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"gridnote/internal/core/ports"
)

func runUI(ctx context.Context, svc ports.SheetService, docPath string) error {
	m := initialModel(svc, docPath)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	// Edits made from the UI emit on the program's own goroutine, where a
	// blocking Send would deadlock.
	svc.SetUpdateHandler(func(update ports.Update) {
		go p.Send(updateMsg{update: update})
	})
	defer svc.SetUpdateHandler(nil)

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
