package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/DaanHessen/basis-tower/internal/clock"
	"github.com/DaanHessen/basis-tower/internal/orchestrator"
)

// Run boots the TUI program and blocks until it exits. The orchestrator must be built on
// sched; Run starts it on the first step.
func Run(ctx context.Context, sched *clock.Scheduler, orch *orchestrator.Orchestrator, log *zap.Logger, theme, version string) error {
	orch.Start()
	m := newModel(sched, orch, log, theme, version)
	program := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	_, err := program.Run()
	orch.Stop()
	return err
}
