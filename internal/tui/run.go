package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"habit-gallery/internal/app"
	"habit-gallery/internal/render"
	"habit-gallery/internal/shared/config"
	"habit-gallery/internal/shared/telemetry"
)

const resultWidth = 76

// Run builds the page and drives it in the terminal until the user quits or
// ctx is cancelled.
func Run(ctx context.Context, cfg config.Config) error {
	b := newBridge()

	deps := app.Deps{}
	if term, err := render.NewTerminal("dark", resultWidth); err != nil {
		telemetry.Warn("tui.renderer.fallback", map[string]any{"err": err})
	} else {
		deps.Renderer = term
	}

	a, err := app.Build(cfg, b.views(), deps)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}
	defer a.Shutdown()

	p := tea.NewProgram(newModel(ctx, a, b), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
