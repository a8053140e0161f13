package main

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytloop/internal/player"
	"github.com/desertthunder/ytloop/internal/shared"
	"github.com/desertthunder/ytloop/internal/ui"
)

// Play launches the interactive terminal UI.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	if r.config.Credentials.YouTube.ClientID == "" {
		return fmt.Errorf("%w: credentials.youtube.client_id is not set", shared.ErrMissingCredentials)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/ytloop-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	if r.player == nil {
		if name := r.config.Playback.Player; name != "" && name != "mpv" {
			return fmt.Errorf("%w: unsupported player %q", shared.ErrInvalidConfig, name)
		}
		r.player = player.NewMPV(player.MPVOptions{
			Path:   r.config.Playback.MPVPath,
			Logger: shared.WithLogger(fileLogger, "component", "mpv"),
		})
	}

	if err := r.open(ctx); err != nil {
		return err
	}

	model := ui.NewModel(ctx, r.engine, func(ctx context.Context) error {
		return r.doLogin(ctx, io.Discard)
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithReportFocus(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
