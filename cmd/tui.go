package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/bookclub/internal/prefs"
	"github.com/desertthunder/bookclub/internal/resource"
	"github.com/desertthunder/bookclub/internal/shared"
	"github.com/desertthunder/bookclub/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive admin back-office.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	config, err := r.Config()
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(config.UI.LogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	api, err := r.api()
	if err != nil {
		return err
	}

	path := config.UI.PrefsPath
	if path == "" {
		path = prefs.DefaultPath()
	}
	p := prefs.Load(path)

	if tab := cmd.String("tab"); tab != "" {
		kind, err := resource.KindByName(tab)
		if err != nil {
			return err
		}
		p.LastTab = kind.Name
	}

	return ui.Run(ctx, ui.Options{
		API:       api,
		Prefs:     p,
		PrefsPath: path,
		Logger:    r.logger,
	})
}
