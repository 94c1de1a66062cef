package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/desertthunder/bookclub/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger, Input: os.Stdin})

	app := &cli.Command{
		Name:    "bookclub",
		Usage:   "Browse book clubs and manage the book-club back-office",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("BOOKCLUB_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before:   runner.Before,
		After:    runner.After,
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatal(failureMessage(err))
	}
}

func failureMessage(err error) string {
	if errors.Is(err, shared.ErrNotAuthenticated) {
		return "not signed in, run `bookclub auth login` first"
	}
	return fmt.Sprintf("application error: %v", err)
}
