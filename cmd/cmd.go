// submodule cmd contains command definitions
package main

import (
	"context"
	"strings"

	"github.com/desertthunder/bookclub/internal/resource"
	"github.com/urfave/cli/v3"
)

// listFlags are shared by every command printing a collection.
func listFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: table, csv, json or markdown",
			Value:   "table",
		},
		&cli.StringFlag{
			Name:    "search",
			Aliases: []string{"s"},
			Usage:   "Case-insensitive substring filter on the resource's search fields",
		},
		&cli.StringFlag{
			Name:  "sort",
			Usage: "Field to sort by (dotted paths allowed)",
		},
		&cli.BoolFlag{
			Name:  "desc",
			Usage: "Sort descending",
		},
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output raw JSON",
	}
}

func idArg() []cli.Argument {
	return []cli.Argument{&cli.StringArg{Name: "id"}}
}

// setupCommand handles setup operations for configuration and the session database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write the default config.toml to the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the session database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:  "rollback",
				Usage: "Roll back the most recent database migration",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Skip the confirmation prompt",
					},
				},
				Action: r.SetupRollback,
			},
		},
	}
}

// authCommand handles sign-in and the stored session.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with email and password",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Aliases:  []string{"e"},
						Usage:    "Account email",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "password",
						Usage: "Account password (prompted for when omitted)",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Clear the stored session",
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show the stored session",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "history",
						Usage: "Also show the last N sign-in events",
					},
				},
				Action: r.AuthStatus,
			},
			{
				Name:   "whoami",
				Usage:  "Fetch the signed-in user's profile",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.AuthWhoami,
			},
		},
	}
}

// booksCommand handles the public catalogue.
func booksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "books",
		Usage: "Browse the book catalogue",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List books",
				Flags:  listFlags(),
				Action: r.BooksList,
			},
			{
				Name:      "show",
				Usage:     "Show one book",
				Arguments: idArg(),
				Flags:     []cli.Flag{jsonFlag()},
				Action:    r.BooksShow,
			},
		},
	}
}

// clubsCommand handles browsing and membership.
func clubsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "clubs",
		Aliases: []string{"bookclubs"},
		Usage:   "Browse and join book clubs",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List book clubs",
				Flags:  listFlags(),
				Action: r.ClubsList,
			},
			{
				Name:      "show",
				Usage:     "Show one book club and its members",
				Arguments: idArg(),
				Flags:     []cli.Flag{jsonFlag()},
				Action:    r.ClubsShow,
			},
			{
				Name:      "join",
				Usage:     "Join a book club",
				Arguments: idArg(),
				Action:    r.ClubsJoin,
			},
			{
				Name:      "leave",
				Usage:     "Leave a book club",
				Arguments: idArg(),
				Action:    r.ClubsLeave,
			},
		},
	}
}

// usersCommand handles profiles and the follow graph.
func usersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "Profiles and follows",
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Show a user's profile",
				Arguments: idArg(),
				Flags:     []cli.Flag{jsonFlag()},
				Action:    r.UsersShow,
			},
			{
				Name:      "follow",
				Usage:     "Follow a user",
				Arguments: idArg(),
				Action:    r.UsersFollow,
			},
			{
				Name:      "unfollow",
				Usage:     "Unfollow a user",
				Arguments: idArg(),
				Action:    r.UsersUnfollow,
			},
			{
				Name:      "followers",
				Usage:     "List a user's followers (defaults to you)",
				Arguments: idArg(),
				Flags:     listFlags(),
				Action:    r.UsersFollowers,
			},
			{
				Name:      "following",
				Usage:     "List who a user follows (defaults to you)",
				Arguments: idArg(),
				Flags:     listFlags(),
				Action:    r.UsersFollowing,
			},
			{
				Name:  "profile",
				Usage: "Update your own profile",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:     "set",
						Usage:    "field=value to save (repeatable)",
						Required: true,
					},
				},
				Action: r.UsersProfile,
			},
		},
	}
}

// adminCommand builds `admin <kind> <op>` for every resource kind plus `admin export`.
func adminCommand(r *Runner) *cli.Command {
	commands := []*cli.Command{}
	for _, kind := range resource.Kinds() {
		commands = append(commands, adminKindCommand(r, kind))
	}

	commands = append(commands, &cli.Command{
		Name:  "export",
		Usage: "Export admin collections to files concurrently",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format: json, csv, markdown or table (defaults to config)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: bookclub_export_{timestamp})",
			},
			&cli.StringSliceFlag{
				Name:  "kind",
				Usage: "Resource to export (repeatable, default: all)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent workers (max 8, defaults to config)",
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Collection requests per second (defaults to config)",
			},
		},
		Action: r.AdminExport,
	})

	return &cli.Command{
		Name:     "admin",
		Usage:    "Manage books, users, book clubs and schedules",
		Commands: commands,
	}
}

func adminKindCommand(r *Runner, kind resource.Kind) *cli.Command {
	bind := func(fn func(context.Context, *cli.Command, resource.Kind) error) cli.ActionFunc {
		return func(ctx context.Context, cmd *cli.Command) error {
			return fn(ctx, cmd, kind)
		}
	}
	singular := strings.TrimSuffix(strings.ToLower(kind.Title), "s")

	var aliases []string
	if kind.Name == resource.Clubs.Name {
		aliases = []string{"clubs"}
	}

	setFlag := func(required bool) cli.Flag {
		return &cli.StringSliceFlag{
			Name:     "set",
			Usage:    "field=value to save (repeatable)",
			Required: required,
		}
	}

	return &cli.Command{
		Name:    kind.Name,
		Aliases: aliases,
		Usage:   "Manage " + strings.ToLower(kind.Title),
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List " + strings.ToLower(kind.Title),
				Flags:  listFlags(),
				Action: bind(r.AdminList),
			},
			{
				Name:   "stats",
				Usage:  "Show summary figures",
				Flags:  []cli.Flag{jsonFlag()},
				Action: bind(r.AdminStats),
			},
			{
				Name:   "add",
				Usage:  "Create a " + singular,
				Flags:  []cli.Flag{setFlag(true)},
				Action: bind(r.AdminAdd),
			},
			{
				Name:      "edit",
				Usage:     "Update a " + singular,
				Arguments: idArg(),
				Flags:     []cli.Flag{setFlag(true)},
				Action:    bind(r.AdminEdit),
			},
			{
				Name:      "delete",
				Usage:     "Delete a " + singular,
				Arguments: idArg(),
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Skip the confirmation prompt",
					},
				},
				Action: bind(r.AdminDelete),
			},
		},
	}
}

// apiCommand handles direct API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the book-club REST API",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET, prints the JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
					&cli.BoolFlag{
						Name:  "auth",
						Usage: "Send the session's bearer token",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "auth",
						Usage: "Send the session's bearer token",
						Value: true,
					},
				},
				Action: r.APIPost,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for the admin back-office.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive admin back-office",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "tab",
				Usage: "Resource tab to open (books, users, clubs, schedules)",
			},
		},
		Action: r.TUI,
	}
}
