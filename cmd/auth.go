package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/bookclub/internal/formatter"
	"github.com/desertthunder/bookclub/internal/resource"
	"github.com/desertthunder/bookclub/internal/services"
	"github.com/desertthunder/bookclub/internal/shared"
	"github.com/urfave/cli/v3"
)

// displayName picks the friendliest label of a user record.
func displayName(user map[string]any) string {
	for _, k := range []string{"name", "username", "email"} {
		if v, ok := user[k].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	if id := services.IDOf(user); id != "" {
		return id
	}
	return "unknown user"
}

// AuthLogin exchanges email and password for a session token and stores it.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.service()
	if err != nil {
		return err
	}

	email := strings.TrimSpace(cmd.String("email"))
	password := cmd.String("password")
	if password == "" {
		if password, err = r.readPassword("Password: "); err != nil {
			return fmt.Errorf("%w: password", shared.ErrMissingArgument)
		}
	}

	r.logger.Info("signing in", "email", email)

	user, err := svc.Login(ctx, services.Credentials{Email: email, Password: password})
	if err != nil {
		return err
	}

	r.logger.Info("authentication successful")
	return r.writePlain("✓ Signed in as %s\n", displayName(user))
}

// AuthLogout clears the stored session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.service()
	if err != nil {
		return err
	}
	if err := svc.Logout(); err != nil {
		return err
	}
	return r.writePlain("✓ Signed out\n")
}

// AuthStatus reports the stored session without calling the API.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	r.writePlainHeader("Session")
	if !r.session.Authenticated() {
		r.writePlain("Authentication: ✗ Not signed in\n")
	} else {
		user, _ := r.session.User()
		r.writePlain("Authentication: ✓ Signed in\n")
		if user != nil {
			r.writePlain("User: %s\n", displayName(user))
		}
		if claims, ok := r.session.Claims(); ok && !claims.ExpiresAt.IsZero() {
			r.writePlain("Token expires: %s (%s)\n", claims.ExpiresAt.Local().Format(time.RFC1123), time.Until(claims.ExpiresAt).Round(time.Minute))
		}
	}
	r.writePlain("API: %s\n", r.client.BaseURL())

	limit := int(cmd.Int("history"))
	if limit <= 0 {
		return nil
	}
	if r.history == nil {
		return r.writePlainln("History is only kept in the session database.")
	}

	events, err := r.history.Events(limit)
	if err != nil {
		return err
	}
	r.writePlainln("Recent activity:")
	if len(events) == 0 {
		return r.writePlain("  (none)\n")
	}
	for _, e := range events {
		subject := e.Subject
		if subject == "" {
			subject = "-"
		}
		r.writePlain("  %s  %-13s %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Kind, subject)
	}
	return nil
}

// AuthWhoami fetches the signed-in user's profile.
func (r *Runner) AuthWhoami(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.service()
	if err != nil {
		return err
	}
	user, err := svc.Me(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(user, true)
	}
	return r.writePlain("%s", formatter.Detail(resource.Row(user)))
}
