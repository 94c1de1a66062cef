package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/bookclub/internal/formatter"
	"github.com/desertthunder/bookclub/internal/resource"
	"github.com/desertthunder/bookclub/internal/services"
	"github.com/desertthunder/bookclub/internal/shared"
	"github.com/desertthunder/bookclub/internal/social"
	"github.com/urfave/cli/v3"
)

func toRows(list []map[string]any) resource.Rows {
	rows := make(resource.Rows, len(list))
	for i, obj := range list {
		rows[i] = resource.Row(obj)
	}
	return rows
}

func requireID(cmd *cli.Command) (string, error) {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return "", fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}
	return id, nil
}

// writeRows derives rows with the --search/--sort flags and prints them in --format.
func (r *Runner) writeRows(cmd *cli.Command, kind resource.Kind, rows resource.Rows) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	cfg := resource.SortConfig{Key: cmd.String("sort")}
	if cmd.Bool("desc") {
		cfg.Direction = resource.Descending
	}
	derived := resource.Derive(rows, cfg, cmd.String("search"), kind.SearchFields)

	data, err := formatter.Render(format, kind, derived)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeDetail(cmd *cli.Command, obj map[string]any) error {
	if cmd.Bool("json") {
		return r.writeJSON(obj, true)
	}
	return r.writePlain("%s", formatter.Detail(resource.Row(obj)))
}

// BooksList lists the public catalogue.
func (r *Runner) BooksList(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.service()
	if err != nil {
		return err
	}
	books, err := svc.ListBooks(ctx, nil)
	if err != nil {
		return err
	}
	return r.writeRows(cmd, resource.Books, toRows(books))
}

// BooksShow prints one book.
func (r *Runner) BooksShow(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	svc, err := r.service()
	if err != nil {
		return err
	}
	book, err := svc.GetBook(ctx, id)
	if err != nil {
		return err
	}
	return r.writeDetail(cmd, book)
}

// ClubsList lists book clubs.
func (r *Runner) ClubsList(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.service()
	if err != nil {
		return err
	}
	clubs, err := svc.ListClubs(ctx, nil)
	if err != nil {
		return err
	}
	return r.writeRows(cmd, resource.Clubs, toRows(clubs))
}

// ClubsShow prints a club, its members and whether the signed-in user belongs to it.
func (r *Runner) ClubsShow(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	svc, err := r.service()
	if err != nil {
		return err
	}
	club, err := svc.GetClub(ctx, id)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(club, true)
	}

	row := resource.Row(club)
	r.writePlainHeader(row.String("name"))
	r.writePlain("%s", formatter.Detail(row))

	if me, err := svc.CurrentUserID(); err == nil {
		if services.IsMember(club, me) {
			r.writePlainln("You are a member.")
		} else {
			r.writePlainln("You are not a member. Join with `bookclub clubs join %s`.", id)
		}
	}

	members, _ := row.Lookup("members")
	list, _ := members.([]any)
	if len(list) == 0 {
		return nil
	}

	// Members may be embedded objects or bare ids.
	r.writePlainln("Members (%d):", len(list))
	for _, m := range list {
		switch v := m.(type) {
		case map[string]any:
			r.writePlain("  • %s\n", displayName(v))
		default:
			r.writePlain("  • %s\n", resource.Stringify(v))
		}
	}
	return nil
}

// flipMembership joins or leaves clubID starting from the club's current membership.
func (r *Runner) flipMembership(ctx context.Context, cmd *cli.Command, join bool) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	svc, err := r.service()
	if err != nil {
		return err
	}
	me, err := svc.CurrentUserID()
	if err != nil {
		return err
	}
	club, err := svc.GetClub(ctx, id)
	if err != nil {
		return err
	}

	name := resource.Row(club).String("name")
	member := services.IsMember(club, me)
	if member == join {
		if join {
			return r.writePlain("Already a member of %s\n", name)
		}
		return r.writePlain("Not a member of %s\n", name)
	}

	toggle := social.NewToggle(member)
	if err := toggle.Flip(ctx, social.MembershipAction(svc, id)); err != nil {
		return err
	}
	if toggle.On() {
		return r.writePlain("✓ Joined %s\n", name)
	}
	return r.writePlain("✓ Left %s\n", name)
}

// ClubsJoin joins a club.
func (r *Runner) ClubsJoin(ctx context.Context, cmd *cli.Command) error {
	return r.flipMembership(ctx, cmd, true)
}

// ClubsLeave leaves a club.
func (r *Runner) ClubsLeave(ctx context.Context, cmd *cli.Command) error {
	return r.flipMembership(ctx, cmd, false)
}

// UsersShow prints a user's profile and whether the signed-in user follows them.
func (r *Runner) UsersShow(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	svc, err := r.service()
	if err != nil {
		return err
	}
	user, err := svc.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if err := r.writeDetail(cmd, user); err != nil || cmd.Bool("json") {
		return err
	}

	if me, err := svc.CurrentUserID(); err == nil && me != id {
		following, err := svc.IsFollowing(ctx, id)
		if err != nil {
			r.logger.Debug("failed to check follow state", "user", id, "error", err)
			return nil
		}
		if following {
			return r.writePlainln("You follow %s.", displayName(user))
		}
		return r.writePlainln("You do not follow %s.", displayName(user))
	}
	return nil
}

// flipFollow follows or unfollows starting from the current follow state.
func (r *Runner) flipFollow(ctx context.Context, cmd *cli.Command, follow bool) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	svc, err := r.service()
	if err != nil {
		return err
	}
	if me, err := svc.CurrentUserID(); err != nil {
		return err
	} else if me == id {
		return fmt.Errorf("%w: cannot follow yourself", shared.ErrInvalidArgument)
	}

	following, err := svc.IsFollowing(ctx, id)
	if err != nil {
		return err
	}
	if following == follow {
		if follow {
			return r.writePlain("Already following %s\n", id)
		}
		return r.writePlain("Not following %s\n", id)
	}

	toggle := social.NewToggle(following)
	if err := toggle.Flip(ctx, social.FollowAction(svc, id)); err != nil {
		return err
	}
	if toggle.On() {
		return r.writePlain("✓ Following %s\n", id)
	}
	return r.writePlain("✓ Unfollowed %s\n", id)
}

// UsersFollow follows a user.
func (r *Runner) UsersFollow(ctx context.Context, cmd *cli.Command) error {
	return r.flipFollow(ctx, cmd, true)
}

// UsersUnfollow unfollows a user.
func (r *Runner) UsersUnfollow(ctx context.Context, cmd *cli.Command) error {
	return r.flipFollow(ctx, cmd, false)
}

// targetUser returns the id argument or the signed-in user's id.
func (r *Runner) targetUser(cmd *cli.Command, svc *services.BookClubService) (string, error) {
	if id := strings.TrimSpace(cmd.StringArg("id")); id != "" {
		return id, nil
	}
	return svc.CurrentUserID()
}

// UsersFollowers lists a user's followers.
func (r *Runner) UsersFollowers(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.service()
	if err != nil {
		return err
	}
	id, err := r.targetUser(cmd, svc)
	if err != nil {
		return err
	}
	users, err := svc.Followers(ctx, id)
	if err != nil {
		return err
	}
	return r.writeRows(cmd, resource.Users, toRows(users))
}

// UsersFollowing lists who a user follows.
func (r *Runner) UsersFollowing(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.service()
	if err != nil {
		return err
	}
	id, err := r.targetUser(cmd, svc)
	if err != nil {
		return err
	}
	users, err := svc.Following(ctx, id)
	if err != nil {
		return err
	}
	return r.writeRows(cmd, resource.Users, toRows(users))
}

// parseAssignments splits repeated field=value flags.
func parseAssignments(values []string) ([][2]string, error) {
	out := make([][2]string, 0, len(values))
	for _, v := range values {
		field, value, ok := strings.Cut(v, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("%w: expected field=value, got %q", shared.ErrInvalidArgument, v)
		}
		out = append(out, [2]string{field, value})
	}
	return out, nil
}

// UsersProfile saves fields on the signed-in user's record.
func (r *Runner) UsersProfile(ctx context.Context, cmd *cli.Command) error {
	sets, err := parseAssignments(cmd.StringSlice("set"))
	if err != nil {
		return err
	}
	svc, err := r.service()
	if err != nil {
		return err
	}
	me, err := svc.CurrentUserID()
	if err != nil {
		return err
	}

	fields := make(map[string]any, len(sets))
	for _, s := range sets {
		fields[s[0]] = s[1]
	}

	user, err := svc.UpdateProfile(ctx, me, fields)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Profile updated for %s\n", displayName(user))
}
