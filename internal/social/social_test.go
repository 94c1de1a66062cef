package social

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/bookclub/internal/shared"
)

type fakeFollower struct {
	calls []string
	err   error
}

func (f *fakeFollower) Follow(_ context.Context, id string) error {
	f.calls = append(f.calls, "follow:"+id)
	return f.err
}

func (f *fakeFollower) Unfollow(_ context.Context, id string) error {
	f.calls = append(f.calls, "unfollow:"+id)
	return f.err
}

func (f *fakeFollower) JoinClub(_ context.Context, id string) error {
	f.calls = append(f.calls, "join:"+id)
	return f.err
}

func (f *fakeFollower) LeaveClub(_ context.Context, id string) error {
	f.calls = append(f.calls, "leave:"+id)
	return f.err
}

func TestToggle(t *testing.T) {
	ctx := context.Background()

	t.Run("Flip Applies New State", func(t *testing.T) {
		svc := &fakeFollower{}
		tg := NewToggle(false)

		if err := tg.Flip(ctx, FollowAction(svc, "u1")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !tg.On() {
			t.Error("expected toggle to be on")
		}

		if err := tg.Flip(ctx, FollowAction(svc, "u1")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tg.On() {
			t.Error("expected toggle to be off")
		}

		if len(svc.calls) != 2 || svc.calls[0] != "follow:u1" || svc.calls[1] != "unfollow:u1" {
			t.Errorf("unexpected calls %v", svc.calls)
		}
	})

	t.Run("State Is Optimistic", func(t *testing.T) {
		tg := NewToggle(false)
		var seen bool
		err := tg.Flip(ctx, func(_ context.Context, on bool) error {
			seen = tg.On()
			if !tg.Pending() {
				t.Error("expected pending during call")
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if !seen {
			t.Error("expected state to flip before the remote call returns")
		}
		if tg.Pending() {
			t.Error("expected pending to clear")
		}
	})

	t.Run("Reverts On Failure", func(t *testing.T) {
		svc := &fakeFollower{err: errors.New("club is full")}
		tg := NewToggle(false)

		err := tg.Flip(ctx, MembershipAction(svc, "c1"))
		if err == nil || err.Error() != "club is full" {
			t.Errorf("expected remote error, got %v", err)
		}
		if tg.On() {
			t.Error("expected toggle to revert")
		}
		if tg.Pending() {
			t.Error("expected pending to clear")
		}
	})

	t.Run("Rejects Flip While Pending", func(t *testing.T) {
		tg := NewToggle(true)
		if _, err := tg.Begin(); err != nil {
			t.Fatal(err)
		}

		err := tg.Flip(ctx, func(context.Context, bool) error {
			t.Error("action must not run")
			return nil
		})
		if !errors.Is(err, shared.ErrPending) {
			t.Errorf("expected ErrPending, got %v", err)
		}

		tg.Finish(nil)
		if tg.On() {
			t.Error("expected first flip to stick")
		}
	})

	t.Run("Membership Paths", func(t *testing.T) {
		svc := &fakeFollower{}
		tg := NewToggle(true)
		_ = tg.Flip(ctx, MembershipAction(svc, "c9"))
		_ = tg.Flip(ctx, MembershipAction(svc, "c9"))
		if len(svc.calls) != 2 || svc.calls[0] != "leave:c9" || svc.calls[1] != "join:c9" {
			t.Errorf("unexpected calls %v", svc.calls)
		}
	})

	t.Run("Finish Without Begin", func(t *testing.T) {
		tg := NewToggle(true)
		tg.Finish(errors.New("ignored"))
		if !tg.On() {
			t.Error("expected no change")
		}
	})
}
