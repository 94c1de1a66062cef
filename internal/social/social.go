// Package social implements the optimistic follow and club-membership toggles.
//
// A [Toggle] flips its local state as soon as the user acts, runs the remote call, and flips back if
// the call fails. While a call is outstanding further flips are refused with [shared.ErrPending].
package social

import (
	"context"
	"sync"

	"github.com/desertthunder/bookclub/internal/shared"
)

// Action performs the remote side of a flip; on is the state being moved to.
type Action func(ctx context.Context, on bool) error

// Toggle is an optimistic boolean.
type Toggle struct {
	mu      sync.Mutex
	on      bool
	pending bool
}

// NewToggle returns a [Toggle] starting at on.
func NewToggle(on bool) *Toggle {
	return &Toggle{on: on}
}

// On returns the displayed state, which already reflects a pending flip.
func (t *Toggle) On() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.on
}

// Pending reports whether a flip is waiting on its remote call.
func (t *Toggle) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}

// Begin flips the state and marks it pending. It returns the new state.
func (t *Toggle) Begin() (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending {
		return t.on, shared.ErrPending
	}
	t.on = !t.on
	t.pending = true
	return t.on, nil
}

// Finish settles a flip started with [Toggle.Begin], reverting it when err is non-nil.
func (t *Toggle) Finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.pending {
		return
	}
	t.pending = false
	if err != nil {
		t.on = !t.on
	}
}

// Flip flips the state, runs apply and reverts when it fails.
func (t *Toggle) Flip(ctx context.Context, apply Action) error {
	target, err := t.Begin()
	if err != nil {
		return err
	}
	err = apply(ctx, target)
	t.Finish(err)
	return err
}

// Follower is implemented by services.BookClubService.
type Follower interface {
	Follow(ctx context.Context, userID string) error
	Unfollow(ctx context.Context, userID string) error
}

// Member is implemented by services.BookClubService.
type Member interface {
	JoinClub(ctx context.Context, clubID string) error
	LeaveClub(ctx context.Context, clubID string) error
}

// FollowAction follows userID when flipped on and unfollows when flipped off.
func FollowAction(svc Follower, userID string) Action {
	return func(ctx context.Context, on bool) error {
		if on {
			return svc.Follow(ctx, userID)
		}
		return svc.Unfollow(ctx, userID)
	}
}

// MembershipAction joins clubID when flipped on and leaves it when flipped off.
func MembershipAction(svc Member, clubID string) Action {
	return func(ctx context.Context, on bool) error {
		if on {
			return svc.JoinClub(ctx, clubID)
		}
		return svc.LeaveClub(ctx, clubID)
	}
}
