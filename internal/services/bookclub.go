package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/bookclub/internal/session"
	"github.com/desertthunder/bookclub/internal/shared"
)

// API paths used outside the admin resource kinds.
const (
	PathLogin     = "/auth/login"
	PathMe        = "/users/me"
	PathBooks     = "/books"
	PathClubs     = "/bookclubs"
	PathUsers     = "/users"
	PathFollow    = "/follow"
	PathSchedules = "/schedules"
)

// Credentials are posted to [PathLogin].
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// BookClubService implements the non-admin calls of the platform: sign in, profiles, browsing,
// follow relationships and club membership.
type BookClubService struct {
	client  *Client
	session *session.Service
}

// NewBookClubService creates a [BookClubService]. The session must be the same one the client draws tokens from.
func NewBookClubService(client *Client, sess *session.Service) *BookClubService {
	return &BookClubService{client: client, session: sess}
}

// Client returns the underlying REST client.
func (s *BookClubService) Client() *Client { return s.client }

// Login exchanges credentials for a token and stores the session.
func (s *BookClubService) Login(ctx context.Context, creds Credentials) (map[string]any, error) {
	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", shared.ErrMissingArgument)
	}

	body, err := s.client.Post(ctx, PathLogin, creds, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	obj, ok := body.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected login response", shared.ErrAuthFailed)
	}

	token := firstString(obj, "token", "accessToken", "access_token")
	if token == "" {
		if inner, ok := obj["data"].(map[string]any); ok {
			token = firstString(inner, "token", "accessToken", "access_token")
			obj = inner
		}
	}
	if token == "" {
		return nil, fmt.Errorf("%w: login response has no token", shared.ErrAuthFailed)
	}

	user, _ := obj["user"].(map[string]any)
	if err := s.session.Update(token, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Logout clears the local session. The backend keeps no server-side session to revoke.
func (s *BookClubService) Logout() error {
	return s.session.Clear()
}

// Me fetches the signed-in user's profile and refreshes the cached record.
func (s *BookClubService) Me(ctx context.Context) (map[string]any, error) {
	body, err := s.client.Get(ctx, PathMe, nil, true)
	if err != nil {
		return nil, err
	}
	user, ok := Object(body, "user")
	if !ok {
		return nil, fmt.Errorf("%w: unexpected profile response", shared.ErrAPIRequest)
	}
	if err := s.session.SetUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// CurrentUserID returns the id of the cached user record, falling back to the token subject.
func (s *BookClubService) CurrentUserID() (string, error) {
	user, err := s.session.User()
	if err != nil {
		return "", err
	}
	if id := IDOf(user); id != "" {
		return id, nil
	}
	if claims, ok := s.session.Claims(); ok && claims.Subject != "" {
		return claims.Subject, nil
	}
	return "", shared.ErrNotAuthenticated
}

// UpdateProfile saves fields to the user record; when it is the signed-in user the session copy is replaced.
func (s *BookClubService) UpdateProfile(ctx context.Context, id string, fields map[string]any) (map[string]any, error) {
	body, err := s.client.Put(ctx, JoinPath(PathUsers, id), fields, true)
	if err != nil {
		return nil, err
	}
	user, ok := Object(body, "user")
	if !ok {
		return nil, fmt.Errorf("%w: unexpected profile response", shared.ErrAPIRequest)
	}

	if current, err := s.CurrentUserID(); err == nil && current == id {
		if err := s.session.SetUser(user); err != nil {
			return user, err
		}
	}
	return user, nil
}

// ListBooks returns the catalogue, optionally filtered server-side by query.
func (s *BookClubService) ListBooks(ctx context.Context, query url.Values) ([]map[string]any, error) {
	return s.list(ctx, PathBooks, query, false, "books")
}

// GetBook fetches one book.
func (s *BookClubService) GetBook(ctx context.Context, id string) (map[string]any, error) {
	return s.get(ctx, JoinPath(PathBooks, id), false, "book")
}

// ListClubs returns all book clubs.
func (s *BookClubService) ListClubs(ctx context.Context, query url.Values) ([]map[string]any, error) {
	return s.list(ctx, PathClubs, query, false, "bookclubs", "clubs")
}

// GetClub fetches one book club.
func (s *BookClubService) GetClub(ctx context.Context, id string) (map[string]any, error) {
	return s.get(ctx, JoinPath(PathClubs, id), false, "bookclub", "club")
}

// JoinClub adds the signed-in user to a club.
func (s *BookClubService) JoinClub(ctx context.Context, clubID string) error {
	_, err := s.client.Post(ctx, JoinPath(PathClubs, clubID, "join"), nil, true)
	return err
}

// LeaveClub removes the signed-in user from a club.
func (s *BookClubService) LeaveClub(ctx context.Context, clubID string) error {
	_, err := s.client.Post(ctx, JoinPath(PathClubs, clubID, "leave"), nil, true)
	return err
}

// GetUser fetches a public profile.
func (s *BookClubService) GetUser(ctx context.Context, id string) (map[string]any, error) {
	return s.get(ctx, JoinPath(PathUsers, id), true, "user")
}

// Follow starts following userID.
func (s *BookClubService) Follow(ctx context.Context, userID string) error {
	_, err := s.client.Do(ctx, Request{Method: http.MethodPost, Path: JoinPath(PathFollow, userID), Auth: true})
	return err
}

// Unfollow stops following userID.
func (s *BookClubService) Unfollow(ctx context.Context, userID string) error {
	return s.client.Delete(ctx, JoinPath(PathFollow, userID), true)
}

// Followers lists the users following userID.
func (s *BookClubService) Followers(ctx context.Context, userID string) ([]map[string]any, error) {
	return s.list(ctx, JoinPath(PathUsers, userID, "followers"), nil, true, "followers", "users")
}

// Following lists the users userID follows.
func (s *BookClubService) Following(ctx context.Context, userID string) ([]map[string]any, error) {
	return s.list(ctx, JoinPath(PathUsers, userID, "following"), nil, true, "following", "users")
}

// IsFollowing reports whether the signed-in user follows userID.
func (s *BookClubService) IsFollowing(ctx context.Context, userID string) (bool, error) {
	me, err := s.CurrentUserID()
	if err != nil {
		return false, err
	}
	following, err := s.Following(ctx, me)
	if err != nil {
		return false, err
	}
	for _, u := range following {
		if IDOf(u) == userID {
			return true, nil
		}
	}
	return false, nil
}

// IsMember reports whether userID appears in the club's members array (ids or user objects).
func IsMember(club map[string]any, userID string) bool {
	members, _ := club["members"].([]any)
	for _, m := range members {
		if id := IDString(m); id != "" && id == userID {
			return true
		}
	}
	return false
}

func (s *BookClubService) list(ctx context.Context, path string, query url.Values, auth bool, keys ...string) ([]map[string]any, error) {
	body, err := s.client.Get(ctx, path, query, auth)
	if err != nil {
		return nil, err
	}
	return Collection(body, keys...), nil
}

func (s *BookClubService) get(ctx context.Context, path string, auth bool, keys ...string) (map[string]any, error) {
	body, err := s.client.Get(ctx, path, nil, auth)
	if err != nil {
		return nil, err
	}
	obj, ok := Object(body, keys...)
	if !ok {
		return nil, fmt.Errorf("%w: %s returned no object", shared.ErrNotFound, path)
	}
	return obj, nil
}

// IDOf returns the record's id, reading "id" then "_id". Numeric ids are formatted without a fraction.
func IDOf(obj map[string]any) string {
	for _, key := range []string{"id", "_id"} {
		switch v := obj[key].(type) {
		case string, float64:
			if id := IDString(v); id != "" {
				return id
			}
		}
	}
	return ""
}

// IDString renders a bare id reference: a string, a JSON number, or an object carrying an id.
func IDString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	case map[string]any:
		return IDOf(t)
	default:
		return ""
	}
}

func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := obj[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
