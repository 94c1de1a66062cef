package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/bookclub/internal/shared"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

var _ oauth2.TokenSource = (*Service)(nil)

// EventKind describes what changed in the session.
type EventKind int

const (
	EventLogin EventKind = iota
	EventUserUpdated
	EventLogout
)

func (k EventKind) String() string {
	switch k {
	case EventLogin:
		return "login"
	case EventUserUpdated:
		return "user_updated"
	case EventLogout:
		return "logout"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers after the session changes.
type Event struct {
	Kind  EventKind
	Token string
	User  map[string]any
}

// Claims is the subset of JWT claims the client cares about.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// Service is the single owner of the session state.
type Service struct {
	mu      sync.RWMutex
	store   Store
	loaded  bool
	token   string
	user    map[string]any
	nextSub int
	subs    map[int]func(Event)
	now     func() time.Time
}

// NewService creates a [Service] over store. Values are read lazily on first access.
func NewService(store Store) *Service {
	return &Service{
		store: store,
		subs:  map[int]func(Event){},
		now:   time.Now,
	}
}

// load reads the persisted values once. Callers hold the write lock.
func (s *Service) load() error {
	if s.loaded {
		return nil
	}

	token, _, err := s.store.Get(KeyToken)
	if err != nil {
		return fmt.Errorf("failed to read session token: %w", err)
	}

	raw, ok, err := s.store.Get(KeyUser)
	if err != nil {
		return fmt.Errorf("failed to read session user: %w", err)
	}

	var user map[string]any
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			// a corrupt record is treated as absent
			user = nil
		}
	}

	s.token = token
	s.user = user
	s.loaded = true
	return nil
}

func (s *Service) ensureLoaded() error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// AccessToken returns the raw token, or "" when signed out.
func (s *Service) AccessToken() (string, error) {
	if err := s.ensureLoaded(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

// User returns a copy of the cached user record, or nil when signed out.
func (s *Service) User() (map[string]any, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyMap(s.user), nil
}

// Authenticated reports whether a non-expired token is present.
func (s *Service) Authenticated() bool {
	_, err := s.Token()
	return err == nil
}

// Token implements [oauth2.TokenSource].
//
// Returns [shared.ErrNotAuthenticated] when no token is stored and [shared.ErrTokenExpired] when the JWT has expired.
func (s *Service) Token() (*oauth2.Token, error) {
	raw, err := s.AccessToken()
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, shared.ErrNotAuthenticated
	}

	tok := &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}
	if claims, ok := ParseClaims(raw); ok {
		tok.Expiry = claims.ExpiresAt
	}
	if !tok.Expiry.IsZero() && !tok.Expiry.After(s.now()) {
		return nil, fmt.Errorf("%w: %w", shared.ErrNotAuthenticated, shared.ErrTokenExpired)
	}
	return tok, nil
}

// Claims returns the decoded claims of the current token, if it is a JWT.
func (s *Service) Claims() (Claims, bool) {
	raw, err := s.AccessToken()
	if err != nil || raw == "" {
		return Claims{}, false
	}
	return ParseClaims(raw)
}

// Update stores a new token and user record and notifies subscribers with [EventLogin].
func (s *Service) Update(token string, user map[string]any) error {
	if token == "" {
		return fmt.Errorf("%w: token is empty", shared.ErrInvalidInput)
	}

	s.mu.Lock()
	if err := s.store.Set(KeyToken, token); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to save session token: %w", err)
	}
	if err := s.writeUser(user); err != nil {
		s.mu.Unlock()
		return err
	}
	s.token = token
	s.user = copyMap(user)
	s.loaded = true
	s.mu.Unlock()

	s.notify(Event{Kind: EventLogin, Token: token, User: copyMap(user)})
	return nil
}

// SetUser replaces the cached user record, e.g. after a profile edit.
func (s *Service) SetUser(user map[string]any) error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}

	s.mu.Lock()
	if err := s.writeUser(user); err != nil {
		s.mu.Unlock()
		return err
	}
	s.user = copyMap(user)
	token := s.token
	s.mu.Unlock()

	s.notify(Event{Kind: EventUserUpdated, Token: token, User: copyMap(user)})
	return nil
}

// Clear removes the token and user record and notifies subscribers with [EventLogout].
func (s *Service) Clear() error {
	s.mu.Lock()
	var errs []error
	if err := s.store.Delete(KeyToken); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Delete(KeyUser); err != nil {
		errs = append(errs, err)
	}
	s.token = ""
	s.user = nil
	s.loaded = true
	s.mu.Unlock()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	s.notify(Event{Kind: EventLogout})
	return nil
}

// UseToken replaces the token in memory only, leaving the persisted session untouched.
// Used for the BOOKCLUB_TOKEN environment override.
func (s *Service) UseToken(token string) error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// Subscribe registers fn for session changes and returns a function that removes it.
func (s *Service) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Service) writeUser(user map[string]any) error {
	if user == nil {
		if err := s.store.Delete(KeyUser); err != nil {
			return fmt.Errorf("failed to clear session user: %w", err)
		}
		return nil
	}
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode session user: %w", err)
	}
	if err := s.store.Set(KeyUser, string(data)); err != nil {
		return fmt.Errorf("failed to save session user: %w", err)
	}
	return nil
}

func (s *Service) notify(e Event) {
	s.mu.RLock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}

// ParseClaims decodes a JWT without verifying its signature. The backend is the authority on validity;
// the client only needs the expiry and subject.
func ParseClaims(raw string) (Claims, bool) {
	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &rc); err != nil {
		return Claims{}, false
	}

	claims := Claims{Subject: rc.Subject}
	if rc.ExpiresAt != nil {
		claims.ExpiresAt = rc.ExpiresAt.Time
	}
	return claims, true
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	dup := make(map[string]any, len(m))
	for k, v := range m {
		dup[k] = v
	}
	return dup
}
