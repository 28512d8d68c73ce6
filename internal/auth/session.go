// Package auth manages the user session: the stored token, the current
// profile and the authenticated HTTP client.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

// LoginPath is where Logout and CheckAuth send the user.
const LoginPath = "/login"

// ErrNoUser is returned by FetchUser when the profile carries no user.
var ErrNoUser = errors.New("profile has no user")

// Navigator moves the user to another route.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// Profile is the body of GET {apiBase}/myprofile. Only profiles carrying a
// truthy ofUser are accepted as a logged-in user.
type Profile map[string]any

// OfUser returns the ofUser member, or nil.
func (p Profile) OfUser() any {
	if p == nil {
		return nil
	}
	return p["ofUser"]
}

// Session holds the token and the user fetched with it.
type Session struct {
	tokens  TokenStore
	apiBase string
	nav     Navigator
	client  *http.Client

	mu   sync.RWMutex
	user Profile
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithNavigator sets where redirects go. Without one, redirects are only logged.
func WithNavigator(nav Navigator) SessionOption {
	return func(s *Session) { s.nav = nav }
}

// WithBaseTransport sets the transport the authenticated client wraps.
func WithBaseTransport(rt http.RoundTripper) SessionOption {
	return func(s *Session) { s.client = &http.Client{Transport: NewTransport(s, rt)} }
}

func NewSession(tokens TokenStore, apiBase string, opts ...SessionOption) *Session {
	s := &Session{
		tokens:  tokens,
		apiBase: strings.TrimRight(apiBase, "/"),
	}
	s.client = &http.Client{Transport: NewTransport(s, nil)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client returns the authenticated HTTP client bound to this session.
func (s *Session) Client() *http.Client {
	return s.client
}

// Token returns the stored token, or "" when there is none.
func (s *Session) Token() string {
	token, err := s.tokens.Get()
	if err != nil {
		if !errors.Is(err, ErrNoToken) {
			slog.Warn("failed to read session token", "error", err)
		}
		return ""
	}
	return token
}

func (s *Session) HasToken() bool {
	return s.Token() != ""
}

func (s *Session) SetToken(token string) error {
	return s.tokens.Set(token)
}

// User returns the current profile, or nil when logged out.
func (s *Session) User() Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) setUser(p Profile) {
	s.mu.Lock()
	s.user = p
	s.mu.Unlock()
}

// Logout drops the token and the user. With redirect set it navigates to
// the login page.
func (s *Session) Logout(redirect bool) {
	if err := s.tokens.Remove(); err != nil {
		slog.Warn("failed to remove session token", "error", err)
	}
	s.setUser(nil)
	if redirect {
		s.navigate(LoginPath)
	}
}

// CheckAuth navigates to the login page when no token is stored.
func (s *Session) CheckAuth() bool {
	if !s.HasToken() {
		s.navigate(LoginPath)
		return false
	}
	return true
}

// FetchUser loads the profile of the token holder. Without a stored token it
// returns ErrNoToken and sends nothing. A profile without ofUser clears the
// user and returns ErrNoUser; the token is kept. Any request failure logs
// the user out.
func (s *Session) FetchUser(ctx context.Context) (Profile, error) {
	if !s.HasToken() {
		return nil, ErrNoToken
	}

	p, err := s.fetchProfile(ctx)
	if err != nil {
		slog.Error("failed to fetch user", "error", err)
		s.Logout(true)
		return nil, err
	}
	if !truthy(p.OfUser()) {
		s.setUser(nil)
		return nil, ErrNoUser
	}
	s.setUser(p)
	return p, nil
}

func (s *Session) fetchProfile(ctx context.Context) (Profile, error) {
	if s.apiBase == "" {
		return nil, fmt.Errorf("api base URL is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiBase+"/myprofile", nil)
	if err != nil {
		return nil, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetch profile: unexpected status %d", resp.StatusCode)
	}

	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}

func (s *Session) navigate(path string) {
	if s.nav == nil {
		slog.Info("login required", "path", path)
		return
	}
	s.nav.Navigate(path)
}

// truthy follows JSON truthiness: null, false, 0 and "" are false.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	default:
		return true
	}
}
