// Package session holds the authenticated identity and its bearer token,
// persisted across runs. Exactly one of three states holds at any time:
// anonymous, authenticated as a donor, or authenticated as an NGO; there is
// no partially-authenticated state visible to consumers.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"foodbridge/internal/api"
	"foodbridge/internal/donation"
	"foodbridge/internal/logging"
)

// ErrMissingUserID is returned when the service's registration response
// omits an authoritative user id. An id of zero is never fabricated; the
// registration fails hard instead.
var ErrMissingUserID = errors.New("registration response missing user id")

// ErrNotAuthenticated is returned by operations that require a session.
var ErrNotAuthenticated = errors.New("not authenticated")

// AuthClient is the slice of the API client the store needs.
type AuthClient interface {
	Login(ctx context.Context, email, password string) (api.Credentials, error)
	Register(ctx context.Context, name, email, password string, role donation.Role) (api.Credentials, error)
}

// persistedAuth is the durable auth payload. The flag, identity and role
// are stored together and cleared together, never independently.
type persistedAuth struct {
	IsAuthenticated bool          `json:"isAuthenticated"`
	User            donation.User `json:"user"`
	Role            donation.Role `json:"role"`
}

// Store is the session store. Construct one explicitly with New and inject
// it where needed; there is no package-level instance.
type Store struct {
	mu     sync.RWMutex
	client AuthClient

	authPath  string
	tokenPath string

	user  donation.User
	token string
	authd bool
}

// New creates a Store persisting under stateDir. The API client is
// injected later via SetClient because the client itself needs the store's
// token source first.
func New(stateDir string) *Store {
	return &Store{
		authPath:  filepath.Join(stateDir, "auth.json"),
		tokenPath: filepath.Join(stateDir, "token"),
	}
}

// SetClient wires the API client used by Login and Register.
func (s *Store) SetClient(c AuthClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = c
}

// Hydrate restores the session from durable storage. A malformed or
// incomplete payload yields an anonymous state and purges both files;
// nothing is surfaced to the caller beyond a log line.
func (s *Store) Hydrate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	authData, authErr := os.ReadFile(s.authPath)
	tokenData, tokenErr := os.ReadFile(s.tokenPath)
	if authErr != nil || tokenErr != nil {
		// Nothing persisted, or only half of it: treat as logged out.
		if (authErr == nil) != (tokenErr == nil) {
			logging.SessionError("partial session state on disk, purging")
			s.purgeLocked()
		}
		return
	}

	var stored persistedAuth
	if err := json.Unmarshal(authData, &stored); err != nil {
		logging.SessionError("malformed auth payload, purging: %v", err)
		s.purgeLocked()
		return
	}

	token := strings.TrimSpace(string(tokenData))
	if !stored.IsAuthenticated || token == "" || !stored.User.Role.Valid() {
		logging.SessionError("incomplete auth payload, purging")
		s.purgeLocked()
		return
	}

	s.user = stored.User
	s.token = token
	s.authd = true
	logging.Session("session hydrated for %s (%s)", s.user.Email, s.user.Role)
}

// Login authenticates and persists the session. On failure the state is
// left anonymous and unchanged on disk.
func (s *Store) Login(ctx context.Context, email, password string) (donation.User, error) {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	if client == nil {
		return donation.User{}, fmt.Errorf("session store has no API client")
	}

	creds, err := client.Login(ctx, email, password)
	if err != nil {
		logging.SessionError("login failed for %s: %v", email, err)
		return donation.User{}, err
	}

	if err := s.establish(creds); err != nil {
		return donation.User{}, err
	}
	logging.Session("login ok for %s (%s)", creds.User.Email, creds.User.Role)
	return creds.User, nil
}

// Register creates an account and persists the session. A response without
// an authoritative user id is a hard failure: no placeholder id is stored.
func (s *Store) Register(ctx context.Context, name, email, password string, role donation.Role) (donation.User, error) {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	if client == nil {
		return donation.User{}, fmt.Errorf("session store has no API client")
	}

	creds, err := client.Register(ctx, name, email, password, role)
	if err != nil {
		logging.SessionError("registration failed for %s: %v", email, err)
		return donation.User{}, err
	}
	if creds.User.ID == 0 {
		logging.SessionError("registration response for %s carries no user id", email)
		return donation.User{}, ErrMissingUserID
	}
	if creds.User.Role == "" {
		creds.User.Role = role
	}

	if err := s.establish(creds); err != nil {
		return donation.User{}, err
	}
	logging.Session("registration ok for %s (%s)", creds.User.Email, creds.User.Role)
	return creds.User, nil
}

func (s *Store) establish(creds api.Credentials) error {
	if creds.Token == "" {
		return fmt.Errorf("auth response missing token")
	}
	if !creds.User.Role.Valid() {
		return fmt.Errorf("auth response carries unknown role %q", creds.User.Role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = creds.User
	s.token = creds.Token
	s.authd = true
	return s.persistLocked()
}

// Logout clears identity and token synchronously, in memory and on disk.
// No server round-trip is required for it to succeed locally.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authd {
		logging.Session("logout for %s", s.user.Email)
	}
	s.purgeLocked()
}

func (s *Store) purgeLocked() {
	s.user = donation.User{}
	s.token = ""
	s.authd = false
	_ = os.Remove(s.authPath)
	_ = os.Remove(s.tokenPath)
}

func (s *Store) persistLocked() error {
	stored := persistedAuth{
		IsAuthenticated: true,
		User:            s.user,
		Role:            s.user.Role,
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.WriteFile(s.authPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	if err := os.WriteFile(s.tokenPath, []byte(s.token), 0o600); err != nil {
		// Keep the pair consistent: a token write failure voids the auth file.
		_ = os.Remove(s.authPath)
		return fmt.Errorf("failed to persist token: %w", err)
	}
	return nil
}

// Token returns the current bearer token, or "" when anonymous. Shaped to
// plug straight into api.Options.Tokens.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the authenticated identity.
func (s *Store) User() (donation.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.authd
}

// Role returns the authenticated role, or "" when anonymous.
func (s *Store) Role() donation.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.authd {
		return ""
	}
	return s.user.Role
}

// IsAuthenticated reports whether a session is established.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authd
}
