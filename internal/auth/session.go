package auth

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/medisupply/field-app/internal/enum"
	"gopkg.in/yaml.v3"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrTokenExpired     = errors.New("token expired")
	ErrMissingFields    = errors.New("email and password are required")
)

type Status string

const (
	StatusChecking        Status = "checking"
	StatusAuthenticated   Status = "authenticated"
	StatusUnauthenticated Status = "unauthenticated"
)

// Home screens a signed-in user lands on.
const (
	HomeCustomers  = "clientes"
	HomeDeliveries = "entregas"
	HomeDefault    = "inicio"
)

type User struct {
	ID        string   `json:"id" yaml:"id"`
	Email     string   `json:"email" yaml:"email"`
	FullName  string   `json:"full_name" yaml:"full_name"`
	IsActive  bool     `json:"is_active" yaml:"is_active"`
	Roles     []string `json:"roles" yaml:"roles"`
	NIT       string   `json:"nit,omitempty" yaml:"nit,omitempty"`
	ClienteID int64    `json:"cliente_id,omitempty" yaml:"cliente_id,omitempty"`
}

// PrimaryRole is the role sent in identity headers.
func (u User) PrimaryRole() string {
	if len(u.Roles) == 0 {
		return ""
	}
	return u.Roles[0]
}

func (u User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// Authenticator is the subset of the gateway API the session needs.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (token string, user User, err error)
	VerifyToken(ctx context.Context, token string) (bool, error)
	Logout(ctx context.Context, token string) error
}

// Saved is the persisted form of a session.
type Saved struct {
	Token string `yaml:"token"`
	User  User   `yaml:"user"`
}

// TokenStore persists the session token between runs.
type TokenStore interface {
	Load() (*Saved, error)
	Save(s Saved) error
	Clear() error
}

// Session tracks the authenticated identity. Safe for concurrent reads
// from fan-out requests.
type Session struct {
	auth  Authenticator
	store TokenStore

	mu     sync.RWMutex
	status Status
	token  string
	user   *User
}

func NewSession(a Authenticator, store TokenStore) *Session {
	if store == nil {
		store = &MemoryStore{}
	}
	return &Session{auth: a, store: store, status: StatusChecking}
}

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the signed-in user, or nil.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) HasRole(role string) bool {
	u := s.User()
	return u != nil && u.HasRole(role)
}

// HomeRoute picks the landing screen for the signed-in user's roles.
func (s *Session) HomeRoute() string {
	switch {
	case s.HasRole(enum.RoleAccountManager):
		return HomeCustomers
	case s.HasRole(enum.RoleInstitutional):
		return HomeDeliveries
	}
	return HomeDefault
}

// Login authenticates against the gateway and persists the token.
func (s *Session) Login(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return ErrMissingFields
	}

	token, user, err := s.auth.Login(ctx, email, password)
	if err != nil {
		s.set(StatusUnauthenticated, "", nil)
		return err
	}
	if user.ID == "" {
		// Older gateway builds return only the token.
		if claims, cerr := IdentityFromToken(token); cerr == nil {
			user = claims.User()
		}
	}

	s.set(StatusAuthenticated, token, &user)
	if err := s.store.Save(Saved{Token: token, User: user}); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// CheckStatus restores a persisted session and verifies it with the gateway.
func (s *Session) CheckStatus(ctx context.Context) (Status, error) {
	saved, err := s.store.Load()
	if err != nil {
		s.set(StatusUnauthenticated, "", nil)
		return StatusUnauthenticated, fmt.Errorf("load session: %w", err)
	}
	if saved == nil || saved.Token == "" {
		s.set(StatusUnauthenticated, "", nil)
		return StatusUnauthenticated, nil
	}

	valid, err := s.auth.VerifyToken(ctx, saved.Token)
	if err != nil || !valid {
		s.set(StatusUnauthenticated, "", nil)
		if clearErr := s.store.Clear(); clearErr != nil {
			return StatusUnauthenticated, fmt.Errorf("clear session: %w", clearErr)
		}
		return StatusUnauthenticated, err
	}

	user := saved.User
	if user.ID == "" {
		if claims, cerr := IdentityFromToken(saved.Token); cerr == nil {
			user = claims.User()
		}
	}
	s.set(StatusAuthenticated, saved.Token, &user)
	return StatusAuthenticated, nil
}

// Logout notifies the gateway and always drops the local token, even when
// the gateway call fails. The gateway error is returned.
func (s *Session) Logout(ctx context.Context) error {
	token := s.Token()
	var serverErr error
	if token != "" {
		serverErr = s.auth.Logout(ctx, token)
	}
	s.set(StatusUnauthenticated, "", nil)
	if err := s.store.Clear(); err != nil {
		return errors.Join(serverErr, fmt.Errorf("clear session: %w", err))
	}
	return serverErr
}

func (s *Session) set(status Status, token string, user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.token = token
	s.user = user
}

// MemoryStore keeps the session for the lifetime of the process.
type MemoryStore struct {
	mu    sync.Mutex
	saved *Saved
}

func (m *MemoryStore) Load() (*Saved, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		return nil, nil
	}
	s := *m.saved
	return &s, nil
}

func (m *MemoryStore) Save(s Saved) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = &s
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = nil
	return nil
}

// FileStore persists the session as a YAML file readable only by the owner.
type FileStore struct {
	Path string
}

func (f FileStore) Load() (*Saved, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s Saved
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.Path, err)
	}
	return &s, nil
}

func (f FileStore) Save(s Saved) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(f.Path, data, 0o600)
}

func (f FileStore) Clear() error {
	err := os.Remove(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
