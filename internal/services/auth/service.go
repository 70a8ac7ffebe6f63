package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/isepctf/ctfportal/internal/dependencies/clock"
	"github.com/isepctf/ctfportal/internal/model"
	"github.com/isepctf/ctfportal/internal/services/credential"
	"github.com/isepctf/ctfportal/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrIdentityRequired   = errors.New("username and email are required")
	ErrBootstrapRejected  = errors.New("bootstrap admin password rejected")
)

// Session represents an authenticated session
type Session struct {
	Token     string
	AccountID model.AccountID
	Account   model.Account
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Service handles registration, login, password changes and sessions
type Service struct {
	storage  storage.Storage
	clock    clock.Clock
	logger   *slog.Logger
	observer credential.Observer

	mu       sync.RWMutex
	sessions map[string]*Session

	sessionDuration time.Duration
	bcryptCost      int
}

// Config holds configuration for the auth service
type Config struct {
	SessionDuration time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost
	BcryptCost int
	// Observer is told about every credential submission (optional)
	Observer credential.Observer
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		SessionDuration: 24 * time.Hour,
		BcryptCost:      bcrypt.DefaultCost,
	}
}

// New creates a new auth Service
func New(storage storage.Storage, clock clock.Clock, cfg Config, logger *slog.Logger) *Service {
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = DefaultConfig().SessionDuration
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = DefaultConfig().BcryptCost
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Service{
		storage:         storage,
		clock:           clock,
		logger:          logger.With(slog.String("component", "auth")),
		observer:        cfg.Observer,
		sessions:        make(map[string]*Session),
		sessionDuration: cfg.SessionDuration,
		bcryptCost:      cfg.BcryptCost,
	}
}

// Registration is a self-service sign-up attempt
type Registration struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
}

// Register validates the new password through the credential workflow and,
// when accepted, creates the account and a session for it.
// A rejected registration returns the workflow result and a nil session.
func (s *Service) Register(ctx context.Context, reg Registration) (credential.Result, *Session, error) {
	account, result, err := s.register(ctx, reg, model.RoleUser)
	if err != nil || result.Rejected() {
		return result, nil, err
	}

	session, err := s.createSession(account)
	return result, session, err
}

func (s *Service) register(ctx context.Context, reg Registration, role model.Role) (*model.Account, credential.Result, error) {
	username := strings.TrimSpace(reg.Username)
	email := strings.TrimSpace(reg.Email)
	if username == "" || email == "" {
		return nil, credential.Result{}, ErrIdentityRequired
	}

	now := s.clock.Now()
	account := &model.Account{
		ID:        model.AccountID(uuid.NewString()),
		Username:  username,
		Email:     email,
		Role:      role,
		Status:    model.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	persister := credential.PersisterFunc(func(ctx context.Context, target model.AccountID, secret string) error {
		hash, err := s.hash(secret)
		if err != nil {
			return err
		}
		cred := &model.Credential{AccountID: target, PasswordHash: hash, UpdatedAt: now}
		return s.storage.CreateAccount(ctx, account, cred)
	})

	// Self-registration always targets the identity being created
	result, err := s.workflow(persister).Submit(ctx, credential.Request{
		Target:        account.ID,
		Candidate:     reg.Password,
		Confirmation:  reg.PasswordConfirm,
		Authorization: credential.Allow,
	})
	if err != nil {
		return nil, result, err
	}
	if result.Accepted {
		s.logger.Info("account registered",
			slog.String("account_id", string(account.ID)),
			slog.String("role", string(role)))
	}
	return account, result, nil
}

// Login authenticates an account by email and creates a session
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	account, err := s.storage.GetAccountByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	cred, err := s.storage.GetCredential(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	if !CompareSecret(cred.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	// Checked after the password so suspension does not reveal which emails exist
	if account.IsSuspended() {
		return nil, model.ErrAccountSuspended
	}

	return s.createSession(account)
}

// ChangePassword runs a password change for target on behalf of the actor.
// Admins may change any account; everyone else only their own.
// On success every other session of the target is invalidated.
func (s *Service) ChangePassword(ctx context.Context, actor *Session, target model.AccountID, password, confirm string) (credential.Result, error) {
	persister := credential.PersisterFunc(func(ctx context.Context, target model.AccountID, secret string) error {
		hash, err := s.hash(secret)
		if err != nil {
			return err
		}
		return s.storage.SaveCredential(ctx, &model.Credential{
			AccountID:    target,
			PasswordHash: hash,
			UpdatedAt:    s.clock.Now(),
		})
	})

	var authz credential.Authorization = credential.Deny
	if actor != nil {
		authz = AuthorizationFor(actor.Account)
	}

	result, err := s.workflow(persister).Submit(ctx, credential.Request{
		Target:        target,
		Candidate:     password,
		Confirmation:  confirm,
		Authorization: authz,
	})
	if err != nil || result.Rejected() {
		return result, err
	}

	s.InvalidateAccountSessions(target, actor.Token)
	s.logger.Info("password changed",
		slog.String("account_id", string(target)),
		slog.String("actor_id", string(actor.AccountID)))
	return result, nil
}

// EnsureAdmin makes sure an admin account with the given identity exists.
// An existing account with that email is promoted; otherwise a new one is
// registered, and its password must satisfy the policy like any other.
func (s *Service) EnsureAdmin(ctx context.Context, username, email, password string) (*model.Account, error) {
	existing, err := s.storage.GetAccountByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.IsAdmin() {
			return existing, nil
		}
		existing.Role = model.RoleAdmin
		existing.UpdatedAt = s.clock.Now()
		if err := s.storage.UpdateAccount(ctx, existing); err != nil {
			return nil, err
		}
		s.logger.Info("account promoted to admin", slog.String("account_id", string(existing.ID)))
		return existing, nil
	case !errors.Is(err, model.ErrAccountNotFound):
		return nil, err
	}

	account, result, err := s.register(ctx, Registration{
		Username:        username,
		Email:           email,
		Password:        password,
		PasswordConfirm: password,
	}, model.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if result.Rejected() {
		return nil, fmt.Errorf("%w: %s", ErrBootstrapRejected, result.Reason)
	}
	return account, nil
}

// ValidateSession checks if a session token is valid and returns the session
func (s *Service) ValidateSession(token string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidSession
	}

	if s.clock.Now().After(session.ExpiresAt) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return nil, ErrInvalidSession
	}

	return session, nil
}

// InvalidateSession removes a session
func (s *Service) InvalidateSession(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// InvalidateAccountSessions removes every session of an account except keep
func (s *Service) InvalidateAccountSessions(id model.AccountID, keep string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, session := range s.sessions {
		if session.AccountID == id && token != keep {
			delete(s.sessions, token)
		}
	}
}

// GetAccount returns the account for a session token
func (s *Service) GetAccount(token string) (*model.Account, error) {
	session, err := s.ValidateSession(token)
	if err != nil {
		return nil, err
	}
	return &session.Account, nil
}

// CleanExpiredSessions removes expired sessions (call periodically)
func (s *Service) CleanExpiredSessions() {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, token)
		}
	}
}

func (s *Service) workflow(p credential.Persister) *credential.Workflow {
	if s.observer == nil {
		return credential.NewWorkflow(p)
	}
	return credential.NewWorkflow(p, credential.WithObserver(s.observer))
}

func (s *Service) hash(secret string) (string, error) {
	return HashSecret(secret, s.bcryptCost)
}

// createSession creates a new session for an account
func (s *Service) createSession(account *model.Account) (*Session, error) {
	token := generateToken("sess_")
	now := s.clock.Now()

	session := &Session{
		Token:     token,
		AccountID: account.ID,
		Account:   *account,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionDuration),
	}

	s.mu.Lock()
	s.sessions[token] = session
	s.mu.Unlock()

	return session, nil
}

// generateToken generates an unguessable token with a prefix
func generateToken(prefix string) string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return prefix + base64.RawURLEncoding.EncodeToString(b)
}
