// Package admin implements the account roster operations of the admin panel.
package admin

import (
	"context"
	"io"
	"log/slog"

	"github.com/isepctf/ctfportal/internal/dependencies/clock"
	"github.com/isepctf/ctfportal/internal/model"
	"github.com/isepctf/ctfportal/internal/storage"
)

// SessionRevoker ends the sessions of an account
type SessionRevoker interface {
	InvalidateAccountSessions(id model.AccountID, keep string)
}

// Service applies roster changes to storage.
// Every operation returns a fresh snapshot; callers never share one.
type Service struct {
	storage  storage.Storage
	clock    clock.Clock
	sessions SessionRevoker
	logger   *slog.Logger
}

// New creates a new admin Service
func New(storage storage.Storage, clock clock.Clock, sessions SessionRevoker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Service{
		storage:  storage,
		clock:    clock,
		sessions: sessions,
		logger:   logger.With(slog.String("component", "admin")),
	}
}

// Roster returns the current roster, oldest account first
func (s *Service) Roster(ctx context.Context, actor model.Account) (model.Roster, error) {
	if err := requireAdmin(actor); err != nil {
		return model.Roster{}, err
	}
	return s.load(ctx)
}

// Account returns one account for the admin's password change page
func (s *Service) Account(ctx context.Context, actor model.Account, id model.AccountID) (*model.Account, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.storage.GetAccount(ctx, id)
}

// Suspend bars an account from signing in and ends its sessions
func (s *Service) Suspend(ctx context.Context, actor model.Account, target model.AccountID) (model.Roster, error) {
	return s.setStatus(ctx, actor, target, model.StatusSuspended, model.Roster.Suspend)
}

// Reinstate lifts a suspension
func (s *Service) Reinstate(ctx context.Context, actor model.Account, target model.AccountID) (model.Roster, error) {
	return s.setStatus(ctx, actor, target, model.StatusActive, model.Roster.Reinstate)
}

// Remove deletes an account and ends its sessions
func (s *Service) Remove(ctx context.Context, actor model.Account, target model.AccountID) (model.Roster, error) {
	roster, err := s.prepare(ctx, actor, target)
	if err != nil {
		return model.Roster{}, err
	}

	next, err := roster.Remove(target)
	if err != nil {
		return model.Roster{}, err
	}

	if err := s.storage.DeleteAccount(ctx, target); err != nil {
		return model.Roster{}, err
	}
	s.sessions.InvalidateAccountSessions(target, "")

	s.logger.Info("account removed",
		slog.String("account_id", string(target)),
		slog.String("actor_id", string(actor.ID)))
	return next, nil
}

func (s *Service) setStatus(
	ctx context.Context,
	actor model.Account,
	target model.AccountID,
	status model.AccountStatus,
	apply func(model.Roster, model.AccountID) (model.Roster, error),
) (model.Roster, error) {
	roster, err := s.prepare(ctx, actor, target)
	if err != nil {
		return model.Roster{}, err
	}

	next, err := apply(roster, target)
	if err != nil {
		return model.Roster{}, err
	}

	account, err := s.storage.GetAccount(ctx, target)
	if err != nil {
		return model.Roster{}, err
	}
	account.Status = status
	account.UpdatedAt = s.clock.Now()
	if err := s.storage.UpdateAccount(ctx, account); err != nil {
		return model.Roster{}, err
	}

	if status == model.StatusSuspended {
		s.sessions.InvalidateAccountSessions(target, "")
	}

	s.logger.Info("account status changed",
		slog.String("account_id", string(target)),
		slog.String("status", string(status)),
		slog.String("actor_id", string(actor.ID)))
	return next, nil
}

func (s *Service) prepare(ctx context.Context, actor model.Account, target model.AccountID) (model.Roster, error) {
	if err := requireAdmin(actor); err != nil {
		return model.Roster{}, err
	}
	if actor.ID == target {
		return model.Roster{}, model.ErrSelfModification
	}
	return s.load(ctx)
}

func (s *Service) load(ctx context.Context) (model.Roster, error) {
	accounts, err := s.storage.ListAccounts(ctx)
	if err != nil {
		return model.Roster{}, err
	}
	return model.NewRoster(accounts), nil
}

func requireAdmin(actor model.Account) error {
	if !actor.IsAdmin() || actor.IsSuspended() {
		return model.ErrNotAdmin
	}
	return nil
}
