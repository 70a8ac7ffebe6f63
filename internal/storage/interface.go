package storage

import (
	"context"

	"github.com/isepctf/ctfportal/internal/model"
)

// Storage defines the interface for data persistence.
// Implementations enforce identifier uniqueness; services never assume it.
type Storage interface {
	// Account operations
	// CreateAccount stores a new account and its credential atomically.
	// Returns model.ErrUsernameTaken or model.ErrEmailTaken on conflicts.
	CreateAccount(ctx context.Context, account *model.Account, cred *model.Credential) error
	UpdateAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, id model.AccountID) (*model.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*model.Account, error)
	// ListAccounts returns all accounts, oldest first
	ListAccounts(ctx context.Context) ([]*model.Account, error)
	DeleteAccount(ctx context.Context, id model.AccountID) error

	// Credential operations
	SaveCredential(ctx context.Context, cred *model.Credential) error
	GetCredential(ctx context.Context, id model.AccountID) (*model.Credential, error)

	// Team operations
	// CreateTeam returns model.ErrTeamNameTaken if the name is in use
	CreateTeam(ctx context.Context, team *model.Team) error
	// AddTeamMember appends member atomically and returns the updated team.
	// It returns model.ErrAlreadyInTeam if member already belongs to it.
	AddTeamMember(ctx context.Context, id model.TeamID, member model.AccountID) (*model.Team, error)
	GetTeam(ctx context.Context, id model.TeamID) (*model.Team, error)
	GetTeamByInviteToken(ctx context.Context, token string) (*model.Team, error)

	// Contact operations
	SaveContactMessage(ctx context.Context, msg *model.ContactMessage) error
	ListContactMessages(ctx context.Context) ([]*model.ContactMessage, error)
}
