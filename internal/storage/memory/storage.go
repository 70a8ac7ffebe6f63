package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/isepctf/ctfportal/internal/model"
	"github.com/isepctf/ctfportal/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Values are copied on the way in and out so callers never share state.
type Storage struct {
	mu sync.RWMutex

	accounts      map[model.AccountID]*model.Account
	credentials   map[model.AccountID]*model.Credential
	usernameIndex map[string]model.AccountID
	emailIndex    map[string]model.AccountID
	teams         map[model.TeamID]*model.Team
	teamNameIndex map[string]model.TeamID
	inviteIndex   map[string]model.TeamID
	messages      []*model.ContactMessage
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		accounts:      make(map[model.AccountID]*model.Account),
		credentials:   make(map[model.AccountID]*model.Credential),
		usernameIndex: make(map[string]model.AccountID),
		emailIndex:    make(map[string]model.AccountID),
		teams:         make(map[model.TeamID]*model.Team),
		teamNameIndex: make(map[string]model.TeamID),
		inviteIndex:   make(map[string]model.TeamID),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Account operations

func (s *Storage) CreateAccount(ctx context.Context, account *model.Account, cred *model.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := normalize(account.Username)
	email := normalize(account.Email)
	if _, ok := s.usernameIndex[username]; ok {
		return model.ErrUsernameTaken
	}
	if _, ok := s.emailIndex[email]; ok {
		return model.ErrEmailTaken
	}

	a := *account
	c := *cred
	s.accounts[a.ID] = &a
	s.credentials[a.ID] = &c
	s.usernameIndex[username] = a.ID
	s.emailIndex[email] = a.ID
	return nil
}

func (s *Storage) UpdateAccount(ctx context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.accounts[account.ID]
	if !ok {
		return model.ErrAccountNotFound
	}
	// Identifiers are immutable; only mutable fields are taken
	updated := *existing
	updated.Role = account.Role
	updated.Status = account.Status
	updated.UpdatedAt = account.UpdatedAt
	s.accounts[account.ID] = &updated
	return nil
}

func (s *Storage) GetAccount(ctx context.Context, id model.AccountID) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	a := *account
	return &a, nil
}

func (s *Storage) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	s.mu.RLock()
	id, ok := s.emailIndex[normalize(email)]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	return s.GetAccount(ctx, id)
}

func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	s.mu.RLock()
	id, ok := s.usernameIndex[normalize(username)]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	return s.GetAccount(ctx, id)
}

func (s *Storage) ListAccounts(ctx context.Context) ([]*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	accounts := make([]*model.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		a := *account
		accounts = append(accounts, &a)
	}
	sortAccounts(accounts)
	return accounts, nil
}

func (s *Storage) DeleteAccount(ctx context.Context, id model.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return model.ErrAccountNotFound
	}
	delete(s.usernameIndex, normalize(account.Username))
	delete(s.emailIndex, normalize(account.Email))
	delete(s.credentials, id)
	delete(s.accounts, id)
	return nil
}

// Credential operations

func (s *Storage) SaveCredential(ctx context.Context, cred *model.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[cred.AccountID]; !ok {
		return model.ErrAccountNotFound
	}
	c := *cred
	s.credentials[cred.AccountID] = &c
	return nil
}

func (s *Storage) GetCredential(ctx context.Context, id model.AccountID) (*model.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.credentials[id]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	c := *cred
	return &c, nil
}

// Team operations

func (s *Storage) CreateTeam(ctx context.Context, team *model.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := normalize(team.Name)
	if _, ok := s.teamNameIndex[name]; ok {
		return model.ErrTeamNameTaken
	}
	t := copyTeam(team)
	s.teams[t.ID] = t
	s.teamNameIndex[name] = t.ID
	s.inviteIndex[t.InviteToken] = t.ID
	return nil
}

func (s *Storage) AddTeamMember(ctx context.Context, id model.TeamID, member model.AccountID) (*model.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	team, ok := s.teams[id]
	if !ok {
		return nil, model.ErrTeamNotFound
	}
	if team.HasMember(member) {
		return nil, model.ErrAlreadyInTeam
	}
	team.Members = append(team.Members, member)
	return copyTeam(team), nil
}

func (s *Storage) GetTeam(ctx context.Context, id model.TeamID) (*model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	team, ok := s.teams[id]
	if !ok {
		return nil, model.ErrTeamNotFound
	}
	return copyTeam(team), nil
}

func (s *Storage) GetTeamByInviteToken(ctx context.Context, token string) (*model.Team, error) {
	s.mu.RLock()
	id, ok := s.inviteIndex[token]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrTeamNotFound
	}
	return s.GetTeam(ctx, id)
}

// Contact operations

func (s *Storage) SaveContactMessage(ctx context.Context, msg *model.ContactMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := *msg
	s.messages = append(s.messages, &m)
	return nil
}

func (s *Storage) ListContactMessages(ctx context.Context) ([]*model.ContactMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*model.ContactMessage, 0, len(s.messages))
	for _, msg := range s.messages {
		m := *msg
		result = append(result, &m)
	}
	return result, nil
}

func copyTeam(t *model.Team) *model.Team {
	c := *t
	c.Members = append([]model.AccountID(nil), t.Members...)
	return &c
}

func sortAccounts(accounts []*model.Account) {
	sort.SliceStable(accounts, func(i, j int) bool {
		if accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].ID < accounts[j].ID
		}
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
}

// normalize makes identifier lookups case-insensitive
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
