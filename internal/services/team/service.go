// Package team lets competitors create password-protected teams and join
// them through invite links.
package team

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/isepctf/ctfportal/internal/dependencies/clock"
	"github.com/isepctf/ctfportal/internal/dependencies/random"
	"github.com/isepctf/ctfportal/internal/model"
	"github.com/isepctf/ctfportal/internal/services/auth"
	"github.com/isepctf/ctfportal/internal/services/policy"
	"github.com/isepctf/ctfportal/internal/storage"
)

const (
	// InviteTokenLength is the length of generated invite tokens
	InviteTokenLength = 8
	// MinPasswordLength is the shortest accepted team password
	MinPasswordLength = 8
	// JoinPath is where invite links point
	JoinPath = "/join-team"
)

var (
	ErrNameRequired     = errors.New("team name is required")
	ErrPasswordTooShort = errors.New("team password must be at least 8 characters")
	ErrWrongPassword    = errors.New("wrong team password")
)

// Service manages teams
type Service struct {
	storage    storage.Storage
	clock      clock.Clock
	random     random.Random
	bcryptCost int
}

// New creates a new team Service. A zero bcryptCost means bcrypt.DefaultCost.
func New(storage storage.Storage, clock clock.Clock, random random.Random, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		storage:    storage,
		clock:      clock,
		random:     random,
		bcryptCost: bcryptCost,
	}
}

// Create makes a new team owned by owner, who becomes its first member
func (s *Service) Create(ctx context.Context, owner model.Account, name, password string) (*model.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if policy.Length(password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hash, err := auth.HashSecret(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	token, err := s.newInviteToken(ctx)
	if err != nil {
		return nil, err
	}

	team := &model.Team{
		ID:           model.TeamID(uuid.NewString()),
		Name:         name,
		OwnerID:      owner.ID,
		PasswordHash: hash,
		InviteToken:  token,
		Members:      []model.AccountID{owner.ID},
		CreatedAt:    s.clock.Now(),
	}

	if err := s.storage.CreateTeam(ctx, team); err != nil {
		return nil, err
	}
	return team, nil
}

// Join adds member to the team behind an invite token
func (s *Service) Join(ctx context.Context, member model.Account, token, password string) (*model.Team, error) {
	team, err := s.storage.GetTeamByInviteToken(ctx, strings.TrimSpace(token))
	if err != nil {
		return nil, err
	}

	if !auth.CompareSecret(team.PasswordHash, password) {
		return nil, ErrWrongPassword
	}

	return s.storage.AddTeamMember(ctx, team.ID, member.ID)
}

// Get returns a team by ID
func (s *Service) Get(ctx context.Context, id model.TeamID) (*model.Team, error) {
	return s.storage.GetTeam(ctx, id)
}

// ByInviteToken returns the team an invite token belongs to
func (s *Service) ByInviteToken(ctx context.Context, token string) (*model.Team, error) {
	if token == "" {
		return nil, model.ErrTeamNotFound
	}
	return s.storage.GetTeamByInviteToken(ctx, token)
}

const maxTokenAttempts = 10

// InviteLink returns the path a new member follows to join
func InviteLink(team *model.Team) string {
	return JoinPath + "?token=" + url.QueryEscape(team.InviteToken)
}

func (s *Service) newInviteToken(ctx context.Context) (string, error) {
	for range maxTokenAttempts {
		token := s.random.String(InviteTokenLength, random.Base36)
		_, err := s.storage.GetTeamByInviteToken(ctx, token)
		if errors.Is(err, model.ErrTeamNotFound) {
			return token, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", errors.New("could not generate a unique invite token")
}
