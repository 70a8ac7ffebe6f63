// Package storagetest holds the behavior every storage backend must share.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/isepctf/ctfportal/internal/model"
	"github.com/isepctf/ctfportal/internal/storage"
)

// Suite runs the common storage contract against a backend.
// Embed it and set Storage in SetupTest.
type Suite struct {
	suite.Suite
	Storage storage.Storage
	Ctx     context.Context
}

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func NewAccount(id, username, email string, offset time.Duration) (*model.Account, *model.Credential) {
	created := epoch.Add(offset)
	return &model.Account{
			ID:        model.AccountID(id),
			Username:  username,
			Email:     email,
			Role:      model.RoleUser,
			Status:    model.StatusActive,
			CreatedAt: created,
			UpdatedAt: created,
		}, &model.Credential{
			AccountID:    model.AccountID(id),
			PasswordHash: "hash-" + id,
			UpdatedAt:    created,
		}
}

func (s *Suite) mustCreate(id, username, email string, offset time.Duration) *model.Account {
	account, cred := NewAccount(id, username, email, offset)
	s.Require().NoError(s.Storage.CreateAccount(s.Ctx, account, cred))
	return account
}

func (s *Suite) TestCreateAndGetAccount() {
	account := s.mustCreate("a1", "alice", "alice@example.com", 0)

	got, err := s.Storage.GetAccount(s.Ctx, "a1")
	s.Require().NoError(err)
	s.Equal(account.Username, got.Username)
	s.Equal(account.Email, got.Email)
	s.Equal(model.RoleUser, got.Role)
	s.True(account.CreatedAt.Equal(got.CreatedAt))
}

func (s *Suite) TestGetAccountNotFound() {
	_, err := s.Storage.GetAccount(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrAccountNotFound)

	_, err = s.Storage.GetAccountByEmail(s.Ctx, "nobody@example.com")
	s.ErrorIs(err, model.ErrAccountNotFound)

	_, err = s.Storage.GetAccountByUsername(s.Ctx, "nobody")
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *Suite) TestLookupsIgnoreCase() {
	s.mustCreate("a1", "Alice", "Alice@Example.com", 0)

	got, err := s.Storage.GetAccountByEmail(s.Ctx, " alice@example.COM ")
	s.Require().NoError(err)
	s.Equal(model.AccountID("a1"), got.ID)

	got, err = s.Storage.GetAccountByUsername(s.Ctx, "ALICE")
	s.Require().NoError(err)
	s.Equal(model.AccountID("a1"), got.ID)
}

func (s *Suite) TestUsernameMustBeUnique() {
	s.mustCreate("a1", "alice", "alice@example.com", 0)

	account, cred := NewAccount("a2", "ALICE", "other@example.com", time.Second)
	err := s.Storage.CreateAccount(s.Ctx, account, cred)
	s.ErrorIs(err, model.ErrUsernameTaken)

	_, err = s.Storage.GetAccount(s.Ctx, "a2")
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *Suite) TestEmailMustBeUnique() {
	s.mustCreate("a1", "alice", "alice@example.com", 0)

	account, cred := NewAccount("a2", "bob", "Alice@example.com", time.Second)
	err := s.Storage.CreateAccount(s.Ctx, account, cred)
	s.ErrorIs(err, model.ErrEmailTaken)

	// The rejected username stays available
	s.mustCreate("a3", "bob", "bob@example.com", 2*time.Second)
}

func (s *Suite) TestUpdateAccountKeepsIdentifiers() {
	account := s.mustCreate("a1", "alice", "alice@example.com", 0)

	account.Status = model.StatusSuspended
	account.Username = "mallory"
	account.UpdatedAt = epoch.Add(time.Hour)
	s.Require().NoError(s.Storage.UpdateAccount(s.Ctx, account))

	got, err := s.Storage.GetAccount(s.Ctx, "a1")
	s.Require().NoError(err)
	s.Equal(model.StatusSuspended, got.Status)
	s.Equal("alice", got.Username)
	s.True(got.UpdatedAt.Equal(epoch.Add(time.Hour)))
}

func (s *Suite) TestUpdateMissingAccount() {
	account, _ := NewAccount("ghost", "ghost", "ghost@example.com", 0)
	s.ErrorIs(s.Storage.UpdateAccount(s.Ctx, account), model.ErrAccountNotFound)
}

func (s *Suite) TestListAccountsOldestFirst() {
	s.mustCreate("c", "carol", "carol@example.com", 2*time.Minute)
	s.mustCreate("a", "alice", "alice@example.com", 0)
	s.mustCreate("b", "bob", "bob@example.com", time.Minute)

	accounts, err := s.Storage.ListAccounts(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(accounts, 3)
	s.Equal(model.AccountID("a"), accounts[0].ID)
	s.Equal(model.AccountID("b"), accounts[1].ID)
	s.Equal(model.AccountID("c"), accounts[2].ID)
}

func (s *Suite) TestListAccountsEmpty() {
	accounts, err := s.Storage.ListAccounts(s.Ctx)
	s.Require().NoError(err)
	s.Empty(accounts)
}

func (s *Suite) TestDeleteAccountFreesIdentifiers() {
	s.mustCreate("a1", "alice", "alice@example.com", 0)
	s.Require().NoError(s.Storage.DeleteAccount(s.Ctx, "a1"))

	_, err := s.Storage.GetAccount(s.Ctx, "a1")
	s.ErrorIs(err, model.ErrAccountNotFound)
	_, err = s.Storage.GetCredential(s.Ctx, "a1")
	s.ErrorIs(err, model.ErrAccountNotFound)

	s.mustCreate("a2", "alice", "alice@example.com", time.Second)

	s.ErrorIs(s.Storage.DeleteAccount(s.Ctx, "a1"), model.ErrAccountNotFound)
}

func (s *Suite) TestCredentials() {
	s.mustCreate("a1", "alice", "alice@example.com", 0)

	cred, err := s.Storage.GetCredential(s.Ctx, "a1")
	s.Require().NoError(err)
	s.Equal("hash-a1", cred.PasswordHash)

	s.Require().NoError(s.Storage.SaveCredential(s.Ctx, &model.Credential{
		AccountID:    "a1",
		PasswordHash: "rotated",
		UpdatedAt:    epoch.Add(time.Hour),
	}))

	cred, err = s.Storage.GetCredential(s.Ctx, "a1")
	s.Require().NoError(err)
	s.Equal("rotated", cred.PasswordHash)

	err = s.Storage.SaveCredential(s.Ctx, &model.Credential{AccountID: "ghost"})
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *Suite) newTeam(id, name, token string) *model.Team {
	return &model.Team{
		ID:           model.TeamID(id),
		Name:         name,
		OwnerID:      "a1",
		PasswordHash: "team-hash",
		InviteToken:  token,
		Members:      []model.AccountID{"a1"},
		CreatedAt:    epoch,
	}
}

func (s *Suite) TestTeams() {
	team := s.newTeam("t1", "Root Hunters", "tok12345")
	s.Require().NoError(s.Storage.CreateTeam(s.Ctx, team))

	got, err := s.Storage.GetTeam(s.Ctx, "t1")
	s.Require().NoError(err)
	s.Equal("Root Hunters", got.Name)
	s.Equal([]model.AccountID{"a1"}, got.Members)

	got, err = s.Storage.GetTeamByInviteToken(s.Ctx, "tok12345")
	s.Require().NoError(err)
	s.Equal(model.TeamID("t1"), got.ID)

	added, err := s.Storage.AddTeamMember(s.Ctx, "t1", "a2")
	s.Require().NoError(err)
	s.Equal([]model.AccountID{"a1", "a2"}, added.Members)

	got, err = s.Storage.GetTeam(s.Ctx, "t1")
	s.Require().NoError(err)
	s.Equal([]model.AccountID{"a1", "a2"}, got.Members)

	_, err = s.Storage.AddTeamMember(s.Ctx, "t1", "a2")
	s.ErrorIs(err, model.ErrAlreadyInTeam)
}

func (s *Suite) TestConcurrentJoinsKeepEveryMember() {
	s.Require().NoError(s.Storage.CreateTeam(s.Ctx, s.newTeam("t1", "Root Hunters", "tok1")))

	const joiners = 8
	var wg sync.WaitGroup
	errs := make(chan error, joiners)
	for i := range joiners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Storage.AddTeamMember(s.Ctx, "t1", model.AccountID(fmt.Sprintf("m%d", i)))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.NoError(err)
	}

	got, err := s.Storage.GetTeam(s.Ctx, "t1")
	s.Require().NoError(err)
	s.Len(got.Members, joiners+1)
}

func (s *Suite) TestTeamNameMustBeUnique() {
	s.Require().NoError(s.Storage.CreateTeam(s.Ctx, s.newTeam("t1", "Root Hunters", "tok1")))
	err := s.Storage.CreateTeam(s.Ctx, s.newTeam("t2", "root hunters", "tok2"))
	s.ErrorIs(err, model.ErrTeamNameTaken)
}

func (s *Suite) TestTeamNotFound() {
	_, err := s.Storage.GetTeam(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrTeamNotFound)

	_, err = s.Storage.GetTeamByInviteToken(s.Ctx, "nope")
	s.ErrorIs(err, model.ErrTeamNotFound)

	_, err = s.Storage.AddTeamMember(s.Ctx, "missing", "a1")
	s.ErrorIs(err, model.ErrTeamNotFound)
}

func (s *Suite) TestContactMessagesKeepArrivalOrder() {
	for i, name := range []string{"first", "second"} {
		s.Require().NoError(s.Storage.SaveContactMessage(s.Ctx, &model.ContactMessage{
			ID:         name,
			Name:       name,
			Email:      name + "@example.com",
			Message:    "hello",
			ReceivedAt: epoch.Add(time.Duration(i) * time.Minute),
		}))
	}

	messages, err := s.Storage.ListContactMessages(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(messages, 2)
	s.Equal("first", messages[0].ID)
	s.Equal("second", messages[1].ID)
}
