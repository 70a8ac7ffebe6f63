package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/isepctf/ctfportal/internal/model"
	"github.com/isepctf/ctfportal/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Account operations

func (s *Storage) CreateAccount(ctx context.Context, account *model.Account, cred *model.Credential) error {
	accountData, err := json.Marshal(account)
	if err != nil {
		return err
	}
	credData, err := json.Marshal(cred)
	if err != nil {
		return err
	}

	// Claim both unique identifiers before writing anything else
	usernameKey := usernameIndexKey(account.Username)
	claimed, err := s.client.SetNX(ctx, usernameKey, string(account.ID), 0).Result()
	if err != nil {
		return err
	}
	if !claimed {
		return model.ErrUsernameTaken
	}

	claimed, err = s.client.SetNX(ctx, emailIndexKey(account.Email), string(account.ID), 0).Result()
	if err != nil || !claimed {
		// Release the username so a retry can succeed
		_ = s.client.Del(ctx, usernameKey).Err()
		if err != nil {
			return err
		}
		return model.ErrEmailTaken
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, accountKey(account.ID), accountData, 0)
	pipe.Set(ctx, credentialKey(account.ID), credData, 0)
	pipe.SAdd(ctx, accountsIndexKey(), string(account.ID))
	if _, err := pipe.Exec(ctx); err != nil {
		s.release(ctx, usernameKey, emailIndexKey(account.Email))
		return err
	}
	return nil
}

func (s *Storage) UpdateAccount(ctx context.Context, account *model.Account) error {
	existing, err := s.GetAccount(ctx, account.ID)
	if err != nil {
		return err
	}

	// Identifiers are immutable; only mutable fields are taken
	existing.Role = account.Role
	existing.Status = account.Status
	existing.UpdatedAt = account.UpdatedAt

	data, err := json.Marshal(existing)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, accountKey(account.ID), data, 0).Err()
}

func (s *Storage) GetAccount(ctx context.Context, id model.AccountID) (*model.Account, error) {
	data, err := s.client.Get(ctx, accountKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrAccountNotFound
		}
		return nil, err
	}

	var account model.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *Storage) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	return s.getAccountByIndex(ctx, emailIndexKey(email))
}

func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	return s.getAccountByIndex(ctx, usernameIndexKey(username))
}

func (s *Storage) getAccountByIndex(ctx context.Context, indexKey string) (*model.Account, error) {
	id, err := s.client.Get(ctx, indexKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrAccountNotFound
		}
		return nil, err
	}
	return s.GetAccount(ctx, model.AccountID(id))
}

func (s *Storage) ListAccounts(ctx context.Context) ([]*model.Account, error) {
	ids, err := s.client.SMembers(ctx, accountsIndexKey()).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.Account{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = accountKey(model.AccountID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	accounts := make([]*model.Account, 0, len(values))
	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue // Deleted between SMEMBERS and MGET
		}
		var account model.Account
		if err := json.Unmarshal([]byte(str), &account); err != nil {
			continue // Skip invalid data
		}
		accounts = append(accounts, &account)
	}

	sort.SliceStable(accounts, func(i, j int) bool {
		if accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].ID < accounts[j].ID
		}
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	return accounts, nil
}

func (s *Storage) DeleteAccount(ctx context.Context, id model.AccountID) error {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, accountKey(id), credentialKey(id))
	pipe.Del(ctx, usernameIndexKey(account.Username), emailIndexKey(account.Email))
	pipe.SRem(ctx, accountsIndexKey(), string(id))
	_, err = pipe.Exec(ctx)
	return err
}

// Credential operations

func (s *Storage) SaveCredential(ctx context.Context, cred *model.Credential) error {
	exists, err := s.client.Exists(ctx, accountKey(cred.AccountID)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return model.ErrAccountNotFound
	}

	data, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, credentialKey(cred.AccountID), data, 0).Err()
}

func (s *Storage) GetCredential(ctx context.Context, id model.AccountID) (*model.Credential, error) {
	data, err := s.client.Get(ctx, credentialKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrAccountNotFound
		}
		return nil, err
	}

	var cred model.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

// Team operations

func (s *Storage) CreateTeam(ctx context.Context, team *model.Team) error {
	data, err := json.Marshal(team)
	if err != nil {
		return err
	}

	nameKey := teamNameIndexKey(team.Name)
	claimed, err := s.client.SetNX(ctx, nameKey, string(team.ID), 0).Result()
	if err != nil {
		return err
	}
	if !claimed {
		return model.ErrTeamNameTaken
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, teamKey(team.ID), data, 0)
	pipe.Set(ctx, inviteIndexKey(team.InviteToken), string(team.ID), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		s.release(ctx, nameKey)
		return err
	}
	return nil
}

// release drops index claims after a failed write so the names can be
// used again. It runs even when ctx is already cancelled.
func (s *Storage) release(ctx context.Context, keys ...string) {
	_ = s.client.Del(context.WithoutCancel(ctx), keys...).Err()
}

// maxMemberRetries bounds optimistic retries when joins race on one team
const maxMemberRetries = 10

func (s *Storage) AddTeamMember(ctx context.Context, id model.TeamID, member model.AccountID) (*model.Team, error) {
	key := teamKey(id)

	var updated *model.Team
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrTeamNotFound
			}
			return err
		}

		var team model.Team
		if err := json.Unmarshal(data, &team); err != nil {
			return err
		}
		if team.HasMember(member) {
			return model.ErrAlreadyInTeam
		}
		team.Members = append(team.Members, member)

		out, err := json.Marshal(&team)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		if err == nil {
			updated = &team
		}
		return err
	}

	for range maxMemberRetries {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, redis.TxFailedErr
}

func (s *Storage) GetTeam(ctx context.Context, id model.TeamID) (*model.Team, error) {
	data, err := s.client.Get(ctx, teamKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrTeamNotFound
		}
		return nil, err
	}

	var team model.Team
	if err := json.Unmarshal(data, &team); err != nil {
		return nil, err
	}
	return &team, nil
}

func (s *Storage) GetTeamByInviteToken(ctx context.Context, token string) (*model.Team, error) {
	id, err := s.client.Get(ctx, inviteIndexKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrTeamNotFound
		}
		return nil, err
	}
	return s.GetTeam(ctx, model.TeamID(id))
}

// Contact operations

func (s *Storage) SaveContactMessage(ctx context.Context, msg *model.ContactMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, contactMessagesKey(), data)
	if s.cfg.MaxContactMessages > 0 {
		pipe.LTrim(ctx, contactMessagesKey(), -s.cfg.MaxContactMessages, -1)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) ListContactMessages(ctx context.Context) ([]*model.ContactMessage, error) {
	values, err := s.client.LRange(ctx, contactMessagesKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	messages := make([]*model.ContactMessage, 0, len(values))
	for _, val := range values {
		var msg model.ContactMessage
		if err := json.Unmarshal([]byte(val), &msg); err != nil {
			continue // Skip invalid data
		}
		messages = append(messages, &msg)
	}
	return messages, nil
}
