package redis

import (
	"fmt"
	"strings"

	"github.com/isepctf/ctfportal/internal/model"
)

// Key prefix for all portal data
const keyPrefix = "ctfportal"

// Key generation functions for each entity type

// accountKey returns the Redis key for an Account
func accountKey(id model.AccountID) string {
	return fmt.Sprintf("%s:account:%s", keyPrefix, id)
}

// credentialKey returns the Redis key for an account's Credential
func credentialKey(id model.AccountID) string {
	return fmt.Sprintf("%s:credential:%s", keyPrefix, id)
}

// accountsIndexKey returns the Redis key for the SET of all account IDs
func accountsIndexKey() string {
	return fmt.Sprintf("%s:idx:accounts", keyPrefix)
}

// usernameIndexKey returns the Redis key for the username -> account_id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, normalize(username))
}

// emailIndexKey returns the Redis key for the email -> account_id index
func emailIndexKey(email string) string {
	return fmt.Sprintf("%s:idx:email:%s", keyPrefix, normalize(email))
}

// teamKey returns the Redis key for a Team
func teamKey(id model.TeamID) string {
	return fmt.Sprintf("%s:team:%s", keyPrefix, id)
}

// teamNameIndexKey returns the Redis key for the team name -> team_id index
func teamNameIndexKey(name string) string {
	return fmt.Sprintf("%s:idx:team_name:%s", keyPrefix, normalize(name))
}

// inviteIndexKey returns the Redis key for the invite token -> team_id index
func inviteIndexKey(token string) string {
	return fmt.Sprintf("%s:idx:invite:%s", keyPrefix, token)
}

// contactMessagesKey returns the Redis key for the LIST of contact messages
func contactMessagesKey() string {
	return fmt.Sprintf("%s:contact_messages", keyPrefix)
}

// normalize makes identifier lookups case-insensitive
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
