package auth

import (
	"github.com/isepctf/ctfportal/internal/model"
	"github.com/isepctf/ctfportal/internal/services/credential"
)

// actorAuthorization grants credential changes based on who is asking
type actorAuthorization struct {
	actor model.Account
}

// AuthorizationFor returns what the actor may change: admins any account,
// everyone else their own. Suspended actors may change nothing.
func AuthorizationFor(actor model.Account) credential.Authorization {
	return actorAuthorization{actor: actor}
}

func (a actorAuthorization) Permits(target model.AccountID) bool {
	if a.actor.IsSuspended() {
		return false
	}
	return a.actor.IsAdmin() || a.actor.ID == target
}
