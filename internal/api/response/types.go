package response

import (
	"strings"
	"time"

	"github.com/isepctf/ctfportal/internal/model"
	"github.com/isepctf/ctfportal/internal/services/auth"
	"github.com/isepctf/ctfportal/internal/services/countdown"
	"github.com/isepctf/ctfportal/internal/services/policy"
	"github.com/isepctf/ctfportal/internal/services/team"
)

// Account represents an account in API responses
type Account struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// AccountFromModel converts a model.Account to a response Account
func AccountFromModel(a *model.Account) Account {
	return Account{
		ID:        string(a.ID),
		Username:  a.Username,
		Email:     a.Email,
		Role:      string(a.Role),
		Status:    string(a.Status),
		CreatedAt: a.CreatedAt,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	Account      Account `json:"account"`
	SessionToken string  `json:"session_token"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		Account:      AccountFromModel(&s.Account),
		SessionToken: s.Token,
	}
}

// Policy is the strength breakdown of a candidate password
type Policy struct {
	Score      int      `json:"score"`
	Category   string   `json:"category"`
	Acceptable bool     `json:"acceptable"`
	Satisfied  []string `json:"satisfied"`
	Missing    []string `json:"missing"`
}

// PolicyFromResult converts a policy.Result. Missing rules carry their
// user-facing description.
func PolicyFromResult(r policy.Result) Policy {
	p := Policy{
		Score:      r.Score,
		Category:   strings.ToLower(string(r.Category)),
		Acceptable: r.Acceptable,
		Satisfied:  []string{},
		Missing:    []string{},
	}
	for _, rule := range policy.Rules {
		if r.Satisfied.Has(rule) {
			p.Satisfied = append(p.Satisfied, rule.String())
		}
	}
	for _, rule := range r.Missing() {
		p.Missing = append(p.Missing, rule.Description())
	}
	return p
}

// Projection is the live feedback for a password and its confirmation
type Projection struct {
	Policy       Policy `json:"policy"`
	SecretsMatch bool   `json:"secrets_match"`
	ShowMismatch bool   `json:"show_mismatch"`
}

// ProjectionFromModel converts a policy.Projection
func ProjectionFromModel(p policy.Projection, confirmation string) Projection {
	return Projection{
		Policy:       PolicyFromResult(p.Policy),
		SecretsMatch: p.SecretsMatch,
		ShowMismatch: p.ShowMismatch(confirmation),
	}
}

// RosterEntry is one account as listed for admins
type RosterEntry struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

// Roster is the admin account list
type Roster struct {
	Accounts []RosterEntry `json:"accounts"`
}

// RosterFromModel converts a model.Roster
func RosterFromModel(r model.Roster) Roster {
	entries := r.Entries()
	out := Roster{Accounts: make([]RosterEntry, len(entries))}
	for i, e := range entries {
		out.Accounts[i] = RosterEntry{
			ID:       string(e.ID),
			Username: e.Username,
			Role:     string(e.Role),
			Status:   string(e.Status),
		}
	}
	return out
}

// Team represents a team in API responses.
// The invite link is only shown to members.
type Team struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	OwnerID    string    `json:"owner_id"`
	Members    []string  `json:"members"`
	InviteLink string    `json:"invite_link,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// TeamFromModel converts a model.Team as seen by viewer
func TeamFromModel(t *model.Team, viewer model.AccountID) Team {
	out := Team{
		ID:        string(t.ID),
		Name:      t.Name,
		OwnerID:   string(t.OwnerID),
		Members:   make([]string, len(t.Members)),
		CreatedAt: t.CreatedAt,
	}
	for i, m := range t.Members {
		out.Members[i] = string(m)
	}
	if t.HasMember(viewer) {
		out.InviteLink = team.InviteLink(t)
	}
	return out
}

// Countdown is the state of the competition clock
type Countdown struct {
	RemainingSeconds int64  `json:"remaining_seconds"`
	Running          bool   `json:"running"`
	Detonating       bool   `json:"detonating"`
	Display          string `json:"display"`
}

// CountdownFromSnapshot converts a countdown.Snapshot
func CountdownFromSnapshot(s countdown.Snapshot) Countdown {
	return Countdown{
		RemainingSeconds: int64(s.Remaining / time.Second),
		Running:          s.Running,
		Detonating:       s.Detonating,
		Display:          s.Display,
	}
}

// ContactReceipt acknowledges a contact message
type ContactReceipt struct {
	ID         string    `json:"id"`
	ReceivedAt time.Time `json:"received_at"`
}

// ContactMessage is a stored contact message as listed for admins
type ContactMessage struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Message    string    `json:"message"`
	ReceivedAt time.Time `json:"received_at"`
}

// ContactMessageFromModel converts a model.ContactMessage
func ContactMessageFromModel(m *model.ContactMessage) ContactMessage {
	return ContactMessage{
		ID:         m.ID,
		Name:       m.Name,
		Email:      m.Email,
		Message:    m.Message,
		ReceivedAt: m.ReceivedAt,
	}
}

// Health is the health check response
type Health struct {
	Status string `json:"status"`
}
