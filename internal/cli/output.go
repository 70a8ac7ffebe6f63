package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/isepctf/ctfportal/internal/services/policy"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Account:
		o.printAccount(v)
	case AuthResult:
		o.printAuthResult(v)
	case Policy:
		o.printPolicy(v)
	case Projection:
		o.printProjection(v)
	case Roster:
		o.printRoster(v)
	case Team:
		o.printTeam(v)
	case Countdown:
		o.printCountdown(v)
	case ContactReceipt:
		fmt.Fprintf(o.w, "Message %s received at %s\n", v.ID, v.ReceivedAt.Format(time.RFC3339))
	case []ContactMessage:
		o.printContactMessages(v)
	case HealthResult:
		fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Account response type (matches API)
type Account struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthResult combines account and token
type AuthResult struct {
	Account      Account `json:"account"`
	SessionToken string  `json:"session_token"`
}

// Policy is a password strength breakdown
type Policy struct {
	Score      int      `json:"score"`
	Category   string   `json:"category"`
	Acceptable bool     `json:"acceptable"`
	Satisfied  []string `json:"satisfied"`
	Missing    []string `json:"missing"`
}

// PolicyFromResult converts a locally computed evaluation
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

// Projection response type
type Projection struct {
	Policy       Policy `json:"policy"`
	SecretsMatch bool   `json:"secrets_match"`
	ShowMismatch bool   `json:"show_mismatch"`
}

// RosterEntry response type
type RosterEntry struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

// Roster response type
type Roster struct {
	Accounts []RosterEntry `json:"accounts"`
}

// Team response type
type Team struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	OwnerID    string    `json:"owner_id"`
	Members    []string  `json:"members"`
	InviteLink string    `json:"invite_link,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Countdown response type
type Countdown struct {
	RemainingSeconds int64  `json:"remaining_seconds"`
	Running          bool   `json:"running"`
	Detonating       bool   `json:"detonating"`
	Display          string `json:"display"`
}

// ContactReceipt response type
type ContactReceipt struct {
	ID         string    `json:"id"`
	ReceivedAt time.Time `json:"received_at"`
}

// ContactMessage response type
type ContactMessage struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Message    string    `json:"message"`
	ReceivedAt time.Time `json:"received_at"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printAccount(a Account) {
	fmt.Fprintf(o.w, "Account: %s (%s)\n", a.Username, a.ID)
	fmt.Fprintf(o.w, "Email: %s\n", a.Email)
	fmt.Fprintf(o.w, "Role: %s\n", a.Role)
	fmt.Fprintf(o.w, "Status: %s\n", a.Status)
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printAccount(a.Account)
	fmt.Fprintf(o.w, "Token: %s\n", a.SessionToken)
}

func (o *Output) printPolicy(p Policy) {
	fmt.Fprintf(o.w, "Strength: %s (%d/%d)\n", p.Category, p.Score, len(policy.Rules))
	for _, rule := range p.Missing {
		fmt.Fprintf(o.w, "  missing: %s\n", rule)
	}
}

func (o *Output) printProjection(p Projection) {
	o.printPolicy(p.Policy)
	if p.ShowMismatch {
		fmt.Fprintln(o.w, "Passwords do not match")
	}
}

func (o *Output) printRoster(r Roster) {
	fmt.Fprintf(o.w, "Accounts (%d):\n", len(r.Accounts))
	for _, e := range r.Accounts {
		fmt.Fprintf(o.w, "  - %s (%s) %s, %s\n", e.Username, e.ID, e.Role, e.Status)
	}
}

func (o *Output) printTeam(t Team) {
	fmt.Fprintf(o.w, "Team: %s (%s)\n", t.Name, t.ID)
	fmt.Fprintf(o.w, "Owner: %s\n", t.OwnerID)
	fmt.Fprintf(o.w, "Members: %s\n", strings.Join(t.Members, ", "))
	if t.InviteLink != "" {
		fmt.Fprintf(o.w, "Invite: %s\n", t.InviteLink)
	}
}

func (o *Output) printCountdown(c Countdown) {
	state := "stopped"
	switch {
	case c.Detonating:
		state = "detonating"
	case c.Running:
		state = "running"
	}
	fmt.Fprintf(o.w, "CTF: %s (%s)\n", c.Display, state)
}

func (o *Output) printContactMessages(msgs []ContactMessage) {
	fmt.Fprintf(o.w, "Messages (%d):\n", len(msgs))
	for _, m := range msgs {
		fmt.Fprintf(o.w, "[%s] %s <%s>: %s\n", m.ReceivedAt.Format("2006-01-02 15:04"), m.Name, m.Email, m.Message)
	}
}
