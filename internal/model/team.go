package model

import (
	"slices"
	"time"
)

// TeamID uniquely identifies a team
type TeamID string

// Team is a group of accounts competing together
type Team struct {
	ID           TeamID
	Name         string // unique
	OwnerID      AccountID
	PasswordHash string
	InviteToken  string
	Members      []AccountID
	CreatedAt    time.Time
}

// HasMember reports whether the account already belongs to the team
func (t *Team) HasMember(id AccountID) bool {
	return slices.Contains(t.Members, id)
}

// ContactMessage is a message submitted through the contact form
type ContactMessage struct {
	ID         string
	Name       string
	Email      string
	Message    string
	ReceivedAt time.Time
}
