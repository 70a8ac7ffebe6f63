package model

import "time"

// AccountID uniquely identifies an account across the system
type AccountID string

// Role controls what an account may do
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// AccountStatus tracks whether an account may sign in
type AccountStatus string

const (
	StatusActive    AccountStatus = "active"
	StatusSuspended AccountStatus = "suspended"
)

// Account represents a competitor or organiser
type Account struct {
	ID        AccountID
	Username  string // unique
	Email     string // unique, used for login
	Role      Role
	Status    AccountStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin reports whether the account holds the admin role
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IsSuspended reports whether the account is barred from signing in
func (a *Account) IsSuspended() bool {
	return a.Status == StatusSuspended
}

// Credential holds the secret for an account.
// Stored separately so account lookups never carry the hash around.
type Credential struct {
	AccountID    AccountID
	PasswordHash string // bcrypt hash
	UpdatedAt    time.Time
}
