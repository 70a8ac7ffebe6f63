package model

import "slices"

// RosterEntry is the admin-facing summary of one account
type RosterEntry struct {
	ID       AccountID
	Username string
	Role     Role
	Status   AccountStatus
}

// Roster is an immutable snapshot of accounts as shown in the admin panel.
// Every update returns a new Roster; the receiver is never modified.
type Roster struct {
	entries []RosterEntry
}

// NewRoster builds a roster from accounts, preserving their order
func NewRoster(accounts []*Account) Roster {
	entries := make([]RosterEntry, 0, len(accounts))
	for _, a := range accounts {
		entries = append(entries, RosterEntry{
			ID:       a.ID,
			Username: a.Username,
			Role:     a.Role,
			Status:   a.Status,
		})
	}
	return Roster{entries: entries}
}

// Entries returns a copy of the roster entries
func (r Roster) Entries() []RosterEntry {
	return slices.Clone(r.entries)
}

// Len returns the number of entries
func (r Roster) Len() int {
	return len(r.entries)
}

// Get returns the entry for id
func (r Roster) Get(id AccountID) (RosterEntry, bool) {
	i := r.index(id)
	if i < 0 {
		return RosterEntry{}, false
	}
	return r.entries[i], true
}

// Suspend returns a roster with the account marked suspended
func (r Roster) Suspend(id AccountID) (Roster, error) {
	return r.withStatus(id, StatusSuspended)
}

// Reinstate returns a roster with the account marked active
func (r Roster) Reinstate(id AccountID) (Roster, error) {
	return r.withStatus(id, StatusActive)
}

// Remove returns a roster without the account
func (r Roster) Remove(id AccountID) (Roster, error) {
	i := r.index(id)
	if i < 0 {
		return r, ErrAccountNotFound
	}
	entries := make([]RosterEntry, 0, len(r.entries)-1)
	entries = append(entries, r.entries[:i]...)
	entries = append(entries, r.entries[i+1:]...)
	return Roster{entries: entries}, nil
}

func (r Roster) withStatus(id AccountID, status AccountStatus) (Roster, error) {
	i := r.index(id)
	if i < 0 {
		return r, ErrAccountNotFound
	}
	entries := slices.Clone(r.entries)
	entries[i].Status = status
	return Roster{entries: entries}, nil
}

func (r Roster) index(id AccountID) int {
	return slices.IndexFunc(r.entries, func(e RosterEntry) bool {
		return e.ID == id
	})
}
