package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRoster() Roster {
	return NewRoster([]*Account{
		{ID: "a1", Username: "User1", Role: RoleUser, Status: StatusActive},
		{ID: "a2", Username: "User2", Role: RoleUser, Status: StatusActive},
		{ID: "a3", Username: "User3", Role: RoleUser, Status: StatusSuspended},
		{ID: "a4", Username: "Admin1", Role: RoleAdmin, Status: StatusActive},
	})
}

func TestRosterSuspendReturnsNewSnapshot(t *testing.T) {
	before := sampleRoster()

	after, err := before.Suspend("a1")
	require.NoError(t, err)

	entry, ok := after.Get("a1")
	require.True(t, ok)
	assert.Equal(t, StatusSuspended, entry.Status)

	// Original snapshot untouched
	entry, _ = before.Get("a1")
	assert.Equal(t, StatusActive, entry.Status)
}

func TestRosterReinstate(t *testing.T) {
	before := sampleRoster()

	after, err := before.Reinstate("a3")
	require.NoError(t, err)

	entry, _ := after.Get("a3")
	assert.Equal(t, StatusActive, entry.Status)
	entry, _ = before.Get("a3")
	assert.Equal(t, StatusSuspended, entry.Status)
}

func TestRosterRemove(t *testing.T) {
	before := sampleRoster()

	after, err := before.Remove("a2")
	require.NoError(t, err)

	assert.Equal(t, 3, after.Len())
	assert.Equal(t, 4, before.Len())
	_, ok := after.Get("a2")
	assert.False(t, ok)

	ids := []AccountID{}
	for _, e := range after.Entries() {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []AccountID{"a1", "a3", "a4"}, ids)
}

func TestRosterUnknownAccount(t *testing.T) {
	r := sampleRoster()

	_, err := r.Suspend("missing")
	assert.ErrorIs(t, err, ErrAccountNotFound)
	_, err = r.Remove("missing")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestRosterEntriesIsACopy(t *testing.T) {
	r := sampleRoster()

	entries := r.Entries()
	entries[0].Status = StatusSuspended

	entry, _ := r.Get("a1")
	assert.Equal(t, StatusActive, entry.Status)
}
