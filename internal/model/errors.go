package model

import "errors"

// Common errors used across the application
var (
	// Account errors
	ErrAccountNotFound  = errors.New("account not found")
	ErrUsernameTaken    = errors.New("username already taken")
	ErrEmailTaken       = errors.New("email already taken")
	ErrAccountSuspended = errors.New("account is suspended")
	ErrNotAdmin         = errors.New("account is not an admin")
	ErrSelfModification = errors.New("admins cannot suspend or remove their own account")

	// Team errors
	ErrTeamNotFound  = errors.New("team not found")
	ErrTeamNameTaken = errors.New("team name already taken")
	ErrAlreadyInTeam = errors.New("account is already in the team")
)
