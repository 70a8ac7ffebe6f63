package request

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/isepctf/ctfportal/internal/validation"
)

// ErrMalformedBody is returned when a body is not valid JSON for its type
var ErrMalformedBody = errors.New("invalid request body")

// maxBodyBytes caps request bodies; the largest legitimate one is a contact message
const maxBodyBytes = 64 << 10

// EvaluatePasswordRequest asks for live feedback on a password
type EvaluatePasswordRequest struct {
	Password     string `json:"password"`
	Confirmation string `json:"confirmation"`
}

// RegisterRequest is the request body for registering an account
type RegisterRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=32"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest is the request body for changing a password.
// Strength and confirmation are judged by the credential workflow, not here.
type ChangePasswordRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// CreateTeamRequest is the request body for creating a team
type CreateTeamRequest struct {
	Name     string `json:"name" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
}

// JoinTeamRequest is the request body for joining a team by invite token
type JoinTeamRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ContactRequest is the request body for the contact form
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Decode reads a JSON body into dst and validates its tags
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return ErrMalformedBody
	}
	return validation.Struct(dst)
}
