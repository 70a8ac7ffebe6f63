package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/isepctf/ctfportal/internal/api/request"
	"github.com/isepctf/ctfportal/internal/api/response"
	"github.com/isepctf/ctfportal/internal/model"
	"github.com/isepctf/ctfportal/internal/services/auth"
	"github.com/isepctf/ctfportal/internal/services/contact"
	"github.com/isepctf/ctfportal/internal/services/credential"
	"github.com/isepctf/ctfportal/internal/services/team"
	"github.com/isepctf/ctfportal/internal/validation"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountSuspended   = "ACCOUNT_SUSPENDED"
	CodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
	CodeUsernameTaken      = "USERNAME_TAKEN"
	CodeEmailTaken         = "EMAIL_TAKEN"
	CodeSelfModification   = "SELF_MODIFICATION"
	CodeTeamNotFound       = "TEAM_NOT_FOUND"
	CodeTeamNameTaken      = "TEAM_NAME_TAKEN"
	CodeAlreadyInTeam      = "ALREADY_IN_TEAM"
	CodeWrongTeamPassword  = "WRONG_TEAM_PASSWORD"
	CodeWeakSecret         = "WEAK_SECRET"
	CodePasswordMismatch   = "PASSWORD_MISMATCH"
	CodePersistenceFailed  = "PERSISTENCE_FAILED"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// Status returns the HTTP status an error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	var verr *validation.Error
	if errors.As(err, &verr) {
		return &httpError{http.StatusBadRequest, APIError{CodeValidationFailed, "Request validation failed", verr.Fields}}
	}

	// Model errors come first: a persistence failure may wrap one of them
	switch {
	case errors.Is(err, model.ErrAccountNotFound):
		return &httpError{http.StatusNotFound, APIError{Code: CodeAccountNotFound, Message: "Account not found"}}
	case errors.Is(err, model.ErrUsernameTaken):
		return &httpError{http.StatusConflict, APIError{Code: CodeUsernameTaken, Message: "Username already taken"}}
	case errors.Is(err, model.ErrEmailTaken):
		return &httpError{http.StatusConflict, APIError{Code: CodeEmailTaken, Message: "Email already registered"}}
	case errors.Is(err, model.ErrAccountSuspended):
		return &httpError{http.StatusForbidden, APIError{Code: CodeAccountSuspended, Message: "Account is suspended"}}
	case errors.Is(err, model.ErrNotAdmin):
		return &httpError{http.StatusForbidden, APIError{Code: CodeForbidden, Message: "Admin access required"}}
	case errors.Is(err, model.ErrSelfModification):
		return &httpError{http.StatusConflict, APIError{Code: CodeSelfModification, Message: "Admins cannot suspend or remove themselves"}}
	case errors.Is(err, model.ErrTeamNotFound):
		return &httpError{http.StatusNotFound, APIError{Code: CodeTeamNotFound, Message: "Team not found"}}
	case errors.Is(err, model.ErrTeamNameTaken):
		return &httpError{http.StatusConflict, APIError{Code: CodeTeamNameTaken, Message: "Team name already taken"}}
	case errors.Is(err, model.ErrAlreadyInTeam):
		return &httpError{http.StatusConflict, APIError{Code: CodeAlreadyInTeam, Message: "Already a member of this team"}}

	case errors.Is(err, credential.ErrPersistenceFailed):
		return &httpError{http.StatusServiceUnavailable, APIError{Code: CodePersistenceFailed, Message: "Password could not be saved, try again"}}

	case errors.Is(err, request.ErrMalformedBody):
		return &httpError{http.StatusBadRequest, APIError{Code: CodeInvalidRequest, Message: "Invalid request body"}}

	// Service errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{Code: CodeInvalidCredentials, Message: "Invalid email or password"}}
	case errors.Is(err, auth.ErrInvalidSession):
		return &httpError{http.StatusUnauthorized, APIError{Code: CodeUnauthorized, Message: "Invalid or expired session"}}
	case errors.Is(err, auth.ErrIdentityRequired):
		return &httpError{http.StatusBadRequest, APIError{Code: CodeInvalidRequest, Message: "Username and email are required"}}
	case errors.Is(err, team.ErrNameRequired), errors.Is(err, team.ErrPasswordTooShort):
		return &httpError{http.StatusBadRequest, APIError{Code: CodeInvalidRequest, Message: err.Error()}}
	case errors.Is(err, team.ErrWrongPassword):
		return &httpError{http.StatusForbidden, APIError{Code: CodeWrongTeamPassword, Message: "Wrong team password"}}
	case errors.Is(err, contact.ErrInvalidSubmission):
		return &httpError{http.StatusBadRequest, APIError{Code: CodeInvalidRequest, Message: "Invalid contact submission"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{Code: CodeInternalError, Message: "Internal server error"}}
	}
}

// FromRejection converts a rejected credential workflow result into an error
func FromRejection(result credential.Result) error {
	switch result.Reason {
	case credential.ReasonUnauthorized:
		return &httpError{http.StatusForbidden, APIError{Code: CodeUnauthorized, Message: "Not allowed to change this password"}}
	case credential.ReasonWeakSecret:
		return &httpError{http.StatusUnprocessableEntity, APIError{
			Code:    CodeWeakSecret,
			Message: "Password does not satisfy every policy rule",
			Details: response.PolicyFromResult(result.Policy),
		}}
	case credential.ReasonMismatch:
		return &httpError{http.StatusUnprocessableEntity, APIError{Code: CodePasswordMismatch, Message: "Passwords do not match"}}
	default:
		return NewInternalError()
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{Code: CodeInvalidRequest, Message: message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{Code: CodeUnauthorized, Message: "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{Code: CodeInternalError, Message: "Internal server error"}}
}
