package handler

import (
	"net/http"

	"github.com/isepctf/ctfportal/internal/api/apierr"
	"github.com/isepctf/ctfportal/internal/services/credential"
)

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// writeSubmission reports the outcome of a credential workflow run.
// It returns true when the submission was accepted and the caller should
// write its success response.
func writeSubmission(w http.ResponseWriter, result credential.Result, err error) bool {
	if err != nil {
		WriteError(w, err)
		return false
	}
	if result.Rejected() {
		WriteError(w, apierr.FromRejection(result))
		return false
	}
	return true
}
