package middleware

import (
	"context"
	"net/http"
	"net/url"

	"github.com/isepctf/ctfportal/internal/model"
)

type contextKey string

const (
	accountContextKey contextKey = "account"
	tokenContextKey   contextKey = "token"

	// SessionCookie holds the session token for browser clients
	SessionCookie = "session"
)

// AccountResolver looks up the account behind a session token
type AccountResolver interface {
	GetAccount(token string) (*model.Account, error)
}

// GetAccount retrieves the authenticated account from the request context
// Returns nil if nobody is logged in
func GetAccount(ctx context.Context) *model.Account {
	account, _ := ctx.Value(accountContextKey).(*model.Account)
	return account
}

// GetToken returns the session token of the authenticated request
func GetToken(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey).(string)
	return token
}

// Auth returns middleware that requires authentication
// Redirects to the login page if not authenticated
func Auth(accounts AccountResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, token := accountFromSession(r, accounts)
			if account == nil {
				// Store original URL to redirect back after login
				http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r.WithContext(withAccount(r.Context(), account, token)))
		})
	}
}

// OptionalAuth returns middleware that attempts authentication but doesn't require it
// Sets the account in context if authenticated, nil otherwise
func OptionalAuth(accounts AccountResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, token := accountFromSession(r, accounts)
			if account != nil {
				r = r.WithContext(withAccount(r.Context(), account, token))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin sends non-admins back to the home page. Must run after Auth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account := GetAccount(r.Context())
		if account == nil || !account.IsAdmin() || account.IsSuspended() {
			SetFlash(w, "error", "Admin access required")
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withAccount(ctx context.Context, account *model.Account, token string) context.Context {
	ctx = context.WithValue(ctx, accountContextKey, account)
	return context.WithValue(ctx, tokenContextKey, token)
}

func accountFromSession(r *http.Request, accounts AccountResolver) (*model.Account, string) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, ""
	}

	account, err := accounts.GetAccount(cookie.Value)
	if err != nil {
		return nil, ""
	}

	return account, cookie.Value
}
