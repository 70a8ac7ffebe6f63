package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isepctf/ctfportal/internal/api"
	"github.com/isepctf/ctfportal/internal/api/apierr"
	"github.com/isepctf/ctfportal/internal/api/response"
	"github.com/isepctf/ctfportal/internal/factory"
	"github.com/isepctf/ctfportal/internal/metrics"
	"github.com/isepctf/ctfportal/internal/testutil"
)

const strongPassword = "Str0ng!Password"

// testServer creates a test server with all dependencies
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	app := factory.NewTestApp()
	t.Cleanup(func() { _ = app.Close() })

	router := api.NewRouter(api.RouterConfig{
		Logger:         testutil.NopLogger(),
		AuthService:    app.AuthService,
		AdminService:   app.AdminService,
		TeamService:    app.TeamService,
		ContactService: app.ContactService,
		Countdown:      app.Countdown,
		HubManager:     app.HubManager,
		Broadcaster:    app.Broadcaster,
		Metrics:        app.Metrics,
	})

	return &testServer{handler: router, app: app}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) register(t *testing.T, username string) response.AuthResponse {
	t.Helper()

	body := map[string]string{
		"username":         username,
		"email":            username + "@ctf.test",
		"password":         strongPassword,
		"password_confirm": strongPassword,
	}
	rr := ts.request(http.MethodPost, "/api/v1/accounts/register", body, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp response.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func (ts *testServer) adminToken(t *testing.T) string {
	t.Helper()
	session, err := ts.app.SeedAdmin(t.Context())
	require.NoError(t, err)
	return session.Token
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) apierr.APIError {
	t.Helper()
	var resp apierr.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
}

func TestEvaluatePassword(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name         string
		password     string
		confirmation string
		category     string
		acceptable   bool
		showMismatch bool
		missing      int
	}{
		{"empty", "", "", "weak", false, false, 4},
		{"lowercase only", "abcdefghijkl", "", "weak", false, false, 3},
		{"two rules", "Abcdefghijkl", "", "moderate", false, false, 2},
		{"strong", strongPassword, strongPassword, "strong", true, false, 0},
		{"strong with typo", strongPassword, "Str0ng!Passwor", "strong", true, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := map[string]string{"password": tt.password, "confirmation": tt.confirmation}
			rr := ts.request(http.MethodPost, "/api/v1/password/evaluate", body, "")
			require.Equal(t, http.StatusOK, rr.Code)

			var resp response.Projection
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.category, resp.Policy.Category)
			assert.Equal(t, tt.acceptable, resp.Policy.Acceptable)
			assert.Equal(t, tt.showMismatch, resp.ShowMismatch)
			assert.Len(t, resp.Policy.Missing, tt.missing)
		})
	}
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	registered := ts.register(t, "alice")
	assert.Equal(t, "alice", registered.Account.Username)
	assert.Equal(t, "user", registered.Account.Role)
	assert.NotEmpty(t, registered.SessionToken)

	loginBody := map[string]string{"email": "alice@ctf.test", "password": strongPassword}
	rr := ts.request(http.MethodPost, "/api/v1/accounts/login", loginBody, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var loginResp response.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &loginResp))
	assert.Equal(t, registered.Account.ID, loginResp.Account.ID)
}

func TestRegisterRejections(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "taken")

	tests := []struct {
		name   string
		body   map[string]string
		status int
		code   string
	}{
		{
			name:   "weak password",
			body:   map[string]string{"username": "bob", "email": "bob@ctf.test", "password": "password", "password_confirm": "password"},
			status: http.StatusUnprocessableEntity,
			code:   apierr.CodeWeakSecret,
		},
		{
			name:   "mismatch",
			body:   map[string]string{"username": "bob", "email": "bob@ctf.test", "password": strongPassword, "password_confirm": "Str0ng!Passw0rd"},
			status: http.StatusUnprocessableEntity,
			code:   apierr.CodePasswordMismatch,
		},
		{
			name:   "invalid email",
			body:   map[string]string{"username": "bob", "email": "not-an-email", "password": strongPassword, "password_confirm": strongPassword},
			status: http.StatusBadRequest,
			code:   apierr.CodeValidationFailed,
		},
		{
			name:   "username taken",
			body:   map[string]string{"username": "taken", "email": "other@ctf.test", "password": strongPassword, "password_confirm": strongPassword},
			status: http.StatusConflict,
			code:   apierr.CodeUsernameTaken,
		},
		{
			name:   "email taken",
			body:   map[string]string{"username": "other", "email": "taken@ctf.test", "password": strongPassword, "password_confirm": strongPassword},
			status: http.StatusConflict,
			code:   apierr.CodeEmailTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.request(http.MethodPost, "/api/v1/accounts/register", tt.body, "")
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.code, decodeError(t, rr).Code)
		})
	}
}

func TestRegisterWeakPasswordReportsPolicy(t *testing.T) {
	ts := newTestServer(t)

	body := map[string]string{"username": "bob", "email": "bob@ctf.test", "password": "abcdefghijkl1", "password_confirm": "abcdefghijkl1"}
	rr := ts.request(http.MethodPost, "/api/v1/accounts/register", body, "")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var resp struct {
		Error struct {
			Code    string          `json:"code"`
			Details response.Policy `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, apierr.CodeWeakSecret, resp.Error.Code)
	assert.Equal(t, 2, resp.Error.Details.Score)
	assert.Equal(t, "moderate", resp.Error.Details.Category)
	assert.Equal(t, []string{"length", "digit"}, resp.Error.Details.Satisfied)
	assert.Len(t, resp.Error.Details.Missing, 2)
}

func TestLoginFailures(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice")

	rr := ts.request(http.MethodPost, "/api/v1/accounts/login", map[string]string{"email": "alice@ctf.test", "password": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, apierr.CodeInvalidCredentials, decodeError(t, rr).Code)

	rr = ts.request(http.MethodPost, "/api/v1/accounts/login", map[string]string{"email": "ghost@ctf.test", "password": strongPassword}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGetMe(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.register(t, "alice")

	rr := ts.request(http.MethodGet, "/api/v1/accounts/me", nil, alice.SessionToken)
	assert.Equal(t, http.StatusOK, rr.Code)

	var account response.Account
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &account))
	assert.Equal(t, alice.Account.ID, account.ID)
	assert.Equal(t, "active", account.Status)
}

func TestGetMeUnauthorized(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/accounts/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/accounts/me", nil, "bogus-token")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSessionCookie(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.register(t, "alice")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/me", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: alice.SessionToken})
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.register(t, "alice")

	rr := ts.request(http.MethodPost, "/api/v1/accounts/logout", nil, alice.SessionToken)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/accounts/me", nil, alice.SessionToken)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestChangeOwnPassword(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.register(t, "alice")

	body := map[string]string{"password": "N3w!Password!!", "password_confirm": "N3w!Password!!"}
	rr := ts.request(http.MethodPut, "/api/v1/accounts/me/password", body, alice.SessionToken)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	// The session that made the change survives it
	rr = ts.request(http.MethodGet, "/api/v1/accounts/me", nil, alice.SessionToken)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/accounts/login", map[string]string{"email": "alice@ctf.test", "password": "N3w!Password!!"}, "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestChangePasswordRejections(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.register(t, "alice")
	bob := ts.register(t, "bob")

	tests := []struct {
		name   string
		target string
		body   map[string]string
		status int
		code   string
	}{
		{
			name:   "other account",
			target: bob.Account.ID,
			body:   map[string]string{"password": "N3w!Password!!", "password_confirm": "N3w!Password!!"},
			status: http.StatusForbidden,
			code:   apierr.CodeUnauthorized,
		},
		{
			name:   "weak",
			target: "me",
			body:   map[string]string{"password": "short", "password_confirm": "short"},
			status: http.StatusUnprocessableEntity,
			code:   apierr.CodeWeakSecret,
		},
		{
			name:   "mismatch",
			target: "me",
			body:   map[string]string{"password": "N3w!Password!!", "password_confirm": "N3w!Password!?"},
			status: http.StatusUnprocessableEntity,
			code:   apierr.CodePasswordMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.request(http.MethodPut, "/api/v1/accounts/"+tt.target+"/password", tt.body, alice.SessionToken)
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.code, decodeError(t, rr).Code)
		})
	}

	// Unauthorized is decided before strength: even a weak password for
	// another account reports UNAUTHORIZED
	rr := ts.request(http.MethodPut, "/api/v1/accounts/"+bob.Account.ID+"/password",
		map[string]string{"password": "x", "password_confirm": "y"}, alice.SessionToken)
	assert.Equal(t, apierr.CodeUnauthorized, decodeError(t, rr).Code)
}

func TestAdminChangesAnyPassword(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.register(t, "alice")
	admin := ts.adminToken(t)

	body := map[string]string{"password": "Adm1n!Chosen!", "password_confirm": "Adm1n!Chosen!"}
	rr := ts.request(http.MethodPut, "/api/v1/accounts/"+alice.Account.ID+"/password", body, admin)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	// The target's sessions end
	rr = ts.request(http.MethodGet, "/api/v1/accounts/me", nil, alice.SessionToken)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAdminRoster(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.register(t, "alice")
	admin := ts.adminToken(t)

	rr := ts.request(http.MethodGet, "/api/v1/admin/accounts", nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	var roster response.Roster
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &roster))
	assert.Len(t, roster.Accounts, 2)

	rr = ts.request(http.MethodPost, "/api/v1/admin/accounts/"+alice.Account.ID+"/suspend", nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &roster))
	assert.Equal(t, "suspended", findEntry(t, roster, alice.Account.ID).Status)

	// Suspended accounts lose their sessions and cannot log in
	rr = ts.request(http.MethodGet, "/api/v1/accounts/me", nil, alice.SessionToken)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = ts.request(http.MethodPost, "/api/v1/accounts/login", map[string]string{"email": "alice@ctf.test", "password": strongPassword}, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, apierr.CodeAccountSuspended, decodeError(t, rr).Code)

	rr = ts.request(http.MethodPost, "/api/v1/admin/accounts/"+alice.Account.ID+"/reinstate", nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &roster))
	assert.Equal(t, "active", findEntry(t, roster, alice.Account.ID).Status)

	rr = ts.request(http.MethodDelete, "/api/v1/admin/accounts/"+alice.Account.ID, nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &roster))
	assert.Len(t, roster.Accounts, 1)
}

func TestAdminCannotSuspendSelf(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminToken(t)

	rr := ts.request(http.MethodGet, "/api/v1/accounts/me", nil, admin)
	var me response.Account
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &me))

	rr = ts.request(http.MethodPost, "/api/v1/admin/accounts/"+me.ID+"/suspend", nil, admin)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeSelfModification, decodeError(t, rr).Code)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.register(t, "alice")

	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/admin/accounts"},
		{http.MethodGet, "/api/v1/admin/contact"},
		{http.MethodPost, "/api/v1/ctf/start"},
		{http.MethodPost, "/api/v1/ctf/stop"},
	}
	for _, p := range paths {
		rr := ts.request(p.method, p.path, nil, alice.SessionToken)
		assert.Equal(t, http.StatusForbidden, rr.Code, p.path)

		rr = ts.request(p.method, p.path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, p.path)
	}
}

func TestTeams(t *testing.T) {
	ts := newTestServer(t)
	ts.app.MockRandom.QueueString("JOINME0000000000")
	owner := ts.register(t, "owner")
	member := ts.register(t, "member")

	rr := ts.request(http.MethodPost, "/api/v1/teams", map[string]string{"name": "Segfaults", "password": "short"}, owner.SessionToken)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/teams", map[string]string{"name": "Segfaults", "password": "teampass"}, owner.SessionToken)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created response.Team
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "/join-team?token=JOINME0000000000", created.InviteLink)

	// Non-members do not see the invite link
	rr = ts.request(http.MethodGet, "/api/v1/teams/"+created.ID, nil, member.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code)
	var seen response.Team
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &seen))
	assert.Empty(t, seen.InviteLink)

	rr = ts.request(http.MethodPost, "/api/v1/teams/join", map[string]string{"token": "JOINME0000000000", "password": "wrong"}, member.SessionToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, apierr.CodeWrongTeamPassword, decodeError(t, rr).Code)

	rr = ts.request(http.MethodPost, "/api/v1/teams/join", map[string]string{"token": "JOINME0000000000", "password": "teampass"}, member.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code)
	var joined response.Team
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &joined))
	assert.Contains(t, joined.Members, member.Account.ID)

	rr = ts.request(http.MethodPost, "/api/v1/teams", map[string]string{"name": "Segfaults", "password": "teampass"}, member.SessionToken)
	assert.Equal(t, apierr.CodeTeamNameTaken, decodeError(t, rr).Code)

	rr = ts.request(http.MethodGet, "/api/v1/teams/missing", nil, member.SessionToken)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCountdown(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminToken(t)

	rr := ts.request(http.MethodGet, "/api/v1/ctf", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var state response.Countdown
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	assert.False(t, state.Running)
	assert.Equal(t, int64(3600), state.RemainingSeconds)

	rr = ts.request(http.MethodPost, "/api/v1/ctf/start", nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	assert.True(t, state.Running)

	ts.app.MockClock.Advance(90 * time.Second)

	rr = ts.request(http.MethodPost, "/api/v1/ctf/stop", nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	assert.False(t, state.Running)
	assert.Equal(t, int64(3510), state.RemainingSeconds)
	assert.Equal(t, "0d 00:58:30", state.Display)
}

func TestContact(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminToken(t)

	rr := ts.request(http.MethodPost, "/api/v1/contact", map[string]string{"name": "Eve", "email": "nope", "message": "hi"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/contact", map[string]string{"name": "Eve", "email": "eve@example.com", "message": "Is there a prize?"}, "")
	require.Equal(t, http.StatusAccepted, rr.Code)
	var receipt response.ContactReceipt
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &receipt))
	assert.NotEmpty(t, receipt.ID)

	rr = ts.request(http.MethodGet, "/api/v1/admin/contact", nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Is there a prize?")
	assert.Len(t, ts.app.Mailer.Sent, 1)
}

func TestMalformedBody(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/login", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidRequest, decodeError(t, rr).Code)
}

func TestMetricsExposeActivity(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice")
	ts.request(http.MethodPost, "/api/v1/password/evaluate", map[string]string{"password": "abc"}, "")

	rr := httptest.NewRecorder()
	metrics.Handler(ts.app.Registry).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, `ctfportal_credential_submissions_total{outcome="accepted"} 1`)
	assert.Contains(t, body, `ctfportal_password_evaluations_total{category="weak"} 1`)
	assert.Contains(t, body, `route="/api/v1/accounts/register"`)
	assert.Contains(t, body, "ctfportal_ctf_running 0")
}

func findEntry(t *testing.T, roster response.Roster, id string) response.RosterEntry {
	t.Helper()
	for _, e := range roster.Accounts {
		if e.ID == id {
			return e
		}
	}
	t.Fatalf("account %s not in roster", id)
	return response.RosterEntry{}
}
