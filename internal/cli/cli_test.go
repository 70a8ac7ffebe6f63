package cli

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isepctf/ctfportal/internal/api"
	"github.com/isepctf/ctfportal/internal/factory"
	"github.com/isepctf/ctfportal/internal/testutil"
)

const strongPassword = "Str0ng!Password"

type cliHarness struct {
	t         *testing.T
	app       *factory.TestApp
	serverURL string
	tokenFile string
}

func newHarness(t *testing.T) *cliHarness {
	t.Helper()

	app := factory.NewTestApp()
	t.Cleanup(func() { _ = app.Close() })

	srv := httptest.NewServer(api.NewRouter(api.RouterConfig{
		Logger:         testutil.NopLogger(),
		AuthService:    app.AuthService,
		AdminService:   app.AdminService,
		TeamService:    app.TeamService,
		ContactService: app.ContactService,
		Countdown:      app.Countdown,
		HubManager:     app.HubManager,
		Broadcaster:    app.Broadcaster,
		Metrics:        app.Metrics,
	}))
	t.Cleanup(srv.Close)

	return &cliHarness{
		t:         t,
		app:       app,
		serverURL: srv.URL,
		tokenFile: filepath.Join(t.TempDir(), "token"),
	}
}

// run executes one command with JSON output and returns stdout
func (h *cliHarness) run(args ...string) (string, error) {
	h.t.Helper()
	full := append([]string{"--server", h.serverURL, "--token-file", h.tokenFile, "--output", "json"}, args...)

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(full)
	err := cmd.Execute()
	return out.String(), err
}

func (h *cliHarness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, "output: %s", out)
	return out
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(bytes.NewBufferString(out)).Decode(&v), "output: %s", out)
	return v
}

func TestHealth(t *testing.T) {
	h := newHarness(t)

	result := decode[HealthResult](t, h.mustRun("health"))
	assert.Equal(t, "ok", result.Status)
}

func TestRegisterSavesToken(t *testing.T) {
	h := newHarness(t)

	auth := decode[AuthResult](t, h.mustRun("account", "register",
		"--user", "alice", "--email", "alice@ctf.test", "--pass", strongPassword))
	assert.Equal(t, "alice", auth.Account.Username)
	assert.NotEmpty(t, auth.SessionToken)

	me := decode[Account](t, h.mustRun("account", "me"))
	assert.Equal(t, auth.Account.ID, me.ID)

	h.mustRun("account", "logout")
	_, err := h.run("account", "me")
	assert.Error(t, err)
}

func TestRegisterWeakPasswordPrintsPolicy(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("account", "register", "--user", "alice", "--email", "alice@ctf.test", "--pass", "short")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "WEAK_SECRET", apiErr.Code)
	assert.Equal(t, 422, apiErr.Status)

	p := decode[Policy](t, out)
	assert.Equal(t, "weak", p.Category)
	assert.Contains(t, p.Missing, "At least 12 characters")
}

func TestRegisterMismatchedConfirmation(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("account", "register", "--user", "alice", "--email", "alice@ctf.test",
		"--pass", strongPassword, "--confirm", "Str0ng!Passw0rd")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "PASSWORD_MISMATCH", apiErr.Code)
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	h.mustRun("account", "register", "--user", "alice", "--email", "alice@ctf.test", "--pass", strongPassword)

	_, err := h.run("account", "login", "--email", "alice@ctf.test", "--pass", "nope")
	assert.Error(t, err)

	auth := decode[AuthResult](t, h.mustRun("account", "login", "--email", "alice@ctf.test", "--pass", strongPassword))
	assert.Equal(t, "alice", auth.Account.Username)
}

func TestPasswdChecksLocallyBeforeSending(t *testing.T) {
	h := newHarness(t)
	h.mustRun("account", "register", "--user", "alice", "--email", "alice@ctf.test", "--pass", strongPassword)

	out, err := h.run("account", "passwd", "--pass", "weak", "--confirm", "weak")
	assert.EqualError(t, err, "password is too weak")
	assert.Equal(t, "weak", decode[Policy](t, out).Category)

	_, err = h.run("account", "passwd", "--pass", "An0ther!Password", "--confirm", "An0ther!Passw0rd")
	assert.EqualError(t, err, "passwords do not match")

	out = h.mustRun("account", "passwd", "--pass", "An0ther!Password", "--confirm", "An0ther!Password")
	assert.Contains(t, out, "Password updated")

	_, err = h.app.AuthService.Login(t.Context(), "alice@ctf.test", "An0ther!Password")
	assert.NoError(t, err)
}

func TestPasswdOnSomeoneElseIsUnauthorized(t *testing.T) {
	h := newHarness(t)
	bob := decode[AuthResult](t, h.mustRun("account", "register", "--user", "bob", "--email", "bob@ctf.test", "--pass", strongPassword))
	h.mustRun("account", "register", "--user", "alice", "--email", "alice@ctf.test", "--pass", strongPassword)

	_, err := h.run("account", "passwd", "--account", bob.Account.ID, "--pass", "An0ther!Password", "--confirm", "An0ther!Password")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.Status)
}

func TestPasswordCheck(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name     string
		args     []string
		category string
		mismatch bool
	}{
		{"local weak", []string{"password", "check", "abc"}, "weak", false},
		{"local moderate", []string{"password", "check", "abcdefghijkl1"}, "moderate", false},
		{"local strong", []string{"password", "check", strongPassword}, "strong", false},
		{"local mismatch", []string{"password", "check", strongPassword, "--confirm", "x"}, "strong", true},
		{"remote", []string{"password", "check", strongPassword, "--remote"}, "strong", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := decode[Projection](t, h.mustRun(tt.args...))
			assert.Equal(t, tt.category, p.Policy.Category)
			assert.Equal(t, tt.mismatch, p.ShowMismatch)
		})
	}
}

func TestTeamCommands(t *testing.T) {
	h := newHarness(t)
	h.mustRun("account", "register", "--user", "owner", "--email", "owner@ctf.test", "--pass", strongPassword)

	h.app.MockRandom.QueueString("CLITEAM000000000")
	team := decode[Team](t, h.mustRun("team", "create", "--name", "Segfaults", "--pass", "teamPass1"))
	assert.Equal(t, "/join-team?token=CLITEAM000000000", team.InviteLink)

	h.mustRun("account", "register", "--user", "bob", "--email", "bob@ctf.test", "--pass", strongPassword)

	_, err := h.run("team", "join", "CLITEAM000000000", "--pass", "wrongPass1")
	assert.Error(t, err)

	joined := decode[Team](t, h.mustRun("team", "join", h.serverURL+team.InviteLink, "--pass", "teamPass1"))
	assert.Len(t, joined.Members, 2)

	got := decode[Team](t, h.mustRun("team", "get", team.ID))
	assert.Equal(t, "Segfaults", got.Name)
}

func TestInviteToken(t *testing.T) {
	assert.Equal(t, "abc", inviteToken("abc"))
	assert.Equal(t, "abc", inviteToken("/join-team?token=abc"))
	assert.Equal(t, "abc", inviteToken("https://ctf.example/join-team?token=abc"))
}

func TestAdminCommands(t *testing.T) {
	h := newHarness(t)
	alice := decode[AuthResult](t, h.mustRun("account", "register", "--user", "alice", "--email", "alice@ctf.test", "--pass", strongPassword))

	_, err := h.run("admin", "list")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.Status)

	admin, err := h.app.SeedAdmin(t.Context())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(h.tokenFile, []byte(admin.Token), 0o600))

	roster := decode[Roster](t, h.mustRun("admin", "list"))
	assert.Len(t, roster.Accounts, 2)

	roster = decode[Roster](t, h.mustRun("admin", "suspend", alice.Account.ID))
	assert.Equal(t, "suspended", entry(roster, alice.Account.ID).Status)

	roster = decode[Roster](t, h.mustRun("admin", "reinstate", alice.Account.ID))
	assert.Equal(t, "active", entry(roster, alice.Account.ID).Status)

	_, err = h.run("admin", "suspend", string(admin.AccountID))
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 409, apiErr.Status)

	roster = decode[Roster](t, h.mustRun("admin", "delete", alice.Account.ID))
	assert.Len(t, roster.Accounts, 1)
}

func entry(r Roster, id string) RosterEntry {
	for _, e := range r.Accounts {
		if e.ID == id {
			return e
		}
	}
	return RosterEntry{}
}

func TestCTFCommands(t *testing.T) {
	h := newHarness(t)

	status := decode[Countdown](t, h.mustRun("ctf", "status"))
	assert.Equal(t, int64(3600), status.RemainingSeconds)
	assert.False(t, status.Running)

	_, err := h.run("ctf", "start")
	assert.Error(t, err)

	admin, err := h.app.SeedAdmin(t.Context())
	require.NoError(t, err)

	status = decode[Countdown](t, h.mustRun("--token", admin.Token, "ctf", "start"))
	assert.True(t, status.Running)

	out := h.mustRun("ctf", "watch", "--json", "--count", "1")
	var ev SSEEvent
	require.NoError(t, json.Unmarshal([]byte(lastLine(out)), &ev))
	assert.Equal(t, "countdown", ev.Event)
	assert.Contains(t, ev.Data, `"running":true`)

	status = decode[Countdown](t, h.mustRun("--token", admin.Token, "ctf", "stop"))
	assert.False(t, status.Running)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}

func TestContactCommands(t *testing.T) {
	h := newHarness(t)

	receipt := decode[ContactReceipt](t, h.mustRun("contact", "--name", "Visitor", "--email", "visitor@example.com", "-m", "When does it start?"))
	assert.NotEmpty(t, receipt.ID)

	admin, err := h.app.SeedAdmin(t.Context())
	require.NoError(t, err)
	msgs := decode[[]ContactMessage](t, h.mustRun("--token", admin.Token, "admin", "contact"))
	require.Len(t, msgs, 1)
	assert.Equal(t, "When does it start?", msgs[0].Message)
}

func TestTextOutput(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput("text", &buf)

	out.Print(Countdown{Display: "0d 00:10:00", Running: true})
	out.Print(Policy{Category: "moderate", Score: 2, Missing: []string{"At least 1 number"}})

	assert.Equal(t, "CTF: 0d 00:10:00 (running)\nStrength: moderate (2/4)\n  missing: At least 1 number\n", buf.String())
}
