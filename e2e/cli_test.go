package e2e_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/isepctf/ctfportal/internal/api"
	"github.com/isepctf/ctfportal/internal/factory"
	"github.com/isepctf/ctfportal/internal/metrics"
	"github.com/isepctf/ctfportal/internal/services/auth"
	"github.com/isepctf/ctfportal/internal/web"
)

const (
	adminEmail     = "admin@ctf.test"
	adminPassword  = "Adm1n!Password"
	strongPassword = "Str0ng!Password"
)

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
	tokenFile  string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	// Find project root (where go.mod is)
	projectRoot := findProjectRoot(t)

	// Build the CLI binary
	binaryPath := filepath.Join(t.TempDir(), "ctfctl-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/ctfctl")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	// Create temp token file
	tokenFile := filepath.Join(t.TempDir(), "token")

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
		tokenFile:  tokenFile,
	}
}

func (r *cliRunner) run(args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token-file", r.tokenFile,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func (r *cliRunner) runWithToken(token string, args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token", token,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// testServer manages a real HTTP server for e2e tests
type testServer struct {
	server   *http.Server
	addr     string
	shutdown func()
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	// Create application
	app, err := factory.New(factory.Config{
		AuthConfig:        auth.Config{BcryptCost: bcrypt.MinCost},
		CountdownDuration: time.Hour,
		Logger:            logger,
	})
	require.NoError(t, err)

	_, err = app.AuthService.EnsureAdmin(context.Background(), "admin", adminEmail, adminPassword)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go app.Broadcaster.RunCountdown(ctx, app.Countdown)

	// Create routers
	apiRouter := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		AuthService:    app.AuthService,
		AdminService:   app.AdminService,
		TeamService:    app.TeamService,
		ContactService: app.ContactService,
		Countdown:      app.Countdown,
		HubManager:     app.HubManager,
		Broadcaster:    app.Broadcaster,
		Metrics:        app.Metrics,
	})

	webRouter := web.NewRouter(web.RouterConfig{
		Logger:       logger,
		AuthService:  app.AuthService,
		AdminService: app.AdminService,
		TeamService:  app.TeamService,
		Countdown:    app.Countdown,
		HubManager:   app.HubManager,
		Broadcaster:  app.Broadcaster,
		Metrics:      app.Metrics,
	})

	// Combine routers
	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("/metrics", metrics.Handler(app.Registry))
	mux.Handle("/", webRouter)

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Start server
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	// Wait for server to be ready
	serverURL := "http://" + addr
	waitForServer(t, serverURL+"/api/v1/health")

	return &testServer{
		server: server,
		addr:   serverURL,
		shutdown: func() {
			cancel()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = server.Shutdown(shutdownCtx)
			_ = app.Close()
		},
	}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

// Response types for JSON parsing
type accountResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

type authResponse struct {
	Account      accountResponse `json:"account"`
	SessionToken string          `json:"session_token"`
}

type rosterResponse struct {
	Accounts []accountResponse `json:"accounts"`
}

type teamResponse struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Members    []string `json:"members"`
	InviteLink string   `json:"invite_link"`
}

type countdownResponse struct {
	RemainingSeconds int64  `json:"remaining_seconds"`
	Running          bool   `json:"running"`
	Display          string `json:"display"`
}

type healthResponse struct {
	Status string `json:"status"`
}

// firstJSON decodes the first JSON document in CLI output, which may be
// followed by cobra's error line
func firstJSON(t *testing.T, output string, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(strings.NewReader(output)).Decode(v), "output: %s", output)
}

// Tests

func TestCLI_HealthCheck(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("health")
	require.NoError(t, err, "output: %s", output)

	var resp healthResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCLI_AccountCommands(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	// Weak passwords never create an account
	output, err := cli.run("account", "register", "--user", "alice", "--email", "alice@ctf.test", "--pass", "password")
	require.Error(t, err)
	assert.Contains(t, output, "WEAK_SECRET")

	output, err = cli.run("account", "register", "--user", "alice", "--email", "alice@ctf.test", "--pass", strongPassword)
	require.NoError(t, err, "output: %s", output)

	var auth authResponse
	require.NoError(t, json.Unmarshal([]byte(output), &auth))
	assert.Equal(t, "alice", auth.Account.Username)
	assert.Equal(t, "user", auth.Account.Role)

	// Token is saved in the token file
	output, err = cli.run("account", "me")
	require.NoError(t, err, "output: %s", output)
	var me accountResponse
	require.NoError(t, json.Unmarshal([]byte(output), &me))
	assert.Equal(t, auth.Account.ID, me.ID)

	output, err = cli.run("account", "passwd", "--pass", "An0ther!Password", "--confirm", "An0ther!Password")
	require.NoError(t, err, "output: %s", output)

	_, err = cli.run("account", "login", "--email", "alice@ctf.test", "--pass", strongPassword)
	assert.Error(t, err, "old password should no longer work")

	output, err = cli.run("account", "login", "--email", "alice@ctf.test", "--pass", "An0ther!Password")
	require.NoError(t, err, "output: %s", output)
}

func TestCLI_TeamFlow(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	owner := newCLIRunner(t, ts.addr)
	member := newCLIRunner(t, ts.addr)

	_, err := owner.run("account", "register", "--user", "owner", "--email", "owner@ctf.test", "--pass", strongPassword)
	require.NoError(t, err)
	_, err = member.run("account", "register", "--user", "member", "--email", "member@ctf.test", "--pass", strongPassword)
	require.NoError(t, err)

	output, err := owner.run("team", "create", "--name", "Buffer Overflowers", "--pass", "teamPass1")
	require.NoError(t, err, "output: %s", output)
	var team teamResponse
	require.NoError(t, json.Unmarshal([]byte(output), &team))
	require.NotEmpty(t, team.InviteLink)

	output, err = member.run("team", "join", ts.addr+team.InviteLink, "--pass", "teamPass1")
	require.NoError(t, err, "output: %s", output)

	output, err = owner.run("team", "get", team.ID)
	require.NoError(t, err, "output: %s", output)
	require.NoError(t, json.Unmarshal([]byte(output), &team))
	assert.Len(t, team.Members, 2)
}

func TestCLI_AdminFlow(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("account", "register", "--user", "alice", "--email", "alice@ctf.test", "--pass", strongPassword)
	require.NoError(t, err, "output: %s", output)
	var alice authResponse
	require.NoError(t, json.Unmarshal([]byte(output), &alice))

	output, err = cli.run("account", "login", "--email", adminEmail, "--pass", adminPassword)
	require.NoError(t, err, "output: %s", output)

	output, err = cli.run("admin", "suspend", alice.Account.ID)
	require.NoError(t, err, "output: %s", output)
	var roster rosterResponse
	require.NoError(t, json.Unmarshal([]byte(output), &roster))
	for _, a := range roster.Accounts {
		if a.ID == alice.Account.ID {
			assert.Equal(t, "suspended", a.Status)
		}
	}

	// Suspension ends alice's session
	output, err = cli.runWithToken(alice.SessionToken, "account", "me")
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(output), "unauthorized")

	output, err = cli.run("ctf", "start")
	require.NoError(t, err, "output: %s", output)
	var clock countdownResponse
	require.NoError(t, json.Unmarshal([]byte(output), &clock))
	assert.True(t, clock.Running)

	output, err = cli.run("ctf", "watch", "--json", "--count", "2")
	require.NoError(t, err, "output: %s", output)
	assert.GreaterOrEqual(t, strings.Count(output, `"event":"countdown"`), 2)
}

func TestCLI_ErrorHandling(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	// Get account without auth
	output, err := cli.run("account", "me")
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(output), "unauthorized")

	output, err = cli.run("account", "register", "--user", "alice", "--email", "alice@ctf.test", "--pass", strongPassword)
	require.NoError(t, err)
	var auth authResponse
	firstJSON(t, output, &auth)

	output, err = cli.runWithToken(auth.SessionToken, "team", "get", "missing")
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(output), "not found")

	output, err = cli.runWithToken(auth.SessionToken, "admin", "list")
	assert.Error(t, err)
	assert.Contains(t, output, "FORBIDDEN")
}
