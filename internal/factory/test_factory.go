package factory

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/isepctf/ctfportal/internal/dependencies/mocks"
	"github.com/isepctf/ctfportal/internal/model"
	"github.com/isepctf/ctfportal/internal/services/auth"
	"github.com/isepctf/ctfportal/internal/storage/memory"
	"github.com/isepctf/ctfportal/internal/testutil"
)

// TestAdminPassword satisfies the password policy and is used by SeedAdmin
const TestAdminPassword = "Adm1n!Password"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	Mailer     *RecordingMailer
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	mailer := &RecordingMailer{}

	authCfg := auth.DefaultConfig()
	authCfg.BcryptCost = bcrypt.MinCost

	app := newWithDependencies(dependencies{
		store:     store,
		clock:     mockClock,
		random:    mockRandom,
		auth:      authCfg,
		countdown: time.Hour,
		mailer:    mailer,
		logger:    testutil.NopLogger(),
	})

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Mailer:     mailer,
	}
}

// SeedAdmin creates an admin account and returns a session for it
func (t *TestApp) SeedAdmin(ctx context.Context) (*auth.Session, error) {
	if _, err := t.AuthService.EnsureAdmin(ctx, "admin", "admin@ctf.test", TestAdminPassword); err != nil {
		return nil, err
	}
	return t.AuthService.Login(ctx, "admin@ctf.test", TestAdminPassword)
}

// RecordingMailer keeps every message it is asked to send
type RecordingMailer struct {
	Sent []*model.ContactMessage
}

// Send implements contact.Mailer
func (m *RecordingMailer) Send(ctx context.Context, msg *model.ContactMessage) error {
	m.Sent = append(m.Sent, msg)
	return nil
}
