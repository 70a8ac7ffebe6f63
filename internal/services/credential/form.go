package credential

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/isepctf/ctfportal/internal/dependencies/clock"
	"github.com/isepctf/ctfportal/internal/model"
	"github.com/isepctf/ctfportal/internal/services/policy"
)

// ErrFormClosed is reported by tickets for submissions on a closed form
var ErrFormClosed = errors.New("form is closed")

// DefaultNoticeTTL is how long a success notice stays visible
const DefaultNoticeTTL = 3 * time.Second

// Field names a form input
type Field string

const (
	FieldPassword     Field = "password"
	FieldConfirmation Field = "confirmation"
)

// State is the form's position in the credential workflow
type State string

const (
	StateEditing    State = "editing"
	StateValidating State = "validating"
	StateAccepted   State = "accepted"
)

// FormConfig configures a Form
type FormConfig struct {
	Target        model.AccountID
	Authorization Authorization
	Workflow      *Workflow
	Clock         clock.Clock

	// SuccessMessage is shown after an accepted submission
	SuccessMessage string
	// NoticeTTL defaults to DefaultNoticeTTL
	NoticeTTL time.Duration
}

// View is a read-only snapshot of the form for rendering
type View struct {
	State      State
	Password   string
	Confirm    string
	Projection policy.Projection
	// Rejection is set after a rejected submit until the next edit
	Rejection *Result
	// Err is set when persistence failed, until the next edit
	Err    error
	Notice string
}

// CanSubmit reports whether the submit control should be enabled
func (v View) CanSubmit() bool {
	return v.Projection.Policy.Acceptable && v.Projection.SecretsMatch
}

// Form tracks one credential form across keystrokes and submissions.
//
// Every edit and submit is an event with a sequence number. An asynchronous
// completion only updates the form if no newer event has happened since its
// submit, so a slow save can never overwrite what the user typed afterwards.
type Form struct {
	cfg FormConfig

	mu         sync.Mutex
	seq        uint64
	state      State
	password   string
	confirm    string
	projection policy.Projection
	rejection  *Result
	err        error
	closed     bool

	inflight map[uint64]context.CancelFunc

	notice      string
	noticeGen   uint64
	noticeTimer clock.Timer
}

// NewForm creates an empty form in the editing state
func NewForm(cfg FormConfig) *Form {
	if cfg.NoticeTTL <= 0 {
		cfg.NoticeTTL = DefaultNoticeTTL
	}
	return &Form{
		cfg:        cfg,
		state:      StateEditing,
		projection: policy.Project("", ""),
		inflight:   make(map[uint64]context.CancelFunc),
	}
}

// Edit records a new value for field and returns the fresh projection
func (f *Form) Edit(field Field, value string) policy.Projection {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return f.projection
	}

	f.seq++
	switch field {
	case FieldPassword:
		f.password = value
	case FieldConfirmation:
		f.confirm = value
	}
	f.projection = policy.Project(f.password, f.confirm)
	f.state = StateEditing
	f.rejection = nil
	f.err = nil
	return f.projection
}

// Submit validates the current values synchronously. Rejected tickets are
// already complete when returned; accepted ones complete once the
// persister returns.
func (f *Form) Submit(ctx context.Context) *Ticket {
	t := newTicket()

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		t.finish(Result{}, ErrFormClosed)
		return t
	}
	f.seq++
	seq := f.seq
	req := Request{
		Target:        f.cfg.Target,
		Candidate:     f.password,
		Confirmation:  f.confirm,
		Authorization: f.cfg.Authorization,
	}
	f.state = StateValidating
	f.mu.Unlock()

	result := f.cfg.Workflow.Validate(req)
	if result.Rejected() {
		f.mu.Lock()
		if f.seq == seq && !f.closed {
			f.state = StateEditing
			f.rejection = &result
		}
		f.mu.Unlock()
		t.finish(result, nil)
		return t
	}

	persistCtx, cancel := context.WithCancel(ctx)
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		cancel()
		t.finish(Result{}, ErrFormClosed)
		return t
	}
	f.inflight[seq] = cancel
	f.mu.Unlock()

	go func() {
		err := f.cfg.Workflow.persist(persistCtx, req)
		f.complete(seq, err)
		t.finish(result, err)
	}()

	return t
}

func (f *Form) complete(seq uint64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if cancel, ok := f.inflight[seq]; ok {
		cancel()
		delete(f.inflight, seq)
	}

	if f.closed || f.seq != seq {
		return
	}

	if err != nil {
		f.state = StateEditing
		f.err = err
		return
	}

	f.state = StateAccepted
	f.password = ""
	f.confirm = ""
	f.projection = policy.Project("", "")
	f.showNotice(f.cfg.SuccessMessage)
}

// showNotice replaces any visible notice and restarts the dismiss timer.
// Caller must hold f.mu.
func (f *Form) showNotice(msg string) {
	if f.noticeTimer != nil {
		f.noticeTimer.Stop()
	}
	f.noticeGen++
	gen := f.noticeGen
	f.notice = msg
	f.noticeTimer = f.cfg.Clock.AfterFunc(f.cfg.NoticeTTL, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.noticeGen == gen {
			f.notice = ""
			f.noticeTimer = nil
		}
	})
}

// View returns a snapshot of the form
func (f *Form) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()

	return View{
		State:      f.state,
		Password:   f.password,
		Confirm:    f.confirm,
		Projection: f.projection,
		Rejection:  f.rejection,
		Err:        f.err,
		Notice:     f.notice,
	}
}

// Close tears the form down: pending saves are cancelled and no timer or
// completion will touch the form afterwards.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	for seq, cancel := range f.inflight {
		cancel()
		delete(f.inflight, seq)
	}
	if f.noticeTimer != nil {
		f.noticeTimer.Stop()
		f.noticeTimer = nil
	}
	f.noticeGen++
	f.notice = ""
}

// Ticket tracks the outcome of one Submit
type Ticket struct {
	done   chan struct{}
	result Result
	err    error
}

func newTicket() *Ticket {
	return &Ticket{done: make(chan struct{})}
}

func (t *Ticket) finish(result Result, err error) {
	t.result = result
	t.err = err
	close(t.done)
}

// Done is closed once the outcome is known
func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the outcome is known or ctx ends
func (t *Ticket) Wait(ctx context.Context) (Result, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
