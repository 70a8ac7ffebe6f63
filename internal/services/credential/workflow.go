// Package credential validates and hands off credential changes: account
// registration and password changes on an existing account.
//
// Validation is synchronous and side-effect free. Only an accepted request
// reaches the Persister, which owns hashing, storage and identifier uniqueness.
package credential

import (
	"context"
	"errors"

	"github.com/isepctf/ctfportal/internal/model"
	"github.com/isepctf/ctfportal/internal/services/policy"
)

// ErrPersistenceFailed marks a failure of the persistence collaborator.
// The collaborator's own error is joined to it unchanged; callers may retry.
var ErrPersistenceFailed = errors.New("credential persistence failed")

// Reason explains why a request was rejected
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonUnauthorized Reason = "unauthorized"
	ReasonWeakSecret   Reason = "weak_secret"
	ReasonMismatch     Reason = "mismatch"
)

// Authorization answers whether the requester may change a credential.
// The decision is made elsewhere (session/identity management); the
// workflow only reflects it.
type Authorization interface {
	Permits(target model.AccountID) bool
}

// Allow permits every target
var Allow Authorization = staticAuthorization(true)

// Deny permits nothing
var Deny Authorization = staticAuthorization(false)

type staticAuthorization bool

func (a staticAuthorization) Permits(model.AccountID) bool {
	return bool(a)
}

// Persister durably stores an accepted secret for an identity
type Persister interface {
	Persist(ctx context.Context, target model.AccountID, secret string) error
}

// PersisterFunc adapts a function to Persister
type PersisterFunc func(ctx context.Context, target model.AccountID, secret string) error

// Persist calls f
func (f PersisterFunc) Persist(ctx context.Context, target model.AccountID, secret string) error {
	return f(ctx, target, secret)
}

// Observer is notified of every validation outcome
type Observer interface {
	ObserveSubmission(reason Reason)
}

// Request is a single credential change attempt. It lives for one call.
type Request struct {
	Target        model.AccountID
	Candidate     string
	Confirmation  string
	Authorization Authorization
}

// Result is the outcome of validating a Request.
// Policy is populated whenever the candidate was evaluated.
type Result struct {
	Accepted bool
	Reason   Reason
	Policy   policy.Result
}

// Rejected reports whether the request was turned down
func (r Result) Rejected() bool {
	return !r.Accepted
}

// Workflow validates requests and forwards accepted ones to a Persister.
// It holds no mutable state; one Workflow can serve concurrent callers.
type Workflow struct {
	persister Persister
	observer  Observer
}

// Option configures a Workflow
type Option func(*Workflow)

// WithObserver attaches an Observer
func WithObserver(o Observer) Option {
	return func(w *Workflow) {
		w.observer = o
	}
}

// NewWorkflow creates a Workflow that hands accepted secrets to persister
func NewWorkflow(persister Persister, opts ...Option) *Workflow {
	w := &Workflow{persister: persister}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Validate runs the checks in order; the first failure wins:
// authorization, then policy, then confirmation.
func (w *Workflow) Validate(req Request) Result {
	result := validate(req)
	if w.observer != nil {
		w.observer.ObserveSubmission(result.Reason)
	}
	return result
}

// Submit validates req and, when accepted, persists the candidate.
// Rejections are reported in Result; the error is non-nil only when the
// persister fails.
func (w *Workflow) Submit(ctx context.Context, req Request) (Result, error) {
	result := w.Validate(req)
	if result.Rejected() {
		return result, nil
	}

	return result, w.persist(ctx, req)
}

func (w *Workflow) persist(ctx context.Context, req Request) error {
	if err := w.persister.Persist(ctx, req.Target, req.Candidate); err != nil {
		return errors.Join(ErrPersistenceFailed, err)
	}
	return nil
}

func validate(req Request) Result {
	if req.Authorization == nil || !req.Authorization.Permits(req.Target) {
		return Result{Reason: ReasonUnauthorized}
	}

	evaluated := policy.Evaluate(req.Candidate)
	if !evaluated.Acceptable {
		return Result{Reason: ReasonWeakSecret, Policy: evaluated}
	}

	if req.Candidate != req.Confirmation {
		return Result{Reason: ReasonMismatch, Policy: evaluated}
	}

	return Result{Accepted: true, Policy: evaluated}
}
