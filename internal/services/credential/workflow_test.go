package credential

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/isepctf/ctfportal/internal/model"
	"github.com/isepctf/ctfportal/internal/services/policy"
)

// recordingPersister remembers what it was asked to store
type recordingPersister struct {
	calls []persistCall
	err   error
}

type persistCall struct {
	target model.AccountID
	secret string
}

func (p *recordingPersister) Persist(_ context.Context, target model.AccountID, secret string) error {
	p.calls = append(p.calls, persistCall{target: target, secret: secret})
	return p.err
}

type countingObserver struct {
	reasons []Reason
}

func (o *countingObserver) ObserveSubmission(reason Reason) {
	o.reasons = append(o.reasons, reason)
}

type WorkflowSuite struct {
	suite.Suite
	persister *recordingPersister
	observer  *countingObserver
	workflow  *Workflow
	ctx       context.Context
}

func TestWorkflowSuite(t *testing.T) {
	suite.Run(t, new(WorkflowSuite))
}

func (s *WorkflowSuite) SetupTest() {
	s.persister = &recordingPersister{}
	s.observer = &countingObserver{}
	s.workflow = NewWorkflow(s.persister, WithObserver(s.observer))
	s.ctx = context.Background()
}

func (s *WorkflowSuite) request(candidate, confirmation string, auth Authorization) Request {
	return Request{
		Target:        "acct-1",
		Candidate:     candidate,
		Confirmation:  confirmation,
		Authorization: auth,
	}
}

func (s *WorkflowSuite) TestAcceptsStrongMatchingSecret() {
	result, err := s.workflow.Submit(s.ctx, s.request("Str0ngP@ssword!", "Str0ngP@ssword!", Allow))
	s.Require().NoError(err)

	s.True(result.Accepted)
	s.Equal(ReasonNone, result.Reason)
	s.Equal(4, result.Policy.Score)
	s.Require().Len(s.persister.calls, 1)
	s.Equal(persistCall{target: "acct-1", secret: "Str0ngP@ssword!"}, s.persister.calls[0])
}

func (s *WorkflowSuite) TestUnauthorizedWinsOverEveryOtherFailure() {
	result, err := s.workflow.Submit(s.ctx, s.request("weak", "different", Deny))
	s.Require().NoError(err)

	s.True(result.Rejected())
	s.Equal(ReasonUnauthorized, result.Reason)
	s.Empty(s.persister.calls)
}

func (s *WorkflowSuite) TestNilAuthorizationIsUnauthorized() {
	result, err := s.workflow.Submit(s.ctx, s.request("Str0ngP@ssword!", "Str0ngP@ssword!", nil))
	s.Require().NoError(err)

	s.Equal(ReasonUnauthorized, result.Reason)
	s.Empty(s.persister.calls)
}

func (s *WorkflowSuite) TestWeakSecretCarriesPolicyBreakdown() {
	result, err := s.workflow.Submit(s.ctx, s.request("short1!", "short1!", Allow))
	s.Require().NoError(err)

	s.Equal(ReasonWeakSecret, result.Reason)
	s.Less(result.Policy.Score, 4)
	s.Equal([]policy.Rule{policy.RuleLength, policy.RuleUppercase}, result.Policy.Missing())
	s.Empty(s.persister.calls)
}

func (s *WorkflowSuite) TestWeakSecretWinsOverMismatch() {
	result, _ := s.workflow.Submit(s.ctx, s.request("short1!", "other", Allow))
	s.Equal(ReasonWeakSecret, result.Reason)
}

func (s *WorkflowSuite) TestMismatch() {
	result, err := s.workflow.Submit(s.ctx, s.request("GoodPassword123!", "different", Allow))
	s.Require().NoError(err)

	s.Equal(ReasonMismatch, result.Reason)
	s.True(result.Policy.Acceptable)
	s.Empty(s.persister.calls)
}

func (s *WorkflowSuite) TestPersistenceFailureIsPropagated() {
	storeErr := errors.New("connection refused")
	s.persister.err = storeErr

	result, err := s.workflow.Submit(s.ctx, s.request("Str0ngP@ssword!", "Str0ngP@ssword!", Allow))

	s.True(result.Accepted)
	s.ErrorIs(err, ErrPersistenceFailed)
	s.ErrorIs(err, storeErr)
	s.Len(s.persister.calls, 1)
}

func (s *WorkflowSuite) TestRepeatedAttemptsAreNeverThrottled() {
	for range 20 {
		result, _ := s.workflow.Submit(s.ctx, s.request("nope", "nope", Allow))
		s.Equal(ReasonWeakSecret, result.Reason)
	}
	result, err := s.workflow.Submit(s.ctx, s.request("Str0ngP@ssword!", "Str0ngP@ssword!", Allow))
	s.Require().NoError(err)
	s.True(result.Accepted)
}

func (s *WorkflowSuite) TestObserverSeesEveryOutcome() {
	_, _ = s.workflow.Submit(s.ctx, s.request("x", "x", Deny))
	_, _ = s.workflow.Submit(s.ctx, s.request("x", "x", Allow))
	_, _ = s.workflow.Submit(s.ctx, s.request("GoodPassword123!", "nope", Allow))
	_, _ = s.workflow.Submit(s.ctx, s.request("GoodPassword123!", "GoodPassword123!", Allow))

	s.Equal([]Reason{ReasonUnauthorized, ReasonWeakSecret, ReasonMismatch, ReasonNone}, s.observer.reasons)
}

type selfOnly model.AccountID

func (a selfOnly) Permits(target model.AccountID) bool {
	return model.AccountID(a) == target
}

func (s *WorkflowSuite) TestAuthorizationIsAskedAboutTheTarget() {
	req := s.request("Str0ngP@ssword!", "Str0ngP@ssword!", selfOnly("acct-2"))
	result, _ := s.workflow.Submit(s.ctx, req)
	s.Equal(ReasonUnauthorized, result.Reason)

	req.Authorization = selfOnly("acct-1")
	result, _ = s.workflow.Submit(s.ctx, req)
	s.True(result.Accepted)
}
