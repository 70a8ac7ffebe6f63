package countdown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/isepctf/ctfportal/internal/dependencies/mocks"
	"github.com/isepctf/ctfportal/internal/testutil"
)

type CountdownSuite struct {
	suite.Suite
	clock     *mocks.MockClock
	countdown *Countdown
}

func TestCountdownSuite(t *testing.T) {
	suite.Run(t, new(CountdownSuite))
}

func (s *CountdownSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.countdown = New(s.clock, 5*time.Second, testutil.NopLogger())
}

func (s *CountdownSuite) TearDownTest() {
	s.countdown.Close()
}

func (s *CountdownSuite) TestStartsStoppedAtFullDuration() {
	snap := s.countdown.Snapshot()
	s.False(snap.Running)
	s.False(snap.Detonating)
	s.Equal(5*time.Second, snap.Remaining)
	s.Equal("0d 00:00:05", snap.Display)
	s.Equal(0, s.clock.PendingTimers())
}

func (s *CountdownSuite) TestDefaultDuration() {
	c := New(s.clock, 0, nil)
	s.Equal(DefaultDuration, c.Duration())
	s.Equal("7d 00:00:00", c.Snapshot().Display)
}

func (s *CountdownSuite) TestTicksOncePerSecond() {
	s.countdown.Start()
	s.Equal(1, s.clock.PendingTimers())

	s.clock.Advance(time.Second)
	snap := s.countdown.Snapshot()
	s.True(snap.Running)
	s.Equal(4*time.Second, snap.Remaining)
	s.Equal("0d 00:00:04", snap.Display)
	s.Equal(1, s.clock.PendingTimers(), "only the next tick is pending")
}

func (s *CountdownSuite) TestStopKeepsRemainingTime() {
	s.countdown.Start()
	s.clock.Advance(2 * time.Second)

	snap := s.countdown.Stop()
	s.False(snap.Running)
	s.Equal(3*time.Second, snap.Remaining)
	s.Equal(0, s.clock.PendingTimers())

	s.clock.Advance(time.Minute)
	s.Equal(3*time.Second, s.countdown.Snapshot().Remaining)

	s.countdown.Start()
	s.clock.Advance(time.Second)
	s.Equal(2*time.Second, s.countdown.Snapshot().Remaining)
}

func (s *CountdownSuite) TestStopBetweenTicks() {
	s.countdown.Start()
	s.clock.Advance(1500 * time.Millisecond)

	snap := s.countdown.Stop()
	s.Equal(3500*time.Millisecond, snap.Remaining)
	s.Equal("0d 00:00:03", snap.Display)
}

func (s *CountdownSuite) TestStartTwiceIsNoop() {
	s.countdown.Start()
	s.countdown.Start()
	s.Equal(1, s.clock.PendingTimers())
}

func (s *CountdownSuite) TestReachingZeroDetonatesThenResets() {
	s.countdown.Start()
	s.clock.Advance(5 * time.Second)

	snap := s.countdown.Snapshot()
	s.False(snap.Running, "the competition stops at zero")
	s.True(snap.Detonating)
	s.Equal(time.Duration(0), snap.Remaining)
	s.Equal("0d 00:00:00", snap.Display)
	s.Equal(1, s.clock.PendingTimers())

	s.clock.Advance(BlastDuration - time.Millisecond)
	s.True(s.countdown.Snapshot().Detonating)

	s.clock.Advance(time.Millisecond)
	snap = s.countdown.Snapshot()
	s.False(snap.Detonating)
	s.False(snap.Running)
	s.Equal(5*time.Second, snap.Remaining)
	s.Equal(0, s.clock.PendingTimers())
}

func (s *CountdownSuite) TestStartIgnoredWhileDetonating() {
	s.countdown.Start()
	s.clock.Advance(5 * time.Second)

	snap := s.countdown.Start()
	s.False(snap.Running)
	s.True(snap.Detonating)
	s.Equal(1, s.clock.PendingTimers())
}

func (s *CountdownSuite) TestToggle() {
	s.True(s.countdown.Toggle().Running)
	s.False(s.countdown.Toggle().Running)
	s.Equal(0, s.clock.PendingTimers())
}

func (s *CountdownSuite) TestSubscribersReceiveSnapshots() {
	updates, unsubscribe := s.countdown.Subscribe()
	defer unsubscribe()

	first := <-updates
	s.False(first.Running)

	s.countdown.Start()
	s.True((<-updates).Running)

	s.clock.Advance(time.Second)
	s.Equal(4*time.Second, (<-updates).Remaining)
}

func (s *CountdownSuite) TestUnsubscribeClosesChannel() {
	updates, unsubscribe := s.countdown.Subscribe()
	<-updates
	unsubscribe()
	unsubscribe()

	_, ok := <-updates
	s.False(ok)
}

func (s *CountdownSuite) TestSlowSubscriberDoesNotBlock() {
	updates, unsubscribe := s.countdown.Subscribe()
	defer unsubscribe()

	s.countdown.Start()
	s.clock.Advance(4 * time.Second)
	s.countdown.Stop()
	for range 3 * subscriberBuffer {
		s.countdown.Toggle()
	}
	s.NotEmpty(updates)
}

func (s *CountdownSuite) TestCloseCancelsEverything() {
	updates, _ := s.countdown.Subscribe()
	<-updates
	s.countdown.Start()

	s.countdown.Close()
	s.Equal(0, s.clock.PendingTimers())

	_, ok := <-updates
	s.False(ok)

	s.False(s.countdown.Start().Running)

	closed, _ := s.countdown.Subscribe()
	_, ok = <-closed
	s.False(ok)
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0d 00:00:00"},
		{-time.Second, "0d 00:00:00"},
		{999 * time.Millisecond, "0d 00:00:00"},
		{59 * time.Second, "0d 00:00:59"},
		{90061 * time.Second, "1d 01:01:01"},
		{DefaultDuration, "7d 00:00:00"},
		{DefaultDuration - time.Second, "6d 23:59:59"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.in), "Format(%v)", tt.in)
	}
}
