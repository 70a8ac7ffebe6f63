// Package countdown runs the competition clock shown on the admin panel.
//
// The countdown ticks once per second while running. When it reaches zero
// the competition stops, a short detonation phase follows, and the clock
// resets to its full duration.
package countdown

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/isepctf/ctfportal/internal/dependencies/clock"
)

const (
	// DefaultDuration is the length of a competition
	DefaultDuration = 7 * 24 * time.Hour
	// TickInterval is how often a running countdown publishes
	TickInterval = time.Second
	// BlastDuration is how long the detonation phase lasts before the reset
	BlastDuration = 1500 * time.Millisecond

	subscriberBuffer = 16
)

// Snapshot is the state of the countdown at one instant
type Snapshot struct {
	Remaining  time.Duration
	Running    bool
	Detonating bool
	Display    string
}

// Countdown is safe for concurrent use.
// At most one timer (tick or blast) is pending at any time.
type Countdown struct {
	clock    clock.Clock
	logger   *slog.Logger
	duration time.Duration

	mu         sync.Mutex
	remaining  time.Duration
	deadline   time.Time
	running    bool
	detonating bool
	timer      clock.Timer
	generation uint64
	closed     bool

	subscribers map[int]chan Snapshot
	nextSubID   int
}

// New creates a stopped countdown. A zero duration means DefaultDuration.
func New(clk clock.Clock, duration time.Duration, logger *slog.Logger) *Countdown {
	if duration <= 0 {
		duration = DefaultDuration
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Countdown{
		clock:       clk,
		logger:      logger.With(slog.String("component", "countdown")),
		duration:    duration,
		remaining:   duration,
		subscribers: make(map[int]chan Snapshot),
	}
}

// Duration returns the full length the countdown resets to
func (c *Countdown) Duration() time.Duration {
	return c.duration
}

// Start resumes the countdown. It is a no-op while running, detonating or closed.
func (c *Countdown) Start() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.running || c.detonating {
		return c.snapshotLocked()
	}

	c.running = true
	c.deadline = c.clock.Now().Add(c.remaining)
	c.scheduleLocked(c.nextTickLocked(), c.tick)
	c.logger.Info("ctf started", slog.Duration("remaining", c.remaining))
	return c.publishLocked()
}

// Stop pauses the countdown, keeping the remaining time
func (c *Countdown) Stop() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return c.snapshotLocked()
	}

	c.remaining = c.remainingLocked()
	c.running = false
	c.cancelLocked()
	c.logger.Info("ctf stopped", slog.Duration("remaining", c.remaining))
	return c.publishLocked()
}

// Toggle starts a stopped countdown and stops a running one
func (c *Countdown) Toggle() Snapshot {
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()

	if running {
		return c.Stop()
	}
	return c.Start()
}

// Snapshot returns the current state
func (c *Countdown) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel receiving every published snapshot, starting
// with the current one. Slow subscribers miss snapshots rather than block
// the clock. Call the returned function to unsubscribe.
func (c *Countdown) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Snapshot, subscriberBuffer)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = ch
	ch <- c.snapshotLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subscribers[id]; ok {
				delete(c.subscribers, id)
				close(sub)
			}
		})
	}
}

// Close cancels the pending timer and closes every subscription
func (c *Countdown) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	if c.running {
		c.remaining = c.remainingLocked()
	}
	c.running = false
	c.cancelLocked()
	for id, ch := range c.subscribers {
		delete(c.subscribers, id)
		close(ch)
	}
}

func (c *Countdown) tick(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || !c.running {
		return
	}
	c.timer = nil

	c.remaining = c.remainingLocked()
	if c.remaining > 0 {
		c.scheduleLocked(c.nextTickLocked(), c.tick)
		c.publishLocked()
		return
	}

	c.remaining = 0
	c.running = false
	c.detonating = true
	c.scheduleLocked(BlastDuration, c.reset)
	c.logger.Info("ctf time is up")
	c.publishLocked()
}

func (c *Countdown) reset(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || !c.detonating {
		return
	}
	c.timer = nil
	c.detonating = false
	c.remaining = c.duration
	c.publishLocked()
}

// nextTickLocked waits a full interval, or less when the deadline is closer
func (c *Countdown) nextTickLocked() time.Duration {
	left := c.remainingLocked()
	if left < TickInterval {
		return left
	}
	return TickInterval
}

func (c *Countdown) remainingLocked() time.Duration {
	if !c.running {
		return c.remaining
	}
	left := c.deadline.Sub(c.clock.Now())
	if left < 0 {
		return 0
	}
	return left
}

// scheduleLocked replaces any pending timer; stale callbacks see a newer
// generation and return without effect
func (c *Countdown) scheduleLocked(d time.Duration, fn func(uint64)) {
	c.cancelLocked()
	gen := c.generation
	c.timer = c.clock.AfterFunc(d, func() { fn(gen) })
}

func (c *Countdown) cancelLocked() {
	c.generation++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Countdown) snapshotLocked() Snapshot {
	remaining := c.remainingLocked()
	return Snapshot{
		Remaining:  remaining,
		Running:    c.running,
		Detonating: c.detonating,
		Display:    Format(remaining),
	}
}

func (c *Countdown) publishLocked() Snapshot {
	snap := c.snapshotLocked()
	for _, ch := range c.subscribers {
		select {
		case ch <- snap:
		default:
		}
	}
	return snap
}

// Format renders a duration as "Dd HH:MM:SS", dropping fractions of a second
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%dd %02d:%02d:%02d", days, hours, minutes, seconds)
}
