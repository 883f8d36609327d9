package quiz

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TickFunc renders the remaining time. Returning false ends the countdown
// without expiry.
type TickFunc func(remaining time.Duration) bool

// Countdown is one running per-question timer.
type Countdown struct {
	ID         uuid.UUID
	QuestionID int64

	cancel context.CancelFunc
	done   chan struct{}
}

// Stop requests cancellation without waiting. Safe to call from the
// countdown's own callbacks.
func (c *Countdown) Stop() {
	c.cancel()
}

// Cancel stops the countdown and waits until no callback is running.
// It must not be called from the countdown's own callbacks.
func (c *Countdown) Cancel() {
	c.cancel()
	<-c.done
}

// Done is closed once the countdown goroutine has exited.
func (c *Countdown) Done() <-chan struct{} {
	return c.done
}

// Scheduler runs countdowns and keeps track of the live ones.
type Scheduler struct {
	mu     sync.Mutex
	active map[uuid.UUID]*Countdown
}

// NewScheduler returns a scheduler with no countdowns.
func NewScheduler() *Scheduler {
	return &Scheduler{active: make(map[uuid.UUID]*Countdown)}
}

// Schedule starts a countdown of total. onTick fires every tick (the first
// one after a full interval) while time remains; onExpire fires once when
// total elapses without cancellation.
func (sc *Scheduler) Schedule(questionID int64, total, tick time.Duration, onTick TickFunc, onExpire func()) *Countdown {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Countdown{
		ID:         uuid.New(),
		QuestionID: questionID,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	sc.mu.Lock()
	sc.active[c.ID] = c
	sc.mu.Unlock()

	go func() {
		defer func() {
			sc.mu.Lock()
			delete(sc.active, c.ID)
			sc.mu.Unlock()
			cancel()
			close(c.done)
		}()
		run(ctx, total, tick, onTick, onExpire)
	}()

	return c
}

func run(ctx context.Context, total, tick time.Duration, onTick TickFunc, onExpire func()) {
	deadline := time.NewTimer(total)
	defer deadline.Stop()

	var ticks <-chan time.Time
	if tick > 0 && tick < total {
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		ticks = ticker.C
	}

	var elapsed time.Duration
	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			if ctx.Err() != nil {
				return
			}
			onExpire()
			return
		case <-ticks:
			elapsed += tick
			remaining := total - elapsed
			if remaining <= 0 || ctx.Err() != nil {
				continue
			}
			if onTick != nil && !onTick(remaining) {
				return
			}
		}
	}
}

// Active returns the number of countdowns still running.
func (sc *Scheduler) Active() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.active)
}

// Shutdown cancels every countdown and waits for them.
func (sc *Scheduler) Shutdown() {
	sc.mu.Lock()
	all := make([]*Countdown, 0, len(sc.active))
	for _, c := range sc.active {
		all = append(all, c)
	}
	sc.mu.Unlock()

	for _, c := range all {
		c.Cancel()
	}
}
