package session

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"
)

// DefaultTickInterval is the render tick, 20 frames per second
const DefaultTickInterval = 50 * time.Millisecond

// Run drives the session on s until it ends or ctx is cancelled.
// A ticker wakes PollEvent with interrupt events so inbound data is shown
// without waiting for a key press.
func (c *Controller) Run(ctx context.Context, s tcell.Screen, interval time.Duration) Outcome {
	if interval <= 0 {
		interval = DefaultTickInterval
	}

	stop := make(chan struct{})
	defer close(stop)
	go postTicks(s, interval, stop)

	c.log.Debug("session started", "title", c.opts.Title)

	for {
		if ctx.Err() != nil {
			c.outcome = OutcomeExit
			break
		}

		c.Tick()
		if c.Done() {
			break
		}

		c.Draw(s)
		s.Show()

		ev := s.PollEvent()
		if ev == nil {
			// Screen finalized underneath us.
			c.outcome = OutcomeExit
			break
		}

		switch ev := ev.(type) {
		case *tcell.EventKey:
			c.HandleKey(ev)
		case *tcell.EventResize:
			s.Sync()
		case *tcell.EventInterrupt:
		}
	}

	s.HideCursor()
	sent, received := c.Counters()
	c.log.Debug("session finished", "outcome", c.outcome, "sent", sent, "received", received)
	return c.outcome
}

func postTicks(s tcell.Screen, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// A full event queue already guarantees a wakeup.
			_ = s.PostEvent(tcell.NewEventInterrupt(nil))
		}
	}
}
