package game

import (
	"sync"
	"time"
)

// Countdown runs a ticking timer for a fixed number of seconds. onTick is
// called once per second with the remaining seconds (starting at the full
// value), and onDone fires after the last tick unless Stop is called first.
// Both callbacks run on the countdown goroutine. It is safe for concurrent
// use.
type Countdown struct {
	mu      sync.Mutex
	stopped bool
	cancel  chan struct{}
}

// StartCountdown creates and starts a countdown of the given number of
// seconds. Either callback may be nil.
//
// Postcondition: after Stop returns, neither callback will fire again.
func StartCountdown(seconds int, interval time.Duration, onTick func(remaining int), onDone func()) *Countdown {
	c := &Countdown{cancel: make(chan struct{})}

	go func() {
		if c.fire(onTick, seconds) {
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		remaining := seconds
		for remaining > 0 {
			select {
			case <-c.cancel:
				return
			case <-ticker.C:
				remaining--
				if remaining > 0 {
					if c.fire(onTick, remaining) {
						return
					}
				}
			}
		}

		c.mu.Lock()
		stopped := c.stopped
		c.mu.Unlock()
		if !stopped && onDone != nil {
			onDone()
		}
	}()

	return c
}

// fire invokes onTick unless the countdown has been stopped. Reports
// whether the countdown should bail out.
func (c *Countdown) fire(onTick func(remaining int), remaining int) bool {
	c.mu.Lock()
	stopped := c.stopped
	c.mu.Unlock()
	if stopped {
		return true
	}
	if onTick != nil {
		onTick(remaining)
	}
	return false
}

// Stop prevents any further ticks and the completion callback. Safe to
// call multiple times.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	close(c.cancel)
}
