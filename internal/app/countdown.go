package app

import (
	"sync"
	"time"
)

// Countdown runs a function once per interval on its own goroutine until stopped.
// Stop does not wait for an in-flight call to return; callers guard their state
// with the token handed to fn and drop ticks whose token is no longer current.
type Countdown struct {
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
}

func NewCountdown(interval time.Duration) *Countdown {
	if interval <= 0 {
		interval = time.Second
	}
	return &Countdown{interval: interval}
}

// Start begins ticking, replacing any previous schedule.
func (c *Countdown) Start(token uint64, fn func(token uint64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()

	stop := make(chan struct{})
	c.stop = stop

	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				select {
				case <-stop:
					return
				default:
				}
				fn(token)
			}
		}
	}()
}

// Stop cancels the schedule. It is safe to call when not running.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Countdown) stopLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

// Running reports whether a schedule is active.
func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil
}
