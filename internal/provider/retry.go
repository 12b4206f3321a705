package provider

import (
	"context"
	"time"
)

// RetryPolicy bounds retries of transient provider failures. The n-th retry waits
// n × Unit, so the default policy waits 2s then 4s before giving up after 3 attempts.
type RetryPolicy struct {
	MaxRetries int
	Unit       time.Duration
}

// DefaultRetryPolicy mirrors the provider's documented cool-down.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 2, Unit: 2 * time.Second}

// Delay returns the wait before the given retry (1-based).
func (p RetryPolicy) Delay(retry int) time.Duration {
	if retry <= 0 {
		return 0
	}
	return time.Duration(retry) * p.Unit
}

// Attempts is the total number of requests the policy allows.
func (p RetryPolicy) Attempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
