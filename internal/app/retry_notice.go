package app

import (
	"context"
	"time"
)

// RetryNotice is told about each retry a question source schedules:
// the upcoming attempt number (1-based retry count) and how long it will wait first.
type RetryNotice func(retry int, delay time.Duration)

type retryNoticeKey struct{}

// WithRetryNotice attaches fn to ctx so a QuestionSource can report its retries.
func WithRetryNotice(ctx context.Context, fn RetryNotice) context.Context {
	return context.WithValue(ctx, retryNoticeKey{}, fn)
}

// RetryNoticeFrom returns the notice attached to ctx, or a no-op.
func RetryNoticeFrom(ctx context.Context) RetryNotice {
	if fn, ok := ctx.Value(retryNoticeKey{}).(RetryNotice); ok && fn != nil {
		return fn
	}
	return func(int, time.Duration) {}
}
