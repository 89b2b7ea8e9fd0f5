package eventlog

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/veryx/veryx/internal/event"
	"github.com/veryx/veryx/internal/metrics"
)

// RetryOptions bounds the retries of WithRetry.
type RetryOptions struct {
	// MaxTries counts the first attempt. Values below 1 mean 1.
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Logger          *slog.Logger
}

// DefaultRetryOptions returns the options used when none are configured.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxTries:        5,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     250 * time.Millisecond,
	}
}

type retryLog struct {
	next   Log
	opts   RetryOptions
	logger *slog.Logger
}

// WithRetry wraps next so that appends are retried on Conflict and
// StorageUnavailable, and reads on StorageUnavailable. Every other error is
// returned on the first attempt. When the tries run out the last error is
// returned unchanged.
func WithRetry(next Log, opts RetryOptions) Log {
	if opts.MaxTries < 1 {
		opts.MaxTries = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &retryLog{next: next, opts: opts, logger: logger}
}

func (r *retryLog) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if r.opts.InitialInterval > 0 {
		b.InitialInterval = r.opts.InitialInterval
	}
	if r.opts.MaxInterval > 0 {
		b.MaxInterval = r.opts.MaxInterval
	}
	return b
}

func (r *retryLog) Append(ctx context.Context, streamID string, payload event.Payload, user string) (event.Event, error) {
	attempt := 0
	op := func() (event.Event, error) {
		attempt++
		if attempt > 1 {
			metrics.IncAppendRetries()
		}
		e, err := r.next.Append(ctx, streamID, payload, user)
		if err == nil {
			return e, nil
		}
		if IsConflict(err) || IsStorageUnavailable(err) {
			return event.Event{}, err
		}
		return event.Event{}, backoff.Permanent(err)
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(r.newBackOff()),
		backoff.WithMaxTries(r.opts.MaxTries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			r.logger.Debug("retrying append",
				"stream_id", streamID,
				"attempt", attempt,
				"wait", wait,
				"error", err,
			)
		}),
	)
}

func (r *retryLog) AllEvents(ctx context.Context) ([]event.Event, error) {
	op := func() ([]event.Event, error) {
		events, err := r.next.AllEvents(ctx)
		if err == nil {
			return events, nil
		}
		if IsStorageUnavailable(err) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(r.newBackOff()),
		backoff.WithMaxTries(r.opts.MaxTries),
	)
}

func (r *retryLog) Close() error {
	return r.next.Close()
}
