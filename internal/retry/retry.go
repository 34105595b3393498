// Package retry implements bounded exponential-backoff retries for
// generation attempts.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/basel-ax/restyle/internal/domain"
)

// Policy configures the orchestrator. Attempts are counted inclusive of
// the first try: MaxAttempts=3 means one initial try plus up to two
// retries.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	JitterBound time.Duration

	// Rand supplies jitter draws; nil uses the global source.
	Rand *rand.Rand
}

// DefaultPolicy returns the stock retry configuration.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		JitterBound: 100 * time.Millisecond,
	}
}

// NextDelay returns the backoff before the retry following attempt n:
// BaseDelay doubled per attempt, plus a uniform jitter draw in
// [0, JitterBound).
func (p Policy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.BaseDelay << uint(attempt-1)
	if p.JitterBound > 0 {
		if p.Rand != nil {
			delay += time.Duration(p.Rand.Int63n(int64(p.JitterBound)))
		} else {
			delay += time.Duration(rand.Int63n(int64(p.JitterBound)))
		}
	}
	return delay
}

// AttemptFunc runs one generation attempt. It must honor ctx at its own
// suspension points.
type AttemptFunc func(ctx context.Context) (*domain.GenerationResult, error)

// NotifyFunc observes each attempt number as it begins. It is a one-way
// progress signal, never a control input.
type NotifyFunc func(attempt int)

// Do runs fn up to p.MaxAttempts times. Overload failures are retried
// after an interruptible backoff wait; terminal failures and
// cancellation end the run immediately. Attempts are strictly
// sequential.
func Do(ctx context.Context, p Policy, fn AttemptFunc, notify NotifyFunc) (*domain.GenerationResult, error) {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrCancelled, err)
		}
		if notify != nil {
			notify(attempt)
		}

		res, err := fn(ctx)
		if err == nil {
			return res, nil
		}
		if domain.IsCancelled(err) {
			return nil, err
		}
		if !domain.IsRetryable(err) {
			return nil, err
		}

		lastErr = err
		if attempt == p.MaxAttempts {
			break
		}
		if err := sleep(ctx, p.NextDelay(attempt)); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

// sleep waits d or until ctx is cancelled, whichever fires first. The
// losing timer is stopped so it does not leak.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	select {
	case <-ctx.Done():
		t.Stop()
		return fmt.Errorf("%w: %v", domain.ErrCancelled, ctx.Err())
	case <-t.C:
		return nil
	}
}
