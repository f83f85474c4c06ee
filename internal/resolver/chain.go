package resolver

import (
	"context"
	"log/slog"
	"time"

	"domainvet/internal/domain"
	"domainvet/internal/ports"
)

// RetryPolicy bounds transient-error retries within a single resolver.
type RetryPolicy struct {
	// Attempts is the number of retries after the initial call.
	Attempts int
	// BaseDelay is doubled on every retry.
	BaseDelay time.Duration
}

// Chain holds resolvers in fixed priority order together with the retry
// policy applied to each of them. Cheap and reliable strategies come
// first; a success stops the walk.
type Chain struct {
	resolvers []ports.Resolver
	retry     RetryPolicy
	sleep     func(context.Context, time.Duration) error
	logger    *slog.Logger
}

// NewChain builds a chain over an ordered resolver list.
func NewChain(resolvers []ports.Resolver, retry RetryPolicy, log *slog.Logger) *Chain {
	return &Chain{
		resolvers: resolvers,
		retry:     retry,
		sleep:     sleepContext,
		logger:    log,
	}
}

// Resolvers returns the chain in priority order.
func (c *Chain) Resolvers() []ports.Resolver {
	return c.resolvers
}

// AttemptWithRetry runs one resolver, retrying transient failures with
// exponential backoff before demoting them to a permanent miss. The
// returned error is non-nil only when the context was cancelled, in
// which case the outcome must not be persisted.
func (c *Chain) AttemptWithRetry(ctx context.Context, res ports.Resolver, name string) (domain.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return domain.Outcome{}, err
	}

	outcome := res.Attempt(ctx, name)
	for retryNo := 1; outcome.Kind == domain.OutcomeTransient && retryNo <= c.retry.Attempts; retryNo++ {
		delay := c.retry.BaseDelay << (retryNo - 1)
		if c.logger != nil {
			c.logger.Debug("retrying resolver after transient error",
				"resolver", res.Name(), "domain", name, "retry", retryNo, "delay", delay)
		}
		if err := c.sleep(ctx, delay); err != nil {
			return domain.Outcome{}, err
		}
		outcome = res.Attempt(ctx, name)
	}

	if err := ctx.Err(); err != nil {
		return domain.Outcome{}, err
	}

	if outcome.Kind == domain.OutcomeTransient {
		return domain.NotFound("retries exhausted: " + outcome.Reason), nil
	}
	return outcome, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
