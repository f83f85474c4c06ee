package verify

import (
	"context"
	"log/slog"
	"time"

	"domainvet/internal/domain"
	"domainvet/internal/ports"
)

// timedOutReason is the human-readable reason stamped onto domains
// whose challenge exhausted its attempts or age budget.
const timedOutReason = "verification timed out"

// PollerConfig tunes the verification cadence and its budgets.
type PollerConfig struct {
	Interval time.Duration
	// MaxAge bounds wall-clock wait per task on top of the per-task
	// attempt budget.
	MaxAge time.Duration
}

// Poller drives the challenge state machine: WAITING tasks move to
// VERIFIED when the expected TXT value appears, or to FAILED once the
// attempt or age budget is spent. Terminal states are never left.
type Poller struct {
	store  ports.VerificationStore
	reader ports.TXTReader
	cfg    PollerConfig
	clock  ports.Clock
	logger *slog.Logger
}

// NewPoller wires the store, the TXT reader and an injected clock.
func NewPoller(store ports.VerificationStore, reader ports.TXTReader, cfg PollerConfig, clock ports.Clock, log *slog.Logger) *Poller {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Poller{store: store, reader: reader, cfg: cfg, clock: clock, logger: log}
}

// Run executes poll cycles on the configured cadence until the context
// is cancelled. Cancellation is honored at the top of every sleep; a
// nil return means clean shutdown.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := p.RunOnce(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce processes every WAITING task exactly once. Store errors are
// fatal; DNS lookup failures are not.
func (p *Poller) RunOnce(ctx context.Context) error {
	tasks, err := p.store.WaitingVerificationTasks(ctx)
	if err != nil {
		return err
	}
	if p.logger != nil && len(tasks) > 0 {
		p.logger.Debug("poll cycle", "waiting_tasks", len(tasks))
	}

	for _, task := range tasks {
		// Cancellation lands between tasks, never mid-mutation.
		if ctx.Err() != nil {
			return nil
		}
		if err := p.check(ctx, task); err != nil {
			return err
		}
	}
	return nil
}

func (p *Poller) check(ctx context.Context, task domain.VerificationTask) error {
	values, raw, lookupErr := p.reader.Lookup(ctx, task.Domain)
	now := p.clock.Now()

	if lookupErr == nil {
		for _, value := range values {
			// Exact byte-for-byte match. Unrelated TXT records on the
			// same name are scanned past; near-misses never verify.
			if value == task.Token {
				if p.logger != nil {
					p.logger.Info("challenge verified", "domain", task.Domain, "attempts", task.Attempts+1)
				}
				return p.store.CompleteVerification(ctx, task.Domain, now, raw)
			}
		}
	}

	// A transport failure is indistinguishable from propagation delay,
	// so it counts as a negative result like any other.
	failReason := "token not found in txt record set"
	if lookupErr != nil {
		failReason = lookupErr.Error()
		if p.logger != nil {
			p.logger.Debug("txt lookup failed", "domain", task.Domain, "error", lookupErr)
		}
	}

	attempts, err := p.store.RecordCheck(ctx, task.Domain, now, raw, failReason)
	if err != nil {
		return err
	}

	if attempts >= task.MaxAttempts || (p.cfg.MaxAge > 0 && now.Sub(task.CreatedAt) >= p.cfg.MaxAge) {
		if p.logger != nil {
			p.logger.Info("challenge failed", "domain", task.Domain, "attempts", attempts)
		}
		return p.store.FailVerification(ctx, task.Domain, now, timedOutReason)
	}
	return nil
}
