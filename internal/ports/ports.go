package ports

import (
	"context"
	"time"

	"domainvet/internal/domain"
)

// Resolver is one lookup strategy in the escalation chain.
type Resolver interface {
	// Name identifies the strategy inside the registry and in audit trails.
	Name() string
	// Stage is the pipeline stage this resolver represents.
	Stage() domain.Stage
	// Attempt performs a single lookup for a normalized domain name.
	Attempt(ctx context.Context, name string) domain.Outcome
}

// DomainTaskStore persists per-domain pipeline state for one run.
type DomainTaskStore interface {
	RunID() string
	// EnsureDomainTask returns the existing task for name or creates a
	// PENDING one.
	EnsureDomainTask(ctx context.Context, name string) (domain.DomainTask, error)
	DomainTask(ctx context.Context, name string) (domain.DomainTask, error)
	DomainTasks(ctx context.Context) ([]domain.DomainTask, error)
	// SetStage advances the task stage and appends a history event.
	SetStage(ctx context.Context, name string, stage domain.Stage, summary string) error
	// SaveResolution sets the stage to RESOLVED and stores the record in
	// one transaction.
	SaveResolution(ctx context.Context, name string, rec domain.OwnershipRecord) error
	// MarkUnresolved sets the terminal UNRESOLVED stage with a
	// human-readable reason.
	MarkUnresolved(ctx context.Context, name, reason string) error
}

// VerificationStore persists DNS TXT challenge tasks for one run.
type VerificationStore interface {
	// CreateVerificationTask inserts a WAITING task. It fails with
	// storage.ErrTokenCollision when the token already exists.
	CreateVerificationTask(ctx context.Context, task domain.VerificationTask) error
	// VerificationTask returns the task for name, or nil when absent.
	VerificationTask(ctx context.Context, name string) (*domain.VerificationTask, error)
	WaitingVerificationTasks(ctx context.Context) ([]domain.VerificationTask, error)
	// RecordCheck increments attempts and stamps last_checked_at,
	// returning the new attempt count.
	RecordCheck(ctx context.Context, name string, at time.Time, raw, failReason string) (int, error)
	// CompleteVerification marks the task VERIFIED and the owning domain
	// task RESOLVED in one transaction.
	CompleteVerification(ctx context.Context, name string, at time.Time, raw string) error
	// FailVerification marks the task FAILED and the owning domain task
	// UNRESOLVED in one transaction.
	FailVerification(ctx context.Context, name string, at time.Time, reason string) error
}

// RunStore is the single source of truth for one pipeline execution.
type RunStore interface {
	DomainTaskStore
	VerificationStore
	Close() error
}

// TXTReader fetches the TXT record set at the apex of a domain. It
// returns the decoded values plus the raw answer for audit storage.
type TXTReader interface {
	Lookup(ctx context.Context, name string) (values []string, raw string, err error)
}

// Clock abstracts wall-clock time so cadence logic stays testable.
type Clock interface {
	Now() time.Time
}
