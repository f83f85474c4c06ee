package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	sq "github.com/Masterminds/squirrel"
	sqlite3 "github.com/mattn/go-sqlite3"

	"domainvet/internal/domain"
	"domainvet/internal/ports"
)

// ErrTokenCollision is returned when a verification token is already in
// use by another task. Practically unreachable given the entropy
// budget, but issuance must retry with a fresh token rather than
// overwrite.
var ErrTokenCollision = errors.New("verification token already exists")

// ErrNoTask is returned when a domain has no row in the store.
var ErrNoTask = errors.New("no task for domain")

// CorruptStoreError marks a store that is missing, unreadable or has an
// unexpected schema. It is fatal: the run halts in its last consistent
// persisted state.
type CorruptStoreError struct {
	Path string
	Err  error
}

func (e *CorruptStoreError) Error() string {
	return fmt.Sprintf("task store %s unusable: %v", e.Path, e.Err)
}

func (e *CorruptStoreError) Unwrap() error {
	return e.Err
}

const timeLayout = time.RFC3339Nano

var requiredTables = []string{"domain_tasks", "stage_history", "verification_tasks"}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS domain_tasks (
		run_id          TEXT NOT NULL,
		domain          TEXT NOT NULL,
		stage           TEXT NOT NULL,
		registrant_org  TEXT NOT NULL DEFAULT '',
		registrant_name TEXT NOT NULL DEFAULT '',
		registrar       TEXT NOT NULL DEFAULT '',
		registry        TEXT NOT NULL DEFAULT '',
		created_date    TEXT,
		expiry_date     TEXT,
		nameservers     TEXT NOT NULL DEFAULT '[]',
		source_method   TEXT NOT NULL DEFAULT '',
		source_url      TEXT NOT NULL DEFAULT '',
		reason          TEXT NOT NULL DEFAULT '',
		updated_at      TEXT NOT NULL,
		PRIMARY KEY (run_id, domain)
	)`,
	`CREATE TABLE IF NOT EXISTS stage_history (
		run_id  TEXT NOT NULL,
		domain  TEXT NOT NULL,
		seq     INTEGER NOT NULL,
		stage   TEXT NOT NULL,
		at      TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, domain, seq)
	)`,
	`CREATE TABLE IF NOT EXISTS verification_tasks (
		run_id          TEXT NOT NULL,
		domain          TEXT NOT NULL,
		token           TEXT NOT NULL UNIQUE,
		status          TEXT NOT NULL CHECK (status IN ('WAITING','VERIFIED','FAILED')),
		attempts        INTEGER NOT NULL DEFAULT 0,
		max_attempts    INTEGER NOT NULL,
		created_at      TEXT NOT NULL,
		last_checked_at TEXT,
		resolved_at     TEXT,
		fail_reason     TEXT NOT NULL DEFAULT '',
		dns_raw         TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, domain)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_verification_status ON verification_tasks (run_id, status)`,
}

// Store is the SQLite-backed RunStore. One store instance serves one
// run; all rows are keyed by (run_id, domain).
type Store struct {
	db      *sql.DB
	runID   string
	path    string
	builder sq.StatementBuilderType
}

var _ ports.RunStore = (*Store)(nil)

// Open creates or opens the store at path, applying the schema.
func Open(path, runID string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, &CorruptStoreError{Path: path, Err: err}
	}
	// A single writer keeps row updates atomic without busy retries.
	db.SetMaxOpenConns(1)

	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, &CorruptStoreError{Path: path, Err: fmt.Errorf("apply schema: %w", err)}
		}
	}

	return &Store{
		db:      db,
		runID:   runID,
		path:    path,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}, nil
}

// OpenExisting opens a store that must already exist with the expected
// schema; a missing or mismatched store is reported as corruption.
func OpenExisting(path, runID string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &CorruptStoreError{Path: path, Err: err}
	}
	store, err := Open(path, runID)
	if err != nil {
		return nil, err
	}
	for _, table := range requiredTables {
		var name string
		err := store.db.QueryRow(
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&name)
		if err != nil {
			_ = store.db.Close()
			return nil, &CorruptStoreError{Path: path, Err: fmt.Errorf("missing table %s", table)}
		}
	}
	return store, nil
}

// RunID names the pipeline execution this store belongs to.
func (s *Store) RunID() string {
	return s.runID
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureDomainTask returns the task for name, creating a PENDING row
// with an initial history event when none exists.
func (s *Store) EnsureDomainTask(ctx context.Context, name string) (domain.DomainTask, error) {
	task, err := s.DomainTask(ctx, name)
	if err == nil {
		return task, nil
	}
	if !errors.Is(err, ErrNoTask) {
		return domain.DomainTask{}, err
	}

	now := time.Now().UTC()
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		query, args, err := s.builder.Insert("domain_tasks").
			Columns("run_id", "domain", "stage", "updated_at").
			Values(s.runID, name, string(domain.StagePending), now.Format(timeLayout)).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert domain task: %w", err)
		}
		return s.appendHistory(ctx, tx, name, domain.StagePending, now, "queued")
	})
	if err != nil {
		return domain.DomainTask{}, err
	}
	return s.DomainTask(ctx, name)
}

// DomainTask loads one task including its stage history.
func (s *Store) DomainTask(ctx context.Context, name string) (domain.DomainTask, error) {
	query, args, err := s.taskSelect().Where(sq.Eq{"run_id": s.runID, "domain": name}).ToSql()
	if err != nil {
		return domain.DomainTask{}, err
	}

	row := s.db.QueryRowContext(ctx, query, args...)
	task, err := scanDomainTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DomainTask{}, fmt.Errorf("%w: %s", ErrNoTask, name)
	}
	if err != nil {
		return domain.DomainTask{}, fmt.Errorf("load domain task %s: %w", name, err)
	}

	history, err := s.history(ctx, name)
	if err != nil {
		return domain.DomainTask{}, err
	}
	task.History = history
	return task, nil
}

// DomainTasks loads every task of the run with its history.
func (s *Store) DomainTasks(ctx context.Context) ([]domain.DomainTask, error) {
	query, args, err := s.taskSelect().
		Where(sq.Eq{"run_id": s.runID}).
		OrderBy("domain ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query domain tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.DomainTask
	for rows.Next() {
		task, err := scanDomainTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan domain task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate domain tasks: %w", err)
	}

	for i := range tasks {
		history, err := s.history(ctx, tasks[i].Domain)
		if err != nil {
			return nil, err
		}
		tasks[i].History = history
	}
	return tasks, nil
}

// SetStage advances the task to stage and appends a history event.
// Re-entering the current stage is allowed so a resumed run can retry
// the resolver it was interrupted in.
func (s *Store) SetStage(ctx context.Context, name string, stage domain.Stage, summary string) error {
	now := time.Now().UTC()
	return s.inTx(ctx, func(tx *sql.Tx) error {
		current, err := s.currentStage(ctx, tx, name)
		if err != nil {
			return err
		}
		if current != stage && !current.CanAdvance(stage) {
			return fmt.Errorf("domain %s: illegal stage transition %s -> %s", name, current, stage)
		}

		query, args, err := s.builder.Update("domain_tasks").
			Set("stage", string(stage)).
			Set("updated_at", now.Format(timeLayout)).
			Where(sq.Eq{"run_id": s.runID, "domain": name}).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("update stage: %w", err)
		}
		return s.appendHistory(ctx, tx, name, stage, now, summary)
	})
}

// SaveResolution stores the ownership record and moves the task to
// RESOLVED in one transaction.
func (s *Store) SaveResolution(ctx context.Context, name string, rec domain.OwnershipRecord) error {
	now := time.Now().UTC()
	nameservers, err := json.Marshal(rec.Nameservers)
	if err != nil {
		return fmt.Errorf("encode nameservers: %w", err)
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		current, err := s.currentStage(ctx, tx, name)
		if err != nil {
			return err
		}
		if !current.CanAdvance(domain.StageResolved) {
			return fmt.Errorf("domain %s: illegal stage transition %s -> %s", name, current, domain.StageResolved)
		}

		query, args, err := s.builder.Update("domain_tasks").
			Set("stage", string(domain.StageResolved)).
			Set("registrant_org", rec.RegistrantOrg).
			Set("registrant_name", rec.RegistrantName).
			Set("registrar", rec.Registrar).
			Set("registry", rec.Registry).
			Set("created_date", formatTimePtr(rec.CreatedAt)).
			Set("expiry_date", formatTimePtr(rec.ExpiresAt)).
			Set("nameservers", string(nameservers)).
			Set("source_method", rec.SourceMethod).
			Set("source_url", rec.SourceURL).
			Set("reason", "").
			Set("updated_at", now.Format(timeLayout)).
			Where(sq.Eq{"run_id": s.runID, "domain": name}).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("save resolution: %w", err)
		}
		return s.appendHistory(ctx, tx, name, domain.StageResolved, now, "resolved via "+rec.SourceMethod)
	})
}

// MarkUnresolved moves the task to the terminal UNRESOLVED stage with a
// human-readable reason.
func (s *Store) MarkUnresolved(ctx context.Context, name, reason string) error {
	now := time.Now().UTC()
	return s.inTx(ctx, func(tx *sql.Tx) error {
		current, err := s.currentStage(ctx, tx, name)
		if err != nil {
			return err
		}
		if !current.CanAdvance(domain.StageUnresolved) {
			return fmt.Errorf("domain %s: illegal stage transition %s -> %s", name, current, domain.StageUnresolved)
		}

		query, args, err := s.builder.Update("domain_tasks").
			Set("stage", string(domain.StageUnresolved)).
			Set("reason", reason).
			Set("updated_at", now.Format(timeLayout)).
			Where(sq.Eq{"run_id": s.runID, "domain": name}).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("mark unresolved: %w", err)
		}
		return s.appendHistory(ctx, tx, name, domain.StageUnresolved, now, reason)
	})
}

// CreateVerificationTask inserts a WAITING task for the domain. A
// leftover terminal task for the same domain is replaced; a token
// already used by any task surfaces as ErrTokenCollision.
func (s *Store) CreateVerificationTask(ctx context.Context, task domain.VerificationTask) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		del, args, err := s.builder.Delete("verification_tasks").
			Where(sq.Eq{"run_id": s.runID, "domain": task.Domain}).
			Where(sq.NotEq{"status": string(domain.VerificationWaiting)}).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, del, args...); err != nil {
			return fmt.Errorf("clear terminal verification task: %w", err)
		}

		query, args, err := s.builder.Insert("verification_tasks").
			Columns("run_id", "domain", "token", "status", "attempts", "max_attempts", "created_at").
			Values(s.runID, task.Domain, task.Token, string(task.Status), task.Attempts,
				task.MaxAttempts, task.CreatedAt.UTC().Format(timeLayout)).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			var sqliteErr sqlite3.Error
			if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
				return ErrTokenCollision
			}
			return fmt.Errorf("insert verification task: %w", err)
		}
		return nil
	})
}

// VerificationTask returns the challenge for name, or nil when absent.
func (s *Store) VerificationTask(ctx context.Context, name string) (*domain.VerificationTask, error) {
	query, args, err := s.verificationSelect().
		Where(sq.Eq{"run_id": s.runID, "domain": name}).
		ToSql()
	if err != nil {
		return nil, err
	}

	task, err := scanVerificationTask(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load verification task %s: %w", name, err)
	}
	return &task, nil
}

// WaitingVerificationTasks lists all WAITING challenges of the run in
// creation order.
func (s *Store) WaitingVerificationTasks(ctx context.Context) ([]domain.VerificationTask, error) {
	query, args, err := s.verificationSelect().
		Where(sq.Eq{"run_id": s.runID, "status": string(domain.VerificationWaiting)}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query waiting tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.VerificationTask
	for rows.Next() {
		task, err := scanVerificationTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan verification task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate waiting tasks: %w", err)
	}
	return tasks, nil
}

// RecordCheck stamps a negative poll result onto a WAITING task and
// returns the new attempt count.
func (s *Store) RecordCheck(ctx context.Context, name string, at time.Time, raw, failReason string) (int, error) {
	var attempts int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		query, args, err := s.builder.Update("verification_tasks").
			Set("attempts", sq.Expr("attempts + 1")).
			Set("last_checked_at", at.UTC().Format(timeLayout)).
			Set("dns_raw", raw).
			Set("fail_reason", failReason).
			Where(sq.Eq{"run_id": s.runID, "domain": name, "status": string(domain.VerificationWaiting)}).
			ToSql()
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("record check: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s has no waiting verification task", ErrNoTask, name)
		}

		sel, args, err := s.builder.Select("attempts").
			From("verification_tasks").
			Where(sq.Eq{"run_id": s.runID, "domain": name}).
			ToSql()
		if err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, sel, args...).Scan(&attempts)
	})
	return attempts, err
}

// CompleteVerification marks the WAITING task VERIFIED and promotes the
// owning domain task to RESOLVED with a synthesized dns-verification
// record, all in one transaction. Counting the successful check keeps
// the one-increment-per-cycle bookkeeping uniform.
func (s *Store) CompleteVerification(ctx context.Context, name string, at time.Time, raw string) error {
	stamp := at.UTC().Format(timeLayout)
	return s.inTx(ctx, func(tx *sql.Tx) error {
		query, args, err := s.builder.Update("verification_tasks").
			Set("status", string(domain.VerificationVerified)).
			Set("attempts", sq.Expr("attempts + 1")).
			Set("last_checked_at", stamp).
			Set("resolved_at", stamp).
			Set("dns_raw", raw).
			Set("fail_reason", "").
			Where(sq.Eq{"run_id": s.runID, "domain": name, "status": string(domain.VerificationWaiting)}).
			ToSql()
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("complete verification: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			// Already terminal; another cycle won the transition.
			return nil
		}

		rec := domain.VerifiedRecord()
		update, args, err := s.builder.Update("domain_tasks").
			Set("stage", string(domain.StageResolved)).
			Set("source_method", rec.SourceMethod).
			Set("source_url", rec.SourceURL).
			Set("reason", "").
			Set("updated_at", stamp).
			Where(sq.Eq{"run_id": s.runID, "domain": name}).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, update, args...); err != nil {
			return fmt.Errorf("promote verified domain: %w", err)
		}
		return s.appendHistory(ctx, tx, name, domain.StageResolved, at.UTC(), "control verified via dns txt challenge")
	})
}

// FailVerification marks the WAITING task FAILED and the owning domain
// task UNRESOLVED in one transaction.
func (s *Store) FailVerification(ctx context.Context, name string, at time.Time, reason string) error {
	stamp := at.UTC().Format(timeLayout)
	return s.inTx(ctx, func(tx *sql.Tx) error {
		query, args, err := s.builder.Update("verification_tasks").
			Set("status", string(domain.VerificationFailed)).
			Set("resolved_at", stamp).
			Set("fail_reason", reason).
			Where(sq.Eq{"run_id": s.runID, "domain": name, "status": string(domain.VerificationWaiting)}).
			ToSql()
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("fail verification: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}

		update, args, err := s.builder.Update("domain_tasks").
			Set("stage", string(domain.StageUnresolved)).
			Set("reason", reason).
			Set("updated_at", stamp).
			Where(sq.Eq{"run_id": s.runID, "domain": name}).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, update, args...); err != nil {
			return fmt.Errorf("demote failed domain: %w", err)
		}
		return s.appendHistory(ctx, tx, name, domain.StageUnresolved, at.UTC(), reason)
	})
}

func (s *Store) taskSelect() sq.SelectBuilder {
	return s.builder.Select(
		"domain", "stage", "registrant_org", "registrant_name", "registrar", "registry",
		"created_date", "expiry_date", "nameservers", "source_method", "source_url",
		"reason", "updated_at",
	).From("domain_tasks")
}

func (s *Store) verificationSelect() sq.SelectBuilder {
	return s.builder.Select(
		"domain", "token", "status", "attempts", "max_attempts",
		"created_at", "last_checked_at", "resolved_at", "fail_reason", "dns_raw",
	).From("verification_tasks")
}

func (s *Store) currentStage(ctx context.Context, tx *sql.Tx, name string) (domain.Stage, error) {
	query, args, err := s.builder.Select("stage").
		From("domain_tasks").
		Where(sq.Eq{"run_id": s.runID, "domain": name}).
		ToSql()
	if err != nil {
		return "", err
	}
	var stage string
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&stage); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", ErrNoTask, name)
		}
		return "", fmt.Errorf("load stage: %w", err)
	}
	return domain.Stage(stage), nil
}

func (s *Store) appendHistory(ctx context.Context, tx *sql.Tx, name string, stage domain.Stage, at time.Time, summary string) error {
	// seq is assigned inside the same transaction, keeping the trail
	// strictly append-only.
	const query = `INSERT INTO stage_history (run_id, domain, seq, stage, at, summary)
		SELECT ?, ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?
		FROM stage_history WHERE run_id = ? AND domain = ?`

	_, err := tx.ExecContext(ctx, query,
		s.runID, name, string(stage), at.Format(timeLayout), summary, s.runID, name)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (s *Store) history(ctx context.Context, name string) ([]domain.StageEvent, error) {
	query, args, err := s.builder.Select("stage", "at", "summary").
		From("stage_history").
		Where(sq.Eq{"run_id": s.runID, "domain": name}).
		OrderBy("seq ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var events []domain.StageEvent
	for rows.Next() {
		var (
			stage, at, summary string
		)
		if err := rows.Scan(&stage, &at, &summary); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		parsed, err := time.Parse(timeLayout, at)
		if err != nil {
			return nil, fmt.Errorf("parse history timestamp: %w", err)
		}
		events = append(events, domain.StageEvent{
			Stage:   domain.Stage(stage),
			At:      parsed,
			Summary: summary,
		})
	}
	return events, rows.Err()
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDomainTask(row rowScanner) (domain.DomainTask, error) {
	var (
		task        domain.DomainTask
		rec         domain.OwnershipRecord
		stage       string
		createdDate sql.NullString
		expiryDate  sql.NullString
		nameservers string
		updatedAt   string
	)
	err := row.Scan(&task.Domain, &stage, &rec.RegistrantOrg, &rec.RegistrantName,
		&rec.Registrar, &rec.Registry, &createdDate, &expiryDate, &nameservers,
		&rec.SourceMethod, &rec.SourceURL, &task.Reason, &updatedAt)
	if err != nil {
		return domain.DomainTask{}, err
	}

	task.Stage = domain.Stage(stage)
	if task.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return domain.DomainTask{}, fmt.Errorf("parse updated_at: %w", err)
	}
	rec.CreatedAt = parseTimePtr(createdDate)
	rec.ExpiresAt = parseTimePtr(expiryDate)
	if err := json.Unmarshal([]byte(nameservers), &rec.Nameservers); err != nil {
		return domain.DomainTask{}, fmt.Errorf("decode nameservers: %w", err)
	}

	if task.Stage == domain.StageResolved {
		task.Resolution = &rec
	}
	return task, nil
}

func scanVerificationTask(row rowScanner) (domain.VerificationTask, error) {
	var (
		task        domain.VerificationTask
		status      string
		createdAt   string
		lastChecked sql.NullString
		resolvedAt  sql.NullString
	)
	err := row.Scan(&task.Domain, &task.Token, &status, &task.Attempts, &task.MaxAttempts,
		&createdAt, &lastChecked, &resolvedAt, &task.FailReason, &task.DNSRaw)
	if err != nil {
		return domain.VerificationTask{}, err
	}

	task.Status = domain.VerificationStatus(status)
	if task.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return domain.VerificationTask{}, fmt.Errorf("parse created_at: %w", err)
	}
	task.LastCheckedAt = parseTimePtr(lastChecked)
	task.ResolvedAt = parseTimePtr(resolvedAt)
	return task, nil
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func parseTimePtr(value sql.NullString) *time.Time {
	if !value.Valid || value.String == "" {
		return nil
	}
	parsed, err := time.Parse(timeLayout, value.String)
	if err != nil {
		return nil
	}
	return &parsed
}
