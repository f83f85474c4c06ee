package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"domainvet/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "tasks.db"), "run-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedAwaiting(t *testing.T, store *Store, name string) {
	t.Helper()
	ctx := context.Background()
	_, err := store.EnsureDomainTask(ctx, name)
	require.NoError(t, err)
	require.NoError(t, store.SetStage(ctx, name, domain.StageAwaitingVerification, "resolver chain exhausted"))
}

func newChallenge(name, token string) domain.VerificationTask {
	return domain.VerificationTask{
		Domain:      name,
		Token:       token,
		Status:      domain.VerificationWaiting,
		MaxAttempts: 3,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestEnsureDomainTaskIsIdempotent(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.EnsureDomainTask(ctx, "example.com")
	require.NoError(t, err)
	require.Equal(t, domain.StagePending, first.Stage)
	require.Len(t, first.History, 1)
	require.Equal(t, "queued", first.History[0].Summary)

	second, err := store.EnsureDomainTask(ctx, "example.com")
	require.NoError(t, err)
	require.Equal(t, first.Stage, second.Stage)
	require.Len(t, second.History, 1)
}

func TestSetStageRejectsBackwardTransitions(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.EnsureDomainTask(ctx, "example.com")
	require.NoError(t, err)

	require.NoError(t, store.SetStage(ctx, "example.com", domain.StageAuthoritative, "attempting rdap"))
	require.NoError(t, store.SetStage(ctx, "example.com", domain.StageSecondary, "attempting webwhois"))

	err = store.SetStage(ctx, "example.com", domain.StageAuthoritative, "rewind")
	require.Error(t, err)
	require.Contains(t, err.Error(), "illegal stage transition")
}

func TestSetStageAllowsReEntry(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.EnsureDomainTask(ctx, "example.com")
	require.NoError(t, err)

	require.NoError(t, store.SetStage(ctx, "example.com", domain.StageAuthoritative, "attempting rdap"))
	require.NoError(t, store.SetStage(ctx, "example.com", domain.StageAuthoritative, "attempting rdap"))

	task, err := store.DomainTask(ctx, "example.com")
	require.NoError(t, err)
	require.Len(t, task.History, 3)
}

func TestSaveResolutionRoundTrip(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.EnsureDomainTask(ctx, "example.com")
	require.NoError(t, err)
	require.NoError(t, store.SetStage(ctx, "example.com", domain.StageAuthoritative, "attempting rdap"))

	created := time.Date(2015, 6, 24, 10, 0, 0, 0, time.UTC)
	expires := time.Date(2030, 6, 24, 10, 0, 0, 0, time.UTC)
	rec := domain.OwnershipRecord{
		RegistrantOrg:  "ACME B.V.",
		RegistrantName: "Jane Holder",
		Registrar:      "Example Registrar",
		Registry:       "Verisign",
		CreatedAt:      &created,
		ExpiresAt:      &expires,
		Nameservers:    []string{"ns1.example.com", "ns2.example.com"},
		SourceMethod:   "rdap",
		SourceURL:      "https://rdap.example/domain/example.com",
	}
	require.NoError(t, store.SaveResolution(ctx, "example.com", rec))

	task, err := store.DomainTask(ctx, "example.com")
	require.NoError(t, err)
	require.Equal(t, domain.StageResolved, task.Stage)
	require.NotNil(t, task.Resolution)
	require.Equal(t, rec.RegistrantOrg, task.Resolution.RegistrantOrg)
	require.Equal(t, rec.Nameservers, task.Resolution.Nameservers)
	require.True(t, created.Equal(*task.Resolution.CreatedAt))
	require.True(t, expires.Equal(*task.Resolution.ExpiresAt))
	require.Equal(t, "resolved via rdap", task.History[len(task.History)-1].Summary)

	// Terminal: no further transitions.
	err = store.SetStage(ctx, "example.com", domain.StageUnresolved, "late")
	require.Error(t, err)
}

func TestMarkUnresolved(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.EnsureDomainTask(ctx, "example.com")
	require.NoError(t, err)
	require.NoError(t, store.MarkUnresolved(ctx, "example.com", "resolver chain exhausted"))

	task, err := store.DomainTask(ctx, "example.com")
	require.NoError(t, err)
	require.Equal(t, domain.StageUnresolved, task.Stage)
	require.Equal(t, "resolver chain exhausted", task.Reason)
	require.Nil(t, task.Resolution)
}

func TestVerificationLifecycle(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()
	seedAwaiting(t, store, "example.com")

	challenge := newChallenge("example.com", "mv-aaaa")
	require.NoError(t, store.CreateVerificationTask(ctx, challenge))

	loaded, err := store.VerificationTask(ctx, "example.com")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, "mv-aaaa", loaded.Token)
	require.Equal(t, domain.VerificationWaiting, loaded.Status)
	require.Zero(t, loaded.Attempts)

	checkedAt := time.Now().UTC()
	attempts, err := store.RecordCheck(ctx, "example.com", checkedAt, "raw answer", "token not found in txt record set")
	require.NoError(t, err)
	require.Equal(t, 1, attempts)

	loaded, err = store.VerificationTask(ctx, "example.com")
	require.NoError(t, err)
	require.Equal(t, 1, loaded.Attempts)
	require.Equal(t, "token not found in txt record set", loaded.FailReason)
	require.NotNil(t, loaded.LastCheckedAt)

	require.NoError(t, store.CompleteVerification(ctx, "example.com", time.Now().UTC(), "txt mv-aaaa"))

	loaded, err = store.VerificationTask(ctx, "example.com")
	require.NoError(t, err)
	require.Equal(t, domain.VerificationVerified, loaded.Status)
	require.Equal(t, 2, loaded.Attempts)
	require.NotNil(t, loaded.ResolvedAt)
	require.Empty(t, loaded.FailReason)

	task, err := store.DomainTask(ctx, "example.com")
	require.NoError(t, err)
	require.Equal(t, domain.StageResolved, task.Stage)
	require.NotNil(t, task.Resolution)
	require.Equal(t, domain.SourceMethodVerification, task.Resolution.SourceMethod)

	// A second completion is a no-op, not an error.
	require.NoError(t, store.CompleteVerification(ctx, "example.com", time.Now().UTC(), "txt mv-aaaa"))
	loaded, err = store.VerificationTask(ctx, "example.com")
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Attempts)
}

func TestFailVerification(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()
	seedAwaiting(t, store, "example.com")

	require.NoError(t, store.CreateVerificationTask(ctx, newChallenge("example.com", "mv-bbbb")))

	_, err := store.RecordCheck(ctx, "example.com", time.Now().UTC(), "", "NXDOMAIN")
	require.NoError(t, err)
	require.NoError(t, store.FailVerification(ctx, "example.com", time.Now().UTC(), "verification timed out"))

	loaded, err := store.VerificationTask(ctx, "example.com")
	require.NoError(t, err)
	require.Equal(t, domain.VerificationFailed, loaded.Status)
	require.Equal(t, 1, loaded.Attempts)
	require.Equal(t, "verification timed out", loaded.FailReason)

	task, err := store.DomainTask(ctx, "example.com")
	require.NoError(t, err)
	require.Equal(t, domain.StageUnresolved, task.Stage)
	require.Equal(t, "verification timed out", task.Reason)

	// No waiting row left to record against.
	_, err = store.RecordCheck(ctx, "example.com", time.Now().UTC(), "", "late")
	require.ErrorIs(t, err, ErrNoTask)
}

func TestCreateVerificationTaskTokenCollision(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()
	seedAwaiting(t, store, "a.com")
	seedAwaiting(t, store, "b.com")

	require.NoError(t, store.CreateVerificationTask(ctx, newChallenge("a.com", "mv-same")))

	err := store.CreateVerificationTask(ctx, newChallenge("b.com", "mv-same"))
	require.ErrorIs(t, err, ErrTokenCollision)
}

func TestCreateVerificationTaskReplacesTerminal(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()
	seedAwaiting(t, store, "example.com")

	require.NoError(t, store.CreateVerificationTask(ctx, newChallenge("example.com", "mv-old")))
	require.NoError(t, store.FailVerification(ctx, "example.com", time.Now().UTC(), "verification timed out"))

	require.NoError(t, store.CreateVerificationTask(ctx, newChallenge("example.com", "mv-new")))

	loaded, err := store.VerificationTask(ctx, "example.com")
	require.NoError(t, err)
	require.Equal(t, "mv-new", loaded.Token)
	require.Equal(t, domain.VerificationWaiting, loaded.Status)
}

func TestWaitingVerificationTasks(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()
	seedAwaiting(t, store, "a.com")
	seedAwaiting(t, store, "b.com")

	require.NoError(t, store.CreateVerificationTask(ctx, newChallenge("a.com", "mv-a")))
	require.NoError(t, store.CreateVerificationTask(ctx, newChallenge("b.com", "mv-b")))
	require.NoError(t, store.CompleteVerification(ctx, "b.com", time.Now().UTC(), "txt mv-b"))

	waiting, err := store.WaitingVerificationTasks(ctx)
	require.NoError(t, err)
	require.Len(t, waiting, 1)
	require.Equal(t, "a.com", waiting[0].Domain)
}

func TestVerificationTaskAbsentIsNil(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	loaded, err := store.VerificationTask(context.Background(), "missing.com")
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestOpenExistingRejectsMissingStore(t *testing.T) {
	t.Parallel()

	_, err := OpenExisting(filepath.Join(t.TempDir(), "absent.db"), "run-test")
	require.Error(t, err)

	var corrupt *CorruptStoreError
	require.ErrorAs(t, err, &corrupt)
}

func TestOpenExistingReopensState(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tasks.db")
	ctx := context.Background()

	store, err := Open(path, "run-test")
	require.NoError(t, err)
	_, err = store.EnsureDomainTask(ctx, "example.com")
	require.NoError(t, err)
	require.NoError(t, store.SetStage(ctx, "example.com", domain.StageAuthoritative, "attempting rdap"))
	require.NoError(t, store.Close())

	reopened, err := OpenExisting(path, "run-test")
	require.NoError(t, err)
	defer reopened.Close()

	task, err := reopened.DomainTask(ctx, "example.com")
	require.NoError(t, err)
	require.Equal(t, domain.StageAuthoritative, task.Stage)
	require.Len(t, task.History, 2)
}
