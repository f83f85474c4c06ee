package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T) time.Time {
	t.Helper()
	return time.Date(2015, time.June, 24, 0, 0, 0, 0, time.UTC)
}

func TestNormalizeDomain(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Example.COM":   "example.com",
		"  example.nl ": "example.nl",
		"example.org.":  "example.org",
		"EXAMPLE.TEST.": "example.test",
		"":              "",
		"   ":           "",
	}
	for input, want := range cases {
		require.Equal(t, want, NormalizeDomain(input), "input %q", input)
	}
}

func TestTLD(t *testing.T) {
	t.Parallel()

	require.Equal(t, ".com", TLD("example.com"))
	require.Equal(t, ".nl", TLD("sub.example.nl"))
	require.Equal(t, "", TLD("localhost"))
}

func TestStageTerminal(t *testing.T) {
	t.Parallel()

	require.True(t, StageResolved.Terminal())
	require.True(t, StageUnresolved.Terminal())
	require.False(t, StagePending.Terminal())
	require.False(t, StageAwaitingVerification.Terminal())
}

func TestStageCanAdvance(t *testing.T) {
	t.Parallel()

	require.True(t, StagePending.CanAdvance(StageAuthoritative))
	require.True(t, StageAuthoritative.CanAdvance(StageSecondary))
	require.True(t, StageSecondary.CanAdvance(StageAwaitingVerification))
	require.True(t, StageAwaitingVerification.CanAdvance(StageResolved))
	require.True(t, StageAuthoritative.CanAdvance(StageResolved))

	// Never backwards, never out of a terminal stage.
	require.False(t, StageSecondary.CanAdvance(StageAuthoritative))
	require.False(t, StageResolved.CanAdvance(StageUnresolved))
	require.False(t, StageUnresolved.CanAdvance(StageResolved))
	require.False(t, StageAuthoritative.CanAdvance(StageAuthoritative))
}

func TestStageAllowsAttempt(t *testing.T) {
	t.Parallel()

	// A fresh task may be attempted by any resolver stage.
	require.True(t, StagePending.AllowsAttempt(StageAuthoritative))
	require.True(t, StagePending.AllowsAttempt(StageSecondary))

	// Resuming re-enters the interrupted stage but never an earlier one.
	require.True(t, StageAuthoritative.AllowsAttempt(StageAuthoritative))
	require.True(t, StageAuthoritative.AllowsAttempt(StageSecondary))
	require.False(t, StageSecondary.AllowsAttempt(StageAuthoritative))

	require.False(t, StageResolved.AllowsAttempt(StageSecondary))
	require.False(t, StageUnresolved.AllowsAttempt(StageAuthoritative))
}

func TestOwnershipRecordEstablished(t *testing.T) {
	t.Parallel()

	require.False(t, OwnershipRecord{}.Established())
	require.False(t, OwnershipRecord{RegistrantOrg: "ACME"}.Established())
	require.True(t, OwnershipRecord{Registrar: "Example Registrar"}.Established())

	created := mustTime(t)
	require.True(t, OwnershipRecord{CreatedAt: &created}.Established())
}

func TestVerifiedRecord(t *testing.T) {
	t.Parallel()

	rec := VerifiedRecord()
	require.Equal(t, SourceMethodVerification, rec.SourceMethod)
	require.Empty(t, rec.RegistrantOrg)
	require.Empty(t, rec.Registrar)
	require.Nil(t, rec.CreatedAt)
}

func TestVerificationStatusTerminal(t *testing.T) {
	t.Parallel()

	require.False(t, VerificationWaiting.Terminal())
	require.True(t, VerificationVerified.Terminal())
	require.True(t, VerificationFailed.Terminal())
}
