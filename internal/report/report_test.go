package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"domainvet/internal/domain"
)

func sampleTasks() []domain.DomainTask {
	created := time.Date(2015, 6, 24, 0, 0, 0, 0, time.UTC)
	expires := time.Date(2030, 6, 24, 0, 0, 0, 0, time.UTC)
	return []domain.DomainTask{
		{
			Domain: "resolved.com",
			Stage:  domain.StageResolved,
			Resolution: &domain.OwnershipRecord{
				RegistrantOrg: "ACME B.V.",
				Registrar:     "Example Registrar",
				Registry:      "Verisign",
				CreatedAt:     &created,
				ExpiresAt:     &expires,
				Nameservers:   []string{"ns1.example.com", "ns2.example.com"},
				SourceMethod:  "rdap",
				SourceURL:     "https://rdap.example/domain/resolved.com",
			},
		},
		{
			Domain: "unresolved.net",
			Stage:  domain.StageUnresolved,
			Reason: "verification timed out",
		},
		{
			Domain: "waiting.org",
			Stage:  domain.StageAwaitingVerification,
		},
	}
}

func TestRenderSummary(t *testing.T) {
	t.Parallel()

	out := Render("run-1", sampleTasks())
	require.Contains(t, out, "Run run-1: 3 domain(s)")
	require.Contains(t, out, "resolved.com")
	require.Contains(t, out, "registrant: ACME B.V.")
	require.Contains(t, out, "registrar:  Example Registrar")
	require.Contains(t, out, "created:    2015-06-24")
	require.Contains(t, out, "reason:     verification timed out")
	require.Contains(t, out, string(domain.StageAwaitingVerification))
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleTasks()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	require.Equal(t, "domain", rows[0][0])
	require.Equal(t, "reason", rows[0][len(rows[0])-1])

	resolved := rows[1]
	require.Equal(t, "resolved.com", resolved[0])
	require.Equal(t, string(domain.StageResolved), resolved[1])
	require.Equal(t, "ACME B.V.", resolved[2])
	require.Equal(t, "2015-06-24", resolved[6])
	require.Equal(t, "2030-06-24", resolved[7])
	require.Equal(t, "ns1.example.com ns2.example.com", resolved[8])

	unresolved := rows[2]
	require.Equal(t, "unresolved.net", unresolved[0])
	require.Empty(t, unresolved[2])
	require.Equal(t, "verification timed out", unresolved[len(unresolved)-1])
}

func TestInstructions(t *testing.T) {
	t.Parallel()

	tasks := []domain.VerificationTask{
		{Domain: "waiting.org", Token: "mv-deadbeef", Attempts: 2, MaxAttempts: 10},
	}
	out := Instructions("run-1", tasks)
	require.Contains(t, out, "run run-1")
	require.Contains(t, out, "Domain: waiting.org")
	require.Contains(t, out, "Type:      TXT")
	require.Contains(t, out, "Value:     mv-deadbeef")
	require.Contains(t, out, "Checks so far: 2/10")
}

func TestInstructionsEmpty(t *testing.T) {
	t.Parallel()

	out := Instructions("run-1", nil)
	require.Contains(t, out, "No pending verification tasks.")
	require.False(t, strings.Contains(out, "Domain:"))
}
