package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"domainvet/internal/domain"
)

// Render formats the per-domain outcome summary for operators. The
// result set is a mapping, so rows are already in stable domain order
// as returned by the store.
func Render(runID string, tasks []domain.DomainTask) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s: %d domain(s)\n\n", runID, len(tasks))

	for _, task := range tasks {
		fmt.Fprintf(&b, "%-40s %s\n", task.Domain, task.Stage)
		if task.Resolution != nil {
			rec := task.Resolution
			if rec.RegistrantOrg != "" {
				fmt.Fprintf(&b, "    registrant: %s\n", rec.RegistrantOrg)
			}
			if rec.Registrar != "" {
				fmt.Fprintf(&b, "    registrar:  %s\n", rec.Registrar)
			}
			if rec.CreatedAt != nil {
				fmt.Fprintf(&b, "    created:    %s\n", rec.CreatedAt.Format("2006-01-02"))
			}
			fmt.Fprintf(&b, "    source:     %s\n", rec.SourceMethod)
		}
		if task.Stage == domain.StageUnresolved && task.Reason != "" {
			fmt.Fprintf(&b, "    reason:     %s\n", task.Reason)
		}
	}
	return b.String()
}

// WriteCSV exports the final report in spreadsheet form.
func WriteCSV(w io.Writer, tasks []domain.DomainTask) error {
	cw := csv.NewWriter(w)
	header := []string{
		"domain", "stage", "registrant_organization", "registrant_name",
		"registrar", "registry", "creation_date", "expiry_date",
		"nameservers", "source_method", "source_url", "reason",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, task := range tasks {
		rec := task.Resolution
		if rec == nil {
			rec = &domain.OwnershipRecord{}
		}
		row := []string{
			task.Domain,
			string(task.Stage),
			rec.RegistrantOrg,
			rec.RegistrantName,
			rec.Registrar,
			rec.Registry,
			formatDate(rec.CreatedAt),
			formatDate(rec.ExpiresAt),
			strings.Join(rec.Nameservers, " "),
			rec.SourceMethod,
			rec.SourceURL,
			task.Reason,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row for %s: %w", task.Domain, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Instructions renders the operator document listing, per waiting
// challenge, the record the operator must publish.
func Instructions(runID string, tasks []domain.VerificationTask) string {
	var b strings.Builder
	fmt.Fprintf(&b, "TXT verification instructions for run %s\n", runID)
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	if len(tasks) == 0 {
		b.WriteString("No pending verification tasks.\n")
		return b.String()
	}

	for _, task := range tasks {
		fmt.Fprintf(&b, "Domain: %s\n", task.Domain)
		b.WriteString("  Add the following DNS record:\n")
		b.WriteString("    Host/Name: @ (domain apex)\n")
		b.WriteString("    Type:      TXT\n")
		fmt.Fprintf(&b, "    Value:     %s\n", task.Token)
		fmt.Fprintf(&b, "  Checks so far: %d/%d\n", task.Attempts, task.MaxAttempts)
		b.WriteString("\n" + strings.Repeat("-", 60) + "\n\n")
	}
	return b.String()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
