package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"domainvet/internal/domain"
	"domainvet/internal/ports"
)

var (
	createdExpr   = regexp.MustCompile(`(?i)(?:Created|Creation Date|Registered(?: On)?|Date registered)[:\s]+(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4})`)
	expiryExpr    = regexp.MustCompile(`(?i)(?:Expires(?: On)?|Expiry Date|Expiration Date|Registry Expiry Date)[:\s]+(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4})`)
	registrarExpr = regexp.MustCompile(`(?i)Registrar(?: Name)?:[ \t]*(.+)`)
	orgExpr       = regexp.MustCompile(`(?i)(?:Registrant Organization|Registrant|Organization|Holder):[ \t]*(.+)`)
	nsExpr        = regexp.MustCompile(`(?i)Name Server:[ \t]*([a-z0-9._-]+)`)
)

// WebWhoisResolver scrapes a who.is style WHOIS page. It is heavier and
// more fragile than RDAP, so it runs later in the chain; a partially
// populated record still counts as resolved when at least the registrar
// or the creation date could be extracted.
type WebWhoisResolver struct {
	client  *http.Client
	baseURL string
	logger  *slog.Logger
}

var _ ports.Resolver = (*WebWhoisResolver)(nil)

// NewWebWhoisResolver wires an HTTP client and the lookup page base URL.
func NewWebWhoisResolver(client *http.Client, baseURL string, log *slog.Logger) *WebWhoisResolver {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &WebWhoisResolver{client: client, baseURL: baseURL, logger: log}
}

// Name identifies the strategy inside the registry.
func (w *WebWhoisResolver) Name() string {
	return "webwhois"
}

// Stage reports the pipeline stage this resolver represents.
func (w *WebWhoisResolver) Stage() domain.Stage {
	return domain.StageSecondary
}

// Attempt fetches and parses the lookup page for one domain.
func (w *WebWhoisResolver) Attempt(ctx context.Context, name string) domain.Outcome {
	pageURL := strings.TrimSuffix(w.baseURL, "/") + "/" + name

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return domain.NotFound(fmt.Sprintf("invalid lookup url: %v", err))
	}
	req.Header.Set("User-Agent", "domainvet/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return domain.Transient(fmt.Errorf("whois page request: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return domain.NotFound("lookup page has no data for this domain")
	default:
		return domain.Transient(fmt.Errorf("lookup page returned %s", resp.Status))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return domain.Transient(fmt.Errorf("parse lookup page: %w", err))
	}

	rec := extractRecord(doc, pageURL)
	scrubPrivacy(&rec)
	if !rec.Established() {
		return domain.NotFound("no registration facts extracted from lookup page")
	}

	if w.logger != nil {
		w.logger.Debug("web whois resolved", "domain", name, "registrar", rec.Registrar)
	}
	return domain.Resolved(rec)
}

// extractRecord pulls registration fields out of the page. WHOIS pages
// usually render the raw record inside <pre> blocks; when none exist
// the whole body text is scanned.
func extractRecord(doc *goquery.Document, pageURL string) domain.OwnershipRecord {
	var text strings.Builder
	doc.Find("pre").Each(func(_ int, s *goquery.Selection) {
		text.WriteString(s.Text())
		text.WriteString("\n")
	})
	if text.Len() == 0 {
		text.WriteString(doc.Find("body").Text())
	}
	raw := text.String()

	rec := domain.OwnershipRecord{
		SourceMethod: "web-whois",
		SourceURL:    pageURL,
	}

	if m := createdExpr.FindStringSubmatch(raw); m != nil {
		rec.CreatedAt = parseLookupDate(m[1])
	}
	if m := expiryExpr.FindStringSubmatch(raw); m != nil {
		rec.ExpiresAt = parseLookupDate(m[1])
	}
	if m := registrarExpr.FindStringSubmatch(raw); m != nil {
		rec.Registrar = clipField(m[1])
	}
	if m := orgExpr.FindStringSubmatch(raw); m != nil {
		rec.RegistrantOrg = clipField(m[1])
	}
	for _, m := range nsExpr.FindAllStringSubmatch(raw, -1) {
		rec.Nameservers = append(rec.Nameservers, strings.ToLower(m[1]))
	}

	return rec
}

func parseLookupDate(value string) *time.Time {
	for _, layout := range []string{"2006-01-02", "01/02/2006"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			utc := parsed.UTC()
			return &utc
		}
	}
	return nil
}

// clipField trims a label match and bounds its length; WHOIS pages can
// run disclaimers into the same line. Clipping counts runes so a
// multi-byte name is never cut mid-character.
func clipField(value string) string {
	value = strings.TrimSpace(value)
	if runes := []rune(value); len(runes) > 100 {
		value = string(runes[:100])
	}
	return value
}
