package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"domainvet/internal/domain"
	"domainvet/internal/ports"
)

// RDAPResolver queries per-TLD registry RDAP endpoints. It is the
// cheapest and most reliable strategy, so it runs first in the chain.
type RDAPResolver struct {
	client    *http.Client
	endpoints map[string]string
	logger    *slog.Logger
}

var _ ports.Resolver = (*RDAPResolver)(nil)

// NewRDAPResolver wires an HTTP client and a TLD-to-endpoint map. The
// endpoint values are templates with a %s placeholder for the domain.
func NewRDAPResolver(client *http.Client, endpoints map[string]string, log *slog.Logger) *RDAPResolver {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &RDAPResolver{client: client, endpoints: endpoints, logger: log}
}

// Name identifies the strategy inside the registry.
func (r *RDAPResolver) Name() string {
	return "rdap"
}

// Stage reports the pipeline stage this resolver represents.
func (r *RDAPResolver) Stage() domain.Stage {
	return domain.StageAuthoritative
}

// Attempt performs a single RDAP lookup.
func (r *RDAPResolver) Attempt(ctx context.Context, name string) domain.Outcome {
	tld := domain.TLD(name)
	template, ok := r.endpoints[tld]
	if !ok {
		return domain.NotFound(fmt.Sprintf("no RDAP endpoint for TLD %q", tld))
	}
	endpoint := fmt.Sprintf(template, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.NotFound(fmt.Sprintf("invalid RDAP endpoint: %v", err))
	}
	req.Header.Set("Accept", "application/rdap+json")

	resp, err := r.client.Do(req)
	if err != nil {
		return domain.Transient(fmt.Errorf("rdap request: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to parsing
	case resp.StatusCode == http.StatusNotFound:
		return domain.NotFound("registry has no record for this domain")
	default:
		return domain.Transient(fmt.Errorf("rdap endpoint returned %s", resp.Status))
	}

	var payload rdapResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Transient(fmt.Errorf("decode rdap response: %w", err))
	}

	rec := payload.toRecord(endpoint)
	scrubPrivacy(&rec)
	if !rec.Established() {
		return domain.NotFound("rdap response carried no registration facts")
	}

	if r.logger != nil {
		r.logger.Debug("rdap lookup resolved", "domain", name, "registrar", rec.Registrar)
	}
	return domain.Resolved(rec)
}

type rdapResponse struct {
	Events []struct {
		EventAction string `json:"eventAction"`
		EventDate   string `json:"eventDate"`
	} `json:"events"`
	Status      []string `json:"status"`
	Nameservers []struct {
		LDHName string `json:"ldhName"`
	} `json:"nameservers"`
	Entities []rdapEntity `json:"entities"`
}

type rdapEntity struct {
	Roles      []string          `json:"roles"`
	VCardArray []json.RawMessage `json:"vcardArray"`
}

func (p rdapResponse) toRecord(endpoint string) domain.OwnershipRecord {
	rec := domain.OwnershipRecord{
		SourceMethod: "rdap",
		SourceURL:    endpoint,
		Registry:     registryFromEndpoint(endpoint),
	}

	for _, event := range p.Events {
		at := parseRDAPDate(event.EventDate)
		if at == nil {
			continue
		}
		switch event.EventAction {
		case "registration":
			rec.CreatedAt = at
		case "expiration":
			rec.ExpiresAt = at
		}
	}

	for _, ns := range p.Nameservers {
		if ns.LDHName != "" {
			rec.Nameservers = append(rec.Nameservers, strings.ToLower(ns.LDHName))
		}
	}

	for _, entity := range p.Entities {
		for _, role := range entity.Roles {
			switch role {
			case "registrar":
				if fn := vcardField(entity.VCardArray, "fn"); fn != "" {
					rec.Registrar = fn
				}
			case "registrant":
				if org := vcardField(entity.VCardArray, "org"); org != "" {
					rec.RegistrantOrg = org
				}
				if fn := vcardField(entity.VCardArray, "fn"); fn != "" {
					rec.RegistrantName = fn
				}
			}
		}
	}

	return rec
}

// vcardField extracts a property value from a jCard array. The layout
// is ["vcard", [[name, params, type, value], ...]].
func vcardField(vcard []json.RawMessage, key string) string {
	if len(vcard) < 2 {
		return ""
	}
	var items [][]any
	if err := json.Unmarshal(vcard[1], &items); err != nil {
		return ""
	}
	for _, item := range items {
		if len(item) < 4 {
			continue
		}
		name, ok := item[0].(string)
		if !ok || name != key {
			continue
		}
		if value, ok := item[3].(string); ok {
			return value
		}
	}
	return ""
}

func parseRDAPDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	utc := parsed.UTC()
	return &utc
}

func registryFromEndpoint(endpoint string) string {
	switch {
	case strings.Contains(endpoint, "verisign"):
		return "Verisign"
	case strings.Contains(endpoint, "publicinterestregistry"):
		return "Public Interest Registry"
	case strings.Contains(endpoint, "sidn"):
		return "SIDN"
	}
	return ""
}
