package dnsx

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/miekg/dns"

	"domainvet/internal/ports"
)

// LookupError marks a DNS query that failed in transit (timeout,
// SERVFAIL). The poller treats it as a negative result, never as fatal.
type LookupError struct {
	Domain string
	Err    error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("txt lookup for %s: %v", e.Domain, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// edns0Size is the receive buffer size advertised on every query so
// large TXT record sets fit into a single UDP answer.
const edns0Size = 4096

// Reader queries TXT records at the domain apex from a fixed upstream
// resolver. Queries go over UDP first; a truncated answer is re-asked
// over TCP so the full record set is always seen.
type Reader struct {
	client    *dns.Client
	tcpClient *dns.Client
	server    string
}

var _ ports.TXTReader = (*Reader)(nil)

// NewReader wires an upstream server ("host:port") and a per-query
// timeout.
func NewReader(server string, timeout time.Duration) *Reader {
	return &Reader{
		client:    &dns.Client{Timeout: timeout},
		tcpClient: &dns.Client{Net: "tcp", Timeout: timeout},
		server:    server,
	}
}

// Lookup returns all TXT values for name. Multi-string records are
// concatenated, which is how resolvers reassemble long TXT payloads.
// NXDOMAIN and an empty answer section are a valid empty set, not an
// error.
func (r *Reader) Lookup(ctx context.Context, name string) ([]string, string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeTXT)
	msg.RecursionDesired = true
	msg.SetEdns0(edns0Size, false)

	resp, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err != nil {
		return nil, "", &LookupError{Domain: name, Err: err}
	}
	if resp.Truncated {
		resp, _, err = r.tcpClient.ExchangeContext(ctx, msg, r.server)
		if err != nil {
			return nil, "", &LookupError{Domain: name, Err: err}
		}
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, "NXDOMAIN", nil
	default:
		return nil, "", &LookupError{
			Domain: name,
			Err:    fmt.Errorf("upstream answered %s", dns.RcodeToString[resp.Rcode]),
		}
	}

	var values, raw []string
	for _, rr := range resp.Answer {
		txt, ok := rr.(*dns.TXT)
		if !ok {
			continue
		}
		values = append(values, strings.Join(txt.Txt, ""))
		raw = append(raw, rr.String())
	}
	return values, strings.Join(raw, "\n"), nil
}
