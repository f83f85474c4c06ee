package domain

import (
	"strings"
	"time"
)

// Stage enumerates pipeline milestones for a single domain.
type Stage string

const (
	StagePending              Stage = "PENDING"
	StageAuthoritative        Stage = "AUTHORITATIVE"
	StageSecondary            Stage = "SECONDARY"
	StageAwaitingVerification Stage = "AWAITING_VERIFICATION"
	StageResolved             Stage = "RESOLVED"
	StageUnresolved           Stage = "UNRESOLVED"
)

var stageOrder = map[Stage]int{
	StagePending:              0,
	StageAuthoritative:        1,
	StageSecondary:            2,
	StageAwaitingVerification: 3,
	StageResolved:             4,
	StageUnresolved:           4,
}

// Terminal reports whether no further stage transitions are allowed.
func (s Stage) Terminal() bool {
	return s == StageResolved || s == StageUnresolved
}

// CanAdvance reports whether moving from s to next respects the
// forward-only stage order. Transitions never go backwards and never
// leave a terminal stage.
func (s Stage) CanAdvance(next Stage) bool {
	if s.Terminal() {
		return false
	}
	return stageOrder[next] > stageOrder[s]
}

// AllowsAttempt reports whether a resolver representing res may still
// run for a task currently at s. Stages already passed are never
// re-attempted; re-entering the current stage is allowed so an
// interrupted run can resume where it stopped.
func (s Stage) AllowsAttempt(res Stage) bool {
	if s.Terminal() {
		return false
	}
	return stageOrder[res] >= stageOrder[s]
}

// StageEvent is one entry of a task's append-only audit trail.
type StageEvent struct {
	Stage   Stage
	At      time.Time
	Summary string
}

// DomainTask tracks one input domain's journey through the pipeline.
type DomainTask struct {
	Domain     string
	Stage      Stage
	Resolution *OwnershipRecord
	Reason     string
	History    []StageEvent
	UpdatedAt  time.Time
}

// OwnershipRecord holds registration metadata produced by a resolver.
// Registrant fields may be empty: privacy-protected registrations
// withhold them, and DNS verification proves control but not identity.
type OwnershipRecord struct {
	RegistrantOrg  string
	RegistrantName string
	Registrar      string
	Registry       string
	CreatedAt      *time.Time
	ExpiresAt      *time.Time
	Nameservers    []string
	SourceMethod   string
	SourceURL      string
}

// Established reports whether the record carries enough substance to
// count as a resolution. A partially populated record still qualifies
// when at least the registrar or the creation date is present.
func (r OwnershipRecord) Established() bool {
	return r.Registrar != "" || r.CreatedAt != nil
}

// SourceMethodVerification tags records synthesized from a successful
// DNS proof-of-control challenge.
const SourceMethodVerification = "dns-verification"

// NormalizeDomain lowercases a domain name and strips surrounding
// whitespace and the trailing dot.
func NormalizeDomain(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.TrimSuffix(name, ".")
}

// TLD returns the final label of a domain with a leading dot, or the
// empty string when the name has no dot.
func TLD(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return ""
	}
	return name[idx:]
}
