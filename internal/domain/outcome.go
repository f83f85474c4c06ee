package domain

import "fmt"

// OutcomeKind discriminates the closed set of resolver results.
type OutcomeKind int

const (
	// OutcomeResolved carries an ownership record; the chain stops here.
	OutcomeResolved OutcomeKind = iota
	// OutcomeNotFound means the source has no data for this domain;
	// permanent for that source, the chain advances.
	OutcomeNotFound
	// OutcomeTransient means the source failed in a retryable way
	// (network error, rate limit).
	OutcomeTransient
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeResolved:
		return "resolved"
	case OutcomeNotFound:
		return "not-found"
	case OutcomeTransient:
		return "transient-error"
	}
	return fmt.Sprintf("outcome(%d)", int(k))
}

// Outcome is the tagged result of a single resolver attempt.
// Record is set only for OutcomeResolved, Err only for OutcomeTransient.
type Outcome struct {
	Kind   OutcomeKind
	Record *OwnershipRecord
	Reason string
	Err    error
}

// Resolved wraps a record into a successful outcome.
func Resolved(rec OwnershipRecord) Outcome {
	return Outcome{Kind: OutcomeResolved, Record: &rec}
}

// NotFound builds a permanent miss with a human-readable reason.
func NotFound(reason string) Outcome {
	return Outcome{Kind: OutcomeNotFound, Reason: reason}
}

// Transient builds a retryable failure.
func Transient(err error) Outcome {
	return Outcome{Kind: OutcomeTransient, Err: err, Reason: err.Error()}
}

// Summary renders the outcome for the stage-history audit trail.
func (o Outcome) Summary() string {
	switch o.Kind {
	case OutcomeResolved:
		if o.Record != nil && o.Record.SourceMethod != "" {
			return "resolved via " + o.Record.SourceMethod
		}
		return "resolved"
	case OutcomeNotFound:
		if o.Reason != "" {
			return "not found: " + o.Reason
		}
		return "not found"
	default:
		if o.Err != nil {
			return "transient error: " + o.Err.Error()
		}
		return "transient error"
	}
}
