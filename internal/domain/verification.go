package domain

import "time"

// VerificationStatus enumerates the states of a TXT challenge.
// VERIFIED and FAILED are terminal.
type VerificationStatus string

const (
	VerificationWaiting  VerificationStatus = "WAITING"
	VerificationVerified VerificationStatus = "VERIFIED"
	VerificationFailed   VerificationStatus = "FAILED"
)

// Terminal reports whether the status permits no further transitions.
func (s VerificationStatus) Terminal() bool {
	return s == VerificationVerified || s == VerificationFailed
}

// VerificationTask is one DNS proof-of-control challenge. The operator
// publishes the token as a TXT record at the domain apex and the poller
// watches for it.
type VerificationTask struct {
	Domain        string
	Token         string
	Status        VerificationStatus
	Attempts      int
	MaxAttempts   int
	CreatedAt     time.Time
	LastCheckedAt *time.Time
	ResolvedAt    *time.Time
	FailReason    string
	DNSRaw        string
}

// VerifiedRecord synthesizes the ownership record attached to a domain
// once its TXT challenge succeeds. Registrant fields stay empty: the
// challenge proves control, not identity.
func VerifiedRecord() OwnershipRecord {
	return OwnershipRecord{
		SourceMethod: SourceMethodVerification,
		SourceURL:    "dns:txt",
	}
}
