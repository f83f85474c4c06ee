package resolver

import (
	"strings"

	"domainvet/internal/domain"
)

// Privacy-protection markers seen in registrant fields. A registrant
// hidden behind one of these is treated as absent.
var privacyKeywords = []string{
	"REDACTED FOR PRIVACY",
	"Contact Privacy",
	"WhoisGuard",
	"Privacy Protect",
	"REDACTED",
	"Privacy Service",
	"Domains By Proxy",
	"Private Registration",
}

// PrivacyProtected reports whether value names a privacy service rather
// than a registrant.
func PrivacyProtected(value string) bool {
	upper := strings.ToUpper(value)
	for _, keyword := range privacyKeywords {
		if strings.Contains(upper, strings.ToUpper(keyword)) {
			return true
		}
	}
	return false
}

// scrubPrivacy blanks registrant fields that only name a privacy
// service, leaving the rest of the record intact.
func scrubPrivacy(rec *domain.OwnershipRecord) {
	if PrivacyProtected(rec.RegistrantOrg) {
		rec.RegistrantOrg = ""
	}
	if PrivacyProtected(rec.RegistrantName) {
		rec.RegistrantName = ""
	}
}
