// Package validator performs post-hoc checks on a fully formed assistant
// response. It is pure: text in, verdict out, no side effects. A rejected
// response is substituted with a localized rephrase notice by the caller.
package validator

import (
	"errors"
	"strings"
)

// Rejection reasons. Callers substitute the same user-visible notice for
// all of them; the distinction exists for logging.
var (
	ErrTooShort         = errors.New("response too short")
	ErrMetaDisclaimer   = errors.New("response contains a meta-disclaimer")
	ErrUnsupportedClaim = errors.New("response contains an unsourced confidence claim")
)

// minLength is the minimum trimmed response length in characters.
const minLength = 10

// Meta-disclaimer phrases that must never reach the user. Matched
// case-insensitively against the whole response.
var bannedPhrases = []string{
	"as an ai",
	"as a language model",
	"i cannot",
	"i can't",
	"i am unable",
	"als een ai",
	"als taalmodel",
	"ik kan niet",
	"ik ben niet in staat",
	"ik ben een ai",
}

// Confidence phrases that claim general truth. Allowed only when a sourcing
// phrase accompanies them. The list is literal and deliberately narrow;
// broadening it is a product decision.
var confidencePhrases = []string{
	"iedereen weet dat",
	"het is algemeen bekend",
	"zoals iedereen weet",
	"het is een feit dat",
}

// Sourcing phrases that license a confidence claim.
var sourcingPhrases = []string{
	"volgens",
	"op basis van",
	"uit de tekst",
	"uit de context",
	"in de context",
	"de bron",
}

// Validate checks a complete response. A nil return means the response may
// be shown as-is; a non-nil return names the rejection reason.
func Validate(text string) error {
	if len(strings.TrimSpace(text)) < minLength {
		return ErrTooShort
	}

	lower := strings.ToLower(text)
	for _, phrase := range bannedPhrases {
		if strings.Contains(lower, phrase) {
			return ErrMetaDisclaimer
		}
	}

	for _, phrase := range confidencePhrases {
		if strings.Contains(lower, phrase) && !hasSourcing(lower) {
			return ErrUnsupportedClaim
		}
	}

	return nil
}

func hasSourcing(lower string) bool {
	for _, phrase := range sourcingPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
