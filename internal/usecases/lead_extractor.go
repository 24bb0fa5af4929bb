package usecases

import (
	"regexp"
	"strings"

	"leadbot/internal/entities"
)

var (
	phonePattern = regexp.MustCompile(`(\+?\d{2,4}[-\s]?)?(\d{3,5}[-\s]?\d{3,5}[-\s]?\d{3,5})`)
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9.-]+`)
	nonDigit     = regexp.MustCompile(`\D`)
)

// intentKeywords signal booking, ordering or visiting intent, including
// common Hinglish phrasings.
var intentKeywords = []string{
	"book", "booking", "reserve", "reservation", "order", "buy", "purchase",
	"lead", "interested", "appointment", "visit",
	"visit karna", "order karna", "book karna", "order karenge",
}

const minPhoneDigits = 7

// ExtractLead applies the tenant's lead rule to text. It performs no I/O.
func ExtractLead(text string, rule entities.LeadRule) (entities.LeadCandidate, bool) {
	c := entities.LeadCandidate{
		Phone:  findPhone(text),
		Email:  emailPattern.FindString(text),
		Intent: hasIntent(text),
	}
	hasPhone := c.Phone != ""

	var match bool
	switch rule {
	case entities.RulePhoneOrEmailOrIntent:
		match = hasPhone || c.Email != "" || c.Intent
	case entities.RulePhoneAndIntent:
		match = hasPhone && c.Intent
	case entities.RulePhoneOrIntent:
		match = hasPhone || c.Intent
	}
	if !match {
		return entities.LeadCandidate{}, false
	}
	return c, true
}

// findPhone returns the digits of the first match long enough to be a
// phone number.
func findPhone(text string) string {
	for _, m := range phonePattern.FindAllString(text, -1) {
		if digits := nonDigit.ReplaceAllString(m, ""); len(digits) >= minPhoneDigits {
			return digits
		}
	}
	return ""
}

func hasIntent(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range intentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
