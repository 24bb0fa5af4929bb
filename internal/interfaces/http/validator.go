package http

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Input validation constants
const (
	MaxTenantIDLength = 64
	MaxMessageLength  = 4000
)

var slugPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidSlug checks if a tenant id is safe (alphanumeric + underscore + hyphen)
func ValidSlug(s string) bool {
	if s == "" || len(s) > MaxTenantIDLength {
		return false
	}
	return slugPattern.MatchString(s)
}

// SanitizeString removes null bytes and invalid UTF-8
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for _, r := range s {
			if r != utf8.RuneError {
				v = append(v, r)
			}
		}
		s = string(v)
	}
	return s
}

// TruncateString truncates s to at most maxLen bytes without splitting a rune.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}
	return s[:maxLen]
}

// CleanText prepares inbound message text for the pipeline.
func CleanText(s string) string {
	return TruncateString(SanitizeString(s), MaxMessageLength)
}
