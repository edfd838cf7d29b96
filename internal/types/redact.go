package types

import "regexp"

// Patterns that must never reach logs or user-visible error surfaces.
// Long opaque tokens cover GitHub PATs, Gemini keys, and anything else
// that looks like a credential.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`Bearer\s+[A-Za-z0-9._~+/=-]+`),
	regexp.MustCompile(`sk-[A-Za-z0-9_-]+`),
	regexp.MustCompile(`(?i)key\s*[:=]\s*[A-Za-z0-9_-]+`),
	regexp.MustCompile(`[A-Za-z0-9_-]{32,}`),
}

// Redact replaces credential-shaped spans in s with [REDACTED].
func Redact(s string) string {
	for _, p := range secretPatterns {
		s = p.ReplaceAllString(s, "[REDACTED]")
	}
	return s
}

// RedactError returns a redacted rendering of err, or "" for nil.
func RedactError(err error) string {
	if err == nil {
		return ""
	}
	return Redact(err.Error())
}
