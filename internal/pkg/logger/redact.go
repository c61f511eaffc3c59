package logger

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// RedactEmail masks the local part of an email address for safe logging.
// "john.doe@example.com" → "jo***@example.com". Local parts of two or
// fewer characters are masked entirely.
func RedactEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "***@***"
	}
	local, rest := email[:at], email[at:]
	if len(local) <= 2 {
		return "***" + rest
	}
	return local[:2] + "***" + rest
}

// redactValue masks recipient addresses in log fields. Fields whose key
// mentions an email or recipient are masked as a whole; any value may
// still carry an embedded address, so those are masked too.
func redactValue(key, val string) string {
	k := strings.ToLower(key)
	if strings.Contains(k, "email") || strings.Contains(k, "recipient") {
		return RedactEmail(val)
	}
	return emailPattern.ReplaceAllStringFunc(val, RedactEmail)
}
