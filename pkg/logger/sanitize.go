package logger

import (
	"strings"
)

// SanitizedEmail masks an email address for logging (e.g., "u***@e***.com")
func SanitizedEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "[invalid-email]"
	}

	local := maskTail(parts[0])

	domainParts := strings.Split(parts[1], ".")
	for i := 0; i < len(domainParts)-1; i++ {
		domainParts[i] = strings.Repeat("*", len(domainParts[i]))
	}

	return local + "@" + strings.Join(domainParts, ".")
}

// SanitizedUsername keeps the first character of a username
func SanitizedUsername(username string) string {
	if username == "" {
		return "[empty]"
	}
	return maskTail(username)
}

func maskTail(s string) string {
	if len(s) <= 1 {
		return s
	}
	return s[:1] + strings.Repeat("*", len(s)-1)
}

var sensitiveParams = []string{
	"password", "token", "secret", "api_key", "apikey", "email", "auth",
}

// SanitizeQueryString reports whether the query string should be redacted from logs
func SanitizeQueryString(rawQuery string) bool {
	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
