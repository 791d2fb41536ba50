package logging

import (
	"regexp"
	"strings"
)

// RedactedPlaceholder replaces any value judged sensitive.
const RedactedPlaceholder = "[REDACTED]"

var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-[A-Za-z0-9_-]{20,}`),                // OpenAI keys
	regexp.MustCompile(`AIza[A-Za-z0-9_-]{35}`),                // Google API keys
	regexp.MustCompile(`\b(AKIA|ASIA)[A-Z0-9]{16}\b`),          // AWS access key ids
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._-]{20,}`),     // bearer tokens
	regexp.MustCompile(`(?i)(secret|password|token|api_?key)\s*[:=]\s*[^\s,;]{8,}`),
	regexp.MustCompile(`(?i)X-Amz-Signature=[a-f0-9]{32,}`),    // presigned URL signatures
	regexp.MustCompile(`redis://[^:@/\s]*:[^@\s]+@`),           // redis URLs with passwords
}

var sensitiveKeyMarkers = []string{
	"API_KEY",
	"APIKEY",
	"SECRET",
	"PASSWORD",
	"TOKEN",
	"AUTHORIZATION",
}

// RedactSensitiveData masks every credential-looking substring of value.
func RedactSensitiveData(value string) string {
	if value == "" {
		return value
	}
	for _, p := range sensitivePatterns {
		value = p.ReplaceAllString(value, RedactedPlaceholder)
	}
	return value
}

// IsSensitiveField reports whether a field name alone marks its value as secret.
func IsSensitiveField(name string) bool {
	upper := strings.ToUpper(name)
	for _, marker := range sensitiveKeyMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}
