// Package security masks credentials before they reach logs and output.
package security

import (
	"regexp"
	"strings"
)

// sensitiveFields contains field names whose values are always masked.
var sensitiveFields = map[string]bool{
	"api_key":   true,
	"apikey":    true,
	"x-api-key": true,
	"bot_token": true,
	"token":     true,
	"password":  true,
	"secret":    true,
}

// sensitivePatterns find credentials embedded in free text.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|x-api-key|token|password)([=:]\s*)["']?([^\s"'&]+)["']?`),
	regexp.MustCompile(`(/bot)(\d+:[A-Za-z0-9_-]+)`), // Telegram bot URLs
}

// MaskCredential masks a credential value, keeping a short prefix and
// suffix when it is long enough to stay unguessable.
func MaskCredential(value string) string {
	if len(value) == 0 {
		return ""
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	if len(value) <= 8 {
		return value[:2] + strings.Repeat("*", len(value)-2)
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}

// MaskSensitive masks credentials found in input.
func MaskSensitive(input string) string {
	result := sensitivePatterns[0].ReplaceAllStringFunc(input, func(match string) string {
		m := sensitivePatterns[0].FindStringSubmatch(match)
		return m[1] + m[2] + MaskCredential(m[3])
	})
	return sensitivePatterns[1].ReplaceAllStringFunc(result, func(match string) string {
		m := sensitivePatterns[1].FindStringSubmatch(match)
		return m[1] + MaskCredential(m[2])
	})
}

// IsSensitiveField reports whether a field name holds a credential.
func IsSensitiveField(field string) bool {
	return sensitiveFields[strings.ToLower(field)]
}

// MaskFields returns a copy of data with credential fields masked.
func MaskFields(data map[string]string) map[string]string {
	result := make(map[string]string, len(data))
	for k, v := range data {
		if IsSensitiveField(k) {
			result[k] = MaskCredential(v)
		} else {
			result[k] = MaskSensitive(v)
		}
	}
	return result
}
