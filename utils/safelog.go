// Safe logging helpers: mask personal data and capability tokens so production
// logs never contain a usable response link or a recipient address.
package utils

import (
	"fmt"
	"log"
	"os"
	"regexp"
)

// IsProduction switches on log masking and strict key handling.
var IsProduction = os.Getenv("GIN_MODE") == "release" ||
	os.Getenv("ENVIRONMENT") == "production" ||
	os.Getenv("ENV") == "production"

var (
	emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	// A response token is 64 hex chars; anything that long and hex-shaped is
	// masked wholesale.
	tokenRegex = regexp.MustCompile(`\b[0-9a-f]{64}\b`)
	uuidRegex  = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
)

// MaskString masks emails, tokens and UUIDs in production.
func MaskString(input string) string {
	if !IsProduction {
		return input
	}

	result := emailRegex.ReplaceAllString(input, "***@***.***")
	result = tokenRegex.ReplaceAllString(result, "tok_****")
	result = uuidRegex.ReplaceAllStringFunc(result, func(id string) string {
		return id[:8] + "..."
	})
	return result
}

// MaskToken shortens a capability token for log output in any environment;
// tokens are bearer credentials and never belong in logs whole.
func MaskToken(token string) string {
	if len(token) <= 8 {
		return "tok_****"
	}
	return token[:8] + "..."
}

// MaskEmail masks a recipient address in production.
func MaskEmail(email string) string {
	if !IsProduction {
		return email
	}
	return "***@***.***"
}

// SafeLog logs a formatted message with sensitive data masked.
func SafeLog(format string, args ...interface{}) {
	log.Print(MaskString(fmt.Sprintf(format, args...)))
}
