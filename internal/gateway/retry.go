package gateway

import (
	"strings"
	"time"
)

// DefaultMaxAttempts is the number of sends tried before giving up.
const DefaultMaxAttempts = 3

// permanentMarkers are gateway error fragments that no retry can fix.
var permanentMarkers = []string{
	"not registered",
	"invalid number",
	"not on whatsapp",
	"blocked",
}

// Backoff returns the wait before retry number attempt (1-based):
// 1s, 2s, 4s and so on.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Second << (attempt - 1)
}

// IsPermanent reports whether a gateway error message describes a failure
// that will not go away on retry.
func IsPermanent(msg string) bool {
	lower := strings.ToLower(msg)
	for _, m := range permanentMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
