package projection

import "strings"

// Category buckets one projection failure.
type Category string

const (
	CategoryTransient Category = "transient"
	CategoryTerminal  Category = "terminal"
	CategoryUnknown   Category = "unknown"
)

var (
	transientMarkers = []string{"timeout", "temporar", "connection"}
	terminalMarkers  = []string{"constraint", "invalid", "not found", "missing"}
)

// Classify buckets a projection error by message substrings. Only
// transient failures are retryable.
func Classify(err error) (Category, bool) {
	if err == nil {
		return CategoryUnknown, false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return CategoryTransient, true
		}
	}
	for _, marker := range terminalMarkers {
		if strings.Contains(msg, marker) {
			return CategoryTerminal, false
		}
	}
	return CategoryUnknown, false
}
