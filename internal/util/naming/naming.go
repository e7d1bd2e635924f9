// Package naming builds the deterministic labels used to find and stamp
// remote resources. A descriptor doubles as the human-readable description
// and the idempotency key: lookups match on the configured prefix, creation
// stamps a fresh timestamp suffix.
package naming

import (
	"fmt"
	"strings"
	"time"
)

const descriptorTimeLayout = "20060102_150405"

// Descriptor returns "<prefix>_<YYYYMMDD_HHMMSS>" for the given instant.
// Descriptors are never reused across runs; collisions within the same
// second are not actively prevented.
func Descriptor(prefix string, t time.Time) string {
	return fmt.Sprintf("%s_%s", prefix, t.Format(descriptorTimeLayout))
}

// MatchesPrefix reports whether label was produced from prefix by a prior
// run. Exact matches count too, so fixed (non-timestamped) names can use the
// same predicate.
func MatchesPrefix(label, prefix string) bool {
	if label == prefix {
		return true
	}
	return strings.HasPrefix(label, prefix+"_")
}

// SanitizeProfileName converts a profile name into a directory-safe key for
// the per-run output location.
func SanitizeProfileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "default"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
