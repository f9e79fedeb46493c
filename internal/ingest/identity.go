// FilePath: internal/ingest/identity.go
package ingest

import (
	"regexp"
	"strings"
)

// Devices announce themselves in three shapes: a raw MAC ("A0:B1:C2:D3:6C:18"),
// a prefixed code ("GE-SD-6C18"), or the canonical short form ("6c18").
// CanonicalDeviceID folds all of them onto the 4-character lowercase ID used
// as the key across the registry, cache, and time-series tags.
var devicePrefixRe = regexp.MustCompile(`^[A-Za-z]+-[A-Za-z]+-`)

func CanonicalDeviceID(raw string) string {
	s := devicePrefixRe.ReplaceAllString(strings.TrimSpace(raw), "")
	s = strings.NewReplacer(":", "", "-", "").Replace(s)
	if len(s) > 4 {
		s = s[len(s)-4:]
	}
	return strings.ToLower(s)
}
