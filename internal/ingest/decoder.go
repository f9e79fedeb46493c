// FilePath: internal/ingest/decoder.go
package ingest

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/greeneye-project/greeneye-hub/internal/errors"
)

// Field producers have shipped several broken JSON dialects over the years:
// single-quoted pseudo-JSON, bare keys, unquoted device ids and timestamps,
// stray backslashes, and the occasional UTF-8 BOM. DecodePayload tries strict
// JSON first, then applies one bounded repair pass and retries exactly once.

var (
	bareKeyRe      = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	bareDeviceIDRe = regexp.MustCompile(`("device_id"\s*:\s*)([A-Za-z0-9_\-]+)`)
	bareTimeRe     = regexp.MustCompile(`("(?:_time|time)"\s*:\s*)([^",}\s][^,}\s]*)`)
	escapeRe       = regexp.MustCompile(`\\u[0-9a-fA-F]{4}|\\.`)
	validEscapeRe  = regexp.MustCompile(`^\\(["\\/bfnrt]|u[0-9a-fA-F]{4})$`)
)

// DecodePayload parses a raw MQTT payload into a generic mapping.
func DecodePayload(raw []byte) (map[string]interface{}, error) {
	s := strings.TrimSpace(string(bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))))

	out := map[string]interface{}{}
	if err := json.Unmarshal([]byte(s), &out); err == nil {
		return out, nil
	}

	repaired := repairPayload(s)
	out = map[string]interface{}{}
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		return nil, errors.NewDecodeError("payload unparseable after repair", err)
	}
	return out, nil
}

func repairPayload(s string) string {
	t := s

	// '{"a": 1}' wrapped in single quotes
	if len(t) >= 2 && t[0] == '\'' && t[len(t)-1] == '\'' {
		t = t[1 : len(t)-1]
	}

	// {'a': 1} with no real double quotes anywhere
	if !strings.Contains(t, `"`) {
		t = strings.ReplaceAll(t, "'", `"`)
	}

	// {key: 1} bare keys
	t = bareKeyRe.ReplaceAllString(t, `$1"$2":`)

	// "device_id": ge-sd-6c18 and "_time": 2024-01-01T00:00:00Z unquoted
	t = bareDeviceIDRe.ReplaceAllString(t, `$1"$2"`)
	t = bareTimeRe.ReplaceAllString(t, `$1"$2"`)

	// Escape lone backslashes, keep valid JSON escape sequences intact.
	t = escapeRe.ReplaceAllStringFunc(t, func(seq string) string {
		if validEscapeRe.MatchString(seq) {
			return seq
		}
		return `\\` + seq[1:]
	})

	return t
}
