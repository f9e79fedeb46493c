// FilePath: internal/ingest/identity_test.go
package ingest

import "testing"

func TestCanonicalDeviceID(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"already canonical", "6c18", "6c18"},
		{"prefixed code", "ge-sd-6c18", "6c18"},
		{"uppercase prefixed code", "GE-SD-6C18", "6c18"},
		{"full mac", "A0:B1:C2:D3:6C:18", "6c18"},
		{"hyphenated mac", "A0-B1-C2-D3-6C-18", "6c18"},
		{"surrounding whitespace", "  ge-sd-6c18 ", "6c18"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CanonicalDeviceID(tc.in)
			if got != tc.want {
				t.Errorf("CanonicalDeviceID(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCanonicalDeviceIDIdempotent(t *testing.T) {
	for _, raw := range []string{"ge-sd-6c18", "A0:B1:C2:D3:6C:18", "6c18"} {
		once := CanonicalDeviceID(raw)
		twice := CanonicalDeviceID(once)
		if once != twice {
			t.Errorf("Resolution not idempotent for %q: %q != %q", raw, once, twice)
		}
	}
}
