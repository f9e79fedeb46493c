// FilePath: internal/ingest/decoder_test.go
package ingest

import (
	"reflect"
	"testing"

	"github.com/greeneye-project/greeneye-hub/internal/errors"
)

func TestDecodePayloadStrictJSON(t *testing.T) {
	payload := []byte(`{"amb_temp": 24.5, "soil_humi": 250}`)

	out, err := DecodePayload(payload)
	if err != nil {
		t.Fatalf("Failed to decode valid JSON: %v", err)
	}
	if out["amb_temp"] != 24.5 {
		t.Errorf("Expected amb_temp=24.5, got %v", out["amb_temp"])
	}
	if out["soil_humi"] != 250.0 {
		t.Errorf("Expected soil_humi=250, got %v", out["soil_humi"])
	}
}

func TestDecodePayloadRepairs(t *testing.T) {
	want := map[string]interface{}{
		"amb_temp": 24.5,
		"battery":  88.0,
	}

	cases := []struct {
		name    string
		payload string
	}{
		{"single quotes", `{'amb_temp': 24.5, 'battery': 88}`},
		{"bare keys", `{amb_temp: 24.5, battery: 88}`},
		{"bom prefix", "\xef\xbb\xbf" + `{"amb_temp": 24.5, "battery": 88}`},
		{"leading whitespace", "  \n" + `{"amb_temp": 24.5, "battery": 88}` + "  "},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := DecodePayload([]byte(tc.payload))
			if err != nil {
				t.Fatalf("Failed to decode: %v", err)
			}
			if !reflect.DeepEqual(out, want) {
				t.Errorf("Expected %v, got %v", want, out)
			}
		})
	}
}

func TestDecodePayloadBareValues(t *testing.T) {
	out, err := DecodePayload([]byte(`{device_id: ge-sd-6c18, _time: 2024-06-01T10:00:00Z, temp: 21}`))
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if out["device_id"] != "ge-sd-6c18" {
		t.Errorf("Expected device_id=ge-sd-6c18, got %v", out["device_id"])
	}
	if out["_time"] != "2024-06-01T10:00:00Z" {
		t.Errorf("Expected quoted _time value, got %v", out["_time"])
	}
}

func TestDecodePayloadStrayBackslash(t *testing.T) {
	out, err := DecodePayload([]byte(`{"room": "green\house", "temp": 21}`))
	if err != nil {
		t.Fatalf("Failed to decode payload with stray backslash: %v", err)
	}
	if out["room"] != `green\house` {
		t.Errorf("Expected room=green\\house, got %v", out["room"])
	}
}

func TestDecodePayloadKeepsValidEscapes(t *testing.T) {
	out, err := DecodePayload([]byte(`{'note': 'line1\nline2'}`))
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if out["note"] != "line1\nline2" {
		t.Errorf("Expected newline preserved, got %q", out["note"])
	}
}

func TestDecodePayloadUnrepairable(t *testing.T) {
	_, err := DecodePayload([]byte(`not even close {{{`))
	if err == nil {
		t.Fatal("Expected decode error for garbage payload")
	}
	if !errors.IsDecodeError(err) {
		t.Errorf("Expected DecodeError, got %T", err)
	}
}
