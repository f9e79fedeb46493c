// FilePath: api/resources/api.resource.health_test.go
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/greeneye-project/greeneye-hub/internal/hubservice"
	"github.com/greeneye-project/greeneye-hub/internal/repository"
)

// The fakes embed the full interfaces and override only Ping; anything else
// the handler touched would panic and fail the test.

type fakeUsers struct {
	repository.UserRepository
	err error
}

func (f fakeUsers) Ping(ctx context.Context) error { return f.err }

type fakeReadings struct {
	repository.ReadingRepository
	err error
}

func (f fakeReadings) Ping(ctx context.Context) error { return f.err }

type fakeHealthCache struct {
	repository.LatestCache
	err error
}

func (f fakeHealthCache) Ping(ctx context.Context) error { return f.err }

type fakeBroker struct{ up bool }

func (f fakeBroker) IsConnected() bool { return f.up }

func newHealthService(dbErr, influxErr, redisErr error, mqttUp bool) *hubservice.HubService {
	return &hubservice.HubService{
		Users:    fakeUsers{err: dbErr},
		Readings: fakeReadings{err: influxErr},
		Cache:    fakeHealthCache{err: redisErr},
		Broker:   fakeBroker{up: mqttUp},
	}
}

func doHealthCheck(t *testing.T, svc *hubservice.HubService) (int, healthResponse) {
	t.Helper()
	h := &HealthHandlers{hubservice: svc}
	rec := httptest.NewRecorder()
	h.Check(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode health response: %v", err)
	}
	return rec.Code, resp
}

func TestHealthCheckAllUp(t *testing.T) {
	code, resp := doHealthCheck(t, newHealthService(nil, nil, nil, true))

	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if resp.Status != "ok" {
		t.Errorf("Expected status ok, got %s", resp.Status)
	}
	for _, name := range []string{"database", "influx", "redis", "mqtt"} {
		if !resp.Services[name] {
			t.Errorf("Expected %s to be reported up", name)
		}
	}
}

func TestHealthCheckDegraded(t *testing.T) {
	cases := []struct {
		name string
		svc  *hubservice.HubService
		down string
	}{
		{"influx down", newHealthService(nil, fmt.Errorf("connection refused"), nil, true), "influx"},
		{"broker down", newHealthService(nil, nil, nil, false), "mqtt"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, resp := doHealthCheck(t, tc.svc)

			if code != http.StatusServiceUnavailable {
				t.Fatalf("Expected 503, got %d", code)
			}
			if resp.Status != "degraded" {
				t.Errorf("Expected status degraded, got %s", resp.Status)
			}
			if resp.Services[tc.down] {
				t.Errorf("Expected %s to be reported down", tc.down)
			}
		})
	}
}
