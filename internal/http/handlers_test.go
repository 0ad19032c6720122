package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/kjstillabower/stem-explorer/internal/lifecycle"
	"github.com/kjstillabower/stem-explorer/internal/traffic"
)

func decodeHealth(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	return resp
}

func TestGetHealth_Healthy(t *testing.T) {
	s := newTestServer(t, Config{}, nil)

	w := s.get("/health")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	resp := decodeHealth(t, w.Body.Bytes())
	if resp["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", resp["status"])
	}
	if resp["service"] != "stem-explorer" {
		t.Errorf("service = %v, want stem-explorer", resp["service"])
	}
}

func TestGetHealth_ShuttingDown(t *testing.T) {
	s := newTestServer(t, Config{}, nil)
	lifecycle.SetShuttingDown(true)
	t.Cleanup(func() { lifecycle.SetShuttingDown(false) })

	w := s.get("/health")

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	if got := decodeHealth(t, w.Body.Bytes())["status"]; got != "shutting-down" {
		t.Errorf("status = %v, want shutting-down", got)
	}
}

func TestGetHealth_CacheChecks(t *testing.T) {
	tests := []struct {
		name       string
		ping       func() error
		wantCode   int
		wantStatus string
		wantCache  string
	}{
		{"reachable", func() error { return nil }, http.StatusOK, "healthy", "healthy"},
		{"unreachable", func() error { return errors.New("dial tcp: refused") }, http.StatusServiceUnavailable, "degraded", "unhealthy"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, Config{CachePing: tc.ping}, nil)

			w := s.get("/health")

			if w.Code != tc.wantCode {
				t.Errorf("status code = %d, want %d", w.Code, tc.wantCode)
			}
			resp := decodeHealth(t, w.Body.Bytes())
			if resp["status"] != tc.wantStatus {
				t.Errorf("status = %v, want %s", resp["status"], tc.wantStatus)
			}
			checks, _ := resp["checks"].(map[string]interface{})
			if checks["cache"] != tc.wantCache {
				t.Errorf("checks.cache = %v, want %s", checks["cache"], tc.wantCache)
			}
		})
	}
}

func TestComputeHealthStatus_Traffic(t *testing.T) {
	tests := []struct {
		name       string
		success    int
		errors     int
		denied     int
		wantStatus string
	}{
		{"quiet", 0, 0, 0, "healthy"},
		{"normal", 20, 1, 1, "healthy"},
		{"overloaded", 5, 0, 10, "overloaded"},
		{"degraded", 5, 5, 0, "degraded"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, Config{HealthWindow: time.Minute, OverloadThresholdPct: 50, DegradedErrorPct: 25}, nil)
			tr := traffic.NewTracker(clockwork.NewFakeClock())
			s.handler.traffic = tr
			for i := 0; i < tc.success; i++ {
				tr.Record(traffic.Success)
			}
			for i := 0; i < tc.errors; i++ {
				tr.Record(traffic.Error)
			}
			for i := 0; i < tc.denied; i++ {
				tr.Record(traffic.Denied)
			}

			if got := s.handler.computeHealthStatus().status; got != tc.wantStatus {
				t.Errorf("status = %q, want %q", got, tc.wantStatus)
			}
		})
	}
}

func TestGetHealth_LogsTransition(t *testing.T) {
	s := newTestServer(t, Config{}, nil)
	s.get("/health")
	lifecycle.SetShuttingDown(true)
	t.Cleanup(func() { lifecycle.SetShuttingDown(false) })
	s.get("/health")

	entries := s.logs.FilterMessage("health status transition").All()
	if len(entries) != 1 {
		t.Fatalf("transition log entries = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["current_status"]; got != "shutting-down" {
		t.Errorf("current_status = %v, want shutting-down", got)
	}
}
