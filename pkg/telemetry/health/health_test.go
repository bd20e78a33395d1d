package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeCounter int

func (f fakeCounter) Len() int { return int(f) }

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestNew_DefaultTimeout(t *testing.T) {
	if c := New(0); c.checkTimeout != DefaultCheckTimeout {
		t.Errorf("checkTimeout = %v", c.checkTimeout)
	}
	if c := New(time.Second); c.checkTimeout != time.Second {
		t.Errorf("checkTimeout = %v", c.checkTimeout)
	}
}

func TestCheckReadiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus string
		wantFailed []string
	}{
		{
			name:       "no checks is ready",
			wantStatus: StatusReady,
		},
		{
			name: "all pass",
			checks: map[string]CheckFunc{
				"analyzers": AnalyzersCheck(fakeCounter(2)),
				"history":   PingCheck(fakePinger{}),
			},
			wantStatus: StatusReady,
		},
		{
			name: "no analyzers",
			checks: map[string]CheckFunc{
				"analyzers": AnalyzersCheck(fakeCounter(0)),
				"history":   PingCheck(fakePinger{}),
			},
			wantStatus: StatusDegraded,
			wantFailed: []string{"analyzers"},
		},
		{
			name: "store down",
			checks: map[string]CheckFunc{
				"history": PingCheck(fakePinger{err: errors.New("database is closed")}),
			},
			wantStatus: StatusDegraded,
			wantFailed: []string{"history"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(time.Second)
			for name, check := range tt.checks {
				c.RegisterCheck(name, check)
			}

			status := c.CheckReadiness(context.Background())
			if status.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", status.Status, tt.wantStatus)
			}
			for _, name := range tt.wantFailed {
				if status.Checks[name].Status != StatusUnhealthy {
					t.Errorf("check %q = %+v, want unhealthy", name, status.Checks[name])
				}
			}
		})
	}
}

func TestCheckReadiness_Timeout(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.RegisterCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return nil
	})

	status := c.CheckReadiness(context.Background())
	if status.Status != StatusDegraded {
		t.Errorf("Status = %q", status.Status)
	}
	if msg := status.Checks["slow"].Message; msg != "health check timeout" {
		t.Errorf("Message = %q", msg)
	}
}

func TestRegisterUnregister(t *testing.T) {
	c := New(time.Second)
	c.RegisterCheck("a", func(context.Context) error { return nil })
	c.RegisterCheck("a", func(context.Context) error { return errors.New("replaced") })
	if c.CheckCount() != 1 {
		t.Errorf("CheckCount() = %d", c.CheckCount())
	}
	if got := c.CheckReadiness(context.Background()).Checks["a"].Message; got != "replaced" {
		t.Errorf("check not replaced: %q", got)
	}
	c.UnregisterCheck("a")
	if c.CheckCount() != 0 {
		t.Errorf("CheckCount() = %d after unregister", c.CheckCount())
	}
}

func TestHandlers(t *testing.T) {
	c := New(time.Second)
	c.RegisterCheck("analyzers", AnalyzersCheck(fakeCounter(0)))

	tests := []struct {
		name       string
		handler    http.HandlerFunc
		method     string
		wantCode   int
		wantStatus string
	}{
		{"liveness", c.LivenessHandler(), http.MethodGet, http.StatusOK, StatusOK},
		{"readiness degraded", c.ReadinessHandler(), http.MethodGet, http.StatusServiceUnavailable, StatusDegraded},
		{"liveness head", c.LivenessHandler(), http.MethodHead, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler(rec, httptest.NewRequest(tt.method, "/", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantStatus == "" {
				if rec.Body.Len() != 0 {
					t.Errorf("HEAD body = %q", rec.Body.String())
				}
				return
			}
			var body HealthStatus
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", body.Status, tt.wantStatus)
			}
		})
	}
}

func TestVersionHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	VersionHandler(NewVersionInfo("1.2.0", "abc123", "2026-05-01"))(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var info VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info.Version != "1.2.0" || info.Commit != "abc123" || info.GoVersion == "" {
		t.Errorf("info = %+v", info)
	}
}
