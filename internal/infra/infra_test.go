package infra

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fakePurger struct {
	calls     int
	retention time.Duration
	err       error
}

func (f *fakePurger) PurgeRead(_ context.Context, retention time.Duration) (int64, error) {
	f.calls++
	f.retention = retention
	if f.err != nil {
		return 0, f.err
	}
	return 3, nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestSchedulerRunPurge(t *testing.T) {
	purger := &fakePurger{}
	s := NewScheduler(purger, 48*time.Hour, "")

	if s.schedule != DefaultPurgeSchedule {
		t.Errorf("Expected default schedule, got %q", s.schedule)
	}

	purged, err := s.RunPurge(context.Background())
	if err != nil {
		t.Fatalf("RunPurge failed: %v", err)
	}
	if purged != 3 || purger.calls != 1 || purger.retention != 48*time.Hour {
		t.Errorf("Unexpected purge result: purged=%d calls=%d retention=%s", purged, purger.calls, purger.retention)
	}

	purger.err = errors.New("db down")
	if _, err := s.RunPurge(context.Background()); err == nil {
		t.Error("Expected purge error to propagate")
	}
}

func TestSchedulerStartStop(t *testing.T) {
	s := NewScheduler(&fakePurger{}, time.Hour, "*/5 * * * *")
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if len(s.cron.Entries()) != 1 {
		t.Errorf("Expected 1 cron entry, got %d", len(s.cron.Entries()))
	}
	s.Stop()
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(&fakePurger{}, time.Hour, "not a schedule")
	if err := s.Start(); err == nil {
		t.Error("Expected invalid schedule to fail")
	}
}

func TestOpsRouter(t *testing.T) {
	tests := []struct {
		name     string
		pingErr  error
		wantCode int
		wantBody string
	}{
		{"healthy", nil, http.StatusOK, "healthy"},
		{"unhealthy", errors.New("connection refused"), http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewOpsRouter(fakePinger{err: tt.pingErr})
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("Expected %d, got %d", tt.wantCode, rec.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("Failed to decode body: %v", err)
			}
			if body["status"] != tt.wantBody {
				t.Errorf("Expected status %q, got %q", tt.wantBody, body["status"])
			}
		})
	}

	t.Run("metrics", func(t *testing.T) {
		router := NewOpsRouter(fakePinger{})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "go_goroutines") {
			t.Error("Expected default Go collector metrics")
		}
	})
}

func TestIsIgnorableSyncError(t *testing.T) {
	if !isIgnorableSyncError(errors.New("sync /dev/stderr: inappropriate ioctl for device")) {
		t.Error("Expected terminal sync error to be ignorable")
	}
	if isIgnorableSyncError(errors.New("disk full")) {
		t.Error("Expected other errors to surface")
	}
}
