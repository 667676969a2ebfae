package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fd1az/dexter/internal/logger"
)

func TestServer_Health(t *testing.T) {
	s := NewServer(0, "test", logger.NewNop())
	s.Register("hub", func(ctx context.Context) error { return nil })

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	s.Register("ethereum", func(ctx context.Context) error { return errors.New("dial tcp: refused") })

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	status := s.Run(context.Background())
	if status.Status != "degraded" {
		t.Errorf("status = %s", status.Status)
	}
	if c := status.Checks["ethereum"]; c.Healthy || c.Message != "dial tcp: refused" {
		t.Errorf("ethereum check = %+v", c)
	}
	if !status.Checks["hub"].Healthy {
		t.Errorf("hub should be healthy")
	}
}

func TestServer_ReadyAndLive(t *testing.T) {
	s := NewServer(0, "test", logger.NewNop())
	s.Register("store", func(ctx context.Context) error { return errors.New("locked") })

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable || rec.Body.String() != "not ready" {
		t.Errorf("ready = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("live = %d", rec.Code)
	}
}
