package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestUpstreamChecker_Reachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	checker := NewUpstreamChecker(srv.URL, srv.Client())
	result := checker.Check(context.Background())
	if result.Status != StatusHealthy {
		t.Fatalf("status = %v (%s), want healthy", result.Status, result.Message)
	}
	if result.Details["status"] != http.StatusOK {
		t.Errorf("details status = %v", result.Details["status"])
	}
}

func TestUpstreamChecker_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	checker := NewUpstreamChecker(srv.URL, srv.Client())
	result := checker.Check(context.Background())
	if result.Status != StatusDegraded {
		t.Errorf("status = %v, want degraded", result.Status)
	}
}

func TestUpstreamChecker_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listens on the address anymore

	checker := NewUpstreamChecker(srv.URL, nil)
	result := checker.Check(context.Background())
	if result.Status != StatusUnhealthy {
		t.Fatalf("status = %v, want unhealthy", result.Status)
	}
	if !errors.Is(result.Error, ErrUpstreamUnavailable) {
		t.Errorf("error = %v, want ErrUpstreamUnavailable", result.Error)
	}
}
