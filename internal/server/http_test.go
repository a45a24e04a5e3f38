// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

type pingAPI struct{}

func (pingAPI) RegisterRoutes(r chi.Router) {
	r.Get("/v1/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
}

func newTestHTTPServer(t *testing.T, ready bool) *HTTPServer {
	t.Helper()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lifecycle_test_total",
		Help: "test counter",
	})
	counter.Inc()

	registry := prometheus.NewRegistry()
	registry.MustRegister(counter)

	s := NewHTTPServer(0, registry, pingAPI{}, func() bool { return ready })
	if err := s.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	return s
}

func serve(s *HTTPServer, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHTTPServer_Metrics(t *testing.T) {
	s := newTestHTTPServer(t, true)

	rec := serve(s, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"lifecycle_test_total 1", "go_goroutines"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestHTTPServer_Health(t *testing.T) {
	tests := []struct {
		name  string
		ready bool
		want  int
	}{
		{name: "ready", ready: true, want: http.StatusOK},
		{name: "not ready", ready: false, want: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestHTTPServer(t, tt.ready)
			if rec := serve(s, http.MethodGet, "/healthz"); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHTTPServer_MountsAPI(t *testing.T) {
	s := newTestHTTPServer(t, true)

	if rec := serve(s, http.MethodGet, "/v1/ping"); rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
	if rec := serve(s, http.MethodGet, "/v1/unknown"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
