package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refty/hamcounter/internal/adapter/metrics"
)

func healthOK(context.Context) error { return nil }

func healthErr(msg string) func(context.Context) error {
	return func(context.Context) error { return errors.New(msg) }
}

func TestHealthProbes(t *testing.T) {
	tests := []struct {
		name       string
		checks     []HealthCheck
		wantStatus int
		wantBody   string
	}{
		{
			name:       "all healthy",
			checks:     []HealthCheck{{Name: "postgres", Check: healthOK}, {Name: "redis", Check: healthOK}},
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ready","checks":{"postgres":"ok","redis":"ok"}}`,
		},
		{
			name:       "postgres down",
			checks:     []HealthCheck{{Name: "postgres", Check: healthErr("database unreachable")}, {Name: "redis", Check: healthOK}},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"status":"unhealthy","checks":{"postgres":"database unreachable","redis":"ok"}}`,
		},
		{
			name:       "no checks configured",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ready"}`,
		},
	}

	for _, path := range []string{"/health/ready", "/health/startup"} {
		for _, tt := range tests {
			t.Run(path+" "+tt.name, func(t *testing.T) {
				srv := newTestServer(t, &mockAppService{}, withHealthChecks(tt.checks...))

				rec := serve(srv, http.MethodGet, path, "")

				assert.Equal(t, tt.wantStatus, rec.Code)
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			})
		}
	}
}

func TestHandleLiveness(t *testing.T) {
	srv := newTestServer(t, &mockAppService{}, withHealthChecks(HealthCheck{Name: "postgres", Check: healthErr("down")}))

	rec := serve(srv, http.MethodGet, "/health/live", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "uptime")
}

func TestHandleVersion(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})

	rec := serve(srv, http.MethodGet, "/version", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	for _, key := range []string{`"version"`, `"commit"`, `"build_time"`, `"go_version"`} {
		assert.Contains(t, rec.Body.String(), key)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(reg)
	srv := newTestServer(t, &mockAppService{}, func(o *Options) {
		o.Registry = reg
		o.HTTPMetrics = httpMetrics
	})

	serve(srv, http.MethodGet, "/", "")
	rec := serve(srv, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `hamcounter_http_requests_total{method="GET",route="/",status_code="200"} 1`)
}
