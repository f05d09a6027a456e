package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/refty/hamcounter/internal/app"
	"github.com/refty/hamcounter/internal/domain"
	"github.com/refty/hamcounter/internal/platform/config"
)

type mockAppService struct {
	recordRunFn    func(ctx context.Context, run domain.Run) (domain.Run, error)
	recordSprintFn func(ctx context.Context, sprint domain.Sprint) (domain.Sprint, error)
	countRunsFn    func(ctx context.Context, from, to time.Time) (int64, error)
	todayFn        func(ctx context.Context) (app.DayCount, error)
}

func (m *mockAppService) RecordRun(ctx context.Context, run domain.Run) (domain.Run, error) {
	if m.recordRunFn != nil {
		return m.recordRunFn(ctx, run)
	}
	run.ID = uuid.New()
	return run, nil
}

func (m *mockAppService) RecordSprint(ctx context.Context, sprint domain.Sprint) (domain.Sprint, error) {
	if m.recordSprintFn != nil {
		return m.recordSprintFn(ctx, sprint)
	}
	sprint.ID = uuid.New()
	return sprint, nil
}

func (m *mockAppService) CountRuns(ctx context.Context, from, to time.Time) (int64, error) {
	if m.countRunsFn != nil {
		return m.countRunsFn(ctx, from, to)
	}
	return 0, errors.New("not implemented")
}

func (m *mockAppService) Today(ctx context.Context) (app.DayCount, error) {
	if m.todayFn != nil {
		return m.todayFn(ctx)
	}
	return app.DayCount{}, errors.New("not implemented")
}

// --- Test helpers ---

func testConfig() *config.Config {
	return &config.Config{
		Port:           "0",
		AllowedOrigins: "*",
		PostRateLimit:  1000,
		PostRateBurst:  1000,
	}
}

func newTestServer(t *testing.T, svc appService, opts ...func(*Options)) *Server {
	t.Helper()
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return NewServer(testConfig(), svc, o)
}

func withHealthChecks(checks ...HealthCheck) func(*Options) {
	return func(o *Options) {
		o.HealthChecks = checks
	}
}

// serve sends a request through the full router.
func serve(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}
