package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/refty/hamcounter/internal/adapter/metrics"
	"github.com/refty/hamcounter/internal/app"
	"github.com/refty/hamcounter/internal/domain"
	"github.com/refty/hamcounter/internal/platform/config"
)

type appService interface {
	RecordRun(ctx context.Context, run domain.Run) (domain.Run, error)
	RecordSprint(ctx context.Context, sprint domain.Sprint) (domain.Sprint, error)
	CountRuns(ctx context.Context, from, to time.Time) (int64, error)
	Today(ctx context.Context) (app.DayCount, error)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app              appService
	websocketHandler http.Handler

	httpMetrics  *metrics.HTTPMetrics
	registry     *prometheus.Registry
	healthChecks []HealthCheck
	startTime    time.Time
}

// Options carries the collaborators that are optional in tests.
type Options struct {
	WebsocketHandler http.Handler
	HTTPMetrics      *metrics.HTTPMetrics
	Registry         *prometheus.Registry
	HealthChecks     []HealthCheck
}

func NewServer(cfg *config.Config, app appService, opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()

	srv := &Server{
		echo:             e,
		config:           cfg,
		app:              app,
		websocketHandler: opts.WebsocketHandler,
		httpMetrics:      opts.HTTPMetrics,
		registry:         opts.Registry,
		healthChecks:     opts.HealthChecks,
		startTime:        time.Now(),
	}

	srv.registerRoutes()

	return srv
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
