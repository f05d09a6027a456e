package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/refty/hamcounter/internal/domain"
	apperrors "github.com/refty/hamcounter/internal/platform/errors"
)

// Pointers let "required" tell a missing field from a zero value.
type runRequest struct {
	From    *time.Time `json:"from" validate:"required"`
	To      *time.Time `json:"to" validate:"required"`
	Seconds *float64   `json:"seconds" validate:"required,gte=0"`
	Speed   *float64   `json:"speed" validate:"required,gte=0"`
}

func (r runRequest) toRun() domain.Run {
	return domain.Run{From: *r.From, To: *r.To, Seconds: *r.Seconds, Speed: *r.Speed}
}

type sprintRequest struct {
	From         *time.Time `json:"from" validate:"required"`
	To           *time.Time `json:"to" validate:"required"`
	Count        *int       `json:"count" validate:"required,gte=0"`
	AverageSpeed *float64   `json:"averageSpeed" validate:"required,gte=0"`
}

func (r sprintRequest) toSprint() domain.Sprint {
	return domain.Sprint{From: *r.From, To: *r.To, Count: *r.Count, AverageSpeed: *r.AverageSpeed}
}

type countResponse struct {
	Count int64 `json:"count"`
}

func (s *Server) handleCreateRun(c echo.Context) error {
	var req runRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.To.Before(*req.From) {
		return rangeError()
	}

	run, err := s.app.RecordRun(c.Request().Context(), req.toRun())
	if err != nil {
		return storeError("failed to record run", err)
	}
	return c.JSON(http.StatusCreated, run)
}

func (s *Server) handleCreateSprint(c echo.Context) error {
	var req sprintRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.To.Before(*req.From) {
		return rangeError()
	}

	sprint, err := s.app.RecordSprint(c.Request().Context(), req.toSprint())
	if err != nil {
		return storeError("failed to record sprint", err)
	}
	return c.JSON(http.StatusCreated, sprint)
}

func (s *Server) handleCountRuns(c echo.Context) error {
	verr := apperrors.ValidationError("invalid query")
	from, err := parseDate(c.QueryParam("from"))
	if err != nil {
		verr.WithIssue("from", err.Error())
	}
	to, err := parseDate(c.QueryParam("to"))
	if err != nil {
		verr.WithIssue("to", err.Error())
	}
	if len(verr.Issues) > 0 {
		return verr
	}

	count, err := s.app.CountRuns(c.Request().Context(), from, to)
	if err != nil {
		return storeError("failed to count runs", err)
	}
	return c.JSON(http.StatusOK, countResponse{Count: count})
}

func (s *Server) handleToday(c echo.Context) error {
	today, err := s.app.Today(c.Request().Context())
	if err != nil {
		return storeError("failed to count today's runs", err)
	}
	return c.JSON(http.StatusOK, today)
}

func bindAndValidate(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return WrapHTTPError(httpErr)
		}
		return apperrors.ValidationError("invalid request body").WithCause(err)
	}
	return c.Validate(dst)
}

func rangeError() error {
	return apperrors.ValidationError("invalid request body").WithIssue("to", "must not be before from")
}

func storeError(message string, err error) error {
	if errors.Is(err, domain.ErrInvalidRange) {
		return apperrors.ValidationError(message).WithIssue("to", "must not be before from")
	}
	return apperrors.InternalError(message, err)
}

// parseDate accepts RFC 3339 timestamps and YYYY-MM-DD, read as UTC midnight.
func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("is required")
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("must be an RFC 3339 timestamp or YYYY-MM-DD, got %q", raw)
}
