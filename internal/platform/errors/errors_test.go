package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus_ByType(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{ValidationError("bad"), http.StatusBadRequest},
		{NotFoundError("gone"), http.StatusNotFound},
		{ConflictError("dup"), http.StatusConflict},
		{ThrottledError("slow down"), http.StatusTooManyRequests},
		{ExternalError("line down", nil), http.StatusBadGateway},
		{InternalError("boom", nil), http.StatusInternalServerError},
		{&Error{Type: "mystery"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Type), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
		})
	}
}

func TestError_MessageIncludesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := InternalError("failed to insert run", cause)

	assert.Equal(t, "internal: failed to insert run: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestError_MessageWithoutCause(t *testing.T) {
	assert.Equal(t, "validation: invalid body", ValidationError("invalid body").Error())
}

func TestToResponse_IncludesIssues(t *testing.T) {
	err := ValidationError("invalid run").
		WithIssue("from", "is required").
		WithIssue("speed", "must be greater than or equal to 0")

	body, jsonErr := json.Marshal(err.ToResponse())
	require.NoError(t, jsonErr)

	assert.JSONEq(t, `{
		"error": "invalid run",
		"type": "validation",
		"issues": [
			{"field": "from", "message": "is required"},
			{"field": "speed", "message": "must be greater than or equal to 0"}
		]
	}`, string(body))
}

func TestToResponse_IncludesContext(t *testing.T) {
	resp := NotFoundError("no previous run").WithField("run_id", "abc").ToResponse()
	assert.Equal(t, map[string]any{"run_id": "abc"}, resp.Context)
}

func TestAsStructuredError(t *testing.T) {
	assert.Nil(t, AsStructuredError(nil))

	original := ConflictError("dup")
	wrapped := fmt.Errorf("handler: %w", original)
	assert.Same(t, original, AsStructuredError(wrapped))

	plain := errors.New("raw")
	converted := AsStructuredError(plain)
	assert.Equal(t, TypeInternal, converted.Type)
	assert.ErrorIs(t, converted, plain)
}

func TestIsType(t *testing.T) {
	err := fmt.Errorf("wrap: %w", ValidationError("bad"))
	assert.True(t, IsType(err, TypeValidation))
	assert.False(t, IsType(err, TypeInternal))
	assert.False(t, IsType(errors.New("plain"), TypeValidation))
}
