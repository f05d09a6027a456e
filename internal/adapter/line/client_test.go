package line

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refty/hamcounter/internal/domain"
)

func TestNotify_PostsBroadcastWithBearerToken(t *testing.T) {
	var got broadcastRequest
	var auth, contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "secret-token").Notify(context.Background(), "ham is running")
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-token", auth)
	assert.Equal(t, "application/json", contentType)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "text", got.Messages[0].Type)
	assert.Equal(t, "ham is running", got.Messages[0].Text)
}

func TestNotify_DisabledWithoutToken(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "").Notify(context.Background(), "hello")

	assert.ErrorIs(t, err, domain.ErrAlertsDisabled)
	assert.Zero(t, calls.Load())
}

func TestNotify_RejectedStatusIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Authentication failed"}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "bad").Notify(context.Background(), "hello")

	require.ErrorIs(t, err, domain.ErrAlertRejected)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Authentication failed")
	assert.Equal(t, int32(1), calls.Load())
}

func TestNotify_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "token")
	for range breakerTripAfter {
		assert.ErrorIs(t, client.Notify(context.Background(), "x"), domain.ErrAlertRejected)
	}

	err := client.Notify(context.Background(), "x")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(breakerTripAfter), calls.Load())
}

func TestNotify_HonoursContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewClient(srv.URL, "token").Notify(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}
