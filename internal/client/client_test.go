package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refty/hamcounter/internal/domain"
	"github.com/refty/hamcounter/internal/platform/retry"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, WithRetry(retry.Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		Clock:          clockwork.NewRealClock(),
	}))
	require.NoError(t, err)
	return c
}

func TestNew_RejectsInvalidURL(t *testing.T) {
	_, err := New("localhost:8000")
	assert.Error(t, err)
}

func TestCreateRun(t *testing.T) {
	from := time.Date(2026, 3, 14, 1, 0, 0, 0, time.UTC)
	id := uuid.New()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/run", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2026-03-14T01:00:00Z", body["from"])
		assert.Equal(t, 18.0, body["speed"])

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": id, "from": body["from"], "to": body["to"], "seconds": body["seconds"], "speed": body["speed"],
		})
	})

	stored, err := c.CreateRun(context.Background(), domain.Run{From: from, To: from.Add(200 * time.Millisecond), Seconds: 0.2, Speed: 18})
	require.NoError(t, err)
	assert.Equal(t, id, stored.ID)
	assert.Equal(t, 18.0, stored.Speed)
}

func TestCreateRun_ValidationErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid request body","type":"validation","issues":[{"field":"speed","message":"is required"}]}`))
	})

	err := c.SubmitRun(context.Background(), domain.Run{})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "speed is required")
	assert.Equal(t, int32(1), calls.Load())
}

func TestCreateSprint_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "/sprint", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"count":12,"averageSpeed":4}`))
	})

	err := c.SubmitSprint(context.Background(), domain.Sprint{Count: 12, AverageSpeed: 4})

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCountRuns(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/run", r.URL.Path)
		assert.Equal(t, "2026-03-13T15:00:00Z", r.URL.Query().Get("from"))
		assert.Equal(t, "2026-03-14T15:00:00Z", r.URL.Query().Get("to"))
		_, _ = w.Write([]byte(`{"count":31}`))
	})

	tokyo := time.FixedZone("JST", 9*60*60)
	count, err := c.CountRuns(context.Background(),
		time.Date(2026, 3, 14, 0, 0, 0, 0, tokyo),
		time.Date(2026, 3, 15, 0, 0, 0, 0, tokyo))

	require.NoError(t, err)
	assert.Equal(t, int64(31), count)
}

func TestToday(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/run/today", r.URL.Path)
		_, _ = w.Write([]byte(`{"count":5,"from":"2026-03-13T15:00:00Z","to":"2026-03-14T15:00:00Z"}`))
	})

	today, err := c.Today(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(5), today.Count)
	assert.Equal(t, time.Date(2026, 3, 13, 15, 0, 0, 0, time.UTC), today.From)
}

func TestWatch_DeliversAggregatesUntilClose(t *testing.T) {
	upgrader := ws.Upgrader{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer func() { _ = conn.Close() }()

		_ = conn.WriteMessage(ws.TextMessage, []byte(`{"event":"receiveMessage","data":{"totalCount":1,"speed":12}}`))
		_ = conn.WriteMessage(ws.TextMessage, []byte(`{"event":"other","data":{}}`))
		_ = conn.WriteMessage(ws.TextMessage, []byte(`{"event":"receiveMessage","data":{"totalCount":2,"speed":0}}`))
		_ = conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, "bye"))
	})

	var got []domain.Running
	err := c.Watch(context.Background(), func(r domain.Running) { got = append(got, r) })

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].TotalCount)
	assert.Equal(t, 12.0, got[0].Speed)
	assert.Equal(t, int64(2), got[1].TotalCount)
}

func TestWatch_StopsOnCancel(t *testing.T) {
	upgrader := ws.Upgrader{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		_, _, _ = conn.ReadMessage()
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	err := c.Watch(ctx, func(domain.Running) {})
	assert.ErrorIs(t, err, context.Canceled)
}
