package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refty/hamcounter/internal/domain"
)

func TestEncode_WrapsPayloadInEnvelope(t *testing.T) {
	at := time.Date(2026, 3, 14, 1, 0, 0, 0, time.UTC)

	frame, err := encode(EventReceiveMessage, domain.Heartbeat(at, 12))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"event": "receiveMessage",
		"data": {"totalCount": 12, "from": "2026-03-14T01:00:00Z", "to": "2026-03-14T01:00:00Z", "speed": 0, "seconds": 0}
	}`, string(frame))
}

func TestDecode_ClientMessage(t *testing.T) {
	env, err := decode([]byte(`{"event":"message","data":{"hello":"ham"}}`))
	require.NoError(t, err)

	assert.Equal(t, EventMessage, env.Event)
	assert.JSONEq(t, `{"hello":"ham"}`, string(env.Data))
}

func TestDecode_RejectsInvalidFrames(t *testing.T) {
	_, err := decode([]byte(`not json`))
	assert.Error(t, err)

	_, err = decode([]byte(`{"data":1}`))
	assert.Error(t, err)
}
