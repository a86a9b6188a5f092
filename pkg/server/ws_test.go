package server

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/confab/pkg/events"
	"github.com/otherjamesbrown/confab/pkg/session"
)

// wireEvent mirrors the server->client envelope for decoding in tests.
type wireEvent struct {
	Event     events.Type     `json:"event"`
	SessionID string          `json:"session_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func dialWS(t *testing.T, f *fixture) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendWS(t *testing.T, conn *websocket.Conn, msg any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

// readUntil reads events until one of the wanted type arrives. Other event
// types are expected on the socket and skipped.
func readUntil(t *testing.T, conn *websocket.Conn, want events.Type) wireEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var ev wireEvent
		require.NoError(t, conn.ReadJSON(&ev), "waiting for %s", want)
		if ev.Event == want {
			require.NoError(t, conn.SetReadDeadline(time.Time{}))
			return ev
		}
	}
}

func TestWebsocketLiveLifecycle(t *testing.T) {
	f := newTestServer(t, "we will ship on Friday")
	conn := dialWS(t, f)

	sendWS(t, conn, map[string]string{"event": "start_stream"})
	created := readUntil(t, conn, events.TypeSessionCreated)
	require.NotEmpty(t, created.SessionID)
	id := created.SessionID

	audio := base64.StdEncoding.EncodeToString([]byte("chunk-bytes"))
	sendWS(t, conn, map[string]string{"event": "audio_chunk", "audio": audio, "format": "webm"})

	update := readUntil(t, conn, events.TypeTranscriptionUpdate)
	var updatePayload events.TranscriptionUpdatePayload
	require.NoError(t, json.Unmarshal(update.Payload, &updatePayload))
	assert.Equal(t, "we will ship on Friday", updatePayload.Text)

	sendWS(t, conn, map[string]string{"event": "stop_stream"})
	readUntil(t, conn, events.TypeTranscriptionComplete)
	readUntil(t, conn, events.TypeSummaryUpdate)
	readUntil(t, conn, events.TypeActionItemsUpdate)
	readUntil(t, conn, events.TypeSentimentUpdate)

	snap := waitCompleted(t, f.store, id)
	assert.Equal(t, session.StatusCompleted, snap.Status)
}

func TestWebsocketStartStreamIdempotent(t *testing.T) {
	f := newTestServer(t, "words")
	conn := dialWS(t, f)

	sendWS(t, conn, map[string]string{"event": "start_stream"})
	first := readUntil(t, conn, events.TypeSessionCreated)

	sendWS(t, conn, map[string]string{"event": "start_stream"})
	second := readUntil(t, conn, events.TypeSessionCreated)

	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, 1, f.store.Len())
}

func TestWebsocketMalformedMessageKeepsConnection(t *testing.T) {
	f := newTestServer(t, "words")
	conn := dialWS(t, f)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	ev := readUntil(t, conn, events.TypeError)
	assert.NotEmpty(t, ev.Payload)

	// the connection survives and still accepts signals
	sendWS(t, conn, map[string]string{"event": "start_stream"})
	created := readUntil(t, conn, events.TypeSessionCreated)
	assert.NotEmpty(t, created.SessionID)
}

func TestWebsocketUnknownEvent(t *testing.T) {
	f := newTestServer(t, "words")
	conn := dialWS(t, f)

	sendWS(t, conn, map[string]string{"event": "self_destruct"})
	readUntil(t, conn, events.TypeError)
}

func TestWebsocketRequestCurrentTranscript(t *testing.T) {
	f := newTestServer(t, "words")
	conn := dialWS(t, f)

	id := f.store.Create(session.ModeLive).ID
	require.NoError(t, f.store.Update(id, func(s *session.Session) error {
		s.AppendTranscript("the story so far")
		return nil
	}))

	sendWS(t, conn, map[string]string{"event": "request_current_transcript", "session_id": id})
	ev := readUntil(t, conn, events.TypeTranscriptionUpdate)

	var payload events.TranscriptionUpdatePayload
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, "the story so far", payload.Text)
}

func TestWebsocketInvalidStateSignal(t *testing.T) {
	f := newTestServer(t, "words")
	conn := dialWS(t, f)

	// pausing with no session attached is rejected but not fatal
	sendWS(t, conn, map[string]string{"event": "pause_stream"})
	readUntil(t, conn, events.TypeError)
}
