package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	cferrors "github.com/otherjamesbrown/confab/pkg/errors"
	"github.com/otherjamesbrown/confab/pkg/events"
	"github.com/otherjamesbrown/confab/pkg/logging"
	"github.com/otherjamesbrown/confab/pkg/session"
)

// upgrader accepts any origin: the socket carries no credentials and the
// browser client may be served from anywhere.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4 << 10,
	WriteBufferSize: 4 << 10,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// clientMessage is the envelope for everything a client sends on the socket.
type clientMessage struct {
	Event     string `json:"event"`
	SessionID string `json:"session_id,omitempty"`
	Audio     string `json:"audio,omitempty"` // base64
	Format    string `json:"format,omitempty"`
}

// wsClient is one socket connection. A connection drives at most one
// session; writes are serialized by mu because the hub pump and the signal
// replies share the connection.
type wsClient struct {
	conn   *websocket.Conn
	server *Server
	logger logging.Logger

	mu        sync.Mutex
	sessionID string
	sub       *events.Subscription
	done      chan struct{}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", logging.Err(err))
		return
	}

	client := &wsClient{
		conn:   conn,
		server: s,
		logger: s.logger.With(logging.F("remote", conn.RemoteAddr().String())),
		done:   make(chan struct{}),
	}
	client.readLoop(r)
}

// readLoop consumes client events until the connection drops. Malformed
// payloads and rejected signals are answered with an error event and the
// connection stays open.
func (c *wsClient) readLoop(r *http.Request) {
	defer c.teardown()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.protocolError(fmt.Errorf("%w: malformed message: %v", cferrors.ErrProtocol, err))
			continue
		}

		if err := c.dispatch(r, msg); err != nil {
			if cferrors.IsProtocol(err) {
				c.protocolError(err)
			} else {
				c.sendError(err.Error())
			}
		}
	}
}

func (c *wsClient) dispatch(r *http.Request, msg clientMessage) error {
	ctx := r.Context()

	switch msg.Event {
	case "start_stream":
		return c.startStream(ctx, msg.SessionID)

	case "pause_stream":
		return c.server.coord.PauseStream(ctx, c.currentSession(msg))

	case "resume_stream":
		return c.server.coord.ResumeStream(ctx, c.currentSession(msg))

	case "audio_chunk":
		if msg.Audio == "" {
			return fmt.Errorf("%w: audio_chunk without audio", cferrors.ErrProtocol)
		}
		payload, err := base64.StdEncoding.DecodeString(msg.Audio)
		if err != nil {
			return fmt.Errorf("%w: audio is not valid base64", cferrors.ErrProtocol)
		}
		return c.server.coord.AudioChunk(ctx, c.currentSession(msg), payload, msg.Format)

	case "stop_stream":
		return c.server.coord.StopStream(ctx, c.currentSession(msg))

	case "process_file":
		if msg.SessionID == "" {
			return fmt.Errorf("%w: process_file without session_id", cferrors.ErrProtocol)
		}
		c.attach(msg.SessionID)
		return c.server.coord.ProcessFile(ctx, msg.SessionID)

	case "request_current_transcript":
		text, err := c.server.coord.Transcript(c.currentSession(msg))
		if err != nil {
			return err
		}
		// the reply carries the whole transcript, not a delta
		c.send(events.New(events.TypeTranscriptionUpdate, c.currentSession(msg),
			events.TranscriptionUpdatePayload{Text: text}))
		return nil

	default:
		return fmt.Errorf("%w: unknown event %q", cferrors.ErrProtocol, msg.Event)
	}
}

// startStream begins (or re-attaches) this connection's session. Repeats
// are idempotent: the existing session id is confirmed again.
func (c *wsClient) startStream(ctx context.Context, requested string) error {
	c.mu.Lock()
	existing := c.sessionID
	c.mu.Unlock()
	if existing == "" {
		existing = requested
	}

	id, err := c.server.coord.StartStream(ctx, existing)
	if err != nil {
		return err
	}
	c.attach(id)

	c.send(events.New(events.TypeSessionCreated, id,
		events.SessionCreatedPayload{Mode: session.ModeLive}))
	return nil
}

// attach binds the connection to a session and starts forwarding that
// session's events. Attaching the same session twice is a no-op.
func (c *wsClient) attach(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionID == id {
		return
	}
	if c.sub != nil {
		c.sub.Close()
	}
	c.sessionID = id
	c.sub = c.server.hub.Subscribe(id)

	go c.forward(c.sub)
}

// forward pumps hub events for the attached session onto the socket.
func (c *wsClient) forward(sub *events.Subscription) {
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			c.send(ev)
		case <-c.done:
			return
		}
	}
}

// currentSession prefers an explicit session id in the message over the
// connection's attached session.
func (c *wsClient) currentSession(msg clientMessage) string {
	if msg.SessionID != "" {
		return msg.SessionID
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *wsClient) send(ev events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(ev); err != nil {
		c.logger.Debug("websocket write failed", logging.Err(err))
	}
}

// protocolError logs and answers a malformed message without closing the
// connection.
func (c *wsClient) protocolError(err error) {
	c.logger.Warn("websocket protocol error", logging.Err(err))
	c.sendError(err.Error())
}

func (c *wsClient) sendError(message string) {
	c.mu.Lock()
	id := c.sessionID
	c.mu.Unlock()
	c.send(events.New(events.TypeError, id, events.ErrorPayload{Message: message}))
}

func (c *wsClient) teardown() {
	close(c.done)
	c.mu.Lock()
	if c.sub != nil {
		c.sub.Close()
		c.sub = nil
	}
	c.mu.Unlock()
	_ = c.conn.Close()
}
