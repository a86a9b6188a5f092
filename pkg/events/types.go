// Package events carries session updates from the processing pipeline to
// subscribers. The in-process hub feeds websocket connections; an optional
// Redis mirror republishes every event for out-of-process consumers.
package events

import (
	"time"

	"github.com/otherjamesbrown/confab/pkg/session"
)

// Type names a session event on the wire. The names are part of the client
// protocol and must not change.
type Type string

const (
	TypeSessionCreated        Type = "session_created"
	TypeTranscriptionUpdate   Type = "transcription_update"
	TypeTranscriptionComplete Type = "transcription_complete"
	TypeSummaryUpdate         Type = "summary_update"
	TypeActionItemsUpdate     Type = "action_items_update"
	TypeSentimentUpdate       Type = "sentiment_update"
	TypeStatusUpdate          Type = "status_update"
	TypeError                 Type = "error"
)

// Event is one session update. Payload is one of the *Payload structs below,
// keyed by Type.
type Event struct {
	Type      Type      `json:"event"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// New builds an event stamped with the current time.
func New(t Type, sessionID string, payload any) Event {
	return Event{
		Type:      t,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// SessionCreatedPayload accompanies TypeSessionCreated.
type SessionCreatedPayload struct {
	Mode session.Mode `json:"mode"`
}

// TranscriptionUpdatePayload carries newly transcribed text. Text is the
// delta since the previous update, never the whole transcript.
type TranscriptionUpdatePayload struct {
	Text    string `json:"text"`
	Speaker string `json:"speaker,omitempty"`
}

// TranscriptionCompletePayload accompanies TypeTranscriptionComplete with
// the final full transcript.
type TranscriptionCompletePayload struct {
	Transcript string `json:"transcript"`
}

// SummaryUpdatePayload accompanies TypeSummaryUpdate.
type SummaryUpdatePayload struct {
	Summary *session.SummaryResult `json:"summary"`
}

// ActionItemsUpdatePayload accompanies TypeActionItemsUpdate.
type ActionItemsUpdatePayload struct {
	ActionItems *session.ActionItemsResult `json:"action_items"`
}

// SentimentUpdatePayload accompanies TypeSentimentUpdate.
type SentimentUpdatePayload struct {
	Sentiment *session.SentimentResult `json:"sentiment"`
}

// StatusUpdatePayload accompanies TypeStatusUpdate.
type StatusUpdatePayload struct {
	Status   session.Status `json:"status"`
	Progress int            `json:"progress"`
}

// ErrorPayload accompanies TypeError.
type ErrorPayload struct {
	Message string `json:"message"`
}
