// Package session provides the in-memory session registry for the confab
// server. A session tracks one meeting processing lifecycle, live or
// uploaded, from first audio to completed analysis.
package session

import "time"

// Mode identifies how audio reaches a session.
type Mode string

const (
	// ModeLive is a microphone stream arriving as chunks over the socket.
	ModeLive Mode = "live"
	// ModeUploaded is a whole-file upload processed in one pass.
	ModeUploaded Mode = "uploaded"
)

// Status represents the session lifecycle state.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusRecording  Status = "recording"
	StatusPaused     Status = "paused"
	StatusStopping   Status = "stopping"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// statusRank orders the forward-only lifecycle. Error is reachable from any
// non-terminal state and is terminal.
var statusRank = map[Status]int{
	StatusIdle:       0,
	StatusRecording:  1,
	StatusPaused:     1, // paused and recording alternate freely
	StatusStopping:   2,
	StatusProcessing: 3,
	StatusCompleted:  4,
}

// CanTransition reports whether moving from one status to another respects
// the forward-only lifecycle. recording and paused may alternate; error is
// reachable from every state except completed and error themselves.
func CanTransition(from, to Status) bool {
	if from == to {
		return false
	}
	if to == StatusError {
		return from != StatusCompleted && from != StatusError
	}
	if from == StatusError || from == StatusCompleted {
		return false
	}
	if (from == StatusRecording && to == StatusPaused) ||
		(from == StatusPaused && to == StatusRecording) {
		return true
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// Terminal reports whether a status permits no further transitions other
// than none at all.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// SummaryResult is the summarization facet of a session.
type SummaryResult struct {
	TLDR      string   `json:"tldr"`
	KeyPoints []string `json:"key_points"`
	Topics    []string `json:"topics,omitempty"`
}

// ActionItem is a single extracted task.
type ActionItem struct {
	Task     string `json:"task"`
	Assignee string `json:"assignee,omitempty"`
	Deadline string `json:"deadline,omitempty"`
}

// ActionItemsResult is the action-item facet of a session. Note carries the
// "no action items" marker when the extraction found nothing.
type ActionItemsResult struct {
	Items []ActionItem `json:"items"`
	Note  string       `json:"note,omitempty"`
}

// SentimentPoint is one entry on the sentiment timeline. Segment labels the
// slice of transcript the score applies to ("overall" or "segment_N").
type SentimentPoint struct {
	Segment string  `json:"segment"`
	Text    string  `json:"text,omitempty"`
	Score   float64 `json:"score"`
}

// SentimentResult is the sentiment facet of a session.
type SentimentResult struct {
	Sentiments []SentimentPoint `json:"sentiments"`
}

// Session is the mutable per-meeting state. All fields are guarded by the
// store: they must only be touched inside a Store.Update mutator or before
// the session is registered.
type Session struct {
	ID       string
	Mode     Mode
	Status   Status
	Filename string
	FilePath string

	// Transcript is append-only; it is never rewritten or truncated.
	Transcript string

	// EmittedOffset is the length of the transcript prefix already pushed
	// to subscribers. Deltas are Transcript[EmittedOffset:].
	EmittedOffset int

	Summary     *SummaryResult
	ActionItems *ActionItemsResult
	Sentiment   *SentimentResult

	// ErrMsg holds the human-readable failure message when Status is error.
	ErrMsg string

	// Progress is a coarse 0-100 indicator surfaced on status updates.
	Progress int

	CreatedAt    time.Time
	LastActivity time.Time

	// PendingAudio buffers raw chunk bytes awaiting the next transcription
	// call. Consumed whole by the pump.
	PendingAudio []byte

	// Format is the declared encoding of live audio chunks.
	Format string

	// Transcribing is true while a transcription call is in flight for this
	// session. At most one call runs per session at any instant.
	Transcribing bool

	// seenChunks de-duplicates exact repeat chunk payloads by digest.
	seenChunks map[[32]byte]struct{}
}

// MarkChunkSeen records a chunk digest, reporting false if the exact payload
// was already ingested for this session.
func (s *Session) MarkChunkSeen(digest [32]byte) bool {
	if s.seenChunks == nil {
		s.seenChunks = make(map[[32]byte]struct{})
	}
	if _, dup := s.seenChunks[digest]; dup {
		return false
	}
	s.seenChunks[digest] = struct{}{}
	return true
}

// AppendTranscript appends text to the transcript, separating from existing
// content with a single space. Empty text is a no-op.
func (s *Session) AppendTranscript(text string) {
	if text == "" {
		return
	}
	if s.Transcript != "" {
		s.Transcript += " "
	}
	s.Transcript += text
}

// Snapshot is the full current state of a session's results. Both the push
// and pull channels read the same snapshot, so they can never diverge.
type Snapshot struct {
	ID          string             `json:"session_id"`
	Mode        Mode               `json:"mode"`
	Status      Status             `json:"status"`
	Filename    string             `json:"filename,omitempty"`
	Transcript  string             `json:"transcript"`
	Summary     *SummaryResult     `json:"summary,omitempty"`
	ActionItems *ActionItemsResult `json:"action_items,omitempty"`
	Sentiment   *SentimentResult   `json:"sentiment,omitempty"`
	Error       string             `json:"error,omitempty"`
	Progress    int                `json:"progress"`
	CreatedAt   time.Time          `json:"created_at"`
}

// SessionInfo is the listing row for session discovery by filename.
type SessionInfo struct {
	ID       string `json:"id"`
	Filename string `json:"filename,omitempty"`
	Status   Status `json:"status"`
}

// snapshot captures the session under the caller's lock.
func (s *Session) snapshot() Snapshot {
	return Snapshot{
		ID:          s.ID,
		Mode:        s.Mode,
		Status:      s.Status,
		Filename:    s.Filename,
		Transcript:  s.Transcript,
		Summary:     s.Summary,
		ActionItems: s.ActionItems,
		Sentiment:   s.Sentiment,
		Error:       s.ErrMsg,
		Progress:    s.Progress,
		CreatedAt:   s.CreatedAt,
	}
}
