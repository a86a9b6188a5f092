// Package transcribe defines the speech-to-text collaborator interface and
// its implementations. Transcription itself is delegated: the server ships
// audio out and gets text back.
package transcribe

import "context"

// Result is the output of one transcription call.
type Result struct {
	// Text is the recognized speech. Empty for silence.
	Text string `json:"text"`

	// Speaker is an optional speaker label when the collaborator provides
	// one. Diarization is not performed locally.
	Speaker string `json:"speaker,omitempty"`

	// Confidence is the collaborator's confidence in [0,1], when reported.
	Confidence float64 `json:"confidence,omitempty"`

	// DurationSeconds is the length of the decoded audio, when reported.
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// Transcriber converts audio to text. Calls may block on network I/O; both
// methods honor ctx cancellation. The coordinator guarantees at most one
// call per session at a time.
type Transcriber interface {
	// TranscribeFile transcribes a stored audio file in one pass.
	TranscribeFile(ctx context.Context, path string) (*Result, error)

	// TranscribeChunk transcribes a raw audio segment with its declared
	// encoding (e.g. "webm", "wav").
	TranscribeChunk(ctx context.Context, audio []byte, format string) (*Result, error)
}
