// Package coordinator drives the per-session lifecycle: streaming signals,
// the serialized transcription pump, and the hand-off into analysis. All
// state lives in the session store; the coordinator only decides what
// happens next and never holds a session lock across a collaborator call.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/otherjamesbrown/confab/pkg/analysis"
	cferrors "github.com/otherjamesbrown/confab/pkg/errors"
	"github.com/otherjamesbrown/confab/pkg/events"
	"github.com/otherjamesbrown/confab/pkg/ingest"
	"github.com/otherjamesbrown/confab/pkg/logging"
	"github.com/otherjamesbrown/confab/pkg/observability"
	"github.com/otherjamesbrown/confab/pkg/session"
	"github.com/otherjamesbrown/confab/pkg/transcribe"
)

// Progress checkpoints for the transcription half of the pipeline. The
// analysis dispatcher carries progress from 50 up; completion sets 100.
const (
	progressTranscribing = 10
	progressTranscribed  = 40
	progressAnalyzing    = 50
	progressComplete     = 100
)

// Coordinator owns signal handling for every session. One instance serves
// all sessions; per-session ordering comes from the store's locks and the
// single-flight pump, not from the coordinator itself.
type Coordinator struct {
	store       *session.Store
	transcriber transcribe.Transcriber
	dispatcher  *analysis.Dispatcher
	hub         *events.Hub

	logger  logging.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer

	// baseCtx bounds all background work; cancelled on shutdown.
	baseCtx context.Context

	// wg tracks background goroutines so shutdown can drain them.
	wg sync.WaitGroup
}

// New wires a coordinator. ctx bounds all background transcription and
// analysis work; cancel it to stop accepting new background work on
// shutdown.
func New(ctx context.Context, store *session.Store, tr transcribe.Transcriber,
	d *analysis.Dispatcher, hub *events.Hub, logger logging.Logger,
	metrics *observability.Metrics) *Coordinator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Coordinator{
		store:       store,
		transcriber: tr,
		dispatcher:  d,
		hub:         hub,
		logger:      logger.With(logging.F("component", "coordinator")),
		metrics:     metrics,
		tracer:      observability.NewTracer(),
		baseCtx:     ctx,
	}
}

// Wait blocks until all background transcription and analysis goroutines
// have drained. Call after cancelling the constructor context.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// StartStream begins a live session. When existingID names a known session
// the call is idempotent and returns that id unchanged; otherwise a new
// live session is created and moved to recording.
func (c *Coordinator) StartStream(ctx context.Context, existingID string) (string, error) {
	_, span := c.tracer.StartSignalSpan(ctx, existingID, "start_stream")
	defer span.End()

	if existingID != "" {
		if _, err := c.store.Snapshot(existingID); err == nil {
			return existingID, nil
		}
	}

	s := c.store.Create(session.ModeLive)
	if c.metrics != nil {
		c.metrics.SessionsTotal.WithLabelValues(string(session.ModeLive)).Inc()
	}

	err := c.store.Update(s.ID, func(s *session.Session) error {
		return c.transition(s, session.StatusRecording)
	})
	if err != nil {
		return "", err
	}

	c.hub.Publish(events.New(events.TypeSessionCreated, s.ID,
		events.SessionCreatedPayload{Mode: session.ModeLive}))
	c.publishStatus(s.ID)
	return s.ID, nil
}

// PauseStream halts chunk-triggered transcription. Buffered audio is kept;
// an in-flight transcription call is not aborted.
func (c *Coordinator) PauseStream(ctx context.Context, id string) error {
	_, span := c.tracer.StartSignalSpan(ctx, id, "pause_stream")
	defer span.End()

	err := c.store.Update(id, func(s *session.Session) error {
		return c.transition(s, session.StatusPaused)
	})
	if err != nil {
		return err
	}
	c.publishStatus(id)
	return nil
}

// ResumeStream restores chunk-triggered transcription after a pause and
// kicks the pump in case audio accumulated while paused.
func (c *Coordinator) ResumeStream(ctx context.Context, id string) error {
	_, span := c.tracer.StartSignalSpan(ctx, id, "resume_stream")
	defer span.End()

	err := c.store.Update(id, func(s *session.Session) error {
		return c.transition(s, session.StatusRecording)
	})
	if err != nil {
		return err
	}
	c.publishStatus(id)
	c.schedule(id)
	return nil
}

// AudioChunk ingests one live audio chunk. In recording it schedules
// incremental transcription; in paused it only buffers. Exact duplicate
// payloads are suppressed. Intake never waits on a transcription call.
func (c *Coordinator) AudioChunk(ctx context.Context, id string, payload []byte, format string) error {
	_, span := c.tracer.StartSignalSpan(ctx, id, "audio_chunk")
	defer span.End()

	var status session.Status
	err := c.store.Update(id, func(s *session.Session) error {
		if s.Status != session.StatusRecording && s.Status != session.StatusPaused {
			return fmt.Errorf("%w: audio_chunk in %s", cferrors.ErrInvalidState, s.Status)
		}
		if format != "" {
			s.Format = format
		}
		status = s.Status
		return nil
	})
	if err != nil {
		return err
	}

	fresh, err := ingest.BufferChunk(c.store, id, payload)
	if err != nil {
		return err
	}
	if c.metrics != nil {
		outcome := "duplicate"
		if fresh {
			outcome = "fresh"
		}
		c.metrics.ChunksIngestedTotal.WithLabelValues(outcome).Inc()
	}

	if fresh && status == session.StatusRecording {
		c.schedule(id)
	}
	return nil
}

// StopStream ends a live session: one final flush of buffered audio, then
// analysis, then completed. Returns as soon as the session is stopping;
// the rest happens in the background.
func (c *Coordinator) StopStream(ctx context.Context, id string) error {
	_, span := c.tracer.StartSignalSpan(ctx, id, "stop_stream")
	defer span.End()

	err := c.store.Update(id, func(s *session.Session) error {
		return c.transition(s, session.StatusStopping)
	})
	if err != nil {
		return err
	}
	c.publishStatus(id)

	// Flush whatever is buffered; when the pump goes quiet finalize runs.
	if !c.schedule(id) {
		c.maybeFinalize(id)
	}
	return nil
}

// ProcessFile transcribes an uploaded session's file in one pass, then runs
// analysis. The session moves straight to processing and never visits
// recording. Returns immediately; work continues in the background.
func (c *Coordinator) ProcessFile(ctx context.Context, id string) error {
	_, span := c.tracer.StartSignalSpan(ctx, id, "process_file")
	defer span.End()

	var path string
	err := c.store.Update(id, func(s *session.Session) error {
		if s.Mode != session.ModeUploaded {
			return fmt.Errorf("%w: process_file on a %s session", cferrors.ErrInvalidState, s.Mode)
		}
		if s.FilePath == "" {
			return fmt.Errorf("%w: session has no stored file", cferrors.ErrInvalidState)
		}
		if err := c.transition(s, session.StatusProcessing); err != nil {
			return err
		}
		s.Progress = progressTranscribing
		s.Transcribing = true
		path = s.FilePath
		return nil
	})
	if err != nil {
		return err
	}
	c.publishStatus(id)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.runFileTranscription(id, path)
	}()
	return nil
}

// Transcript is the pure-read signal: the current transcript snapshot.
func (c *Coordinator) Transcript(id string) (string, error) {
	snap, err := c.store.Snapshot(id)
	if err != nil {
		return "", err
	}
	return snap.Transcript, nil
}

// transition applies a status change under the caller's session lock,
// rejecting moves the lifecycle does not allow.
func (c *Coordinator) transition(s *session.Session, to session.Status) error {
	if !session.CanTransition(s.Status, to) {
		return fmt.Errorf("%w: %s -> %s", cferrors.ErrInvalidState, s.Status, to)
	}
	s.Status = to
	return nil
}

// schedule claims the session's single transcription slot and, when there
// is buffered audio to process, starts a pump iteration. Reports whether
// an iteration was started. At most one iteration runs per session.
func (c *Coordinator) schedule(id string) bool {
	var (
		audio  []byte
		format string
	)
	claimed := false
	err := c.store.Update(id, func(s *session.Session) error {
		if s.Transcribing || len(s.PendingAudio) == 0 {
			return nil
		}
		switch s.Status {
		case session.StatusRecording, session.StatusStopping:
		default:
			return nil
		}
		audio = s.PendingAudio
		s.PendingAudio = nil
		format = s.Format
		s.Transcribing = true
		if s.Progress < progressTranscribing {
			s.Progress = progressTranscribing
		}
		claimed = true
		return nil
	})
	if err != nil || !claimed {
		return false
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.runChunkTranscription(id, audio, format)
	}()
	return true
}

// runChunkTranscription is one pump iteration: transcribe the drained
// buffer, merge the text, release the slot, then decide what happens next.
func (c *Coordinator) runChunkTranscription(id string, audio []byte, format string) {
	start := time.Now()
	result, err := c.transcriber.TranscribeChunk(c.baseCtx, audio, format)
	if c.metrics != nil {
		c.metrics.TranscriptionSeconds.WithLabelValues("chunk").Observe(time.Since(start).Seconds())
	}

	if err != nil {
		c.releaseSlot(id)
		c.failSession(id, err)
		return
	}

	delta := c.mergeTranscript(id, result)
	c.releaseSlot(id)
	if delta != "" {
		c.hub.Publish(events.New(events.TypeTranscriptionUpdate, id,
			events.TranscriptionUpdatePayload{Text: delta, Speaker: result.Speaker}))
	}

	// More audio may have arrived mid-call; go again or finalize a stop.
	if !c.schedule(id) {
		c.maybeFinalize(id)
	}
}

// runFileTranscription handles the uploaded-file path end to end.
func (c *Coordinator) runFileTranscription(id, path string) {
	start := time.Now()
	result, err := c.transcriber.TranscribeFile(c.baseCtx, path)
	if c.metrics != nil {
		c.metrics.TranscriptionSeconds.WithLabelValues("file").Observe(time.Since(start).Seconds())
	}

	if err != nil {
		c.releaseSlot(id)
		c.failSession(id, err)
		return
	}

	delta := c.mergeTranscript(id, result)
	c.releaseSlot(id)
	if delta != "" {
		c.hub.Publish(events.New(events.TypeTranscriptionUpdate, id,
			events.TranscriptionUpdatePayload{Text: delta, Speaker: result.Speaker}))
	}
	c.analyze(id)
}

// mergeTranscript appends the transcription result and advances the
// emitted-offset cursor, returning the delta to push. The cursor only
// moves forward, so every character is emitted exactly once on this path.
func (c *Coordinator) mergeTranscript(id string, result *transcribe.Result) string {
	var delta string
	err := c.store.Update(id, func(s *session.Session) error {
		s.AppendTranscript(result.Text)
		if s.EmittedOffset < len(s.Transcript) {
			delta = s.Transcript[s.EmittedOffset:]
			s.EmittedOffset = len(s.Transcript)
		}
		if s.Progress < progressTranscribed {
			s.Progress = progressTranscribed
		}
		return nil
	})
	if err != nil {
		return ""
	}
	return delta
}

// releaseSlot frees the single-flight transcription slot.
func (c *Coordinator) releaseSlot(id string) {
	_ = c.store.Update(id, func(s *session.Session) error {
		s.Transcribing = false
		return nil
	})
}

// maybeFinalize moves a stopping session with a quiet pump into analysis.
// The stopping -> processing transition is the atomic claim: concurrent
// callers race on it and exactly one proceeds.
func (c *Coordinator) maybeFinalize(id string) {
	claimed := false
	err := c.store.Update(id, func(s *session.Session) error {
		if s.Status != session.StatusStopping || s.Transcribing || len(s.PendingAudio) > 0 {
			return nil
		}
		if err := c.transition(s, session.StatusProcessing); err != nil {
			return err
		}
		claimed = true
		return nil
	})
	if err != nil || !claimed {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.analyze(id)
	}()
}

// analyze runs the three-facet dispatch over the final transcript and
// completes the session. Facet failures degrade to missing facets; only a
// vanished session aborts completion.
func (c *Coordinator) analyze(id string) {
	var transcript string
	err := c.store.Update(id, func(s *session.Session) error {
		if s.Progress < progressAnalyzing {
			s.Progress = progressAnalyzing
		}
		transcript = s.Transcript
		return nil
	})
	if err != nil {
		return
	}

	c.hub.Publish(events.New(events.TypeTranscriptionComplete, id,
		events.TranscriptionCompletePayload{Transcript: transcript}))
	c.publishStatus(id)

	if err := c.dispatcher.Dispatch(c.baseCtx, id, transcript); err != nil {
		if cferrors.IsSessionNotFound(err) {
			return
		}
		c.logger.Warn("analysis finished with no usable facets",
			logging.F("session_id", id), logging.Err(err))
	}

	err = c.store.Update(id, func(s *session.Session) error {
		if err := c.transition(s, session.StatusCompleted); err != nil {
			return err
		}
		s.Progress = progressComplete
		return nil
	})
	if err != nil {
		c.logger.Warn("session did not reach completed",
			logging.F("session_id", id), logging.Err(err))
		return
	}
	c.publishStatus(id)
}

// NotifyFacet builds the dispatcher callback that turns a merged facet
// into its update event. Wire it into analysis.NewDispatcher so facet
// results reach subscribers the moment they land.
func NotifyFacet(store *session.Store, hub *events.Hub) analysis.FacetNotifier {
	return func(sessionID string, facet cferrors.Facet) {
		snap, err := store.Snapshot(sessionID)
		if err != nil {
			return
		}
		switch facet {
		case cferrors.FacetSummary:
			hub.Publish(events.New(events.TypeSummaryUpdate, sessionID,
				events.SummaryUpdatePayload{Summary: snap.Summary}))
		case cferrors.FacetActionItems:
			hub.Publish(events.New(events.TypeActionItemsUpdate, sessionID,
				events.ActionItemsUpdatePayload{ActionItems: snap.ActionItems}))
		case cferrors.FacetSentiment:
			hub.Publish(events.New(events.TypeSentimentUpdate, sessionID,
				events.SentimentUpdatePayload{Sentiment: snap.Sentiment}))
		}
	}
}

// failSession marks the session failed with a readable message. Partial
// transcript stays readable; no further automatic transcription runs.
func (c *Coordinator) failSession(id string, cause error) {
	if c.metrics != nil {
		c.metrics.TranscriptionErrorsTotal.Inc()
	}
	err := c.store.Update(id, func(s *session.Session) error {
		if err := c.transition(s, session.StatusError); err != nil {
			return err
		}
		s.ErrMsg = cause.Error()
		return nil
	})
	if err != nil {
		return
	}
	c.logger.Error("session failed", logging.F("session_id", id), logging.Err(cause))
	c.hub.Publish(events.New(events.TypeError, id, events.ErrorPayload{Message: cause.Error()}))
	c.publishStatus(id)
}

// publishStatus emits the session's current status and progress.
func (c *Coordinator) publishStatus(id string) {
	snap, err := c.store.Snapshot(id)
	if err != nil {
		return
	}
	c.hub.Publish(events.New(events.TypeStatusUpdate, id,
		events.StatusUpdatePayload{Status: snap.Status, Progress: snap.Progress}))
}
