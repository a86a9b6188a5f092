package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	cferrors "github.com/otherjamesbrown/confab/pkg/errors"
	"github.com/otherjamesbrown/confab/pkg/events"
	"github.com/otherjamesbrown/confab/pkg/ingest"
	"github.com/otherjamesbrown/confab/pkg/logging"
	"github.com/otherjamesbrown/confab/pkg/session"
)

// uploadResponse acknowledges a file upload; processing continues in the
// background.
type uploadResponse struct {
	SessionID   string         `json:"session_id"`
	Filename    string         `json:"filename"`
	ContentType string         `json:"content_type"`
	Status      session.Status `json:"status"`
}

// chunkResponse acknowledges a chunk post. Fresh is false for suppressed
// duplicate payloads.
type chunkResponse struct {
	SessionID string `json:"session_id"`
	Accepted  bool   `json:"accepted"`
}

// resultsResponse is the pull read-back of everything a session has so far.
type resultsResponse struct {
	Status      session.Status             `json:"status"`
	Transcript  string                     `json:"transcript"`
	Summary     *session.SummaryResult     `json:"summary,omitempty"`
	ActionItems *session.ActionItemsResult `json:"action_items,omitempty"`
	Sentiment   *session.SentimentResult   `json:"sentiment,omitempty"`
	Error       string                     `json:"error,omitempty"`
}

type statusResponse struct {
	SessionID string         `json:"session_id"`
	Status    session.Status `json:"status"`
	Progress  int            `json:"progress"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.validator.MaxBytes()+(1<<20))

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, errors.New("missing file field"))
		return
	}
	defer file.Close()

	// reuse the caller's session when it still exists, else create one
	id := r.FormValue("session_id")
	if id != "" {
		if _, err := s.store.Snapshot(id); err != nil {
			id = ""
		}
	}

	if err := s.validator.CheckFilename(header.Filename); err != nil {
		s.failUploadSession(id, err)
		s.writeError(w, r, 0, err)
		return
	}
	if err := s.validator.CheckSize(header.Size); err != nil {
		s.failUploadSession(id, err)
		s.writeError(w, r, 0, err)
		return
	}

	path, err := s.saver.Save(header.Filename, file, s.validator.MaxBytes())
	if err != nil {
		s.failUploadSession(id, err)
		s.writeError(w, r, 0, err)
		return
	}
	if s.metrics != nil && header.Size > 0 {
		s.metrics.UploadBytesTotal.Add(float64(header.Size))
	}
	if id == "" {
		id = s.store.Create(session.ModeUploaded).ID
		if s.metrics != nil {
			s.metrics.SessionsTotal.WithLabelValues(string(session.ModeUploaded)).Inc()
		}
		s.hub.Publish(events.New(events.TypeSessionCreated, id,
			events.SessionCreatedPayload{Mode: session.ModeUploaded}))
	}

	err = s.store.Update(id, func(sn *session.Session) error {
		sn.Filename = header.Filename
		sn.FilePath = path
		return nil
	})
	if err != nil {
		s.writeError(w, r, 0, err)
		return
	}

	if err := s.coord.ProcessFile(r.Context(), id); err != nil {
		s.writeError(w, r, 0, err)
		return
	}

	snap, err := s.store.Snapshot(id)
	if err != nil {
		s.writeError(w, r, 0, err)
		return
	}
	s.writeJSON(w, http.StatusOK, uploadResponse{
		SessionID:   id,
		Filename:    header.Filename,
		ContentType: ingest.ContentType(header.Filename),
		Status:      snap.Status,
	})
}

// failUploadSession marks a caller-supplied session as failed when its
// upload is rejected. No-op when the upload had no session yet.
func (s *Server) failUploadSession(id string, cause error) {
	if id == "" {
		return
	}
	err := s.store.Update(id, func(sn *session.Session) error {
		if !session.CanTransition(sn.Status, session.StatusError) {
			return nil
		}
		sn.Status = session.StatusError
		sn.ErrMsg = cause.Error()
		return nil
	})
	if err != nil {
		return
	}
	s.hub.Publish(events.New(events.TypeError, id, events.ErrorPayload{Message: cause.Error()}))
}

func (s *Server) handleChunk(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.validator.MaxBytes()+(1<<20))

	id := r.FormValue("session_id")
	if id == "" {
		s.writeError(w, r, http.StatusBadRequest, errors.New("missing session_id"))
		return
	}

	file, _, err := r.FormFile("chunk")
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, errors.New("missing chunk field"))
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, errors.New("unreadable chunk"))
		return
	}

	if err := s.coord.AudioChunk(r.Context(), id, payload, r.FormValue("format")); err != nil {
		s.writeError(w, r, 0, err)
		return
	}
	s.writeJSON(w, http.StatusOK, chunkResponse{SessionID: id, Accepted: true})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Snapshot(r.PathValue("session_id"))
	if err != nil {
		s.writeError(w, r, 0, err)
		return
	}
	s.writeResults(w, snap)
}

func (s *Server) handleLatestResults(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Latest()
	if err != nil {
		s.writeError(w, r, 0, err)
		return
	}
	s.writeResults(w, snap)
}

func (s *Server) writeResults(w http.ResponseWriter, snap session.Snapshot) {
	resp := resultsResponse{
		Status:      snap.Status,
		Transcript:  snap.Transcript,
		Summary:     snap.Summary,
		ActionItems: snap.ActionItems,
		Sentiment:   snap.Sentiment,
		Error:       snap.Error,
	}
	// A completed session always exposes all three facets; a facet whose
	// analysis failed reads back explicitly empty, not as a missing key.
	if snap.Status == session.StatusCompleted {
		if resp.Summary == nil {
			resp.Summary = &session.SummaryResult{KeyPoints: []string{}}
		}
		if resp.ActionItems == nil {
			resp.ActionItems = &session.ActionItemsResult{Items: []session.ActionItem{}}
		}
		if resp.Sentiment == nil {
			resp.Sentiment = &session.SentimentResult{Sentiments: []session.SentimentPoint{}}
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]session.SessionInfo{
		"sessions": s.store.List(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Snapshot(r.PathValue("session_id"))
	if err != nil {
		s.writeError(w, r, 0, err)
		return
	}
	s.writeJSON(w, http.StatusOK, statusResponse{
		SessionID: snap.ID,
		Status:    snap.Status,
		Progress:  snap.Progress,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.store.Len(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("response encode failed", logging.Err(err))
	}
}

// writeError maps the error taxonomy onto HTTP status codes. Pass code 0 to
// derive it from the error.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, code int, err error) {
	if code == 0 {
		switch {
		case cferrors.IsSessionNotFound(err):
			code = http.StatusNotFound
		case cferrors.IsUnsupportedMedia(err):
			code = http.StatusUnsupportedMediaType
		case cferrors.IsInvalidState(err):
			code = http.StatusConflict
		default:
			code = http.StatusInternalServerError
		}
	}
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			logging.F("path", r.URL.Path), logging.Err(err))
	} else {
		s.logger.Debug("request rejected",
			logging.F("path", r.URL.Path),
			logging.F("code", code), logging.Err(err))
	}
	s.writeJSON(w, code, errorResponse{Error: err.Error()})
}
