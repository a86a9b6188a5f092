package transcribe

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cferrors "github.com/otherjamesbrown/confab/pkg/errors"
	"github.com/otherjamesbrown/confab/pkg/logging"
)

func TestHTTPClient_TranscribeChunk(t *testing.T) {
	var gotReq transcribeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/transcriptions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(transcribeResponse{Text: " hello world ", Confidence: 0.92})
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPClientConfig{BaseURL: srv.URL, Timeout: 5 * time.Second}, logging.NewNopLogger())

	res, err := c.TranscribeChunk(context.Background(), []byte{1, 2, 3}, "webm")
	require.NoError(t, err)
	assert.Equal(t, "hello world", res.Text)
	assert.InDelta(t, 0.92, res.Confidence, 1e-9)

	audio, err := base64.StdEncoding.DecodeString(gotReq.AudioBase64)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, audio)
	assert.Equal(t, "webm", gotReq.Format)
}

func TestHTTPClient_TranscribeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "standup.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o600))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req transcribeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "wav", req.Format)
		assert.Equal(t, "standup.wav", req.Filename)
		json.NewEncoder(w).Encode(transcribeResponse{Text: "morning everyone"})
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPClientConfig{BaseURL: srv.URL, Timeout: 5 * time.Second}, nil)

	res, err := c.TranscribeFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "morning everyone", res.Text)
}

func TestHTTPClient_CollaboratorError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(transcribeResponse{Error: "could not understand audio"})
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPClientConfig{BaseURL: srv.URL, Timeout: 5 * time.Second}, nil)

	_, err := c.TranscribeChunk(context.Background(), []byte{1}, "wav")
	require.Error(t, err)
	assert.ErrorIs(t, err, cferrors.ErrTranscription)
	assert.Contains(t, err.Error(), "could not understand audio")
}

func TestHTTPClient_MissingFile(t *testing.T) {
	c := NewHTTPClient(HTTPClientConfig{BaseURL: "http://unused.invalid"}, nil)

	_, err := c.TranscribeFile(context.Background(), "/nonexistent/audio.wav")
	assert.ErrorIs(t, err, cferrors.ErrTranscription)
}

func TestNull_ReportsSilence(t *testing.T) {
	n := NewNull()

	res, err := n.TranscribeChunk(context.Background(), []byte{1, 2}, "wav")
	require.NoError(t, err)
	assert.Empty(t, res.Text)

	dir := t.TempDir()
	path := filepath.Join(dir, "silent.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o600))

	res, err = n.TranscribeFile(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, res.Text)

	_, err = n.TranscribeFile(context.Background(), filepath.Join(dir, "missing.wav"))
	assert.ErrorIs(t, err, cferrors.ErrTranscription)
}
