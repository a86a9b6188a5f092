package ingest

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cferrors "github.com/otherjamesbrown/confab/pkg/errors"
	"github.com/otherjamesbrown/confab/pkg/logging"
	"github.com/otherjamesbrown/confab/pkg/session"
)

func TestValidator_CheckFilename(t *testing.T) {
	v := NewValidator([]string{"mp3", "wav", "ogg", "webm", "mp4", "m4a"}, 16<<20)

	tests := []struct {
		filename string
		wantErr  bool
	}{
		{"standup.wav", false},
		{"all-hands.MP3", false},
		{"meeting.m4a", false},
		{"notes.txt", true},
		{"archive.tar.gz", true},
		{"noextension", true},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			err := v.CheckFilename(tt.filename)
			if tt.wantErr {
				assert.ErrorIs(t, err, cferrors.ErrUnsupportedMedia)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidator_CheckSize(t *testing.T) {
	v := NewValidator([]string{"wav"}, 100)

	assert.NoError(t, v.CheckSize(100))
	assert.NoError(t, v.CheckSize(0)) // unknown size is copy-capped instead
	assert.ErrorIs(t, v.CheckSize(101), cferrors.ErrUnsupportedMedia)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "audio/wav", ContentType("meeting.wav"))
	assert.Equal(t, "video/webm", ContentType("meeting.webm"))
	assert.Equal(t, "application/octet-stream", ContentType("meeting.xyz"))
}

func TestSaver_SaveAndPath(t *testing.T) {
	dir := t.TempDir()
	sv, err := NewSaver(dir, logging.NewNopLogger())
	require.NoError(t, err)

	payload := []byte("RIFF....WAVEfmt ")
	path, err := sv.Save("weekly.wav", bytes.NewReader(payload), 1<<20)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "weekly.wav"), path)

	stored, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, stored)

	got, err := sv.Path("weekly.wav")
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestSaver_FlattensTraversal(t *testing.T) {
	dir := t.TempDir()
	sv, err := NewSaver(dir, nil)
	require.NoError(t, err)

	path, err := sv.Save("../../etc/passwd.wav", strings.NewReader("data"), 0)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "passwd.wav"), path)
}

func TestSaver_CapsOversizedBody(t *testing.T) {
	dir := t.TempDir()
	sv, err := NewSaver(dir, nil)
	require.NoError(t, err)

	path, err := sv.Save("big.wav", strings.NewReader(strings.Repeat("a", 100)), 10)
	require.NoError(t, err)

	stored, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, stored, 10)
}

func TestSaver_PathMissingFile(t *testing.T) {
	sv, err := NewSaver(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = sv.Path("never-uploaded.wav")
	assert.ErrorIs(t, err, cferrors.ErrStorage)
}

func TestBufferChunk_DeduplicatesExactPayloads(t *testing.T) {
	st := session.NewStore(logging.NewNopLogger())
	s := st.Create(session.ModeLive)

	chunk := []byte{0x01, 0x02, 0x03, 0x04}

	fresh, err := BufferChunk(st, s.ID, chunk)
	require.NoError(t, err)
	assert.True(t, fresh)

	// Same bytes again: a client retry, contributes nothing.
	fresh, err = BufferChunk(st, s.ID, append([]byte(nil), chunk...))
	require.NoError(t, err)
	assert.False(t, fresh)

	fresh, err = BufferChunk(st, s.ID, []byte{0x05, 0x06})
	require.NoError(t, err)
	assert.True(t, fresh)

	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}, pendingAudio(t, st, s.ID))
}

// pendingAudio reads the session's buffered audio under the store lock.
func pendingAudio(t *testing.T, st *session.Store, id string) []byte {
	t.Helper()
	var buf []byte
	require.NoError(t, st.Update(id, func(s *session.Session) error {
		buf = append([]byte(nil), s.PendingAudio...)
		return nil
	}))
	return buf
}

func TestBufferChunk_EmptyPayloadIgnored(t *testing.T) {
	st := session.NewStore(logging.NewNopLogger())
	s := st.Create(session.ModeLive)

	fresh, err := BufferChunk(st, s.ID, nil)
	require.NoError(t, err)
	assert.False(t, fresh)
}

func TestBufferChunk_UnknownSession(t *testing.T) {
	st := session.NewStore(logging.NewNopLogger())
	_, err := BufferChunk(st, "ghost", []byte{1})
	assert.ErrorIs(t, err, cferrors.ErrSessionNotFound)
}
