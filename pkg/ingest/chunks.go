package ingest

import (
	"crypto/sha256"

	"github.com/otherjamesbrown/confab/pkg/session"
)

// BufferChunk appends a live audio chunk to the session's pending buffer in
// arrival order, suppressing exact repeat payloads (client retries) by
// digest before concatenation. Reports whether the chunk was new.
//
// The mutator runs under the store's per-session lock, so concurrent chunk
// uploads for the same id serialize and the buffer order is the arrival
// order of the winning writers.
func BufferChunk(store *session.Store, id string, payload []byte) (bool, error) {
	if len(payload) == 0 {
		return false, nil
	}
	digest := sha256.Sum256(payload)

	fresh := false
	err := store.Update(id, func(s *session.Session) error {
		if !s.MarkChunkSeen(digest) {
			return nil
		}
		s.PendingAudio = append(s.PendingAudio, payload...)
		fresh = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return fresh, nil
}
