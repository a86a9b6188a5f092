// Package errors provides the domain error types for the confab server.
//
// It defines sentinel errors for the conditions the ingest and streaming
// layers care about, so handlers can branch with errors.Is() instead of
// string matching.
//
// Usage:
//
//	import cferrors "github.com/otherjamesbrown/confab/pkg/errors"
//
//	// Return a domain error
//	return nil, cferrors.ErrSessionNotFound
//
//	// Check for domain errors
//	if cferrors.IsSessionNotFound(err) {
//	    // respond 404
//	}
package errors

import "errors"

// Domain errors - sentinel errors for ingest and streaming conditions.
var (
	// ErrSessionNotFound indicates the session id is unknown or evicted.
	ErrSessionNotFound = errors.New("session not found")

	// ErrUnsupportedMedia indicates the uploaded container type is not allowed.
	ErrUnsupportedMedia = errors.New("unsupported media type")

	// ErrStorage indicates a failure writing audio to temporary storage.
	ErrStorage = errors.New("storage failure")

	// ErrTranscription indicates the transcription collaborator failed.
	// Further automatic transcription stops for the session, but results
	// accumulated before the failure remain readable.
	ErrTranscription = errors.New("transcription failed")

	// ErrProtocol indicates a malformed streaming event payload. The
	// connection stays alive; the event is logged and ignored.
	ErrProtocol = errors.New("protocol error")

	// ErrInvalidState indicates a streaming signal is not valid for the
	// session's current state.
	ErrInvalidState = errors.New("invalid state")
)

// IsSessionNotFound reports whether any error in err's chain is ErrSessionNotFound.
func IsSessionNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

// IsUnsupportedMedia reports whether any error in err's chain is ErrUnsupportedMedia.
func IsUnsupportedMedia(err error) bool {
	return errors.Is(err, ErrUnsupportedMedia)
}

// IsStorage reports whether any error in err's chain is ErrStorage.
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage)
}

// IsTranscription reports whether any error in err's chain is ErrTranscription.
func IsTranscription(err error) bool {
	return errors.Is(err, ErrTranscription)
}

// IsProtocol reports whether any error in err's chain is ErrProtocol.
func IsProtocol(err error) bool {
	return errors.Is(err, ErrProtocol)
}

// IsInvalidState reports whether any error in err's chain is ErrInvalidState.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}
