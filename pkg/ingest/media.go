// Package ingest normalizes incoming audio into something the transcription
// collaborator can decode: whole-file uploads validated and written to
// scoped temporary storage, and live chunks de-duplicated and buffered.
package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	cferrors "github.com/otherjamesbrown/confab/pkg/errors"
)

// mimeByExtension maps allowed container extensions to their media types.
// Used for acknowledgement payloads; validation itself is extension-based,
// matching what the dashboard sends.
var mimeByExtension = map[string]string{
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"webm": "video/webm",
	"mp4":  "video/mp4",
	"m4a":  "audio/mp4",
}

// Validator checks uploads against the allowed container types and size cap.
type Validator struct {
	allowed  map[string]struct{}
	maxBytes int64
}

// NewValidator builds a validator from the configured extension allow-list
// (without dots, case-insensitive) and maximum upload size.
func NewValidator(extensions []string, maxBytes int64) *Validator {
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	return &Validator{allowed: allowed, maxBytes: maxBytes}
}

// MaxBytes returns the configured upload size cap.
func (v *Validator) MaxBytes() int64 {
	return v.maxBytes
}

// CheckFilename validates the container type of an uploaded filename.
// Returns ErrUnsupportedMedia when the extension is not allowed.
func (v *Validator) CheckFilename(filename string) error {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return fmt.Errorf("%w: %q has no extension", cferrors.ErrUnsupportedMedia, filename)
	}
	if _, ok := v.allowed[ext]; !ok {
		return fmt.Errorf("%w: .%s (allowed: %s)",
			cferrors.ErrUnsupportedMedia, ext, strings.Join(v.AllowedList(), ", "))
	}
	return nil
}

// CheckSize validates the declared upload size against the cap. A zero or
// negative declared size is accepted; the copy is capped separately.
func (v *Validator) CheckSize(size int64) error {
	if size > 0 && size > v.maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d",
			cferrors.ErrUnsupportedMedia, size, v.maxBytes)
	}
	return nil
}

// ContentType returns the media type for an allowed filename, or
// application/octet-stream for anything unrecognized.
func ContentType(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if mt, ok := mimeByExtension[ext]; ok {
		return mt
	}
	return "application/octet-stream"
}

// AllowedList returns the allowed extensions in stable order for error
// messages.
func (v *Validator) AllowedList() []string {
	out := make([]string, 0, len(v.allowed))
	for _, ext := range []string{"mp3", "wav", "ogg", "webm", "mp4", "m4a"} {
		if _, ok := v.allowed[ext]; ok {
			out = append(out, ext)
		}
	}
	// Extensions outside the default set, if configured, follow.
	for ext := range v.allowed {
		if _, std := mimeByExtension[ext]; !std {
			out = append(out, ext)
		}
	}
	return out
}
