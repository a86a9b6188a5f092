package transcribe

import (
	"context"
	"fmt"
	"os"

	cferrors "github.com/otherjamesbrown/confab/pkg/errors"
)

// Null is the transcriber used when no collaborator endpoint is configured.
// It treats everything as silence: calls succeed and return empty text, so
// sessions still move through their full lifecycle without a speech-to-text
// backend. Useful for development and for exercising the coordination layer.
type Null struct{}

// NewNull creates the silence transcriber.
func NewNull() *Null {
	return &Null{}
}

// TranscribeFile verifies the file is readable and reports silence.
func (n *Null) TranscribeFile(ctx context.Context, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", cferrors.ErrTranscription, path, err)
	}
	return &Result{Text: ""}, nil
}

// TranscribeChunk reports silence for any chunk.
func (n *Null) TranscribeChunk(ctx context.Context, audio []byte, format string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Result{Text: ""}, nil
}
