package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredicates_MatchWrappedErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		predicate func(error) bool
	}{
		{"session not found", fmt.Errorf("lookup: %w", ErrSessionNotFound), IsSessionNotFound},
		{"unsupported media", fmt.Errorf("upload: %w", ErrUnsupportedMedia), IsUnsupportedMedia},
		{"storage", fmt.Errorf("write temp: %w", ErrStorage), IsStorage},
		{"transcription", fmt.Errorf("collaborator: %w", ErrTranscription), IsTranscription},
		{"protocol", fmt.Errorf("decode event: %w", ErrProtocol), IsProtocol},
		{"invalid state", fmt.Errorf("pause while idle: %w", ErrInvalidState), IsInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.predicate(tt.err))
			assert.False(t, tt.predicate(fmt.Errorf("unrelated")))
		})
	}
}

func TestAnalysisError_CarriesFacet(t *testing.T) {
	inner := fmt.Errorf("model unavailable")
	err := NewAnalysisError(FacetSentiment, inner)

	facet, ok := IsAnalysis(fmt.Errorf("dispatch: %w", err))
	require.True(t, ok)
	assert.Equal(t, FacetSentiment, facet)
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "sentiment")
}

func TestIsAnalysis_FalseForPlainErrors(t *testing.T) {
	_, ok := IsAnalysis(ErrTranscription)
	assert.False(t, ok)
}
