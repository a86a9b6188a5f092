package errors

import (
	"errors"
	"fmt"
)

// Facet identifies one section of a session's derived results.
type Facet string

const (
	FacetSummary     Facet = "summary"
	FacetActionItems Facet = "action_items"
	FacetSentiment   Facet = "sentiment"
)

// AnalysisError wraps a failure from one text-analysis collaborator.
// Analysis failures are isolated per facet: one facet failing never blocks
// the others and never prevents the session from reaching completed.
type AnalysisError struct {
	Facet Facet
	Err   error
}

// Error implements the error interface.
func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s analysis failed: %v", e.Facet, e.Err)
}

// Unwrap returns the underlying collaborator error.
func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// NewAnalysisError wraps err as a per-facet analysis failure.
func NewAnalysisError(facet Facet, err error) *AnalysisError {
	return &AnalysisError{Facet: facet, Err: err}
}

// IsAnalysis reports whether err is an AnalysisError, returning the facet
// when it is.
func IsAnalysis(err error) (Facet, bool) {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Facet, true
	}
	return "", false
}
