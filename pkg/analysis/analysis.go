// Package analysis orchestrates the three text-analysis facets
// (summarization, action-item extraction, and sentiment) and merges their
// results into the session store. Each facet is independent: one failing
// never blocks the others and never prevents session completion.
//
// Every collaborator has a local rule-based implementation used when no
// remote endpoint is configured, so the full pipeline runs without external
// services.
package analysis

import (
	"context"

	"github.com/otherjamesbrown/confab/pkg/session"
)

// NoActionItemsNote marks an extraction that found nothing, so clients can
// distinguish "no action items" from "extraction unavailable".
const NoActionItemsNote = "no action items"

// Summarizer produces the summary facet from transcript text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (*session.SummaryResult, error)
}

// ActionItemExtractor produces the action-item facet from transcript text.
type ActionItemExtractor interface {
	Extract(ctx context.Context, text string) (*session.ActionItemsResult, error)
}

// SentimentAnalyzer produces the sentiment timeline from transcript text.
type SentimentAnalyzer interface {
	Analyze(ctx context.Context, text string) (*session.SentimentResult, error)
}
