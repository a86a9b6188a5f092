package analysis

import (
	"context"
	"sort"
	"strings"

	"github.com/otherjamesbrown/confab/pkg/session"
)

// Extractive summarizer defaults.
const (
	maxKeyPoints = 5
	maxTLDRWords = 30
	maxTopics    = 5
)

// Extractive is the built-in summarizer: it ranks sentences by centrality
// over a similarity graph and extracts the top ones, the approach usually
// labeled TextRank. No external service required.
type Extractive struct{}

// NewExtractive creates the built-in summarizer.
func NewExtractive() *Extractive {
	return &Extractive{}
}

// Summarize produces the tldr, key points, and topics for a transcript.
// Empty input yields an explicitly empty result, not an error.
func (e *Extractive) Summarize(ctx context.Context, text string) (*session.SummaryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return &session.SummaryResult{KeyPoints: []string{}}, nil
	}

	keyPoints := make([]string, 0, maxKeyPoints)
	for _, idx := range rankSentences(sentences, maxKeyPoints) {
		keyPoints = append(keyPoints, sentences[idx])
	}

	return &session.SummaryResult{
		TLDR:      tldrOf(sentences),
		KeyPoints: keyPoints,
		Topics:    topicsOf(sentences),
	}, nil
}

// tldrOf picks the single most central sentence and truncates it to the
// word budget.
func tldrOf(sentences []string) string {
	top := rankSentences(sentences, 1)
	if len(top) == 0 {
		return ""
	}
	words := strings.Fields(sentences[top[0]])
	if len(words) <= maxTLDRWords {
		return sentences[top[0]]
	}
	return strings.Join(words[:maxTLDRWords], " ") + "..."
}

// topicsOf returns the most frequent content words across the transcript.
func topicsOf(sentences []string) []string {
	counts := make(map[string]int)
	for _, s := range sentences {
		for _, w := range contentWords(s) {
			counts[w]++
		}
	}

	words := make([]string, 0, len(counts))
	for w, n := range counts {
		if n >= 2 { // one-off words are noise, not topics
			words = append(words, w)
		}
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})

	if len(words) > maxTopics {
		words = words[:maxTopics]
	}
	return words
}
