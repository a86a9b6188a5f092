package analysis

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// whitespaceRegex collapses runs of whitespace during cleanup.
var whitespaceRegex = regexp.MustCompile(`\s+`)

// sentenceEndRegex finds sentence boundaries: terminal punctuation followed
// by whitespace. Good enough for meeting speech; no abbreviation handling.
var sentenceEndRegex = regexp.MustCompile(`([.!?])\s+`)

// stopwords are ignored when comparing sentences and ranking topics.
var stopwords = map[string]struct{}{
	"a": {}, "about": {}, "after": {}, "all": {}, "also": {}, "an": {},
	"and": {}, "any": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"because": {}, "been": {}, "before": {}, "but": {}, "by": {}, "can": {},
	"could": {}, "did": {}, "do": {}, "does": {}, "for": {}, "from": {},
	"get": {}, "go": {}, "going": {}, "had": {}, "has": {}, "have": {},
	"he": {}, "her": {}, "here": {}, "him": {}, "his": {}, "how": {},
	"i": {}, "if": {}, "in": {}, "into": {}, "is": {}, "it": {}, "its": {},
	"just": {}, "like": {}, "me": {}, "more": {}, "my": {}, "no": {},
	"not": {}, "now": {}, "of": {}, "ok": {}, "okay": {}, "on": {},
	"one": {}, "or": {}, "our": {}, "out": {}, "over": {}, "right": {},
	"she": {}, "so": {}, "some": {}, "than": {}, "that": {}, "the": {},
	"their": {}, "them": {}, "then": {}, "there": {}, "these": {},
	"they": {}, "this": {}, "to": {}, "up": {}, "us": {}, "was": {},
	"we": {}, "well": {}, "were": {}, "what": {}, "when": {}, "which": {},
	"who": {}, "will": {}, "with": {}, "would": {}, "yeah": {}, "yes": {},
	"you": {}, "your": {},
}

// cleanText collapses whitespace and trims.
func cleanText(text string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
}

// splitSentences tokenizes cleaned text into sentences, keeping terminal
// punctuation attached.
func splitSentences(text string) []string {
	text = cleanText(text)
	if text == "" {
		return nil
	}

	marked := sentenceEndRegex.ReplaceAllString(text, "$1\x00")
	parts := strings.Split(marked, "\x00")

	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

// contentWords lowercases and tokenizes a sentence, dropping stopwords and
// punctuation-only tokens.
func contentWords(sentence string) []string {
	fields := strings.Fields(strings.ToLower(sentence))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.Trim(f, ".,!?;:\"'()[]")
		if w == "" {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		words = append(words, w)
	}
	return words
}

// sentenceSimilarity computes the cosine similarity of two sentences over
// their shared content-word vocabulary.
func sentenceSimilarity(a, b string) float64 {
	wordsA := contentWords(a)
	wordsB := contentWords(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(wordsA))
	for _, w := range wordsA {
		setA[w] = struct{}{}
	}
	shared := 0
	seen := make(map[string]struct{}, len(wordsB))
	for _, w := range wordsB {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if _, ok := setA[w]; ok {
			shared++
		}
	}

	if shared == 0 {
		return 0
	}
	return float64(shared) / (math.Sqrt(float64(len(setA))) * math.Sqrt(float64(len(seen))))
}

// rankSentences scores each sentence by its summed similarity to every
// other sentence (degree centrality over the similarity graph) and returns
// the indices of the top n, in original order.
func rankSentences(sentences []string, n int) []int {
	if n >= len(sentences) {
		indices := make([]int, len(sentences))
		for i := range sentences {
			indices[i] = i
		}
		return indices
	}

	scores := make([]float64, len(sentences))
	for i := range sentences {
		for j := range sentences {
			if i != j {
				scores[i] += sentenceSimilarity(sentences[i], sentences[j])
			}
		}
	}

	order := make([]int, len(sentences))
	for i := range order {
		order[i] = i
	}
	// Ties keep earlier sentences, matching the stable sort.
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	top := append([]int(nil), order[:n]...)
	sort.Ints(top)
	return top
}
