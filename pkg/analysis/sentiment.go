package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/otherjamesbrown/confab/pkg/session"
)

// minSegmentWords is the shortest segment worth scoring. Shorter fragments
// carry too little signal and skew the timeline.
const minSegmentWords = 3

// Valence lexicon for the built-in analyzer. Weights roughly follow the
// common sentiment lexicons: strong words score higher than mild ones.
var valence = map[string]float64{
	"good": 1.9, "great": 3.1, "excellent": 2.7, "amazing": 2.8,
	"awesome": 3.1, "fantastic": 2.6, "wonderful": 2.7, "love": 3.2,
	"like": 1.5, "happy": 2.7, "glad": 2.0, "pleased": 1.9,
	"perfect": 2.7, "best": 3.2, "better": 1.9, "success": 2.7,
	"successful": 2.6, "win": 2.8, "progress": 1.7, "improve": 1.9,
	"improved": 1.9, "agree": 1.5, "agreed": 1.5, "thanks": 1.9,
	"thank": 1.9, "helpful": 1.8, "nice": 1.8, "solid": 1.5,
	"confident": 2.2, "excited": 2.3, "positive": 2.3, "yes": 1.0,

	"bad": -2.5, "terrible": -3.0, "awful": -2.9, "horrible": -2.9,
	"hate": -3.2, "dislike": -1.6, "sad": -2.1, "angry": -2.5,
	"annoyed": -1.8, "annoying": -1.9, "problem": -1.7, "problems": -1.7,
	"issue": -1.3, "issues": -1.3, "fail": -2.5, "failed": -2.5,
	"failure": -2.6, "broken": -2.0, "worse": -2.1, "worst": -3.1,
	"wrong": -2.1, "concern": -1.3, "concerned": -1.6, "worried": -2.2,
	"worry": -2.0, "blocker": -2.0, "blocked": -1.8, "risk": -1.3,
	"delay": -1.5, "delayed": -1.6, "difficult": -1.5, "hard": -1.0,
	"disagree": -1.5, "unfortunately": -1.8, "miss": -1.4,
	"missed": -1.6, "behind": -1.2, "slow": -1.2, "confusing": -1.6,
}

var negations = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "n't": {}, "dont": {},
	"don't": {}, "cant": {}, "can't": {}, "won't": {}, "wont": {},
	"isn't": {}, "wasn't": {}, "aren't": {}, "couldn't": {},
}

// Lexicon is the built-in sentiment analyzer. It scores each sentence of
// the transcript against a valence word list and reports a compound score
// in [-1, 1] per segment, with a whole-transcript entry first.
type Lexicon struct{}

// NewLexicon creates the built-in sentiment analyzer.
func NewLexicon() *Lexicon {
	return &Lexicon{}
}

// Analyze scores a transcript sentence by sentence. The first
// entry is always the overall score; segment entries follow in transcript
// order. Segments under minSegmentWords words are skipped.
func (l *Lexicon) Analyze(ctx context.Context, text string) (*session.SentimentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sentences := splitSentences(text)
	points := make([]session.SentimentPoint, 0, len(sentences)+1)
	points = append(points, session.SentimentPoint{
		Segment: "overall",
		Text:    "",
		Score:   compoundScore(text),
	})

	n := 0
	for _, s := range sentences {
		if len(strings.Fields(s)) < minSegmentWords {
			continue
		}
		n++
		points = append(points, session.SentimentPoint{
			Segment: fmt.Sprintf("segment_%d", n),
			Text:    s,
			Score:   compoundScore(s),
		})
	}

	return &session.SentimentResult{Sentiments: points}, nil
}

// compoundScore sums word valences, flipping the sign after a negation,
// and squashes the total into [-1, 1].
func compoundScore(text string) float64 {
	words := strings.Fields(strings.ToLower(cleanText(text)))
	var sum float64
	negated := false
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:'\"()")
		if _, ok := negations[w]; ok {
			negated = true
			continue
		}
		if v, ok := valence[w]; ok {
			if negated {
				v = -v * 0.74
			}
			sum += v
		}
		negated = false
	}
	if sum == 0 {
		return 0
	}
	// normalization constant borrowed from the usual compound formula
	return sum / math.Sqrt(sum*sum+15)
}
