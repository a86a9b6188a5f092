package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "basic",
			in:   "We shipped the release. The metrics look fine! Any questions?",
			want: []string{"We shipped the release.", "The metrics look fine!", "Any questions?"},
		},
		{
			name: "messy whitespace",
			in:   "  One sentence.\n\n  Another   one.  ",
			want: []string{"One sentence.", "Another one."},
		},
		{
			name: "no terminal punctuation",
			in:   "just a fragment",
			want: []string{"just a fragment"},
		},
		{
			name: "empty",
			in:   "   ",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitSentences(tt.in))
		})
	}
}

func TestContentWords(t *testing.T) {
	words := contentWords("The deployment of the new service was a success!")
	assert.Equal(t, []string{"deployment", "new", "service", "success"}, words)
}

func TestSentenceSimilarity(t *testing.T) {
	assert.Zero(t, sentenceSimilarity("the a an", "budget review"))
	assert.Zero(t, sentenceSimilarity("budget review", "kernel panic"))

	same := sentenceSimilarity("budget review meeting", "budget review meeting")
	assert.InDelta(t, 1.0, same, 1e-9)

	partial := sentenceSimilarity("budget review meeting", "budget planning meeting")
	assert.Greater(t, partial, 0.0)
	assert.Less(t, partial, 1.0)
}

func TestRankSentences(t *testing.T) {
	sentences := []string{
		"The database migration is on track.",
		"Lunch was pretty good today.",
		"The database migration needs one more index.",
		"Migration of the database finishes this week.",
	}

	top := rankSentences(sentences, 2)
	assert.Len(t, top, 2)
	// indices come back in original order
	assert.IsIncreasing(t, top)
	// the off-topic lunch sentence never ranks
	assert.NotContains(t, top, 1)
}

func TestRankSentencesSmallInput(t *testing.T) {
	top := rankSentences([]string{"Only one."}, 5)
	assert.Equal(t, []int{0}, top)
}
