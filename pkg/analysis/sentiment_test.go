package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexiconAnalyze(t *testing.T) {
	transcript := "The launch went great and everyone was happy. " +
		"The rollback procedure failed and caused a terrible outage. " +
		"Ok."

	result, err := NewLexicon().Analyze(context.Background(), transcript)
	require.NoError(t, err)
	require.NotEmpty(t, result.Sentiments)

	overall := result.Sentiments[0]
	assert.Equal(t, "overall", overall.Segment)
	assert.Empty(t, overall.Text)

	// two scoreable sentences; "Ok." is below the word floor
	require.Len(t, result.Sentiments, 3)
	assert.Equal(t, "segment_1", result.Sentiments[1].Segment)
	assert.Positive(t, result.Sentiments[1].Score)
	assert.Equal(t, "segment_2", result.Sentiments[2].Segment)
	assert.Negative(t, result.Sentiments[2].Score)
}

func TestLexiconAnalyzeEmpty(t *testing.T) {
	result, err := NewLexicon().Analyze(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, result.Sentiments, 1)
	assert.Equal(t, "overall", result.Sentiments[0].Segment)
	assert.Zero(t, result.Sentiments[0].Score)
}

func TestCompoundScore(t *testing.T) {
	tests := []struct {
		name string
		text string
		sign int
	}{
		{"positive", "this is great, really excellent work", 1},
		{"negative", "a terrible, broken mess", -1},
		{"neutral", "the meeting starts at noon", 0},
		{"negated positive", "this is not good at all", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := compoundScore(tt.text)
			switch tt.sign {
			case 1:
				assert.Positive(t, score)
			case -1:
				assert.Negative(t, score)
			default:
				assert.Zero(t, score)
			}
			assert.GreaterOrEqual(t, score, -1.0)
			assert.LessOrEqual(t, score, 1.0)
		})
	}
}
