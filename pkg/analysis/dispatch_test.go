package analysis

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cferrors "github.com/otherjamesbrown/confab/pkg/errors"
	"github.com/otherjamesbrown/confab/pkg/logging"
	"github.com/otherjamesbrown/confab/pkg/session"
)

type stubSummarizer struct {
	result *session.SummaryResult
	err    error
}

func (s *stubSummarizer) Summarize(context.Context, string) (*session.SummaryResult, error) {
	return s.result, s.err
}

type stubExtractor struct {
	result *session.ActionItemsResult
	err    error
}

func (s *stubExtractor) Extract(context.Context, string) (*session.ActionItemsResult, error) {
	return s.result, s.err
}

type stubAnalyzer struct {
	result *session.SentimentResult
	err    error
}

func (s *stubAnalyzer) Analyze(context.Context, string) (*session.SentimentResult, error) {
	return s.result, s.err
}

type notifyRecorder struct {
	mu     sync.Mutex
	facets []cferrors.Facet
}

func (n *notifyRecorder) record(_ string, facet cferrors.Facet) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.facets = append(n.facets, facet)
}

func (n *notifyRecorder) seen() []cferrors.Facet {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]cferrors.Facet(nil), n.facets...)
}

func newDispatchFixture(t *testing.T, s Summarizer, a ActionItemExtractor,
	sa SentimentAnalyzer) (*Dispatcher, *session.Store, string, *notifyRecorder) {
	t.Helper()
	store := session.NewStore(logging.NewNopLogger())
	id := store.Create(session.ModeLive).ID

	rec := &notifyRecorder{}
	d := NewDispatcher(store, s, a, sa, rec.record, logging.NewNopLogger(), nil)
	return d, store, id, rec
}

func TestDispatchMergesAllFacets(t *testing.T) {
	summary := &session.SummaryResult{TLDR: "short", KeyPoints: []string{"short"}}
	items := &session.ActionItemsResult{Items: []session.ActionItem{{Task: "do it"}}}
	sentiments := &session.SentimentResult{Sentiments: []session.SentimentPoint{{Segment: "overall"}}}

	d, store, id, rec := newDispatchFixture(t,
		&stubSummarizer{result: summary},
		&stubExtractor{result: items},
		&stubAnalyzer{result: sentiments})

	require.NoError(t, d.Dispatch(context.Background(), id, "some transcript"))

	snap, err := store.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, summary, snap.Summary)
	assert.Equal(t, items, snap.ActionItems)
	assert.Equal(t, sentiments, snap.Sentiment)
	assert.Equal(t, facetProgress[cferrors.FacetSentiment], snap.Progress)
	assert.ElementsMatch(t, rec.seen(), []cferrors.Facet{
		cferrors.FacetSummary, cferrors.FacetActionItems, cferrors.FacetSentiment,
	})
}

func TestDispatchIsolatesFacetFailure(t *testing.T) {
	items := &session.ActionItemsResult{Items: []session.ActionItem{}}
	sentiments := &session.SentimentResult{Sentiments: []session.SentimentPoint{}}

	d, store, id, rec := newDispatchFixture(t,
		&stubSummarizer{err: cferrors.NewAnalysisError(cferrors.FacetSummary, assert.AnError)},
		&stubExtractor{result: items},
		&stubAnalyzer{result: sentiments})

	require.NoError(t, d.Dispatch(context.Background(), id, "some transcript"))

	snap, err := store.Snapshot(id)
	require.NoError(t, err)
	assert.Nil(t, snap.Summary, "failed facet stays absent")
	assert.NotNil(t, snap.ActionItems)
	assert.NotNil(t, snap.Sentiment)
	assert.NotContains(t, rec.seen(), cferrors.FacetSummary)
}

func TestDispatchAllFacetsFail(t *testing.T) {
	boom := cferrors.NewAnalysisError(cferrors.FacetSummary, assert.AnError)
	d, _, id, rec := newDispatchFixture(t,
		&stubSummarizer{err: boom},
		&stubExtractor{err: cferrors.NewAnalysisError(cferrors.FacetActionItems, assert.AnError)},
		&stubAnalyzer{err: cferrors.NewAnalysisError(cferrors.FacetSentiment, assert.AnError)})

	err := d.Dispatch(context.Background(), id, "some transcript")
	assert.Error(t, err)
	assert.Empty(t, rec.seen())
}

func TestDispatchEmptyTranscript(t *testing.T) {
	d, store, id, rec := newDispatchFixture(t,
		&stubSummarizer{err: assert.AnError}, // must not be called
		&stubExtractor{err: assert.AnError},
		&stubAnalyzer{err: assert.AnError})

	require.NoError(t, d.Dispatch(context.Background(), id, ""))

	snap, err := store.Snapshot(id)
	require.NoError(t, err)
	require.NotNil(t, snap.Summary)
	assert.Empty(t, snap.Summary.KeyPoints)
	require.NotNil(t, snap.ActionItems)
	assert.Equal(t, NoActionItemsNote, snap.ActionItems.Note)
	require.NotNil(t, snap.Sentiment)
	assert.Empty(t, snap.Sentiment.Sentiments)
	assert.Len(t, rec.seen(), 3)
}

func TestDispatchUnknownSession(t *testing.T) {
	store := session.NewStore(logging.NewNopLogger())
	d := NewDispatcher(store,
		&stubSummarizer{result: &session.SummaryResult{}},
		&stubExtractor{result: &session.ActionItemsResult{}},
		&stubAnalyzer{result: &session.SentimentResult{}},
		nil, logging.NewNopLogger(), nil)

	err := d.Dispatch(context.Background(), "missing", "text")
	assert.Error(t, err)
	assert.True(t, cferrors.IsSessionNotFound(err))
}
