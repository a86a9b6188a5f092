package analysis

import (
	"context"
	"errors"
	"sync"
	"time"

	cferrors "github.com/otherjamesbrown/confab/pkg/errors"
	"github.com/otherjamesbrown/confab/pkg/logging"
	"github.com/otherjamesbrown/confab/pkg/observability"
	"github.com/otherjamesbrown/confab/pkg/session"
)

// Progress checkpoints applied as facets land. Facets finish in any order,
// so progress only ever moves forward to the highest checkpoint reached.
var facetProgress = map[cferrors.Facet]int{
	cferrors.FacetSummary:     70,
	cferrors.FacetActionItems: 90,
	cferrors.FacetSentiment:   95,
}

// FacetNotifier is called after a facet result has been merged into the
// session, so the caller can push the update to subscribers. It must not
// block.
type FacetNotifier func(sessionID string, facet cferrors.Facet)

// Dispatcher fans a finished transcript out to the three analysis facets.
// Each facet runs in its own goroutine and merges its result into the
// session as soon as it lands; one facet failing never blocks or voids
// the others.
type Dispatcher struct {
	store       *session.Store
	summarizer  Summarizer
	actionItems ActionItemExtractor
	sentiment   SentimentAnalyzer
	notify      FacetNotifier
	logger      logging.Logger
	metrics     *observability.Metrics
	tracer      *observability.Tracer
}

// NewDispatcher wires a dispatcher over the store and the three facet
// implementations. notify may be nil when nobody listens for per-facet
// updates.
func NewDispatcher(store *session.Store, s Summarizer, a ActionItemExtractor,
	sa SentimentAnalyzer, notify FacetNotifier, logger logging.Logger,
	metrics *observability.Metrics) *Dispatcher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if notify == nil {
		notify = func(string, cferrors.Facet) {}
	}
	return &Dispatcher{
		store:       store,
		summarizer:  s,
		actionItems: a,
		sentiment:   sa,
		notify:      notify,
		logger:      logger.With(logging.F("component", "dispatcher")),
		metrics:     metrics,
		tracer:      observability.NewTracer(),
	}
}

// Dispatch runs all three facets over the transcript and merges each result
// into the session as it completes. It blocks until every facet has either
// merged or failed. An error is returned only when all three facets fail;
// partial results are a success.
//
// An empty transcript short-circuits: every facet is recorded as explicitly
// empty without calling any collaborator.
func (d *Dispatcher) Dispatch(ctx context.Context, sessionID, transcript string) error {
	ctx, span := d.tracer.StartDispatchSpan(ctx, sessionID)
	defer span.End()

	if transcript == "" {
		return d.mergeEmpty(sessionID)
	}

	var wg sync.WaitGroup
	errs := make([]error, 3)

	wg.Add(3)
	go func() {
		defer wg.Done()
		errs[0] = d.runFacet(sessionID, cferrors.FacetSummary,
			func() (func(*session.Session), error) {
				result, err := d.summarizer.Summarize(ctx, transcript)
				if err != nil {
					return nil, err
				}
				return func(s *session.Session) { s.Summary = result }, nil
			})
	}()
	go func() {
		defer wg.Done()
		errs[1] = d.runFacet(sessionID, cferrors.FacetActionItems,
			func() (func(*session.Session), error) {
				result, err := d.actionItems.Extract(ctx, transcript)
				if err != nil {
					return nil, err
				}
				return func(s *session.Session) { s.ActionItems = result }, nil
			})
	}()
	go func() {
		defer wg.Done()
		errs[2] = d.runFacet(sessionID, cferrors.FacetSentiment,
			func() (func(*session.Session), error) {
				result, err := d.sentiment.Analyze(ctx, transcript)
				if err != nil {
					return nil, err
				}
				return func(s *session.Session) { s.Sentiment = result }, nil
			})
	}()
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed == len(errs) {
		return errors.Join(errs...)
	}
	return nil
}

// runFacet executes one facet outside the session lock, then merges the
// result and the progress bump atomically. Keeping the collaborator call
// out of the lock lets the three facets actually run in parallel.
func (d *Dispatcher) runFacet(sessionID string,
	facet cferrors.Facet, run func() (func(*session.Session), error)) error {
	start := time.Now()
	merge, err := run()
	if d.metrics != nil {
		d.metrics.AnalysisSeconds.WithLabelValues(string(facet)).Observe(time.Since(start).Seconds())
	}
	if err == nil {
		err = d.store.Update(sessionID, func(s *session.Session) error {
			merge(s)
			if p := facetProgress[facet]; p > s.Progress {
				s.Progress = p
			}
			return nil
		})
	}
	if err != nil {
		if d.metrics != nil {
			d.metrics.AnalysisFailuresTotal.WithLabelValues(string(facet)).Inc()
		}
		d.logger.Warn("analysis facet failed",
			logging.F("session_id", sessionID),
			logging.F("facet", string(facet)),
			logging.Err(err))
		return err
	}
	d.notify(sessionID, facet)
	return nil
}

// mergeEmpty records all three facets as explicitly empty. The action item
// note distinguishes "analyzed, nothing found" from "never analyzed".
func (d *Dispatcher) mergeEmpty(sessionID string) error {
	err := d.store.Update(sessionID, func(s *session.Session) error {
		s.Summary = &session.SummaryResult{KeyPoints: []string{}}
		s.ActionItems = &session.ActionItemsResult{
			Items: []session.ActionItem{},
			Note:  NoActionItemsNote,
		}
		s.Sentiment = &session.SentimentResult{Sentiments: []session.SentimentPoint{}}
		if s.Progress < facetProgress[cferrors.FacetSentiment] {
			s.Progress = facetProgress[cferrors.FacetSentiment]
		}
		return nil
	})
	if err != nil {
		return err
	}
	d.notify(sessionID, cferrors.FacetSummary)
	d.notify(sessionID, cferrors.FacetActionItems)
	d.notify(sessionID, cferrors.FacetSentiment)
	return nil
}
