package events

import (
	"context"
	"sync"
	"time"

	"github.com/otherjamesbrown/confab/pkg/logging"
	"github.com/otherjamesbrown/confab/pkg/observability"
)

// subscriberBuffer is the per-subscriber channel depth. A subscriber that
// falls further behind than this starts losing its oldest events.
const subscriberBuffer = 64

// WildcardSession subscribes to events for every session.
const WildcardSession = "*"

// mirrorTimeout bounds one mirror publish so a dead Redis cannot stall
// the delivery path.
const mirrorTimeout = 5 * time.Second

// Sink receives a copy of every published event. Implemented by the Redis
// mirror; faked in tests.
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

// Subscription is one consumer's feed of session events. Close it when done
// or the hub keeps delivering forever.
type Subscription struct {
	hub       *Hub
	sessionID string
	ch        chan Event
	closeOnce sync.Once
}

// Events is the subscriber's receive channel. It is closed by Close.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Close detaches the subscription from the hub and closes the channel.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.hub.remove(s)
		close(s.ch)
	})
}

// Hub fans session events out to in-process subscribers. Delivery is
// per-subscriber buffered; when a buffer is full the oldest event is
// dropped so a stuck consumer never blocks the pipeline. Consumers that
// need a consistent view re-read the session snapshot, which events only
// announce.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	mirror Sink

	logger  logging.Logger
	metrics *observability.Metrics
}

// NewHub creates an event hub.
func NewHub(logger logging.Logger, metrics *observability.Metrics) *Hub {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Hub{
		subs:    make(map[string]map[*Subscription]struct{}),
		logger:  logger.With(logging.F("component", "event_hub")),
		metrics: metrics,
	}
}

// AttachMirror adds a sink that receives a copy of every event, typically
// the Redis publisher. Mirror failures are logged and never affect local
// delivery.
func (h *Hub) AttachMirror(sink Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mirror = sink
}

// Subscribe opens a feed of events for one session, or for all sessions
// with WildcardSession.
func (h *Hub) Subscribe(sessionID string) *Subscription {
	sub := &Subscription{
		hub:       h,
		sessionID: sessionID,
		ch:        make(chan Event, subscriberBuffer),
	}

	h.mu.Lock()
	set, ok := h.subs[sessionID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[sessionID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.SubscribersActive.Inc()
	}
	return sub
}

// Publish delivers an event to every subscriber of its session and to the
// wildcard subscribers, then mirrors it if a mirror is attached.
//
// Delivery happens under the read lock: Close detaches the subscriber
// under the write lock before closing its channel, so an in-flight
// delivery can never race a close.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	for sub := range h.subs[ev.SessionID] {
		h.deliver(sub, ev)
	}
	if ev.SessionID != WildcardSession {
		for sub := range h.subs[WildcardSession] {
			h.deliver(sub, ev)
		}
	}
	mirror := h.mirror
	h.mu.RUnlock()

	if h.metrics != nil {
		h.metrics.EventsPublishedTotal.WithLabelValues(string(ev.Type)).Inc()
	}

	if mirror != nil {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		if err := mirror.Publish(ctx, ev); err != nil {
			h.logger.Warn("event mirror publish failed",
				logging.F("event", string(ev.Type)),
				logging.F("session_id", ev.SessionID),
				logging.Err(err))
		}
	}
}

// deliver sends without blocking, shedding the subscriber's oldest event
// when its buffer is full.
func (h *Hub) deliver(sub *Subscription, ev Event) {
	for {
		select {
		case sub.ch <- ev:
			return
		default:
		}
		select {
		case <-sub.ch:
			h.logger.Warn("slow subscriber, dropping oldest event",
				logging.F("session_id", sub.sessionID))
		default:
		}
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	if set, ok := h.subs[sub.sessionID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.sessionID)
		}
	}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.SubscribersActive.Dec()
	}
}
