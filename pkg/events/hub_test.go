package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/confab/pkg/logging"
	"github.com/otherjamesbrown/confab/pkg/session"
)

func recvEvent(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev := <-sub.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestHubDeliversToSessionSubscribers(t *testing.T) {
	hub := NewHub(logging.NewNopLogger(), nil)
	sub := hub.Subscribe("s1")
	defer sub.Close()
	other := hub.Subscribe("s2")
	defer other.Close()

	hub.Publish(New(TypeStatusUpdate, "s1", StatusUpdatePayload{
		Status:   session.StatusRecording,
		Progress: 10,
	}))

	ev := recvEvent(t, sub)
	assert.Equal(t, TypeStatusUpdate, ev.Type)
	assert.Equal(t, "s1", ev.SessionID)
	assert.False(t, ev.Timestamp.IsZero())

	payload, ok := ev.Payload.(StatusUpdatePayload)
	require.True(t, ok)
	assert.Equal(t, session.StatusRecording, payload.Status)

	select {
	case ev := <-other.Events():
		t.Fatalf("subscriber of another session got %v", ev)
	default:
	}
}

func TestHubWildcardSubscriber(t *testing.T) {
	hub := NewHub(logging.NewNopLogger(), nil)
	all := hub.Subscribe(WildcardSession)
	defer all.Close()

	hub.Publish(New(TypeSessionCreated, "s1", SessionCreatedPayload{Mode: session.ModeLive}))
	hub.Publish(New(TypeSessionCreated, "s2", SessionCreatedPayload{Mode: session.ModeUploaded}))

	assert.Equal(t, "s1", recvEvent(t, all).SessionID)
	assert.Equal(t, "s2", recvEvent(t, all).SessionID)
}

func TestHubCloseStopsDelivery(t *testing.T) {
	hub := NewHub(logging.NewNopLogger(), nil)
	sub := hub.Subscribe("s1")
	sub.Close()
	sub.Close() // idempotent

	hub.Publish(New(TypeError, "s1", ErrorPayload{Message: "boom"}))

	_, open := <-sub.Events()
	assert.False(t, open, "channel should be closed")
}

func TestHubShedsOldestWhenSubscriberStalls(t *testing.T) {
	hub := NewHub(logging.NewNopLogger(), nil)
	sub := hub.Subscribe("s1")
	defer sub.Close()

	total := subscriberBuffer + 10
	for i := 0; i < total; i++ {
		hub.Publish(New(TypeTranscriptionUpdate, "s1", TranscriptionUpdatePayload{Text: "x"}))
	}

	// buffer holds the newest subscriberBuffer events; the rest were shed
	got := 0
	for {
		select {
		case <-sub.Events():
			got++
		default:
			assert.Equal(t, subscriberBuffer, got)
			return
		}
	}
}

func TestHubConcurrentPublishAndClose(t *testing.T) {
	hub := NewHub(logging.NewNopLogger(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub := hub.Subscribe("s1")
			time.Sleep(time.Millisecond)
			sub.Close()
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				hub.Publish(New(TypeStatusUpdate, "s1", nil))
			}
		}()
	}
	wg.Wait()
}

type captureSink struct {
	mu  sync.Mutex
	evs []Event
	err error
}

func (c *captureSink) Publish(_ context.Context, ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evs = append(c.evs, ev)
	return c.err
}

func TestHubMirrorsEvents(t *testing.T) {
	hub := NewHub(logging.NewNopLogger(), nil)
	sink := &captureSink{}
	hub.AttachMirror(sink)

	hub.Publish(New(TypeSummaryUpdate, "s1", nil))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.evs, 1)
	assert.Equal(t, TypeSummaryUpdate, sink.evs[0].Type)
}

func TestHubMirrorFailureDoesNotBlockDelivery(t *testing.T) {
	hub := NewHub(logging.NewNopLogger(), nil)
	hub.AttachMirror(&captureSink{err: assert.AnError})
	sub := hub.Subscribe("s1")
	defer sub.Close()

	hub.Publish(New(TypeStatusUpdate, "s1", nil))
	assert.Equal(t, TypeStatusUpdate, recvEvent(t, sub).Type)
}
