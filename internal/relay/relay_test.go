package relay

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiawesome/oidi-live/internal/domain"
	"github.com/weiawesome/oidi-live/pkg/pubsub"
)

type captureBroadcaster struct {
	mu   sync.Mutex
	msgs []*domain.EventMessage
}

func (c *captureBroadcaster) BroadcastToSession(sessionID string, message interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, message.(*domain.EventMessage))
	return nil
}

func (c *captureBroadcaster) messages() []*domain.EventMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*domain.EventMessage(nil), c.msgs...)
}

func startRelay(t *testing.T, bus pubsub.Subscriber, b Broadcaster) *Relay {
	t.Helper()
	r := NewRelay(bus, b)
	r.retry = 10 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-r.Done()
	})
	return r
}

func TestPublisherAndRelay_RoundTrip(t *testing.T) {
	bus := pubsub.NewMemoryPubSub()
	defer bus.Close()

	b := &captureBroadcaster{}
	startRelay(t, bus, b)

	// the relay subscribes asynchronously; keep publishing until it is listening
	pub := NewPublisher(bus)
	comment := domain.Comment{ID: 7, Username: "amina", Message: "habari"}
	require.Eventually(t, func() bool {
		_ = pub.Emit(context.Background(), "s1", domain.EventCommentAdded, comment)
		return len(b.messages()) > 0
	}, time.Second, 10*time.Millisecond)

	msg := b.messages()[0]
	assert.Equal(t, domain.MsgTypeEvent, msg.Type)
	assert.Equal(t, "s1", msg.SessionID)
	assert.Equal(t, domain.EventCommentAdded, msg.Event)
	assert.NotZero(t, msg.Timestamp)

	var got domain.Comment
	require.NoError(t, json.Unmarshal(msg.Payload, &got))
	assert.Equal(t, comment, got)
}

func TestRelay_IgnoresEventsWithoutSession(t *testing.T) {
	b := &captureBroadcaster{}
	r := NewRelay(pubsub.NewMemoryPubSub(), b)

	r.handleEvent(nil)
	r.handleEvent(&pubsub.Event{Type: domain.EventHeartAdded})
	assert.Empty(t, b.messages())
}

func TestRelay_ResubscribesAfterSubscriptionCloses(t *testing.T) {
	bus := pubsub.NewMemoryPubSub()
	defer bus.Close()

	b := &captureBroadcaster{}
	startRelay(t, bus, b)

	pub := NewPublisher(bus)
	require.Eventually(t, func() bool {
		_ = pub.Emit(context.Background(), "s1", domain.EventHeartAdded, domain.HeartMarker{ID: 1})
		return len(b.messages()) > 0
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, bus.Unsubscribe(context.Background(), pubsub.PatternSessionEvents))
	before := len(b.messages())

	require.Eventually(t, func() bool {
		_ = pub.Emit(context.Background(), "s2", domain.EventHeartAdded, domain.HeartMarker{ID: 2})
		return len(b.messages()) > before
	}, time.Second, 10*time.Millisecond)
}

func TestPublisher_ReportsBusErrors(t *testing.T) {
	bus := pubsub.NewMemoryPubSub()
	require.NoError(t, bus.Close())

	err := NewPublisher(bus).Emit(context.Background(), "s1", domain.EventLiveStarted, domain.LiveStartedPayload{Host: "h"})
	assert.ErrorIs(t, err, pubsub.ErrClosed)
}
