package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan *Event) *Event {
	t.Helper()
	select {
	case e, ok := <-ch:
		require.True(t, ok, "channel closed")
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestMemoryPubSub_PatternSubscription(t *testing.T) {
	ps := NewMemoryPubSub()
	defer ps.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := ps.SubscribePattern(ctx, PatternSessionEvents)
	require.NoError(t, err)

	ev, err := NewEvent("comment_added", "s1", map[string]string{"message": "hi"})
	require.NoError(t, err)
	require.NoError(t, ps.Publish(ctx, SessionEventsChannel("s1"), ev))
	require.NoError(t, ps.Publish(ctx, "other:channel", ev))

	got := receive(t, ch)
	assert.Equal(t, "comment_added", got.Type)

	var payload map[string]string
	require.NoError(t, got.UnmarshalPayload(&payload))
	assert.Equal(t, "hi", payload["message"])

	select {
	case e := <-ch:
		t.Fatalf("unexpected event %+v", e)
	default:
	}
}

func TestMemoryPubSub_ExactSubscription(t *testing.T) {
	ps := NewMemoryPubSub()
	defer ps.Close()
	ctx := context.Background()

	ch, err := ps.Subscribe(ctx, SessionEventsChannel("s1"))
	require.NoError(t, err)

	ev, _ := NewEvent("heart_added", "s2", nil)
	require.NoError(t, ps.Publish(ctx, SessionEventsChannel("s2"), ev))
	ev, _ = NewEvent("heart_added", "s1", nil)
	require.NoError(t, ps.Publish(ctx, SessionEventsChannel("s1"), ev))

	assert.Equal(t, "s1", receive(t, ch).SessionID)
}

func TestMemoryPubSub_ContextCancelRemovesSubscription(t *testing.T) {
	ps := NewMemoryPubSub()
	defer ps.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := ps.Subscribe(ctx, "a")
	require.NoError(t, err)

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestMemoryPubSub_UnsubscribeAndClose(t *testing.T) {
	ps := NewMemoryPubSub()
	ctx := context.Background()

	ch, err := ps.Subscribe(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, ps.Unsubscribe(ctx, "a"))
	require.NoError(t, ps.Unsubscribe(ctx, "a"))
	_, ok := <-ch
	assert.False(t, ok)

	require.NoError(t, ps.Close())
	ev, _ := NewEvent("x", "", nil)
	assert.ErrorIs(t, ps.Publish(ctx, "a", ev), ErrClosed)
	_, err = ps.Subscribe(ctx, "a")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMemoryPubSub_InvalidPattern(t *testing.T) {
	ps := NewMemoryPubSub()
	defer ps.Close()

	_, err := ps.SubscribePattern(context.Background(), "live:[")
	assert.Error(t, err)
}

func TestNewPubSub_Drivers(t *testing.T) {
	ps, err := NewPubSub(Config{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryPubSub{}, ps)
	require.NoError(t, ps.Close())

	_, err = NewPubSub(Config{Driver: "carrier-pigeon"})
	assert.Error(t, err)
}
