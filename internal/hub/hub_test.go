package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiawesome/oidi-live/internal/config"
)

func testConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		PingInterval:   time.Second,
		PongWait:       2 * time.Second,
		WriteWait:      time.Second,
		MaxMessageSize: 4096,
		SendBuffer:     8,
	}
}

func startHub(t *testing.T, cfg config.WebSocketConfig) *Hub {
	t.Helper()
	h := NewHub(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func recv(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestHub_BroadcastReachesSessionSubscribers(t *testing.T) {
	h := startHub(t, testConfig())

	a := NewClient("a", h, nil, testConfig())
	b := NewClient("b", h, nil, testConfig())
	other := NewClient("c", h, nil, testConfig())
	for _, c := range []*Client{a, b, other} {
		h.Register(c)
	}
	h.JoinSession(a, "s1")
	h.JoinSession(b, "s1")
	h.JoinSession(other, "s2")
	assert.Equal(t, 2, h.SessionClientCount("s1"))

	require.NoError(t, h.BroadcastToSession("s1", map[string]string{"type": "state"}))

	for _, c := range []*Client{a, b} {
		var msg map[string]string
		require.NoError(t, json.Unmarshal(recv(t, c), &msg))
		assert.Equal(t, "state", msg["type"])
	}
	assert.Empty(t, other.Send)
}

func TestHub_JoinSessionMovesClient(t *testing.T) {
	h := startHub(t, testConfig())
	c := NewClient("a", h, nil, testConfig())
	h.Register(c)

	h.JoinSession(c, "s1")
	h.JoinSession(c, "s2")

	assert.Equal(t, "s2", c.SessionID())
	assert.Equal(t, 0, h.SessionClientCount("s1"))
	assert.Equal(t, 1, h.SessionClientCount("s2"))

	h.LeaveSession(c)
	assert.Empty(t, c.SessionID())
	assert.Equal(t, 0, h.SessionClientCount("s2"))
}

func TestHub_UnregisterClosesClient(t *testing.T) {
	h := startHub(t, testConfig())
	c := NewClient("a", h, nil, testConfig())
	h.Register(c)
	h.JoinSession(c, "s1")

	h.Unregister(c)

	assert.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-c.Send
	assert.False(t, ok)
	assert.Equal(t, 0, h.SessionClientCount("s1"))
	assert.NoError(t, c.SendMessage(map[string]string{"type": "late"}))
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	cfg := testConfig()
	cfg.SendBuffer = 1
	h := startHub(t, cfg)

	c := NewClient("slow", h, nil, cfg)
	h.Register(c)
	h.JoinSession(c, "s1")

	h.BroadcastRawToSession("s1", []byte(`1`), "")
	h.BroadcastRawToSession("s1", []byte(`2`), "")

	assert.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_ExcludeSkipsSender(t *testing.T) {
	h := startHub(t, testConfig())
	a := NewClient("a", h, nil, testConfig())
	b := NewClient("b", h, nil, testConfig())
	h.Register(a)
	h.Register(b)
	h.JoinSession(a, "s1")
	h.JoinSession(b, "s1")

	h.BroadcastRawToSession("s1", []byte(`"hello"`), "a")

	assert.Equal(t, []byte(`"hello"`), recv(t, b))
	assert.Empty(t, a.Send)
}

func TestHub_StopClosesClientsAndRejectsNewOnes(t *testing.T) {
	h := NewHub(testConfig())
	done := make(chan struct{})
	go func() {
		h.Run(context.Background())
		close(done)
	}()

	c := NewClient("a", h, nil, testConfig())
	h.Register(c)

	h.Stop()
	h.Stop()
	<-done

	_, ok := <-c.Send
	assert.False(t, ok)

	late := NewClient("late", h, nil, testConfig())
	h.Register(late)
	_, ok = <-late.Send
	assert.False(t, ok)

	h.BroadcastRawToSession("s1", []byte(`x`), "")
}
