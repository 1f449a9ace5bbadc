package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiawesome/oidi-live/internal/config"
	"github.com/weiawesome/oidi-live/internal/domain"
	"github.com/weiawesome/oidi-live/internal/hub"
	"github.com/weiawesome/oidi-live/internal/service"
)

type wsEnv struct {
	svc service.LiveService
	url string
}

func newWSEnv(t *testing.T) *wsEnv {
	t.Helper()
	wsCfg := config.WebSocketConfig{
		PingInterval:   time.Second,
		PongWait:       5 * time.Second,
		WriteWait:      time.Second,
		MaxMessageSize: 4096,
		SendBuffer:     256,
	}

	h := hub.NewHub(wsCfg)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	svc := service.NewLiveService(h, nil, service.Config{Simulator: quietSimulator(), FlashUnit: true})

	router := mux.NewRouter()
	NewWSHandler(h, svc, wsCfg).RegisterRoutes(router)
	srv := httptest.NewServer(router)

	t.Cleanup(func() {
		srv.Close()
		svc.Stop()
		cancel()
	})
	return &wsEnv{svc: svc, url: "ws" + strings.TrimPrefix(srv.URL, "http") + "/live/ws"}
}

func (e *wsEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(e.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads messages until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, msgType string, match func([]byte) bool) []byte {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", msgType)

		var base domain.BaseMessage
		require.NoError(t, json.Unmarshal(data, &base))
		if base.Type == msgType && (match == nil || match(data)) {
			return data
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func TestWS_Ping(t *testing.T) {
	env := newWSEnv(t)
	conn := env.dial(t)

	send(t, conn, map[string]string{"type": domain.MsgTypePing})
	readUntil(t, conn, domain.MsgTypePong, nil)
}

func TestWS_RequiresSubscription(t *testing.T) {
	env := newWSEnv(t)
	conn := env.dial(t)

	send(t, conn, domain.CommentMessage{Type: domain.MsgTypeComment, Username: "a", Message: "b"})
	data := readUntil(t, conn, domain.MsgTypeError, nil)

	var msg domain.ErrorMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, domain.ErrCodeNotSubscribed, msg.Code)
}

func TestWS_SubscribeUnknownSession(t *testing.T) {
	env := newWSEnv(t)
	conn := env.dial(t)

	send(t, conn, domain.SubscribeMessage{Type: domain.MsgTypeSubscribe, SessionID: "missing"})
	data := readUntil(t, conn, domain.MsgTypeError, nil)

	var msg domain.ErrorMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, domain.ErrCodeNotFound, msg.Code)
}

func TestWS_SubscribeAndComment(t *testing.T) {
	env := newWSEnv(t)
	info, err := env.svc.StartSession(context.Background(), "wanjiku", "")
	require.NoError(t, err)

	conn := env.dial(t)
	send(t, conn, domain.SubscribeMessage{Type: domain.MsgTypeSubscribe, SessionID: info.SessionID})

	var subscribed domain.SubscribedMessage
	require.NoError(t, json.Unmarshal(readUntil(t, conn, domain.MsgTypeSubscribed, nil), &subscribed))
	assert.Equal(t, info.SessionID, subscribed.SessionID)
	assert.Equal(t, "wanjiku", subscribed.State.HostUsername)
	assert.Len(t, subscribed.Viewers, 10)

	send(t, conn, domain.CommentMessage{Type: domain.MsgTypeComment, Username: "kamau_254", Message: "Pole pole"})
	readUntil(t, conn, domain.MsgTypeState, func(data []byte) bool {
		var msg domain.StateMessage
		if json.Unmarshal(data, &msg) != nil {
			return false
		}
		for _, c := range msg.State.Comments {
			if c.Message == "Pole pole" {
				return true
			}
		}
		return false
	})

	send(t, conn, domain.HeartMessage{Type: domain.MsgTypeHeart, Position: 0.5})
	readUntil(t, conn, domain.MsgTypeHearts, func(data []byte) bool {
		var msg domain.HeartsMessage
		return json.Unmarshal(data, &msg) == nil && len(msg.Hearts) > 0
	})
}
