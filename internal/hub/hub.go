package hub

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
	"github.com/weiawesome/oidi-live/internal/config"
	"github.com/weiawesome/oidi-live/internal/metrics"
	pkglog "github.com/weiawesome/oidi-live/pkg/log"
)

// Hub fans session updates out to the websocket clients watching them.
type Hub struct {
	clients    map[string]*Client
	sessions   map[string]map[string]*Client // sessionID -> clientID -> client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *SessionMessage
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	config     config.WebSocketConfig
	logger     zerolog.Logger
}

// SessionMessage is a message to be broadcast to a session's subscribers.
type SessionMessage struct {
	SessionID string
	Message   []byte
	Exclude   string // Client ID to exclude from broadcast
}

// NewHub creates a new Hub.
func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		sessions:   make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *SessionMessage, 256),
		done:       make(chan struct{}),
		config:     cfg,
		logger:     pkglog.Component("hub"),
	}
}

// Run starts the hub's main loop. It returns when ctx is done or Stop is
// called, closing every client on the way out.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			metrics.ClientConnected()
			h.logger.Debug().Str(pkglog.FieldClientID, client.ID).Msg("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				h.leaveLocked(client)
				delete(h.clients, client.ID)
				client.closeSend()
				metrics.ClientDisconnected()
			}
			h.mu.Unlock()
			h.logger.Debug().Str(pkglog.FieldClientID, client.ID).Msg("client unregistered")

		case msg := <-h.broadcast:
			h.mu.RLock()
			for clientID, client := range h.sessions[msg.SessionID] {
				if clientID == msg.Exclude {
					continue
				}
				if !client.trySend(msg.Message) {
					// Client's send buffer is full
					go h.removeClient(client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Stop makes Run return. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) shutdown() {
	h.Stop()

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		client.closeSend()
		delete(h.clients, id)
		metrics.ClientDisconnected()
	}
	h.sessions = make(map[string]map[string]*Client)
	h.logger.Info().Msg("hub stopped")
}

// Register adds a client to the hub. A client registered after Stop is
// closed immediately.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.closeSend()
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) removeClient(client *Client) {
	h.Unregister(client)
}

// JoinSession subscribes a client to a session, leaving any previous one.
func (h *Hub) JoinSession(client *Client, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveLocked(client)
	if _, ok := h.sessions[sessionID]; !ok {
		h.sessions[sessionID] = make(map[string]*Client)
	}
	h.sessions[sessionID][client.ID] = client
	client.setSessionID(sessionID)

	h.logger.Info().
		Str(pkglog.FieldClientID, client.ID).
		Str(pkglog.FieldSessionID, sessionID).
		Msg("client joined session")
}

// LeaveSession drops the client's current subscription, if any.
func (h *Hub) LeaveSession(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(client)
}

func (h *Hub) leaveLocked(client *Client) {
	sessionID := client.SessionID()
	if sessionID == "" {
		return
	}
	if sessionClients, ok := h.sessions[sessionID]; ok {
		delete(sessionClients, client.ID)
		if len(sessionClients) == 0 {
			delete(h.sessions, sessionID)
		}
	}
	client.setSessionID("")
}

// BroadcastToSession sends a message to all clients watching a session.
func (h *Hub) BroadcastToSession(sessionID string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	h.BroadcastRawToSession(sessionID, data, "")
	return nil
}

// BroadcastRawToSession sends raw bytes to all clients watching a session.
// Messages sent after Stop are dropped.
func (h *Hub) BroadcastRawToSession(sessionID string, data []byte, exclude string) {
	select {
	case h.broadcast <- &SessionMessage{SessionID: sessionID, Message: data, Exclude: exclude}:
	case <-h.done:
	}
}

// SessionClientCount returns how many clients watch a session.
func (h *Hub) SessionClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
