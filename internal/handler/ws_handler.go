package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/weiawesome/oidi-live/internal/config"
	"github.com/weiawesome/oidi-live/internal/domain"
	"github.com/weiawesome/oidi-live/internal/hub"
	"github.com/weiawesome/oidi-live/internal/service"
	pkglog "github.com/weiawesome/oidi-live/pkg/log"
)

// WSHandler handles websocket connections watching live sessions.
type WSHandler struct {
	hub      *hub.Hub
	service  service.LiveService
	wsCfg    config.WebSocketConfig
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WebSocket handler.
func NewWSHandler(h *hub.Hub, svc service.LiveService, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:     h,
		service: svc,
		wsCfg:   wsCfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for now
			},
		},
	}
}

func (h *WSHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/live/ws", h.HandleWebSocket)
}

// HandleWebSocket handles WebSocket upgrade and connection.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	l := pkglog.Ctx(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), h.hub, conn, h.wsCfg)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.handleMessage)
}

func (h *WSHandler) handleMessage(c *hub.Client, message []byte) {
	ctx := context.Background()

	var base domain.BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		c.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "invalid message format"))
		return
	}

	switch base.Type {
	case domain.MsgTypeSubscribe:
		var msg domain.SubscribeMessage
		if err := json.Unmarshal(message, &msg); err != nil || msg.SessionID == "" {
			c.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "session_id is required"))
			return
		}
		snapshot, err := h.service.Snapshot(ctx, msg.SessionID)
		if err != nil {
			h.sendError(c, err)
			return
		}
		h.hub.JoinSession(c, msg.SessionID)
		c.SendMessage(snapshot)

	case domain.MsgTypeComment:
		var msg domain.CommentMessage
		if err := json.Unmarshal(message, &msg); err != nil || msg.Username == "" || msg.Message == "" {
			c.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "username and message are required"))
			return
		}
		h.withSession(c, func(id string) error {
			_, err := h.service.AddComment(ctx, id, msg.Username, msg.Message)
			return err
		})

	case domain.MsgTypeHeart:
		var msg domain.HeartMessage
		if err := json.Unmarshal(message, &msg); err != nil || msg.Position < 0 || msg.Position > 1 {
			c.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "position must be between 0 and 1"))
			return
		}
		h.withSession(c, func(id string) error {
			_, err := h.service.AddHeart(ctx, id, msg.Position)
			return err
		})

	case domain.MsgTypeRemoveJoiner:
		var msg domain.RemoveJoinerMessage
		if err := json.Unmarshal(message, &msg); err != nil || msg.Username == "" {
			c.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "username is required"))
			return
		}
		h.withSession(c, func(id string) error {
			return h.service.RemoveJoiner(ctx, id, msg.Username)
		})

	case domain.MsgTypeViewersUp, domain.MsgTypeViewersDown:
		var msg domain.ViewerAdjustMessage
		if err := json.Unmarshal(message, &msg); err != nil || msg.Amount < 0 {
			c.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "amount must not be negative"))
			return
		}
		amount := msg.Amount
		if amount == 0 {
			amount = domain.DefaultViewerStep
		}
		if base.Type == domain.MsgTypeViewersDown {
			amount = -amount
		}
		h.withSession(c, func(id string) error {
			_, err := h.service.AdjustViewers(ctx, id, amount)
			return err
		})

	case domain.MsgTypePing:
		c.SendMessage(map[string]string{"type": domain.MsgTypePong})

	default:
		c.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "unknown message type: "+base.Type))
	}
}

// withSession runs fn against the client's subscribed session.
func (h *WSHandler) withSession(c *hub.Client, fn func(sessionID string) error) {
	id := c.SessionID()
	if id == "" {
		c.SendMessage(domain.NewErrorMessage(domain.ErrCodeNotSubscribed, "subscribe to a session first"))
		return
	}
	if err := fn(id); err != nil {
		h.sendError(c, err)
	}
}

func (h *WSHandler) sendError(c *hub.Client, err error) {
	if errors.Is(err, service.ErrSessionNotFound) {
		c.SendMessage(domain.NewErrorMessage(domain.ErrCodeNotFound, err.Error()))
		return
	}
	l := pkglog.Component("ws")
	l.Error().Err(err).Str(pkglog.FieldClientID, c.ID).Msg("websocket request failed")
	c.SendMessage(domain.NewErrorMessage(domain.ErrCodeInternalError, "internal error"))
}
