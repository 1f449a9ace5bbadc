package domain

import (
	"encoding/json"
	"time"
)

// WebSocket message types from client.
const (
	MsgTypeSubscribe    = "subscribe"
	MsgTypeComment      = "comment"
	MsgTypeHeart        = "heart"
	MsgTypeRemoveJoiner = "remove_joiner"
	MsgTypeViewersUp    = "viewers_up"
	MsgTypeViewersDown  = "viewers_down"
	MsgTypePing         = "ping"
)

// WebSocket message types to client.
const (
	MsgTypeSubscribed = "subscribed"
	MsgTypeState      = "state"
	MsgTypeViewers    = "viewers"
	MsgTypeHearts     = "hearts"
	MsgTypeTorch      = "torch"
	MsgTypeEvent      = "event"
	MsgTypeError      = "error"
	MsgTypePong       = "pong"
)

// Error codes
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeNotSubscribed = "NOT_SUBSCRIBED"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeTorchFailed   = "TORCH_FAILED"
)

// BaseMessage is the base structure for all WebSocket messages.
type BaseMessage struct {
	Type string `json:"type"`
}

// Client -> Server messages

type SubscribeMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

type CommentMessage struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

type HeartMessage struct {
	Type     string  `json:"type"`
	Position float64 `json:"position"`
}

type RemoveJoinerMessage struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

// ViewerAdjustMessage drives viewers_up / viewers_down. Amount defaults to DefaultViewerStep.
type ViewerAdjustMessage struct {
	Type   string `json:"type"`
	Amount int    `json:"amount,omitempty"`
}

// DefaultViewerStep is the manual viewer adjustment used when no amount is given.
const DefaultViewerStep = 10

// Server -> Client messages

type SubscribedMessage struct {
	Type      string        `json:"type"`
	SessionID string        `json:"session_id"`
	State     SessionState  `json:"state"`
	Viewers   []Viewer      `json:"viewers"`
	Hearts    []HeartMarker `json:"hearts"`
}

type StateMessage struct {
	Type      string       `json:"type"`
	SessionID string       `json:"session_id"`
	State     SessionState `json:"state"`
	Label     string       `json:"viewer_count_label"`
}

type ViewersMessage struct {
	Type      string   `json:"type"`
	SessionID string   `json:"session_id"`
	Viewers   []Viewer `json:"viewers"`
}

type HeartsMessage struct {
	Type      string        `json:"type"`
	SessionID string        `json:"session_id"`
	Hearts    []HeartMarker `json:"hearts"`
}

type TorchMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id"`
	Torch     TorchStatus `json:"torch"`
}

// EventMessage relays one bus event to websocket subscribers.
type EventMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}

// SessionInfo is the API view of one session.
type SessionInfo struct {
	SessionID        string         `json:"session_id"`
	State            SessionState   `json:"state"`
	ViewerCountLabel string         `json:"viewer_count_label"`
	Quality          QualityProfile `json:"quality_profile"`
	Torch            TorchStatus    `json:"torch"`
	CreatedAt        time.Time      `json:"created_at"`
}

// TorchStatus reports the flash state and the last toggle failure, if any.
type TorchStatus struct {
	On        bool   `json:"on"`
	Failures  int    `json:"failures"`
	LastError string `json:"last_error,omitempty"`
}

// NewSessionInfo builds the API view of a session snapshot.
func NewSessionInfo(id string, st SessionState, torch TorchStatus, createdAt time.Time) *SessionInfo {
	return &SessionInfo{
		SessionID:        id,
		State:            st,
		ViewerCountLabel: FormatViewerCount(st.ViewerCount),
		Quality:          st.StreamQuality.Profile(),
		Torch:            torch,
		CreatedAt:        createdAt,
	}
}
