package service

import (
	"context"
	"errors"

	"github.com/weiawesome/oidi-live/internal/domain"
)

// ErrSessionNotFound is returned for unknown or deleted session ids.
var ErrSessionNotFound = errors.New("session not found")

// LiveService defines the interface for managing simulated live sessions.
type LiveService interface {
	// StartSession creates a session and puts host on air.
	StartSession(ctx context.Context, host, avatar string) (*domain.SessionInfo, error)

	// RestartSession puts an ended session back on air.
	RestartSession(ctx context.Context, sessionID, host, avatar string) (*domain.SessionInfo, error)

	// EndSession takes a session off air. Its final state stays readable.
	EndSession(ctx context.Context, sessionID string) (*domain.SessionInfo, error)

	// DeleteSession ends a session and forgets it.
	DeleteSession(ctx context.Context, sessionID string) error

	GetSession(ctx context.Context, sessionID string) (*domain.SessionInfo, error)
	ListSessions(ctx context.Context) []*domain.SessionInfo

	// Snapshot returns everything a websocket subscriber needs to render a session.
	Snapshot(ctx context.Context, sessionID string) (*domain.SubscribedMessage, error)

	AddComment(ctx context.Context, sessionID, username, message string) (domain.Comment, error)
	AddHeart(ctx context.Context, sessionID string, position float64) (domain.HeartMarker, error)
	RemoveJoiner(ctx context.Context, sessionID, username string) error

	// AdjustViewers adds delta viewers (negative removes) and returns the new count.
	AdjustViewers(ctx context.Context, sessionID string, delta int) (int, error)

	SetCameraEffect(ctx context.Context, sessionID string, effect domain.CameraEffect) error
	SetStreamQuality(ctx context.Context, sessionID string, quality domain.StreamQuality) error

	// ToggleFlash switches the session camera's torch. Failures come back as
	// *simulator.TorchError alongside the updated torch status.
	ToggleFlash(ctx context.Context, sessionID string, enabled bool) (domain.TorchStatus, error)

	Viewers(ctx context.Context, sessionID string) ([]domain.Viewer, error)
	Hearts(ctx context.Context, sessionID string) ([]domain.HeartMarker, error)

	// Stop ends and forgets every session.
	Stop()
}
