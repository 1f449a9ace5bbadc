// Package relay moves session events between the simulator, the event bus
// and the websocket hub.
package relay

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/weiawesome/oidi-live/internal/domain"
	pkglog "github.com/weiawesome/oidi-live/pkg/log"
	"github.com/weiawesome/oidi-live/pkg/pubsub"
)

var errSubscriptionClosed = errors.New("subscription closed")

// Broadcaster delivers a message to every websocket client watching a session.
type Broadcaster interface {
	BroadcastToSession(sessionID string, message interface{}) error
}

// Relay subscribes to every session's event channel and forwards the events
// to local websocket clients, so any instance sharing the bus sees them.
type Relay struct {
	bus         pubsub.Subscriber
	broadcaster Broadcaster
	retry       time.Duration
	logger      zerolog.Logger
	doneCh      chan struct{}
}

func NewRelay(bus pubsub.Subscriber, b Broadcaster) *Relay {
	return &Relay{
		bus:         bus,
		broadcaster: b,
		retry:       2 * time.Second,
		logger:      pkglog.Component("relay"),
		doneCh:      make(chan struct{}),
	}
}

// Done returns a channel that is closed when Run() exits.
func (r *Relay) Done() <-chan struct{} { return r.doneCh }

// Run forwards events until ctx is done, resubscribing when the
// subscription drops.
func (r *Relay) Run(ctx context.Context) {
	defer close(r.doneCh)

	for {
		err := r.runSubscription(ctx)
		if ctx.Err() != nil {
			return
		}
		r.logger.Warn().Err(err).Dur("retry", r.retry).Msg("event subscription lost, resubscribing")

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.retry):
		}
	}
}

func (r *Relay) runSubscription(ctx context.Context) error {
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := r.bus.SubscribePattern(subCtx, pubsub.PatternSessionEvents)
	if err != nil {
		return err
	}
	r.logger.Info().Str(pkglog.FieldChannel, pubsub.PatternSessionEvents).Msg("relaying session events")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-ch:
			if !ok {
				return errSubscriptionClosed
			}
			r.handleEvent(event)
		}
	}
}

func (r *Relay) handleEvent(event *pubsub.Event) {
	if event == nil || event.SessionID == "" {
		return
	}

	msg := &domain.EventMessage{
		Type:      domain.MsgTypeEvent,
		SessionID: event.SessionID,
		Event:     event.Type,
		Payload:   event.Payload,
		Timestamp: event.Timestamp.UnixMilli(),
	}
	if err := r.broadcaster.BroadcastToSession(event.SessionID, msg); err != nil {
		r.logger.Error().Err(err).
			Str(pkglog.FieldSessionID, event.SessionID).
			Str(pkglog.FieldEventType, event.Type).
			Msg("broadcast event failed")
	}
}
