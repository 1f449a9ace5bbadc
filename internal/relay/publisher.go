package relay

import (
	"context"
	"fmt"

	"github.com/weiawesome/oidi-live/internal/metrics"
	"github.com/weiawesome/oidi-live/pkg/pubsub"
)

// Publisher turns simulator events into bus events on the session's channel.
// It satisfies simulator.EventSink.
type Publisher struct {
	bus pubsub.Publisher
}

func NewPublisher(bus pubsub.Publisher) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) Emit(ctx context.Context, sessionID, eventType string, payload interface{}) error {
	event, err := pubsub.NewEvent(eventType, sessionID, payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}

	if err := p.bus.Publish(ctx, pubsub.SessionEventsChannel(sessionID), event); err != nil {
		metrics.EventPublishFailed(eventType)
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	metrics.EventEmitted(eventType)
	return nil
}
