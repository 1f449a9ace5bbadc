package simulator

import "context"

// EventSink receives the events a session emits (see domain.Event* types).
// Errors are logged by the simulator and never stop the session.
type EventSink interface {
	Emit(ctx context.Context, sessionID, eventType string, payload interface{}) error
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, sessionID, eventType string, payload interface{}) error

func (f EventSinkFunc) Emit(ctx context.Context, sessionID, eventType string, payload interface{}) error {
	return f(ctx, sessionID, eventType, payload)
}

type nopSink struct{}

func (nopSink) Emit(context.Context, string, string, interface{}) error { return nil }
