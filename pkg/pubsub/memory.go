package pubsub

import (
	"context"
	"errors"
	"path"
	"sync"
)

// ErrClosed is returned when publishing to or subscribing on a closed bus.
var ErrClosed = errors.New("pubsub: closed")

type memorySubscription struct {
	key     string
	pattern bool
	ch      chan *Event
	once    sync.Once
}

func (s *memorySubscription) matches(channel string) bool {
	if !s.pattern {
		return s.key == channel
	}
	ok, err := path.Match(s.key, channel)
	return err == nil && ok
}

func (s *memorySubscription) close() {
	s.once.Do(func() { close(s.ch) })
}

// MemoryPubSub implements PubSub in-process. Patterns use path.Match
// syntax, so "live:session:*:events" matches every session channel.
type MemoryPubSub struct {
	subscriptions map[string]*memorySubscription
	mu            sync.RWMutex
	closed        bool
}

// NewMemoryPubSub creates an in-process PubSub instance.
func NewMemoryPubSub() *MemoryPubSub {
	return &MemoryPubSub{
		subscriptions: make(map[string]*memorySubscription),
	}
}

// Publish delivers the event to every matching subscription.
// Full subscriber buffers drop the event rather than block the publisher.
func (m *MemoryPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}

	for _, sub := range m.subscriptions {
		if !sub.matches(channel) {
			continue
		}
		select {
		case sub.ch <- event:
		case <-ctx.Done():
			return ctx.Err()
		default:
			// Channel full, skip message
		}
	}
	return nil
}

// Subscribe subscribes to a specific channel.
func (m *MemoryPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	return m.subscribe(ctx, channel, false)
}

// SubscribePattern subscribes to channels matching a pattern.
func (m *MemoryPubSub) SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, err
	}
	return m.subscribe(ctx, pattern, true)
}

func (m *MemoryPubSub) subscribe(ctx context.Context, key string, pattern bool) (<-chan *Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	if existing, ok := m.subscriptions[key]; ok {
		existing.close()
	}

	sub := &memorySubscription{
		key:     key,
		pattern: pattern,
		ch:      make(chan *Event, 100),
	}
	m.subscriptions[key] = sub

	go func() {
		<-ctx.Done()
		m.remove(sub)
	}()

	return sub.ch, nil
}

func (m *MemoryPubSub) remove(sub *memorySubscription) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.subscriptions[sub.key]; ok && current == sub {
		delete(m.subscriptions, sub.key)
	}
	sub.close()
}

// Unsubscribe unsubscribes from a channel or pattern.
func (m *MemoryPubSub) Unsubscribe(ctx context.Context, channel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sub, ok := m.subscriptions[channel]; ok {
		sub.close()
		delete(m.subscriptions, channel)
	}
	return nil
}

// Close closes every subscription. Further publishes fail with ErrClosed.
func (m *MemoryPubSub) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, sub := range m.subscriptions {
		sub.close()
		delete(m.subscriptions, key)
	}
	m.closed = true
	return nil
}
