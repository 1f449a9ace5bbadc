package simulator

import "sync"

// Observable holds a value and broadcasts every new value to its subscribers.
// Subscribers only ever see the latest value: each one owns a single-slot
// channel that is overwritten when it falls behind, so publishers never block.
type Observable[T any] struct {
	mu     sync.Mutex
	value  T
	subs   map[uint64]chan T
	nextID uint64
	closed bool
}

// NewObservable creates an Observable holding initial.
func NewObservable[T any](initial T) *Observable[T] {
	return &Observable[T]{
		value: initial,
		subs:  make(map[uint64]chan T),
	}
}

// Value returns the current value.
func (o *Observable[T]) Value() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.value
}

// Set replaces the value and publishes it.
func (o *Observable[T]) Set(v T) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.value = v
	o.publishLocked()
}

// Update applies fn to the current value atomically and publishes the result.
// fn runs under the observable's lock and must not call back into it.
func (o *Observable[T]) Update(fn func(T) T) T {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.value = fn(o.value)
	o.publishLocked()
	return o.value
}

// Subscribe returns a channel that immediately holds the current value and
// then receives every later value, conflated. The returned func cancels the
// subscription and closes the channel. After Close the channel is closed.
func (o *Observable[T]) Subscribe() (<-chan T, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ch := make(chan T, 1)
	if o.closed {
		close(ch)
		return ch, func() {}
	}

	id := o.nextID
	o.nextID++
	o.subs[id] = ch
	ch <- o.value

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			if c, ok := o.subs[id]; ok {
				delete(o.subs, id)
				close(c)
			}
		})
	}
}

// Subscribers returns the number of live subscriptions.
func (o *Observable[T]) Subscribers() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.subs)
}

// Close closes every subscriber channel. The value stays readable and
// updatable; later updates are simply not broadcast.
func (o *Observable[T]) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	for id, ch := range o.subs {
		delete(o.subs, id)
		close(ch)
	}
}

func (o *Observable[T]) publishLocked() {
	for _, ch := range o.subs {
		select {
		case ch <- o.value:
			continue
		default:
		}
		// Drop the stale value the subscriber has not read yet.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- o.value:
		default:
		}
	}
}
