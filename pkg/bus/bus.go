// Package bus is the in-process message bus between the coordinator and its
// surfaces. Requests are dispatched to a single registered handler (the
// coordinator); notifications are fanned out to every subscriber with
// at-most-once, best-effort delivery — a subscriber that cannot keep up
// loses notifications rather than blocking the publisher. Surfaces must
// therefore reconstruct state through an explicit query on (re)start.
package bus

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/Tranthanh98/screenshot-ai/pkg/types"
)

// ErrNoHandler is returned by Send when no request handler is registered.
var ErrNoHandler = errors.New("bus: no request handler registered")

// DefaultSubscriberBuffer is the notification channel capacity handed to
// subscribers that pass 0.
const DefaultSubscriberBuffer = 16

// Handler processes a single request and returns its response payload.
type Handler func(ctx context.Context, req types.Request) (interface{}, error)

// Bus routes requests to one handler and broadcasts notifications to all
// subscribers.
type Bus struct {
	mu      sync.RWMutex
	handler Handler
	subs    map[string]chan types.Notification
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		subs: make(map[string]chan types.Notification),
	}
}

// SetHandler registers the request handler. The last registration wins;
// passing nil removes the handler.
func (b *Bus) SetHandler(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = h
}

// Send delivers a request to the handler and returns its response.
func (b *Bus) Send(ctx context.Context, req types.Request) (interface{}, error) {
	b.mu.RLock()
	h := b.handler
	b.mu.RUnlock()

	if h == nil {
		return nil, ErrNoHandler
	}
	return h(ctx, req)
}

// Subscribe registers a notification channel with the given buffer (0 uses
// DefaultSubscriberBuffer). The returned id unsubscribes via Unsubscribe.
func (b *Bus) Subscribe(buffer int) (string, <-chan types.Notification) {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}

	id := uuid.New().String()
	ch := make(chan types.Notification, buffer)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel. Unknown ids are
// a no-op.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish broadcasts a notification to every subscriber without blocking.
// A full subscriber buffer drops the notification for that subscriber.
func (b *Bus) Publish(n types.Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- n:
		default:
		}
	}
}

// SubscriberCount reports the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close unsubscribes everyone and drops the handler.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	b.handler = nil
}
