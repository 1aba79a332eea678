package services

import (
	"sync"

	"github.com/weightandsee/core/internal/domain/entities"
	"github.com/weightandsee/core/internal/ports"
)

// EventHub fans change and message events out to subscribers. Listeners
// run synchronously on the publishing goroutine, in subscription order.
type EventHub struct {
	mu       sync.RWMutex
	nextID   int
	changes  []changeSub
	messages []messageSub
}

type changeSub struct {
	id int
	fn func(entities.ChangeEvent)
}

type messageSub struct {
	id int
	fn func(entities.Message)
}

// NewEventHub creates an empty event hub
func NewEventHub() *EventHub {
	return &EventHub{}
}

var (
	_ ports.EventPublisher  = (*EventHub)(nil)
	_ ports.EventSubscriber = (*EventHub)(nil)
)

// SubscribeChanges registers fn for change events.
func (h *EventHub) SubscribeChanges(fn func(entities.ChangeEvent)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	h.changes = append(h.changes, changeSub{id: id, fn: fn})

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, sub := range h.changes {
			if sub.id == id {
				h.changes = append(h.changes[:i:i], h.changes[i+1:]...)
				return
			}
		}
	}
}

// SubscribeMessages registers fn for user-facing messages.
func (h *EventHub) SubscribeMessages(fn func(entities.Message)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	h.messages = append(h.messages, messageSub{id: id, fn: fn})

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, sub := range h.messages {
			if sub.id == id {
				h.messages = append(h.messages[:i:i], h.messages[i+1:]...)
				return
			}
		}
	}
}

// PublishChange delivers event to every change subscriber.
func (h *EventHub) PublishChange(event entities.ChangeEvent) {
	h.mu.RLock()
	subs := append([]changeSub(nil), h.changes...)
	h.mu.RUnlock()

	for _, sub := range subs {
		sub.fn(event)
	}
}

// PublishMessage delivers msg to every message subscriber.
func (h *EventHub) PublishMessage(msg entities.Message) {
	h.mu.RLock()
	subs := append([]messageSub(nil), h.messages...)
	h.mu.RUnlock()

	for _, sub := range subs {
		sub.fn(msg)
	}
}
