package memory

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"cmseditor/application/ports"
	"cmseditor/domain/events"
)

// EventBus delivers events synchronously to in-process subscribers and
// keeps a copy of everything published
type EventBus struct {
	mu        sync.RWMutex
	handlers  map[string][]ports.EventHandler
	published []events.DomainEvent
	logger    *zap.Logger
}

func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{handlers: make(map[string][]ports.EventHandler), logger: logger}
}

func (b *EventBus) Publish(ctx context.Context, event events.DomainEvent) error {
	return b.PublishBatch(ctx, []events.DomainEvent{event})
}

func (b *EventBus) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	b.mu.Lock()
	b.published = append(b.published, evts...)
	b.mu.Unlock()

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, event := range evts {
		for _, h := range b.handlers[event.GetEventType()] {
			if !h.CanHandle(event.GetEventType()) {
				continue
			}
			if err := h.Handle(ctx, event); err != nil {
				b.logger.Warn("Event handler failed",
					zap.String("eventType", event.GetEventType()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

func (b *EventBus) Subscribe(eventType string, handler ports.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

func (b *EventBus) Unsubscribe(eventType string, handler ports.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.handlers[eventType]
	for i, h := range list {
		if h == handler {
			b.handlers[eventType] = append(list[:i], list[i+1:]...)
			break
		}
	}
	return nil
}

// Published returns the events seen so far
func (b *EventBus) Published() []events.DomainEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]events.DomainEvent(nil), b.published...)
}

// PublishedTypes returns the event types seen so far in order
func (b *EventBus) PublishedTypes() []string {
	var out []string
	for _, e := range b.Published() {
		out = append(out, e.GetEventType())
	}
	return out
}
