package infrastructure

import (
	"context"
	"sync"

	"github.com/FJNU-NISA/WelcomeSystem/domain/events"

	log "github.com/sirupsen/logrus"
)

// LocalEventBus dispatches events to in-process handlers only. It is the
// publisher when NATS is disabled.
type LocalEventBus struct {
	mu       sync.RWMutex
	handlers map[events.EventType][]LocalHandler
}

// NewLocalEventBus creates a new local event bus
func NewLocalEventBus() *LocalEventBus {
	return &LocalEventBus{
		handlers: make(map[events.EventType][]LocalHandler),
	}
}

// RegisterLocalHandler adds a handler for a specific event type
func (b *LocalEventBus) RegisterLocalHandler(eventType events.EventType, handler LocalHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type on local event bus")
}

// Publish calls every handler for the event in registration order. A
// failing or panicking handler does not stop the others.
func (b *LocalEventBus) Publish(event events.Event) error {
	b.mu.RLock()
	handlers := make([]LocalHandler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	ctx := context.Background()
	for i, handler := range handlers {
		b.dispatch(ctx, event, i, handler)
	}
	return nil
}

func (b *LocalEventBus) dispatch(ctx context.Context, event events.Event, index int, handler LocalHandler) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"eventType":    event.Type(),
				"handlerIndex": index,
				"panic":        r,
			}).Error("Event handler panicked")
		}
	}()

	if err := handler(ctx, event); err != nil {
		log.WithFields(log.Fields{
			"eventType":    event.Type(),
			"handlerIndex": index,
			"error":        err,
		}).Error("Local event handler failed")
	}
}
