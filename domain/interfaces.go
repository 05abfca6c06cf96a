package domain

import (
	"context"

	"github.com/FJNU-NISA/WelcomeSystem/domain/events"
)

// EventSubscriber lets the application layer react to events without
// depending on the transport that delivers them
type EventSubscriber interface {
	Subscribe(eventType events.EventType, handler func(context.Context, events.Event) error) error
}
