package application

import (
	"context"
	"time"

	"github.com/FJNU-NISA/WelcomeSystem/domain/events"
)

// LocalHandlerRegistry runs handlers in-process for published events
type LocalHandlerRegistry interface {
	RegisterLocalHandler(eventType events.EventType, handler func(ctx context.Context, event events.Event) error)
}

// JobScheduler runs periodic jobs
type JobScheduler interface {
	AddIntervalJob(name string, interval time.Duration, fn func(ctx context.Context) error) error
}
