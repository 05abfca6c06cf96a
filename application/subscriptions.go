package application

import (
	"context"
	"fmt"

	"github.com/FJNU-NISA/WelcomeSystem/domain"
	"github.com/FJNU-NISA/WelcomeSystem/domain/events"
)

// RegisterApplicationSubscriptions wires inbound events to their use cases
func RegisterApplicationSubscriptions(subscriber domain.EventSubscriber, ledger *LedgerHandler) error {
	levelHandler := NewLevelCompletionHandler(ledger)

	if err := subscriber.Subscribe(events.EventTypeLevelCompletionReported,
		func(ctx context.Context, event events.Event) error {
			return levelHandler.HandleLevelCompletion(ctx, event)
		}); err != nil {
		return fmt.Errorf("failed to subscribe to level completions: %w", err)
	}

	return nil
}

// RegisterMetricsHandlers records committed domain events as metrics
func RegisterMetricsHandlers(registry LocalHandlerRegistry) {
	registry.RegisterLocalHandler(events.EventTypePointsChanged, HandlePointsChangedMetrics)
	registry.RegisterLocalHandler(events.EventTypeLedgerEntryRevoked, HandleLedgerEntryRevokedMetrics)
	registry.RegisterLocalHandler(events.EventTypePrizePoolChanged, HandlePrizePoolChangedMetrics)
}
