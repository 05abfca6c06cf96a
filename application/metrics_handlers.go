package application

import (
	"context"

	"github.com/FJNU-NISA/WelcomeSystem/domain/events"
	"github.com/FJNU-NISA/WelcomeSystem/infrastructure/observability"
)

func HandlePointsChangedMetrics(ctx context.Context, event events.Event) error {
	if e, ok := event.(events.PointsChangedEvent); ok {
		observability.GetMetrics().RecordLedgerEntry(string(e.Kind))
	}
	return nil
}

func HandleLedgerEntryRevokedMetrics(ctx context.Context, event events.Event) error {
	if e, ok := event.(events.LedgerEntryRevokedEvent); ok {
		observability.GetMetrics().RecordRevoke(string(e.RevokedKind))
	}
	return nil
}

// HandlePrizePoolChangedMetrics exports the current filler weight as a gauge
func HandlePrizePoolChangedMetrics(ctx context.Context, event events.Event) error {
	if e, ok := event.(events.PrizePoolChangedEvent); ok {
		observability.GetMetrics().RecordFillerWeight(e.FillerWeight)
	}
	return nil
}
