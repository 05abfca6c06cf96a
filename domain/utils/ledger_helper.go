package utils

import (
	"context"
	"fmt"

	"github.com/FJNU-NISA/WelcomeSystem/domain/entities"
	"github.com/FJNU-NISA/WelcomeSystem/domain/events"
	"github.com/FJNU-NISA/WelcomeSystem/domain/interfaces"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// RecordPointChange applies entry.PointsChange to the user's wallet, appends
// the entry to the ledger and publishes a PointsChangedEvent.
// This is the single entry point for all point changes in the system. Both
// writes must run inside the same transaction so the cached balance and the
// ledger move together.
func RecordPointChange(
	ctx context.Context,
	userRepo interfaces.UserRepository,
	ledgerRepo interfaces.LedgerRepository,
	eventPublisher interfaces.EventPublisher,
	entry *entities.LedgerEntry,
) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid ledger entry: %w", err)
	}

	newBalance, err := userRepo.ApplyPointsDelta(ctx, entry.UserID, entry.PointsChange)
	if err != nil {
		return fmt.Errorf("failed to apply points delta: %w", err)
	}
	entry.BalanceAfter = newBalance
	entry.BalanceBefore = newBalance - entry.PointsChange

	if err := ledgerRepo.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	event := events.PointsChangedEvent{
		UserID:       entry.UserID,
		RecordID:     entry.ID,
		Kind:         entry.Kind,
		OldBalance:   entry.BalanceBefore,
		NewBalance:   entry.BalanceAfter,
		ChangeAmount: entry.PointsChange,
		Operator:     entry.Operator,
	}
	log.WithFields(log.Fields{
		"userID":       event.UserID,
		"recordID":     event.RecordID,
		"kind":         event.Kind,
		"oldBalance":   event.OldBalance,
		"newBalance":   event.NewBalance,
		"changeAmount": event.ChangeAmount,
	}).Debug("Publishing PointsChangedEvent")
	if err := eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish points changed event")
	}

	return nil
}
