package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/FJNU-NISA/WelcomeSystem/domain"
	"github.com/FJNU-NISA/WelcomeSystem/domain/entities"
	"github.com/FJNU-NISA/WelcomeSystem/domain/events"
	"github.com/FJNU-NISA/WelcomeSystem/domain/interfaces"
	"github.com/FJNU-NISA/WelcomeSystem/domain/utils"

	log "github.com/sirupsen/logrus"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// pointLedgerService implements the append-only point ledger
type pointLedgerService struct {
	userRepo       interfaces.UserRepository
	ledgerRepo     interfaces.LedgerRepository
	levelRepo      interfaces.LevelRepository
	eventPublisher interfaces.EventPublisher
}

// NewPointLedgerService creates a new point ledger service
func NewPointLedgerService(
	userRepo interfaces.UserRepository,
	ledgerRepo interfaces.LedgerRepository,
	levelRepo interfaces.LevelRepository,
	eventPublisher interfaces.EventPublisher,
) interfaces.PointLedgerService {
	return &pointLedgerService{
		userRepo:       userRepo,
		ledgerRepo:     ledgerRepo,
		levelRepo:      levelRepo,
		eventPublisher: eventPublisher,
	}
}

// Append creates a ledger entry and applies its delta to the wallet.
// Revoke entries can only be produced by Revoke.
func (s *pointLedgerService) Append(ctx context.Context, req interfaces.AppendRequest) (*entities.LedgerEntry, error) {
	if req.Kind == entities.TransactionKindRevoke {
		return nil, fmt.Errorf("revoke entries must be created through Revoke")
	}

	if err := s.requireUser(ctx, req.UserID); err != nil {
		return nil, err
	}

	entry := &entities.LedgerEntry{
		UserID:       req.UserID,
		Kind:         req.Kind,
		PointsChange: req.Delta,
		Reason:       req.Reason,
		Operator:     req.Operator,
		LevelID:      req.LevelID,
		LevelName:    req.LevelName,
		PrizeID:      req.PrizeID,
		PrizeName:    req.PrizeName,
		Metadata:     req.Metadata,
	}
	if entry.Reason == "" {
		entry.Reason = req.Kind.Description()
	}

	if err := utils.RecordPointChange(ctx, s.userRepo, s.ledgerRepo, s.eventPublisher, entry); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"userID":   entry.UserID,
		"recordID": entry.ID,
		"kind":     entry.Kind,
		"delta":    entry.PointsChange,
		"operator": entry.Operator,
	}).Info("Appended ledger entry")

	return entry, nil
}

// Revoke appends a compensating entry for recordID and reverses the side
// effects of the target. Revoking a revoke entry restores the entry it had
// reversed.
func (s *pointLedgerService) Revoke(ctx context.Context, userID, recordID, operator, reason string) (*interfaces.RevokeResult, error) {
	// Lock the wallet first so concurrent revokes for the same user serialise
	user, err := s.userRepo.GetByIDForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	target, err := s.ledgerRepo.GetByIDForUpdate(ctx, userID, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	if target == nil {
		return nil, domain.ErrRecordNotFound
	}
	if target.Revoked {
		return nil, domain.ErrAlreadyRevoked
	}

	now := time.Now().UTC()
	restored, err := s.reverse(ctx, target, operator, now)
	if err != nil {
		return nil, err
	}

	originalKind := target.Kind
	if strings.TrimSpace(reason) == "" {
		reason = fmt.Sprintf("Revoke %s record %s", strings.ToLower(target.Kind.Description()), target.ID)
	}
	entry := &entities.LedgerEntry{
		UserID:           userID,
		Kind:             entities.TransactionKindRevoke,
		PointsChange:     target.CompensatingDelta(),
		Reason:           reason,
		Operator:         operator,
		OriginalRecordID: &target.ID,
		OriginalKind:     &originalKind,
		LevelID:          target.LevelID,
		LevelName:        target.LevelName,
		PrizeID:          target.PrizeID,
		PrizeName:        target.PrizeName,
	}
	if err := utils.RecordPointChange(ctx, s.userRepo, s.ledgerRepo, s.eventPublisher, entry); err != nil {
		return nil, fmt.Errorf("failed to record compensating entry: %w", err)
	}

	if err := s.eventPublisher.Publish(events.LedgerEntryRevokedEvent{
		UserID:           userID,
		RevokedRecordID:  target.ID,
		RevokedKind:      target.Kind,
		NewRecordID:      entry.ID,
		AppliedDelta:     entry.PointsChange,
		RestoredRecordID: restored,
		Operator:         operator,
	}); err != nil {
		log.WithError(err).Error("Failed to publish ledger entry revoked event")
	}

	log.WithFields(log.Fields{
		"userID":       userID,
		"revokedID":    target.ID,
		"revokedKind":  target.Kind,
		"newRecordID":  entry.ID,
		"appliedDelta": entry.PointsChange,
		"newBalance":   entry.BalanceAfter,
		"operator":     operator,
	}).Info("Revoked ledger entry")

	return &interfaces.RevokeResult{
		AppliedDelta:     entry.PointsChange,
		NewRecordID:      entry.ID,
		RevokedRecordID:  target.ID,
		RestoredRecordID: restored,
		NewBalance:       entry.BalanceAfter,
	}, nil
}

// reverse marks entry revoked and undoes the side effects it carried. When
// entry is a revoke it returns the ID of the entry it restored, if any.
func (s *pointLedgerService) reverse(ctx context.Context, entry *entities.LedgerEntry, operator string, at time.Time) (*string, error) {
	marked, err := s.ledgerRepo.MarkRevoked(ctx, entry.UserID, entry.ID, operator, at)
	if err != nil {
		return nil, fmt.Errorf("failed to mark entry revoked: %w", err)
	}
	if !marked {
		return nil, domain.ErrAlreadyRevoked
	}

	switch entry.Kind {
	case entities.TransactionKindLevelCompletion:
		if entry.LevelID == nil {
			return nil, nil
		}
		removed, err := s.userRepo.RemoveCompletedLevel(ctx, entry.UserID, *entry.LevelID)
		if err != nil {
			return nil, fmt.Errorf("failed to remove completed level: %w", err)
		}
		if !removed {
			log.WithFields(log.Fields{
				"userID":  entry.UserID,
				"levelID": *entry.LevelID,
			}).Warn("Completed level was already absent while revoking")
		}
	case entities.TransactionKindRevoke:
		return s.restore(ctx, entry)
	}
	return nil, nil
}

// restore clears the revoked flag on the entry a revoke had reversed and
// re-applies its side effects. A missing original is logged and skipped so
// the compensating entry still lands.
func (s *pointLedgerService) restore(ctx context.Context, revoke *entities.LedgerEntry) (*string, error) {
	if revoke.OriginalRecordID == nil {
		return nil, fmt.Errorf("revoke entry %s has no original record", revoke.ID)
	}

	original, err := s.ledgerRepo.GetByIDForUpdate(ctx, revoke.UserID, *revoke.OriginalRecordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get original entry: %w", err)
	}
	if original == nil {
		log.WithFields(log.Fields{
			"userID":     revoke.UserID,
			"revokeID":   revoke.ID,
			"originalID": *revoke.OriginalRecordID,
		}).Warn("Original entry not found, skipping restore")
		return nil, nil
	}

	restored, err := s.ledgerRepo.RestoreRevoked(ctx, original.UserID, original.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to restore original entry: %w", err)
	}
	if !restored {
		log.WithFields(log.Fields{
			"userID":     original.UserID,
			"originalID": original.ID,
		}).Warn("Original entry was not marked revoked")
	}

	switch original.Kind {
	case entities.TransactionKindLevelCompletion:
		if original.LevelID != nil {
			if _, err := s.userRepo.AddCompletedLevel(ctx, original.UserID, *original.LevelID); err != nil {
				return nil, fmt.Errorf("failed to restore completed level: %w", err)
			}
		}
	case entities.TransactionKindRevoke:
		// The restored entry is itself a revoke, so its own target is
		// reversed again
		if original.OriginalRecordID == nil {
			break
		}
		inner, err := s.ledgerRepo.GetByIDForUpdate(ctx, original.UserID, *original.OriginalRecordID)
		if err != nil {
			return nil, fmt.Errorf("failed to get original entry: %w", err)
		}
		if inner == nil || inner.Revoked {
			break
		}
		by := revoke.Operator
		if original.RevokedBy != nil {
			by = *original.RevokedBy
		}
		if _, err := s.reverse(ctx, inner, by, time.Now().UTC()); err != nil {
			return nil, err
		}
	}
	return &original.ID, nil
}

// ManualAdjust appends an admin adjustment. A zero delta is rejected.
func (s *pointLedgerService) ManualAdjust(ctx context.Context, userID string, delta int64, reason, operator string) (*entities.LedgerEntry, error) {
	if delta == 0 {
		return nil, fmt.Errorf("%w: adjustment must be non-zero", domain.ErrInvalidAmount)
	}
	return s.Append(ctx, interfaces.AppendRequest{
		UserID:   userID,
		Kind:     entities.TransactionKindManual,
		Delta:    delta,
		Reason:   reason,
		Operator: operator,
	})
}

// AwardLevel records a level completion and credits its points
func (s *pointLedgerService) AwardLevel(ctx context.Context, userID string, levelID int64, operator string) (*entities.LedgerEntry, error) {
	level, err := s.levelRepo.GetByID(ctx, levelID)
	if err != nil {
		return nil, fmt.Errorf("failed to get level: %w", err)
	}
	if level == nil {
		return nil, domain.ErrLevelNotFound
	}
	if !level.IsActive {
		return nil, domain.ErrLevelInactive
	}

	user, err := s.userRepo.GetByIDForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	added, err := s.userRepo.AddCompletedLevel(ctx, userID, levelID)
	if err != nil {
		return nil, fmt.Errorf("failed to add completed level: %w", err)
	}
	if !added {
		return nil, domain.ErrLevelAlreadyCompleted
	}

	levelName := level.Name
	entry := &entities.LedgerEntry{
		UserID:       userID,
		Kind:         entities.TransactionKindLevelCompletion,
		PointsChange: level.Points,
		Reason:       fmt.Sprintf("Completed level: %s", level.Name),
		Operator:     operator,
		LevelID:      &level.ID,
		LevelName:    &levelName,
	}
	if err := utils.RecordPointChange(ctx, s.userRepo, s.ledgerRepo, s.eventPublisher, entry); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"userID":  userID,
		"levelID": levelID,
		"points":  level.Points,
	}).Info("Awarded level completion")

	return entry, nil
}

// History returns the newest entries first
func (s *pointLedgerService) History(ctx context.Context, userID string, limit int) ([]*entities.LedgerEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	entries, err := s.ledgerRepo.GetByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger history: %w", err)
	}
	return entries, nil
}

func (s *pointLedgerService) requireUser(ctx context.Context, userID string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return domain.ErrUserNotFound
	}
	return nil
}
