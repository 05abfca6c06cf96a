package services

import (
	"context"
	"fmt"
	"time"

	"github.com/FJNU-NISA/WelcomeSystem/domain"
	"github.com/FJNU-NISA/WelcomeSystem/domain/entities"
	"github.com/FJNU-NISA/WelcomeSystem/domain/events"
	"github.com/FJNU-NISA/WelcomeSystem/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// redemptionService tracks which won prizes were handed out
type redemptionService struct {
	ownershipRepo  interfaces.PrizeOwnershipRepository
	prizeRepo      interfaces.PrizeRepository
	eventPublisher interfaces.EventPublisher
}

// NewRedemptionService creates a new redemption service
func NewRedemptionService(
	ownershipRepo interfaces.PrizeOwnershipRepository,
	prizeRepo interfaces.PrizeRepository,
	eventPublisher interfaces.EventPublisher,
) interfaces.RedemptionService {
	return &redemptionService{
		ownershipRepo:  ownershipRepo,
		prizeRepo:      prizeRepo,
		eventPublisher: eventPublisher,
	}
}

// ToggleRedemption flips the redeemed flag of an owned prize and moves the
// prize's redeemed counter with it
func (s *redemptionService) ToggleRedemption(ctx context.Context, userID string, ownershipID int64, operator string) (*entities.PrizeOwnership, error) {
	ownership, err := s.ownershipRepo.GetByIDForUpdate(ctx, userID, ownershipID)
	if err != nil {
		return nil, fmt.Errorf("failed to get prize ownership: %w", err)
	}
	if ownership == nil {
		return nil, domain.ErrOwnershipNotFound
	}

	now := time.Now().UTC()
	redeemed := !ownership.Redeemed
	if err := s.ownershipRepo.SetRedeemed(ctx, userID, ownershipID, redeemed, operator, now); err != nil {
		return nil, fmt.Errorf("failed to update redemption: %w", err)
	}

	ownership.Redeemed = redeemed
	if redeemed {
		ownership.RedeemedBy = &operator
		ownership.RedeemedAt = &now
	} else {
		ownership.RedeemedBy = nil
		ownership.RedeemedAt = nil
	}

	// The prize definition may have been deleted since the draw
	if ownership.PrizeID != nil {
		delta := int64(1)
		if !redeemed {
			delta = -1
		}
		if err := s.prizeRepo.IncrementCounter(ctx, *ownership.PrizeID, interfaces.PrizeCounterRedeemed, delta); err != nil {
			return nil, fmt.Errorf("failed to update redeemed counter: %w", err)
		}
	}

	if err := s.eventPublisher.Publish(events.PrizeRedemptionToggledEvent{
		UserID:      userID,
		OwnershipID: ownershipID,
		PrizeID:     ownership.PrizeID,
		Redeemed:    redeemed,
		Operator:    operator,
	}); err != nil {
		log.WithError(err).Error("Failed to publish prize redemption event")
	}

	log.WithFields(log.Fields{
		"userID":      userID,
		"ownershipID": ownershipID,
		"redeemed":    redeemed,
		"operator":    operator,
	}).Info("Toggled prize redemption")

	return ownership, nil
}

func (s *redemptionService) OwnedPrizes(ctx context.Context, userID string) ([]*entities.PrizeOwnership, error) {
	owned, err := s.ownershipRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get owned prizes: %w", err)
	}
	return owned, nil
}
