package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/FJNU-NISA/WelcomeSystem/domain"
	"github.com/FJNU-NISA/WelcomeSystem/domain/entities"
	"github.com/FJNU-NISA/WelcomeSystem/domain/events"
	"github.com/FJNU-NISA/WelcomeSystem/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// prizePoolService implements prize administration and filler weight derivation
type prizePoolService struct {
	prizeRepo      interfaces.PrizeRepository
	eventPublisher interfaces.EventPublisher
}

// NewPrizePoolService creates a new prize pool service
func NewPrizePoolService(
	prizeRepo interfaces.PrizeRepository,
	eventPublisher interfaces.EventPublisher,
) interfaces.PrizePoolService {
	return &prizePoolService{
		prizeRepo:      prizeRepo,
		eventPublisher: eventPublisher,
	}
}

// RecomputeFillerWeight re-derives the filler weight from the current pool.
// An overweight pool is reported as an error and the filler is left untouched.
func (s *prizePoolService) RecomputeFillerWeight(ctx context.Context, reason string) (*entities.PrizePoolSummary, error) {
	if err := s.prizeRepo.LockPool(ctx); err != nil {
		return nil, fmt.Errorf("failed to lock prize pool: %w", err)
	}
	return s.recompute(ctx, reason, nil)
}

func (s *prizePoolService) recompute(ctx context.Context, reason string, changedID *int64) (*entities.PrizePoolSummary, error) {
	prizes, err := s.prizeRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get prizes: %w", err)
	}

	normalSum := NormalWeightSum(prizes, nil)
	if err := CheckWeightCap(normalSum); err != nil {
		log.WithFields(log.Fields{
			"normalWeightSum": normalSum,
			"reason":          reason,
		}).Error("Active prize weights exceed the pool cap, filler not recomputed")
		return nil, err
	}

	var filler *entities.Prize
	for _, p := range prizes {
		if p.IsFiller {
			filler = p
			break
		}
	}
	if filler == nil {
		log.WithField("reason", reason).Warn("No filler prize present, skipping weight derivation")
		return SummarizePool(prizes), nil
	}

	weight := DeriveFillerWeight(normalSum)
	active := weight > 0
	if err := s.prizeRepo.SetFillerState(ctx, weight, active); err != nil {
		return nil, fmt.Errorf("failed to store filler weight: %w", err)
	}
	filler.Weight = weight
	filler.IsActive = active

	summary := SummarizePool(prizes)

	log.WithFields(log.Fields{
		"reason":          reason,
		"normalWeightSum": normalSum,
		"fillerWeight":    weight,
		"fillerActive":    active,
	}).Info("Recomputed filler prize weight")

	if err := s.eventPublisher.Publish(events.PrizePoolChangedEvent{
		Reason:          reason,
		PrizeID:         changedID,
		NormalWeightSum: normalSum,
		FillerWeight:    weight,
		FillerActive:    active,
	}); err != nil {
		log.WithError(err).Error("Failed to publish prize pool changed event")
	}

	return summary, nil
}

// EnsureFillerPrize creates the filler if the pool has none. It refuses to
// do so while the active weights already exceed the cap.
func (s *prizePoolService) EnsureFillerPrize(ctx context.Context) (*entities.Prize, error) {
	if err := s.prizeRepo.LockPool(ctx); err != nil {
		return nil, fmt.Errorf("failed to lock prize pool: %w", err)
	}

	filler, err := s.prizeRepo.GetFiller(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get filler prize: %w", err)
	}

	if filler == nil {
		prizes, err := s.prizeRepo.FindAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get prizes: %w", err)
		}
		normalSum := NormalWeightSum(prizes, nil)
		if err := CheckWeightCap(normalSum); err != nil {
			return nil, err
		}

		weight := DeriveFillerWeight(normalSum)
		filler = &entities.Prize{
			Name:        entities.FillerPrizeName,
			Description: "No prize this time",
			Stock:       entities.FillerPrizeStock,
			Weight:      weight,
			IsActive:    weight > 0,
			IsFiller:    true,
		}
		if err := s.prizeRepo.Create(ctx, filler); err != nil {
			return nil, fmt.Errorf("failed to create filler prize: %w", err)
		}
		log.WithFields(log.Fields{
			"prizeID": filler.ID,
			"weight":  weight,
		}).Info("Created filler prize")
	}

	if _, err := s.recompute(ctx, "ensure_filler", &filler.ID); err != nil {
		return nil, err
	}

	return s.prizeRepo.GetFiller(ctx)
}

// CreatePrize validates and inserts a normal prize
func (s *prizePoolService) CreatePrize(ctx context.Context, input interfaces.PrizeInput) (*entities.Prize, error) {
	if input.IsFiller {
		return nil, fmt.Errorf("%w: the filler prize is managed automatically", domain.ErrFillerExists)
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidPrize)
	}
	if input.Stock < 0 {
		return nil, fmt.Errorf("%w: stock must not be negative", domain.ErrInvalidPrize)
	}

	if err := s.prizeRepo.LockPool(ctx); err != nil {
		return nil, fmt.Errorf("failed to lock prize pool: %w", err)
	}

	if err := s.checkWeight(ctx, input.Weight, input.IsActive, nil); err != nil {
		return nil, err
	}

	prize := &entities.Prize{
		Name:        name,
		Description: input.Description,
		Photo:       input.Photo,
		Stock:       input.Stock,
		Weight:      input.Weight,
		IsActive:    input.IsActive,
	}
	if err := s.prizeRepo.Create(ctx, prize); err != nil {
		return nil, fmt.Errorf("failed to create prize: %w", err)
	}

	if _, err := s.recompute(ctx, "prize_created", &prize.ID); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"prizeID": prize.ID,
		"name":    prize.Name,
		"weight":  prize.Weight,
		"stock":   prize.Stock,
	}).Info("Created prize")

	return prize, nil
}

// UpdatePrize applies a partial update. The filler's weight and active flag
// are derived and cannot be patched.
func (s *prizePoolService) UpdatePrize(ctx context.Context, id int64, patch interfaces.PrizePatch) (*entities.Prize, error) {
	if err := s.prizeRepo.LockPool(ctx); err != nil {
		return nil, fmt.Errorf("failed to lock prize pool: %w", err)
	}

	prize, err := s.getPrize(ctx, id)
	if err != nil {
		return nil, err
	}

	if prize.IsFiller && (patch.Weight != nil || patch.IsActive != nil) {
		return nil, fmt.Errorf("%w: filler weight and active flag are derived", domain.ErrFillerProtected)
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidPrize)
		}
		prize.Name = name
	}
	if patch.Description != nil {
		prize.Description = *patch.Description
	}
	if patch.Photo != nil {
		prize.Photo = *patch.Photo
	}
	if patch.Stock != nil {
		if *patch.Stock < 0 {
			return nil, fmt.Errorf("%w: stock must not be negative", domain.ErrInvalidPrize)
		}
		prize.Stock = *patch.Stock
	}
	if patch.Weight != nil {
		prize.Weight = *patch.Weight
	}
	if patch.IsActive != nil {
		prize.IsActive = *patch.IsActive
	}

	if !prize.IsFiller {
		if err := s.checkWeight(ctx, prize.Weight, prize.IsActive, &prize.ID); err != nil {
			return nil, err
		}
	}

	if err := s.prizeRepo.Update(ctx, prize); err != nil {
		return nil, fmt.Errorf("failed to update prize: %w", err)
	}

	if !prize.IsFiller {
		if _, err := s.recompute(ctx, "prize_updated", &prize.ID); err != nil {
			return nil, err
		}
	}

	return prize, nil
}

// DeletePrize removes a prize definition. The filler can only be deleted
// when it is the last prize left.
func (s *prizePoolService) DeletePrize(ctx context.Context, id int64) error {
	if err := s.prizeRepo.LockPool(ctx); err != nil {
		return fmt.Errorf("failed to lock prize pool: %w", err)
	}

	prize, err := s.getPrize(ctx, id)
	if err != nil {
		return err
	}

	if prize.IsFiller {
		count, err := s.prizeRepo.Count(ctx)
		if err != nil {
			return fmt.Errorf("failed to count prizes: %w", err)
		}
		if count > 1 {
			return fmt.Errorf("%w: filler cannot be deleted while other prizes exist", domain.ErrFillerProtected)
		}
	}

	deleted, err := s.prizeRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete prize: %w", err)
	}
	if !deleted {
		return domain.ErrPrizeNotFound
	}

	log.WithFields(log.Fields{
		"prizeID": id,
		"name":    prize.Name,
	}).Info("Deleted prize")

	if !prize.IsFiller {
		if _, err := s.recompute(ctx, "prize_deleted", &id); err != nil {
			return err
		}
	}
	return nil
}

// TogglePrize flips the active flag. Activating a normal prize is subject
// to the weight cap. The filler may only be toggled into the state its
// derived weight already implies.
func (s *prizePoolService) TogglePrize(ctx context.Context, id int64) (*entities.Prize, error) {
	if err := s.prizeRepo.LockPool(ctx); err != nil {
		return nil, fmt.Errorf("failed to lock prize pool: %w", err)
	}

	prize, err := s.getPrize(ctx, id)
	if err != nil {
		return nil, err
	}

	target := !prize.IsActive

	if prize.IsFiller {
		prizes, err := s.prizeRepo.FindAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get prizes: %w", err)
		}
		derived := DeriveFillerWeight(NormalWeightSum(prizes, nil))
		if target != (derived > 0) {
			return nil, fmt.Errorf("%w: filler weight is %.4f", domain.ErrFillerProtected, derived)
		}
		if err := s.prizeRepo.SetFillerState(ctx, derived, target); err != nil {
			return nil, fmt.Errorf("failed to store filler state: %w", err)
		}
		prize.Weight = derived
		prize.IsActive = target
		return prize, nil
	}

	if err := s.checkWeight(ctx, prize.Weight, target, &prize.ID); err != nil {
		return nil, err
	}

	prize.IsActive = target
	if err := s.prizeRepo.Update(ctx, prize); err != nil {
		return nil, fmt.Errorf("failed to update prize: %w", err)
	}

	if _, err := s.recompute(ctx, "prize_toggled", &prize.ID); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"prizeID":  prize.ID,
		"isActive": prize.IsActive,
	}).Info("Toggled prize")

	return prize, nil
}

// ValidateWeightChange reports whether an active prize with newWeight fits
// beside the other active prizes, ignoring excludeID
func (s *prizePoolService) ValidateWeightChange(ctx context.Context, newWeight float64, excludeID *int64) error {
	return s.checkWeight(ctx, newWeight, true, excludeID)
}

func (s *prizePoolService) checkWeight(ctx context.Context, weight float64, active bool, excludeID *int64) error {
	if math.IsNaN(weight) || !entities.ValidWeight(weight) {
		return fmt.Errorf("%w: %v is outside 0-100", domain.ErrInvalidWeight, weight)
	}
	if !active {
		return nil
	}

	prizes, err := s.prizeRepo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to get prizes: %w", err)
	}
	return CheckWeightCap(NormalWeightSum(prizes, excludeID) + weight)
}

// ProbabilitySummary describes the current pool without modifying it
func (s *prizePoolService) ProbabilitySummary(ctx context.Context) (*entities.PrizePoolSummary, error) {
	prizes, err := s.prizeRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get prizes: %w", err)
	}
	return SummarizePool(prizes), nil
}

func (s *prizePoolService) ListPrizes(ctx context.Context) ([]*entities.Prize, error) {
	prizes, err := s.prizeRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get prizes: %w", err)
	}
	return prizes, nil
}

func (s *prizePoolService) getPrize(ctx context.Context, id int64) (*entities.Prize, error) {
	prize, err := s.prizeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get prize: %w", err)
	}
	if prize == nil {
		return nil, domain.ErrPrizeNotFound
	}
	return prize, nil
}
