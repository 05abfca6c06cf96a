package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/FJNU-NISA/WelcomeSystem/domain"
	"github.com/FJNU-NISA/WelcomeSystem/domain/entities"
	"github.com/FJNU-NISA/WelcomeSystem/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// levelService implements level administration
type levelService struct {
	levelRepo interfaces.LevelRepository
}

// NewLevelService creates a new level service
func NewLevelService(levelRepo interfaces.LevelRepository) interfaces.LevelService {
	return &levelService{levelRepo: levelRepo}
}

// CreateLevel validates and inserts a level. Names are unique.
func (s *levelService) CreateLevel(ctx context.Context, input interfaces.LevelInput) (*entities.Level, error) {
	name, err := s.checkName(ctx, input.Name, 0)
	if err != nil {
		return nil, err
	}
	if input.Points <= 0 {
		return nil, fmt.Errorf("%w: points must be positive", domain.ErrInvalidLevel)
	}

	level := &entities.Level{
		Name:        name,
		Description: input.Description,
		Points:      input.Points,
		IsActive:    input.IsActive,
		SortOrder:   input.SortOrder,
	}
	if err := s.levelRepo.Create(ctx, level); err != nil {
		return nil, fmt.Errorf("failed to create level: %w", err)
	}

	log.WithFields(log.Fields{
		"levelID": level.ID,
		"name":    level.Name,
		"points":  level.Points,
	}).Info("Created level")

	return level, nil
}

// UpdateLevel applies a partial update. Points already awarded stay in the
// ledger as they were.
func (s *levelService) UpdateLevel(ctx context.Context, id int64, patch interfaces.LevelPatch) (*entities.Level, error) {
	level, err := s.getLevel(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name, err := s.checkName(ctx, *patch.Name, id)
		if err != nil {
			return nil, err
		}
		level.Name = name
	}
	if patch.Description != nil {
		level.Description = *patch.Description
	}
	if patch.Points != nil {
		if *patch.Points <= 0 {
			return nil, fmt.Errorf("%w: points must be positive", domain.ErrInvalidLevel)
		}
		level.Points = *patch.Points
	}
	if patch.IsActive != nil {
		level.IsActive = *patch.IsActive
	}
	if patch.SortOrder != nil {
		level.SortOrder = *patch.SortOrder
	}

	if err := s.levelRepo.Update(ctx, level); err != nil {
		return nil, fmt.Errorf("failed to update level: %w", err)
	}
	return level, nil
}

// ToggleLevel flips the active flag. Inactive levels reject new completions.
func (s *levelService) ToggleLevel(ctx context.Context, id int64) (*entities.Level, error) {
	level, err := s.getLevel(ctx, id)
	if err != nil {
		return nil, err
	}

	level.IsActive = !level.IsActive
	if err := s.levelRepo.Update(ctx, level); err != nil {
		return nil, fmt.Errorf("failed to toggle level: %w", err)
	}

	log.WithFields(log.Fields{
		"levelID":  level.ID,
		"isActive": level.IsActive,
	}).Info("Toggled level")

	return level, nil
}

// DeleteLevel removes a level. Completion marks go with it; ledger entries
// keep the copied level name.
func (s *levelService) DeleteLevel(ctx context.Context, id int64) error {
	deleted, err := s.levelRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete level: %w", err)
	}
	if !deleted {
		return domain.ErrLevelNotFound
	}

	log.WithField("levelID", id).Info("Deleted level")
	return nil
}

func (s *levelService) ListLevels(ctx context.Context) ([]*entities.Level, error) {
	levels, err := s.levelRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get levels: %w", err)
	}
	return levels, nil
}

func (s *levelService) getLevel(ctx context.Context, id int64) (*entities.Level, error) {
	level, err := s.levelRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get level: %w", err)
	}
	if level == nil {
		return nil, domain.ErrLevelNotFound
	}
	return level, nil
}

// checkName trims name and rejects it when empty or taken by another level
func (s *levelService) checkName(ctx context.Context, name string, selfID int64) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", domain.ErrInvalidLevel)
	}

	levels, err := s.levelRepo.GetAll(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get levels: %w", err)
	}
	for _, l := range levels {
		if l.ID != selfID && l.Name == name {
			return "", fmt.Errorf("%w: name %q already exists", domain.ErrInvalidLevel, name)
		}
	}
	return name, nil
}
