package application

import (
	"context"

	"github.com/FJNU-NISA/WelcomeSystem/domain/entities"
	"github.com/FJNU-NISA/WelcomeSystem/domain/interfaces"
	"github.com/FJNU-NISA/WelcomeSystem/domain/services"

	log "github.com/sirupsen/logrus"
)

// LevelAdminHandler wraps level administration in units of work
type LevelAdminHandler struct {
	runner *TransactionRunner
}

func NewLevelAdminHandler(runner *TransactionRunner) *LevelAdminHandler {
	return &LevelAdminHandler{runner: runner}
}

func (h *LevelAdminHandler) levels(uow interfaces.UnitOfWork) interfaces.LevelService {
	return services.NewLevelService(uow.LevelRepository())
}

func (h *LevelAdminHandler) CreateLevel(ctx context.Context, input interfaces.LevelInput) (*entities.Level, error) {
	var level *entities.Level
	err := h.runner.Run(ctx, "create_level", log.Fields{"name": input.Name, "points": input.Points}, func(uow interfaces.UnitOfWork) error {
		var err error
		level, err = h.levels(uow).CreateLevel(ctx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return level, nil
}

func (h *LevelAdminHandler) UpdateLevel(ctx context.Context, id int64, patch interfaces.LevelPatch) (*entities.Level, error) {
	var level *entities.Level
	err := h.runner.Run(ctx, "update_level", log.Fields{"levelID": id}, func(uow interfaces.UnitOfWork) error {
		var err error
		level, err = h.levels(uow).UpdateLevel(ctx, id, patch)
		return err
	})
	if err != nil {
		return nil, err
	}
	return level, nil
}

func (h *LevelAdminHandler) ToggleLevel(ctx context.Context, id int64) (*entities.Level, error) {
	var level *entities.Level
	err := h.runner.Run(ctx, "toggle_level", log.Fields{"levelID": id}, func(uow interfaces.UnitOfWork) error {
		var err error
		level, err = h.levels(uow).ToggleLevel(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return level, nil
}

func (h *LevelAdminHandler) DeleteLevel(ctx context.Context, id int64) error {
	return h.runner.Run(ctx, "delete_level", log.Fields{"levelID": id}, func(uow interfaces.UnitOfWork) error {
		return h.levels(uow).DeleteLevel(ctx, id)
	})
}

func (h *LevelAdminHandler) ListLevels(ctx context.Context) ([]*entities.Level, error) {
	var levels []*entities.Level
	err := h.runner.Run(ctx, "list_levels", nil, func(uow interfaces.UnitOfWork) error {
		var err error
		levels, err = h.levels(uow).ListLevels(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return levels, nil
}
