package application

import (
	"context"

	"github.com/FJNU-NISA/WelcomeSystem/domain/entities"
	"github.com/FJNU-NISA/WelcomeSystem/domain/interfaces"
	"github.com/FJNU-NISA/WelcomeSystem/domain/services"

	log "github.com/sirupsen/logrus"
)

// PrizeAdminHandler wraps prize pool administration in units of work
type PrizeAdminHandler struct {
	runner *TransactionRunner
}

func NewPrizeAdminHandler(runner *TransactionRunner) *PrizeAdminHandler {
	return &PrizeAdminHandler{runner: runner}
}

func (h *PrizeAdminHandler) pool(uow interfaces.UnitOfWork) interfaces.PrizePoolService {
	return services.NewPrizePoolService(uow.PrizeRepository(), uow.EventBus())
}

func (h *PrizeAdminHandler) CreatePrize(ctx context.Context, input interfaces.PrizeInput) (*entities.Prize, error) {
	var prize *entities.Prize
	err := h.runner.Run(ctx, "create_prize", log.Fields{"name": input.Name, "weight": input.Weight}, func(uow interfaces.UnitOfWork) error {
		var err error
		prize, err = h.pool(uow).CreatePrize(ctx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return prize, nil
}

func (h *PrizeAdminHandler) UpdatePrize(ctx context.Context, id int64, patch interfaces.PrizePatch) (*entities.Prize, error) {
	var prize *entities.Prize
	err := h.runner.Run(ctx, "update_prize", log.Fields{"prizeID": id}, func(uow interfaces.UnitOfWork) error {
		var err error
		prize, err = h.pool(uow).UpdatePrize(ctx, id, patch)
		return err
	})
	if err != nil {
		return nil, err
	}
	return prize, nil
}

func (h *PrizeAdminHandler) DeletePrize(ctx context.Context, id int64) error {
	return h.runner.Run(ctx, "delete_prize", log.Fields{"prizeID": id}, func(uow interfaces.UnitOfWork) error {
		return h.pool(uow).DeletePrize(ctx, id)
	})
}

func (h *PrizeAdminHandler) TogglePrize(ctx context.Context, id int64) (*entities.Prize, error) {
	var prize *entities.Prize
	err := h.runner.Run(ctx, "toggle_prize", log.Fields{"prizeID": id}, func(uow interfaces.UnitOfWork) error {
		var err error
		prize, err = h.pool(uow).TogglePrize(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return prize, nil
}

// EnsureFillerPrize is run once at startup so the pool always has a filler
func (h *PrizeAdminHandler) EnsureFillerPrize(ctx context.Context) (*entities.Prize, error) {
	var filler *entities.Prize
	err := h.runner.Run(ctx, "ensure_filler", nil, func(uow interfaces.UnitOfWork) error {
		var err error
		filler, err = h.pool(uow).EnsureFillerPrize(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return filler, nil
}

func (h *PrizeAdminHandler) RecomputeFillerWeight(ctx context.Context, reason string) (*entities.PrizePoolSummary, error) {
	var summary *entities.PrizePoolSummary
	err := h.runner.Run(ctx, "recompute_filler", log.Fields{"reason": reason}, func(uow interfaces.UnitOfWork) error {
		var err error
		summary, err = h.pool(uow).RecomputeFillerWeight(ctx, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (h *PrizeAdminHandler) ValidateWeightChange(ctx context.Context, newWeight float64, excludeID *int64) error {
	return h.runner.Run(ctx, "validate_weight", log.Fields{"weight": newWeight}, func(uow interfaces.UnitOfWork) error {
		return h.pool(uow).ValidateWeightChange(ctx, newWeight, excludeID)
	})
}

func (h *PrizeAdminHandler) ProbabilitySummary(ctx context.Context) (*entities.PrizePoolSummary, error) {
	var summary *entities.PrizePoolSummary
	err := h.runner.Run(ctx, "probability_summary", nil, func(uow interfaces.UnitOfWork) error {
		var err error
		summary, err = h.pool(uow).ProbabilitySummary(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// SimulatePool replays trials draws against a snapshot of the active pool
// without touching stock or balances
func (h *PrizeAdminHandler) SimulatePool(ctx context.Context, trials int, random services.RandomSource) (*services.PoolSimulation, error) {
	var active []*entities.Prize
	err := h.runner.Run(ctx, "simulate_pool", log.Fields{"trials": trials}, func(uow interfaces.UnitOfWork) error {
		var err error
		active, err = uow.PrizeRepository().FindActive(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	if random == nil {
		random = services.NewCryptoRandomSource()
	}
	return services.SimulatePool(active, trials, random)
}

func (h *PrizeAdminHandler) ListPrizes(ctx context.Context) ([]*entities.Prize, error) {
	var prizes []*entities.Prize
	err := h.runner.Run(ctx, "list_prizes", nil, func(uow interfaces.UnitOfWork) error {
		var err error
		prizes, err = h.pool(uow).ListPrizes(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return prizes, nil
}
