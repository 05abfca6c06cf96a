package application

import (
	"context"

	"github.com/FJNU-NISA/WelcomeSystem/domain/entities"
	"github.com/FJNU-NISA/WelcomeSystem/domain/interfaces"
	"github.com/FJNU-NISA/WelcomeSystem/domain/services"
	"github.com/FJNU-NISA/WelcomeSystem/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// LotteryHandler runs draws and redemption bookkeeping
type LotteryHandler struct {
	runner       *TransactionRunner
	drawCost     int64
	stockRetries int
	random       services.RandomSource
}

// NewLotteryHandler creates a new lottery handler. A nil random source uses
// crypto/rand.
func NewLotteryHandler(runner *TransactionRunner, drawCost int64, stockRetries int, random services.RandomSource) *LotteryHandler {
	if random == nil {
		random = services.NewCryptoRandomSource()
	}
	return &LotteryHandler{
		runner:       runner,
		drawCost:     drawCost,
		stockRetries: stockRetries,
		random:       random,
	}
}

// Draw debits the configured draw cost and resolves one prize
func (h *LotteryHandler) Draw(ctx context.Context, userID string) (*interfaces.DrawResult, error) {
	var result *interfaces.DrawResult
	err := h.runner.Run(ctx, "draw", log.Fields{"userID": userID, "intendedDelta": -h.drawCost}, func(uow interfaces.UnitOfWork) error {
		lottery := services.NewLotteryService(
			uow.PrizeRepository(),
			uow.UserRepository(),
			uow.LedgerRepository(),
			uow.PrizeOwnershipRepository(),
			uow.EventBus(),
			h.random,
			h.stockRetries,
		)

		var err error
		result, err = lottery.Draw(ctx, userID, h.drawCost)
		return err
	})

	metrics := observability.GetMetrics()
	if err != nil {
		metrics.RecordDraw(observability.OutcomeError)
		return nil, err
	}

	if result.IsFiller {
		metrics.RecordDraw(observability.OutcomeFiller)
	} else {
		metrics.RecordDraw(observability.OutcomePrize)
	}
	metrics.RecordStockRetries(int64(result.Attempts - 1))

	return result, nil
}

// ToggleRedemption flips an owned prize between redeemed and unredeemed
func (h *LotteryHandler) ToggleRedemption(ctx context.Context, userID string, ownershipID int64, operator string) (*entities.PrizeOwnership, error) {
	var ownership *entities.PrizeOwnership
	err := h.runner.Run(ctx, "toggle_redemption", log.Fields{"userID": userID, "ownershipID": ownershipID}, func(uow interfaces.UnitOfWork) error {
		redemption := services.NewRedemptionService(uow.PrizeOwnershipRepository(), uow.PrizeRepository(), uow.EventBus())

		var err error
		ownership, err = redemption.ToggleRedemption(ctx, userID, ownershipID, operator)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ownership, nil
}

// OwnedPrizes lists the prizes a user has won
func (h *LotteryHandler) OwnedPrizes(ctx context.Context, userID string) ([]*entities.PrizeOwnership, error) {
	var owned []*entities.PrizeOwnership
	err := h.runner.Run(ctx, "owned_prizes", log.Fields{"userID": userID}, func(uow interfaces.UnitOfWork) error {
		redemption := services.NewRedemptionService(uow.PrizeOwnershipRepository(), uow.PrizeRepository(), uow.EventBus())

		var err error
		owned, err = redemption.OwnedPrizes(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return owned, nil
}
