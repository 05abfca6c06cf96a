package services

import (
	"context"
	"fmt"

	"github.com/FJNU-NISA/WelcomeSystem/domain"
	"github.com/FJNU-NISA/WelcomeSystem/domain/entities"
	"github.com/FJNU-NISA/WelcomeSystem/domain/events"
	"github.com/FJNU-NISA/WelcomeSystem/domain/interfaces"
	"github.com/FJNU-NISA/WelcomeSystem/domain/utils"

	log "github.com/sirupsen/logrus"
)

// lotteryService implements the weighted prize draw
type lotteryService struct {
	prizeRepo      interfaces.PrizeRepository
	userRepo       interfaces.UserRepository
	ledgerRepo     interfaces.LedgerRepository
	ownershipRepo  interfaces.PrizeOwnershipRepository
	eventPublisher interfaces.EventPublisher
	random         RandomSource
	stockRetries   int
}

// NewLotteryService creates a new lottery service. stockRetries bounds how
// many times the pool is re-evaluated after a selected prize sells out
// between reading the pool and decrementing its stock.
func NewLotteryService(
	prizeRepo interfaces.PrizeRepository,
	userRepo interfaces.UserRepository,
	ledgerRepo interfaces.LedgerRepository,
	ownershipRepo interfaces.PrizeOwnershipRepository,
	eventPublisher interfaces.EventPublisher,
	random RandomSource,
	stockRetries int,
) interfaces.LotteryService {
	if random == nil {
		random = NewCryptoRandomSource()
	}
	if stockRetries < 0 {
		stockRetries = 0
	}
	return &lotteryService{
		prizeRepo:      prizeRepo,
		userRepo:       userRepo,
		ledgerRepo:     ledgerRepo,
		ownershipRepo:  ownershipRepo,
		eventPublisher: eventPublisher,
		random:         random,
		stockRetries:   stockRetries,
	}
}

// Draw resolves one prize for the user. The wallet row stays locked for the
// rest of the transaction so concurrent draws by the same user serialise.
func (s *lotteryService) Draw(ctx context.Context, userID string, cost int64) (*interfaces.DrawResult, error) {
	if cost < 0 {
		return nil, fmt.Errorf("%w: draw cost %d is negative", domain.ErrInvalidAmount, cost)
	}

	user, err := s.userRepo.GetByIDForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	if !user.CanAfford(cost) {
		return nil, &domain.InsufficientFundsError{Balance: user.Points, Cost: cost}
	}

	winner, remainingStock, attempts, err := s.claimPrize(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.prizeRepo.IncrementCounter(ctx, winner.ID, interfaces.PrizeCounterDrawn, 1); err != nil {
		return nil, fmt.Errorf("failed to increment drawn counter: %w", err)
	}

	prizeID := winner.ID
	prizeName := winner.Name
	entry := &entities.LedgerEntry{
		UserID:       userID,
		Kind:         entities.TransactionKindLotteryDraw,
		PointsChange: -cost,
		Reason:       fmt.Sprintf("Lottery draw: %s", winner.Name),
		Operator:     userID,
		PrizeID:      &prizeID,
		PrizeName:    &prizeName,
		Metadata: map[string]any{
			"cost":      cost,
			"is_filler": winner.IsFiller,
			"attempts":  attempts,
		},
	}
	if err := utils.RecordPointChange(ctx, s.userRepo, s.ledgerRepo, s.eventPublisher, entry); err != nil {
		return nil, fmt.Errorf("failed to record draw debit: %w", err)
	}

	ownership := &entities.PrizeOwnership{
		UserID:        userID,
		PrizeID:       &prizeID,
		PrizeName:     winner.Name,
		Photo:         winner.Photo,
		IsFiller:      winner.IsFiller,
		LedgerEntryID: entry.ID,
	}
	if err := s.ownershipRepo.Create(ctx, ownership); err != nil {
		return nil, fmt.Errorf("failed to record prize ownership: %w", err)
	}

	drawnEvent := events.PrizeDrawnEvent{
		UserID:           userID,
		PrizeID:          winner.ID,
		PrizeName:        winner.Name,
		IsFiller:         winner.IsFiller,
		RecordID:         entry.ID,
		OwnershipID:      ownership.ID,
		Cost:             cost,
		RemainingBalance: entry.BalanceAfter,
		RemainingStock:   remainingStock,
	}
	if err := s.eventPublisher.Publish(drawnEvent); err != nil {
		log.WithError(err).Error("Failed to publish prize drawn event")
	}

	log.WithFields(log.Fields{
		"userID":           userID,
		"prizeID":          winner.ID,
		"prizeName":        winner.Name,
		"isFiller":         winner.IsFiller,
		"cost":             cost,
		"remainingBalance": entry.BalanceAfter,
		"attempts":         attempts,
	}).Info("Lottery draw completed")

	return &interfaces.DrawResult{
		PrizeID:          winner.ID,
		PrizeName:        winner.Name,
		IsFiller:         winner.IsFiller,
		RemainingBalance: entry.BalanceAfter,
		RecordID:         entry.ID,
		OwnershipID:      ownership.ID,
		Attempts:         attempts,
	}, nil
}

// claimPrize selects a winner and, for normal prizes, takes one unit of
// stock. A prize that sells out between selection and decrement is dropped
// and the pool is evaluated again.
func (s *lotteryService) claimPrize(ctx context.Context) (winner *entities.Prize, remainingStock int64, attempts int, err error) {
	soldOut := make(map[int64]bool)

	for attempts = 1; attempts <= s.stockRetries+1; attempts++ {
		active, err := s.prizeRepo.FindActive(ctx)
		if err != nil {
			return nil, 0, attempts, fmt.Errorf("failed to get active prizes: %w", err)
		}

		candidates := make([]*entities.Prize, 0, len(active))
		for _, p := range active {
			if !soldOut[p.ID] {
				candidates = append(candidates, p)
			}
		}

		pool, forced, err := BuildDrawPool(candidates)
		if err != nil {
			return nil, 0, attempts, err
		}

		winner = forced
		if winner == nil {
			u, err := s.random.Float64()
			if err != nil {
				return nil, 0, attempts, err
			}
			winner = SelectPrize(pool, u*TotalWeight(pool))
		}

		if winner.IsFiller {
			return winner, winner.Stock, attempts, nil
		}

		ok, remaining, err := s.prizeRepo.DecrementStock(ctx, winner.ID, 1)
		if err != nil {
			return nil, 0, attempts, fmt.Errorf("failed to decrement prize stock: %w", err)
		}
		if ok {
			return winner, remaining, attempts, nil
		}

		log.WithFields(log.Fields{
			"prizeID": winner.ID,
			"attempt": attempts,
		}).Warn("Prize sold out during draw, re-evaluating pool")
		soldOut[winner.ID] = true
	}

	return nil, 0, attempts - 1, fmt.Errorf("%w: prize stock kept changing during draw", domain.ErrStoreConflict)
}
