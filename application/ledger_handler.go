package application

import (
	"context"
	"strings"

	"github.com/FJNU-NISA/WelcomeSystem/domain"
	"github.com/FJNU-NISA/WelcomeSystem/domain/entities"
	"github.com/FJNU-NISA/WelcomeSystem/domain/interfaces"
	"github.com/FJNU-NISA/WelcomeSystem/domain/services"
	"github.com/FJNU-NISA/WelcomeSystem/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// LedgerHandler owns one unit of work per ledger mutation
type LedgerHandler struct {
	runner *TransactionRunner
}

func NewLedgerHandler(runner *TransactionRunner) *LedgerHandler {
	return &LedgerHandler{runner: runner}
}

func (h *LedgerHandler) ledger(uow interfaces.UnitOfWork) interfaces.PointLedgerService {
	return services.NewPointLedgerService(
		uow.UserRepository(),
		uow.LedgerRepository(),
		uow.LevelRepository(),
		uow.EventBus(),
	)
}

// RegisterUser creates a wallet with zero points, or refreshes the display
// name of an existing one
func (h *LedgerHandler) RegisterUser(ctx context.Context, userID, displayName string) (*entities.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}

	var user *entities.User
	err := h.runner.Run(ctx, "register_user", log.Fields{"userID": userID}, func(uow interfaces.UnitOfWork) error {
		var err error
		user, err = uow.UserRepository().Create(ctx, userID, displayName)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Balance returns the cached balance
func (h *LedgerHandler) Balance(ctx context.Context, userID string) (int64, error) {
	var points int64
	err := h.runner.Run(ctx, "balance", log.Fields{"userID": userID}, func(uow interfaces.UnitOfWork) error {
		user, err := uow.UserRepository().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrUserNotFound
		}
		points = user.Points
		return nil
	})
	return points, err
}

// Append records a ledger entry and applies it to the wallet
func (h *LedgerHandler) Append(ctx context.Context, req interfaces.AppendRequest) (*entities.LedgerEntry, error) {
	var entry *entities.LedgerEntry
	err := h.runner.Run(ctx, "append", log.Fields{"userID": req.UserID, "kind": req.Kind, "intendedDelta": req.Delta}, func(uow interfaces.UnitOfWork) error {
		var err error
		entry, err = h.ledger(uow).Append(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Revoke appends a compensating entry for recordID
func (h *LedgerHandler) Revoke(ctx context.Context, userID, recordID, operator, reason string) (*interfaces.RevokeResult, error) {
	var result *interfaces.RevokeResult
	err := h.runner.Run(ctx, "revoke", log.Fields{"userID": userID, "recordID": recordID}, func(uow interfaces.UnitOfWork) error {
		var err error
		result, err = h.ledger(uow).Revoke(ctx, userID, recordID, operator, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ManualAdjust appends an admin adjustment
func (h *LedgerHandler) ManualAdjust(ctx context.Context, userID string, delta int64, reason, operator string) (*entities.LedgerEntry, error) {
	var entry *entities.LedgerEntry
	err := h.runner.Run(ctx, "manual_adjust", log.Fields{"userID": userID, "intendedDelta": delta}, func(uow interfaces.UnitOfWork) error {
		var err error
		entry, err = h.ledger(uow).ManualAdjust(ctx, userID, delta, reason, operator)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// AwardLevel marks a level completed and awards its points
func (h *LedgerHandler) AwardLevel(ctx context.Context, userID string, levelID int64, operator string) (*entities.LedgerEntry, error) {
	var entry *entities.LedgerEntry
	err := h.runner.Run(ctx, "award_level", log.Fields{"userID": userID, "levelID": levelID}, func(uow interfaces.UnitOfWork) error {
		var err error
		entry, err = h.ledger(uow).AwardLevel(ctx, userID, levelID, operator)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// History returns the user's newest ledger entries
func (h *LedgerHandler) History(ctx context.Context, userID string, limit int) ([]*entities.LedgerEntry, error) {
	var entries []*entities.LedgerEntry
	err := h.runner.Run(ctx, "history", log.Fields{"userID": userID}, func(uow interfaces.UnitOfWork) error {
		var err error
		entries, err = h.ledger(uow).History(ctx, userID, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Audit compares every cached balance with its ledger sum and reports the
// number of mismatches as a metric
func (h *LedgerHandler) Audit(ctx context.Context) ([]*entities.BalanceDiscrepancy, error) {
	var discrepancies []*entities.BalanceDiscrepancy
	err := h.runner.Run(ctx, "ledger_audit", nil, func(uow interfaces.UnitOfWork) error {
		var err error
		discrepancies, err = services.NewLedgerAuditService(uow.UserRepository()).Audit(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	observability.GetMetrics().RecordBalanceDiscrepancies(len(discrepancies))

	return discrepancies, nil
}
