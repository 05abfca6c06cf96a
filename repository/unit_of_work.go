package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/FJNU-NISA/WelcomeSystem/database"
	"github.com/FJNU-NISA/WelcomeSystem/domain/interfaces"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db                     *database.DB
	tx                     pgx.Tx
	ctx                    context.Context
	transactionalPublisher interfaces.TransactionalEventPublisher
	userRepo               interfaces.UserRepository
	ledgerRepo             interfaces.LedgerRepository
	prizeRepo              interfaces.PrizeRepository
	ownershipRepo          interfaces.PrizeOwnershipRepository
	levelRepo              interfaces.LevelRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB) *unitOfWorkFactory {
	return &unitOfWorkFactory{
		db: db,
	}
}

type unitOfWorkFactory struct {
	db *database.DB
}

// CreateWithPublisher creates a new UnitOfWork with a specific transactional publisher
func (f *unitOfWorkFactory) CreateWithPublisher(transactionalPublisher interfaces.TransactionalEventPublisher) interfaces.UnitOfWork {
	return &unitOfWork{
		db:                     f.db,
		transactionalPublisher: transactionalPublisher,
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", database.ClassifyError(err))
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories with the transaction
	u.userRepo = NewUserRepositoryScoped(tx)
	u.ledgerRepo = NewLedgerRepositoryScoped(tx)
	u.prizeRepo = NewPrizeRepositoryScoped(tx)
	u.ownershipRepo = NewPrizeOwnershipRepositoryScoped(tx)
	u.levelRepo = NewLevelRepositoryScoped(tx)

	return nil
}

// Commit commits the transaction, then flushes pending events
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	u.tx = nil
	if err != nil {
		if u.transactionalPublisher != nil {
			u.transactionalPublisher.Discard()
		}
		return fmt.Errorf("failed to commit transaction: %w", database.ClassifyError(err))
	}

	if u.transactionalPublisher != nil {
		if err := u.transactionalPublisher.Flush(u.ctx); err != nil {
			log.WithError(err).Error("Failed to flush events after commit")
		}
	}

	return nil
}

// Rollback rolls back the transaction and discards pending events
func (u *unitOfWork) Rollback() error {
	if u.transactionalPublisher != nil {
		u.transactionalPublisher.Discard()
	}

	if u.tx == nil {
		return nil
	}

	// A fresh context so a cancelled request still releases its locks
	err := u.tx.Rollback(context.WithoutCancel(u.ctx))
	u.tx = nil
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	return nil
}

// UserRepository returns the transaction-scoped user repository
func (u *unitOfWork) UserRepository() interfaces.UserRepository {
	if u.userRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.userRepo
}

// LedgerRepository returns the transaction-scoped ledger repository
func (u *unitOfWork) LedgerRepository() interfaces.LedgerRepository {
	if u.ledgerRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.ledgerRepo
}

// PrizeRepository returns the transaction-scoped prize repository
func (u *unitOfWork) PrizeRepository() interfaces.PrizeRepository {
	if u.prizeRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.prizeRepo
}

// PrizeOwnershipRepository returns the transaction-scoped ownership repository
func (u *unitOfWork) PrizeOwnershipRepository() interfaces.PrizeOwnershipRepository {
	if u.ownershipRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.ownershipRepo
}

// LevelRepository returns the transaction-scoped level repository
func (u *unitOfWork) LevelRepository() interfaces.LevelRepository {
	if u.levelRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.levelRepo
}

// EventBus returns the transactional event publisher
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.transactionalPublisher == nil {
		panic("transactional publisher not configured")
	}
	return u.transactionalPublisher
}
