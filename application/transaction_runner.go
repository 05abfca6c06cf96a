package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/FJNU-NISA/WelcomeSystem/database"
	"github.com/FJNU-NISA/WelcomeSystem/domain"
	"github.com/FJNU-NISA/WelcomeSystem/domain/interfaces"
	"github.com/FJNU-NISA/WelcomeSystem/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

const conflictBackoff = 10 * time.Millisecond

// TransactionRunner executes a use case in one unit of work and replays it
// when the store reports a transient conflict
type TransactionRunner struct {
	uowFactory  interfaces.UnitOfWorkFactory
	maxAttempts int
}

// NewTransactionRunner creates a runner that tries each use case at most
// maxAttempts times
func NewTransactionRunner(uowFactory interfaces.UnitOfWorkFactory, maxAttempts int) *TransactionRunner {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &TransactionRunner{
		uowFactory:  uowFactory,
		maxAttempts: maxAttempts,
	}
}

// Run calls fn inside a fresh unit of work. fn's domain errors are returned
// as is; conflicts are retried with a short linear backoff and surface as
// domain.ErrStoreConflict once attempts run out.
func (r *TransactionRunner) Run(ctx context.Context, useCase string, fields log.Fields, fn func(uow interfaces.UnitOfWork) error) error {
	defer observability.GetMetrics().MeasureUseCase(useCase)()

	var err error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err = r.runOnce(ctx, useCase, fields, fn)
		if err == nil || !database.IsConflict(err) {
			return err
		}

		observability.GetMetrics().RecordStoreConflict(useCase)
		log.WithFields(fields).WithFields(log.Fields{
			"useCase": useCase,
			"attempt": attempt,
			"error":   err,
		}).Warn("Store conflict, retrying transaction")

		if attempt == r.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, ctx.Err())
		case <-time.After(time.Duration(attempt) * conflictBackoff):
		}
	}

	return database.ClassifyError(err)
}

func (r *TransactionRunner) runOnce(ctx context.Context, useCase string, fields log.Fields, fn func(uow interfaces.UnitOfWork) error) (err error) {
	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return database.ClassifyError(err)
	}

	step := "execute"
	defer func() {
		if err == nil {
			return
		}
		if rbErr := uow.Rollback(); rbErr != nil {
			log.WithFields(fields).WithFields(log.Fields{
				"useCase":       useCase,
				"step":          step,
				"error":         err,
				"rollbackError": rbErr,
			}).Error("Failed to roll back transaction")
			err = fmt.Errorf("%w: rollback after %s failed: %w", domain.ErrStoreUnavailable, step, errors.Join(err, rbErr))
		}
	}()

	if err := fn(uow); err != nil {
		return database.ClassifyError(err)
	}

	step = "commit"
	if err := uow.Commit(); err != nil {
		return database.ClassifyError(err)
	}
	return nil
}
