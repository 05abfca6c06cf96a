package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/FJNU-NISA/WelcomeSystem/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/puddle/v2"
)

// Postgres SQLSTATE codes that mean "retry the whole transaction"
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
)

// ClassifyError maps a raw pgx error onto the store error taxonomy.
// Domain errors and nil pass through untouched. Transient concurrency failures
// become domain.ErrStoreConflict and connection level failures become
// domain.ErrStoreUnavailable; both keep the original error in the chain.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrStoreConflict) || errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateLockNotAvailable:
			return fmt.Errorf("%w: %w", domain.ErrStoreConflict, err)
		}
		return err
	}

	if errors.Is(err, puddle.ErrClosedPool) ||
		errors.Is(err, pgx.ErrTxClosed) ||
		errors.Is(err, context.DeadlineExceeded) ||
		pgconn.Timeout(err) ||
		pgconn.SafeToRetry(err) {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	return err
}

// IsConflict reports whether err is a transient store conflict that a caller
// may retry by replaying the whole unit of work
func IsConflict(err error) bool {
	return errors.Is(ClassifyError(err), domain.ErrStoreConflict)
}
