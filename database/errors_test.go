package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/FJNU-NISA/WelcomeSystem/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/puddle/v2"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, domain.ErrStoreConflict},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, domain.ErrStoreConflict},
		{"lock not available", &pgconn.PgError{Code: "55P03"}, domain.ErrStoreConflict},
		{"wrapped serialization failure", fmt.Errorf("failed to update: %w", &pgconn.PgError{Code: "40001"}), domain.ErrStoreConflict},
		{"closed pool", puddle.ErrClosedPool, domain.ErrStoreUnavailable},
		{"closed transaction", pgx.ErrTxClosed, domain.ErrStoreUnavailable},
		{"deadline", context.DeadlineExceeded, domain.ErrStoreUnavailable},
		{"already classified", domain.ErrStoreConflict, domain.ErrStoreConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, ClassifyError(tt.err), tt.expected)
		})
	}
}

func TestClassifyError_PassesOtherErrorsThrough(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ClassifyError(nil))

	uniqueViolation := &pgconn.PgError{Code: "23505"}
	assert.Same(t, uniqueViolation, ClassifyError(uniqueViolation))

	assert.ErrorIs(t, ClassifyError(domain.ErrInsufficientFunds), domain.ErrInsufficientFunds)
	assert.False(t, errors.Is(ClassifyError(domain.ErrInsufficientFunds), domain.ErrStoreConflict))
}

func TestIsConflict(t *testing.T) {
	t.Parallel()

	assert.True(t, IsConflict(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsConflict(domain.ErrStoreConflict))
	assert.False(t, IsConflict(domain.ErrStoreUnavailable))
	assert.False(t, IsConflict(errors.New("boom")))
	assert.False(t, IsConflict(nil))
}
