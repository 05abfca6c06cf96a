package repository

import (
	"context"
	"fmt"

	"github.com/FJNU-NISA/WelcomeSystem/database"
	"github.com/FJNU-NISA/WelcomeSystem/domain/entities"
	"github.com/FJNU-NISA/WelcomeSystem/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

// prizePoolLockKey is the advisory lock key shared by every prize pool mutation
const prizePoolLockKey int64 = 0x57454c434f4d45

const prizeColumns = `
	id, name, description, photo, stock, weight, is_active, is_filler,
	drawn_count, redeemed_count, created_at, updated_at
`

// PrizeRepository implements prize pool persistence
type PrizeRepository struct {
	q Queryable
}

// NewPrizeRepository creates a new prize repository
func NewPrizeRepository(db *database.DB) *PrizeRepository {
	return &PrizeRepository{q: db.Pool}
}

// NewPrizeRepositoryScoped creates a new prize repository bound to a transaction
func NewPrizeRepositoryScoped(tx Queryable) *PrizeRepository {
	return &PrizeRepository{q: tx}
}

// FindActive returns active prizes in creation order
func (r *PrizeRepository) FindActive(ctx context.Context) ([]*entities.Prize, error) {
	return r.list(ctx, `SELECT `+prizeColumns+` FROM prizes WHERE is_active ORDER BY id`)
}

// FindAll returns every prize in creation order
func (r *PrizeRepository) FindAll(ctx context.Context) ([]*entities.Prize, error) {
	return r.list(ctx, `SELECT `+prizeColumns+` FROM prizes ORDER BY id`)
}

func (r *PrizeRepository) list(ctx context.Context, query string) ([]*entities.Prize, error) {
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query prizes: %w", err)
	}
	defer rows.Close()

	var prizes []*entities.Prize
	for rows.Next() {
		prize, err := scanPrize(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prize: %w", err)
		}
		prizes = append(prizes, prize)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate prizes: %w", err)
	}
	return prizes, nil
}

// GetByID retrieves a prize by id
func (r *PrizeRepository) GetByID(ctx context.Context, id int64) (*entities.Prize, error) {
	prize, err := scanPrize(r.q.QueryRow(ctx, `SELECT `+prizeColumns+` FROM prizes WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prize %d: %w", id, err)
	}
	return prize, nil
}

// GetFiller retrieves the filler prize
func (r *PrizeRepository) GetFiller(ctx context.Context) (*entities.Prize, error) {
	prize, err := scanPrize(r.q.QueryRow(ctx, `SELECT `+prizeColumns+` FROM prizes WHERE is_filler`))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get filler prize: %w", err)
	}
	return prize, nil
}

// Create inserts a prize, filling ID and timestamps
func (r *PrizeRepository) Create(ctx context.Context, prize *entities.Prize) error {
	query := `
		INSERT INTO prizes (name, description, photo, stock, weight, is_active, is_filler)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, drawn_count, redeemed_count, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		prize.Name,
		prize.Description,
		prize.Photo,
		prize.Stock,
		prize.Weight,
		prize.IsActive,
		prize.IsFiller,
	).Scan(&prize.ID, &prize.DrawnCount, &prize.RedeemedCount, &prize.CreatedAt, &prize.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create prize: %w", err)
	}
	return nil
}

// Update writes the editable fields. Counters are only moved by IncrementCounter.
func (r *PrizeRepository) Update(ctx context.Context, prize *entities.Prize) error {
	query := `
		UPDATE prizes
		SET name = $2, description = $3, photo = $4, stock = $5, weight = $6,
		    is_active = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query,
		prize.ID,
		prize.Name,
		prize.Description,
		prize.Photo,
		prize.Stock,
		prize.Weight,
		prize.IsActive,
	).Scan(&prize.UpdatedAt)
	if err == pgx.ErrNoRows {
		return fmt.Errorf("prize %d not found", prize.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update prize %d: %w", prize.ID, err)
	}
	return nil
}

// Delete removes a prize definition. Ownership rows keep their copied name.
func (r *PrizeRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM prizes WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete prize %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Count returns the number of prize definitions
func (r *PrizeRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM prizes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count prizes: %w", err)
	}
	return count, nil
}

// DecrementStock subtracts amount only while enough stock remains
func (r *PrizeRepository) DecrementStock(ctx context.Context, id int64, amount int64) (bool, int64, error) {
	query := `
		UPDATE prizes
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
		RETURNING stock
	`

	var remaining int64
	err := r.q.QueryRow(ctx, query, id, amount).Scan(&remaining)
	if err == pgx.ErrNoRows {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("failed to decrement stock of prize %d: %w", id, err)
	}
	return true, remaining, nil
}

// IncrementCounter adds amount to a cumulative counter, clamping at zero
func (r *PrizeRepository) IncrementCounter(ctx context.Context, id int64, counter interfaces.PrizeCounter, amount int64) error {
	switch counter {
	case interfaces.PrizeCounterDrawn, interfaces.PrizeCounterRedeemed:
	default:
		return fmt.Errorf("unknown prize counter %q", counter)
	}

	column := string(counter)
	query := fmt.Sprintf(`
		UPDATE prizes
		SET %s = GREATEST(0, %s + $2), updated_at = NOW()
		WHERE id = $1
	`, column, column)

	if _, err := r.q.Exec(ctx, query, id, amount); err != nil {
		return fmt.Errorf("failed to increment %s of prize %d: %w", column, id, err)
	}
	return nil
}

// SetFillerState stores the derived filler weight and active flag
func (r *PrizeRepository) SetFillerState(ctx context.Context, weight float64, active bool) error {
	_, err := r.q.Exec(ctx, `
		UPDATE prizes
		SET weight = $1, is_active = $2, updated_at = NOW()
		WHERE is_filler
	`, weight, active)
	if err != nil {
		return fmt.Errorf("failed to update filler prize: %w", err)
	}
	return nil
}

// LockPool takes a transaction scoped advisory lock. Outside a transaction
// the lock is released as soon as the statement finishes.
func (r *PrizeRepository) LockPool(ctx context.Context) error {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, prizePoolLockKey); err != nil {
		return fmt.Errorf("failed to lock prize pool: %w", err)
	}
	return nil
}

func scanPrize(row pgx.Row) (*entities.Prize, error) {
	var prize entities.Prize
	err := row.Scan(
		&prize.ID,
		&prize.Name,
		&prize.Description,
		&prize.Photo,
		&prize.Stock,
		&prize.Weight,
		&prize.IsActive,
		&prize.IsFiller,
		&prize.DrawnCount,
		&prize.RedeemedCount,
		&prize.CreatedAt,
		&prize.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &prize, nil
}
