package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/FJNU-NISA/WelcomeSystem/database"
	"github.com/FJNU-NISA/WelcomeSystem/domain"
	"github.com/FJNU-NISA/WelcomeSystem/domain/entities"

	"github.com/jackc/pgx/v5"
)

// UserRepository implements wallet and completed-level persistence
type UserRepository struct {
	q Queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// NewUserRepositoryScoped creates a new user repository bound to a transaction
func NewUserRepositoryScoped(tx Queryable) *UserRepository {
	return &UserRepository{q: tx}
}

// GetByID retrieves a user and their completed levels
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*entities.User, error) {
	return r.get(ctx, userID, false)
}

// GetByIDForUpdate retrieves a user and locks the wallet row for the rest of
// the transaction
func (r *UserRepository) GetByIDForUpdate(ctx context.Context, userID string) (*entities.User, error) {
	return r.get(ctx, userID, true)
}

func (r *UserRepository) get(ctx context.Context, userID string, forUpdate bool) (*entities.User, error) {
	query := `
		SELECT id, display_name, points, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var user entities.User
	err := r.q.QueryRow(ctx, query, userID).Scan(
		&user.ID,
		&user.DisplayName,
		&user.Points,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}

	levels, err := r.completedLevels(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.CompletedLevels = levels

	return &user, nil
}

func (r *UserRepository) completedLevels(ctx context.Context, userID string) ([]int64, error) {
	rows, err := r.q.Query(ctx, `
		SELECT level_id FROM user_completed_levels
		WHERE user_id = $1
		ORDER BY level_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get completed levels for %s: %w", userID, err)
	}
	defer rows.Close()

	levels := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan completed level: %w", err)
		}
		levels = append(levels, id)
	}
	return levels, rows.Err()
}

// Create registers a user with a zero balance. An existing user only has
// their display name refreshed.
func (r *UserRepository) Create(ctx context.Context, userID, displayName string) (*entities.User, error) {
	query := `
		INSERT INTO users (id, display_name)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET display_name = EXCLUDED.display_name, updated_at = NOW()
		RETURNING id, display_name, points, created_at, updated_at
	`

	var user entities.User
	err := r.q.QueryRow(ctx, query, userID, displayName).Scan(
		&user.ID,
		&user.DisplayName,
		&user.Points,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", userID, err)
	}

	levels, err := r.completedLevels(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.CompletedLevels = levels

	return &user, nil
}

// ApplyPointsDelta adds delta to the balance in a single statement so
// concurrent writers never lose an update
func (r *UserRepository) ApplyPointsDelta(ctx context.Context, userID string, delta int64) (int64, error) {
	query := `
		UPDATE users
		SET points = points + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING points
	`

	var points int64
	err := r.q.QueryRow(ctx, query, userID, delta).Scan(&points)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to apply points delta for %s: %w", userID, err)
	}
	return points, nil
}

// AddCompletedLevel adds levelID to the completed set; false if already present
func (r *UserRepository) AddCompletedLevel(ctx context.Context, userID string, levelID int64) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO user_completed_levels (user_id, level_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, level_id) DO NOTHING
	`, userID, levelID)
	if err != nil {
		return false, fmt.Errorf("failed to add completed level %d for %s: %w", levelID, userID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// RemoveCompletedLevel removes levelID from the completed set; false if absent
func (r *UserRepository) RemoveCompletedLevel(ctx context.Context, userID string, levelID int64) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		DELETE FROM user_completed_levels
		WHERE user_id = $1 AND level_id = $2
	`, userID, levelID)
	if err != nil {
		return false, fmt.Errorf("failed to remove completed level %d for %s: %w", levelID, userID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// FindBalanceDiscrepancies compares every cached balance with its ledger sum
func (r *UserRepository) FindBalanceDiscrepancies(ctx context.Context) ([]*entities.BalanceDiscrepancy, error) {
	query := `
		SELECT u.id, u.points, COALESCE(SUM(l.points_change), 0), COUNT(l.id)
		FROM users u
		LEFT JOIN ledger_entries l ON l.user_id = u.id
		GROUP BY u.id, u.points
		HAVING u.points <> COALESCE(SUM(l.points_change), 0)
		ORDER BY u.id
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query balance discrepancies: %w", err)
	}
	defer rows.Close()

	var discrepancies []*entities.BalanceDiscrepancy
	for rows.Next() {
		var d entities.BalanceDiscrepancy
		if err := rows.Scan(&d.UserID, &d.StoredPoints, &d.LedgerPoints, &d.EntryCount); err != nil {
			return nil, fmt.Errorf("failed to scan balance discrepancy: %w", err)
		}
		discrepancies = append(discrepancies, &d)
	}
	return discrepancies, rows.Err()
}
