package repository

import (
	"context"
	"fmt"

	"github.com/FJNU-NISA/WelcomeSystem/database"
	"github.com/FJNU-NISA/WelcomeSystem/domain/entities"

	"github.com/jackc/pgx/v5"
)

// LevelRepository implements level persistence
type LevelRepository struct {
	q Queryable
}

// NewLevelRepository creates a new level repository
func NewLevelRepository(db *database.DB) *LevelRepository {
	return &LevelRepository{q: db.Pool}
}

// NewLevelRepositoryScoped creates a new level repository bound to a transaction
func NewLevelRepositoryScoped(tx Queryable) *LevelRepository {
	return &LevelRepository{q: tx}
}

// GetByID retrieves a level by id
func (r *LevelRepository) GetByID(ctx context.Context, id int64) (*entities.Level, error) {
	var level entities.Level
	err := r.q.QueryRow(ctx, `
		SELECT id, name, description, points, is_active, sort_order, created_at
		FROM levels
		WHERE id = $1
	`, id).Scan(
		&level.ID,
		&level.Name,
		&level.Description,
		&level.Points,
		&level.IsActive,
		&level.SortOrder,
		&level.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get level %d: %w", id, err)
	}
	return &level, nil
}

// GetAll returns levels by sort order
func (r *LevelRepository) GetAll(ctx context.Context) ([]*entities.Level, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, name, description, points, is_active, sort_order, created_at
		FROM levels
		ORDER BY sort_order, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query levels: %w", err)
	}
	defer rows.Close()

	var levels []*entities.Level
	for rows.Next() {
		var level entities.Level
		if err := rows.Scan(
			&level.ID,
			&level.Name,
			&level.Description,
			&level.Points,
			&level.IsActive,
			&level.SortOrder,
			&level.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan level: %w", err)
		}
		levels = append(levels, &level)
	}
	return levels, rows.Err()
}

// Create inserts a level
func (r *LevelRepository) Create(ctx context.Context, level *entities.Level) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO levels (name, description, points, is_active, sort_order)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, level.Name, level.Description, level.Points, level.IsActive, level.SortOrder,
	).Scan(&level.ID, &level.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create level %q: %w", level.Name, err)
	}
	return nil
}

// Update writes the editable fields
func (r *LevelRepository) Update(ctx context.Context, level *entities.Level) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE levels
		SET name = $2, description = $3, points = $4, is_active = $5, sort_order = $6
		WHERE id = $1
	`, level.ID, level.Name, level.Description, level.Points, level.IsActive, level.SortOrder)
	if err != nil {
		return fmt.Errorf("failed to update level %d: %w", level.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("level %d not found", level.ID)
	}
	return nil
}

// Delete removes a level. Completion rows cascade; ledger entries keep their
// copied level name.
func (r *LevelRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM levels WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete level %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}
