package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/FJNU-NISA/WelcomeSystem/database"
	"github.com/FJNU-NISA/WelcomeSystem/domain/entities"

	"github.com/jackc/pgx/v5"
)

const ownershipColumns = `
	id, user_id, prize_id, prize_name, photo, is_filler, ledger_entry_id::text,
	drawn_at, redeemed, redeemed_by, redeemed_at
`

// PrizeOwnershipRepository implements won prize persistence
type PrizeOwnershipRepository struct {
	q Queryable
}

// NewPrizeOwnershipRepository creates a new prize ownership repository
func NewPrizeOwnershipRepository(db *database.DB) *PrizeOwnershipRepository {
	return &PrizeOwnershipRepository{q: db.Pool}
}

// NewPrizeOwnershipRepositoryScoped creates a new prize ownership repository bound to a transaction
func NewPrizeOwnershipRepositoryScoped(tx Queryable) *PrizeOwnershipRepository {
	return &PrizeOwnershipRepository{q: tx}
}

// Create inserts an ownership record
func (r *PrizeOwnershipRepository) Create(ctx context.Context, ownership *entities.PrizeOwnership) error {
	query := `
		INSERT INTO prize_ownerships (user_id, prize_id, prize_name, photo, is_filler, ledger_entry_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, drawn_at
	`

	err := r.q.QueryRow(ctx, query,
		ownership.UserID,
		ownership.PrizeID,
		ownership.PrizeName,
		ownership.Photo,
		ownership.IsFiller,
		ownership.LedgerEntryID,
	).Scan(&ownership.ID, &ownership.DrawnAt)
	if err != nil {
		return fmt.Errorf("failed to create prize ownership: %w", err)
	}
	return nil
}

// GetByIDForUpdate retrieves one of the user's records and locks it
func (r *PrizeOwnershipRepository) GetByIDForUpdate(ctx context.Context, userID string, id int64) (*entities.PrizeOwnership, error) {
	query := `SELECT ` + ownershipColumns + `
		FROM prize_ownerships
		WHERE id = $1 AND user_id = $2
		FOR UPDATE
	`

	ownership, err := scanOwnership(r.q.QueryRow(ctx, query, id, userID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prize ownership %d: %w", id, err)
	}
	return ownership, nil
}

// SetRedeemed stores the redemption state. Unredeeming clears operator and time.
func (r *PrizeOwnershipRepository) SetRedeemed(ctx context.Context, userID string, id int64, redeemed bool, operator string, at time.Time) error {
	var redeemedBy *string
	var redeemedAt *time.Time
	if redeemed {
		redeemedBy = &operator
		redeemedAt = &at
	}

	tag, err := r.q.Exec(ctx, `
		UPDATE prize_ownerships
		SET redeemed = $3, redeemed_by = $4, redeemed_at = $5
		WHERE id = $1 AND user_id = $2
	`, id, userID, redeemed, redeemedBy, redeemedAt)
	if err != nil {
		return fmt.Errorf("failed to set redemption of ownership %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("prize ownership %d not found for user %s", id, userID)
	}
	return nil
}

// GetByUser returns the user's won prizes, newest first
func (r *PrizeOwnershipRepository) GetByUser(ctx context.Context, userID string) ([]*entities.PrizeOwnership, error) {
	rows, err := r.q.Query(ctx, `SELECT `+ownershipColumns+`
		FROM prize_ownerships
		WHERE user_id = $1
		ORDER BY id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query prize ownerships for %s: %w", userID, err)
	}
	defer rows.Close()

	var ownerships []*entities.PrizeOwnership
	for rows.Next() {
		ownership, err := scanOwnership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prize ownership: %w", err)
		}
		ownerships = append(ownerships, ownership)
	}
	return ownerships, rows.Err()
}

func scanOwnership(row pgx.Row) (*entities.PrizeOwnership, error) {
	var o entities.PrizeOwnership
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.PrizeID,
		&o.PrizeName,
		&o.Photo,
		&o.IsFiller,
		&o.LedgerEntryID,
		&o.DrawnAt,
		&o.Redeemed,
		&o.RedeemedBy,
		&o.RedeemedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
