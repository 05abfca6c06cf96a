package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FJNU-NISA/WelcomeSystem/database"
	"github.com/FJNU-NISA/WelcomeSystem/domain/entities"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const ledgerColumns = `
	id::text, seq, user_id, kind, points_change, balance_before, balance_after,
	reason, operator, created_at, revoked, revoked_by, revoked_at,
	original_record_id::text, original_kind, level_id, level_name,
	prize_id, prize_name, metadata
`

// LedgerRepository implements the append-only point ledger
type LedgerRepository struct {
	q Queryable
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{q: db.Pool}
}

// NewLedgerRepositoryScoped creates a new ledger repository bound to a transaction
func NewLedgerRepositoryScoped(tx Queryable) *LedgerRepository {
	return &LedgerRepository{q: tx}
}

// Append stores a new entry. ID, Seq and CreatedAt are filled in.
func (r *LedgerRepository) Append(ctx context.Context, entry *entities.LedgerEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("refusing to store ledger entry: %w", err)
	}

	// Convert metadata to JSON
	var metadataJSON []byte
	if entry.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal ledger metadata: %w", err)
		}
	}

	var originalKind *string
	if entry.OriginalKind != nil {
		k := string(*entry.OriginalKind)
		originalKind = &k
	}

	query := `
		INSERT INTO ledger_entries
		(id, user_id, kind, points_change, balance_before, balance_after, reason, operator,
		 original_record_id, original_kind, level_id, level_name, prize_id, prize_name, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING seq, created_at
	`

	err := r.q.QueryRow(ctx, query,
		entry.ID,
		entry.UserID,
		string(entry.Kind),
		entry.PointsChange,
		entry.BalanceBefore,
		entry.BalanceAfter,
		entry.Reason,
		entry.Operator,
		entry.OriginalRecordID,
		originalKind,
		entry.LevelID,
		entry.LevelName,
		entry.PrizeID,
		entry.PrizeName,
		metadataJSON,
	).Scan(&entry.Seq, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	return nil
}

// GetByID retrieves one of the user's entries
func (r *LedgerRepository) GetByID(ctx context.Context, userID, recordID string) (*entities.LedgerEntry, error) {
	return r.get(ctx, userID, recordID, false)
}

// GetByIDForUpdate retrieves one of the user's entries and locks the row
func (r *LedgerRepository) GetByIDForUpdate(ctx context.Context, userID, recordID string) (*entities.LedgerEntry, error) {
	return r.get(ctx, userID, recordID, true)
}

func (r *LedgerRepository) get(ctx context.Context, userID, recordID string, forUpdate bool) (*entities.LedgerEntry, error) {
	// A malformed id cannot name any record
	if _, err := uuid.Parse(recordID); err != nil {
		return nil, nil
	}

	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE id = $1 AND user_id = $2`
	if forUpdate {
		query += " FOR UPDATE"
	}

	entry, err := scanLedgerEntry(r.q.QueryRow(ctx, query, recordID, userID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entry %s: %w", recordID, err)
	}
	return entry, nil
}

// MarkRevoked flags an unrevoked entry as revoked
func (r *LedgerRepository) MarkRevoked(ctx context.Context, userID, recordID, operator string, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE ledger_entries
		SET revoked = TRUE, revoked_by = $3, revoked_at = $4
		WHERE id = $1 AND user_id = $2 AND revoked = FALSE
	`, recordID, userID, operator, at)
	if err != nil {
		return false, fmt.Errorf("failed to mark ledger entry %s revoked: %w", recordID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// RestoreRevoked clears the revoked flag of a revoked entry
func (r *LedgerRepository) RestoreRevoked(ctx context.Context, userID, recordID string) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE ledger_entries
		SET revoked = FALSE, revoked_by = NULL, revoked_at = NULL
		WHERE id = $1 AND user_id = $2 AND revoked = TRUE
	`, recordID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to restore ledger entry %s: %w", recordID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByUser returns up to limit entries, newest first
func (r *LedgerRepository) GetByUser(ctx context.Context, userID string, limit int) ([]*entities.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY seq DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger for %s: %w", userID, err)
	}
	defer rows.Close()

	var entries []*entities.LedgerEntry
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}
	return entries, nil
}

// SumByUser returns the sum of every point change the user ever received
func (r *LedgerRepository) SumByUser(ctx context.Context, userID string) (int64, error) {
	var sum int64
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(points_change), 0)::BIGINT
		FROM ledger_entries
		WHERE user_id = $1
	`, userID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum ledger for %s: %w", userID, err)
	}
	return sum, nil
}

func scanLedgerEntry(row pgx.Row) (*entities.LedgerEntry, error) {
	var entry entities.LedgerEntry
	var kind string
	var originalKind *string
	var metadataJSON []byte

	err := row.Scan(
		&entry.ID,
		&entry.Seq,
		&entry.UserID,
		&kind,
		&entry.PointsChange,
		&entry.BalanceBefore,
		&entry.BalanceAfter,
		&entry.Reason,
		&entry.Operator,
		&entry.CreatedAt,
		&entry.Revoked,
		&entry.RevokedBy,
		&entry.RevokedAt,
		&entry.OriginalRecordID,
		&originalKind,
		&entry.LevelID,
		&entry.LevelName,
		&entry.PrizeID,
		&entry.PrizeName,
		&metadataJSON,
	)
	if err != nil {
		return nil, err
	}

	entry.Kind = entities.TransactionKind(kind)
	if originalKind != nil {
		k := entities.TransactionKind(*originalKind)
		entry.OriginalKind = &k
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ledger metadata: %w", err)
		}
	}

	return &entry, nil
}
