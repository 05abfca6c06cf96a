package entities

import "time"

// PrizeOwnership records one prize a user won in a draw
type PrizeOwnership struct {
	ID            int64      `db:"id"`
	UserID        string     `db:"user_id"`
	PrizeID       *int64     `db:"prize_id"` // NULL once the prize definition is deleted
	PrizeName     string     `db:"prize_name"`
	Photo         string     `db:"photo"`
	IsFiller      bool       `db:"is_filler"`
	LedgerEntryID string     `db:"ledger_entry_id"`
	DrawnAt       time.Time  `db:"drawn_at"`
	Redeemed      bool       `db:"redeemed"`
	RedeemedBy    *string    `db:"redeemed_by"`
	RedeemedAt    *time.Time `db:"redeemed_at"`
}
