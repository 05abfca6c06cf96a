package entities

import "time"

// User is a participant wallet. Points is a cache of the ledger sum and is
// only written together with a ledger entry.
type User struct {
	ID              string    `db:"id"` // Student id
	DisplayName     string    `db:"display_name"`
	Points          int64     `db:"points"`
	CompletedLevels []int64   `db:"-"` // Populated from user_completed_levels
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// CanAfford checks if the user has enough points for a debit
func (u *User) CanAfford(cost int64) bool {
	return u.Points >= cost
}

// HasCompletedLevel checks completed-level membership
func (u *User) HasCompletedLevel(levelID int64) bool {
	for _, id := range u.CompletedLevels {
		if id == levelID {
			return true
		}
	}
	return false
}

// BalanceDiscrepancy is a user whose cached points differ from the ledger sum
type BalanceDiscrepancy struct {
	UserID       string `db:"user_id"`
	StoredPoints int64  `db:"points"`
	LedgerPoints int64  `db:"ledger_points"`
	EntryCount   int64  `db:"entry_count"`
}

// Drift returns how far the cached balance is from the ledger
func (d *BalanceDiscrepancy) Drift() int64 {
	return d.StoredPoints - d.LedgerPoints
}
