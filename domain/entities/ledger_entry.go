package entities

import (
	"fmt"
	"time"
)

// LedgerEntry is one immutable point change appended to a user's history.
// Only the revoke bookkeeping fields change after insertion.
type LedgerEntry struct {
	ID            string          `db:"id"` // UUID record id
	Seq           int64           `db:"seq"`
	UserID        string          `db:"user_id"`
	Kind          TransactionKind `db:"kind"`
	PointsChange  int64           `db:"points_change"`
	BalanceBefore int64           `db:"balance_before"`
	BalanceAfter  int64           `db:"balance_after"`
	Reason        string          `db:"reason"`
	Operator      string          `db:"operator"`
	CreatedAt     time.Time       `db:"created_at"`

	Revoked   bool       `db:"revoked"`
	RevokedBy *string    `db:"revoked_by"`
	RevokedAt *time.Time `db:"revoked_at"`

	// Set only for kind=revoke
	OriginalRecordID *string          `db:"original_record_id"`
	OriginalKind     *TransactionKind `db:"original_kind"`

	// Set only for kind=level_completion
	LevelID   *int64  `db:"level_id"`
	LevelName *string `db:"level_name"`

	// Set only for kind=lottery_draw
	PrizeID   *int64  `db:"prize_id"`
	PrizeName *string `db:"prize_name"`

	Metadata map[string]any `db:"metadata"`
}

// Validate checks the kind specific fields before the entry is stored
func (e *LedgerEntry) Validate() error {
	if e.UserID == "" {
		return fmt.Errorf("ledger entry requires a user id")
	}
	if !e.Kind.IsValid() {
		return fmt.Errorf("unknown ledger entry kind %q", e.Kind)
	}
	if e.Operator == "" {
		return fmt.Errorf("ledger entry requires an operator")
	}
	switch e.Kind {
	case TransactionKindRevoke:
		if e.OriginalRecordID == nil || *e.OriginalRecordID == "" {
			return fmt.Errorf("revoke entry requires the original record id")
		}
	case TransactionKindLevelCompletion:
		if e.LevelID == nil {
			return fmt.Errorf("level completion entry requires a level id")
		}
	case TransactionKindLotteryDraw:
		if e.PrizeID == nil {
			return fmt.Errorf("lottery draw entry requires a prize id")
		}
	}
	return nil
}

// IsRevoke returns true if this entry compensates another entry
func (e *LedgerEntry) IsRevoke() bool {
	return e.Kind == TransactionKindRevoke
}

// CompensatingDelta returns the delta that reverses this entry
func (e *LedgerEntry) CompensatingDelta() int64 {
	return -e.PointsChange
}
