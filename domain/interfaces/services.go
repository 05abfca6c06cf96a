package interfaces

import (
	"context"

	"github.com/FJNU-NISA/WelcomeSystem/domain/entities"
)

// DrawResult is the outcome of a single lottery draw
type DrawResult struct {
	PrizeID          int64  `json:"prizeId"`
	PrizeName        string `json:"prizeName"`
	IsFiller         bool   `json:"isFiller"`
	RemainingBalance int64  `json:"remainingBalance"`
	RecordID         string `json:"recordId"`
	OwnershipID      int64  `json:"ownershipId"`
	// Attempts counts pool evaluations; above 1 means a prize sold out mid-draw
	Attempts         int    `json:"-"`
}

// RevokeResult is the outcome of a compensating ledger entry
type RevokeResult struct {
	AppliedDelta    int64  `json:"appliedDelta"`
	NewRecordID     string `json:"newRecordId"`
	RevokedRecordID string `json:"revokedRecordId"`
	// RestoredRecordID is the original entry flipped back to unrevoked when a
	// revoke entry was itself revoked
	RestoredRecordID *string `json:"restoredRecordId,omitempty"`
	NewBalance       int64   `json:"newBalance"`
}

// AppendRequest describes a new ledger entry
type AppendRequest struct {
	UserID    string
	Kind      entities.TransactionKind
	Delta     int64
	Reason    string
	Operator  string
	LevelID   *int64
	LevelName *string
	PrizeID   *int64
	PrizeName *string
	Metadata  map[string]any
}

// PrizeInput carries the admin-editable prize fields
type PrizeInput struct {
	Name        string
	Description string
	Photo       string
	Stock       int64
	Weight      float64
	IsActive    bool
	IsFiller    bool
}

// PrizePatch is a partial prize update; nil fields are left unchanged
type PrizePatch struct {
	Name        *string
	Description *string
	Photo       *string
	Stock       *int64
	Weight      *float64
	IsActive    *bool
}

// LevelInput carries the admin-editable level fields
type LevelInput struct {
	Name        string
	Description string
	Points      int64
	IsActive    bool
	SortOrder   int
}

// LevelPatch is a partial level update; nil fields are left unchanged
type LevelPatch struct {
	Name        *string
	Description *string
	Points      *int64
	IsActive    *bool
	SortOrder   *int
}

// LotteryService defines the draw engine
type LotteryService interface {
	// Draw resolves one winning prize for the user and debits the draw cost
	Draw(ctx context.Context, userID string, cost int64) (*DrawResult, error)
}

// PrizePoolService defines prize administration and filler derivation
type PrizePoolService interface {
	// RecomputeFillerWeight re-derives the filler weight from the active pool
	RecomputeFillerWeight(ctx context.Context, reason string) (*entities.PrizePoolSummary, error)

	// EnsureFillerPrize creates the filler prize if missing and re-derives it
	EnsureFillerPrize(ctx context.Context) (*entities.Prize, error)

	// CreatePrize validates and inserts a prize
	CreatePrize(ctx context.Context, input PrizeInput) (*entities.Prize, error)

	// UpdatePrize applies a partial update
	UpdatePrize(ctx context.Context, id int64, patch PrizePatch) (*entities.Prize, error)

	// DeletePrize removes a prize definition
	DeletePrize(ctx context.Context, id int64) error

	// TogglePrize flips the active flag
	TogglePrize(ctx context.Context, id int64) (*entities.Prize, error)

	// ValidateWeightChange checks that giving excludeID the new weight keeps the cap
	ValidateWeightChange(ctx context.Context, newWeight float64, excludeID *int64) error

	// ProbabilitySummary describes the current split of probability mass
	ProbabilitySummary(ctx context.Context) (*entities.PrizePoolSummary, error)

	// ListPrizes returns all prize definitions in creation order
	ListPrizes(ctx context.Context) ([]*entities.Prize, error)
}

// LevelService defines level administration
type LevelService interface {
	// CreateLevel validates and inserts a level
	CreateLevel(ctx context.Context, input LevelInput) (*entities.Level, error)

	// UpdateLevel applies a partial update
	UpdateLevel(ctx context.Context, id int64, patch LevelPatch) (*entities.Level, error)

	// ToggleLevel flips the active flag
	ToggleLevel(ctx context.Context, id int64) (*entities.Level, error)

	// DeleteLevel removes a level and every completion of it
	DeleteLevel(ctx context.Context, id int64) error

	// ListLevels returns levels by sort order
	ListLevels(ctx context.Context) ([]*entities.Level, error)
}

// PointLedgerService defines ledger mutations
type PointLedgerService interface {
	// Append creates an entry and applies its delta to the wallet
	Append(ctx context.Context, req AppendRequest) (*entities.LedgerEntry, error)

	// Revoke appends a compensating entry for recordID
	Revoke(ctx context.Context, userID, recordID, operator, reason string) (*RevokeResult, error)

	// ManualAdjust appends an admin adjustment
	ManualAdjust(ctx context.Context, userID string, delta int64, reason, operator string) (*entities.LedgerEntry, error)

	// AwardLevel marks a level completed and awards its points
	AwardLevel(ctx context.Context, userID string, levelID int64, operator string) (*entities.LedgerEntry, error)

	// History returns the user's newest entries
	History(ctx context.Context, userID string, limit int) ([]*entities.LedgerEntry, error)
}

// RedemptionService defines prize redemption bookkeeping
type RedemptionService interface {
	// ToggleRedemption flips an owned prize between redeemed and unredeemed
	ToggleRedemption(ctx context.Context, userID string, ownershipID int64, operator string) (*entities.PrizeOwnership, error)

	// OwnedPrizes lists the prizes a user has won
	OwnedPrizes(ctx context.Context, userID string) ([]*entities.PrizeOwnership, error)
}

// LedgerAuditService checks cached balances against the ledger
type LedgerAuditService interface {
	// Audit returns every user whose balance differs from the ledger sum
	Audit(ctx context.Context) ([]*entities.BalanceDiscrepancy, error)
}
