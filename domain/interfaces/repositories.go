package interfaces

import (
	"context"
	"time"

	"github.com/FJNU-NISA/WelcomeSystem/domain/entities"
	"github.com/FJNU-NISA/WelcomeSystem/domain/events"
)

// UserRepository defines the interface for wallet and progress data access
type UserRepository interface {
	// GetByID retrieves a user with their completed levels
	GetByID(ctx context.Context, userID string) (*entities.User, error)

	// GetByIDForUpdate retrieves a user and locks the row until the transaction ends
	GetByIDForUpdate(ctx context.Context, userID string) (*entities.User, error)

	// Create registers a new user with a zero balance
	Create(ctx context.Context, userID, displayName string) (*entities.User, error)

	// ApplyPointsDelta atomically adds delta to the balance and returns the new balance
	ApplyPointsDelta(ctx context.Context, userID string, delta int64) (int64, error)

	// AddCompletedLevel adds a level to the completed set; false if it was already there
	AddCompletedLevel(ctx context.Context, userID string, levelID int64) (bool, error)

	// RemoveCompletedLevel removes a level from the completed set; false if it was absent
	RemoveCompletedLevel(ctx context.Context, userID string, levelID int64) (bool, error)

	// FindBalanceDiscrepancies returns users whose balance differs from their ledger sum
	FindBalanceDiscrepancies(ctx context.Context) ([]*entities.BalanceDiscrepancy, error)
}

// LedgerRepository defines the interface for the append-only point ledger
type LedgerRepository interface {
	// Append stores a new entry, filling ID (when empty), Seq and CreatedAt
	Append(ctx context.Context, entry *entities.LedgerEntry) error

	// GetByID retrieves one of the user's entries
	GetByID(ctx context.Context, userID, recordID string) (*entities.LedgerEntry, error)

	// GetByIDForUpdate retrieves one of the user's entries and locks it
	GetByIDForUpdate(ctx context.Context, userID, recordID string) (*entities.LedgerEntry, error)

	// MarkRevoked sets revoked=true if it is currently false; false if nothing changed
	MarkRevoked(ctx context.Context, userID, recordID, operator string, at time.Time) (bool, error)

	// RestoreRevoked sets revoked=false if it is currently true; false if nothing changed
	RestoreRevoked(ctx context.Context, userID, recordID string) (bool, error)

	// GetByUser returns the newest entries first
	GetByUser(ctx context.Context, userID string, limit int) ([]*entities.LedgerEntry, error)

	// SumByUser returns the sum of all point changes for a user
	SumByUser(ctx context.Context, userID string) (int64, error)
}

// PrizeCounter names a cumulative prize counter column
type PrizeCounter string

const (
	PrizeCounterDrawn    PrizeCounter = "drawn_count"
	PrizeCounterRedeemed PrizeCounter = "redeemed_count"
)

// PrizeRepository defines the interface for prize pool data access
type PrizeRepository interface {
	// FindActive returns active prizes in creation order
	FindActive(ctx context.Context) ([]*entities.Prize, error)

	// FindAll returns every prize in creation order
	FindAll(ctx context.Context) ([]*entities.Prize, error)

	// GetByID retrieves a prize by id
	GetByID(ctx context.Context, id int64) (*entities.Prize, error)

	// GetFiller retrieves the filler prize, nil if none exists
	GetFiller(ctx context.Context) (*entities.Prize, error)

	// Create inserts a prize, filling ID and timestamps
	Create(ctx context.Context, prize *entities.Prize) error

	// Update writes the editable fields of a prize
	Update(ctx context.Context, prize *entities.Prize) error

	// Delete removes a prize; false if it did not exist
	Delete(ctx context.Context, id int64) (bool, error)

	// Count returns the number of prize definitions
	Count(ctx context.Context) (int, error)

	// DecrementStock subtracts amount if stock >= amount. ok is false when the
	// condition did not match.
	DecrementStock(ctx context.Context, id int64, amount int64) (ok bool, remaining int64, err error)

	// IncrementCounter adds amount to a cumulative counter, never going below zero
	IncrementCounter(ctx context.Context, id int64, counter PrizeCounter, amount int64) error

	// SetFillerState stores the derived filler weight and active flag
	SetFillerState(ctx context.Context, weight float64, active bool) error

	// LockPool serialises prize pool mutations until the transaction ends
	LockPool(ctx context.Context) error
}

// PrizeOwnershipRepository defines the interface for won prizes
type PrizeOwnershipRepository interface {
	// Create inserts an ownership record, filling ID and DrawnAt
	Create(ctx context.Context, ownership *entities.PrizeOwnership) error

	// GetByIDForUpdate retrieves one of the user's records and locks it
	GetByIDForUpdate(ctx context.Context, userID string, id int64) (*entities.PrizeOwnership, error)

	// SetRedeemed stores the redemption state
	SetRedeemed(ctx context.Context, userID string, id int64, redeemed bool, operator string, at time.Time) error

	// GetByUser returns the newest records first
	GetByUser(ctx context.Context, userID string) ([]*entities.PrizeOwnership, error)
}

// LevelRepository defines the interface for level data access
type LevelRepository interface {
	// GetByID retrieves a level by id
	GetByID(ctx context.Context, id int64) (*entities.Level, error)

	// GetAll returns levels by sort order
	GetAll(ctx context.Context) ([]*entities.Level, error)

	// Create inserts a level, filling ID and CreatedAt
	Create(ctx context.Context, level *entities.Level) error

	// Update writes the editable fields
	Update(ctx context.Context, level *entities.Level) error

	// Delete removes a level, reporting whether a row was removed
	Delete(ctx context.Context, id int64) (bool, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event) error
}
