package events

import (
	"github.com/FJNU-NISA/WelcomeSystem/domain/entities"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypePointsChanged           EventType = "points_changed"
	EventTypeLedgerEntryRevoked      EventType = "ledger_entry_revoked"
	EventTypePrizeDrawn              EventType = "prize_drawn"
	EventTypePrizePoolChanged        EventType = "prize_pool_changed"
	EventTypePrizeRedemptionToggled  EventType = "prize_redemption_toggled"
	EventTypeLevelCompletionReported EventType = "level_completion_reported"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// PointsChangedEvent is emitted for every appended ledger entry
type PointsChangedEvent struct {
	UserID       string                   `json:"userId"`
	RecordID     string                   `json:"recordId"`
	Kind         entities.TransactionKind `json:"kind"`
	OldBalance   int64                    `json:"oldBalance"`
	NewBalance   int64                    `json:"newBalance"`
	ChangeAmount int64                    `json:"changeAmount"`
	Operator     string                   `json:"operator"`
}

func (e PointsChangedEvent) Type() EventType {
	return EventTypePointsChanged
}

// LedgerEntryRevokedEvent is emitted when a compensating entry is appended
type LedgerEntryRevokedEvent struct {
	UserID           string                   `json:"userId"`
	RevokedRecordID  string                   `json:"revokedRecordId"`
	RevokedKind      entities.TransactionKind `json:"revokedKind"`
	NewRecordID      string                   `json:"newRecordId"`
	AppliedDelta     int64                    `json:"appliedDelta"`
	RestoredRecordID *string                  `json:"restoredRecordId,omitempty"`
	Operator         string                   `json:"operator"`
}

func (e LedgerEntryRevokedEvent) Type() EventType {
	return EventTypeLedgerEntryRevoked
}

// PrizeDrawnEvent is emitted after a successful draw
type PrizeDrawnEvent struct {
	UserID           string `json:"userId"`
	PrizeID          int64  `json:"prizeId"`
	PrizeName        string `json:"prizeName"`
	IsFiller         bool   `json:"isFiller"`
	RecordID         string `json:"recordId"`
	OwnershipID      int64  `json:"ownershipId"`
	Cost             int64  `json:"cost"`
	RemainingBalance int64  `json:"remainingBalance"`
	RemainingStock   int64  `json:"remainingStock"`
}

func (e PrizeDrawnEvent) Type() EventType {
	return EventTypePrizeDrawn
}

// PrizePoolChangedEvent is emitted after the filler weight is re-derived
type PrizePoolChangedEvent struct {
	Reason          string  `json:"reason"`
	PrizeID         *int64  `json:"prizeId,omitempty"`
	NormalWeightSum float64 `json:"normalWeightSum"`
	FillerWeight    float64 `json:"fillerWeight"`
	FillerActive    bool    `json:"fillerActive"`
}

func (e PrizePoolChangedEvent) Type() EventType {
	return EventTypePrizePoolChanged
}

// PrizeRedemptionToggledEvent is emitted when an owned prize is (un)redeemed
type PrizeRedemptionToggledEvent struct {
	UserID      string `json:"userId"`
	OwnershipID int64  `json:"ownershipId"`
	PrizeID     *int64 `json:"prizeId,omitempty"`
	Redeemed    bool   `json:"redeemed"`
	Operator    string `json:"operator"`
}

func (e PrizeRedemptionToggledEvent) Type() EventType {
	return EventTypePrizeRedemptionToggled
}

// LevelCompletionReportedEvent is the inbound message from the level checker
type LevelCompletionReportedEvent struct {
	UserID   string `json:"userId"`
	LevelID  int64  `json:"levelId"`
	Operator string `json:"operator"`
}

func (e LevelCompletionReportedEvent) Type() EventType {
	return EventTypeLevelCompletionReported
}
