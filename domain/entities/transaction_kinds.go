package entities

// TransactionKind represents the type of a ledger entry
type TransactionKind string

// All ledger entry kinds supported by the system
const (
	TransactionKindManual          TransactionKind = "manual_modify"
	TransactionKindLevelCompletion TransactionKind = "level_completion"
	TransactionKindLotteryDraw     TransactionKind = "lottery_draw"
	TransactionKindRevoke          TransactionKind = "revoke"
)

// IsValid returns true if the kind is one of the known ledger kinds
func (k TransactionKind) IsValid() bool {
	switch k {
	case TransactionKindManual, TransactionKindLevelCompletion, TransactionKindLotteryDraw, TransactionKindRevoke:
		return true
	}
	return false
}

// IsCompensating returns true for entries that reverse another entry
func (k TransactionKind) IsCompensating() bool {
	return k == TransactionKindRevoke
}

// Description returns a human-readable label for the kind
func (k TransactionKind) Description() string {
	switch k {
	case TransactionKindManual:
		return "Manual adjustment"
	case TransactionKindLevelCompletion:
		return "Level completion"
	case TransactionKindLotteryDraw:
		return "Lottery draw"
	case TransactionKindRevoke:
		return "Revoke"
	default:
		return string(k)
	}
}
