package entities

import "time"

const (
	// FullWeight is the total probability mass of a prize pool
	FullWeight = 100.0

	// WeightEpsilon absorbs floating point noise when comparing weight sums
	WeightEpsilon = 1e-9

	// FillerPrizeName is the display name of the default filler prize
	FillerPrizeName = "谢谢惠顾"

	// FillerPrizeStock marks the filler stock as effectively unbounded
	FillerPrizeStock int64 = 999999
)

// Prize represents a reward definition in the draw pool
type Prize struct {
	ID            int64     `db:"id"`
	Name          string    `db:"name"`
	Description   string    `db:"description"`
	Photo         string    `db:"photo"`
	Stock         int64     `db:"stock"`
	Weight        float64   `db:"weight"` // Percentage points, 0-100
	IsActive      bool      `db:"is_active"`
	IsFiller      bool      `db:"is_filler"`
	DrawnCount    int64     `db:"drawn_count"`
	RedeemedCount int64     `db:"redeemed_count"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// IsDrawable returns true if the prize can currently be won
func (p *Prize) IsDrawable() bool {
	if !p.IsActive {
		return false
	}
	return p.IsFiller || p.Stock > 0
}

// CountsTowardWeightCap returns true if the prize weight is part of the
// active non-filler sum capped at FullWeight
func (p *Prize) CountsTowardWeightCap() bool {
	return p.IsActive && !p.IsFiller
}

// ValidWeight reports whether w lies on the 0-100 scale
func ValidWeight(w float64) bool {
	return w >= 0 && w <= FullWeight
}

// PrizePoolSummary describes how the probability mass is split
type PrizePoolSummary struct {
	ActivePrizeCount int     `json:"activePrizeCount"`
	NormalWeightSum  float64 `json:"normalWeightSum"`
	FillerWeight     float64 `json:"fillerWeight"`
	FillerActive     bool    `json:"fillerActive"`
	HasFiller        bool    `json:"hasFiller"`
	Headroom         float64 `json:"headroom"` // Weight still assignable to normal prizes
	Valid            bool    `json:"valid"`
}
