package entities

import "time"

// Level is a challenge whose completion awards points
type Level struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Points      int64     `db:"points"`
	IsActive    bool      `db:"is_active"`
	SortOrder   int       `db:"sort_order"`
	CreatedAt   time.Time `db:"created_at"`
}
