package testutil

import (
	"context"
	"testing"

	"github.com/FJNU-NISA/WelcomeSystem/database"
	"github.com/FJNU-NISA/WelcomeSystem/domain/entities"

	"github.com/stretchr/testify/require"
)

// CreateTestPrize builds an active normal prize
func CreateTestPrize(name string, weight float64, stock int64) *entities.Prize {
	return &entities.Prize{
		Name:        name,
		Description: name + " description",
		Stock:       stock,
		Weight:      weight,
		IsActive:    true,
	}
}

// CreateTestFiller builds the filler prize with the given derived weight
func CreateTestFiller(weight float64) *entities.Prize {
	return &entities.Prize{
		Name:        entities.FillerPrizeName,
		Description: "No prize this time",
		Stock:       entities.FillerPrizeStock,
		Weight:      weight,
		IsActive:    weight > 0,
		IsFiller:    true,
	}
}

// CreateTestLevel builds an active level
func CreateTestLevel(name string, points int64) *entities.Level {
	return &entities.Level{
		Name:        name,
		Description: name + " challenge",
		Points:      points,
		IsActive:    true,
	}
}

// SeedUser inserts a user whose balance is backed by a single manual ledger
// entry, so the stored balance and the ledger agree from the start
func SeedUser(t *testing.T, db *database.DB, userID string, points int64) {
	t.Helper()
	ctx := context.Background()

	_, err := db.Exec(ctx, `INSERT INTO users (id, display_name, points) VALUES ($1, $2, $3)`,
		userID, "user "+userID, points)
	require.NoError(t, err)

	if points == 0 {
		return
	}
	_, err = db.Exec(ctx, `
		INSERT INTO ledger_entries (id, user_id, kind, points_change, balance_before, balance_after, reason, operator)
		VALUES (gen_random_uuid(), $1, 'manual_modify', $2, 0, $2, 'seed', 'test')
	`, userID, points)
	require.NoError(t, err)
}
