package repository

import (
	"context"
	"testing"

	"github.com/FJNU-NISA/WelcomeSystem/domain"
	"github.com/FJNU-NISA/WelcomeSystem/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	t.Run("missing user", func(t *testing.T) {
		user, err := repo.GetByID(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("create starts at zero", func(t *testing.T) {
		user, err := repo.Create(ctx, "2023001", "Alice")
		require.NoError(t, err)
		assert.Equal(t, "2023001", user.ID)
		assert.Equal(t, int64(0), user.Points)
		assert.Empty(t, user.CompletedLevels)
	})

	t.Run("create again only refreshes the name", func(t *testing.T) {
		_, err := repo.ApplyPointsDelta(ctx, "2023001", 40)
		require.NoError(t, err)

		user, err := repo.Create(ctx, "2023001", "Alice Liu")
		require.NoError(t, err)
		assert.Equal(t, "Alice Liu", user.DisplayName)
		assert.Equal(t, int64(40), user.Points)
	})

	t.Run("get for update inside a transaction", func(t *testing.T) {
		tx, err := testDB.DB.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback(ctx)

		user, err := NewUserRepositoryScoped(tx).GetByIDForUpdate(ctx, "2023001")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, int64(40), user.Points)
	})
}

func TestUserRepository_ApplyPointsDelta(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()
	testutil.SeedUser(t, testDB.DB, "2023002", 10)

	balance, err := repo.ApplyPointsDelta(ctx, "2023002", -25)
	require.NoError(t, err)
	assert.Equal(t, int64(-15), balance, "overdraft prevention belongs to callers")

	_, err = repo.ApplyPointsDelta(ctx, "ghost", 5)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserRepository_CompletedLevels(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	levelRepo := NewLevelRepository(testDB.DB)
	ctx := context.Background()
	testutil.SeedUser(t, testDB.DB, "2023003", 0)

	level := testutil.CreateTestLevel("Port scan", 20)
	require.NoError(t, levelRepo.Create(ctx, level))

	added, err := repo.AddCompletedLevel(ctx, "2023003", level.ID)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.AddCompletedLevel(ctx, "2023003", level.ID)
	require.NoError(t, err)
	assert.False(t, added)

	user, err := repo.GetByID(ctx, "2023003")
	require.NoError(t, err)
	assert.Equal(t, []int64{level.ID}, user.CompletedLevels)

	removed, err := repo.RemoveCompletedLevel(ctx, "2023003", level.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.RemoveCompletedLevel(ctx, "2023003", level.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestUserRepository_FindBalanceDiscrepancies(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()
	testutil.SeedUser(t, testDB.DB, "2023004", 30)
	testutil.SeedUser(t, testDB.DB, "2023005", 0)

	discrepancies, err := repo.FindBalanceDiscrepancies(ctx)
	require.NoError(t, err)
	assert.Empty(t, discrepancies)

	// A balance write that bypasses the ledger
	_, err = repo.ApplyPointsDelta(ctx, "2023004", 7)
	require.NoError(t, err)

	discrepancies, err = repo.FindBalanceDiscrepancies(ctx)
	require.NoError(t, err)
	require.Len(t, discrepancies, 1)
	assert.Equal(t, "2023004", discrepancies[0].UserID)
	assert.Equal(t, int64(37), discrepancies[0].StoredPoints)
	assert.Equal(t, int64(30), discrepancies[0].LedgerPoints)
	assert.Equal(t, int64(1), discrepancies[0].EntryCount)
	assert.Equal(t, int64(7), discrepancies[0].Drift())
}
