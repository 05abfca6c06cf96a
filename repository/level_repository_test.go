package repository

import (
	"context"
	"testing"

	"github.com/FJNU-NISA/WelcomeSystem/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelRepository_CRUD(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewLevelRepository(testDB.DB)
	users := NewUserRepository(testDB.DB)
	ctx := context.Background()
	testutil.SeedUser(t, testDB.DB, "2023010", 0)

	web := testutil.CreateTestLevel("Web", 10)
	pwn := testutil.CreateTestLevel("Pwn", 20)
	require.NoError(t, repo.Create(ctx, web))
	require.NoError(t, repo.Create(ctx, pwn))

	t.Run("update moves sort order and fields", func(t *testing.T) {
		pwn.SortOrder = -1
		pwn.Points = 25
		pwn.IsActive = false
		require.NoError(t, repo.Update(ctx, pwn))

		got, err := repo.GetByID(ctx, pwn.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(25), got.Points)
		assert.False(t, got.IsActive)

		all, err := repo.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, pwn.ID, all[0].ID)
	})

	t.Run("update of a missing level fails", func(t *testing.T) {
		missing := testutil.CreateTestLevel("Ghost", 1)
		missing.ID = 99999
		assert.Error(t, repo.Update(ctx, missing))
	})

	t.Run("delete cascades completions", func(t *testing.T) {
		added, err := users.AddCompletedLevel(ctx, "2023010", web.ID)
		require.NoError(t, err)
		require.True(t, added)

		deleted, err := repo.Delete(ctx, web.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		user, err := users.GetByID(ctx, "2023010")
		require.NoError(t, err)
		assert.Empty(t, user.CompletedLevels)

		got, err := repo.GetByID(ctx, web.ID)
		require.NoError(t, err)
		assert.Nil(t, got)

		deleted, err = repo.Delete(ctx, web.ID)
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}
