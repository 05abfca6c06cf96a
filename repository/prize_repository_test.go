package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/FJNU-NISA/WelcomeSystem/domain/interfaces"
	"github.com/FJNU-NISA/WelcomeSystem/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrizeRepository_CRUD(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewPrizeRepository(testDB.DB)
	ctx := context.Background()

	mug := testutil.CreateTestPrize("Mug", 30, 5)
	pen := testutil.CreateTestPrize("Pen", 20, 10)
	pen.IsActive = false
	filler := testutil.CreateTestFiller(70)
	require.NoError(t, repo.Create(ctx, mug))
	require.NoError(t, repo.Create(ctx, pen))
	require.NoError(t, repo.Create(ctx, filler))
	assert.Less(t, mug.ID, pen.ID)

	t.Run("active prizes in creation order", func(t *testing.T) {
		active, err := repo.FindActive(ctx)
		require.NoError(t, err)
		require.Len(t, active, 2)
		assert.Equal(t, mug.ID, active[0].ID)
		assert.Equal(t, filler.ID, active[1].ID)
	})

	t.Run("all prizes", func(t *testing.T) {
		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("filler lookup", func(t *testing.T) {
		got, err := repo.GetFiller(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, filler.ID, got.ID)
		assert.True(t, got.IsFiller)
	})

	t.Run("a second filler is rejected by the store", func(t *testing.T) {
		err := repo.Create(ctx, testutil.CreateTestFiller(0))
		assert.Error(t, err)
	})

	t.Run("update editable fields", func(t *testing.T) {
		mug.Name = "Big mug"
		mug.Weight = 25
		require.NoError(t, repo.Update(ctx, mug))

		got, err := repo.GetByID(ctx, mug.ID)
		require.NoError(t, err)
		assert.Equal(t, "Big mug", got.Name)
		assert.InDelta(t, 25.0, got.Weight, 1e-9)
	})

	t.Run("set filler state", func(t *testing.T) {
		require.NoError(t, repo.SetFillerState(ctx, 0, false))

		got, err := repo.GetFiller(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0.0, got.Weight)
		assert.False(t, got.IsActive)
	})

	t.Run("delete", func(t *testing.T) {
		deleted, err := repo.Delete(ctx, pen.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = repo.Delete(ctx, pen.ID)
		require.NoError(t, err)
		assert.False(t, deleted)

		got, err := repo.GetByID(ctx, pen.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestPrizeRepository_DecrementStock(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewPrizeRepository(testDB.DB)
	ctx := context.Background()

	prize := testutil.CreateTestPrize("Badge", 10, 2)
	require.NoError(t, repo.Create(ctx, prize))

	ok, remaining, err := repo.DecrementStock(ctx, prize.ID, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), remaining)

	ok, _, err = repo.DecrementStock(ctx, prize.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok, "not enough stock left for two")

	ok, remaining, err = repo.DecrementStock(ctx, prize.ID, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(0), remaining)

	ok, _, err = repo.DecrementStock(ctx, prize.ID, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPrizeRepository_ConcurrentDecrementNeverOversells(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewPrizeRepository(testDB.DB)
	ctx := context.Background()

	const stock = 5
	prize := testutil.CreateTestPrize("Hoodie", 10, stock)
	require.NoError(t, repo.Create(ctx, prize))

	var wins atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _, err := repo.DecrementStock(ctx, prize.ID, 1)
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(stock), wins.Load())

	got, err := repo.GetByID(ctx, prize.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Stock)
}

func TestPrizeRepository_IncrementCounter(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewPrizeRepository(testDB.DB)
	ctx := context.Background()

	prize := testutil.CreateTestPrize("Cap", 10, 3)
	require.NoError(t, repo.Create(ctx, prize))

	require.NoError(t, repo.IncrementCounter(ctx, prize.ID, interfaces.PrizeCounterDrawn, 2))
	require.NoError(t, repo.IncrementCounter(ctx, prize.ID, interfaces.PrizeCounterRedeemed, 1))
	require.NoError(t, repo.IncrementCounter(ctx, prize.ID, interfaces.PrizeCounterRedeemed, -3))

	got, err := repo.GetByID(ctx, prize.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.DrawnCount)
	assert.Equal(t, int64(0), got.RedeemedCount, "counters never go below zero")

	err = repo.IncrementCounter(ctx, prize.ID, interfaces.PrizeCounter("stock"), 1)
	assert.Error(t, err)
}
