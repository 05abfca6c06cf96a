package repository

import (
	"context"
	"testing"
	"time"

	"github.com/FJNU-NISA/WelcomeSystem/domain/entities"
	"github.com/FJNU-NISA/WelcomeSystem/repository/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRepository_AppendAndGet(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewLedgerRepository(testDB.DB)
	ctx := context.Background()
	testutil.SeedUser(t, testDB.DB, "2023010", 0)

	prizeID := int64(9)
	prizeName := "Sticker"
	entry := &entities.LedgerEntry{
		UserID:        "2023010",
		Kind:          entities.TransactionKindLotteryDraw,
		PointsChange:  -1,
		BalanceBefore: 5,
		BalanceAfter:  4,
		Reason:        "Lottery draw",
		Operator:      "2023010",
		PrizeID:       &prizeID,
		PrizeName:     &prizeName,
		Metadata:      map[string]any{"cost": 1, "is_filler": false},
	}
	require.NoError(t, repo.Append(ctx, entry))
	assert.NotEmpty(t, entry.ID)
	assert.Positive(t, entry.Seq)
	assert.False(t, entry.CreatedAt.IsZero())

	t.Run("round trip", func(t *testing.T) {
		got, err := repo.GetByID(ctx, "2023010", entry.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, entities.TransactionKindLotteryDraw, got.Kind)
		assert.Equal(t, int64(-1), got.PointsChange)
		assert.Equal(t, int64(4), got.BalanceAfter)
		require.NotNil(t, got.PrizeID)
		assert.Equal(t, prizeID, *got.PrizeID)
		assert.Equal(t, prizeName, *got.PrizeName)
		assert.Equal(t, float64(1), got.Metadata["cost"])
		assert.False(t, got.Revoked)
		assert.Nil(t, got.OriginalRecordID)
	})

	t.Run("other users cannot see the entry", func(t *testing.T) {
		got, err := repo.GetByID(ctx, "someone-else", entry.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("malformed id is not found", func(t *testing.T) {
		got, err := repo.GetByID(ctx, "2023010", "not-a-uuid")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		got, err := repo.GetByID(ctx, "2023010", uuid.NewString())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("revoke entry keeps its back reference", func(t *testing.T) {
		kind := entities.TransactionKindLotteryDraw
		revoke := &entities.LedgerEntry{
			UserID:           "2023010",
			Kind:             entities.TransactionKindRevoke,
			PointsChange:     1,
			BalanceBefore:    4,
			BalanceAfter:     5,
			Operator:         "admin",
			OriginalRecordID: &entry.ID,
			OriginalKind:     &kind,
		}
		require.NoError(t, repo.Append(ctx, revoke))
		assert.Greater(t, revoke.Seq, entry.Seq)

		got, err := repo.GetByID(ctx, "2023010", revoke.ID)
		require.NoError(t, err)
		require.NotNil(t, got.OriginalRecordID)
		assert.Equal(t, entry.ID, *got.OriginalRecordID)
		require.NotNil(t, got.OriginalKind)
		assert.Equal(t, kind, *got.OriginalKind)
		assert.Nil(t, got.Metadata)
	})
}

func TestLedgerRepository_AppendRejectsInvalidEntries(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewLedgerRepository(testDB.DB)
	ctx := context.Background()
	testutil.SeedUser(t, testDB.DB, "2023011", 0)

	err := repo.Append(ctx, &entities.LedgerEntry{
		UserID:       "2023011",
		Kind:         entities.TransactionKindRevoke,
		PointsChange: 3,
		Operator:     "admin",
	})
	assert.Error(t, err)

	sum, err := repo.SumByUser(ctx, "2023011")
	require.NoError(t, err)
	assert.Equal(t, int64(0), sum)
}

func TestLedgerRepository_RevokedFlag(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewLedgerRepository(testDB.DB)
	ctx := context.Background()
	testutil.SeedUser(t, testDB.DB, "2023012", 0)

	entry := &entities.LedgerEntry{
		UserID:       "2023012",
		Kind:         entities.TransactionKindManual,
		PointsChange: 10,
		BalanceAfter: 10,
		Operator:     "admin",
	}
	require.NoError(t, repo.Append(ctx, entry))

	at := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	changed, err := repo.MarkRevoked(ctx, "2023012", entry.ID, "admin", at)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.MarkRevoked(ctx, "2023012", entry.ID, "other-admin", at.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, changed, "a revoked entry cannot be revoked again")

	got, err := repo.GetByID(ctx, "2023012", entry.ID)
	require.NoError(t, err)
	assert.True(t, got.Revoked)
	require.NotNil(t, got.RevokedBy)
	assert.Equal(t, "admin", *got.RevokedBy)
	require.NotNil(t, got.RevokedAt)
	assert.True(t, at.Equal(*got.RevokedAt))

	restored, err := repo.RestoreRevoked(ctx, "2023012", entry.ID)
	require.NoError(t, err)
	assert.True(t, restored)

	restored, err = repo.RestoreRevoked(ctx, "2023012", entry.ID)
	require.NoError(t, err)
	assert.False(t, restored)

	got, err = repo.GetByID(ctx, "2023012", entry.ID)
	require.NoError(t, err)
	assert.False(t, got.Revoked)
	assert.Nil(t, got.RevokedBy)
	assert.Nil(t, got.RevokedAt)
}

func TestLedgerRepository_GetByUserAndSum(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewLedgerRepository(testDB.DB)
	ctx := context.Background()
	testutil.SeedUser(t, testDB.DB, "2023013", 0)

	deltas := []int64{5, -2, 8, -1}
	for _, d := range deltas {
		require.NoError(t, repo.Append(ctx, &entities.LedgerEntry{
			UserID:       "2023013",
			Kind:         entities.TransactionKindManual,
			PointsChange: d,
			Operator:     "admin",
		}))
	}

	entries, err := repo.GetByUser(ctx, "2023013", 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, int64(-1), entries[0].PointsChange, "newest first")
	assert.Equal(t, int64(8), entries[1].PointsChange)
	assert.Greater(t, entries[0].Seq, entries[1].Seq)

	sum, err := repo.SumByUser(ctx, "2023013")
	require.NoError(t, err)
	assert.Equal(t, int64(10), sum)
}
