package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/guess-game/internal/models"
	"gorm.io/gorm"
)

func TestMatchHistoryRepository_CreateAndFind(t *testing.T) {
	db := TestDB(t)
	defer CleanupTestDB(db)
	repo := NewMatchHistoryRepository(db)
	ctx := context.Background()

	record := &models.MatchHistory{
		SessionID:           "s-history",
		Attempts:            5,
		TotalElapsedSeconds: 120,
	}
	require.NoError(t, repo.Create(ctx, record))

	found, err := repo.FindBySessionID(ctx, "s-history")
	require.NoError(t, err)
	assert.Equal(t, 5, found.Attempts)
	assert.Equal(t, int64(120), found.TotalElapsedSeconds)
	assert.Nil(t, found.DifficultyRating)

	// 每个会话只有一条归档记录
	dup := &models.MatchHistory{SessionID: "s-history", Attempts: 1}
	assert.Error(t, repo.Create(ctx, dup))
}

func TestMatchHistoryRepository_UpdateRating(t *testing.T) {
	db := TestDB(t)
	defer CleanupTestDB(db)
	repo := NewMatchHistoryRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.MatchHistory{
		SessionID:           "s-rating",
		Attempts:            3,
		TotalElapsedSeconds: 60,
	}))

	require.NoError(t, repo.UpdateRating(ctx, "s-rating", 4))

	found, err := repo.FindBySessionID(ctx, "s-rating")
	require.NoError(t, err)
	require.NotNil(t, found.DifficultyRating)
	assert.Equal(t, 4, *found.DifficultyRating)

	// 不存在的会话返回记录未找到
	err = repo.UpdateRating(ctx, "s-missing", 4)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestMatchHistoryRepository_List(t *testing.T) {
	db := TestDB(t)
	defer CleanupTestDB(db)
	repo := NewMatchHistoryRepository(db)
	ctx := context.Background()

	for _, sid := range []string{"s-1", "s-2", "s-3"} {
		require.NoError(t, repo.Create(ctx, &models.MatchHistory{
			SessionID:           sid,
			Attempts:            1,
			TotalElapsedSeconds: 10,
		}))
	}

	p := NewPagination(1, 2)
	records, err := repo.List(ctx, p)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, int64(3), p.Total)
}
