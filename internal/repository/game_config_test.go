package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/guess-game/internal/models"
	"gorm.io/gorm"
)

func TestGameConfigRepository_FindActive(t *testing.T) {
	db := TestDB(t)
	defer CleanupTestDB(db)
	repo := NewGameConfigRepository(db)
	ctx := context.Background()

	// 没有生效配置时返回记录未找到
	_, err := repo.FindActive(ctx)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	cfg := SeedTestConfig(t, db)

	found, err := repo.FindActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg.ID, found.ID)
	assert.Equal(t, 1, found.MinRange)
	assert.Equal(t, 100, found.MaxRange)
	assert.Equal(t, 3, found.HintTriggerCount)
	assert.Equal(t, "try a smaller number", found.MsgLower)
	assert.Equal(t, "try a larger number", found.MsgHigher)
	assert.Equal(t, "correct", found.MsgEqual)
}

func TestGameConfigRepository_Activate(t *testing.T) {
	db := TestDB(t)
	defer CleanupTestDB(db)
	repo := NewGameConfigRepository(db)
	ctx := context.Background()

	old := SeedTestConfig(t, db)

	next := &models.GameConfig{
		MinRange:         1,
		MaxRange:         1000,
		HintTriggerCount: 5,
		MsgLower:         "lower",
		MsgHigher:        "higher",
		MsgEqual:         "bingo",
	}
	require.NoError(t, repo.Save(ctx, next))

	require.NoError(t, repo.Activate(ctx, next.ID))

	// 同一时刻只有一行生效
	found, err := repo.FindActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, next.ID, found.ID)

	var oldRow models.GameConfig
	require.NoError(t, db.First(&oldRow, old.ID).Error)
	assert.False(t, oldRow.IsActive)

	// 激活不存在的配置返回记录未找到
	err = repo.Activate(ctx, 9999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGameConfigRepository_FeedbackMessage(t *testing.T) {
	db := TestDB(t)
	defer CleanupTestDB(db)
	cfg := SeedTestConfig(t, db)

	assert.Equal(t, "try a smaller number", cfg.FeedbackMessage(models.FeedbackLower))
	assert.Equal(t, "try a larger number", cfg.FeedbackMessage(models.FeedbackHigher))
	assert.Equal(t, "correct", cfg.FeedbackMessage(models.FeedbackEqual))
}
