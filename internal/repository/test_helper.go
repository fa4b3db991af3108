package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/guess-game/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB 创建测试数据库
// 使用内存数据库进行测试（更快，不需要文件系统，在所有环境中都能工作）
func TestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// :memory: 数据库按连接隔离，必须限制为单连接
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	// 自动迁移所有模型
	err = db.AutoMigrate(
		&models.GameSession{},
		&models.GuessAttempt{},
		&models.Hint{},
		&models.MatchHistory{},
		&models.GameConfig{},
	)
	require.NoError(t, err)

	return db
}

// CleanupTestDB 清理测试数据库
func CleanupTestDB(db *gorm.DB) {
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// SeedTestConfig 创建测试用的生效配置
func SeedTestConfig(t *testing.T, db *gorm.DB) *models.GameConfig {
	cfg := &models.GameConfig{
		MinRange:         1,
		MaxRange:         100,
		HintTriggerCount: 3,
		MsgLower:         "try a smaller number",
		MsgHigher:        "try a larger number",
		MsgEqual:         "correct",
		IsActive:         true,
	}
	require.NoError(t, db.Create(cfg).Error)
	return cfg
}

// CreateTestSession 创建测试游戏会话
func CreateTestSession(sessionID string, secret int) *models.GameSession {
	return &models.GameSession{
		SessionID:    sessionID,
		SecretNumber: secret,
		MinRange:     1,
		MaxRange:     100,
		Status:       models.SessionInProgress,
		StartedAt:    time.Now(),
	}
}

// CreateFinishedSession 创建已结束的测试会话
func CreateFinishedSession(sessionID string, attempts int, elapsed int64) *models.GameSession {
	started := time.Now().Add(-time.Duration(elapsed) * time.Second)
	ended := started.Add(time.Duration(elapsed) * time.Second)
	return &models.GameSession{
		SessionID:           sessionID,
		SecretNumber:        42,
		MinRange:            1,
		MaxRange:            100,
		Attempts:            attempts,
		Status:              models.SessionFinished,
		StartedAt:           started,
		EndedAt:             &ended,
		TotalElapsedSeconds: &elapsed,
	}
}

// AssertSession 验证游戏会话
func AssertSession(t *testing.T, expected, actual *models.GameSession) {
	assert.Equal(t, expected.SessionID, actual.SessionID)
	assert.Equal(t, expected.SecretNumber, actual.SecretNumber)
	assert.Equal(t, expected.MinRange, actual.MinRange)
	assert.Equal(t, expected.MaxRange, actual.MaxRange)
	assert.Equal(t, expected.Status, actual.Status)
}
