package database

import (
	"fmt"

	"github.com/wfunc/guess-game/internal/config"
	"github.com/wfunc/guess-game/internal/logger"
	"github.com/wfunc/guess-game/internal/models"
	"go.uber.org/zap"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	// 清理过期锁文件
	CleanupStaleLocks()

	// 获取迁移锁，避免多个进程同时迁移
	dbPath := getDBPath()
	if dbPath != "" {
		lockFile, err := acquireMigrationLock(dbPath)
		if err != nil {
			logger.Error("无法获取迁移锁", zap.Error(err))
			return fmt.Errorf("获取迁移锁失败: %w", err)
		}
		defer releaseMigrationLock(lockFile)
	}

	// 需要迁移的模型
	migrationModels := []interface{}{
		&models.GameSession{},
		&models.GuessAttempt{},
		&models.Hint{},
		&models.MatchHistory{},
		&models.GameConfig{},
	}

	logger.Info("开始数据库迁移...")

	// SQLite 重建表时禁用外键约束，避免锁定问题
	if DB.Dialector.Name() == "sqlite" {
		DB.Exec("PRAGMA foreign_keys = OFF")
		defer DB.Exec("PRAGMA foreign_keys = ON")
	}

	for _, model := range migrationModels {
		if err := DB.AutoMigrate(model); err != nil {
			logger.Error("迁移失败",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Error(err),
			)
			return err
		}
		logger.Debug("迁移成功", zap.String("model", fmt.Sprintf("%T", model)))
	}

	// 创建索引
	if err := createIndexes(); err != nil {
		return err
	}

	// 初始化默认数据
	if err := initDefaultData(); err != nil {
		return err
	}

	logger.Info("数据库迁移完成")
	return nil
}

// createIndexes 创建数据库索引
func createIndexes() error {
	// 会话表索引
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_game_sessions_status ON game_sessions(status)").Error; err != nil {
		logger.Warn("创建索引失败", zap.String("index", "idx_game_sessions_status"), zap.Error(err))
	}

	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_game_sessions_started_at ON game_sessions(started_at)").Error; err != nil {
		logger.Warn("创建索引失败", zap.String("index", "idx_game_sessions_started_at"), zap.Error(err))
	}

	// 猜测记录索引
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_guess_attempts_session_id ON guess_attempts(session_id)").Error; err != nil {
		logger.Warn("创建索引失败", zap.String("index", "idx_guess_attempts_session_id"), zap.Error(err))
	}

	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_guess_attempts_submitted_at ON guess_attempts(submitted_at)").Error; err != nil {
		logger.Warn("创建索引失败", zap.String("index", "idx_guess_attempts_submitted_at"), zap.Error(err))
	}

	// 归档表索引
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_match_histories_attempts ON match_histories(attempts)").Error; err != nil {
		logger.Warn("创建索引失败", zap.String("index", "idx_match_histories_attempts"), zap.Error(err))
	}

	logger.Info("数据库索引创建完成")
	return nil
}

// initDefaultData 初始化默认数据
// 保证 game_configs 表始终有且仅有一行生效配置
func initDefaultData() error {
	var count int64
	DB.Model(&models.GameConfig{}).Where("is_active = ?", true).Count(&count)
	if count > 0 {
		return nil
	}

	defaults := defaultGameConfig()
	if err := DB.Create(defaults).Error; err != nil {
		logger.Error("创建默认游戏配置失败", zap.Error(err))
		return err
	}

	logger.Info("默认数据初始化完成",
		zap.Int("min_range", defaults.MinRange),
		zap.Int("max_range", defaults.MaxRange),
		zap.Int("hint_trigger_count", defaults.HintTriggerCount),
	)
	return nil
}

// defaultGameConfig 根据进程配置构造默认生效行
func defaultGameConfig() *models.GameConfig {
	row := &models.GameConfig{
		MinRange:         1,
		MaxRange:         100,
		HintTriggerCount: 3,
		MsgLower:         "try a smaller number",
		MsgHigher:        "try a larger number",
		MsgEqual:         "correct",
		IsActive:         true,
	}

	if cfg := config.Get(); cfg != nil {
		row.MinRange = cfg.Game.DefaultMinRange
		row.MaxRange = cfg.Game.DefaultMaxRange
		row.HintTriggerCount = cfg.Game.HintTriggerCount
		row.MsgLower = cfg.Game.MsgLower
		row.MsgHigher = cfg.Game.MsgHigher
		row.MsgEqual = cfg.Game.MsgEqual
	}

	return row
}

// DropAllTables 删除所有表（仅用于测试环境）
func DropAllTables() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	var tables []string
	if err := DB.Raw("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'").Scan(&tables).Error; err != nil {
		return err
	}

	for _, table := range tables {
		if err := DB.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", table)).Error; err != nil {
			logger.Error("删除表失败", zap.String("table", table), zap.Error(err))
			return err
		}
	}

	logger.Info("所有表已删除")
	return nil
}
