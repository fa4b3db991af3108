package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/wfunc/guess-game/internal/models"
	"gorm.io/gorm"
)

// GameSessionRepository 游戏会话仓储接口
type GameSessionRepository interface {
	BaseRepository
	Create(ctx context.Context, session *models.GameSession) error
	Update(ctx context.Context, session *models.GameSession) error
	UpdateBySessionID(ctx context.Context, sessionID string, updates map[string]interface{}) error
	FindBySessionID(ctx context.Context, sessionID string) (*models.GameSession, error)
	FindBySessionIDWithDetail(ctx context.Context, sessionID string) (*models.GameSession, error)
	ExistsBySessionID(ctx context.Context, sessionID string) (bool, error)
	FindStaleInProgress(ctx context.Context, startedBefore time.Time) ([]string, error)
	BestScores(ctx context.Context, limit int) ([]*models.GameSession, error)
	GetStatistics(ctx context.Context) (*GameStatistics, error)
	DeleteBySessionID(ctx context.Context, sessionID string) error
}

// GameStatistics 全局会话统计
// 平均值在无可计算样本时保持为 nil，序列化为 null 而不是 NaN
type GameStatistics struct {
	TotalSessions     int64    `json:"total_sessions"`
	FinishedSessions  int64    `json:"finished_sessions"`
	InProgressCount   int64    `json:"in_progress_sessions"`
	AvgAttempts       *float64 `json:"avg_attempts"`        // 仅统计 attempts > 0 的会话
	AvgElapsedSeconds *float64 `json:"avg_elapsed_seconds"` // 仅统计已结束会话
	MinAttempts       *int     `json:"min_attempts"`
	MaxAttempts       *int     `json:"max_attempts"`
}

// gameSessionRepo 游戏会话仓储实现
type gameSessionRepo struct {
	*BaseRepo
}

// NewGameSessionRepository 创建游戏会话仓储
func NewGameSessionRepository(db *gorm.DB) GameSessionRepository {
	return &gameSessionRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Create 创建游戏会话
func (r *gameSessionRepo) Create(ctx context.Context, session *models.GameSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// Update 更新游戏会话
func (r *gameSessionRepo) Update(ctx context.Context, session *models.GameSession) error {
	return r.db.WithContext(ctx).Save(session).Error
}

// UpdateBySessionID 根据会话ID更新
func (r *gameSessionRepo) UpdateBySessionID(ctx context.Context, sessionID string, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&models.GameSession{}).
		Where("session_id = ?", sessionID).
		Updates(updates).Error
}

// FindBySessionID 根据会话ID查找
func (r *gameSessionRepo) FindBySessionID(ctx context.Context, sessionID string) (*models.GameSession, error) {
	var session models.GameSession
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// FindBySessionIDWithDetail 根据会话ID查找并加载猜测与提示记录
func (r *gameSessionRepo) FindBySessionIDWithDetail(ctx context.Context, sessionID string) (*models.GameSession, error) {
	var session models.GameSession
	err := r.db.WithContext(ctx).
		Preload("Guesses", func(db *gorm.DB) *gorm.DB {
			return db.Order("attempt_order asc")
		}).
		Preload("Hints", func(db *gorm.DB) *gorm.DB {
			return db.Order("issued_at asc")
		}).
		Where("session_id = ?", sessionID).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ExistsBySessionID 检查会话ID是否已被占用
func (r *gameSessionRepo) ExistsBySessionID(ctx context.Context, sessionID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GameSession{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	return count > 0, err
}

// FindStaleInProgress 查找超期未结束的会话ID
func (r *gameSessionRepo) FindStaleInProgress(ctx context.Context, startedBefore time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.GameSession{}).
		Where("status = ? AND started_at < ?", models.SessionInProgress, startedBefore).
		Pluck("session_id", &ids).Error
	return ids, err
}

// BestScores 最佳战绩：已结束会话按尝试次数升序、用时升序
func (r *gameSessionRepo) BestScores(ctx context.Context, limit int) ([]*models.GameSession, error) {
	var sessions []*models.GameSession
	err := r.db.WithContext(ctx).
		Where("status = ?", models.SessionFinished).
		Order("attempts asc").
		Order("total_elapsed_seconds asc").
		Order("session_id asc"). // 同分时保证每次调用顺序一致
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

// GetStatistics 获取全局统计数据
func (r *gameSessionRepo) GetStatistics(ctx context.Context) (*GameStatistics, error) {
	var stats GameStatistics

	// 基础计数
	if err := r.db.WithContext(ctx).
		Model(&models.GameSession{}).
		Count(&stats.TotalSessions).Error; err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).
		Model(&models.GameSession{}).
		Where("status = ?", models.SessionFinished).
		Count(&stats.FinishedSessions).Error; err != nil {
		return nil, err
	}
	stats.InProgressCount = stats.TotalSessions - stats.FinishedSessions

	if stats.TotalSessions == 0 {
		return &stats, nil
	}

	// 平均尝试次数仅统计有猜测记录的会话
	var avgAttempts sql.NullFloat64
	err := r.db.WithContext(ctx).
		Model(&models.GameSession{}).
		Where("attempts > 0").
		Select("AVG(attempts) as avg_attempts").
		Row().Scan(&avgAttempts)
	if err != nil {
		return nil, err
	}
	if avgAttempts.Valid {
		v := avgAttempts.Float64
		stats.AvgAttempts = &v
	}

	// 尝试次数极值覆盖全部会话，零猜测会话计为0
	var minAttempts, maxAttempts sql.NullInt64
	err = r.db.WithContext(ctx).
		Model(&models.GameSession{}).
		Select(
			"MIN(attempts) as min_attempts",
			"MAX(attempts) as max_attempts",
		).
		Row().Scan(&minAttempts, &maxAttempts)
	if err != nil {
		return nil, err
	}
	if minAttempts.Valid {
		v := int(minAttempts.Int64)
		stats.MinAttempts = &v
	}
	if maxAttempts.Valid {
		v := int(maxAttempts.Int64)
		stats.MaxAttempts = &v
	}

	// 平均用时（仅已结束会话）
	if stats.FinishedSessions > 0 {
		var avgElapsed sql.NullFloat64
		err = r.db.WithContext(ctx).
			Model(&models.GameSession{}).
			Where("status = ?", models.SessionFinished).
			Select("AVG(total_elapsed_seconds) as avg_elapsed").
			Row().Scan(&avgElapsed)
		if err != nil {
			return nil, err
		}
		if avgElapsed.Valid {
			v := avgElapsed.Float64
			stats.AvgElapsedSeconds = &v
		}
	}

	return &stats, nil
}

// DeleteBySessionID 删除会话（清理超期会话时使用，物理删除）
func (r *gameSessionRepo) DeleteBySessionID(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).
		Unscoped().
		Where("session_id = ?", sessionID).
		Delete(&models.GameSession{}).Error
}

// WithTx 使用事务
func (r *gameSessionRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &gameSessionRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
