package repository

import (
	"context"

	"github.com/wfunc/guess-game/internal/models"
	"gorm.io/gorm"
)

// GameConfigRepository 游戏配置仓储接口
type GameConfigRepository interface {
	BaseRepository
	FindActive(ctx context.Context) (*models.GameConfig, error)
	Save(ctx context.Context, cfg *models.GameConfig) error
	Activate(ctx context.Context, id uint) error
}

// gameConfigRepo 游戏配置仓储实现
type gameConfigRepo struct {
	*BaseRepo
}

// NewGameConfigRepository 创建游戏配置仓储
func NewGameConfigRepository(db *gorm.DB) GameConfigRepository {
	return &gameConfigRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// FindActive 返回当前生效的配置行
func (r *gameConfigRepo) FindActive(ctx context.Context) (*models.GameConfig, error) {
	var cfg models.GameConfig
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id desc").
		First(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save 保存配置行
func (r *gameConfigRepo) Save(ctx context.Context, cfg *models.GameConfig) error {
	return r.db.WithContext(ctx).Save(cfg).Error
}

// Activate 切换生效配置，保证同一时刻仅一行生效
// 新配置不回溯影响已创建的会话
func (r *gameConfigRepo) Activate(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.GameConfig{}).
			Where("is_active = ?", true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		result := tx.Model(&models.GameConfig{}).
			Where("id = ?", id).
			Update("is_active", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// WithTx 使用事务
func (r *gameConfigRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &gameConfigRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
