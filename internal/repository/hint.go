package repository

import (
	"context"

	"github.com/wfunc/guess-game/internal/models"
	"gorm.io/gorm"
)

// HintRepository 提示记录仓储接口
type HintRepository interface {
	BaseRepository
	Create(ctx context.Context, hint *models.Hint) error
	FindBySessionID(ctx context.Context, sessionID string) ([]*models.Hint, error)
	DeleteBySessionID(ctx context.Context, sessionID string) error
}

// hintRepo 提示记录仓储实现
type hintRepo struct {
	*BaseRepo
}

// NewHintRepository 创建提示记录仓储
func NewHintRepository(db *gorm.DB) HintRepository {
	return &hintRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Create 写入一条提示记录
func (r *hintRepo) Create(ctx context.Context, hint *models.Hint) error {
	return r.db.WithContext(ctx).Create(hint).Error
}

// FindBySessionID 按发放时间升序返回会话的提示记录
func (r *hintRepo) FindBySessionID(ctx context.Context, sessionID string) ([]*models.Hint, error) {
	var hints []*models.Hint
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("issued_at asc").
		Find(&hints).Error
	return hints, err
}

// DeleteBySessionID 删除会话的全部提示记录（级联清理）
func (r *hintRepo) DeleteBySessionID(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).
		Unscoped().
		Where("session_id = ?", sessionID).
		Delete(&models.Hint{}).Error
}

// WithTx 使用事务
func (r *hintRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &hintRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
