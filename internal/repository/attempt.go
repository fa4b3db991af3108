package repository

import (
	"context"

	"github.com/wfunc/guess-game/internal/models"
	"gorm.io/gorm"
)

// GuessAttemptRepository 猜测记录仓储接口
type GuessAttemptRepository interface {
	BaseRepository
	Create(ctx context.Context, attempt *models.GuessAttempt) error
	FindBySessionID(ctx context.Context, sessionID string, p *Pagination) ([]*models.GuessAttempt, error)
	CountBySessionID(ctx context.Context, sessionID string) (int64, error)
	MaxOrder(ctx context.Context, sessionID string) (int, error)
	DeleteBySessionID(ctx context.Context, sessionID string) error
}

// guessAttemptRepo 猜测记录仓储实现
type guessAttemptRepo struct {
	*BaseRepo
}

// NewGuessAttemptRepository 创建猜测记录仓储
func NewGuessAttemptRepository(db *gorm.DB) GuessAttemptRepository {
	return &guessAttemptRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Create 写入一条猜测记录
func (r *guessAttemptRepo) Create(ctx context.Context, attempt *models.GuessAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

// FindBySessionID 按序号升序返回会话的猜测记录
// p 为 nil 时返回全部记录
func (r *guessAttemptRepo) FindBySessionID(ctx context.Context, sessionID string, p *Pagination) ([]*models.GuessAttempt, error) {
	var attempts []*models.GuessAttempt

	// 查询总数
	if p != nil {
		r.db.WithContext(ctx).
			Model(&models.GuessAttempt{}).
			Where("session_id = ?", sessionID).
			Count(&p.Total)
	}

	// 查询数据
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("attempt_order asc").
		Scopes(Paginate(p)).
		Find(&attempts).Error

	return attempts, err
}

// CountBySessionID 统计会话的猜测条数
func (r *guessAttemptRepo) CountBySessionID(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GuessAttempt{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	return count, err
}

// MaxOrder 返回会话当前最大序号，无记录时为0
func (r *guessAttemptRepo) MaxOrder(ctx context.Context, sessionID string) (int, error) {
	var maxOrder int
	err := r.db.WithContext(ctx).
		Model(&models.GuessAttempt{}).
		Where("session_id = ?", sessionID).
		Select("COALESCE(MAX(attempt_order), 0)").
		Row().Scan(&maxOrder)
	return maxOrder, err
}

// DeleteBySessionID 删除会话的全部猜测记录（级联清理）
func (r *guessAttemptRepo) DeleteBySessionID(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).
		Unscoped().
		Where("session_id = ?", sessionID).
		Delete(&models.GuessAttempt{}).Error
}

// WithTx 使用事务
func (r *guessAttemptRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &guessAttemptRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
