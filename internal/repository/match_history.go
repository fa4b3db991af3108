package repository

import (
	"context"

	"github.com/wfunc/guess-game/internal/models"
	"gorm.io/gorm"
)

// MatchHistoryRepository 对局归档仓储接口
type MatchHistoryRepository interface {
	BaseRepository
	Create(ctx context.Context, record *models.MatchHistory) error
	FindBySessionID(ctx context.Context, sessionID string) (*models.MatchHistory, error)
	List(ctx context.Context, p *Pagination) ([]*models.MatchHistory, error)
	UpdateRating(ctx context.Context, sessionID string, rating int) error
}

// matchHistoryRepo 对局归档仓储实现
type matchHistoryRepo struct {
	*BaseRepo
}

// NewMatchHistoryRepository 创建对局归档仓储
func NewMatchHistoryRepository(db *gorm.DB) MatchHistoryRepository {
	return &matchHistoryRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Create 写入归档记录（会话结束时一次性写入）
func (r *matchHistoryRepo) Create(ctx context.Context, record *models.MatchHistory) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// FindBySessionID 根据会话ID查找归档记录
func (r *matchHistoryRepo) FindBySessionID(ctx context.Context, sessionID string) (*models.MatchHistory, error) {
	var record models.MatchHistory
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// List 按结束时间倒序返回归档记录（分页）
func (r *matchHistoryRepo) List(ctx context.Context, p *Pagination) ([]*models.MatchHistory, error) {
	var records []*models.MatchHistory

	// 查询总数
	r.db.WithContext(ctx).
		Model(&models.MatchHistory{}).
		Count(&p.Total)

	// 查询数据
	err := r.db.WithContext(ctx).
		Order("created_at desc").
		Scopes(Paginate(p)).
		Find(&records).Error

	return records, err
}

// UpdateRating 补记难度评分（归档记录唯一可变的字段）
func (r *matchHistoryRepo) UpdateRating(ctx context.Context, sessionID string, rating int) error {
	result := r.db.WithContext(ctx).
		Model(&models.MatchHistory{}).
		Where("session_id = ?", sessionID).
		Update("difficulty_rating", rating)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// WithTx 使用事务
func (r *matchHistoryRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &matchHistoryRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
