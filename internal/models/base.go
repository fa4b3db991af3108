package models

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel 公共字段（ID + 时间戳 + 软删除）
type BaseModel struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
