package models

import (
	"time"
)

// 会话状态
const (
	SessionInProgress = "in_progress" // 进行中
	SessionFinished   = "finished"    // 已结束（猜中后不可逆）
)

// Feedback 猜测反馈
type Feedback string

const (
	FeedbackLower  Feedback = "lower"  // 猜大了，往小猜
	FeedbackHigher Feedback = "higher" // 猜小了，往大猜
	FeedbackEqual  Feedback = "equal"  // 猜中
)

// HintType 提示类型
type HintType string

const (
	HintTypeRange  HintType = "range"  // 区间收窄提示
	HintTypeParity HintType = "parity" // 奇偶提示
)

// GameSession 猜数字游戏会话表
type GameSession struct {
	BaseModel
	SessionID            string     `gorm:"uniqueIndex;size:64;not null" json:"session_id"`
	UserID               uint       `gorm:"index" json:"user_id"` // 预留字段，暂未启用多租户
	SecretNumber         int        `gorm:"not null" json:"-"`    // 永不下发给猜测方
	MinRange             int        `gorm:"not null" json:"min_range"`
	MaxRange             int        `gorm:"not null" json:"max_range"`
	Attempts             int        `gorm:"default:0" json:"attempts"`
	ConsecutiveIncorrect int        `gorm:"default:0" json:"consecutive_incorrect"`
	HintsUsed            int        `gorm:"default:0" json:"hints_used"`
	Status               string     `gorm:"size:20;default:'in_progress';index" json:"status"`
	StartedAt            time.Time  `gorm:"not null" json:"started_at"`
	EndedAt              *time.Time `json:"ended_at,omitempty"`
	TotalElapsedSeconds  *int64     `json:"total_elapsed_seconds,omitempty"` // 仅结束后非空

	// 关联
	Guesses []GuessAttempt `gorm:"foreignKey:SessionID;references:SessionID" json:"guesses,omitempty"`
	Hints   []Hint         `gorm:"foreignKey:SessionID;references:SessionID" json:"hints,omitempty"`
}

// TableName 指定表名
func (GameSession) TableName() string {
	return "game_sessions"
}

// IsFinished 会话是否已结束
func (s *GameSession) IsFinished() bool {
	return s.Status == SessionFinished
}

// GuessAttempt 猜测记录表
type GuessAttempt struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID   string    `gorm:"size:64;not null;index;uniqueIndex:idx_session_order,priority:1" json:"session_id"`
	Order       int       `gorm:"column:attempt_order;not null;uniqueIndex:idx_session_order,priority:2" json:"order"` // 会话内从1起连续递增
	Guess       int       `gorm:"not null" json:"guess"`
	Feedback    Feedback  `gorm:"size:10;not null" json:"feedback"`
	SubmittedAt time.Time `gorm:"not null;index" json:"submitted_at"`
}

// TableName 指定表名
func (GuessAttempt) TableName() string {
	return "guess_attempts"
}

// Hint 提示记录表
type Hint struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string    `gorm:"size:64;not null;index" json:"session_id"`
	Text      string    `gorm:"size:255;not null" json:"text"`
	Type      HintType  `gorm:"size:20;not null" json:"type"`
	IssuedAt  time.Time `gorm:"not null" json:"issued_at"`
}

// TableName 指定表名
func (Hint) TableName() string {
	return "hints"
}

// MatchHistory 对局归档表（会话结束时一次性写入，之后不再变更）
type MatchHistory struct {
	BaseModel
	SessionID           string `gorm:"uniqueIndex;size:64;not null" json:"session_id"`
	Attempts            int    `gorm:"not null" json:"attempts"`
	TotalElapsedSeconds int64  `gorm:"not null" json:"total_elapsed_seconds"`
	DifficultyRating    *int   `json:"difficulty_rating,omitempty"` // 1-5，可选
}

// TableName 指定表名
func (MatchHistory) TableName() string {
	return "match_histories"
}
