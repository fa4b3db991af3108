package models

// GameConfig 游戏配置表（同一时刻仅一行生效）
// 修改配置不会回溯影响已创建的会话，会话在创建时快照自己的区间
type GameConfig struct {
	BaseModel
	MinRange         int    `gorm:"default:1" json:"min_range"`
	MaxRange         int    `gorm:"default:100" json:"max_range"`
	HintTriggerCount int    `gorm:"default:3" json:"hint_trigger_count"` // 连续猜错达到该值后可触发自动提示，<=0 关闭
	MsgLower         string `gorm:"size:255;default:'try a smaller number'" json:"msg_lower"`
	MsgHigher        string `gorm:"size:255;default:'try a larger number'" json:"msg_higher"`
	MsgEqual         string `gorm:"size:255;default:'correct'" json:"msg_equal"`
	IsActive         bool   `gorm:"default:false;index" json:"is_active"`
}

// TableName 指定表名
func (GameConfig) TableName() string {
	return "game_configs"
}

// FeedbackMessage 返回反馈对应的提示语
func (c *GameConfig) FeedbackMessage(fb Feedback) string {
	switch fb {
	case FeedbackLower:
		return c.MsgLower
	case FeedbackHigher:
		return c.MsgHigher
	case FeedbackEqual:
		return c.MsgEqual
	default:
		return ""
	}
}
