package game

import (
	"fmt"

	"github.com/wfunc/guess-game/internal/models"
)

// HintStrategy 提示生成策略
// Build 根据会话当前状态生成提示文案，无法给出有效提示时返回 false
// 提示只描述秘密数字的性质，绝不直接暴露数字本身
type HintStrategy interface {
	Type() models.HintType
	Build(session *models.GameSession, attempts []*models.GuessAttempt) (string, bool)
}

// RangeHintStrategy 区间收窄提示
// 根据已有猜测的反馈推算秘密数字所在的最小区间
type RangeHintStrategy struct{}

// Type 返回提示类型
func (s *RangeHintStrategy) Type() models.HintType {
	return models.HintTypeRange
}

// Build 生成区间提示
func (s *RangeHintStrategy) Build(session *models.GameSession, attempts []*models.GuessAttempt) (string, bool) {
	low := session.MinRange
	high := session.MaxRange

	for _, a := range attempts {
		switch a.Feedback {
		case models.FeedbackHigher:
			// 猜小了，下界抬高
			if a.Guess+1 > low {
				low = a.Guess + 1
			}
		case models.FeedbackLower:
			// 猜大了，上界压低
			if a.Guess-1 < high {
				high = a.Guess - 1
			}
		}
	}

	if low > high {
		// 反馈互相矛盾时（理论上不会发生）放弃该策略
		return "", false
	}
	if low == high {
		// 区间已收窄到唯一值，直接给出会暴露答案
		return "", false
	}

	return fmt.Sprintf("the number is between %d and %d", low, high), true
}

// ParityHintStrategy 奇偶性提示
type ParityHintStrategy struct{}

// Type 返回提示类型
func (s *ParityHintStrategy) Type() models.HintType {
	return models.HintTypeParity
}

// Build 生成奇偶提示
func (s *ParityHintStrategy) Build(session *models.GameSession, attempts []*models.GuessAttempt) (string, bool) {
	if session.SecretNumber%2 == 0 {
		return "the number is even", true
	}
	return "the number is odd", true
}

// DefaultHintStrategies 默认策略链，按提示次数轮换
func DefaultHintStrategies() []HintStrategy {
	return []HintStrategy{
		&RangeHintStrategy{},
		&ParityHintStrategy{},
	}
}
