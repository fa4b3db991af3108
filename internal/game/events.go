package game

import (
	"sync"
	"time"

	"github.com/wfunc/guess-game/internal/models"
	"go.uber.org/zap"
)

// AttemptEvent 猜测事件（推送给观战连接）
type AttemptEvent struct {
	SessionID   string          `json:"session_id"`
	Order       int             `json:"order"`
	Guess       int             `json:"guess"`
	Feedback    models.Feedback `json:"feedback"`
	Message     string          `json:"message"`
	Finished    bool            `json:"finished"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// Broadcaster 按会话分发猜测事件
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan AttemptEvent]struct{}
	logger      *zap.Logger
	bufferSize  int
}

// NewBroadcaster 创建事件分发器
func NewBroadcaster(logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]map[chan AttemptEvent]struct{}),
		logger:      logger,
		bufferSize:  16,
	}
}

// Subscribe 订阅指定会话的猜测事件
// 返回事件通道和取消订阅函数
func (b *Broadcaster) Subscribe(sessionID string) (<-chan AttemptEvent, func()) {
	ch := make(chan AttemptEvent, b.bufferSize)

	b.mu.Lock()
	subs, ok := b.subscribers[sessionID]
	if !ok {
		subs = make(map[chan AttemptEvent]struct{})
		b.subscribers[sessionID] = subs
	}
	subs[ch] = struct{}{}
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		if subs, ok := b.subscribers[sessionID]; ok {
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(b.subscribers, sessionID)
			}
		}
		b.mu.Unlock()
	}

	return ch, unsubscribe
}

// Publish 推送事件给会话的所有订阅者
// 慢消费者的事件直接丢弃，不阻塞猜测流程
func (b *Broadcaster) Publish(event AttemptEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[event.SessionID] {
		select {
		case ch <- event:
		default:
			b.logger.Warn("订阅者缓冲区已满，丢弃事件",
				zap.String("session_id", event.SessionID),
				zap.Int("order", event.Order))
		}
	}
}

// CloseSession 关闭会话的所有订阅（会话被清理时调用）
func (b *Broadcaster) CloseSession(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.subscribers[sessionID]; ok {
		for ch := range subs {
			close(ch)
		}
		delete(b.subscribers, sessionID)
	}
}

// SubscriberCount 返回会话当前的订阅数
func (b *Broadcaster) SubscriberCount(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[sessionID])
}
