package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/wfunc/guess-game/internal/game"
	"go.uber.org/zap"
)

// Hub WebSocket连接管理中心
// 观战连接按会话订阅猜测事件，只读推送
type Hub struct {
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 会话ID到观战客户端的映射
	sessionClients map[string][]*Client
	sessionMu      sync.RWMutex

	register   chan *Client
	unregister chan *Client

	broadcaster *game.Broadcaster
	logger      *zap.Logger
}

// Message WebSocket消息
type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// 消息类型
const (
	MessageTypeConnected = "connected"
	MessageTypeAttempt   = "attempt"
	MessageTypeFinished  = "finished"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeError     = "error"
)

// NewHub 创建Hub
func NewHub(broadcaster *game.Broadcaster, logger *zap.Logger) *Hub {
	return &Hub{
		clients:        make(map[string]*Client),
		sessionClients: make(map[string][]*Client),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		broadcaster:    broadcaster,
		logger:         logger,
	}
}

// Run 运行Hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

// registerClient 注册观战客户端并启动事件转发
func (h *Hub) registerClient(client *Client) {
	h.clientsMu.Lock()
	h.clients[client.ID] = client
	h.clientsMu.Unlock()

	h.sessionMu.Lock()
	h.sessionClients[client.SessionID] = append(h.sessionClients[client.SessionID], client)
	h.sessionMu.Unlock()

	events, cancel := h.broadcaster.Subscribe(client.SessionID)
	client.cancelSubscription = cancel
	go h.forwardEvents(client, events)

	h.logger.Info("观战连接建立",
		zap.String("client_id", client.ID),
		zap.String("session_id", client.SessionID))

	client.SendMessage(&Message{
		Type:      MessageTypeConnected,
		SessionID: client.SessionID,
		Timestamp: time.Now().Unix(),
	})
}

// unregisterClient 注销客户端
func (h *Hub) unregisterClient(client *Client) {
	h.clientsMu.Lock()
	if _, ok := h.clients[client.ID]; !ok {
		h.clientsMu.Unlock()
		return
	}
	delete(h.clients, client.ID)
	h.clientsMu.Unlock()

	h.sessionMu.Lock()
	clients := h.sessionClients[client.SessionID]
	for i, c := range clients {
		if c.ID == client.ID {
			h.sessionClients[client.SessionID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(h.sessionClients[client.SessionID]) == 0 {
		delete(h.sessionClients, client.SessionID)
	}
	h.sessionMu.Unlock()

	if client.cancelSubscription != nil {
		client.cancelSubscription()
	}
	client.Close()

	h.logger.Info("观战连接断开",
		zap.String("client_id", client.ID),
		zap.String("session_id", client.SessionID))
}

// forwardEvents 把会话事件转发给单个客户端
// 订阅通道关闭（会话被清理或客户端注销）后通知客户端退出
func (h *Hub) forwardEvents(client *Client, events <-chan game.AttemptEvent) {
	defer client.Close()

	for event := range events {
		msgType := MessageTypeAttempt
		if event.Finished {
			msgType = MessageTypeFinished
		}

		data, err := json.Marshal(event)
		if err != nil {
			h.logger.Error("事件序列化失败",
				zap.String("session_id", event.SessionID),
				zap.Error(err))
			continue
		}

		client.SendMessage(&Message{
			Type:      msgType,
			SessionID: event.SessionID,
			Data:      data,
			Timestamp: event.SubmittedAt.Unix(),
		})
	}
}

// Register 注册客户端
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister 注销客户端
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// SessionWatcherCount 指定会话的观战人数
func (h *Hub) SessionWatcherCount(sessionID string) int {
	h.sessionMu.RLock()
	defer h.sessionMu.RUnlock()
	return len(h.sessionClients[sessionID])
}
