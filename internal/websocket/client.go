package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocket配置
const (
	// 写超时
	writeWait = 10 * time.Second

	// 读取pong超时
	pongWait = 60 * time.Second

	// ping发送周期（必须小于pongWait）
	pingPeriod = (pongWait * 9) / 10

	// 观战连接只收心跳，消息上限很小
	maxMessageSize = 1024
)

// Client 观战客户端
// Send 通道只写不关，退出统一通过 done 通知，
// 避免注销与事件转发并发时向已关闭通道写入
type Client struct {
	ID        string
	SessionID string
	Hub       *Hub
	Conn      *websocket.Conn
	Send      chan []byte

	done      chan struct{}
	closeOnce sync.Once

	cancelSubscription func()
}

// NewClient 创建观战客户端
func NewClient(hub *Hub, conn *websocket.Conn, sessionID string) *Client {
	return &Client{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Hub:       hub,
		Conn:      conn,
		Send:      make(chan []byte, 64),
		done:      make(chan struct{}),
	}
}

// Close 标记客户端退出，可安全多次调用
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Done 客户端退出信号
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// SendMessage 序列化并投递消息，缓冲区满或客户端已退出时丢弃
func (c *Client) SendMessage(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	select {
	case c.Send <- data:
	case <-c.done:
	default:
		c.Hub.logger.Warn("发送缓冲区已满，丢弃消息",
			zap.String("client_id", c.ID),
			zap.String("type", msg.Type))
	}
}

// ReadPump 读取消息
// 观战连接只处理心跳，其余输入一律忽略
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Error("WebSocket读取错误",
					zap.String("client_id", c.ID),
					zap.Error(err))
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == MessageTypePing {
			c.SendMessage(&Message{
				Type:      MessageTypePong,
				Timestamp: time.Now().Unix(),
			})
		}
	}
}

// WritePump 写入消息
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
