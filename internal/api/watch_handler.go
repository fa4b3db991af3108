package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/wfunc/guess-game/internal/game"
	ws "github.com/wfunc/guess-game/internal/websocket"
	"go.uber.org/zap"
)

// WatchHandler 观战WebSocket处理器
type WatchHandler struct {
	store    *game.Store
	hub      *ws.Hub
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewWatchHandler 创建观战处理器
func NewWatchHandler(store *game.Store, hub *ws.Hub, log *zap.Logger) *WatchHandler {
	return &WatchHandler{
		store: store,
		hub:   hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// 观战是只读推送，放开跨域
				return true
			},
		},
		log: log,
	}
}

// Watch 观战指定会话
// @Summary 观战会话
// @Description 升级为WebSocket连接，实时推送会话的猜测事件
// @Tags Sessions
// @Param id path string true "会话ID"
// @Success 101 {string} string "Switching Protocols"
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/sessions/{id}/watch [get]
func (h *WatchHandler) Watch(c *gin.Context) {
	sessionID := c.Param("id")

	// 升级前确认会话存在
	if _, err := h.store.GetSession(c.Request.Context(), sessionID); err != nil {
		respondError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("WebSocket升级失败",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, sessionID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
