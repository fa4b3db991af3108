package api

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/guess-game/internal/config"
	"github.com/wfunc/guess-game/internal/game"
	"github.com/wfunc/guess-game/internal/models"
	"github.com/wfunc/guess-game/internal/utils"
	"go.uber.org/zap"
)

// AdminHandler 管理端处理器
type AdminHandler struct {
	store      *game.Store
	jwtManager *utils.JWTManager
	cfg        *config.Config
	log        *zap.Logger
}

// NewAdminHandler 创建管理端处理器
func NewAdminHandler(store *game.Store, jwtManager *utils.JWTManager, cfg *config.Config, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		store:      store,
		jwtManager: jwtManager,
		cfg:        cfg,
		log:        log,
	}
}

// TokenRequest 令牌签发请求
type TokenRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// IssueToken 签发管理端令牌
// @Summary 签发管理端令牌
// @Description 使用管理端账号换取JWT，配置中未设置密码时接口关闭
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body TokenRequest true "管理端账号"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/admin/token [post]
func (h *AdminHandler) IssueToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	admin := h.cfg.Security.Admin
	if admin.Password == "" {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Code:    "ADMIN_DISABLED",
			Message: "管理端未启用",
		})
		return
	}

	usernameOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(admin.Username)) == 1
	passwordOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(admin.Password)) == 1
	if !usernameOK || !passwordOK {
		h.log.Warn("管理端登录失败", zap.String("username", req.Username))
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Code:    "INVALID_CREDENTIALS",
			Message: "账号或密码错误",
		})
		return
	}

	token, err := h.jwtManager.GenerateToken(req.Username, "admin")
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": h.cfg.Security.JWT.ExpireHours * 3600,
	})
}

// CleanupRequest 清理请求
type CleanupRequest struct {
	MaxAge string `json:"max_age"` // 如 "24h"，为空时取配置默认值
}

// Cleanup 清理超期会话
// @Summary 清理超期会话
// @Description 删除超过存活时长仍未结束的会话，返回删除数量
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body CleanupRequest false "清理参数"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/admin/cleanup [post]
func (h *AdminHandler) Cleanup(c *gin.Context) {
	maxAge := h.cfg.Game.SessionMaxAge

	var req CleanupRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.MaxAge != "" {
		parsed, err := time.ParseDuration(req.MaxAge)
		if err != nil {
			respondBadRequest(c, err)
			return
		}
		maxAge = parsed
	}

	deleted, err := h.store.CleanupStale(c.Request.Context(), maxAge)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deleted": deleted,
		"max_age": maxAge.String(),
	})
}

// GetConfig 查询生效的游戏配置
// @Summary 查询游戏配置
// @Description 返回当前生效的游戏配置行
// @Tags Admin
// @Produce json
// @Success 200 {object} models.GameConfig
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/admin/config [get]
func (h *AdminHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.ActiveConfig())
}

// UpdateConfigRequest 更新游戏配置请求
type UpdateConfigRequest struct {
	MinRange         int    `json:"min_range" binding:"required"`
	MaxRange         int    `json:"max_range" binding:"required"`
	HintTriggerCount int    `json:"hint_trigger_count"`
	MsgLower         string `json:"msg_lower" binding:"required"`
	MsgHigher        string `json:"msg_higher" binding:"required"`
	MsgEqual         string `json:"msg_equal" binding:"required"`
}

// UpdateConfig 更新游戏配置
// @Summary 更新游戏配置
// @Description 写入新配置行并切换生效，已创建的会话不受影响
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body UpdateConfigRequest true "新配置"
// @Success 200 {object} models.GameConfig
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/admin/config [put]
func (h *AdminHandler) UpdateConfig(c *gin.Context) {
	var req UpdateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	cfg := &models.GameConfig{
		MinRange:         req.MinRange,
		MaxRange:         req.MaxRange,
		HintTriggerCount: req.HintTriggerCount,
		MsgLower:         req.MsgLower,
		MsgHigher:        req.MsgHigher,
		MsgEqual:         req.MsgEqual,
	}

	if err := h.store.UpdateConfig(c.Request.Context(), cfg); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, cfg)
}
