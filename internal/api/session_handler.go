package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/guess-game/internal/game"
	"github.com/wfunc/guess-game/internal/repository"
)

// SessionHandler 游戏会话处理器
type SessionHandler struct {
	store *game.Store
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(store *game.Store) *SessionHandler {
	return &SessionHandler{store: store}
}

// Create 创建游戏会话
// @Summary 创建游戏会话
// @Description 创建新的猜数字会话，区间与秘密数字未指定时取生效配置的默认值
// @Tags Sessions
// @Accept json
// @Produce json
// @Param request body game.CreateSessionRequest true "会话参数"
// @Success 201 {object} models.GameSession
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req game.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	session, err := h.store.CreateSession(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// Get 查询会话详情
// @Summary 查询会话详情
// @Description 返回会话状态及全部猜测与提示记录
// @Tags Sessions
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} models.GameSession
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.store.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// GuessRequest 猜测请求
// 指针类型区分"未提供"和猜0
type GuessRequest struct {
	Guess *int `json:"guess" binding:"required"`
}

// SubmitGuess 提交猜测
// @Summary 提交猜测
// @Description 提交一次猜测并返回反馈，猜中时会话结束
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "会话ID"
// @Param request body GuessRequest true "猜测数字"
// @Success 200 {object} game.GuessResult
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/sessions/{id}/guesses [post]
func (h *SessionHandler) SubmitGuess(c *gin.Context) {
	var req GuessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	result, err := h.store.SubmitGuess(c.Request.Context(), c.Param("id"), *req.Guess)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// HintResponse 提示响应
type HintResponse struct {
	Issued bool        `json:"issued"`
	Hint   interface{} `json:"hint,omitempty"`
}

// RequestHint 请求提示
// @Summary 请求提示
// @Description 达到连续未中触发条件时发放提示，否则 issued 为 false
// @Tags Sessions
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} HintResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/sessions/{id}/hint [post]
func (h *SessionHandler) RequestHint(c *gin.Context) {
	hint, err := h.store.MaybeIssueHint(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if hint == nil {
		c.JSON(http.StatusOK, HintResponse{Issued: false})
		return
	}

	c.JSON(http.StatusOK, HintResponse{Issued: true, Hint: hint})
}

// ListAttempts 分页查询猜测记录
// @Summary 查询猜测记录
// @Description 按序号升序分页返回会话的猜测记录
// @Tags Sessions
// @Produce json
// @Param id path string true "会话ID"
// @Param page query int false "页码"
// @Param page_size query int false "每页条数"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/sessions/{id}/attempts [get]
func (h *SessionHandler) ListAttempts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	p := repository.NewPagination(page, pageSize)

	attempts, err := h.store.ListAttempts(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"attempts":   attempts,
		"pagination": p,
	})
}
