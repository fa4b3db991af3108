package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/guess-game/internal/game"
	"github.com/wfunc/guess-game/internal/repository"
)

// StatsHandler 统计与归档处理器
type StatsHandler struct {
	store           *game.Store
	bestScoresLimit int
}

// NewStatsHandler 创建统计处理器
func NewStatsHandler(store *game.Store, bestScoresLimit int) *StatsHandler {
	return &StatsHandler{
		store:           store,
		bestScoresLimit: bestScoresLimit,
	}
}

// GetStatistics 查询全局统计
// @Summary 查询全局统计
// @Description 返回会话总数、完成数及尝试次数/用时的聚合指标
// @Tags Stats
// @Produce json
// @Success 200 {object} repository.GameStatistics
// @Router /api/v1/stats [get]
func (h *StatsHandler) GetStatistics(c *gin.Context) {
	stats, err := h.store.GetStatistics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// BestScores 查询最佳战绩
// @Summary 查询最佳战绩
// @Description 已结束会话按尝试次数升序、用时升序排名
// @Tags Stats
// @Produce json
// @Param limit query int false "返回条数"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/scores/best [get]
func (h *StatsHandler) BestScores(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if limit <= 0 {
		limit = h.bestScoresLimit
	}

	scores, err := h.store.BestScores(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"scores": scores})
}

// ListHistory 分页查询对局归档
// @Summary 查询对局归档
// @Description 按结束时间倒序分页返回归档记录
// @Tags History
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页条数"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/history [get]
func (h *StatsHandler) ListHistory(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	p := repository.NewPagination(page, pageSize)

	records, err := h.store.ListHistory(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records":    records,
		"pagination": p,
	})
}

// RatingRequest 难度评分请求
type RatingRequest struct {
	Rating int `json:"rating" binding:"required"`
}

// RateMatch 补记难度评分
// @Summary 补记难度评分
// @Description 为已归档的对局补记1-5的难度评分
// @Tags History
// @Accept json
// @Produce json
// @Param id path string true "会话ID"
// @Param request body RatingRequest true "评分"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/history/{id}/rating [put]
func (h *StatsHandler) RateMatch(c *gin.Context) {
	var req RatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	if err := h.store.RateMatch(c.Request.Context(), c.Param("id"), req.Rating); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
