package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/guess-game/internal/errors"
)

// ErrorResponse API错误响应
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// 错误码到响应code的映射
var errorCodeNames = map[errors.ErrorCode]string{
	errors.ErrInvalidRange:     "INVALID_RANGE",
	errors.ErrSecretOutOfRange: "SECRET_OUT_OF_RANGE",
	errors.ErrSessionNotFound:  "SESSION_NOT_FOUND",
	errors.ErrSessionExists:    "SESSION_EXISTS",
	errors.ErrSessionFinished:  "SESSION_FINISHED",
	errors.ErrHintNotEligible:  "HINT_NOT_ELIGIBLE",
	errors.ErrInvalidRating:    "INVALID_RATING",
	errors.ErrConfigMissing:    "CONFIG_MISSING",
}

// respondError 按应用错误码返回HTTP响应
func respondError(c *gin.Context, err error) {
	if appErr, ok := err.(*errors.AppError); ok {
		name, ok := errorCodeNames[appErr.Code]
		if !ok {
			name = "INTERNAL_ERROR"
		}
		c.JSON(appErr.HTTPStatus(), ErrorResponse{
			Code:    name,
			Message: appErr.Message,
			Details: appErr.Details,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Code:    "INTERNAL_ERROR",
		Message: "内部错误",
	})
}

// respondBadRequest 参数绑定失败响应
func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Code:    "INVALID_REQUEST",
		Message: "请求参数错误",
		Details: err.Error(),
	})
}
