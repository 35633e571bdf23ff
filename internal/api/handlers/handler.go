package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/langchou/evroute/internal/apperr"
	"github.com/langchou/evroute/internal/models"
)

const (
	// ContextUserKey 已登录用户
	ContextUserKey = "user"
	// ContextTokenKey 访问令牌
	ContextTokenKey = "accessToken"
)

// respond 返回 {"data": ...}
func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"data": data})
}

// respondError 将领域错误转换为 HTTP 响应 {"error": ...}
func (h *Handler) respondError(c *gin.Context, err error) {
	e, ok := apperr.As(err)
	if !ok {
		h.logger.Error("Unhandled error",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	status := e.HTTPStatus()
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		h.logger.Debug("Request rejected", zap.String("path", c.FullPath()), zap.Error(err))
	}

	body := gin.H{"error": e.Message}
	if e.Status != 0 {
		body["upstream_status"] = e.Status
	}
	c.JSON(status, body)
}

// badRequest 请求体无法解析
func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
}

// currentUser 返回 AuthRequired 写入的用户
func currentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(ContextUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return &models.User{}
}

// accessToken 返回 AuthRequired 写入的访问令牌
func accessToken(c *gin.Context) string {
	return c.GetString(ContextTokenKey)
}
