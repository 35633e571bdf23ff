package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/langchou/evroute/internal/service"
)

// GetProfile 个人资料
// GET /api/profile
func (h *Handler) GetProfile(c *gin.Context) {
	user, err := h.svc.Auth.Profile(c.Request.Context(), accessToken(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

// UpdateProfile 更新个人资料
// PUT /api/profile
func (h *Handler) UpdateProfile(c *gin.Context) {
	var in service.ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}

	user, notice, err := h.svc.Auth.UpdateProfile(c.Request.Context(), accessToken(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"user": user, "notice": notice})
}
