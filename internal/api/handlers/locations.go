package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// SuggestLocations 地点候选
// GET /api/locations/suggest?q=
func (h *Handler) SuggestLocations(c *gin.Context) {
	results, err := h.svc.Locations.Suggest(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, results)
}

// ReverseGeocode 坐标转地址
// GET /api/locations/reverse?lat=&lng=
func (h *Handler) ReverseGeocode(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid latitude"})
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid longitude"})
		return
	}

	addr, err := h.svc.Locations.Reverse(c.Request.Context(), lat, lng)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, addr)
}

// ValidateLocation 校验地点输入
// POST /api/locations/validate
func (h *Handler) ValidateLocation(c *gin.Context) {
	var req struct {
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	respond(c, http.StatusOK, h.svc.Locations.Validate(req.Value))
}
