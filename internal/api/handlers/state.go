package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/langchou/evroute/internal/mapview"
	"github.com/langchou/evroute/internal/models"
)

// GetState 最近一次搜索的充电站
// GET /api/state
func (h *Handler) GetState(c *gin.Context) {
	state, err := h.svc.State.Get(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, state)
}

// ClearState 清空客户端缓存
// DELETE /api/state
func (h *Handler) ClearState(c *gin.Context) {
	if err := h.svc.State.Clear(c.Request.Context(), currentUser(c).ID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MapView 组合地图视图，未提供充电站时使用缓存
// POST /api/map/view
func (h *Handler) MapView(c *gin.Context) {
	var req mapview.ViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	if req.Stations == nil {
		stations, err := h.cachedStations(c)
		if err != nil {
			h.respondError(c, err)
			return
		}
		req.Stations = stations
	}
	respond(c, http.StatusOK, h.svc.Map.Compose(req))
}

// MapClick 点击充电站标记
// POST /api/map/click
func (h *Handler) MapClick(c *gin.Context) {
	var req struct {
		StationID string                 `json:"station_id" binding:"required"`
		Stations  []models.StationRecord `json:"stations"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	stations := req.Stations
	if stations == nil {
		cached, err := h.cachedStations(c)
		if err != nil {
			h.respondError(c, err)
			return
		}
		stations = cached
	}

	res, err := h.svc.Map.Click(stations, req.StationID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Station not found"})
		return
	}
	respond(c, http.StatusOK, res)
}

func (h *Handler) cachedStations(c *gin.Context) ([]models.StationRecord, error) {
	state, err := h.svc.State.Get(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		return nil, err
	}
	return state.CachedStations, nil
}
