package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/langchou/evroute/internal/models"
	"github.com/langchou/evroute/internal/service"
)

// PlanTrip 规划行程
// POST /api/trips/plan
func (h *Handler) PlanTrip(c *gin.Context) {
	trip := models.DefaultTripRequest()
	if err := c.ShouldBindJSON(&trip); err != nil {
		badRequest(c)
		return
	}

	res, err := h.svc.Trips.Plan(c.Request.Context(), currentUser(c).ID, accessToken(c), trip)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, res)
}

// NearbyStations 搜索附近充电站
// POST /api/stations/nearby
func (h *Handler) NearbyStations(c *gin.Context) {
	var q service.NearbyQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		badRequest(c)
		return
	}

	res, err := h.svc.Stations.Nearby(c.Request.Context(), currentUser(c).ID, accessToken(c), q)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, res)
}
