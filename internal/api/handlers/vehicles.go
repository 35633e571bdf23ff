package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/langchou/evroute/internal/service"
)

// ListVehicles 获取车辆列表
func (h *Handler) ListVehicles(c *gin.Context) {
	vehicles, err := h.svc.Vehicles.List(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, vehicles)
}

// CreateVehicle 新建车辆
func (h *Handler) CreateVehicle(c *gin.Context) {
	var in service.VehicleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}

	v, err := h.svc.Vehicles.Create(c.Request.Context(), currentUser(c).ID, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, v)
}

// UpdateVehicle 更新车辆
func (h *Handler) UpdateVehicle(c *gin.Context) {
	var in service.VehicleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}

	v, err := h.svc.Vehicles.Update(c.Request.Context(), currentUser(c).ID, c.Param("id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, v)
}

// DeleteVehicle 删除车辆
func (h *Handler) DeleteVehicle(c *gin.Context) {
	if err := h.svc.Vehicles.Delete(c.Request.Context(), currentUser(c).ID, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SelectVehicle 选中车辆
func (h *Handler) SelectVehicle(c *gin.Context) {
	vehicles, err := h.svc.Vehicles.Select(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, vehicles)
}
