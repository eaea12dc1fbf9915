package handlers

import (
	"net/http"

	deviceRepo "homeserve/database/repository/device"
	"homeserve/middleware"
	"homeserve/utils"

	"github.com/gin-gonic/gin"
)

// DeviceHandler registers push tokens for the signed-in user.
type DeviceHandler struct {
	Repo deviceRepo.DeviceRepository
}

func NewDeviceHandler(repo deviceRepo.DeviceRepository) *DeviceHandler {
	return &DeviceHandler{Repo: repo}
}

func (h *DeviceHandler) RegisterDeviceHandler(c *gin.Context) {
	var body struct {
		Token    string `json:"token" binding:"required"`
		Platform string `json:"platform"`
	}
	if !bindJSON(c, &body) {
		return
	}
	if err := h.Repo.UpsertToken(c.Request.Context(), middleware.ActorID(c), body.Token, body.Platform); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Device registered"})
}

func (h *DeviceHandler) RemoveDeviceHandler(c *gin.Context) {
	if err := h.Repo.RemoveToken(c.Request.Context(), middleware.ActorID(c), c.Param("token")); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
