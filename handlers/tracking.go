package handlers

import (
	"net/http"

	"homeserve/middleware"
	"homeserve/models"
	"homeserve/services/tracking"
	"homeserve/utils"

	"github.com/gin-gonic/gin"
)

type TrackingHandler struct {
	Tracker tracking.Tracker
}

func NewTrackingHandler(t tracking.Tracker) *TrackingHandler {
	return &TrackingHandler{Tracker: t}
}

// AssignHandler lets a provider put one of their staff on a booking.
func (h *TrackingHandler) AssignHandler(c *gin.Context) {
	var req models.AssignRequest
	if !bindJSON(c, &req) {
		return
	}
	req.ProviderID = middleware.ActorID(c)
	req.BookingID = c.Param("id")

	a, err := h.Tracker.Assign(c.Request.Context(), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *TrackingHandler) RespondHandler(c *gin.Context) {
	var body struct {
		Accept *bool `json:"accept" binding:"required"`
	}
	if !bindJSON(c, &body) {
		return
	}
	a, err := h.Tracker.Respond(c.Request.Context(), middleware.ActorID(c), c.Param("id"), *body.Accept)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *TrackingHandler) UpdateTrackingHandler(c *gin.Context) {
	var upd models.TrackingUpdate
	if !bindJSON(c, &upd) {
		return
	}
	upd.BookingID = c.Param("id")
	upd.StaffID = middleware.ActorID(c)

	b, err := h.Tracker.UpdateTrackingStatus(c.Request.Context(), upd)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
