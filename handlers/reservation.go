package handlers

import (
	"net/http"

	"homeserve/middleware"
	"homeserve/models"
	"homeserve/services/booking"
	"homeserve/utils"

	"github.com/gin-gonic/gin"
)

type ReservationHandler struct {
	Manager booking.ReservationManager
}

func NewReservationHandler(m booking.ReservationManager) *ReservationHandler {
	return &ReservationHandler{Manager: m}
}

// ReserveHandler holds the selected cart items and returns the checkout link.
func (h *ReservationHandler) ReserveHandler(c *gin.Context) {
	var req models.ReserveRequest
	if !bindJSON(c, &req) {
		return
	}
	req.CustomerID = middleware.ActorID(c)

	res, err := h.Manager.Reserve(c.Request.Context(), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}
