package handlers

import (
	"errors"
	"net/http"

	bookingRepo "homeserve/database/repository/booking"
	recordsRepo "homeserve/database/repository/records"
	"homeserve/middleware"
	"homeserve/models"
	"homeserve/utils"

	"github.com/gin-gonic/gin"
)

// EventsHandler serves a booking's history to its customer and to support.
type EventsHandler struct {
	Events   recordsRepo.EventLogRepository
	Bookings bookingRepo.BookingRepository
}

func NewEventsHandler(events recordsRepo.EventLogRepository, bookings bookingRepo.BookingRepository) *EventsHandler {
	return &EventsHandler{Events: events, Bookings: bookings}
}

func (h *EventsHandler) ListBookingEventsHandler(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	b, err := h.Bookings.GetBooking(ctx, id)
	if errors.Is(err, bookingRepo.ErrNotFound) {
		// reclaimed holds leave only their events behind; support can still read them
		if middleware.ActorRole(c) != utils.RoleAdmin {
			utils.RespondError(c, utils.ErrNotFound.With("booking not found", nil))
			return
		}
	} else if err != nil {
		utils.RespondError(c, err)
		return
	} else if b.CustomerID != middleware.ActorID(c) && middleware.ActorRole(c) != utils.RoleAdmin {
		utils.RespondError(c, utils.ErrForbidden.With("booking belongs to another customer", nil))
		return
	}

	events, err := h.Events.ListByBooking(ctx, id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if events == nil {
		events = []models.BookingEvent{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
