package handlers

import (
	"net/http"

	"homeserve/middleware"
	"homeserve/models"
	"homeserve/services/cancellation"
	"homeserve/utils"

	"github.com/gin-gonic/gin"
)

type CancellationHandler struct {
	Engine cancellation.Engine
}

func NewCancellationHandler(e cancellation.Engine) *CancellationHandler {
	return &CancellationHandler{Engine: e}
}

// QuoteHandler shows the fee a cancellation would cost right now.
func (h *CancellationHandler) QuoteHandler(c *gin.Context) {
	q, err := h.Engine.Quote(c.Request.Context(), c.Param("id"), middleware.ActorID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// CancelHandler cancels the booking; repeating it returns the first result.
func (h *CancellationHandler) CancelHandler(c *gin.Context) {
	var req models.CancelRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	req.BookingID = c.Param("id")
	req.RequesterID = middleware.ActorID(c)

	res, err := h.Engine.Cancel(c.Request.Context(), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
