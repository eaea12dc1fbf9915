package handlers

import (
	"net/http"

	"homeserve/middleware"
	"homeserve/models"
	"homeserve/services/cart"
	"homeserve/utils"

	"github.com/gin-gonic/gin"
)

type CartHandler struct {
	Store cart.Store
}

func NewCartHandler(store cart.Store) *CartHandler {
	return &CartHandler{Store: store}
}

func (h *CartHandler) ListHandler(c *gin.Context) {
	items, err := h.Store.List(c.Request.Context(), middleware.ActorID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if items == nil {
		items = []models.CartItem{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *CartHandler) AddItemHandler(c *gin.Context) {
	var item models.CartItem
	if !bindJSON(c, &item) {
		return
	}
	item.ID = ""
	added, err := h.Store.AddItem(c.Request.Context(), middleware.ActorID(c), item)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, added)
}

func (h *CartHandler) RemoveItemHandler(c *gin.Context) {
	if err := h.Store.Remove(c.Request.Context(), middleware.ActorID(c), c.Param("itemId")); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
