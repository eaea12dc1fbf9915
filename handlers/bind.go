package handlers

import (
	"homeserve/utils"

	"github.com/gin-gonic/gin"
)

// bindJSON decodes the body into dst and answers 400 itself on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		utils.RespondError(c, utils.ErrInvalidInput.With("invalid request body: "+err.Error(), err))
		return false
	}
	return true
}
