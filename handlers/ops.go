package handlers

import (
	"errors"
	"net/http"

	"homeserve/cron"
	"homeserve/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OpsHandler exposes the background sweeps to operators.
type OpsHandler struct {
	Scheduler *cron.Scheduler
	Logger    *zap.Logger
}

func NewOpsHandler(s *cron.Scheduler, logger *zap.Logger) *OpsHandler {
	return &OpsHandler{Scheduler: s, Logger: logger}
}

func (h *OpsHandler) SweepStatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.Scheduler.Status()})
}

// RunSweepHandler runs one sweep now, honouring the cross-instance lock.
func (h *OpsHandler) RunSweepHandler(c *gin.Context) {
	name := c.Param("name")
	err := h.Scheduler.RunNow(name)
	if errors.Is(err, cron.ErrUnknownTask) {
		utils.RespondError(c, utils.ErrNotFound.With("no sweep named "+name, nil))
		return
	}
	if err != nil {
		getLogger(c, h.Logger).Warn("manual sweep failed", zap.String("task", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse{Message: "Sweep failed", Details: err.Error()})
		return
	}
	for _, st := range h.Scheduler.Status() {
		if st.Name == name {
			c.JSON(http.StatusOK, st)
			return
		}
	}
	c.Status(http.StatusNoContent)
}

// HealthHandler reports the last dependency probe.
func HealthHandler(c *gin.Context) {
	h := utils.GetHealthStatus()
	status := http.StatusOK
	if !h.CheckedAt.IsZero() && !h.Healthy() {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": h, "message": "Hi, I'm HomeServe"})
}
