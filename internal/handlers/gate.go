package handlers

import (
	"errors"
	"net/http"
	"path"

	"gate_control/internal/models"
	"gate_control/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusQueued   = "queued"
	statusOK       = "ok"
	statusDegraded = "degraded"

	errQueueBusy      = "command queue is full, try again"
	errGateStopped    = "gate controller is shutting down"
	errSubmitFailed   = "failed to queue command"
	errUnknownCommand = "unknown command"
)

// SubmitResponse is returned once a command is queued. Completion is
// reported over /ws, not here.
type SubmitResponse struct {
	Status  string         `json:"status" example:"queued"`
	Command models.Command `json:"command"`
}

// HealthResponse summarizes modem and activity-log health.
type HealthResponse struct {
	Status      string             `json:"status" example:"ok"`
	Modem       models.ModemStatus `json:"modem" example:"CONNECTED"`
	LogDegraded bool               `json:"log_degraded"`
}

func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// @Summary      Health check
// @Description  Reports "degraded" when the modem is unreachable or the activity log cannot be written.
// @Tags         system
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	st := h.services.Snapshot()
	resp := HealthResponse{
		Status:      statusOK,
		Modem:       st.Modem.Status,
		LogDegraded: st.LogDegraded,
	}
	if !st.Modem.Connected() || st.LogDegraded {
		resp.Status = statusDegraded
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary      Submit a gate command
// @Description  Queues OPEN, CLOSE, STATUS or MOMENTARY from the touch panel. Returns as soon as the command is queued.
// @Tags         gate
// @Produce      json
// @Success      202  {object}  SubmitResponse
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/gate/open [post]
// @Router       /api/v1/gate/close [post]
// @Router       /api/v1/gate/status [post]
// @Router       /api/v1/gate/momentary [post]
// @Security     BearerAuth
func (h *Handler) submitCommand(c *gin.Context) {
	kind, err := models.ParseCommandKind(path.Base(c.FullPath()))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": errUnknownCommand})
		return
	}

	cmd := service.NewCommand(kind, models.SourceTouch)
	if err := h.services.Submit(cmd); err != nil {
		switch {
		case errors.Is(err, service.ErrQueueFull):
			h.logAndJSONError(c, http.StatusServiceUnavailable, errQueueBusy, "submit_rejected", err, "command", kind)
		case errors.Is(err, service.ErrDispatcherStopped):
			h.logAndJSONError(c, http.StatusServiceUnavailable, errGateStopped, "submit_rejected", err, "command", kind)
		default:
			h.logAndJSONError(c, http.StatusInternalServerError, errSubmitFailed, "submit_failed", err, "command", kind)
		}
		return
	}

	h.log.Infow("command_queued", "command_id", cmd.ID, "command", kind, "source", cmd.Source)
	c.JSON(http.StatusAccepted, SubmitResponse{Status: statusQueued, Command: cmd})
}

// @Summary      Current gate state
// @Tags         gate
// @Produce      json
// @Success      200  {object}  models.GateSessionState
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/gate/state [get]
// @Security     BearerAuth
func (h *Handler) getState(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Snapshot())
}
