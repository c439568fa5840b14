package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"barn_climate/internal/apperr"
	"barn_climate/internal/models"
	"barn_climate/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errActionRequired = "action field required"
	errSendCommand    = "failed to send command to device"
)

// ActionRequest is the manual command payload.
type ActionRequest struct {
	// One of OPEN_WINDOW, CLOSE_WINDOW, FAN_ON, FAN_OFF, HEATER_ON, HEATER_OFF
	Action string `json:"action" example:"FAN_ON"`
}

// @Summary      Available actions
// @Tags         device
// @Produce      json
// @Success      200  {object}  map[string][]string
// @Router       /device/actions [get]
func (h *Handler) availableActions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"available_actions": h.services.DeviceControl.Actions()})
}

// @Summary      Trigger an action
// @Description  Sends the command straight to the devices, bypassing the rules.
// @Tags         device
// @Accept       json
// @Produce      json
// @Param        body  body      ActionRequest  true  "Action payload"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /device/action [post]
func (h *Handler) triggerAction(c *gin.Context) {
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errActionRequired})
		return
	}

	action, err := h.services.DeviceControl.Execute(c.Request.Context(), req.Action)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Action '%s' sent to device", action)})
	case errors.Is(err, service.ErrActionRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": errActionRequired})
	case apperr.Is(err, apperr.KindValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": unwrapMessage(err), "available_actions": models.AllActions()})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errSendCommand, "device_action_failed", err, "action", req.Action)
	}
}

// unwrapMessage strips the operation prefix of a classified error.
func unwrapMessage(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return err.Error()
}
