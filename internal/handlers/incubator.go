package handlers

import (
	"context"
	"errors"
	"net/http"

	"controlling_incubator/internal/command"
	"controlling_incubator/internal/models"
	"controlling_incubator/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK           = "ok"
	statusConnecting   = "connecting"
	statusDisconnected = "disconnected"
	statusCleared      = "cleared"
	statusReset        = "reset"

	errInvalidBodyPref = "invalid body: "
	errStartDate       = "invalid start_date; use RFC3339 or YYYY-MM-DD"
	errStopped         = "service is shutting down"
	errInternal        = "internal error"
)

type temperatureRequest struct {
	TargetTemperature *float64 `json:"target_temperature" binding:"required" example:"37.8"`
}

type profileRequest struct {
	Name string `json:"name" binding:"required" example:"Ayam (38°C)"`
}

type buzzerRequest struct {
	State string `json:"state" binding:"required" example:"ON"`
}

type relayRequest struct {
	OnSeconds       int `json:"on_seconds" binding:"required" example:"6"`
	IntervalMinutes int `json:"interval_minutes" binding:"required" example:"60"`
}

type startDateRequest struct {
	StartDate string `json:"start_date" binding:"required" example:"2026-03-01"`
}

type connectRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	// Remember stores the login for the next start; false forgets any stored one.
	Remember bool `json:"remember"`
}

// writeServiceError maps the error taxonomy onto HTTP codes.
func (h *Handler) writeServiceError(c *gin.Context, logKey string, err error) {
	var (
		ve *models.ValidationError
		nf *models.NotFoundError
		ce *models.ConnectionError
	)
	code, msg := http.StatusInternalServerError, errInternal
	switch {
	case errors.As(err, &ve):
		code, msg = http.StatusBadRequest, ve.Error()
	case errors.As(err, &nf):
		code, msg = http.StatusNotFound, nf.Error()
	case errors.As(err, &ce):
		code, msg = http.StatusBadGateway, ce.Error()
		if ce.Kind == models.KindBadCredentials {
			code = http.StatusBadRequest
		}
	case errors.Is(err, service.ErrStopped):
		code, msg = http.StatusServiceUnavailable, errStopped
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code, msg = http.StatusServiceUnavailable, err.Error()
	}
	if h.log != nil {
		if code >= http.StatusInternalServerError {
			h.log.Errorw(logKey, "err", err)
		} else {
			h.log.Infow(logKey, "err", err)
		}
	}
	c.JSON(code, gin.H{"error": msg})
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Current sensor readings
// @Tags         state
// @Produce      json
// @Success      200  {object}  models.SensorReading
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/readings [get]
// @Security     BearerAuth
func (h *Handler) getReadings(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.CurrentReadings())
}

// @Summary      Target settings
// @Tags         state
// @Produce      json
// @Success      200  {object}  models.TargetView
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/targets [get]
// @Security     BearerAuth
func (h *Handler) getTargets(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.TargetValues())
}

// @Summary      Power, motor and timer
// @Tags         state
// @Produce      json
// @Success      200  {object}  models.DeviceStatus
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/status [get]
// @Security     BearerAuth
func (h *Handler) getDeviceStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.DeviceStatus())
}

// @Summary      Chart series
// @Tags         state
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, points"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/history [get]
// @Security     BearerAuth
func (h *Handler) getHistory(c *gin.Context) {
	points := h.services.HistoricalData()
	c.JSON(http.StatusOK, gin.H{
		"count":  len(points),
		"points": points,
	})
}

// @Summary      Incubation profiles
// @Tags         state
// @Produce      json
// @Success      200  {array}   models.Profile
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/profiles [get]
// @Security     BearerAuth
func (h *Handler) getProfiles(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Profiles())
}

// @Summary      Set target temperature
// @Description  The manual control accepts 30.0 to 45.0 °C. The value applies locally even when the device is offline; delivery reports whether it was sent.
// @Tags         commands
// @Accept       json
// @Produce      json
// @Param        body  body      temperatureRequest  true  "Target"
// @Success      200   {object}  service.CommandResult
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/commands/temperature [post]
// @Security     BearerAuth
func (h *Handler) setTemperature(c *gin.Context) {
	var req temperatureRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	v := *req.TargetTemperature
	if err := command.ValidateManual(v); err != nil {
		h.writeServiceError(c, "command_temperature_rejected", err)
		return
	}
	res, err := h.services.SetTargetTemperature(c.Request.Context(), v)
	if err != nil {
		h.writeServiceError(c, "command_temperature_failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary      Apply incubation profile
// @Tags         commands
// @Accept       json
// @Produce      json
// @Param        body  body      profileRequest  true  "Profile name"
// @Success      200   {object}  service.ProfileResult
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/v1/commands/profile [post]
// @Security     BearerAuth
func (h *Handler) applyProfile(c *gin.Context) {
	var req profileRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	res, err := h.services.ApplyProfile(c.Request.Context(), req.Name)
	if err != nil {
		h.writeServiceError(c, "command_profile_failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary      Buzzer on/off
// @Tags         commands
// @Accept       json
// @Produce      json
// @Param        body  body      buzzerRequest  true  "ON or OFF"
// @Success      200   {object}  service.CommandResult
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/commands/buzzer [post]
// @Security     BearerAuth
func (h *Handler) setBuzzer(c *gin.Context) {
	var req buzzerRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	res, err := h.services.SetBuzzer(c.Request.Context(), req.State)
	if err != nil {
		h.writeServiceError(c, "command_buzzer_failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary      Egg-turning relay timing
// @Description  on_seconds 1..300, interval_minutes 1..60
// @Tags         commands
// @Accept       json
// @Produce      json
// @Param        body  body      relayRequest  true  "Relay timing"
// @Success      200   {object}  service.CommandResult
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/commands/relay [post]
// @Security     BearerAuth
func (h *Handler) setRelayTiming(c *gin.Context) {
	var req relayRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	res, err := h.services.SetRelayTiming(c.Request.Context(), req.OnSeconds, req.IntervalMinutes)
	if err != nil {
		h.writeServiceError(c, "command_relay_failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary      Override batch start date
// @Description  Dates in the future are accepted.
// @Tags         incubation
// @Accept       json
// @Produce      json
// @Param        body  body      startDateRequest  true  "Start date"
// @Success      200   {object}  map[string]interface{}  "incubation, persisted"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/incubation/start-date [post]
// @Security     BearerAuth
func (h *Handler) setStartDate(c *gin.Context) {
	var req startDateRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	date, err := parseQueryTime(req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errStartDate})
		return
	}
	rec, err := h.services.SetManualStartDate(c.Request.Context(), date)
	var pe *models.PersistenceError
	switch {
	case errors.As(err, &pe):
		// applied in memory; only the file write failed
		if h.log != nil {
			h.log.Errorw("incubation_start_date_not_persisted", "err", err)
		}
	case err != nil:
		h.writeServiceError(c, "incubation_start_date_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"incubation": rec, "persisted": err == nil})
}

// @Summary      Reset batch
// @Tags         incubation
// @Produce      json
// @Description  The batch is always reset in memory; persisted is false when the record file could not be removed.
// @Success      200  {object}  map[string]interface{}  "status, persisted"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/incubation/reset [post]
// @Security     BearerAuth
func (h *Handler) resetBatch(c *gin.Context) {
	err := h.services.ResetBatch(c.Request.Context())
	var pe *models.PersistenceError
	switch {
	case errors.As(err, &pe):
		if h.log != nil {
			h.log.Errorw("incubation_reset_not_persisted", "err", err)
		}
	case err != nil:
		h.writeServiceError(c, "incubation_reset_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusReset, "persisted": err == nil})
}

// @Summary      Connection indicator
// @Tags         connection
// @Produce      json
// @Success      200  {object}  models.ConnectionView
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/connection [get]
// @Security     BearerAuth
func (h *Handler) getConnection(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.ConnectionStatus())
}

// @Summary      Connect to the broker
// @Description  Starts an asynchronous session; watch /api/v1/connection or /ws for the outcome.
// @Tags         connection
// @Accept       json
// @Produce      json
// @Param        body  body      connectRequest  true  "Broker login"
// @Success      202   {object}  map[string]interface{}  "status, remembered, connection"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/connection/connect [post]
// @Security     BearerAuth
func (h *Handler) connect(c *gin.Context) {
	var req connectRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	ctx := c.Request.Context()
	creds := models.Credentials{Username: req.Username, Password: req.Password}
	if err := h.services.Connect(ctx, creds); err != nil {
		h.writeServiceError(c, "connect_failed", err)
		return
	}

	remembered := req.Remember
	if err := h.services.Remember(ctx, creds, req.Remember); err != nil {
		remembered = false
		if h.log != nil {
			h.log.Errorw("credentials_remember_failed", "err", err)
		}
	}
	c.JSON(http.StatusAccepted, gin.H{
		"status":     statusConnecting,
		"remembered": remembered,
		"connection": h.services.ConnectionStatus(),
	})
}

// @Summary      Disconnect from the broker
// @Description  Suppresses automatic reconnects until the next connect.
// @Tags         connection
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, connection"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/connection/disconnect [post]
// @Security     BearerAuth
func (h *Handler) disconnect(c *gin.Context) {
	if err := h.services.Disconnect(c.Request.Context()); err != nil {
		h.writeServiceError(c, "disconnect_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     statusDisconnected,
		"connection": h.services.ConnectionStatus(),
	})
}

// @Summary      Remembered broker login
// @Tags         connection
// @Produce      json
// @Success      200  {object}  service.CredentialStatus
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/credentials [get]
// @Security     BearerAuth
func (h *Handler) getCredentials(c *gin.Context) {
	st, err := h.services.Credentials.Status(c.Request.Context())
	if err != nil {
		h.writeServiceError(c, "credentials_status_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Forget remembered broker login
// @Tags         connection
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/credentials [delete]
// @Security     BearerAuth
func (h *Handler) clearCredentials(c *gin.Context) {
	if err := h.services.Credentials.Clear(c.Request.Context()); err != nil {
		h.writeServiceError(c, "credentials_clear_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusCleared})
}
