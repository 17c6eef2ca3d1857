package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/oggyb/sms-forwarder/internal/response"
)

// TokenProbe reports whether the forwarder is logged in.
type TokenProbe interface {
	HasToken(ctx context.Context) bool
}

// HomeHandler serves the root and health endpoints.
type HomeHandler struct {
	probe   TokenProbe
	version string
	started time.Time
}

// NewHomeHandler returns a HomeHandler. probe may be nil.
func NewHomeHandler(probe TokenProbe, version string) *HomeHandler {
	return &HomeHandler{probe: probe, version: version, started: time.Now()}
}

// Index godoc
// @Summary     Welcome endpoint
// @Description Simple root endpoint that returns a welcome message.
// @Tags        home
// @Produce     json
// @Success     200 {object} response.WelcomeResponse
// @Router      / [get]
func (h *HomeHandler) Index(w http.ResponseWriter, r *http.Request) {
	response.RespondJSON(w, http.StatusOK, response.WelcomePayload{
		Message: "SMS forwarder control API",
	})
}

// Health godoc
// @Summary     Health check
// @Description Reports that the forwarder is up and whether it holds an auth token.
// @Tags        home
// @Produce     json
// @Success     200 {object} response.HealthResponse
// @Router      /health [get]
func (h *HomeHandler) Health(w http.ResponseWriter, r *http.Request) {
	payload := response.HealthPayload{
		Status:  "ok",
		Version: h.version,
		Uptime:  time.Since(h.started).Truncate(time.Second).String(),
	}
	if h.probe != nil {
		payload.LoggedIn = h.probe.HasToken(r.Context())
	}

	response.RespondJSON(w, http.StatusOK, payload)
}
