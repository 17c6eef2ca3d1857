package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/oggyb/sms-forwarder/internal/device"
	domain "github.com/oggyb/sms-forwarder/internal/domain/message"
	"github.com/oggyb/sms-forwarder/internal/forwarder"
	"github.com/oggyb/sms-forwarder/internal/request"
	"github.com/oggyb/sms-forwarder/internal/response"
	"github.com/oggyb/sms-forwarder/internal/service"
	"github.com/oggyb/sms-forwarder/internal/syncapi"
)

// Engine is the forwarding control surface.
type Engine interface {
	Apply(ctx context.Context, act forwarder.Activation) error
	Sync(ctx context.Context) (service.PassResult, error)
	State() forwarder.Status
}

// StatsSource reads the backend's counters.
type StatsSource interface {
	Stats(ctx context.Context) (response.StatsPayload, error)
}

// ForwardingHandler wires HTTP endpoints to the forwarding engine,
// the local journal and the backend stats.
type ForwardingHandler struct {
	engine   Engine
	identity device.Identity
	journal  domain.DeliveryRepository
	stats    StatsSource
}

// NewForwardingHandler constructs a ForwardingHandler. journal may be nil
// when the journal is disabled.
func NewForwardingHandler(engine Engine, identity device.Identity, journal domain.DeliveryRepository, stats StatsSource) *ForwardingHandler {
	return &ForwardingHandler{
		engine:   engine,
		identity: identity,
		journal:  journal,
		stats:    stats,
	}
}

// GetState godoc
// @Summary     Forwarding state
// @Description Returns the engine mode and the result of the last synchronization pass.
// @Tags        forwarding
// @Produce     json
// @Success     200 {object} response.ForwardingStateResponse
// @Router      /forwarding [get]
func (h *ForwardingHandler) GetState(w http.ResponseWriter, r *http.Request) {
	response.RespondJSON(w, http.StatusOK, statePayload(h.engine.State()))
}

// Toggle godoc
// @Summary     Toggle forwarding
// @Description Starts or stops forwarding for this device.
// @Tags        forwarding
// @Accept      json
// @Produce     json
// @Param       request body request.ForwardingRequest true "Forwarding action (start|stop)"
// @Success     200 {object} response.ForwardingStateResponse
// @Failure     400 {object} response.JSONResponse
// @Failure     500 {object} response.JSONResponse
// @Router      /forwarding [post]
func (h *ForwardingHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req request.ForwardingRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	act := forwarder.Activation{
		DeviceID:   h.identity.ID,
		DeviceName: h.identity.Name,
	}

	switch req.Action {
	case "start":
		act.Active = true
	case "stop":
		act.Active = false
	default:
		response.RespondError(w, http.StatusBadRequest, "action must be 'start' or 'stop'")
		return
	}

	if err := h.engine.Apply(r.Context(), act); err != nil {
		response.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, statePayload(h.engine.State()))
}

// ForceSync godoc
// @Summary     Force a synchronization pass
// @Description Runs one pass now. Nothing runs while forwarding is off or a pass is already in flight.
// @Tags        forwarding
// @Produce     json
// @Success     200 {object} response.SyncResponse
// @Failure     503 {object} response.JSONResponse
// @Router      /forwarding/sync [post]
func (h *ForwardingHandler) ForceSync(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.Sync(r.Context())
	switch {
	case errors.Is(err, forwarder.ErrInactive):
		res = service.PassSkipped
	case err != nil:
		response.RespondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	state := h.engine.State()
	response.RespondJSON(w, http.StatusOK, response.SyncPayload{
		Ran:    res.Ran(),
		Result: string(res),
		State:  statePayload(state),
	})
}

// GetDeliveries godoc
// @Summary     List local deliveries
// @Description Returns a paginated list of send attempts recorded on this device.
// @Tags        forwarding
// @Produce     json
// @Param       page  query int false "Page number"         default(1)
// @Param       limit query int false "Page size (max 100)" default(20)
// @Success     200 {object} response.DeliveriesResponse
// @Failure     500 {object} response.JSONResponse
// @Failure     503 {object} response.JSONResponse
// @Router      /deliveries [get]
func (h *ForwardingHandler) GetDeliveries(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		response.RespondError(w, http.StatusServiceUnavailable, "delivery journal is disabled")
		return
	}

	pageStr := r.URL.Query().Get("page")
	limitStr := r.URL.Query().Get("limit")

	page := 1
	limit := 20

	if v, err := strconv.Atoi(pageStr); err == nil && v > 0 {
		page = v
	}

	if v, err := strconv.Atoi(limitStr); err == nil && v > 0 && v <= 100 {
		limit = v
	}

	items, total, err := h.journal.List(r.Context(), page, limit)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	payload := response.DeliveriesPayload{
		Items: response.FromDomainDeliveries(items),
		Total: total,
		Page:  page,
		Limit: limit,
	}

	response.RespondJSON(w, http.StatusOK, payload)
}

// GetStats godoc
// @Summary     Backend counters
// @Description Returns pending, sent and failed counts from the backend.
// @Tags        forwarding
// @Produce     json
// @Success     200 {object} response.StatsResponse
// @Failure     401 {object} response.JSONResponse
// @Failure     502 {object} response.JSONResponse
// @Router      /stats [get]
func (h *ForwardingHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		if errors.Is(err, syncapi.ErrUnauthorized) {
			response.RespondError(w, http.StatusUnauthorized, "not logged in")
			return
		}
		response.RespondError(w, http.StatusBadGateway, err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, stats)
}

func statePayload(st forwarder.Status) response.ForwardingStatePayload {
	p := response.ForwardingStatePayload{
		Mode:       string(st.Mode),
		Active:     st.Mode != forwarder.ModeInactive,
		Processing: st.Sync.Processing,
		DeviceID:   st.Activation.DeviceID,
		DeviceName: st.Activation.DeviceName,
	}
	if !st.Sync.LastSync.IsZero() {
		t := st.Sync.LastSync.UTC()
		p.LastSync = &t
	}
	if st.Sync.Error != "" {
		e := st.Sync.Error
		p.Error = &e
	}
	return p
}
