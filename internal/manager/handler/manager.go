package handler

import (
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"ejeapi/internal/manager/service"
	apperrors "ejeapi/pkg/errors"
	httputil "ejeapi/pkg/http"
	"ejeapi/pkg/logger"
	"ejeapi/pkg/model"
)

const (
	managerPrefix     = "/api/config/manager"
	workerStatsPrefix = "/api/config/worker-stats"
)

type ManagerHandler struct {
	service service.ManagerService
	log     *logger.Logger
}

func NewManagerHandler(service service.ManagerService, log *logger.Logger) *ManagerHandler {
	return &ManagerHandler{
		service: service,
		log:     log,
	}
}

type AcknowledgeRequest struct {
	AcknowledgedBy string `json:"acknowledgedBy"`
}

type AcknowledgeResponse struct {
	Success bool `json:"success"`
	Index   int  `json:"index"`
}

func (h *ManagerHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *ManagerHandler) respond(w http.ResponseWriter, handler string, data any, err error) {
	if err != nil {
		h.writeError(w, handler, err)
		return
	}
	if writeErr := httputil.WriteSuccess(w, data); writeErr != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", writeErr)
	}
}

func (h *ManagerHandler) Overview(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	overview, err := h.service.Overview(r.Context())
	h.respond(w, "Overview", overview, err)
}

func (h *ManagerHandler) Full(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	c, err := h.service.Full(r.Context())
	h.respond(w, "Full", c, err)
}

func (h *ManagerHandler) Update(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var u model.ManagerSettingsUpdate
	if err := httputil.DecodeJSON(r, &u); err != nil {
		h.writeError(w, "Update", err)
		return
	}
	settings, err := h.service.Update(r.Context(), &u)
	h.respond(w, "Update", settings, err)
}

func (h *ManagerHandler) UpdateGlobal(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var u model.GlobalSettingsUpdate
	if err := httputil.DecodeJSON(r, &u); err != nil {
		h.writeError(w, "UpdateGlobal", err)
		return
	}
	settings, err := h.service.UpdateGlobal(r.Context(), &u)
	h.respond(w, "UpdateGlobal", settings, err)
}

func (h *ManagerHandler) ToggleRunning(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	state, err := h.service.ToggleRunning(r.Context())
	h.respond(w, "ToggleRunning", state, err)
}

func (h *ManagerHandler) TogglePaused(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	state, err := h.service.TogglePaused(r.Context())
	h.respond(w, "TogglePaused", state, err)
}

func (h *ManagerHandler) History(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	hours, err := httputil.QueryInt(r, "hours", service.DefaultHistoryHours)
	if err != nil {
		h.writeError(w, "History", err)
		return
	}
	history, err := h.service.History(r.Context(), hours)
	h.respond(w, "History", history, err)
}

func (h *ManagerHandler) Alerts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	acknowledged, err := httputil.QueryBool(r, "acknowledged")
	if err != nil {
		h.writeError(w, "Alerts", err)
		return
	}
	alerts, err := h.service.Alerts(r.Context(), acknowledged != nil && *acknowledged)
	h.respond(w, "Alerts", alerts, err)
}

// AcknowledgeAlert accepts an optional body naming who acknowledged.
func (h *ManagerHandler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	index, err := strconv.Atoi(ps.ByName("index"))
	if err != nil {
		h.writeError(w, "AcknowledgeAlert", apperrors.InvalidInput("invalid alert index: "+ps.ByName("index")))
		return
	}

	var req AcknowledgeRequest
	if r.ContentLength > 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			h.writeError(w, "AcknowledgeAlert", err)
			return
		}
	}

	err = h.service.AcknowledgeAlert(r.Context(), index, req.AcknowledgedBy)
	h.respond(w, "AcknowledgeAlert", AcknowledgeResponse{Success: true, Index: index}, err)
}

func (h *ManagerHandler) DailyStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	days, err := httputil.QueryInt(r, "days", service.DefaultDailyStatDays)
	if err != nil {
		h.writeError(w, "DailyStats", err)
		return
	}
	stats, err := h.service.DailyStats(r.Context(), days)
	h.respond(w, "DailyStats", stats, err)
}

func (h *ManagerHandler) Workers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	overview, err := h.service.Workers(r.Context())
	h.respond(w, "Workers", overview, err)
}

func (h *ManagerHandler) Worker(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	detail, err := h.service.Worker(r.Context(), ps.ByName("workerType"))
	h.respond(w, "Worker", detail, err)
}

func (h *ManagerHandler) UpdateWorker(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var u model.WorkerConfigUpdate
	if err := httputil.DecodeJSON(r, &u); err != nil {
		h.writeError(w, "UpdateWorker", err)
		return
	}
	view, err := h.service.UpdateWorker(r.Context(), ps.ByName("workerType"), &u)
	h.respond(w, "UpdateWorker", view, err)
}

func (h *ManagerHandler) ToggleWorker(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	view, err := h.service.ToggleWorker(r.Context(), ps.ByName("workerType"))
	h.respond(w, "ToggleWorker", view, err)
}

func (h *ManagerHandler) RunStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	stats, err := h.service.RunStats(r.Context(), r.URL.Query().Get("workerType"))
	h.respond(w, "RunStats", stats, err)
}

// workerStatsOne serves /worker-stats/today. httprouter cannot register that
// static segment next to the :workerType wildcard of the runs route.
func (h *ManagerHandler) workerStatsOne(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if ps.ByName("workerType") != "today" {
		h.writeError(w, "dispatch", apperrors.NotFound("Route"))
		return
	}
	summary, err := h.service.TodaySummary(r.Context(), r.URL.Query().Get("workerType"))
	h.respond(w, "TodaySummary", summary, err)
}

func (h *ManagerHandler) RunHistory(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit, err := httputil.QueryInt(r, "limit", service.DefaultRunHistoryLimit)
	if err != nil {
		h.writeError(w, "RunHistory", err)
		return
	}
	history, err := h.service.RunHistory(r.Context(), ps.ByName("workerType"), ps.ByName("workerId"), limit)
	h.respond(w, "RunHistory", history, err)
}

func (h *ManagerHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET(managerPrefix, h.Overview)
	router.PATCH(managerPrefix, h.Update)
	router.GET(managerPrefix+"/full", h.Full)
	router.POST(managerPrefix+"/toggle", h.ToggleRunning)
	router.POST(managerPrefix+"/pause", h.TogglePaused)
	router.GET(managerPrefix+"/history", h.History)
	router.GET(managerPrefix+"/alerts", h.Alerts)
	router.POST(managerPrefix+"/alerts/:index/acknowledge", h.AcknowledgeAlert)
	router.GET(managerPrefix+"/daily-stats", h.DailyStats)
	router.PATCH(managerPrefix+"/settings", h.UpdateGlobal)
	router.GET(managerPrefix+"/workers", h.Workers)
	router.GET(managerPrefix+"/worker/:workerType", h.Worker)
	router.PATCH(managerPrefix+"/worker/:workerType", h.UpdateWorker)
	router.POST(managerPrefix+"/worker/:workerType/toggle", h.ToggleWorker)

	router.GET(workerStatsPrefix, h.RunStats)
	router.GET(workerStatsPrefix+"/:workerType", h.workerStatsOne)
	router.GET(workerStatsPrefix+"/:workerType/:workerId/runs", h.RunHistory)
}
