package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"ejeapi/internal/settings/service"
	httputil "ejeapi/pkg/http"
	"ejeapi/pkg/logger"
	"ejeapi/pkg/model"
)

const configPrefix = "/api/config"

type SettingsHandler struct {
	service service.SettingsService
	log     *logger.Logger
}

func NewSettingsHandler(service service.SettingsService, log *logger.Logger) *SettingsHandler {
	return &SettingsHandler{
		service: service,
		log:     log,
	}
}

func (h *SettingsHandler) respond(w http.ResponseWriter, handler string, settings *model.WorkerSettings, err error) {
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
		}
		return
	}
	if writeErr := httputil.WriteSuccess(w, settings); writeErr != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", writeErr)
	}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	settings, err := h.service.Get(r.Context())
	h.respond(w, "Get", settings, err)
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var u model.WorkerSettingsUpdate
	if err := httputil.DecodeJSON(r, &u); err != nil {
		h.respond(w, "Update", nil, err)
		return
	}

	settings, err := h.service.Update(r.Context(), &u)
	h.respond(w, "Update", settings, err)
}

func (h *SettingsHandler) Toggle(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	settings, err := h.service.Toggle(r.Context())
	h.respond(w, "Toggle", settings, err)
}

func (h *SettingsHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET(configPrefix, h.Get)
	router.PATCH(configPrefix, h.Update)
	router.POST(configPrefix+"/toggle", h.Toggle)
}
