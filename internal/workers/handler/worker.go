package handler

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"ejeapi/internal/lease"
	"ejeapi/internal/workers/service"
	httputil "ejeapi/pkg/http"
	"ejeapi/pkg/logger"
)

const (
	servicePrefix = "/api/causas-eje-service"
	statsPrefix   = "/api/worker-stats"
)

type WorkerHandler struct {
	service service.WorkerService
	paging  httputil.Paging
	log     *logger.Logger
}

func NewWorkerHandler(service service.WorkerService, paging httputil.Paging, log *logger.Logger) *WorkerHandler {
	return &WorkerHandler{
		service: service,
		paging:  paging,
		log:     log,
	}
}

type LockRequest struct {
	WorkerID string `json:"workerId"`
}

type VerifyLockRequest struct {
	WorkerID string `json:"workerId"`
	Token    int64  `json:"token"`
}

type LockResponse struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message"`
	CausaID   string     `json:"causaId"`
	WorkerID  string     `json:"workerId,omitempty"`
	Token     int64      `json:"token,omitempty"`
	LockedAt  *time.Time `json:"lockedAt,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type VerifyLockResponse struct {
	Valid   bool   `json:"valid"`
	CausaID string `json:"causaId"`
}

type ClearStuckResponse struct {
	Success bool   `json:"success"`
	Cleared int64  `json:"cleared"`
	Message string `json:"message"`
}

func (h *WorkerHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *WorkerHandler) writeSuccess(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *WorkerHandler) PendingVerification(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, err := httputil.QueryInt(r, "limit", 0)
	if err != nil {
		h.writeError(w, "PendingVerification", err)
		return
	}

	causas, err := h.service.PendingVerification(r.Context(), limit)
	if err != nil {
		h.writeError(w, "PendingVerification", err)
		return
	}
	h.writeSuccess(w, "PendingVerification", causas)
}

func (h *WorkerHandler) PendingUpdate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, err := httputil.QueryInt(r, "limit", 0)
	if err != nil {
		h.writeError(w, "PendingUpdate", err)
		return
	}

	causas, err := h.service.PendingUpdate(r.Context(), limit)
	if err != nil {
		h.writeError(w, "PendingUpdate", err)
		return
	}
	h.writeSuccess(w, "PendingUpdate", causas)
}

func (h *WorkerHandler) Lock(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	causaID := ps.ByName("causaId")

	var req LockRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Lock", err)
		return
	}

	l, ok, err := h.service.Lock(r.Context(), causaID, req.WorkerID)
	if err != nil {
		h.writeError(w, "Lock", err)
		return
	}

	resp := LockResponse{
		Success: ok,
		Message: "Could not lock causa (already locked or not found)",
		CausaID: causaID,
	}
	if ok {
		expires := l.ExpiresAt()
		resp.Message = "Causa locked"
		resp.WorkerID = l.WorkerID
		resp.Token = l.Token
		resp.LockedAt = &l.AcquiredAt
		resp.ExpiresAt = &expires
	}
	h.writeSuccess(w, "Lock", resp)
}

func (h *WorkerHandler) Unlock(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	causaID := ps.ByName("causaId")

	ok := h.service.Unlock(r.Context(), causaID)
	resp := LockResponse{Success: ok, Message: "Causa unlocked", CausaID: causaID}
	if !ok {
		resp.Message = "Error unlocking causa"
	}
	h.writeSuccess(w, "Unlock", resp)
}

func (h *WorkerHandler) VerifyLock(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	causaID := ps.ByName("causaId")

	var req VerifyLockRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "VerifyLock", err)
		return
	}

	valid, err := h.service.VerifyLock(r.Context(), causaID, req.WorkerID, req.Token)
	if err != nil {
		h.writeError(w, "VerifyLock", err)
		return
	}
	h.writeSuccess(w, "VerifyLock", VerifyLockResponse{Valid: valid, CausaID: causaID})
}

func (h *WorkerHandler) Stats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.writeError(w, "Stats", err)
		return
	}
	h.writeSuccess(w, "Stats", stats)
}

func (h *WorkerHandler) Activity(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	hours, err := httputil.QueryInt(r, "hours", 0)
	if err != nil {
		h.writeError(w, "Activity", err)
		return
	}

	report, err := h.service.Activity(r.Context(), hours)
	if err != nil {
		h.writeError(w, "Activity", err)
		return
	}
	h.writeSuccess(w, "Activity", report)
}

func (h *WorkerHandler) Eligibility(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	e, err := h.service.Eligibility(r.Context())
	if err != nil {
		h.writeError(w, "Eligibility", err)
		return
	}
	h.writeSuccess(w, "Eligibility", e)
}

func (h *WorkerHandler) Errors(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	page, limit, err := httputil.ExtractPageLimit(r, h.paging)
	if err != nil {
		h.writeError(w, "Errors", err)
		return
	}

	causas, total, err := h.service.Errors(r.Context(), page, limit)
	if err != nil {
		h.writeError(w, "Errors", err)
		return
	}

	if err := httputil.WritePaginated(w, causas, total, page, limit); err != nil {
		h.log.Error("failed to write paginated response", "handler", "Errors", "operation", "WritePaginated", "error", err)
	}
}

func (h *WorkerHandler) Stuck(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	stuck, err := h.service.Stuck(r.Context())
	if err != nil {
		h.writeError(w, "Stuck", err)
		return
	}
	h.writeSuccess(w, "Stuck", map[string]any{
		"count":     len(stuck),
		"causas":    stuck,
		"threshold": lease.Duration.String(),
	})
}

func (h *WorkerHandler) ClearStuck(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	cleared, err := h.service.ClearStuck(r.Context())
	if err != nil {
		h.writeError(w, "ClearStuck", err)
		return
	}
	h.writeSuccess(w, "ClearStuck", ClearStuckResponse{
		Success: true,
		Cleared: cleared,
		Message: "Stuck causas released",
	})
}

func (h *WorkerHandler) ResetError(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if err := h.service.ResetError(r.Context(), id); err != nil {
		h.writeError(w, "ResetError", err)
		return
	}
	h.writeSuccess(w, "ResetError", map[string]any{
		"success": true,
		"causaId": id,
	})
}

func (h *WorkerHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET(servicePrefix+"/pending-verification", h.PendingVerification)
	router.GET(servicePrefix+"/pending-update", h.PendingUpdate)
	router.POST(servicePrefix+"/lock/:causaId", h.Lock)
	router.POST(servicePrefix+"/lock/:causaId/verify", h.VerifyLock)
	router.POST(servicePrefix+"/unlock/:causaId", h.Unlock)

	router.GET(statsPrefix, h.Stats)
	router.GET(statsPrefix+"/activity", h.Activity)
	router.GET(statsPrefix+"/eligibility", h.Eligibility)
	router.GET(statsPrefix+"/errors", h.Errors)
	router.GET(statsPrefix+"/stuck", h.Stuck)
	router.POST(statsPrefix+"/clear-stuck", h.ClearStuck)
	router.POST(statsPrefix+"/reset-error/:id", h.ResetError)
}
