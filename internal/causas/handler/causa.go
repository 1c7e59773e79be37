package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"ejeapi/internal/causas/service"
	apperrors "ejeapi/pkg/errors"
	httputil "ejeapi/pkg/http"
	"ejeapi/pkg/logger"
	"ejeapi/pkg/model"
)

type CausaHandler struct {
	service service.CausaService
	paging  httputil.Paging
	log     *logger.Logger
}

func NewCausaHandler(service service.CausaService, paging httputil.Paging, log *logger.Logger) *CausaHandler {
	return &CausaHandler{
		service: service,
		paging:  paging,
		log:     log,
	}
}

type CreateOrUpdateResponse struct {
	Created bool         `json:"created"`
	Causa   *model.Causa `json:"causa"`
}

type DeleteResponse struct {
	ID   string `json:"id"`
	Cuij string `json:"cuij"`
}

func (h *CausaHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *CausaHandler) writeSuccess(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *CausaHandler) writePaginated(w http.ResponseWriter, handler string, data any, total int64, page, limit int) {
	if err := httputil.WritePaginated(w, data, total, page, limit); err != nil {
		h.log.Error("failed to write paginated response", "handler", handler, "operation", "WritePaginated", "error", err)
	}
}

func (h *CausaHandler) Stats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.writeError(w, "Stats", err)
		return
	}
	h.writeSuccess(w, "Stats", stats)
}

func (h *CausaHandler) Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	page, limit, err := httputil.ExtractPageLimit(r, h.paging)
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	q, err := parseSearch(r)
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	causas, total, err := h.service.Search(r.Context(), q, page, limit)
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}
	h.writePaginated(w, "Search", causas, total, page, limit)
}

func parseSearch(r *http.Request) (model.CausaSearch, error) {
	query := r.URL.Query()
	q := model.CausaSearch{
		Cuij:       query.Get("cuij"),
		Caratula:   query.Get("caratula"),
		Juzgado:    query.Get("juzgado"),
		Objeto:     query.Get("objeto"),
		SearchTerm: query.Get("searchTerm"),
		Estado:     query.Get("estado"),
		Source:     query.Get("source"),
		FolderID:   query.Get("folderId"),
		UserID:     query.Get("userId"),
		SortBy:     query.Get("sortBy"),
		SortOrder:  query.Get("sortOrder"),
	}

	ints := []struct {
		key string
		dst **int
	}{
		{"numero", &q.Numero},
		{"anio", &q.Anio},
	}
	for _, f := range ints {
		if query.Get(f.key) == "" {
			continue
		}
		v, err := httputil.QueryInt(r, f.key, 0)
		if err != nil {
			return q, err
		}
		*f.dst = &v
	}

	bools := []struct {
		key string
		dst **bool
	}{
		{"verified", &q.Verified},
		{"isValid", &q.IsValid},
		{"isPrivate", &q.IsPrivate},
		{"detailsLoaded", &q.DetailsLoaded},
		{"update", &q.Update},
		{"isPivot", &q.IsPivot},
		{"resolved", &q.Resolved},
	}
	for _, f := range bools {
		v, err := httputil.QueryBool(r, f.key)
		if err != nil {
			return q, err
		}
		*f.dst = v
	}

	var err error
	if q.FechaInicioFrom, err = queryTime(r, "fechaInicioFrom"); err != nil {
		return q, err
	}
	if q.FechaInicioTo, err = queryTime(r, "fechaInicioTo"); err != nil {
		return q, err
	}
	return q, nil
}

// queryTime accepts RFC 3339 timestamps or plain dates.
func queryTime(r *http.Request, key string) (*time.Time, error) {
	s := strings.TrimSpace(r.URL.Query().Get(key))
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, apperrors.InvalidInput("invalid " + key + " parameter: " + s)
}

func (h *CausaHandler) ByFolder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	page, limit, err := httputil.ExtractPageLimit(r, h.paging)
	if err != nil {
		h.writeError(w, "ByFolder", err)
		return
	}

	causas, total, err := h.service.ByFolder(r.Context(), ps.ByName("sub"), page, limit)
	if err != nil {
		h.writeError(w, "ByFolder", err)
		return
	}
	h.writePaginated(w, "ByFolder", causas, total, page, limit)
}

func (h *CausaHandler) ByUser(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	page, limit, err := httputil.ExtractPageLimit(r, h.paging)
	if err != nil {
		h.writeError(w, "ByUser", err)
		return
	}

	causas, total, err := h.service.ByUser(r.Context(), ps.ByName("sub"), page, limit)
	if err != nil {
		h.writeError(w, "ByUser", err)
		return
	}
	h.writePaginated(w, "ByUser", causas, total, page, limit)
}

func (h *CausaHandler) GetByCuij(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.getByCuij(w, r, ps.ByName("sub"))
}

func (h *CausaHandler) getByCuij(w http.ResponseWriter, r *http.Request, cuij string) {
	c, err := h.service.GetByCuij(r.Context(), cuij)
	if err != nil {
		h.writeError(w, "GetByCuij", err)
		return
	}
	h.writeSuccess(w, "GetByCuij", c)
}

func (h *CausaHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	c, err := h.service.GetByID(r.Context(), ps.ByName("sub"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}
	h.writeSuccess(w, "GetByID", c)
}

func (h *CausaHandler) GetByNumeroAnio(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	numero, errN := strconv.Atoi(ps.ByName("seg"))
	anio, errA := strconv.Atoi(ps.ByName("sub"))
	if errN != nil || errA != nil {
		h.writeError(w, "GetByNumeroAnio", apperrors.InvalidInput("number and year must be integers"))
		return
	}

	c, err := h.service.GetByNumeroAnio(r.Context(), numero, anio)
	if err != nil {
		h.writeError(w, "GetByNumeroAnio", err)
		return
	}
	h.writeSuccess(w, "GetByNumeroAnio", c)
}

func (h *CausaHandler) Movimientos(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	page, limit, err := httputil.ExtractPageLimit(r, h.paging)
	if err != nil {
		h.writeError(w, "Movimientos", err)
		return
	}

	result, err := h.service.Movimientos(r.Context(), ps.ByName("seg"), page, limit)
	if err != nil {
		h.writeError(w, "Movimientos", err)
		return
	}
	h.writePaginated(w, "Movimientos", result, result.Total, result.Page, result.Limit)
}

func (h *CausaHandler) Intervinientes(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	c, err := h.service.Intervinientes(r.Context(), ps.ByName("seg"))
	if err != nil {
		h.writeError(w, "Intervinientes", err)
		return
	}
	h.writeSuccess(w, "Intervinientes", map[string]any{
		"cuij":           c.Cuij,
		"intervinientes": nonNilSlice(c.Intervinientes),
	})
}

func (h *CausaHandler) Relacionadas(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	c, err := h.service.Relacionadas(r.Context(), ps.ByName("seg"))
	if err != nil {
		h.writeError(w, "Relacionadas", err)
		return
	}
	h.writeSuccess(w, "Relacionadas", map[string]any{
		"cuij":               c.Cuij,
		"causasRelacionadas": nonNilSlice(c.CausasRelacionadas),
	})
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (h *CausaHandler) CreateOrUpdate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in model.CausaInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		h.writeError(w, "CreateOrUpdate", err)
		return
	}

	c, created, err := h.service.CreateOrUpdate(r.Context(), &in)
	if err != nil {
		h.writeError(w, "CreateOrUpdate", err)
		return
	}

	resp := CreateOrUpdateResponse{Created: created, Causa: c}
	if !created {
		h.writeSuccess(w, "CreateOrUpdate", resp)
		return
	}
	if err := httputil.WriteCreated(w, resp); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateOrUpdate", "operation", "WriteCreated", "error", err)
	}
}

func (h *CausaHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in model.CausaInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	c, err := h.service.Update(r.Context(), ps.ByName("id"), &in)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}
	h.writeSuccess(w, "Update", c)
}

func (h *CausaHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	c, err := h.service.Delete(r.Context(), id)
	if err != nil {
		h.writeError(w, "Delete", err)
		return
	}
	h.writeSuccess(w, "Delete", DeleteResponse{ID: id, Cuij: c.Cuij})
}

func (h *CausaHandler) LinkedCausas(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	linked, err := h.service.LinkedCausas(r.Context(), ps.ByName("seg"))
	if err != nil {
		h.writeError(w, "LinkedCausas", err)
		return
	}
	h.writeSuccess(w, "LinkedCausas", linked)
}

func (h *CausaHandler) ResolvePivot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.ResolvePivotRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "ResolvePivot", err)
		return
	}

	result, err := h.service.ResolvePivot(r.Context(), ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "ResolvePivot", err)
		return
	}
	h.writeSuccess(w, "ResolvePivot", result)
}
