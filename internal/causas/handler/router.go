package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	apperrors "ejeapi/pkg/errors"
)

const (
	causasPrefix  = "/api/causas-eje"
	servicePrefix = "/api/causas-eje-service"
)

func (h *CausaHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET(causasPrefix, h.Search)
	router.GET(causasPrefix+"/:seg", h.dispatchOne)
	router.GET(causasPrefix+"/:seg/:sub", h.dispatchTwo)
	router.GET(causasPrefix+"/:seg/:sub/:rest", h.cuijWithSlash)
	router.POST(causasPrefix, h.CreateOrUpdate)
	router.PATCH(causasPrefix+"/:id", h.Update)
	router.DELETE(causasPrefix+"/:id", h.Delete)
	router.POST(causasPrefix+"/:id/resolve", h.ResolvePivot)

	router.POST(servicePrefix+"/associate-folder", h.AssociateFolder)
	router.DELETE(servicePrefix+"/dissociate-folder", h.DissociateFolder)
	router.GET(servicePrefix+"/by-folder/:folderId", h.FindByFolder)
	router.PATCH(servicePrefix+"/update-preference", h.UpdatePreference)
}

// httprouter cannot mix static and wildcard children at one level, so the
// single-segment GET routes share one wildcard and dispatch here.
func (h *CausaHandler) dispatchOne(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	switch ps.ByName("seg") {
	case "stats":
		h.Stats(w, r, ps)
	case "buscar", "search":
		h.Search(w, r, ps)
	default:
		h.writeError(w, "dispatch", apperrors.NotFound("Route"))
	}
}

// dispatchTwo routes /:seg/:sub. Lookup prefixes win over the per-causa
// sections, and anything else is read as /:number/:year.
func (h *CausaHandler) dispatchTwo(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	switch ps.ByName("seg") {
	case "folder":
		h.ByFolder(w, r, ps)
		return
	case "user":
		h.ByUser(w, r, ps)
		return
	case "cuij":
		h.GetByCuij(w, r, ps)
		return
	case "id":
		h.GetByID(w, r, ps)
		return
	}

	switch ps.ByName("sub") {
	case "movimientos":
		h.Movimientos(w, r, ps)
	case "intervinientes":
		h.Intervinientes(w, r, ps)
	case "relacionadas":
		h.Relacionadas(w, r, ps)
	case "linked-causas":
		h.LinkedCausas(w, r, ps)
	default:
		h.GetByNumeroAnio(w, r, ps)
	}
}

// cuijWithSlash serves /cuij/:cuij when the client did not escape the slash
// that every CUIJ carries before its year.
func (h *CausaHandler) cuijWithSlash(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if ps.ByName("seg") != "cuij" {
		h.writeError(w, "dispatch", apperrors.NotFound("Route"))
		return
	}
	h.getByCuij(w, r, ps.ByName("sub")+"/"+ps.ByName("rest"))
}
