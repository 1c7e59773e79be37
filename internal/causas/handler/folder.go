package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	httputil "ejeapi/pkg/http"
	"ejeapi/pkg/model"
)

func (h *CausaHandler) AssociateFolder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.FolderAssociation
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "AssociateFolder", err)
		return
	}

	result, err := h.service.AssociateFolder(r.Context(), &req)
	if err != nil {
		h.writeError(w, "AssociateFolder", err)
		return
	}

	if !result.Created {
		h.writeSuccess(w, "AssociateFolder", result)
		return
	}
	if err := httputil.WriteCreated(w, result); err != nil {
		h.log.Error("failed to write created response", "handler", "AssociateFolder", "operation", "WriteCreated", "error", err)
	}
}

func (h *CausaHandler) DissociateFolder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.FolderDissociation
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "DissociateFolder", err)
		return
	}

	if err := h.service.DissociateFolder(r.Context(), &req); err != nil {
		h.writeError(w, "DissociateFolder", err)
		return
	}
	h.writeSuccess(w, "DissociateFolder", map[string]any{
		"causaId":  req.CausaID,
		"folderId": req.FolderID,
	})
}

func (h *CausaHandler) FindByFolder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	c, err := h.service.FindByFolder(r.Context(), ps.ByName("folderId"))
	if err != nil {
		h.writeError(w, "FindByFolder", err)
		return
	}
	h.writeSuccess(w, "FindByFolder", c)
}

func (h *CausaHandler) UpdatePreference(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.PreferenceUpdate
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "UpdatePreference", err)
		return
	}

	result, err := h.service.UpdatePreference(r.Context(), &req)
	if err != nil {
		h.writeError(w, "UpdatePreference", err)
		return
	}
	h.writeSuccess(w, "UpdatePreference", result)
}
