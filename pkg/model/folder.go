package model

// FolderAssociation links an application folder (and optionally a user) to
// a causa identified by id, cuij or numero/anio, in that order.
type FolderAssociation struct {
	CausaID    string `json:"causaId,omitempty" validate:"omitempty,mongodb"`
	Cuij       string `json:"cuij,omitempty" validate:"omitempty,max=100"`
	Numero     int    `json:"numero,omitempty" validate:"omitempty,min=1"`
	Anio       int    `json:"anio,omitempty" validate:"omitempty,min=1900,max=2200"`
	FolderID   string `json:"folderId" validate:"required,mongodb"`
	UserID     string `json:"userId,omitempty" validate:"omitempty,mongodb"`
	SearchTerm string `json:"searchTerm,omitempty" validate:"omitempty,max=200"`
}

// HasLookup reports whether the request names any way to find the causa.
func (a *FolderAssociation) HasLookup() bool {
	return a.CausaID != "" || a.Cuij != "" || (a.Numero > 0 && a.Anio > 0)
}

type FolderAssociationResult struct {
	Created bool   `json:"created"`
	CausaID string `json:"causaId"`
	Cuij    string `json:"cuij"`
}

type FolderDissociation struct {
	CausaID  string `json:"causaId" validate:"required,mongodb"`
	FolderID string `json:"folderId" validate:"required,mongodb"`
	UserID   string `json:"userId,omitempty" validate:"omitempty,mongodb"`
}

type PreferenceUpdate struct {
	CausaID string `json:"causaId" validate:"required,mongodb"`
	UserID  string `json:"userId" validate:"required,mongodb"`
	Enabled *bool  `json:"enabled" validate:"required"`
}

type PreferenceResult struct {
	CausaID       string `json:"causaId"`
	UpdateEnabled bool   `json:"updateEnabled"`
}

type ResolvePivotRequest struct {
	TargetCausaID string `json:"targetCausaId" validate:"required,mongodb"`
}

type ResolvePivotResult struct {
	PivotID           string `json:"pivotId"`
	TargetCausaID     string `json:"targetCausaId"`
	FoldersMoved      int    `json:"foldersMoved"`
	UsersMoved        int    `json:"usersMoved"`
	PreferencesMerged int    `json:"preferencesMerged"`
}
