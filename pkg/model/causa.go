package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	SourceApp = "app"
	SourceAPI = "api"

	UpdateTypeLink   = "link"
	UpdateTypeUnlink = "unlink"
)

// Causa is a case record of the EJE system. The collection is shared with
// external workers, so field names are fixed camelCase on both wire and disk.
type Causa struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Cuij        string             `json:"cuij" bson:"cuij"`
	Numero      int                `json:"numero" bson:"numero"`
	Anio        int                `json:"anio" bson:"anio"`
	Caratula    string             `json:"caratula,omitempty" bson:"caratula,omitempty"`
	Objeto      string             `json:"objeto,omitempty" bson:"objeto,omitempty"`
	Juzgado     string             `json:"juzgado,omitempty" bson:"juzgado,omitempty"`
	Estado      string             `json:"estado,omitempty" bson:"estado,omitempty"`
	FechaInicio *time.Time         `json:"fechaInicio,omitempty" bson:"fechaInicio,omitempty"`
	Source      string             `json:"source,omitempty" bson:"source,omitempty"`

	Verified          bool       `json:"verified" bson:"verified"`
	VerifiedAt        *time.Time `json:"verifiedAt,omitempty" bson:"verifiedAt,omitempty"`
	IsValid           *bool      `json:"isValid" bson:"isValid"` // nil = pending verification
	IsPrivate         bool       `json:"isPrivate" bson:"isPrivate"`
	DetailsLoaded     bool       `json:"detailsLoaded" bson:"detailsLoaded"`
	DetailsLastUpdate *time.Time `json:"detailsLastUpdate,omitempty" bson:"detailsLastUpdate,omitempty"`

	Movimientos        []Movimiento       `json:"movimientos,omitempty" bson:"movimientos,omitempty"`
	MovimientosCount   int                `json:"movimientosCount" bson:"movimientosCount"`
	Intervinientes     []Interviniente    `json:"intervinientes,omitempty" bson:"intervinientes,omitempty"`
	CausasRelacionadas []CausaRelacionada `json:"causasRelacionadas,omitempty" bson:"causasRelacionadas,omitempty"`

	FolderIDs          []primitive.ObjectID   `json:"folderIds" bson:"folderIds"`
	UserCausaIDs       []primitive.ObjectID   `json:"userCausaIds" bson:"userCausaIds"`
	UserUpdatesEnabled []UserUpdatePreference `json:"userUpdatesEnabled" bson:"userUpdatesEnabled"`
	Update             bool                   `json:"update" bson:"update"`
	UpdateHistory      []UpdateHistoryEntry   `json:"updateHistory,omitempty" bson:"updateHistory,omitempty"`

	ErrorCount int        `json:"errorCount" bson:"errorCount"`
	LastError  string     `json:"lastError,omitempty" bson:"lastError,omitempty"`
	StuckSince *time.Time `json:"stuckSince,omitempty" bson:"stuckSince,omitempty"`

	LockedBy  string     `json:"lockedBy,omitempty" bson:"lockedBy,omitempty"`
	LockedAt  *time.Time `json:"lockedAt,omitempty" bson:"lockedAt,omitempty"`
	LockToken int64      `json:"lockToken,omitempty" bson:"lockToken,omitempty"`

	IsPivot       bool                 `json:"isPivot" bson:"isPivot"`
	Resolved      bool                 `json:"resolved" bson:"resolved"`
	PivotCausaIDs []primitive.ObjectID `json:"pivotCausaIds,omitempty" bson:"pivotCausaIds,omitempty"`
	ResolvedTo    *primitive.ObjectID  `json:"resolvedTo,omitempty" bson:"resolvedTo,omitempty"`
	ResolvedAt    *time.Time           `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty"`
	SearchTerm    string               `json:"searchTerm,omitempty" bson:"searchTerm,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

type Movimiento struct {
	Fecha       *time.Time `json:"fecha,omitempty" bson:"fecha,omitempty"`
	Tipo        string     `json:"tipo,omitempty" bson:"tipo,omitempty"`
	Descripcion string     `json:"descripcion,omitempty" bson:"descripcion,omitempty"`
	Detalle     string     `json:"detalle,omitempty" bson:"detalle,omitempty"`
	URL         string     `json:"url,omitempty" bson:"url,omitempty"`
}

type Interviniente struct {
	Tipo          string `json:"tipo,omitempty" bson:"tipo,omitempty"`
	Nombre        string `json:"nombre,omitempty" bson:"nombre,omitempty"`
	Representante string `json:"representante,omitempty" bson:"representante,omitempty"`
}

type CausaRelacionada struct {
	CausaID  *primitive.ObjectID `json:"causaId,omitempty" bson:"causaId,omitempty"`
	Cuij     string              `json:"cuij,omitempty" bson:"cuij,omitempty"`
	Caratula string              `json:"caratula,omitempty" bson:"caratula,omitempty"`
	Relacion string              `json:"relacion,omitempty" bson:"relacion,omitempty"`
}

type UserUpdatePreference struct {
	UserID  primitive.ObjectID `json:"userId" bson:"userId"`
	Enabled bool               `json:"enabled" bson:"enabled"`
}

type UpdateHistoryEntry struct {
	Timestamp        time.Time      `json:"timestamp" bson:"timestamp"`
	Source           string         `json:"source" bson:"source"`
	UpdateType       string         `json:"updateType" bson:"updateType"`
	Success          bool           `json:"success" bson:"success"`
	MovimientosAdded int            `json:"movimientosAdded" bson:"movimientosAdded"`
	MovimientosTotal int            `json:"movimientosTotal" bson:"movimientosTotal"`
	Details          map[string]any `json:"details,omitempty" bson:"details,omitempty"`
}

// CausaInput carries the writable fields of a causa for create-or-update
// and partial updates. Nil pointers are left untouched.
type CausaInput struct {
	Cuij          *string    `json:"cuij,omitempty" validate:"omitempty,min=3,max=100"`
	Numero        *int       `json:"numero,omitempty" validate:"omitempty,min=0"`
	Anio          *int       `json:"anio,omitempty" validate:"omitempty,min=0,max=2200"`
	Caratula      *string    `json:"caratula,omitempty" validate:"omitempty,max=1000"`
	Objeto        *string    `json:"objeto,omitempty" validate:"omitempty,max=500"`
	Juzgado       *string    `json:"juzgado,omitempty" validate:"omitempty,max=500"`
	Estado        *string    `json:"estado,omitempty" validate:"omitempty,max=100"`
	FechaInicio   *time.Time `json:"fechaInicio,omitempty"`
	Source        *string    `json:"source,omitempty" validate:"omitempty,max=50"`
	Verified      *bool      `json:"verified,omitempty"`
	IsValid       *bool      `json:"isValid,omitempty"`
	IsPrivate     *bool      `json:"isPrivate,omitempty"`
	DetailsLoaded *bool      `json:"detailsLoaded,omitempty"`
	Update        *bool      `json:"update,omitempty"`
	ErrorCount    *int       `json:"errorCount,omitempty" validate:"omitempty,min=0"`
	LastError     *string    `json:"lastError,omitempty"`
	IsPivot       *bool      `json:"isPivot,omitempty"`
	SearchTerm    *string    `json:"searchTerm,omitempty" validate:"omitempty,max=200"`
}

// HasIdentity reports whether the input names a cuij or a numero/anio pair.
func (in *CausaInput) HasIdentity() bool {
	if in.Cuij != nil && *in.Cuij != "" {
		return true
	}
	return in.Numero != nil && *in.Numero > 0 && in.Anio != nil && *in.Anio > 0
}

// SetFields returns the bson $set document for the non-nil fields.
func (in *CausaInput) SetFields() map[string]any {
	set := make(map[string]any)
	put := func(key string, ok bool, v any) {
		if ok {
			set[key] = v
		}
	}
	put("cuij", in.Cuij != nil, deref(in.Cuij))
	put("numero", in.Numero != nil, deref(in.Numero))
	put("anio", in.Anio != nil, deref(in.Anio))
	put("caratula", in.Caratula != nil, deref(in.Caratula))
	put("objeto", in.Objeto != nil, deref(in.Objeto))
	put("juzgado", in.Juzgado != nil, deref(in.Juzgado))
	put("estado", in.Estado != nil, deref(in.Estado))
	put("fechaInicio", in.FechaInicio != nil, deref(in.FechaInicio))
	put("source", in.Source != nil, deref(in.Source))
	put("verified", in.Verified != nil, deref(in.Verified))
	put("isValid", in.IsValid != nil, deref(in.IsValid))
	put("isPrivate", in.IsPrivate != nil, deref(in.IsPrivate))
	put("detailsLoaded", in.DetailsLoaded != nil, deref(in.DetailsLoaded))
	put("update", in.Update != nil, deref(in.Update))
	put("errorCount", in.ErrorCount != nil, deref(in.ErrorCount))
	put("lastError", in.LastError != nil, deref(in.LastError))
	put("isPivot", in.IsPivot != nil, deref(in.IsPivot))
	put("searchTerm", in.SearchTerm != nil, deref(in.SearchTerm))
	return set
}

// NewCausa builds a fresh record from the input.
func (in *CausaInput) NewCausa(now time.Time) *Causa {
	c := &Causa{
		Cuij:               deref(in.Cuij),
		Numero:             deref(in.Numero),
		Anio:               deref(in.Anio),
		Caratula:           deref(in.Caratula),
		Objeto:             deref(in.Objeto),
		Juzgado:            deref(in.Juzgado),
		Estado:             deref(in.Estado),
		FechaInicio:        in.FechaInicio,
		Source:             deref(in.Source),
		Verified:           deref(in.Verified),
		IsValid:            in.IsValid,
		IsPrivate:          deref(in.IsPrivate),
		DetailsLoaded:      deref(in.DetailsLoaded),
		Update:             deref(in.Update),
		ErrorCount:         deref(in.ErrorCount),
		LastError:          deref(in.LastError),
		IsPivot:            deref(in.IsPivot),
		SearchTerm:         deref(in.SearchTerm),
		FolderIDs:          []primitive.ObjectID{},
		UserCausaIDs:       []primitive.ObjectID{},
		UserUpdatesEnabled: []UserUpdatePreference{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if c.Source == "" {
		c.Source = SourceApp
	}
	return c
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// CausaSummary is the projection used by stats and activity listings.
type CausaSummary struct {
	ID                primitive.ObjectID `json:"_id" bson:"_id"`
	Cuij              string             `json:"cuij" bson:"cuij"`
	Numero            int                `json:"numero,omitempty" bson:"numero,omitempty"`
	Anio              int                `json:"anio,omitempty" bson:"anio,omitempty"`
	Caratula          string             `json:"caratula,omitempty" bson:"caratula,omitempty"`
	Verified          bool               `json:"verified" bson:"verified"`
	IsValid           *bool              `json:"isValid,omitempty" bson:"isValid,omitempty"`
	IsPrivate         bool               `json:"isPrivate" bson:"isPrivate"`
	DetailsLoaded     bool               `json:"detailsLoaded" bson:"detailsLoaded"`
	VerifiedAt        *time.Time         `json:"verifiedAt,omitempty" bson:"verifiedAt,omitempty"`
	DetailsLastUpdate *time.Time         `json:"detailsLastUpdate,omitempty" bson:"detailsLastUpdate,omitempty"`
	MovimientosCount  int                `json:"movimientosCount,omitempty" bson:"movimientosCount,omitempty"`
	ErrorCount        int                `json:"errorCount,omitempty" bson:"errorCount,omitempty"`
	LastError         string             `json:"lastError,omitempty" bson:"lastError,omitempty"`
	LockedBy          string             `json:"lockedBy,omitempty" bson:"lockedBy,omitempty"`
	LockedAt          *time.Time         `json:"lockedAt,omitempty" bson:"lockedAt,omitempty"`
	UpdatedAt         time.Time          `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

// AnyUpdateEnabled reports whether any user asked for updates.
func AnyUpdateEnabled(prefs []UserUpdatePreference) bool {
	for _, p := range prefs {
		if p.Enabled {
			return true
		}
	}
	return false
}

// MergePreferences combines two preference lists by user, keeping the order
// of first appearance. When both lists name a user, enabled wins.
func MergePreferences(dst, src []UserUpdatePreference) []UserUpdatePreference {
	merged := make([]UserUpdatePreference, 0, len(dst)+len(src))
	index := make(map[primitive.ObjectID]int, len(dst)+len(src))
	for _, list := range [][]UserUpdatePreference{dst, src} {
		for _, p := range list {
			if i, ok := index[p.UserID]; ok {
				merged[i].Enabled = merged[i].Enabled || p.Enabled
				continue
			}
			index[p.UserID] = len(merged)
			merged = append(merged, p)
		}
	}
	return merged
}
