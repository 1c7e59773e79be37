//go:build integration

package testutil

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ejeapi/pkg/model"
)

func ptr[T any](v T) *T {
	return &v
}

func ValidCausaInput(cuij string, numero, anio int) *model.CausaInput {
	return &model.CausaInput{
		Cuij:     ptr(cuij),
		Numero:   ptr(numero),
		Anio:     ptr(anio),
		Caratula: ptr("PEREZ JUAN C/ GOMEZ PEDRO S/ DAÑOS Y PERJUICIOS"),
		Juzgado:  ptr("Juzgado Civil y Comercial N° 3"),
		Estado:   ptr("EN TRAMITE"),
		Source:   ptr(model.SourceAPI),
	}
}

// PivotCausa returns an unresolved pivot holding the given folder and user.
func PivotCausa(searchTerm string, folderID, userID primitive.ObjectID) *model.Causa {
	now := time.Now().UTC()
	return &model.Causa{
		Cuij:         "PIVOT-" + searchTerm,
		Caratula:     "Pendiente de verificación: " + searchTerm,
		Source:       model.SourceApp,
		IsPivot:      true,
		SearchTerm:   searchTerm,
		FolderIDs:    []primitive.ObjectID{folderID},
		UserCausaIDs: []primitive.ObjectID{userID},
		UserUpdatesEnabled: []model.UserUpdatePreference{
			{UserID: userID, Enabled: true},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
