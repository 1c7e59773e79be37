package repository

import (
	"fmt"
	"regexp"
	"strings"

	causaserrors "ejeapi/internal/causas/errors"
	"ejeapi/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultSortField = "createdAt"

var sortableFields = map[string]struct{}{
	"createdAt":         {},
	"updatedAt":         {},
	"cuij":              {},
	"numero":            {},
	"anio":              {},
	"caratula":          {},
	"juzgado":           {},
	"estado":            {},
	"fechaInicio":       {},
	"verifiedAt":        {},
	"detailsLastUpdate": {},
	"movimientosCount":  {},
	"errorCount":        {},
}

// IsSortable reports whether field may be used in sortBy.
func IsSortable(field string) bool {
	_, ok := sortableFields[field]
	return ok
}

// containsInsensitive matches value as a literal, case-insensitive substring.
func containsInsensitive(value string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(value), Options: "i"}
}

// BuildFilter translates search criteria into a causas query.
func BuildFilter(q model.CausaSearch) (bson.M, error) {
	filter := bson.M{}

	regexFields := []struct {
		key   string
		value string
	}{
		{"cuij", q.Cuij},
		{"caratula", q.Caratula},
		{"juzgado", q.Juzgado},
		{"objeto", q.Objeto},
		{"searchTerm", q.SearchTerm},
	}
	for _, f := range regexFields {
		if v := strings.TrimSpace(f.value); v != "" {
			filter[f.key] = containsInsensitive(v)
		}
	}

	if q.Numero != nil {
		filter["numero"] = *q.Numero
	}
	if q.Anio != nil {
		filter["anio"] = *q.Anio
	}
	if q.Estado != "" {
		filter["estado"] = q.Estado
	}
	if q.Source != "" {
		filter["source"] = q.Source
	}

	flags := []struct {
		key   string
		value *bool
	}{
		{"verified", q.Verified},
		{"isValid", q.IsValid},
		{"isPrivate", q.IsPrivate},
		{"detailsLoaded", q.DetailsLoaded},
		{"update", q.Update},
		{"isPivot", q.IsPivot},
		{"resolved", q.Resolved},
	}
	for _, f := range flags {
		if f.value != nil {
			filter[f.key] = *f.value
		}
	}

	if q.FechaInicioFrom != nil || q.FechaInicioTo != nil {
		rng := bson.M{}
		if q.FechaInicioFrom != nil {
			rng["$gte"] = *q.FechaInicioFrom
		}
		if q.FechaInicioTo != nil {
			rng["$lte"] = *q.FechaInicioTo
		}
		filter["fechaInicio"] = rng
	}

	if q.FolderID != "" {
		oid, err := primitive.ObjectIDFromHex(q.FolderID)
		if err != nil {
			return nil, fmt.Errorf("%w: folderId %s", causaserrors.ErrInvalidID, q.FolderID)
		}
		filter["folderIds"] = oid
	}
	if q.UserID != "" {
		oid, err := primitive.ObjectIDFromHex(q.UserID)
		if err != nil {
			return nil, fmt.Errorf("%w: userId %s", causaserrors.ErrInvalidID, q.UserID)
		}
		filter["userCausaIds"] = oid
	}

	return filter, nil
}

// BuildSort returns the sort document for q, defaulting to createdAt desc.
// Unknown fields fall back to the default.
func BuildSort(q model.CausaSearch) bson.D {
	field := q.SortBy
	if !IsSortable(field) {
		field = DefaultSortField
	}
	order := -1
	if strings.EqualFold(q.SortOrder, "asc") {
		order = 1
	}
	return bson.D{{Key: field, Value: order}, {Key: "_id", Value: order}}
}
