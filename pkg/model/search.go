package model

import "time"

// CausaSearch holds the optional search filters. Zero values and nil
// pointers are ignored.
type CausaSearch struct {
	Cuij       string
	Caratula   string
	Juzgado    string
	Objeto     string
	SearchTerm string

	Numero *int
	Anio   *int
	Estado string
	Source string

	Verified      *bool
	IsValid       *bool
	IsPrivate     *bool
	DetailsLoaded *bool
	Update        *bool
	IsPivot       *bool
	Resolved      *bool

	FechaInicioFrom *time.Time
	FechaInicioTo   *time.Time

	FolderID string
	UserID   string

	SortBy    string
	SortOrder string
}
