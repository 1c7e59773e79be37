package sanitizer

import (
	"regexp"
	"strconv"
	"strings"

	"ejeapi/pkg/model"
)

var (
	reCuijPrefix = regexp.MustCompile(`(?i)^(IPP|EXP|INC)\s+`)
	reCuijNumber = regexp.MustCompile(`(\d+)(?:-\d)?/(\d{4})`)
)

// CleanCuij removes the filing prefix used in court listings so
// "EXP J-01-00015050-5/2021-0" and "J-01-00015050-5/2021-0" match.
func CleanCuij(cuij string) string {
	p := Pipeline{
		TrimAndNormalize,
		func(s string) string { return reCuijPrefix.ReplaceAllString(s, "") },
		strings.TrimSpace,
	}
	return p.Apply(cuij)
}

// ParseCuij extracts the case number and year from a CUIJ such as
// "J-01-00015050-5/2021-0". ok is false when the pattern is absent.
func ParseCuij(cuij string) (numero, anio int, ok bool) {
	m := reCuijNumber.FindStringSubmatch(cuij)
	if m == nil {
		return 0, 0, false
	}
	numero, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	anio, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	return numero, anio, true
}

// SanitizeCausaInput normalizes the free-text fields of in and, when only a
// CUIJ is given, derives numero/anio from it.
func SanitizeCausaInput(in *model.CausaInput) {
	if in.Cuij != nil {
		cleaned := CleanCuij(*in.Cuij)
		in.Cuij = &cleaned
	}
	in.Caratula = NormalizeStringPtr(in.Caratula)
	in.Objeto = NormalizeStringPtr(in.Objeto)
	in.Juzgado = NormalizeStringPtr(in.Juzgado)
	in.Estado = NormalizeStringPtr(in.Estado)
	in.Source = NormalizeStringPtr(in.Source)
	in.SearchTerm = NormalizeStringPtr(in.SearchTerm)

	if in.Cuij != nil && in.Numero == nil && in.Anio == nil {
		if numero, anio, ok := ParseCuij(*in.Cuij); ok {
			in.Numero = &numero
			in.Anio = &anio
		}
	}
}
