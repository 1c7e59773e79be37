package validator

import (
	"fmt"
	"time"

	"ejeapi/pkg/model"
	"ejeapi/pkg/validation"
)

type CausaValidator struct {
	v   *validation.Validator
	now func() time.Time
}

func NewCausaValidator() *CausaValidator {
	return &CausaValidator{
		v:   validation.New(),
		now: time.Now,
	}
}

// Validate checks a request struct against its validate tags.
func (cv *CausaValidator) Validate(s any) error {
	return cv.v.Struct(s)
}

func (cv *CausaValidator) ValidateInput(in *model.CausaInput) error {
	if err := cv.v.Struct(in); err != nil {
		return err
	}
	return cv.validateBusinessRules(in)
}

func (cv *CausaValidator) validateBusinessRules(in *model.CausaInput) error {
	var errs validation.ValidationErrors
	now := cv.now()

	if in.Anio != nil && *in.Anio > now.Year()+1 {
		errs = append(errs, validation.ValidationError{
			Field:   "anio",
			Message: fmt.Sprintf("must not be after %d", now.Year()+1),
		})
	}
	if in.FechaInicio != nil && in.FechaInicio.After(now.Add(24*time.Hour)) {
		errs = append(errs, validation.ValidationError{
			Field:   "fechaInicio",
			Message: "must not be in the future",
		})
	}
	if in.Verified != nil && !*in.Verified && in.DetailsLoaded != nil && *in.DetailsLoaded {
		errs = append(errs, validation.ValidationError{
			Field:   "detailsLoaded",
			Message: "requires a verified causa",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
