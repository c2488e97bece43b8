package usecase

import (
	"errors"
	"fmt"

	"HeartForm/internal/domain/models"
	"HeartForm/pkg/util"
)

var ErrUnknownField = errors.New("unknown form field")

// ApplyFieldChange returns form with one field replaced by the raw input.
//
// Numbers are coerced when the control is numeric, or when the field itself
// is numeric (FastingBS is a select but stored as a number). Coercion keeps the
// leading number of the input and never yields NaN or Inf: input with no
// leading number becomes 0. Textual fields keep the raw string verbatim; the
// input surface is what limits them to their options.
func ApplyFieldChange(form models.FormState, field, raw string, kind models.InputKind) (models.FormState, error) {
	spec, ok := models.LookupField(field)
	if !ok {
		return form, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	if kind != models.KindNumber && !spec.Numeric {
		form.SetText(field, raw)
		return form, nil
	}

	v := util.ParseFloatOrZero(raw)
	if spec.Numeric {
		form.SetNumber(field, v)
	} else {
		form.SetText(field, models.FormatNumber(v))
	}
	return form, nil
}
