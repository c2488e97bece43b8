package models

import (
	"strconv"

	"github.com/creasty/defaults"
)

// Field names as sent to the prediction service (case-sensitive).
const (
	FieldAge            = "Age"
	FieldSex            = "Sex"
	FieldChestPainType  = "ChestPainType"
	FieldRestingBP      = "RestingBP"
	FieldCholesterol    = "Cholesterol"
	FieldFastingBS      = "FastingBS"
	FieldRestingECG     = "RestingECG"
	FieldMaxHR          = "MaxHR"
	FieldExerciseAngina = "ExerciseAngina"
	FieldOldpeak        = "Oldpeak"
	FieldSTSlope        = "ST_Slope"
)

// FormState is the patient record edited by the form and posted for prediction.
// Numeric fields are always finite; integers by contract are still held as
// float64 so an edit never has to round.
type FormState struct {
	Age            float64 `json:"Age" default:"40"`
	Sex            string  `json:"Sex" default:"M"`
	ChestPainType  string  `json:"ChestPainType" default:"ATA"`
	RestingBP      float64 `json:"RestingBP" default:"140"`
	Cholesterol    float64 `json:"Cholesterol" default:"289"`
	FastingBS      float64 `json:"FastingBS" default:"0"`
	RestingECG     string  `json:"RestingECG" default:"Normal"`
	MaxHR          float64 `json:"MaxHR" default:"172"`
	ExerciseAngina string  `json:"ExerciseAngina" default:"N"`
	Oldpeak        float64 `json:"Oldpeak" default:"0"`
	STSlope        string  `json:"ST_Slope" default:"Up"`
}

// DefaultFormState returns the record a new form starts with.
func DefaultFormState() FormState {
	var f FormState
	defaults.MustSet(&f)
	return f
}

// SetNumber assigns a numeric field. Reports false for unknown or textual fields.
func (f *FormState) SetNumber(name string, v float64) bool {
	switch name {
	case FieldAge:
		f.Age = v
	case FieldRestingBP:
		f.RestingBP = v
	case FieldCholesterol:
		f.Cholesterol = v
	case FieldFastingBS:
		f.FastingBS = v
	case FieldMaxHR:
		f.MaxHR = v
	case FieldOldpeak:
		f.Oldpeak = v
	default:
		return false
	}
	return true
}

// SetText assigns a textual field. Reports false for unknown or numeric fields.
func (f *FormState) SetText(name, v string) bool {
	switch name {
	case FieldSex:
		f.Sex = v
	case FieldChestPainType:
		f.ChestPainType = v
	case FieldRestingECG:
		f.RestingECG = v
	case FieldExerciseAngina:
		f.ExerciseAngina = v
	case FieldSTSlope:
		f.STSlope = v
	default:
		return false
	}
	return true
}

// Number returns the value of a numeric field.
func (f FormState) Number(name string) (float64, bool) {
	switch name {
	case FieldAge:
		return f.Age, true
	case FieldRestingBP:
		return f.RestingBP, true
	case FieldCholesterol:
		return f.Cholesterol, true
	case FieldFastingBS:
		return f.FastingBS, true
	case FieldMaxHR:
		return f.MaxHR, true
	case FieldOldpeak:
		return f.Oldpeak, true
	}
	return 0, false
}

// Text returns the value of a textual field.
func (f FormState) Text(name string) (string, bool) {
	switch name {
	case FieldSex:
		return f.Sex, true
	case FieldChestPainType:
		return f.ChestPainType, true
	case FieldRestingECG:
		return f.RestingECG, true
	case FieldExerciseAngina:
		return f.ExerciseAngina, true
	case FieldSTSlope:
		return f.STSlope, true
	}
	return "", false
}

// Display returns the field value the way an input control shows it.
func (f FormState) Display(name string) string {
	if v, ok := f.Number(name); ok {
		return FormatNumber(v)
	}
	s, _ := f.Text(name)
	return s
}

// FormatNumber renders a float in its shortest decimal form ("40", "1.5").
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
