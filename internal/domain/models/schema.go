package models

// InputKind is the declared kind of the control that produced a value.
type InputKind string

const (
	KindNumber InputKind = "number"
	KindSelect InputKind = "select"
	KindText   InputKind = "text"
)

// Option is one choice of an enumerated field.
type Option struct {
	Value string
	Label string
}

// FieldSpec describes how a FormState field is presented and coerced.
type FieldSpec struct {
	Name    string
	Label   string
	Kind    InputKind
	Numeric bool
	Step    string
	Options []Option
}

// Schema lists the form fields in display order.
var Schema = []FieldSpec{
	{Name: FieldAge, Label: "Age", Kind: KindNumber, Numeric: true},
	{Name: FieldSex, Label: "Sex", Kind: KindSelect, Options: []Option{
		{"M", "Male"}, {"F", "Female"},
	}},
	{Name: FieldChestPainType, Label: "Chest Pain Type", Kind: KindSelect, Options: []Option{
		{"ATA", "ATA (Typical Angina)"},
		{"NAP", "NAP (Atypical Angina)"},
		{"TA", "TA (Non-Anginal Pain)"},
		{"ASY", "ASY (Asymptomatic)"},
	}},
	{Name: FieldRestingBP, Label: "Resting Blood Pressure", Kind: KindNumber, Numeric: true},
	{Name: FieldCholesterol, Label: "Cholesterol", Kind: KindNumber, Numeric: true},
	// Presented as a selection but stored as a number.
	{Name: FieldFastingBS, Label: "Fasting Blood Sugar greater than 120 mg/dl", Kind: KindSelect, Numeric: true, Options: []Option{
		{"0", "No (0)"}, {"1", "Yes (1)"},
	}},
	{Name: FieldRestingECG, Label: "Resting ECG", Kind: KindSelect, Options: []Option{
		{"Normal", "Normal"},
		{"ST", "ST-T wave abnormality"},
		{"LVH", "Left ventricular hypertrophy"},
	}},
	{Name: FieldMaxHR, Label: "Maximum Heart Rate Achieved", Kind: KindNumber, Numeric: true},
	{Name: FieldExerciseAngina, Label: "Exercise Induced Angina", Kind: KindSelect, Options: []Option{
		{"N", "No"}, {"Y", "Yes"},
	}},
	{Name: FieldOldpeak, Label: "Oldpeak (ST depression)", Kind: KindNumber, Numeric: true, Step: "0.1"},
	{Name: FieldSTSlope, Label: "ST Slope", Kind: KindSelect, Options: []Option{
		{"Up", "Up-sloping"}, {"Flat", "Flat"}, {"Down", "Down-sloping"},
	}},
}

// LookupField finds a field by its exact name.
func LookupField(name string) (FieldSpec, bool) {
	for _, f := range Schema {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}
