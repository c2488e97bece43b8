package usecase

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"HeartForm/internal/domain/models"
)

func TestDefaultFormState(t *testing.T) {
	f := models.DefaultFormState()
	want := models.FormState{
		Age: 40, Sex: "M", ChestPainType: "ATA", RestingBP: 140, Cholesterol: 289,
		FastingBS: 0, RestingECG: "Normal", MaxHR: 172, ExerciseAngina: "N",
		Oldpeak: 0, STSlope: "Up",
	}
	if f != want {
		t.Fatalf("unexpected defaults %+v", f)
	}
}

func TestDefaultFormStateJSONFieldNames(t *testing.T) {
	b, err := json.Marshal(models.DefaultFormState())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"Age":40,"Sex":"M","ChestPainType":"ATA","RestingBP":140,"Cholesterol":289,"FastingBS":0,"RestingECG":"Normal","MaxHR":172,"ExerciseAngina":"N","Oldpeak":0,"ST_Slope":"Up"}`
	if string(b) != want {
		t.Fatalf("unexpected body\n got %s\nwant %s", b, want)
	}
}

func TestApplyFieldChangeNumericCoercesToZero(t *testing.T) {
	numeric := []string{
		models.FieldAge, models.FieldRestingBP, models.FieldCholesterol,
		models.FieldMaxHR, models.FieldOldpeak, models.FieldFastingBS,
	}
	for _, field := range numeric {
		for _, raw := range []string{"", "abc", "NaN", "Infinity", "1e999", "--1"} {
			f, err := ApplyFieldChange(models.DefaultFormState(), field, raw, models.KindNumber)
			if err != nil {
				t.Fatalf("%s=%q: unexpected error %v", field, raw, err)
			}
			v, _ := f.Number(field)
			if v != 0 || math.IsNaN(v) {
				t.Fatalf("%s=%q: expected 0, got %v", field, raw, v)
			}
		}
	}
}

func TestApplyFieldChangeNumericParses(t *testing.T) {
	f, _ := ApplyFieldChange(models.DefaultFormState(), models.FieldAge, "55", models.KindNumber)
	f, _ = ApplyFieldChange(f, models.FieldOldpeak, "1.5", models.KindNumber)
	if f.Age != 55 || f.Oldpeak != 1.5 {
		t.Fatalf("unexpected values age=%v oldpeak=%v", f.Age, f.Oldpeak)
	}
}

func TestApplyFieldChangeNumericKeepsLeadingNumber(t *testing.T) {
	f, _ := ApplyFieldChange(models.DefaultFormState(), models.FieldCholesterol, "12abc", models.KindNumber)
	f, _ = ApplyFieldChange(f, models.FieldOldpeak, "2.5mm", models.KindNumber)
	if f.Cholesterol != 12 || f.Oldpeak != 2.5 {
		t.Fatalf("unexpected values cholesterol=%v oldpeak=%v", f.Cholesterol, f.Oldpeak)
	}
}

func TestApplyFieldChangeFastingBSFromSelect(t *testing.T) {
	f, err := ApplyFieldChange(models.DefaultFormState(), models.FieldFastingBS, "1", models.KindSelect)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.FastingBS != 1 {
		t.Fatalf("expected FastingBS=1, got %v", f.FastingBS)
	}
}

func TestApplyFieldChangeNumericFieldIgnoresTextKind(t *testing.T) {
	f, _ := ApplyFieldChange(models.DefaultFormState(), models.FieldMaxHR, "oops", models.KindText)
	if f.MaxHR != 0 {
		t.Fatalf("expected 0, got %v", f.MaxHR)
	}
}

func TestApplyFieldChangeEnumeratedVerbatim(t *testing.T) {
	cases := map[string]string{
		models.FieldSex:            "F",
		models.FieldChestPainType:  "ASY",
		models.FieldRestingECG:     "LVH",
		models.FieldExerciseAngina: "Y",
		models.FieldSTSlope:        " not-an-option ",
	}
	for field, raw := range cases {
		f, err := ApplyFieldChange(models.DefaultFormState(), field, raw, models.KindSelect)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", field, err)
		}
		if got, _ := f.Text(field); got != raw {
			t.Fatalf("%s: expected %q, got %q", field, raw, got)
		}
	}
}

func TestApplyFieldChangeNumberKindOnTextField(t *testing.T) {
	f, _ := ApplyFieldChange(models.DefaultFormState(), models.FieldSex, "x", models.KindNumber)
	if f.Sex != "0" {
		t.Fatalf("expected coerced \"0\", got %q", f.Sex)
	}
}

func TestApplyFieldChangeUnknownField(t *testing.T) {
	before := models.DefaultFormState()
	after, err := ApplyFieldChange(before, "age", "50", models.KindNumber)
	if !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if after != before {
		t.Fatalf("state changed on unknown field")
	}
}
