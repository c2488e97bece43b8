// Package view turns form state into what a host displays.
package view

import (
	"github.com/shopspring/decimal"

	"HeartForm/internal/domain/models"
	"HeartForm/internal/usecase"
)

const (
	Title = "Heart Disease Predictor"

	LabelSubmit     = "Get Prediction"
	LabelPredicting = "Predicting..."
	LabelYes        = "Predicted YES"
	LabelNo         = "Predicted NO"

	AdvisoryHigh = "* Based on the inputs, there is a higher probability of heart disease. Please consult a medical professional."
	AdvisoryLow  = "* Based on the inputs, there is a lower probability of heart disease."
)

var hundred = decimal.NewFromInt(100)

type OptionView struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

type FieldView struct {
	Name    string           `json:"name"`
	Label   string           `json:"label"`
	Kind    models.InputKind `json:"kind"`
	Value   string           `json:"value"`
	Step    string           `json:"step,omitempty"`
	Options []OptionView     `json:"options,omitempty"`
}

type ResultView struct {
	Label                     string `json:"label"`
	ProbabilityNoHeartDisease string `json:"probability_no_heart_disease"`
	ProbabilityHeartDisease   string `json:"probability_heart_disease"`
	Advisory                  string `json:"advisory"`
	High                      bool   `json:"high"`
}

// View is the presentation of one form state.
type View struct {
	Title          string      `json:"title"`
	Fields         []FieldView `json:"fields"`
	SubmitLabel    string      `json:"submit_label"`
	SubmitDisabled bool        `json:"submit_disabled"`
	Error          string      `json:"error,omitempty"`
	Result         *ResultView `json:"result,omitempty"`
}

// Render is a pure function of s.
func Render(s usecase.State) View {
	v := View{
		Title:          Title,
		Fields:         renderFields(s.Form),
		SubmitLabel:    LabelSubmit,
		SubmitDisabled: s.Loading,
		Error:          s.Error,
	}
	if s.Loading {
		v.SubmitLabel = LabelPredicting
	}
	if s.Result != nil {
		r := RenderResult(*s.Result)
		v.Result = &r
	}
	return v
}

// RenderResult formats a prediction. The advisory follows the flag only,
// never the probabilities.
func RenderResult(r models.PredictionResult) ResultView {
	out := ResultView{
		Label:                     LabelNo,
		ProbabilityNoHeartDisease: Percent(r.ProbabilityNoHeartDisease),
		ProbabilityHeartDisease:   Percent(r.ProbabilityHeartDisease),
		Advisory:                  AdvisoryLow,
	}
	if r.HasDisease() {
		out.Label = LabelYes
		out.Advisory = AdvisoryHigh
		out.High = true
	}
	return out
}

// Percent renders a probability as a percentage with two decimals ("7.00%").
func Percent(p float64) string {
	return decimal.NewFromFloat(p).Mul(hundred).StringFixed(2) + "%"
}

func renderFields(form models.FormState) []FieldView {
	fields := make([]FieldView, 0, len(models.Schema))
	for _, spec := range models.Schema {
		fv := FieldView{
			Name:  spec.Name,
			Label: spec.Label,
			Kind:  spec.Kind,
			Value: form.Display(spec.Name),
			Step:  spec.Step,
		}
		for _, o := range spec.Options {
			fv.Options = append(fv.Options, OptionView{
				Value:    o.Value,
				Label:    o.Label,
				Selected: o.Value == fv.Value,
			})
		}
		fields = append(fields, fv)
	}
	return fields
}
