package usecase

import (
	"errors"
	"fmt"

	"HeartForm/internal/domain/models"
)

// ErrSubmitInProgress is returned for a submit while an attempt is outstanding.
var ErrSubmitInProgress = errors.New("prediction already in progress")

// State is everything the prediction form presents. After an attempt
// completes exactly one of Result and Error is set; both are empty before the
// first submission and while a request is outstanding.
type State struct {
	Form        models.FormState         `json:"form"`
	Result      *models.PredictionResult `json:"result"`
	Error       string                   `json:"error,omitempty"`
	Loading     bool                     `json:"loading"`
	AttemptID   string                   `json:"attempt_id,omitempty"`
	CompletedID string                   `json:"completed_id,omitempty"`
}

// NewState returns the state of a freshly mounted form.
func NewState(form models.FormState) State {
	return State{Form: form}
}

// Event is a discrete input to Reduce.
type Event interface {
	event()
}

// FieldChanged is one edit of one input control.
type FieldChanged struct {
	Field string
	Value string
	Kind  models.InputKind
}

// SubmitRequested starts an attempt identified by AttemptID.
type SubmitRequested struct {
	AttemptID string
}

// PredictionCompleted carries the outcome of an attempt back to the state owner.
// A nil Result means failure, described by Err.
type PredictionCompleted struct {
	AttemptID string
	Result    *models.PredictionResult
	Err       string
}

func (FieldChanged) event()        {}
func (SubmitRequested) event()     {}
func (PredictionCompleted) event() {}

// SubmitCommand asks the owner to call the predictor with a copy of the form.
type SubmitCommand struct {
	AttemptID string
	Form      models.FormState
}

// Reduce applies ev to s. It has no side effects; a non-nil command must be
// executed by the caller, which later feeds back a PredictionCompleted.
// On error s is returned unchanged.
//
// At most one attempt is outstanding: a submit while loading fails with
// ErrSubmitInProgress, and a completion for any attempt other than the
// current one leaves s as it is.
func Reduce(s State, ev Event) (State, *SubmitCommand, error) {
	switch e := ev.(type) {
	case FieldChanged:
		form, err := ApplyFieldChange(s.Form, e.Field, e.Value, e.Kind)
		if err != nil {
			return s, nil, err
		}
		s.Form = form
		return s, nil, nil

	case SubmitRequested:
		if s.Loading {
			return s, nil, ErrSubmitInProgress
		}
		s.Loading = true
		s.Error = ""
		s.Result = nil
		s.AttemptID = e.AttemptID
		return s, &SubmitCommand{AttemptID: e.AttemptID, Form: s.Form}, nil

	case PredictionCompleted:
		if !s.Loading || e.AttemptID != s.AttemptID {
			return s, nil, nil
		}
		if e.Result != nil {
			res := *e.Result
			s.Result = &res
			s.Error = ""
		} else {
			s.Result = nil
			s.Error = e.Err
			if s.Error == "" {
				s.Error = models.FallbackFetchMessage
			}
		}
		s.CompletedID = e.AttemptID
		s.Loading = false
		return s, nil, nil
	}

	return s, nil, fmt.Errorf("unsupported event %T", ev)
}
