package models

import "time"

// PredictionResult is the body returned by the prediction service on success.
// Values are taken as-is; ranges are the service's contract.
type PredictionResult struct {
	Prediction                int     `json:"prediction"`
	ProbabilityNoHeartDisease float64 `json:"probability_no_heart_disease"`
	ProbabilityHeartDisease   float64 `json:"probability_heart_disease"`
}

// HasDisease reports whether the binary flag predicts heart disease.
func (r PredictionResult) HasDisease() bool { return r.Prediction == 1 }

// Attempt is one completed submission, kept for recording sinks.
type Attempt struct {
	ID         string            `json:"id"`
	SessionID  string            `json:"session_id"`
	Form       FormState         `json:"form"`
	Result     *PredictionResult `json:"result,omitempty"`
	Error      string            `json:"error,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// Outcome labels the attempt for metrics and storage.
func (a *Attempt) Outcome() string {
	if a.Result != nil {
		return "success"
	}
	return "error"
}

// Duration is the time the request was outstanding.
func (a *Attempt) Duration() time.Duration { return a.FinishedAt.Sub(a.StartedAt) }

// User-visible fallbacks when a failure carries no usable message.
const (
	FallbackStatusMessage = "Something went wrong with the prediction."
	FallbackFetchMessage  = "Failed to fetch prediction."
)
