package service

import (
	"context"

	"HeartForm/internal/domain/models"
)

// Predictor scores a patient record against the remote prediction model.
type Predictor interface {
	Predict(ctx context.Context, form models.FormState) (models.PredictionResult, error)
}
