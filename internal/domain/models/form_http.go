package models

// Requests for form HTTP endpoints.

type FieldChangeRequest struct {
	Field string `json:"field" validate:"required,oneof=Age Sex ChestPainType RestingBP Cholesterol FastingBS RestingECG MaxHR ExerciseAngina Oldpeak ST_Slope"`
	Value string `json:"value"`
	Kind  string `json:"kind" validate:"omitempty,oneof=number select text"`
}

// SocketMessage is a client frame on the websocket channel.
type SocketMessage struct {
	Type  string `json:"type" validate:"required,oneof=change submit"`
	Field string `json:"field" validate:"required_if=Type change"`
	Value string `json:"value"`
	Kind  string `json:"kind" validate:"omitempty,oneof=number select text"`
}
