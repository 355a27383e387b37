package domain

import "time"

// Stage is the position of a delivery attempt in its lifecycle.
type Stage string

const (
	StageIdle              Stage = "idle"
	StagePreparing         Stage = "preparing"
	StageValidationFailed  Stage = "validation_failed"
	StageKeyNotRegistered  Stage = "key_not_registered"
	StageNetworkFailed     Stage = "network_failed"
	StageUploading         Stage = "uploading"
	StageUploadFailed      Stage = "upload_failed"
	StageSubmitting        Stage = "submitting"
	StageSubmitted         Stage = "submitted"
	StageMined             Stage = "mined"
	StageTransactionFailed Stage = "transaction_failed"
)

// Terminal reports whether no further transition can leave the stage.
func (s Stage) Terminal() bool {
	switch s {
	case StageValidationFailed, StageKeyNotRegistered, StageNetworkFailed,
		StageUploadFailed, StageMined, StageTransactionFailed:
		return true
	}
	return false
}

// Failed reports whether the stage is a terminal failure.
func (s Stage) Failed() bool {
	return s.Terminal() && s != StageMined
}

// Level mirrors how a status should be rendered.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Status is the single, in-place updated message of one attempt.
type Status struct {
	AttemptID string    `json:"id" dynamodbav:"attempt_id"`
	DraftID   string    `json:"draft_id" dynamodbav:"draft_id"`
	Type      string    `json:"type" dynamodbav:"type"`
	Stage     Stage     `json:"stage" dynamodbav:"stage"`
	Level     Level     `json:"level" dynamodbav:"level"`
	Message   string    `json:"message" dynamodbav:"message"`
	Info      string    `json:"info,omitempty" dynamodbav:"info,omitempty"`
	Pointer   string    `json:"pointer,omitempty" dynamodbav:"pointer,omitempty"`
	TxHash    string    `json:"tx_hash,omitempty" dynamodbav:"tx_hash,omitempty"`
	Error     string    `json:"error,omitempty" dynamodbav:"error,omitempty"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}
