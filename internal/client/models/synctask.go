package models

import (
	"encoding/json"
	"time"
)

// TaskStatus is the delivery state of a SyncTask.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	// TaskDead tasks exhausted their attempts and wait for a manual requeue.
	TaskDead TaskStatus = "dead"
)

// Task types understood by the sync backend.
const (
	TaskFarmLogCreate        = "farmLog.create"
	TaskSoilSampleCreate     = "soilSample.create"
	TaskRecommendationCreate = "recommendation.create"
	TaskProfileUpdate        = "userProfile.update"
)

// SyncTask is a write waiting to be delivered to the backend.
type SyncTask struct {
	ID             string          `json:"id"`
	IdempotencyKey string          `json:"idempotency_key"`
	Type           string          `json:"type" validate:"required"`
	Payload        json.RawMessage `json:"payload" validate:"required"`
	// RecordID points back at the local record the task was created for,
	// so the record can be marked synced once the task is delivered.
	RecordID      string     `json:"record_id,omitempty"`
	Collection    Collection `json:"collection,omitempty"`
	EnqueuedAt    time.Time  `json:"enqueued_at"`
	Attempts      int        `json:"attempts"`
	NextAttemptAt time.Time  `json:"next_attempt_at"`
	LastError     string     `json:"last_error,omitempty"`
	Status        TaskStatus `json:"status"`
}

// Idempotency keys travel in this HTTP header or gRPC metadata key so the
// backend can recognise a redelivered task.
const (
	IdempotencyHeader      = "Idempotency-Key"
	IdempotencyMetadataKey = "idempotency-key"
)

// Submission is the body sent to the backend for one task.
type Submission struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// Submission builds the wire body for t.
func (t SyncTask) Submission() Submission {
	return Submission{Type: t.Type, Payload: t.Payload, Timestamp: t.EnqueuedAt}
}
