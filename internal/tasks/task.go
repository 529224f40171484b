package tasks

import (
	"encoding/json"
	"time"
)

// Priority orders tasks across lanes. Each priority maps onto a named lane;
// workers drain lanes from urgent down to low.
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
	PriorityUrgent
)

const (
	LaneLow    = "low"
	LaneMedium = "medium"
	LaneHigh   = "high"
	LaneUrgent = "urgent"
)

// Lanes returns all lane names in drain order (highest priority first).
func Lanes() []string {
	return []string{LaneUrgent, LaneHigh, LaneMedium, LaneLow}
}

func (p Priority) Lane() string {
	switch p {
	case PriorityUrgent:
		return LaneUrgent
	case PriorityHigh:
		return LaneHigh
	case PriorityLow:
		return LaneLow
	default:
		return LaneMedium
	}
}

func ValidLane(name string) bool {
	switch name {
	case LaneUrgent, LaneHigh, LaneMedium, LaneLow:
		return true
	}
	return false
}

// Status tracks a task through its lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRetrying  Status = "retrying"
	StatusCancelled Status = "cancelled"
)

// Task is the unit of work moved through a queue backend. Payload is opaque
// to the queue; handlers decode it themselves.
type Task struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	Lane           string          `json:"lane"`
	MaxRetries     int             `json:"max_retries"`
	Retry          int             `json:"retry"`
	TimeoutSeconds int             `json:"timeout_seconds"`
	EnqueuedAt     time.Time       `json:"enqueued_at"`
}

func (t Task) Timeout() time.Duration {
	if t.TimeoutSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// Result is the terminal (or in-progress) record for a task.
type Result struct {
	TaskID      string          `json:"task_id"`
	Status      Status          `json:"status"`
	Output      json.RawMessage `json:"output,omitempty"`
	Error       string          `json:"error,omitempty"`
	ErrorClass  ErrorClass      `json:"error_class,omitempty"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	RetryCount  int             `json:"retry_count"`
	WorkerID    string          `json:"worker_id,omitempty"`
}

// Options control enqueue behavior. Zero values pick the medium lane,
// 3 retries and a 5 minute timeout.
type Options struct {
	Lane       string
	MaxRetries int
	Timeout    time.Duration
}
