package tasks

import (
	"encoding/json"
	"time"
)

// Task is one unit of deferred work. The webhook path submits it and returns
// immediately; the polling continuation re-renders from its current status.
//
// Result stays opaque to this package; producers and consumers agree on the
// payload shape per Kind.
type Task struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`

	Status Status `json:"status"`

	Payload json.RawMessage `json:"payload,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`

	Attempts int `json:"attempts"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusSuccess    Status = "SUCCESS"
	StatusFailure    Status = "FAILURE"
)

// Terminal reports whether the task has settled.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailure
}
