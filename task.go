package dispatcher

import (
	"encoding/json"
	"time"
)

// TaskState tracks a task inside one batch. Retries happen while a task is
// in flight; the terminal states never change again.
type TaskState string

const (
	StateQueued    TaskState = "queued"
	StateInFlight  TaskState = "in_flight"
	StateSucceeded TaskState = "success"
	StateFailed    TaskState = "failed"
)

// Task is one unit of work. Request is built by the caller and sent to the
// endpoint untouched.
type Task struct {
	ID      string
	Request []byte
}

// Attempt describes a single execution try. It is handed to observers and
// never stored by the dispatcher.
type Attempt struct {
	TaskID   string
	Endpoint string
	Number   int
	Err      error
	Duration time.Duration
}

// Outcome is the terminal result of a task. Payload is set on success, Err on
// failure.
type Outcome struct {
	TaskID   string
	Status   TaskState
	Payload  json.RawMessage
	Err      error
	Attempts int
	Endpoint string
	Started  time.Time
	Finished time.Time
}

func (o Outcome) Succeeded() bool {
	return o.Status == StateSucceeded
}

// Reason is the failure reason, or "" for a successful outcome.
func (o Outcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

func success(taskID string, payload json.RawMessage, attempts int, endpoint string, started time.Time) Outcome {
	return Outcome{
		TaskID:   taskID,
		Status:   StateSucceeded,
		Payload:  payload,
		Attempts: attempts,
		Endpoint: endpoint,
		Started:  started,
		Finished: time.Now(),
	}
}

func failure(taskID string, err error, attempts int, endpoint string, started time.Time) Outcome {
	return Outcome{
		TaskID:   taskID,
		Status:   StateFailed,
		Err:      err,
		Attempts: attempts,
		Endpoint: endpoint,
		Started:  started,
		Finished: time.Now(),
	}
}

// Progress is a snapshot of a batch's counters taken right after an outcome
// was recorded.
type Progress struct {
	Batch     string
	Total     int
	Succeeded int
	Failed    int
}

func (p Progress) Done() int {
	return p.Succeeded + p.Failed
}

// Failure is the diagnostic record kept for a task that produced no payload.
type Failure struct {
	TaskID   string
	Reason   string
	Attempts int
}

// Report is what RunAll hands back: successful payloads in completion order
// plus failure accounting.
type Report struct {
	Batch     string
	Payloads  []json.RawMessage
	Succeeded int
	Failed    int
	Failures  []Failure
}

func (r *Report) Total() int {
	return r.Succeeded + r.Failed
}
