package dispatcher

import (
	"errors"

	"github.com/ZutrixPog/llmdispatch/queue"
)

var (
	ErrNoEndpoints        = errors.New("endpoint pool needs at least one endpoint")
	ErrNilEndpoint        = errors.New("endpoint is nil")
	ErrInvalidConcurrency = errors.New("concurrency limit must be positive")
	ErrInvalidAttempts    = errors.New("max attempts must be positive")
	ErrEmptyID            = errors.New("empty ID")
	ErrTaskAlreadyExists  = errors.New("task already exists")

	ErrTransport         = errors.New("endpoint call failed")
	ErrInvalidResponse   = errors.New("invalid response from endpoint")
	ErrNoJSONObject      = errors.New("no JSON object in response")
	ErrUnterminatedJSON  = errors.New("JSON object is not terminated")
	ErrAttemptsExhausted = errors.New("attempts exhausted without a valid response")
	ErrTaskLost          = errors.New("task was not delivered by the queue")

	ErrFullQueue  = queue.ErrFullQueue
	ErrEmptyQueue = queue.ErrEmptyQueue
)
