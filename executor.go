package dispatcher

import (
	"context"
	"fmt"
	"time"
)

// Executor runs the request/validate/retry loop for one task at a time. It is
// stateless between runs and safe to share across workers.
type Executor struct {
	selector    Selector
	validator   ResponseValidator
	maxAttempts int
	backoff     time.Duration
	observer    Observer
}

func NewExecutor(selector Selector, validator ResponseValidator, maxAttempts int, backoff time.Duration, observer Observer) (*Executor, error) {
	if selector == nil {
		return nil, ErrNoEndpoints
	}
	if maxAttempts <= 0 {
		return nil, ErrInvalidAttempts
	}
	if validator == nil {
		validator = NewJSONValidator(DefaultAnchor)
	}
	if observer == nil {
		observer = NopObserver{}
	}

	return &Executor{
		selector:    selector,
		validator:   validator,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		observer:    observer,
	}, nil
}

// Run makes up to maxAttempts tries and always returns exactly one terminal
// outcome. A transport error and an invalid response both just consume an
// attempt. Cancelling ctx stops further attempts and fails the task.
func (e *Executor) Run(ctx context.Context, task Task) Outcome {
	started := time.Now()
	endpoint := ""
	var lastErr error

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return failure(task.ID, err, attempt-1, endpoint, started)
		}

		ep := e.selector.Next()
		endpoint = ep.Name()

		attemptStart := time.Now()
		payload, err := e.attempt(ctx, ep, task)
		e.observer.AttemptFinished(Attempt{
			TaskID:   task.ID,
			Endpoint: endpoint,
			Number:   attempt,
			Err:      err,
			Duration: time.Since(attemptStart),
		})

		if err == nil {
			return success(task.ID, payload, attempt, endpoint, started)
		}
		lastErr = err

		if attempt == e.maxAttempts {
			break
		}
		if err := sleep(ctx, e.backoff); err != nil {
			return failure(task.ID, fmt.Errorf("%w after %d attempts: %w", err, attempt, lastErr), attempt, endpoint, started)
		}
	}

	return failure(task.ID, fmt.Errorf("%w (%d): %w", ErrAttemptsExhausted, e.maxAttempts, lastErr), e.maxAttempts, endpoint, started)
}

func (e *Executor) attempt(ctx context.Context, ep Endpoint, task Task) ([]byte, error) {
	raw, err := ep.Execute(ctx, task.Request)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTransport, ep.Name(), err)
	}

	payload, err := e.validator.Validate(raw)
	if err != nil {
		return nil, err
	}

	return payload, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
