package dispatcher_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZutrixPog/llmdispatch"
)

var errConnRefused = errors.New("connection refused")

const validPayload = `{"task_id": "T", "per_bad_comparisons": []}`

// fakeEndpoint answers through respond and counts calls.
type fakeEndpoint struct {
	name    string
	delay   time.Duration
	calls   atomic.Int64
	respond func(call int64, request []byte) (string, error)
}

func (f *fakeEndpoint) Name() string {
	return f.name
}

func (f *fakeEndpoint) Execute(ctx context.Context, request []byte) (string, error) {
	n := f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.respond(n, request)
}

func alwaysValid(name string) *fakeEndpoint {
	return &fakeEndpoint{name: name, respond: func(int64, []byte) (string, error) {
		return validPayload, nil
	}}
}

func alwaysDown(name string) *fakeEndpoint {
	return &fakeEndpoint{name: name, respond: func(int64, []byte) (string, error) {
		return "", errConnRefused
	}}
}

func alwaysGarbage(name string) *fakeEndpoint {
	return &fakeEndpoint{name: name, respond: func(int64, []byte) (string, error) {
		return "I am sorry, I cannot produce JSON today.", nil
	}}
}

// echoEndpoint wraps the request in a JSON object so payloads can be traced
// back to their task.
func echoEndpoint(name string) *fakeEndpoint {
	return &fakeEndpoint{name: name, respond: func(_ int64, request []byte) (string, error) {
		return fmt.Sprintf("好的。输入：{\"request\": %q}", string(request)), nil
	}}
}

func mustPool(eps ...dispatcher.Endpoint) *dispatcher.EndpointPool {
	pool, err := dispatcher.NewEndpointPool(eps...)
	if err != nil {
		panic(err)
	}
	return pool
}

func makeTasks(n int) []dispatcher.Task {
	tasks := make([]dispatcher.Task, n)
	for i := range tasks {
		id := fmt.Sprintf("T%04d", i+1)
		tasks[i] = dispatcher.Task{ID: id, Request: []byte(id)}
	}
	return tasks
}

// recordingObserver keeps every event for later assertions.
type recordingObserver struct {
	mu       sync.Mutex
	started  []string
	attempts []dispatcher.Attempt
	outcomes []dispatcher.Outcome
	progress []dispatcher.Progress
}

func (r *recordingObserver) TaskStarted(task dispatcher.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, task.ID)
}

func (r *recordingObserver) AttemptFinished(a dispatcher.Attempt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, a)
}

func (r *recordingObserver) TaskFinished(o dispatcher.Outcome, p dispatcher.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
	r.progress = append(r.progress, p)
}

func (r *recordingObserver) attemptsFor(taskID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.attempts {
		if a.TaskID == taskID {
			n++
		}
	}
	return n
}

// memoryHandler is a slog.Handler that keeps records for assertions.
type memoryHandler struct {
	mu      sync.Mutex
	entries []map[string]any
}

func (h *memoryHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

func (h *memoryHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry := map[string]any{
		"level":   r.Level.String(),
		"message": r.Message,
	}
	r.Attrs(func(a slog.Attr) bool {
		entry[a.Key] = a.Value.Any()
		return true
	})
	h.entries = append(h.entries, entry)
	return nil
}

func (h *memoryHandler) WithAttrs([]slog.Attr) slog.Handler {
	return h
}

func (h *memoryHandler) WithGroup(string) slog.Handler {
	return h
}

func (h *memoryHandler) messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.entries))
	for i, e := range h.entries {
		out[i] = e["message"].(string)
	}
	return out
}
