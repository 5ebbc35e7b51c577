package dispatcher

import (
	"context"
	"log/slog"

	"github.com/ZutrixPog/llmdispatch/history"
)

// Observer receives progress events. Methods are called from worker
// goroutines and must be safe for concurrent use; they should return quickly
// since the calling worker waits for them. TaskFinished calls for one batch
// never overlap and carry increasing progress.
type Observer interface {
	TaskStarted(task Task)
	AttemptFinished(attempt Attempt)
	TaskFinished(outcome Outcome, progress Progress)
}

type NopObserver struct{}

func (NopObserver) TaskStarted(Task)               {}
func (NopObserver) AttemptFinished(Attempt)        {}
func (NopObserver) TaskFinished(Outcome, Progress) {}

type multiObserver []Observer

// Observers fans events out to every non-nil observer, in order.
func Observers(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	if len(m) == 0 {
		return NopObserver{}
	}
	if len(m) == 1 {
		return m[0]
	}
	return m
}

func (m multiObserver) TaskStarted(task Task) {
	for _, o := range m {
		o.TaskStarted(task)
	}
}

func (m multiObserver) AttemptFinished(attempt Attempt) {
	for _, o := range m {
		o.AttemptFinished(attempt)
	}
}

func (m multiObserver) TaskFinished(outcome Outcome, progress Progress) {
	for _, o := range m {
		o.TaskFinished(outcome, progress)
	}
}

// LogObserver reports progress through structured logs.
type LogObserver struct {
	logger *slog.Logger
}

func NewLogObserver(logger *slog.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (l *LogObserver) TaskStarted(task Task) {
	l.logger.Debug("task in flight", "task_id", task.ID)
}

func (l *LogObserver) AttemptFinished(a Attempt) {
	if a.Err == nil {
		return
	}
	l.logger.Debug("attempt failed",
		"task_id", a.TaskID,
		"endpoint", a.Endpoint,
		"attempt", a.Number,
		"duration", a.Duration,
		"error", a.Err)
}

func (l *LogObserver) TaskFinished(o Outcome, p Progress) {
	logger := l.logger.With(
		"batch", p.Batch,
		"task_id", o.TaskID,
		"attempts", o.Attempts,
		"succeeded", p.Succeeded,
		"failed", p.Failed,
		"total", p.Total,
	)
	if o.Succeeded() {
		logger.Info("task succeeded", "endpoint", o.Endpoint)
		return
	}
	logger.Warn("task failed", "reason", o.Reason())
}

// HistoryObserver persists a report for every finished task.
type HistoryObserver struct {
	NopObserver

	repo   history.TaskHistoryRepo
	logger *slog.Logger
}

func NewHistoryObserver(repo history.TaskHistoryRepo, logger *slog.Logger) *HistoryObserver {
	if repo == nil {
		repo = &history.DummyTaskHistoryRepo{}
	}
	return &HistoryObserver{repo: repo, logger: logger}
}

func (h *HistoryObserver) TaskFinished(o Outcome, p Progress) {
	report := history.TaskReport{
		Batch:    p.Batch,
		TaskID:   o.TaskID,
		Status:   string(o.Status),
		Endpoint: o.Endpoint,
		Attempts: o.Attempts,
		Reason:   o.Reason(),
		Started:  o.Started.UTC(),
		Finished: o.Finished.UTC(),
	}

	if err := h.repo.Append(context.Background(), report); err != nil {
		h.logger.Error("failed to record task outcome",
			"batch", p.Batch,
			"task_id", o.TaskID,
			"error", err)
	}
}
