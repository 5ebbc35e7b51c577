package mocks

import (
	"context"
	"sync"

	"github.com/ZutrixPog/llmdispatch/history"
)

var _ history.TaskHistoryRepo = (*MockHistoryRepo)(nil)

// MockHistoryRepo keeps reports in memory. Results come back in insertion
// order, matching the postgres repo.
type MockHistoryRepo struct {
	mu      sync.Mutex
	history []history.TaskReport
	Err     error
}

func NewMockHistoryRepo() *MockHistoryRepo {
	return &MockHistoryRepo{
		history: make([]history.TaskReport, 0),
	}
}

func (repo *MockHistoryRepo) Append(ctx context.Context, report history.TaskReport) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if repo.Err != nil {
		return repo.Err
	}
	report.ID = uint(len(repo.history) + 1)
	repo.history = append(repo.history, report)
	return nil
}

func (repo *MockHistoryRepo) Retrieve(ctx context.Context, query history.Query) ([]history.TaskReport, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	res := make([]history.TaskReport, 0)
	skipped := 0
	for _, r := range repo.history {
		if query.Status != "" && r.Status != query.Status {
			continue
		}
		if query.TaskID != "" && r.TaskID != query.TaskID {
			continue
		}
		if query.Batch != "" && r.Batch != query.Batch {
			continue
		}
		if skipped < query.Offset {
			skipped++
			continue
		}
		res = append(res, r)
		if query.Limit > 0 && len(res) == query.Limit {
			break
		}
	}

	return res, nil
}

func (repo *MockHistoryRepo) Summarize(ctx context.Context, batch string) (history.Summary, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if repo.Err != nil {
		return history.Summary{}, repo.Err
	}
	summary := history.Summary{Batch: batch, ByStatus: make(map[string]int64)}
	for _, r := range repo.history {
		if r.Batch == batch {
			summary.ByStatus[r.Status]++
		}
	}
	return summary, nil
}
