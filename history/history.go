package history

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrRetrieveEntity = errors.New("failed to retrieve entity")
	ErrCreateEntity   = errors.New("failed to create entity")
)

type TaskHistoryRepo interface {
	Append(ctx context.Context, report TaskReport) error
	Retrieve(ctx context.Context, query Query) ([]TaskReport, error)
	Summarize(ctx context.Context, batch string) (Summary, error)
}

// Summary counts the recorded outcomes of one batch by status.
type Summary struct {
	Batch    string
	ByStatus map[string]int64
}

func (s Summary) Total() int64 {
	var total int64
	for _, n := range s.ByStatus {
		total += n
	}
	return total
}

// TaskReport is the persisted form of one terminal task outcome.
type TaskReport struct {
	ID        uint      `gorm:"primaryKey;not null;unique;autoIncrement" json:"id"`
	Batch     string    `gorm:"not null;index" json:"batch"`
	TaskID    string    `gorm:"not null;index" json:"task_id"`
	Status    string    `gorm:"not null" json:"status"`
	Endpoint  string    `json:"endpoint"`
	Attempts  int       `gorm:"not null" json:"attempts"`
	Reason    string    `json:"reason,omitempty"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type Query struct {
	Limit  int
	Offset int
	Status string
	TaskID string
	Batch  string
}

func (query Query) BuildGormQuery(ctx context.Context, db *gorm.DB) *gorm.DB {
	queryBuilder := db.WithContext(ctx).Model(&TaskReport{})

	if query.Limit > 0 {
		queryBuilder = queryBuilder.Limit(query.Limit)
	}

	if query.Offset > 0 {
		queryBuilder = queryBuilder.Offset(query.Offset)
	}

	if query.Status != "" {
		queryBuilder = queryBuilder.Where(&TaskReport{Status: query.Status})
	}

	if query.TaskID != "" {
		queryBuilder = queryBuilder.Where(&TaskReport{TaskID: query.TaskID})
	}

	if query.Batch != "" {
		queryBuilder = queryBuilder.Where(&TaskReport{Batch: query.Batch})
	}

	return queryBuilder.Order("id ASC")
}

type DummyTaskHistoryRepo struct{}

func (dummy *DummyTaskHistoryRepo) Append(ctx context.Context, report TaskReport) error {
	return nil
}

func (dummy *DummyTaskHistoryRepo) Retrieve(ctx context.Context, query Query) ([]TaskReport, error) {
	return nil, nil
}

func (dummy *DummyTaskHistoryRepo) Summarize(ctx context.Context, batch string) (Summary, error) {
	return Summary{Batch: batch, ByStatus: map[string]int64{}}, nil
}
