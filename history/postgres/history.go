package postgres

import (
	"context"
	"fmt"

	"github.com/ZutrixPog/llmdispatch/history"
	"gorm.io/gorm"
)

var _ history.TaskHistoryRepo = (*HistoryRepo)(nil)

// HistoryRepo stores one row per finished task in the task_reports table.
type HistoryRepo struct {
	db *gorm.DB
}

func NewHistoryRepo(db *gorm.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

func (repo *HistoryRepo) Append(ctx context.Context, report history.TaskReport) error {
	report.ID = 0
	if err := repo.db.WithContext(ctx).Create(&report).Error; err != nil {
		return fmt.Errorf("%w: task %s: %v", history.ErrCreateEntity, report.TaskID, err)
	}
	return nil
}

func (repo *HistoryRepo) Retrieve(ctx context.Context, query history.Query) ([]history.TaskReport, error) {
	var reports []history.TaskReport

	if err := query.BuildGormQuery(ctx, repo.db).Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", history.ErrRetrieveEntity, err)
	}

	return reports, nil
}

func (repo *HistoryRepo) Summarize(ctx context.Context, batch string) (history.Summary, error) {
	var rows []struct {
		Status string
		Count  int64
	}

	err := repo.db.WithContext(ctx).
		Model(&history.TaskReport{}).
		Select("status, count(*) AS count").
		Where(&history.TaskReport{Batch: batch}).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return history.Summary{}, fmt.Errorf("%w: %v", history.ErrRetrieveEntity, err)
	}

	summary := history.Summary{Batch: batch, ByStatus: make(map[string]int64, len(rows))}
	for _, r := range rows {
		summary.ByStatus[r.Status] = r.Count
	}
	return summary, nil
}
