package store

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tallybooks/tally/internal/model"
)

// CreateTask inserts a task and returns it with generated fields filled.
func (s *Store) CreateTask(ctx context.Context, task *model.Task) error {
	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("creating task: %w", err)
	}
	return nil
}

// GetTask fetches a task by ID.
func (s *Store) GetTask(ctx context.Context, id string) (model.Task, error) {
	var task model.Task
	if err := s.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		return model.Task{}, fmt.Errorf("loading task %s: %w", id, translate(err))
	}
	return task, nil
}

// TasksByProject lists a project's tasks.
func (s *Store) TasksByProject(ctx context.Context, projectID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := s.db.WithContext(ctx).Where("project_id = ?", projectID).Order("created_at").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("listing tasks for project %s: %w", projectID, err)
	}
	return tasks, nil
}

// ApplyBillingDelta adds (pct, amount) to a task's cumulative billed state
// as a single conditional update: it succeeds only if the cumulative
// percentage stays at or under 100. Returns false (no rows affected) when
// the cap would be exceeded, which callers must treat as the authoritative
// signal rather than re-checking with a separate read.
func (s *Store) ApplyBillingDelta(ctx context.Context, taskID string, pct, amount decimal.Decimal) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND billed_percentage + ? <= 100", taskID, pct).
		Updates(map[string]any{
			"billed_percentage": gorm.Expr("billed_percentage + ?", pct),
			"billed_amount":     gorm.Expr("billed_amount + ?", amount),
		})
	if res.Error != nil {
		return false, fmt.Errorf("applying billing delta to task %s: %w", taskID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ReverseBillingDelta subtracts (pct, amount) from a task's cumulative
// billed state, conditional on the result staying non-negative. The exact
// inverse of ApplyBillingDelta, used when an invoice is deleted.
func (s *Store) ReverseBillingDelta(ctx context.Context, taskID string, pct, amount decimal.Decimal) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND billed_percentage - ? >= 0", taskID, pct).
		Updates(map[string]any{
			"billed_percentage": gorm.Expr("billed_percentage - ?", pct),
			"billed_amount":     gorm.Expr("billed_amount - ?", amount),
		})
	if res.Error != nil {
		return false, fmt.Errorf("reversing billing delta on task %s: %w", taskID, res.Error)
	}
	return res.RowsAffected > 0, nil
}
